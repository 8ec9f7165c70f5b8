package model

import "slices"

// IWF bodyweight categories in force from 2024, lightest first.
var weightClasses = map[Gender][]string{ //nolint:gochecknoglobals // static catalogue
	GenderMale:   {"55", "61", "67", "73", "81", "89", "96", "102", "109", "+109"},
	GenderFemale: {"45", "49", "55", "59", "64", "71", "76", "81", "87", "+87"},
}

// WeightClasses returns a copy of the standard categories for g.
func WeightClasses(g Gender) []string {
	return slices.Clone(weightClasses[g])
}

// IsStandardClass reports whether label is a standard category for g.
func IsStandardClass(g Gender, label string) bool {
	return slices.Contains(weightClasses[g], label)
}
