package service

import (
	"github.com/okian/barbell/internal/config"
	"github.com/okian/barbell/internal/domain/scoring"
	"github.com/okian/barbell/internal/export"
)

// EngineOptions returns the scoring settings held in cfg.
func EngineOptions(cfg *config.Config) []scoring.Option {
	return []scoring.Option{
		scoring.WithPointsTable(cfg.PointsTable),
		scoring.WithTeamSize(cfg.TeamSize),
		scoring.WithUnknownLabel(cfg.UnknownLabel),
	}
}

// ExportOptions returns the export settings held in cfg.
func ExportOptions(cfg *config.Config) []export.Option {
	return []export.Option{
		export.WithMarks(export.Marks{
			Success: cfg.SuccessMark,
			Fail:    cfg.FailMark,
			Pass:    cfg.PassMark,
		}),
		export.WithGenderLabels(cfg.GenderLabels),
	}
}

// OptionsFromConfig translates a loaded Config into service options.
func OptionsFromConfig(cfg *config.Config) []Option {
	return []Option{
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.EventQueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithCacheSize(cfg.CacheSize),
		WithEngineOptions(EngineOptions(cfg)...),
		WithExportOptions(ExportOptions(cfg)...),
	}
}
