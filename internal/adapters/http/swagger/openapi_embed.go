package swagger

import (
	_ "embed"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

//go:embed openapi.yaml
var openAPIDoc []byte

// openAPIETag identifies the embedded document for conditional requests.
var openAPIETag = `"` + strconv.FormatUint(xxhash.Sum64(openAPIDoc), 16) + `"` //nolint:gochecknoglobals // derived from the embed
