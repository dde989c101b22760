// Package dataset provides the site document bundled with the binary, used when neither the
// remote API nor the local cache has data.
package dataset

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/catalogsite/backend/internal/domain/site"
)

//go:embed default_site.json
var defaultSiteJSON []byte

var (
	parseOnce sync.Once
	parsed    site.Document
	parseErr  error
)

func load() (site.Document, error) {
	parseOnce.Do(func() {
		doc := site.Skeleton()
		if err := json.Unmarshal(defaultSiteJSON, &doc); err != nil {
			parseErr = fmt.Errorf("parse bundled site document: %w", err)
			return
		}
		doc.Normalize()
		if err := doc.Validate(); err != nil {
			parseErr = fmt.Errorf("bundled site document is invalid: %w", err)
			return
		}
		parsed = doc
	})
	return parsed, parseErr
}

// Default returns a fresh copy of the bundled document. It panics if the embedded file is
// broken, which a test guards against.
func Default() site.Document {
	doc, err := load()
	if err != nil {
		panic(err)
	}
	return doc.Clone()
}

// Raw returns the embedded JSON as shipped
func Raw() []byte {
	return append([]byte(nil), defaultSiteJSON...)
}
