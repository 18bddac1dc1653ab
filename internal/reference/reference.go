// Package reference loads the static country list the country summary
// iterates over.
package reference

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/deppfellow/covid-api/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed countries.yaml
var embeddedCountries []byte

// Countries returns the embedded list, or the YAML file at path when set.
func Countries(path string) ([]model.CountryReference, error) {
	raw := embeddedCountries
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read countries file: %w", err)
		}
		raw = b
	}
	return Parse(raw)
}

// Parse decodes a YAML sequence of {code, country} entries.
func Parse(raw []byte) ([]model.CountryReference, error) {
	var refs []model.CountryReference
	if err := yaml.Unmarshal(raw, &refs); err != nil {
		return nil, fmt.Errorf("decode countries: %w", err)
	}

	seen := make(map[string]struct{}, len(refs))
	for i, ref := range refs {
		if ref.Code == "" || ref.Country == "" {
			return nil, fmt.Errorf("countries entry %d: code and country are required", i)
		}
		if _, dup := seen[ref.Code]; dup {
			return nil, fmt.Errorf("countries entry %d: duplicate code %s", i, ref.Code)
		}
		seen[ref.Code] = struct{}{}
	}
	return refs, nil
}
