package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	domain "github.com/cloudgovern/policyaudit/internal/domain/catalog"
	"github.com/cloudgovern/policyaudit/internal/pkg/errors"
	"github.com/cloudgovern/policyaudit/internal/pkg/logger"
)

// Load reads a baseline catalog from a YAML file.
func Load(path string) (domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Catalog{}, errors.CatalogUnavailable(
			fmt.Sprintf("cannot read catalog file %s", path), err)
	}

	var cat domain.Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return domain.Catalog{}, errors.CatalogUnavailable(
			fmt.Sprintf("cannot parse catalog file %s", path), err)
	}
	return cat, nil
}

// LoadOrFallback loads a catalog file when a path is configured, falling back
// to the built-in table when the file is missing or unreadable. Catalog
// unavailability degrades coverage, it never fails the assessment.
func LoadOrFallback(path string, log *logger.Logger) domain.Catalog {
	if path == "" {
		return domain.Fallback()
	}
	cat, err := Load(path)
	if err != nil {
		log.WithFields(map[string]interface{}{"path": path}).
			WithError(err).Warn("baseline catalog unavailable, using built-in fallback")
		return domain.Fallback()
	}
	if cat.IsEmpty() {
		log.WithFields(map[string]interface{}{"path": path}).
			Warn("baseline catalog is empty, coverage will report no entries")
	}
	return cat
}
