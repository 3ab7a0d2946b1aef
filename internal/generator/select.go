package generator

import (
	"strings"

	"github.com/kyleking/xu-rsd-gen/internal/errors"
	"github.com/kyleking/xu-rsd-gen/internal/xu"
)

// SelectExtractions keeps the extractions named in names, in listing order.
// An empty names list selects everything. Unknown names are an error.
func SelectExtractions(all []xu.Extraction, names []string) ([]xu.Extraction, error) {
	if len(names) == 0 {
		return all, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}

	var selected []xu.Extraction

	for _, extraction := range all {
		if wanted[extraction.Name] {
			selected = append(selected, extraction)
			delete(wanted, extraction.Name)
		}
	}

	if len(wanted) > 0 {
		missing := make([]string, 0, len(wanted))
		for _, name := range names {
			if wanted[name] {
				missing = append(missing, name)
				delete(wanted, name)
			}
		}

		return nil, errors.Newf(errors.ErrTypeNotFound, "extractions not found: %s", strings.Join(missing, ", ")).
			WithSuggestion("Run 'xu-rsd-gen list --all' to see available extractions")
	}

	return selected, nil
}
