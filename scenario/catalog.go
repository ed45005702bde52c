package scenario

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed scenarios.json
var embeddedCatalog []byte

// DefaultCatalog returns the scenarios bundled with the binary.
func DefaultCatalog() ([]Scenario, error) {
	return parseCatalog(embeddedCatalog)
}

// LoadCatalog reads a scenario catalog from an external JSON file,
// letting deployments swap in their own content.
func LoadCatalog(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario catalog: %w", err)
	}
	return parseCatalog(data)
}

func parseCatalog(data []byte) ([]Scenario, error) {
	var scenarios []Scenario
	if err := json.Unmarshal(data, &scenarios); err != nil {
		return nil, fmt.Errorf("failed to parse scenario catalog: %w", err)
	}
	for i, s := range scenarios {
		if s.ID == "" {
			return nil, fmt.Errorf("scenario %d has no id", i)
		}
	}
	return scenarios, nil
}

// Find returns the scenario with the given ID from a catalog.
func Find(catalog []Scenario, id string) (Scenario, bool) {
	for _, s := range catalog {
		if s.ID == id {
			return s, true
		}
	}
	return Scenario{}, false
}
