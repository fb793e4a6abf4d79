// Package grid holds the static cell definitions the service scores.
//
// Definitions are hand-authored YAML: an embedded default grid ships with
// the binary and can be replaced wholesale via CELLS_FILE. The grid is
// loaded once at startup and is immutable afterwards; requests take deep
// copies so per-request enrichment never leaks back.
package grid

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/invasive-risk-service/internal/domain"
)

//go:embed default.yaml
var defaultCells []byte

// Grid is an immutable set of cell definitions.
type Grid struct {
	cells []domain.GeoCell
}

// Load reads cell definitions from path, or the embedded default grid when
// path is empty. A malformed or invalid file fails startup.
func Load(path string) (*Grid, error) {
	data := defaultCells
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read cells file: %w", err)
		}
	}

	var doc struct {
		Cells []domain.GeoCell `yaml:"cells"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse cells file: %w", err)
	}

	if err := validate(doc.Cells); err != nil {
		return nil, err
	}

	return &Grid{cells: doc.Cells}, nil
}

// validate enforces the model's input contract: at least one cell, and every
// feature vector with the same length and column order.
func validate(cells []domain.GeoCell) error {
	if len(cells) == 0 {
		return fmt.Errorf("cells file defines no cells")
	}
	for _, c := range cells {
		if c.ID == "" {
			return fmt.Errorf("cell with empty id")
		}
		if c.Species == "" {
			return fmt.Errorf("cell %s: empty species", c.ID)
		}
		if len(c.Features) != domain.FeatureCount {
			return fmt.Errorf("cell %s: expected %d features, got %d", c.ID, domain.FeatureCount, len(c.Features))
		}
		if len(c.Ring) < 4 {
			return fmt.Errorf("cell %s: boundary ring needs at least 4 points", c.ID)
		}
		if c.Ring[0] != c.Ring[len(c.Ring)-1] {
			return fmt.Errorf("cell %s: boundary ring is not closed", c.ID)
		}
	}
	return nil
}

// Snapshot returns deep copies of all cells for one request's processing.
func (g *Grid) Snapshot() []domain.GeoCell {
	out := make([]domain.GeoCell, len(g.cells))
	for i, c := range g.cells {
		out[i] = c.Clone()
	}
	return out
}

// Len returns the number of cells in the grid.
func (g *Grid) Len() int { return len(g.cells) }
