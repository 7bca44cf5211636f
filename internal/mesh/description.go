package mesh

import (
	"encoding/json"
	"fmt"
	"os"

	appErrors "github.com/transfermesh/dtk/pkg/errors"
)

// Description is the on-disk JSON form of a reference mesh adapter, the
// input cmd/dtkctl's build subcommand reads for each side of a transfer.
// It covers only the LineMesh/QuadMesh adapters this module ships; a real
// deployment would point SourceMesh/TargetMesh at an adapter backed by
// its own file format instead.
type Description struct {
	Kind  string    `json:"kind"` // "line" or "quad"
	Rank  int       `json:"rank"`
	X     []float64 `json:"x"`
	Y     []float64 `json:"y,omitempty"` // quad only
	Field string    `json:"field"`
	Values []float64 `json:"values"`
}

// LoadDescription reads a Description file and builds the adapter it
// names.
func LoadDescription(path string) (Mesh, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, appErrors.Wrap(appErrors.CodeConfigError, fmt.Sprintf("reading mesh description %q", path), err)
	}

	var desc Description
	if err := json.Unmarshal(raw, &desc); err != nil {
		return nil, appErrors.Wrap(appErrors.CodeConfigError, fmt.Sprintf("parsing mesh description %q", path), err)
	}

	switch desc.Kind {
	case "line":
		m := NewLineMesh(desc.Rank, desc.X)
		if desc.Field != "" {
			if len(desc.Values) != len(desc.X) {
				return nil, appErrors.New(appErrors.CodeConfigError, fmt.Sprintf("mesh description %q: field %q has %d values for %d nodes", path, desc.Field, len(desc.Values), len(desc.X)))
			}
			m.SetField(desc.Field, desc.Values)
		}
		return m, nil
	case "quad":
		m := NewQuadMesh(desc.Rank, desc.X, desc.Y)
		if desc.Field != "" {
			want := len(desc.X) * len(desc.Y)
			if len(desc.Values) != want {
				return nil, appErrors.New(appErrors.CodeConfigError, fmt.Sprintf("mesh description %q: field %q has %d values for %d nodes", path, desc.Field, len(desc.Values), want))
			}
			m.SetField(desc.Field, desc.Values)
		}
		return m, nil
	default:
		return nil, appErrors.New(appErrors.CodeConfigError, fmt.Sprintf("mesh description %q: unsupported kind %q", path, desc.Kind))
	}
}
