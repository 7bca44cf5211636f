package mesh

import (
	"fmt"

	appErrors "github.com/transfermesh/dtk/pkg/errors"
	"github.com/transfermesh/dtk/pkg/geom"
)

func unknownEntity(id geom.EntityID) error {
	return appErrors.New(appErrors.CodeInvariantViolation, fmt.Sprintf("unknown entity id %d", id))
}

func badReferenceCoords(dim int, got int) error {
	return appErrors.New(appErrors.CodeInvariantViolation, fmt.Sprintf("basis_evaluate expected %d reference coordinates, got %d", dim, got))
}

func unknownField(name string) error {
	return appErrors.New(appErrors.CodeTopologyMismatch, fmt.Sprintf("unknown field %q", name))
}
