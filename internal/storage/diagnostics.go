package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/transfermesh/dtk/pkg/geom"
)

// MissedPointReport is the JSON document archived for one
// missed_target_points() call: the plan it came from and the target
// entities that resolved to no owner (spec.md §4.6, §6.3).
type MissedPointReport struct {
	PlanID string          `json:"plan_id"`
	Missed []geom.EntityID `json:"missed_entity_ids"`
	Total  int             `json:"total_targets"`
}

// ArchiveMissedPoints serializes report as JSON and uploads it under a
// key namespaced by the plan it belongs to, so a later run's report never
// overwrites an earlier one.
func ArchiveMissedPoints(ctx context.Context, store Storage, report MissedPointReport) error {
	encoded, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal missed-point report: %w", err)
	}
	key := fmt.Sprintf("missed-points/%s.json", report.PlanID)
	return store.Upload(ctx, key, bytes.NewReader(encoded))
}
