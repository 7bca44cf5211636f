package cmd

import (
	"context"
	"fmt"

	"github.com/transfermesh/dtk/internal/mesh"
	"github.com/transfermesh/dtk/internal/repository"
	"github.com/transfermesh/dtk/internal/storage"
	"github.com/transfermesh/dtk/internal/substrate"
	"github.com/transfermesh/dtk/internal/transfer"
	"github.com/transfermesh/dtk/pkg/config"
	"github.com/transfermesh/dtk/pkg/geom"
)

// buildOperator reads the two mesh description files and, with the
// already-loaded cfg, builds a single-rank TransferOperator. dtkctl runs one process per
// invocation; cmd/dtkrankd is what drives a real multi-rank build over
// the gRPC substrate.
func buildOperator(ctx context.Context, cfg *config.Config, sourcePath, targetPath, sourceField, targetField string) (*transfer.TransferOperator, error) {
	sourceMesh, err := mesh.LoadDescription(sourcePath)
	if err != nil {
		return nil, err
	}
	targetMesh, err := mesh.LoadDescription(targetPath)
	if err != nil {
		return nil, err
	}

	tieBreak := geom.TieBreakRankAscending
	if cfg.TieBreakDescending() {
		tieBreak = geom.TieBreakRankDescending
	}

	opts := transfer.BuildOptions{
		SourceMesh:      sourceMesh,
		TargetMesh:      targetMesh,
		SourceCellDim:   geom.DimEdge,
		SourceVertexDim: geom.DimVertex,
		TargetPointDim:  geom.DimVertex,
		SourceField:     sourceField,
		TargetField:     targetField,
		Tolerance:       cfg.Location.GeometricTolerance,
		TieBreak:        tieBreak,
	}

	if cfg.Diagnostics.Driver != "" {
		db, err := repository.NewGormDB(&repository.DBConfig{Type: cfg.Diagnostics.Driver, DSN: cfg.Diagnostics.DSN})
		if err != nil {
			return nil, fmt.Errorf("opening diagnostics store: %w", err)
		}
		opts.Runs = repository.NewGormRunRepository(db)
	}

	if cfg.Storage.Type != "" {
		store, err := storage.NewStorage(&cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("opening archive store: %w", err)
		}
		opts.Archive = store
	}

	groups := substrate.NewLocalCluster(1)
	return transfer.BuildTransfer(ctx, groups[0], opts)
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}
