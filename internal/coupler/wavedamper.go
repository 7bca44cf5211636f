package coupler

import (
	"context"

	"github.com/transfermesh/dtk/internal/comm"
	"github.com/transfermesh/dtk/internal/substrate"
	"github.com/transfermesh/dtk/internal/transfer"
	"github.com/transfermesh/dtk/pkg/geom"
)

// Options configures one WaveDamper run, the Go analogue of
// cxx_main.cpp's domain and loop-control literals.
type Options struct {
	GlobalMin, GlobalMax float64
	CellsPerRank         int
	Tolerance            float64
	MaxIterations        int
}

// DefaultOptions mirrors cxx_main.cpp's literal constants: a [0, 5]
// domain, 10 cells per rank, 1e-6 tolerance, 100-iteration cap.
func DefaultOptions() Options {
	return Options{GlobalMin: 0, GlobalMax: 5, CellsPerRank: 10, Tolerance: 1e-6, MaxIterations: 100}
}

// Result reports how the coupling loop finished.
type Result struct {
	Iterations int
	Residual   float64
	Converged  bool
}

// Run drives the fixed-point Wave/Damper coupling of
// original_source/core/example/WaveDamper/cxx_main.cpp on group g:
// partition the domain evenly across g's ranks, build the two field
// transfer operators once, then alternate transfer-wave / solve-damper /
// transfer-damper / solve-wave, reducing the wave solve's residual with
// REDUCE_MAX each round, until it drops to opts.Tolerance or the
// iteration cap is hit.
func Run(ctx context.Context, g substrate.Group, opts Options) (Result, error) {
	rank, size := g.Rank(), g.Size()
	localWidth := (opts.GlobalMax - opts.GlobalMin) / float64(size)
	myMin := opts.GlobalMin + float64(rank)*localWidth
	myMax := opts.GlobalMin + float64(rank+1)*localWidth

	wave := NewWave(rank, myMin, myMax, opts.CellsPerRank, rank == 0)
	damper := NewDamper(rank, myMin, myMax, opts.CellsPerRank)

	waveToDamper, err := transfer.BuildTransfer(ctx, g, transfer.BuildOptions{
		SourceMesh:      wave.Mesh(),
		TargetMesh:      damper.Mesh(),
		SourceCellDim:   geom.DimEdge,
		SourceVertexDim: geom.DimVertex,
		TargetPointDim:  geom.DimVertex,
		SourceField:     waveSourceField,
		TargetField:     damperTargetField,
		Tolerance:       1e-9,
		TieBreak:        geom.TieBreakRankAscending,
	})
	if err != nil {
		return Result{}, err
	}
	defer waveToDamper.Destroy()

	damperToWave, err := transfer.BuildTransfer(ctx, g, transfer.BuildOptions{
		SourceMesh:      damper.Mesh(),
		TargetMesh:      wave.Mesh(),
		SourceCellDim:   geom.DimEdge,
		SourceVertexDim: geom.DimVertex,
		TargetPointDim:  geom.DimVertex,
		SourceField:     damperSourceField,
		TargetField:     waveTargetField,
		Tolerance:       1e-9,
		TieBreak:        geom.TieBreakRankAscending,
	})
	if err != nil {
		return Result{}, err
	}
	defer damperToWave.Destroy()

	residual := opts.Tolerance + 1
	iterations := 0
	for residual > opts.Tolerance && iterations < opts.MaxIterations {
		if err := waveToDamper.Apply(ctx, damper); err != nil {
			return Result{}, err
		}
		damper.Solve()

		if err := damperToWave.Apply(ctx, wave); err != nil {
			return Result{}, err
		}
		localResidual := wave.Solve()

		globalResidual, err := comm.ReduceAllFloat64(ctx, g, comm.ReduceMax, localResidual)
		if err != nil {
			return Result{}, err
		}
		residual = globalResidual
		iterations++

		if err := g.Barrier(ctx); err != nil {
			return Result{}, err
		}
	}

	return Result{Iterations: iterations, Residual: residual, Converged: residual <= opts.Tolerance}, nil
}
