package orchestrator

import (
	"context"
	"time"

	"github.com/luckyG0429/athena2/internal/bundle"
	"github.com/luckyG0429/athena2/internal/compiler"
	"github.com/luckyG0429/athena2/internal/model"
	"github.com/luckyG0429/athena2/internal/outcome"
)

// RunMain assembles the main configuration from cfg and plan, runs it once
// and classifies the result. plan.Vendor is optional.
func RunMain(ctx context.Context, comp compiler.Compiler, cfg model.BuildConfiguration, plan *model.Plan) (model.StageResult, error) {
	bc, err := bundle.AssembleMain(cfg, plan)
	if err != nil {
		return model.StageResult{}, err
	}

	start := time.Now()
	stats, err := comp.Run(ctx, bc)
	elapsed := time.Since(start)
	if err != nil {
		return outcome.TransportResult(model.StageMain, err, elapsed), nil
	}
	return outcome.Classify(stats.Errors, stats.Warnings).StageResult(model.StageMain, elapsed), nil
}
