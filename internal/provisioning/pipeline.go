package provisioning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/autokube/provisioner/internal/provisioning/fault"
)

// StageResult records one phase run.
type StageResult struct {
	Name      string        `json:"name"`
	Success   bool          `json:"success"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// Pipeline is an ordered list of phases.
type Pipeline struct {
	Phases []Phase
}

// NewPipeline creates a pipeline running phases in the given order.
func NewPipeline(phases ...Phase) *Pipeline {
	return &Pipeline{Phases: append([]Phase{}, phases...)}
}

// Run executes the pipeline's phases. See RunPhases.
func (p *Pipeline) Run(ctx *Context) error {
	return RunPhases(ctx, p.Phases)
}

// RunPhases executes all provisioning phases sequentially and stops at the
// first failure. The returned error keeps its fault kind and is tagged with
// the failing phase; an expired deadline without a kind becomes KindTimeout.
func RunPhases(ctx *Context, phases []Phase) error {
	start := time.Now()
	ctx.Observer.Printf("Starting provisioning with %d phases...", len(phases))

	for i, phase := range phases {
		phaseStart := time.Now()
		name := fmt.Sprintf("%s (%d/%d)", phase.Name(), i+1, len(phases))

		ctx.Observer.Printf("[%s] starting", name)
		LogPhaseStart(ctx.Observer, phase.Name())

		err := contextErr(ctx)
		if err == nil {
			err = phase.Provision(ctx)
		}
		if err != nil {
			err = classify(phase.Name(), err)
			recordStage(ctx, phase.Name(), phaseStart, err)
			ctx.Observer.Printf("[%s] failed: %v", name, err)
			LogPhaseFailed(ctx.Observer, phase.Name(), err)
			return fmt.Errorf("%s phase failed: %w", phase.Name(), err)
		}

		recordStage(ctx, phase.Name(), phaseStart, nil)
		ctx.Observer.Printf("[%s] completed in %v", name, time.Since(phaseStart).Round(time.Millisecond))
		LogPhaseComplete(ctx.Observer, phase.Name(), time.Since(phaseStart))
	}

	ctx.Observer.Printf("Provisioning completed in %v", time.Since(start).Round(time.Millisecond))
	return nil
}

func contextErr(ctx *Context) error {
	if ctx.Context == nil {
		return nil
	}
	return ctx.Err()
}

// classify tags err with its stage. Plain deadline errors become KindTimeout;
// cancellation stays unclassified.
func classify(stage string, err error) error {
	if tagStage(err, stage) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		fe := fault.New(fault.KindTimeout, err)
		fe.Stage = stage
		return fe
	}
	return err
}

func recordStage(ctx *Context, name string, started time.Time, err error) {
	if ctx.State == nil {
		return
	}
	sr := StageResult{
		Name:      name,
		Success:   err == nil,
		StartedAt: started,
		Duration:  time.Since(started),
	}
	if err != nil {
		sr.Error = err.Error()
	}
	ctx.State.Stages = append(ctx.State.Stages, sr)
}

// tagStage sets the stage on every fault in err's tree that has none and
// reports whether any was found.
func tagStage(err error, stage string) bool {
	all := fault.All(err)
	for _, fe := range all {
		if fe.Stage == "" {
			fe.Stage = stage
		}
	}
	return len(all) > 0
}
