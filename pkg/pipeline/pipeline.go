package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"eventml/pkg/frame"
)

// Step is one named frame transform.
type Step struct {
	Name  string
	Apply func(frame.Frame) (frame.Frame, error)
}

// StageError reports the step that failed and the last one that
// completed before it ("" when the first step failed).
type StageError struct {
	Stage     string
	Completed string
	Err       error
}

func (e *StageError) Error() string { return fmt.Sprintf("stage %s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Pipeline chains steps; each step sees the complete output of the
// previous one.
type Pipeline struct {
	steps  []Step
	logger *zap.Logger
}

func NewPipeline(logger *zap.Logger, steps ...Step) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{steps: steps, logger: logger}
}

// Names lists the step names in run order.
func (p *Pipeline) Names() []string {
	out := make([]string, len(p.steps))
	for i, s := range p.steps {
		out[i] = s.Name
	}
	return out
}

// Run applies the steps in order and stops at the first error.
func (p *Pipeline) Run(f frame.Frame) (frame.Frame, error) {
	completed := ""
	for _, step := range p.steps {
		out, err := step.Apply(f)
		if err != nil {
			return frame.Frame{}, &StageError{Stage: step.Name, Completed: completed, Err: err}
		}
		f = out
		completed = step.Name
		p.logger.Debug("step completed",
			zap.String("step", step.Name),
			zap.Int("rows", f.Len()),
			zap.Int("columns", len(f.Columns())),
		)
	}
	return f, nil
}
