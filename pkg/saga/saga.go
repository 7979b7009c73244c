package saga

import (
	"context"
	"errors"
	"fmt"
)

// Step is one unit of work in a saga. Compensate undoes a completed
// Execute and may be nil for steps with nothing to roll back.
type Step struct {
	Name       string
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga runs steps in order and, when one fails, compensates the steps
// that already completed in reverse order. The failing step itself is
// never compensated.
type Saga struct {
	name  string
	steps []Step
}

func New(name string) *Saga {
	return &Saga{name: name}
}

func (s *Saga) AddStep(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Execute runs the saga. It returns the index of the step that failed,
// or -1 when every step succeeded. The returned error wraps the step
// error, and any compensation errors are appended to it.
func (s *Saga) Execute(ctx context.Context) (int, error) {
	for i, step := range s.steps {
		if err := step.Execute(ctx); err != nil {
			if compErr := s.rollback(ctx, i); compErr != nil {
				return i, fmt.Errorf("saga %s: step %q failed (%w), compensation also failed: %v", s.name, step.Name, err, compErr)
			}
			return i, fmt.Errorf("saga %s: step %q failed: %w", s.name, step.Name, err)
		}
	}
	return -1, nil
}

// rollback compensates steps [0, failed) in reverse order, collecting
// every compensation error rather than stopping at the first.
func (s *Saga) rollback(ctx context.Context, failed int) error {
	var errs []error
	for i := failed - 1; i >= 0; i-- {
		step := s.steps[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("compensate step %q: %w", step.Name, err))
		}
	}
	return errors.Join(errs...)
}
