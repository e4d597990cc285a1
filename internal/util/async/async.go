package async

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// RunParallel executes tasks concurrently with at most limit tasks in flight.
// A limit <= 0 runs every task at once.
//
// Unlike an errgroup with a derived context, a failing task does not cancel
// its siblings: every task runs to completion and all failures are returned
// joined, each prefixed with the task name.
//
// Example:
//
//	tasks := []Task{
//	    {Name: "m1", Func: probeM1},
//	    {Name: "w1", Func: probeW1},
//	}
//	if err := RunParallel(ctx, 8, tasks); err != nil {
//	    return err
//	}
func RunParallel(ctx context.Context, limit int, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}

	errs := make([]error, len(tasks))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, task := range tasks {
		g.Go(func() error {
			if err := task.Func(ctx); err != nil {
				errs[i] = fmt.Errorf("%s: %w", task.Name, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
