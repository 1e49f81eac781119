// Package fanout runs independent tasks concurrently and collects every
// outcome. One task failing never cancels or hides the others.
package fanout

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Task is one named unit of work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Result is the outcome of the Task with the same Name.
type Result struct {
	Name string
	Err  error
}

// Join runs all tasks concurrently, waits for all of them and returns their
// results in task order. A panicking task is reported as an error.
func Join(ctx context.Context, tasks []Task) []Result {
	results := make([]Result, len(tasks))

	// No WithContext: a failed task must not cancel its siblings.
	var g errgroup.Group
	for i, t := range tasks {
		g.Go(func() error {
			results[i] = Result{Name: t.Name, Err: run(ctx, t)}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func run(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", t.Name, r)
		}
	}()
	if t.Run == nil {
		return fmt.Errorf("task %s has no function", t.Name)
	}
	return t.Run(ctx)
}

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
