package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/propgrid/internal/ctxlog"
	"github.com/vk/propgrid/internal/database"
	"github.com/vk/propgrid/internal/scene"
	"github.com/vk/propgrid/internal/workqueue"
)

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	loaded, err := scene.Load(ctx, a.config.ScenePath)
	if err != nil {
		return fmt.Errorf("failed to load scene: %w", err)
	}

	db := database.New(database.WithLogger(a.logger))
	built, err := loaded.Build(db)
	if err != nil {
		return fmt.Errorf("failed to build scene: %w", err)
	}
	a.logger.Debug("Scene built.", "nodes", len(built.IDs), "queries", len(built.Queries))

	if a.config.DebugPort > 0 {
		a.startDebugServer(a.config.DebugPort, db)
	}

	if len(built.Queries) == 0 {
		a.logger.Warn("No queries declared in scene, nothing to evaluate.")
		return nil
	}

	pool := workqueue.New(ctx, a.config.WorkerCount)
	defer pool.Close()

	a.logger.Info("🚀 Starting evaluation.",
		"queries", len(built.Queries),
		"workers", a.config.WorkerCount,
		"rounds", a.config.Repeat,
	)

	var mu sync.Mutex
	var firstErr error
	for round := 0; round < a.config.Repeat; round++ {
		for _, q := range built.Queries {
			q := q
			err := pool.Submit(q.Priority, func(ctx context.Context) {
				logger := ctxlog.FromContext(ctx).With(
					"node", q.Node,
					"computation", q.Computation,
					"priority", q.Priority.String(),
				)
				result, evalErr := scene.Evaluate(db, q, db.NewContext())
				if evalErr != nil {
					logger.Error("Query failed.", "error", evalErr)
					mu.Lock()
					if firstErr == nil {
						firstErr = evalErr
					}
					mu.Unlock()
					return
				}
				logger.Info("Query evaluated.", "result", result)
			})
			if err != nil {
				return fmt.Errorf("submitting query %s on %s: %w", q.Computation, q.Node, err)
			}
		}
		pool.Wait()
	}

	st := db.Stats()
	a.logger.Info("🏁 Evaluation finished.",
		"properties", st.Properties.Total(),
		"evaluated", st.Properties.Evaluated,
		"patterns", st.Patterns.Size,
		"pattern_hits", st.Patterns.Hits,
		"inputs", st.Inputs,
		"nodes", st.Nodes,
	)

	if firstErr != nil {
		return fmt.Errorf("evaluation failed: %w", firstErr)
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}
