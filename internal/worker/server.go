// Package worker runs the asynq background processing: revision history
// persistence and the periodic idle-room sweep.
package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/abhaypanchalprogrammer/HasText/internal/tasks"
)

// WorkerServer wraps the asynq server and its mux.
type WorkerServer struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewWorkerServer builds the worker with the task handlers registered.
func NewWorkerServer(redisOpt asynq.RedisClientOpt, revisionHandler *RevisionPersistenceHandler, sweepHandler *IdleRoomSweepHandler) *WorkerServer {
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logrus.WithFields(logrus.Fields{
				"task_type": task.Type(),
			}).WithError(err).Error("Background task failed")
		}),
	})

	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeRevisionPersist, revisionHandler)
	mux.Handle(tasks.TypeRoomSweep, sweepHandler)

	return &WorkerServer{server: server, mux: mux}
}

// Start runs the worker in the background.
func (w *WorkerServer) Start() error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("failed to start worker server: %w", err)
	}
	logrus.Info("Worker server started")
	return nil
}

// Shutdown stops the worker, waiting for in-flight tasks.
func (w *WorkerServer) Shutdown() {
	w.server.Shutdown()
	logrus.Info("Worker server stopped")
}
