package middleware

import (
	"context"
	"log/slog"
	"time"
)

// Logging returns middleware that logs attempt start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, s *StepInfo, next Handler) error {
		logger.Debug("step started",
			slog.String("workflow_id", s.WorkflowID),
			slog.String("container_id", s.ContainerID),
			slog.String("step", s.Step),
			slog.Int("attempt", s.Attempt),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Warn("step failed",
				slog.String("workflow_id", s.WorkflowID),
				slog.String("container_id", s.ContainerID),
				slog.String("operation", s.Operation),
				slog.String("step", s.Step),
				slog.Int("attempt", s.Attempt),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("step completed",
				slog.String("workflow_id", s.WorkflowID),
				slog.String("container_id", s.ContainerID),
				slog.String("operation", s.Operation),
				slog.String("step", s.Step),
				slog.Int("attempt", s.Attempt),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
