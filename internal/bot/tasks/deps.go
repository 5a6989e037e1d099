// Package tasks implements the bot's scheduled tasks and their registration.
package tasks

import (
	"context"
	"log/slog"
)

// Maintainer runs periodic storage maintenance.
type Maintainer interface {
	RunSQLMaintenance(ctx context.Context) error
}

// TaskDeps contains the dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  Maintainer // nil when no database is in use
}
