package tasks

import "context"

// ScheduledTaskFunc is the signature of every scheduled task. The context is
// cancelled when the scheduler shuts down.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks returns every known task keyed by the name used in the
// scheduler configuration. A task whose dependencies are not in use maps to
// nil, which the scheduler skips without complaint.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := map[string]ScheduledTaskFunc{
		"sql_maintenance": nil,
	}

	if deps.Store != nil {
		tasks["sql_maintenance"] = newSQLMaintenanceTask(deps)
	}

	available := 0
	for _, task := range tasks {
		if task != nil {
			available++
		}
	}
	deps.Logger.Info("Initialized scheduled tasks", "count", available)
	return tasks
}
