// Package retention removes old export files and finished queue tasks.
//
// A Pruner deletes .csv and .xlsx files below the export directory whose
// modification time is older than the retention period, then prunes
// finished tasks from the queue store. A Scheduler runs the pruner on a
// cron expression:
//
//	pruner := retention.NewPruner(&retention.Config{
//	    RetentionDays: 7,
//	    PruneSchedule: "0 3 * * *",
//	    Dir:           "data/public/exports",
//	}, retention.WithTaskPruner(backend))
//	go pruner.Scheduler().Run(ctx)
package retention
