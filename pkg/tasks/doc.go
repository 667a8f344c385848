// Package tasks persists batch scan results as a task list.
//
// Every diagnostic of a batch scan becomes a Task row in a SQLite
// database. Recording a file replaces its previous tasks, so the list
// always shows the latest scan of each file. A Pruner removes old tasks
// by age and by count, and a Scheduler runs it on a cron schedule:
//
//	store, err := tasks.NewSQLiteStore(cfg.Tasks.SQLite, logger)
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	pruner := tasks.NewPruner(store, cfg.Tasks.Retention, logger)
//	scheduler := tasks.NewScheduler(pruner, logger)
//	if err := scheduler.Start(ctx); err != nil {
//		return err
//	}
//
// Store implements scan.Sink and can be handed to a batch scanner
// directly. Tasks can be exported as CSV or JSON.
package tasks
