// Package queue is a small durable task queue.
//
// An Enqueuer persists tasks; a Worker claims them, runs the Handler registered
// for the task name and records the result. Failed tasks are retried with a
// linear backoff and moved to the dead letter collection once MaxRetries is
// exhausted.
//
// Storage is pluggable through EnqueuerRepository and WorkerRepository.
// MemoryStorage backs tests and local runs, MongoStorage backs production.
//
//	storage := queue.NewMongoStorage(db)
//	enq, _ := queue.NewEnqueuer(storage)
//	_ = enq.Enqueue(ctx, reconcile.IPNTask{Raw: body})
//
//	w, _ := queue.NewWorker(storage, queue.WithMaxConcurrentTasks(4))
//	_ = w.RegisterHandler(queue.NewTaskHandler(processor.Process))
//	go w.Run(ctx)()
package queue
