// Package worker implements the template worker lifecycle and Redis Streams integration.
//
// The worker reads edit requests from a stream through a consumer group, applies each
// request's plan with an edit.Editor and publishes the rebuilt template to the result
// stream. Failures go to "<result stream>.errors". Every message is acknowledged once
// handled, whether it succeeded or not.
//
// Example usage:
//
//	cfg, _ := config.Load()
//	redisClient := redis.NewClient(&redis.Options{...})
//	templates := store.NewRedisStore(redisClient, logger)
//	editor := edit.NewEditor(logger)
//
//	w := worker.NewWorker(cfg, redisClient, editor, templates, logger)
//	if err := w.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop(ctx)
//
// Health checks are provided via a separate HTTP server:
//
//	healthServer := worker.NewHealthServer(cfg.HealthPort, redisClient, w.Stats, logger)
//	healthServer.Start()
//	defer healthServer.Stop(ctx)
package worker
