package taskqueue

import (
	"github.com/hibiken/asynq"
)

var (
	asynqClient *asynq.Client
	asynqMux    = asynq.NewServeMux()
	asynqSrv    *asynq.Server
)

// Init creates the enqueue client. Call it before anything can dispatch a
// firing; the client connects lazily, so this never blocks.
func Init(redisAddr string) {
	asynqClient = asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
}

// StartWorkers starts the asynq workers. Blocks until the server stops, so
// call it from its own goroutine.
func StartWorkers(redisAddr string) {
	logger.WithField("redis", redisAddr).Info("starting task workers")
	asynqMux.HandleFunc(TypeApplyMutation, applyMutationTask)
	asynqSrv = asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{Concurrency: 10})
	if err := asynqSrv.Run(asynqMux); err != nil {
		logger.WithError(err).Fatal("task workers failed")
	}
}

// StopWorkers stops workers and closes the client.
func StopWorkers() {
	if asynqSrv != nil {
		asynqSrv.Stop()
	}
	if asynqClient != nil {
		asynqClient.Close()
	}
	logger.Info("task workers stopped")
}
