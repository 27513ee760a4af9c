package tasks

import (
	"context"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/wisemarket1122/wisemarket/internal/config"
	"github.com/wisemarket1122/wisemarket/internal/services"
)

// TaskType defines the type of a background task.
const (
	TypeAccountPurge = "user:unverified:purge"
)

// redisOpt builds the asynq connection options from the shared Redis client.
func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

// NewClient creates an asynq client for enqueuing tasks.
func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

// NewAccountPurgeTask builds the periodic unverified-account purge task.
func NewAccountPurgeTask() *asynq.Task {
	return asynq.NewTask(TypeAccountPurge, nil)
}

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg         *config.Config
	userService services.IUserService
}

// NewTaskProcessor creates a new TaskProcessor.
func NewTaskProcessor(cfg *config.Config, userService services.IUserService) *TaskProcessor {
	return &TaskProcessor{cfg: cfg, userService: userService}
}

// HandleAccountPurgeTask deletes unverified accounts whose grace period ran
// out. Accounts created through an unverified signup hold their email and
// nickname; this frees them again.
func (p *TaskProcessor) HandleAccountPurgeTask(ctx context.Context, t *asynq.Task) error {
	purged, err := p.userService.PurgeUnverified(ctx, p.cfg.UnverifiedAccountTTL)
	if err != nil {
		return fmt.Errorf("account purge failed: %w", err)
	}
	log.Printf("Account purge task finished. Removed %d accounts.", purged)
	return nil
}

// SetupServer configures an asynq server with all task handlers registered.
// The caller starts it with Run.
func SetupServer(rdb *redis.Client, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(
		redisOpt(rdb),
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq Error] Task Type: %s, Error: %v", task.Type(), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeAccountPurge, processor.HandleAccountPurgeTask)

	return srv, mux
}

// SetupScheduler registers the hourly account purge and returns the
// scheduler for the caller to run.
func SetupScheduler(rdb *redis.Client) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt(rdb), nil)
	if _, err := scheduler.Register("@every 1h", NewAccountPurgeTask()); err != nil {
		return nil, fmt.Errorf("failed to register account purge schedule: %w", err)
	}
	return scheduler, nil
}
