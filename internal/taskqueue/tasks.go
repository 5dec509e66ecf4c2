package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"homeboard/internal/dispatch"
	"homeboard/internal/feed"
	"homeboard/internal/models"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// TypeApplyMutation is the task type for engine-originated device writes.
const TypeApplyMutation = "apply_mutation"

// Global instances - initialized by the main application before workers start.
var (
	pool   *pgxpool.Pool
	rdb    *redis.Client
	logger *logrus.Logger
)

// SetGlobalInstances sets the database, redis and logger instances the
// workers use.
func SetGlobalInstances(database *pgxpool.Pool, redisClient *redis.Client, log *logrus.Logger) {
	pool = database
	rdb = redisClient
	logger = log
}

// ApplyMutationPayload carries one validated device write.
type ApplyMutationPayload struct {
	Owner    string         `json:"owner"`
	DeviceID string         `json:"device_id"`
	RuleName string         `json:"rule_name"`
	Fields   map[string]any `json:"fields"`
}

// EnqueueApply enqueues a fire-and-forget device write. No retries: if the
// write fails the next feed refresh reflects persisted reality and the engine
// re-evaluates from there.
func EnqueueApply(ctx context.Context, owner, deviceID, ruleName string, fields map[string]any) error {
	payload, err := json.Marshal(ApplyMutationPayload{
		Owner:    owner,
		DeviceID: deviceID,
		RuleName: ruleName,
		Fields:   fields,
	})
	if err != nil {
		return fmt.Errorf("marshal apply payload: %w", err)
	}
	task := asynq.NewTask(TypeApplyMutation, payload)
	_, err = asynqClient.EnqueueContext(ctx, task, asynq.MaxRetry(0), asynq.Timeout(10*time.Second))
	if err != nil {
		return fmt.Errorf("enqueue apply for device %s: %w", deviceID, err)
	}
	return nil
}

// applyMutationTask performs the queued write through the owner's feed. A
// failure surfaces as an error feedback notification and a log line; asynq
// does not retry it.
func applyMutationTask(ctx context.Context, t *asynq.Task) error {
	var p ApplyMutationPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal apply payload: %w", err)
	}

	f := feed.New(pool, rdb, p.Owner, logger)
	if err := f.Write(ctx, feed.Devices, p.DeviceID, p.Fields); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"owner":  p.Owner,
			"device": p.DeviceID,
			"rule":   p.RuleName,
		}).Error("queued mutation write failed")
		notifier := dispatch.NewRedisNotifier(rdb, p.Owner, logger)
		notifier.Notify(ctx, models.Feedback{
			Message: fmt.Sprintf("Rule %q could not update device", p.RuleName),
			Type:    models.FeedbackError,
		})
		return err
	}
	return nil
}
