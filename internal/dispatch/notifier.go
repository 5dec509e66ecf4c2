package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"homeboard/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Notifier delivers user-visible feedback notifications.
type Notifier interface {
	Notify(ctx context.Context, f models.Feedback)
}

// FeedbackChannel is the redis pub/sub channel carrying feedback for one user.
func FeedbackChannel(owner string) string {
	return fmt.Sprintf("feedback:%s", owner)
}

// RedisNotifier publishes feedback on the user's feedback channel; the web
// layer streams it out over a websocket. Best-effort: a failed publish is
// logged and dropped.
type RedisNotifier struct {
	rdb   *redis.Client
	owner string
	log   *logrus.Entry
}

func NewRedisNotifier(rdb *redis.Client, owner string, log *logrus.Logger) *RedisNotifier {
	return &RedisNotifier{
		rdb:   rdb,
		owner: owner,
		log:   log.WithField("component", "notifier"),
	}
}

func (n *RedisNotifier) Notify(ctx context.Context, f models.Feedback) {
	payload, err := json.Marshal(f)
	if err != nil {
		n.log.WithError(err).Error("encoding feedback")
		return
	}
	if err := n.rdb.Publish(ctx, FeedbackChannel(n.owner), payload).Err(); err != nil {
		n.log.WithError(err).Warn("feedback publish failed")
	}
}
