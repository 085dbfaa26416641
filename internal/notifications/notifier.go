// Package notifications provides real-time notification delivery and management.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"threads/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix = "notifications:user:"
	userChannelGlob   = userChannelPrefix + "*"
)

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// ParseUserChannel extracts the user id from a channel produced by UserChannel.
func ParseUserChannel(channel string) (uint, bool) {
	rest, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// Notifier publishes events to per-user Redis channels. Without Redis it
// hands events straight to the local hub, which serves a single process.
type Notifier struct {
	rdb   *redis.Client
	local *Hub
	now   func() time.Time
}

// NewNotifier creates a Notifier. Either argument may be nil.
func NewNotifier(rdb *redis.Client, local *Hub) *Notifier {
	return &Notifier{rdb: rdb, local: local, now: time.Now}
}

// Notify publishes ev to userID. Delivery is best effort: failures are logged
// and never returned to the caller's request path.
func (n *Notifier) Notify(ctx context.Context, userID uint, ev Event) {
	if n == nil || userID == 0 || userID == ev.ActorID {
		return
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = n.now().UTC()
	}
	payload, err := ev.Encode()
	if err != nil {
		observability.GlobalLogger.ErrorContext(ctx, "encode notification", slog.String("error", err.Error()))
		return
	}
	if err := n.PublishUser(ctx, userID, payload); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "publish notification failed",
			slog.Uint64("recipient_id", uint64(userID)),
			slog.String("type", ev.Type),
			slog.String("error", err.Error()),
		)
	}
}

// PublishUser sends a raw payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n.rdb == nil {
		if n.local != nil {
			n.local.Broadcast(userID, payload)
		}
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// StartSubscriber subscribes to every user channel and calls onMessage for
// each payload until ctx is done. It is a no-op without Redis.
func (n *Notifier) StartSubscriber(ctx context.Context, onMessage func(userID uint, payload string)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelGlob)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", userChannelGlob, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				userID, valid := ParseUserChannel(msg.Channel)
				if !valid {
					observability.GlobalLogger.Warn("invalid notification channel", slog.String("channel", msg.Channel))
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.GlobalLogger.Error("panic in notification subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(userID, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
