package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

const (
	jobEventsChannel = "proxyhome:job-events"
	publishTimeout   = 5 * time.Second
)

// JobEvent is the payload published on job transitions and log appends.
// Delivery is best effort; nothing reads these back for correctness.
type JobEvent struct {
	Origin  string `json:"origin"`
	JobID   uint64 `json:"job_id"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	At      string `json:"ts"`
}

type publisherState struct {
	mu     sync.RWMutex
	client *redis.Client
	ctx    context.Context
	cancel context.CancelFunc
}

var (
	globalPublisher publisherState
	publisherNodeID = generatePublisherNodeID()
)

// Enable wires job-event publishing to redis pub/sub and starts mirroring
// events from other instances into the local log. A second call is a no-op.
func Enable(ctx context.Context, client *redis.Client) {
	if client == nil {
		log.Warn("Job events disabled: redis client is nil")
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	globalPublisher.mu.Lock()
	if globalPublisher.client != nil {
		globalPublisher.mu.Unlock()
		return
	}

	eventCtx, cancel := context.WithCancel(ctx)
	globalPublisher.client = client
	globalPublisher.ctx = eventCtx
	globalPublisher.cancel = cancel
	globalPublisher.mu.Unlock()

	go subscribeToJobEvents(eventCtx, client)
}

// ResetForTests tears the publisher state down so tests can re-enable it
// against a fresh redis.
func ResetForTests() {
	globalPublisher.mu.Lock()
	cancel := globalPublisher.cancel
	globalPublisher.client = nil
	globalPublisher.ctx = nil
	globalPublisher.cancel = nil
	globalPublisher.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// PublishJobUpdate broadcasts one job event. Without an enabled publisher it
// does nothing; a failed publish is logged and swallowed.
func PublishJobUpdate(ctx context.Context, jobID uint64, status, message string) {
	client, baseCtx := publisherClient()
	if client == nil {
		return
	}

	event := JobEvent{
		Origin:  publisherNodeID,
		JobID:   jobID,
		Status:  status,
		Message: message,
		At:      time.Now().UTC().Format(time.RFC3339),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Warn("Job event not published", "job_id", jobID, "error", err)
		return
	}

	merged := mergedContext(ctx, baseCtx)
	opCtx, cancel := redisTimeoutCtx(merged)
	defer cancel()

	if err := client.Publish(opCtx, jobEventsChannel, payload).Err(); err != nil {
		log.Warn("Job event not published", "job_id", jobID, "error", err)
	}
}

func subscribeToJobEvents(ctx context.Context, client *redis.Client) {
	pubsub := client.Subscribe(ctx, jobEventsChannel)
	defer pubsub.Close()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) || ctx.Err() != nil {
				return
			}
			log.Error("Job events: subscription error", "error", err)
			time.Sleep(time.Second)
			continue
		}

		var event JobEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Error("Job events: invalid payload", "error", err)
			continue
		}

		if event.Origin == publisherNodeID {
			continue
		}

		log.Info("Job update from peer", "job_id", event.JobID, "status", event.Status, "message", event.Message)
	}
}

func publisherClient() (*redis.Client, context.Context) {
	globalPublisher.mu.RLock()
	defer globalPublisher.mu.RUnlock()
	return globalPublisher.client, globalPublisher.ctx
}

func generatePublisherNodeID() string {
	host, _ := os.Hostname()
	return fmt.Sprintf("%s-%d-%d", host, os.Getpid(), time.Now().UnixNano())
}

func mergedContext(ctx context.Context, fallback context.Context) context.Context {
	switch {
	case ctx != nil && ctx.Err() == nil:
		return ctx
	case fallback != nil && fallback.Err() == nil:
		return fallback
	default:
		return context.Background()
	}
}

func redisTimeoutCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if deadline, hasDeadline := ctx.Deadline(); hasDeadline && time.Until(deadline) <= publishTimeout {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, publishTimeout)
}
