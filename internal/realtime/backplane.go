package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix  = "stream:"
	publishTimeout = 5 * time.Second
)

// backplanePayload is the message published to Redis for cross-instance
// broadcast. Origin lets an instance skip its own messages, since local
// members already received them.
type backplanePayload struct {
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
	Origin string          `json:"origin"`
	At     int64           `json:"at"`
}

// RedisBackplane relays room broadcasts between coordinator instances via
// Redis pub/sub. It is a best-effort extension point: presence and lifecycle
// writes stay single-instance, only fan-out crosses the wire.
type RedisBackplane struct {
	client     *redis.Client
	instanceID string
	logger     *zap.Logger
}

// NewRedisBackplane creates a Redis pub/sub bridge for stream room events.
func NewRedisBackplane(client *redis.Client, logger *zap.Logger) *RedisBackplane {
	return &RedisBackplane{
		client:     client,
		instanceID: uuid.New().String(),
		logger:     logger,
	}
}

// PublishStreamEvent publishes an event to the stream's Redis channel.
func (b *RedisBackplane) PublishStreamEvent(streamID, event string, payload []byte) error {
	channel := channelPrefix + streamID
	body, err := json.Marshal(backplanePayload{
		Event:  event,
		Data:   payload,
		Origin: b.instanceID,
		At:     time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return b.client.Publish(ctx, channel, body).Err()
}

// SubscribeStream subscribes to a stream's Redis channel and calls handler
// for each event published by another instance. Returns a cancel function to
// stop the subscription.
func (b *RedisBackplane) SubscribeStream(streamID string, handler func(event string, payload []byte)) (cancel func(), err error) {
	channel := channelPrefix + streamID
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := b.client.Subscribe(ctx, channel)
	if _, err = pubsub.Receive(ctx); err != nil {
		cancelCtx()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var p backplanePayload
				if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
					b.logger.Warn("malformed backplane message", zap.String("channel", channel), zap.Error(err))
					continue
				}
				if p.Origin == b.instanceID {
					continue
				}
				handler(p.Event, p.Data)
			}
		}
	}()
	return func() { cancelCtx() }, nil
}
