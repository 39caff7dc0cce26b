package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RoomBus carries room events between server instances over Redis Pub/Sub.
// Every event goes to the channel "complaint:<id>".
type RoomBus struct {
	Redis *redis.Client
	log   zerolog.Logger
}

func NewRoomBus(rdb *redis.Client, log zerolog.Logger) *RoomBus {
	return &RoomBus{Redis: rdb, log: log.With().Str("component", "room_bus").Logger()}
}

func roomChannel(complaintID string) string {
	return config.RoomChannelPrefix + complaintID
}

// Publish sends evt to every subscribed instance.
func (b *RoomBus) Publish(ctx context.Context, evt models.RoomEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode room event: %w", err)
	}
	if err := b.Redis.Publish(ctx, roomChannel(evt.ComplaintID), payload).Err(); err != nil {
		return fmt.Errorf("publish room event: %w", err)
	}
	return nil
}

// Subscribe listens on all room channels. The subscription is confirmed before
// returning, so events published afterwards are not missed. The returned
// channel closes after the close func is called or ctx ends.
func (b *RoomBus) Subscribe(ctx context.Context) (<-chan models.RoomEvent, func() error, error) {
	pubsub := b.Redis.PSubscribe(ctx, config.RoomChannelPrefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe room events: %w", err)
	}

	out := make(chan models.RoomEvent, config.ClientSendBuffer)
	go func() {
		defer close(out)
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var evt models.RoomEvent
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					b.log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping undecodable room event")
					continue
				}
				if evt.ComplaintID == "" {
					evt.ComplaintID = strings.TrimPrefix(msg.Channel, config.RoomChannelPrefix)
				}
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, pubsub.Close, nil
}
