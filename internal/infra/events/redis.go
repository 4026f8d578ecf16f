package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher публикует события в Redis pub/sub канал
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher создает publisher с проверкой соединения
func NewRedisPublisher(addr, channel string) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("events: failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisPublisher{client: client, channel: channel}, nil
}

// AppointmentCompleted публикует событие завершения записи
func (p *RedisPublisher) AppointmentCompleted(ctx context.Context, event AppointmentCompletedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: failed to marshal event: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("events: failed to publish to %s: %w", p.channel, err)
	}

	return nil
}

// Close закрывает соединение с Redis
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
