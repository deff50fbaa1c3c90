package queue

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client republishes configadmin ConfigurationEvents onto Redis pub/sub
// channels, standing in for the optional "eventadmin bridge" spec §4.F
// says configadmin talks to when one is running. It is entirely optional:
// a configadmin.Admin built without a Client never touches Redis.
type Client interface {
	// Publish sends evt to its Topic() channel.
	Publish(ctx context.Context, evt ConfigurationEvent) error

	// Subscribe opens a subscription to topic, returning a channel that
	// receives events until ctx is done or the subscription is closed.
	Subscribe(ctx context.Context, topic string) (<-chan ConfigurationEvent, error)

	// Close releases the underlying connection.
	Close() error
}

// RedisOptions configures the Redis connection backing a RedisClient.
type RedisOptions struct {
	// URL is the Redis connection string (e.g. "redis://localhost:6379").
	URL string

	// TLS configures a secure connection. Nil disables TLS.
	TLS *tls.Config

	// ConnectTimeout bounds connection establishment.
	ConnectTimeout time.Duration

	// ReadTimeout bounds read operations.
	ReadTimeout time.Duration

	// WriteTimeout bounds write operations.
	WriteTimeout time.Duration
}

// RedisClient implements Client using go-redis/v9 pub/sub.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient dials Redis per opts and verifies the connection with a
// Ping before returning.
func NewRedisClient(opts RedisOptions) (*RedisClient, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpts.TLSConfig = opts.TLS
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

// Publish marshals evt as JSON and publishes it to evt.Topic().
func (c *RedisClient) Publish(ctx context.Context, evt ConfigurationEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration event: %w", err)
	}
	if err := c.client.Publish(ctx, evt.Topic(), data).Err(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", evt.Topic(), err)
	}
	return nil
}

// Subscribe opens a pub/sub subscription to topic and decodes each
// message as a ConfigurationEvent. Malformed payloads are dropped rather
// than closing the subscription, matching the isolation discipline the
// rest of the framework applies to any single bad event.
func (c *RedisClient) Subscribe(ctx context.Context, topic string) (<-chan ConfigurationEvent, error) {
	pubsub := c.client.Subscribe(ctx, topic)
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}

	out := make(chan ConfigurationEvent)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var evt ConfigurationEvent
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					continue
				}
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close closes the underlying Redis connection.
func (c *RedisClient) Close() error {
	return c.client.Close()
}
