package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/tallerhub/tallerhub/internal/adapters/changefeed"
	"github.com/tallerhub/tallerhub/internal/domain/change"
)

// ChangeFeed publishes and receives change events over a Redis pub/sub channel.
// It serves deployments where the database cannot NOTIFY (managed replicas, poolers).
type ChangeFeed struct {
	client  redis.UniversalClient
	channel string
	decoder *changefeed.Decoder
	logger  *slog.Logger
}

// ChangeFeedOptions configure NewChangeFeed.
type ChangeFeedOptions struct {
	Client  redis.UniversalClient
	Channel string
	Decoder *changefeed.Decoder
	Logger  *slog.Logger
}

// NewChangeFeed constructs a Redis-backed change source and publisher.
func NewChangeFeed(opts ChangeFeedOptions) (*ChangeFeed, error) {
	if opts.Client == nil {
		return nil, errors.New("redis changefeed: client is required")
	}
	dec := opts.Decoder
	if dec == nil {
		var err error
		if dec, err = changefeed.NewDecoder("", ""); err != nil {
			return nil, err
		}
	}
	channel := opts.Channel
	if channel == "" {
		channel = changefeed.DefaultChannel
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeFeed{
		client:  opts.Client,
		channel: channel,
		decoder: dec,
		logger:  logger.With("component", "changefeed", "backend", "redis"),
	}, nil
}

// Publish sends ev in the same JSON shape the database trigger emits.
func (f *ChangeFeed) Publish(ctx context.Context, ev change.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if err := f.client.Publish(ctx, f.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Listen subscribes to the channel and delivers decoded events until ctx is done
// or the subscription breaks.
func (f *ChangeFeed) Listen(ctx context.Context, deliver func(change.Event)) error {
	sub := f.client.Subscribe(ctx, f.channel)
	defer func() {
		if err := sub.Close(); err != nil {
			f.logger.Warn("close subscription failed", "error", err)
		}
	}()

	// Receive blocks until the subscription is confirmed so no publish is missed
	// between the call returning and the first read.
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("redis subscribe %s: %w", f.channel, err)
	}

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("redis subscription closed")
			}
			ev, err := f.decoder.Decode([]byte(msg.Payload))
			if err != nil {
				f.logger.WarnContext(ctx, "dropping change notification", "payload", msg.Payload, "error", err)
				continue
			}
			deliver(ev)
		}
	}
}
