package bootstrap

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/tallerhub/tallerhub/config"
	"github.com/tallerhub/tallerhub/internal/adapters/changefeed"
	redisadapter "github.com/tallerhub/tallerhub/internal/adapters/redis"
	"github.com/tallerhub/tallerhub/internal/domain/change"
	"github.com/tallerhub/tallerhub/internal/ports"
)

// ChangeFeed pairs the source the pump listens on with the publisher services
// announce writes through.
type ChangeFeed struct {
	Source    change.Source
	Publisher ports.ChangePublisher
}

// ChangeFeedDeps groups dependencies for BuildChangeFeed.
type ChangeFeedDeps struct {
	Config      config.ChangeFeedConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// BuildChangeFeed selects the configured backend. With postgres, table
// triggers NOTIFY on every write and the publisher is a no-op; with redis the
// application publishes and every replica subscribes.
func BuildChangeFeed(deps ChangeFeedDeps) (ChangeFeed, error) {
	dec, err := changefeed.NewDecoder(deps.Config.TenantExpr, deps.Config.TableExpr)
	if err != nil {
		return ChangeFeed{}, fmt.Errorf("build change decoder: %w", err)
	}

	switch deps.Config.Backend {
	case config.ChangeFeedRedis:
		if deps.RedisClient == nil {
			return ChangeFeed{}, errors.New("redis change feed requires a redis client")
		}
		feed, err := redisadapter.NewChangeFeed(redisadapter.ChangeFeedOptions{
			Client:  deps.RedisClient,
			Channel: deps.Config.Channel,
			Decoder: dec,
			Logger:  deps.Logger,
		})
		if err != nil {
			return ChangeFeed{}, err
		}
		return ChangeFeed{Source: feed, Publisher: feed}, nil

	case config.ChangeFeedPostgres, "":
		src, err := changefeed.NewPostgresSource(changefeed.PostgresSourceOptions{
			DB:      deps.DB,
			Channel: deps.Config.Channel,
			Decoder: dec,
			Logger:  deps.Logger,
		})
		if err != nil {
			return ChangeFeed{}, err
		}
		return ChangeFeed{Source: src, Publisher: changefeed.NopPublisher{}}, nil

	default:
		return ChangeFeed{}, fmt.Errorf("unsupported change feed backend %q", deps.Config.Backend)
	}
}
