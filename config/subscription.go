package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmespath-community/go-jmespath"
)

// SubscriptionConfig tunes trial gating.
type SubscriptionConfig struct {
	// ModalThresholdDays is the remaining trial days at or below which the
	// expiry modal is shown.
	ModalThresholdDays int           `env:"MODAL_THRESHOLD_DAYS" envDefault:"3"`
	FetchTimeout       time.Duration `env:"FETCH_TIMEOUT"        envDefault:"5s"`
	WriteTimeout       time.Duration `env:"WRITE_TIMEOUT"        envDefault:"10s"`
}

// Sanitize applies guardrails to subscription configuration values.
func (s *SubscriptionConfig) Sanitize() {
	if s.ModalThresholdDays < 0 {
		s.ModalThresholdDays = 0
	}
	if s.FetchTimeout <= 0 {
		s.FetchTimeout = 5 * time.Second
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = 10 * time.Second
	}
}

// ChangeFeedBackend selects where change notifications come from.
type ChangeFeedBackend string

const (
	// ChangeFeedPostgres listens on a PostgreSQL NOTIFY channel fed by table triggers.
	ChangeFeedPostgres ChangeFeedBackend = "postgres"
	// ChangeFeedRedis subscribes to a Redis channel the application publishes to.
	ChangeFeedRedis ChangeFeedBackend = "redis"
)

// ChangeFeedConfig configures the change notification source.
type ChangeFeedConfig struct {
	Backend ChangeFeedBackend `env:"BACKEND" envDefault:"postgres"`
	Channel string            `env:"CHANNEL" envDefault:"tallerhub_changes"`
	// TenantExpr and TableExpr are JMESPath expressions over the JSON payload.
	TenantExpr string        `env:"TENANT_EXPR" envDefault:"tenant_id"`
	TableExpr  string        `env:"TABLE_EXPR"  envDefault:"table"`
	Backoff    time.Duration `env:"BACKOFF"     envDefault:"2s"`
}

// Sanitize applies guardrails to change feed configuration values.
func (c *ChangeFeedConfig) Sanitize() {
	c.Backend = ChangeFeedBackend(strings.ToLower(strings.TrimSpace(string(c.Backend))))
	c.Channel = strings.TrimSpace(c.Channel)
	if c.Backoff < 100*time.Millisecond {
		c.Backoff = 100 * time.Millisecond
	}
}

// Validate checks the backend and compiles the payload expressions.
func (c *ChangeFeedConfig) Validate() error {
	switch c.Backend {
	case ChangeFeedPostgres, ChangeFeedRedis:
	default:
		return fmt.Errorf("invalid CHANGEFEED_BACKEND %q (valid options: postgres, redis)", c.Backend)
	}
	if c.Channel == "" {
		return fmt.Errorf("CHANGEFEED_CHANNEL is required")
	}
	for name, expr := range map[string]string{"CHANGEFEED_TENANT_EXPR": c.TenantExpr, "CHANGEFEED_TABLE_EXPR": c.TableExpr} {
		if _, err := jmespath.Compile(expr); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, expr, err)
		}
	}
	return nil
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	Path    string `env:"METRICS_PATH"    envDefault:"/metrics"`
}

// Sanitize normalises the endpoint path.
func (m *MetricsConfig) Sanitize() {
	m.Path = strings.TrimSpace(m.Path)
	if m.Path == "" {
		m.Path = "/metrics"
	}
	if !strings.HasPrefix(m.Path, "/") {
		m.Path = "/" + m.Path
	}
}
