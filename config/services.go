package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeTrialSweeper runs the periodic trial expiry sweep.
	ServiceModeTrialSweeper ServiceMode = "trial-sweeper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeHTTP, ServiceModeTrialSweeper}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for part := range strings.SplitSeq(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeTrialSweeper:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: http, trial-sweeper)", serviceName)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// TrialSweeperConfig contains trial sweeper service configuration.
type TrialSweeperConfig struct {
	// Schedule is a five-field cron spec or a descriptor such as @hourly.
	Schedule string `env:"SUBSCRIPTION_SWEEP_SCHEDULE" envDefault:"@hourly"`

	// BatchSize is the maximum number of tenants expired per query.
	BatchSize int `env:"SUBSCRIPTION_SWEEP_BATCH" envDefault:"100"`
}

// Sanitize applies guardrails to trial sweeper configuration values.
func (s *TrialSweeperConfig) Sanitize() {
	s.Schedule = strings.TrimSpace(s.Schedule)
	if s.Schedule == "" {
		s.Schedule = "@hourly"
	}
	if s.BatchSize < 1 {
		s.BatchSize = 1
	}
	if s.BatchSize > 1000 {
		s.BatchSize = 1000
	}
}

// Validate parses the schedule.
func (s *TrialSweeperConfig) Validate() error {
	if _, err := cron.ParseStandard(s.Schedule); err != nil {
		return fmt.Errorf("invalid SUBSCRIPTION_SWEEP_SCHEDULE %q: %w", s.Schedule, err)
	}
	return nil
}
