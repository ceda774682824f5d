// Package config handles YAML configuration parsing, defaults and validation.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"trafficgen/internal/state"
	"trafficgen/internal/template"
	"trafficgen/internal/transition"
)

// Config is the root configuration structure.
type Config struct {
	Target      TargetConfig      `yaml:"target"`
	Bus         BusConfig         `yaml:"bus"`
	Simulation  SimulationConfig  `yaml:"simulation"`
	Profile     ProfileConfig     `yaml:"profile"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Transitions TransitionsConfig `yaml:"transitions"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// TargetConfig describes the shop API under test.
type TargetConfig struct {
	BaseURL   string            `yaml:"base_url"`
	Timeout   time.Duration     `yaml:"timeout"`
	MaxRPS    int               `yaml:"max_rps"`   // 0 = uncapped
	Endpoints map[string]string `yaml:"endpoints"` // overrides of default paths by endpoint name
}

// BusConfig selects and configures the event transport.
type BusConfig struct {
	Driver           string `yaml:"driver"` // rest, kafka, log, none
	Endpoint         string `yaml:"endpoint"`
	DomainID         string `yaml:"domain_id"`
	ProjectID        string `yaml:"project_id"`
	Topic            string `yaml:"topic"`
	CredentialID     string `yaml:"credential_id"`
	CredentialSecret string `yaml:"credential_secret"`

	Kafka KafkaConfig `yaml:"kafka"`

	BufferSize     int           `yaml:"buffer_size"`
	BatchSize      int           `yaml:"batch_size"`
	FlushInterval  time.Duration `yaml:"flush_interval"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
	MaxAttempts    int           `yaml:"max_attempts"`

	TopicSettings TopicSettings        `yaml:"topic_settings"`
	Subscription  SubscriptionSettings `yaml:"subscription"`
}

// KafkaConfig is used when Driver is "kafka".
type KafkaConfig struct {
	Brokers  []string `yaml:"brokers"`
	Topic    string   `yaml:"topic"`
	ClientID string   `yaml:"client_id"`
}

// TopicSettings are applied by pubsubadmin create-topic.
type TopicSettings struct {
	Description string        `yaml:"description"`
	Retention   time.Duration `yaml:"retention"`
}

// SubscriptionSettings are applied by pubsubadmin create-subscription.
type SubscriptionSettings struct {
	Name               string        `yaml:"name"`
	AckDeadline        time.Duration `yaml:"ack_deadline"`
	Retention          time.Duration `yaml:"retention"`
	MaxDeliveryAttempt int           `yaml:"max_delivery_attempt"`
}

// SimulationConfig sizes the run.
type SimulationConfig struct {
	Users         int           `yaml:"users"`
	MaxConcurrent int           `yaml:"max_concurrent"`
	MaxTicks      *int          `yaml:"max_ticks"` // nil = default, 0 = sessions start and stop immediately
	Pause         PauseRange    `yaml:"pause"`
	Stagger       time.Duration `yaml:"stagger"`
	Seed          int64         `yaml:"seed"` // 0 = time-based
}

// PauseRange is the uniform think-time window between steps.
type PauseRange struct {
	Min time.Duration `yaml:"min"`
	Max time.Duration `yaml:"max"`
}

// ProfileConfig shapes the synthetic population.
type ProfileConfig struct {
	Genders          []string                       `yaml:"genders"`
	Age              AgeRange                       `yaml:"age"`
	Segments         SegmentThresholds              `yaml:"segments"`
	NameTemplate     string                         `yaml:"name_template"`
	EmailTemplate    string                         `yaml:"email_template"`
	RegisterFields   map[string]string              `yaml:"register_fields"`
	Preferences      map[string]map[string][]string `yaml:"preferences"` // gender -> segment -> categories
	SearchKeywords   []string                       `yaml:"search_keywords"`
	DefaultProductID string                         `yaml:"default_product_id"`
	MaxAddQuantity   int                            `yaml:"max_add_quantity"`
	MaxRating        int                            `yaml:"max_rating"`
}

type AgeRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// SegmentThresholds split ages into young (< YoungBelow), middle (< MiddleBelow) and old.
type SegmentThresholds struct {
	YoungBelow  int `yaml:"young_below"`
	MiddleBelow int `yaml:"middle_below"`
}

// CatalogConfig controls how the product catalog is obtained.
type CatalogConfig struct {
	SeedFile string `yaml:"seed_file"` // CSV or JSON fallback when the API cannot be read
	Required bool   `yaml:"required"`  // refuse to start with an empty catalog
}

// TransitionsConfig holds the three probability tables.
type TransitionsConfig struct {
	Top           transition.Table[state.Top]     `yaml:"top"`
	Anonymous     transition.Table[state.AnonSub] `yaml:"anonymous"`
	Authenticated transition.Table[state.AuthSub] `yaml:"authenticated"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
	Ship   bool   `yaml:"ship"`   // also publish log records to the bus
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the metrics server
}

// LoadConfig reads a YAML file, expands ${env:VAR} references, applies
// defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse is LoadConfig without the file read.
func Parse(data []byte) (*Config, error) {
	expanded, err := template.ExpandEnv(string(data))
	if err != nil {
		return nil, fmt.Errorf("expanding config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Ticks returns the per-session tick budget.
func (s SimulationConfig) Ticks() int {
	if s.MaxTicks == nil {
		return DefaultMaxTicks
	}
	return *s.MaxTicks
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Target.BaseURL == "" {
		add("target.base_url is required")
	} else if u, err := url.Parse(c.Target.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		add("target.base_url %q is not an absolute URL", c.Target.BaseURL)
	}
	if c.Target.Timeout <= 0 {
		add("target.timeout must be positive")
	}
	if c.Target.MaxRPS < 0 {
		add("target.max_rps must be >= 0")
	}

	switch c.Bus.Driver {
	case DriverREST:
		if c.Bus.Endpoint == "" || c.Bus.DomainID == "" || c.Bus.ProjectID == "" || c.Bus.Topic == "" {
			add("bus: rest driver needs endpoint, domain_id, project_id and topic")
		}
	case DriverKafka:
		if len(c.Bus.Kafka.Brokers) == 0 || c.Bus.Kafka.Topic == "" {
			add("bus: kafka driver needs kafka.brokers and kafka.topic")
		}
	case DriverLog, DriverNone:
	default:
		add("bus.driver %q is not one of rest, kafka, log, none", c.Bus.Driver)
	}
	if c.Bus.BufferSize < 1 || c.Bus.BatchSize < 1 {
		add("bus.buffer_size and bus.batch_size must be >= 1")
	}
	if c.Bus.MaxAttempts < 1 {
		add("bus.max_attempts must be >= 1")
	}

	s := c.Simulation
	if s.Users < 0 {
		add("simulation.users must be >= 0")
	}
	if s.MaxConcurrent < 1 {
		add("simulation.max_concurrent must be >= 1")
	}
	if s.Ticks() < 0 {
		add("simulation.max_ticks must be >= 0")
	}
	if s.Pause.Min < 0 || s.Pause.Max < s.Pause.Min {
		add("simulation.pause must satisfy 0 <= min <= max")
	}
	if s.Stagger < 0 {
		add("simulation.stagger must be >= 0")
	}

	p := c.Profile
	if len(p.Genders) == 0 {
		add("profile.genders must not be empty")
	}
	if p.Age.Min < 0 || p.Age.Max < p.Age.Min {
		add("profile.age must satisfy 0 <= min <= max")
	}
	if p.Segments.YoungBelow > p.Segments.MiddleBelow {
		add("profile.segments.young_below must be <= middle_below")
	}
	if p.MaxAddQuantity < 1 || p.MaxRating < 1 {
		add("profile.max_add_quantity and profile.max_rating must be >= 1")
	}

	if err := c.Transitions.Top.Validate(state.Top.Valid); err != nil {
		errs = append(errs, fmt.Errorf("transitions.top: %w", err))
	}
	if err := c.Transitions.Anonymous.Validate(state.AnonSub.Valid); err != nil {
		errs = append(errs, fmt.Errorf("transitions.anonymous: %w", err))
	}
	if err := c.Transitions.Authenticated.Validate(state.AuthSub.Valid); err != nil {
		errs = append(errs, fmt.Errorf("transitions.authenticated: %w", err))
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		add("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		add("logging.format %q is not one of console, json", c.Logging.Format)
	}
	if c.Logging.Ship && c.Bus.Driver != DriverREST {
		add("logging.ship needs the rest bus driver")
	}

	return errors.Join(errs...)
}
