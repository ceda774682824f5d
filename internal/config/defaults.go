package config

import (
	"time"

	"trafficgen/internal/state"
	"trafficgen/internal/transition"
)

// Bus drivers.
const (
	DriverREST  = "rest"
	DriverKafka = "kafka"
	DriverLog   = "log"
	DriverNone  = "none"
)

const (
	DefaultMaxTicks         = 20
	DefaultDefaultProductID = "101"
)

// ApplyDefaults fills every unset field. Tables are replaced only when absent
// so a configured table is never merged with the built-in one.
func (c *Config) ApplyDefaults() {
	if c.Target.Timeout == 0 {
		c.Target.Timeout = 10 * time.Second
	}

	b := &c.Bus
	if b.Driver == "" {
		b.Driver = DriverLog
	}
	if b.BufferSize == 0 {
		b.BufferSize = 1000
	}
	if b.BatchSize == 0 {
		b.BatchSize = 20
	}
	if b.FlushInterval == 0 {
		b.FlushInterval = time.Second
	}
	if b.PublishTimeout == 0 {
		b.PublishTimeout = 5 * time.Second
	}
	if b.MaxAttempts == 0 {
		b.MaxAttempts = 3
	}
	if b.Kafka.ClientID == "" {
		b.Kafka.ClientID = "trafficgen"
	}
	if b.TopicSettings.Retention == 0 {
		b.TopicSettings.Retention = 7 * 24 * time.Hour
	}
	if b.Subscription.AckDeadline == 0 {
		b.Subscription.AckDeadline = 30 * time.Second
	}
	if b.Subscription.Retention == 0 {
		b.Subscription.Retention = 5 * 24 * time.Hour
	}
	if b.Subscription.MaxDeliveryAttempt == 0 {
		b.Subscription.MaxDeliveryAttempt = 5
	}

	s := &c.Simulation
	if s.Users == 0 {
		s.Users = 10
	}
	if s.MaxConcurrent == 0 {
		s.MaxConcurrent = 5
	}
	if s.Pause.Min == 0 && s.Pause.Max == 0 {
		s.Pause = PauseRange{Min: 500 * time.Millisecond, Max: 2 * time.Second}
	}
	if s.Stagger == 0 {
		s.Stagger = 50 * time.Millisecond
	}

	p := &c.Profile
	if len(p.Genders) == 0 {
		p.Genders = []string{"F", "M"}
	}
	if p.Age.Min == 0 && p.Age.Max == 0 {
		p.Age = AgeRange{Min: 18, Max: 70}
	}
	if p.Segments.YoungBelow == 0 && p.Segments.MiddleBelow == 0 {
		p.Segments = SegmentThresholds{YoungBelow: 30, MiddleBelow: 50}
	}
	if p.NameTemplate == "" {
		p.NameTemplate = "TestUser_${user_id}"
	}
	if p.EmailTemplate == "" {
		p.EmailTemplate = "${user_id}@example.com"
	}
	if p.Preferences == nil {
		p.Preferences = DefaultPreferences()
	}
	if p.SearchKeywords == nil {
		p.SearchKeywords = []string{"laptop", "shoes", "phone", "book", "coffee", "headphones"}
	}
	if p.DefaultProductID == "" {
		p.DefaultProductID = DefaultDefaultProductID
	}
	if p.MaxAddQuantity == 0 {
		p.MaxAddQuantity = 3
	}
	if p.MaxRating == 0 {
		p.MaxRating = 5
	}

	t := &c.Transitions
	if t.Top == nil {
		t.Top = DefaultTopTable()
	}
	if t.Anonymous == nil {
		t.Anonymous = DefaultAnonymousTable()
	}
	if t.Authenticated == nil {
		t.Authenticated = DefaultAuthenticatedTable()
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

// Default returns a fully defaulted configuration pointing at baseURL.
func Default(baseURL string) *Config {
	cfg := &Config{Target: TargetConfig{BaseURL: baseURL}}
	cfg.ApplyDefaults()
	return cfg
}

func DefaultPreferences() map[string]map[string][]string {
	return map[string]map[string][]string{
		"F": {
			"young":  {"Fashion", "Beauty"},
			"middle": {"Home", "Beauty"},
			"old":    {"Health", "Home"},
		},
		"M": {
			"young":  {"Electronics", "Gaming"},
			"middle": {"Electronics", "Sports"},
			"old":    {"Books", "Health"},
		},
	}
}

func DefaultTopTable() transition.Table[state.Top] {
	return transition.Table[state.Top]{
		state.AnonNotRegistered: {state.AnonNotRegistered: 0.3, state.AnonRegistered: 0.7},
		state.AnonRegistered:    {state.AnonRegistered: 0.2, state.LoggedIn: 0.8},
		state.LoggedIn:          {state.LoggedIn: 0.6, state.LoggedOut: 0.3, state.Unregistered: 0.1},
		state.LoggedOut:         {state.AnonRegistered: 0.5, state.Unregistered: 0.1, state.Done: 0.4},
		state.Unregistered:      {state.Done: 1},
	}
}

func DefaultAnonymousTable() transition.Table[state.AnonSub] {
	return transition.Table[state.AnonSub]{
		state.AnonInitial:      {state.AnonMain: 0.6, state.AnonProducts: 0.2, state.AnonCategories: 0.1, state.AnonSearch: 0.1},
		state.AnonMain:         {state.AnonProducts: 0.4, state.AnonCategories: 0.3, state.AnonSearch: 0.2, state.AnonDone: 0.1},
		state.AnonProducts:     {state.AnonViewProduct: 0.6, state.AnonCategories: 0.1, state.AnonSearch: 0.1, state.AnonDone: 0.2},
		state.AnonViewProduct:  {state.AnonProducts: 0.3, state.AnonViewProduct: 0.2, state.AnonSearch: 0.1, state.AnonError: 0.05, state.AnonDone: 0.35},
		state.AnonCategories:   {state.AnonCategoryList: 0.7, state.AnonMain: 0.1, state.AnonDone: 0.2},
		state.AnonCategoryList: {state.AnonViewProduct: 0.5, state.AnonCategories: 0.2, state.AnonDone: 0.3},
		state.AnonSearch:       {state.AnonViewProduct: 0.5, state.AnonSearch: 0.2, state.AnonDone: 0.3},
		state.AnonError:        {state.AnonMain: 0.5, state.AnonDone: 0.5},
	}
}

func DefaultAuthenticatedTable() transition.Table[state.AuthSub] {
	return transition.Table[state.AuthSub]{
		state.AuthInitial:         {state.AuthViewCart: 0.3, state.AuthCartAdd: 0.4, state.AuthCheckoutHistory: 0.1, state.AuthAddReview: 0.1, state.AuthError: 0.05, state.AuthDone: 0.05},
		state.AuthViewCart:        {state.AuthCartAdd: 0.3, state.AuthCartRemove: 0.2, state.AuthCheckout: 0.3, state.AuthDone: 0.2},
		state.AuthCartAdd:         {state.AuthCartAdd: 0.2, state.AuthViewCart: 0.4, state.AuthCheckout: 0.2, state.AuthDone: 0.2},
		state.AuthCartRemove:      {state.AuthViewCart: 0.5, state.AuthDone: 0.5},
		state.AuthCheckout:        {state.AuthCheckoutHistory: 0.3, state.AuthAddReview: 0.3, state.AuthDone: 0.4},
		state.AuthCheckoutHistory: {state.AuthAddReview: 0.3, state.AuthDone: 0.7},
		state.AuthAddReview:       {state.AuthViewCart: 0.2, state.AuthDone: 0.8},
		state.AuthError:           {state.AuthDone: 1},
	}
}
