// Command pubsubadmin prepares the message bus for trafficgen.
//
// Usage:
//
//	pubsubadmin -config configs/trafficgen.yaml create-topic
//	pubsubadmin -config configs/trafficgen.yaml create-subscription [-name sub]
//	pubsubadmin -config configs/trafficgen.yaml publish-test [-count 3]
//
// Topic and subscription settings come from bus.topic_settings and
// bus.subscription in the config file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"trafficgen/internal/config"
	"trafficgen/internal/core"
	"trafficgen/internal/logging"
	"trafficgen/internal/persona"
	"trafficgen/internal/pubsub"
	"trafficgen/internal/sink"
)

const (
	ExitSuccess = 0
	ExitFailed  = 1
	ExitError   = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: pubsubadmin -config FILE <create-topic|create-subscription|publish-test> [flags]")
	flag.PrintDefaults()
}

func run(args []string) int {
	fs := flag.NewFlagSet("pubsubadmin", flag.ContinueOnError)
	fs.Usage = usage
	configPath := fs.String("config", "", "path to YAML config file (required)")
	timeout := fs.Duration("timeout", 30*time.Second, "overall request timeout")
	if err := fs.Parse(args); err != nil {
		return ExitError
	}
	if *configPath == "" || fs.NArg() == 0 {
		usage()
		return ExitError
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return ExitError
	}
	log := logging.New(cfg.Logging, os.Stderr)
	defer log.Sync()

	client, err := pubsub.NewClient(pubsub.Options{
		Endpoint:         cfg.Bus.Endpoint,
		DomainID:         cfg.Bus.DomainID,
		ProjectID:        cfg.Bus.ProjectID,
		CredentialID:     cfg.Bus.CredentialID,
		CredentialSecret: cfg.Bus.CredentialSecret,
	})
	if err != nil {
		log.Error("creating pubsub client", zap.Error(err))
		return ExitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "create-topic":
		err = createTopic(ctx, client, cfg.Bus, log)
	case "create-subscription":
		err = createSubscription(ctx, client, cfg.Bus, rest, log)
	case "publish-test":
		err = publishTest(ctx, client, cfg.Bus.Topic, rest, log)
	default:
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", cmd)
		usage()
		return ExitError
	}
	if err != nil {
		log.Error(cmd+" failed", zap.Error(err))
		return ExitFailed
	}
	return ExitSuccess
}

func createTopic(ctx context.Context, c *pubsub.Client, bus config.BusConfig, log *zap.Logger) error {
	spec := pubsub.TopicSpec{
		Description: bus.TopicSettings.Description,
		Retention:   bus.TopicSettings.Retention,
	}
	if err := c.CreateTopic(ctx, bus.Topic, spec); err != nil {
		return err
	}
	log.Info("topic created", zap.String("topic", bus.Topic), zap.Duration("retention", spec.Retention))
	return nil
}

func createSubscription(ctx context.Context, c *pubsub.Client, bus config.BusConfig, args []string, log *zap.Logger) error {
	fs := flag.NewFlagSet("create-subscription", flag.ContinueOnError)
	name := fs.String("name", bus.Subscription.Name, "subscription name (default bus.subscription.name)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		*name = bus.Topic + "-sub"
	}

	spec := pubsub.SubscriptionSpec{
		Topic:              bus.Topic,
		AckDeadline:        bus.Subscription.AckDeadline,
		Retention:          bus.Subscription.Retention,
		MaxDeliveryAttempt: bus.Subscription.MaxDeliveryAttempt,
	}
	if err := c.CreateSubscription(ctx, *name, spec); err != nil {
		return err
	}
	log.Info("subscription created",
		zap.String("subscription", *name),
		zap.String("topic", bus.Topic),
		zap.Duration("ack_deadline", spec.AckDeadline))
	return nil
}

// publishTest sends a few events encoded exactly like simulation events.
func publishTest(ctx context.Context, c *pubsub.Client, topic string, args []string, log *zap.Logger) error {
	fs := flag.NewFlagSet("publish-test", flag.ContinueOnError)
	count := fs.Int("count", 3, "number of test messages")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *count < 1 {
		return fmt.Errorf("count must be >= 1, got %d", *count)
	}

	msgs := make([]pubsub.Message, 0, *count)
	for i := 0; i < *count; i++ {
		m, err := sink.Encode(core.Event{
			ActorID:   persona.NewID(),
			Kind:      "test_event",
			Details:   map[string]any{"sequence": i + 1, "message": "pubsubadmin test message"},
			Timestamp: time.Now(),
		})
		if err != nil {
			return err
		}
		msgs = append(msgs, m)
	}

	ids, err := c.Publish(ctx, topic, msgs)
	if err != nil {
		return err
	}
	log.Info("test messages published", zap.String("topic", topic), zap.Strings("message_ids", ids))
	return nil
}
