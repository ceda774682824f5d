// Package pubsub is a client for the REST pub/sub service events are
// published to. It covers publishing and the topic/subscription admin calls.
package pubsub

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ErrNoMessages is returned when Publish is called with an empty batch.
var ErrNoMessages = errors.New("no messages to publish")

// APIError is a non-success response from the service.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pubsub %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Message is one published record. Data is sent base64-encoded.
type Message struct {
	Data       []byte
	Attributes map[string]string
}

type Options struct {
	Endpoint         string
	DomainID         string
	ProjectID        string
	CredentialID     string
	CredentialSecret string
	Timeout          time.Duration // per call, 0 = none
	HTTPClient       *http.Client  // nil = a fresh client
}

type Client struct {
	base    string
	id      string
	secret  string
	http    *http.Client
	timeout time.Duration
}

func NewClient(opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(opts.Endpoint, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid pubsub endpoint %q", opts.Endpoint)
	}
	if opts.DomainID == "" || opts.ProjectID == "" {
		return nil, errors.New("pubsub domain and project are required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		base:    fmt.Sprintf("%s/v1/domains/%s/projects/%s", u.String(), url.PathEscape(opts.DomainID), url.PathEscape(opts.ProjectID)),
		id:      opts.CredentialID,
		secret:  opts.CredentialSecret,
		http:    hc,
		timeout: opts.Timeout,
	}, nil
}

type wireMessage struct {
	Data       string            `json:"data"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type publishRequest struct {
	Messages []wireMessage `json:"messages"`
}

type publishResponse struct {
	MessageIDs []string `json:"messageIds"`
	Legacy     []string `json:"message_ids"`
}

// Publish sends msgs to topic in one request and returns the ids the
// service assigned.
func (c *Client) Publish(ctx context.Context, topic string, msgs []Message) ([]string, error) {
	if len(msgs) == 0 {
		return nil, ErrNoMessages
	}
	req := publishRequest{Messages: make([]wireMessage, len(msgs))}
	for i, m := range msgs {
		req.Messages[i] = wireMessage{
			Data:       base64.StdEncoding.EncodeToString(m.Data),
			Attributes: m.Attributes,
		}
	}

	body, err := c.do(ctx, "publish", http.MethodPost, "/topics/"+url.PathEscape(topic)+"/publish", req)
	if err != nil {
		return nil, err
	}
	var resp publishResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decoding publish response: %w", err)
		}
	}
	if len(resp.MessageIDs) == 0 {
		return resp.Legacy, nil
	}
	return resp.MessageIDs, nil
}

// TopicSpec describes a topic to create.
type TopicSpec struct {
	Description string
	Retention   time.Duration
}

// CreateTopic creates (or replaces) a topic.
func (c *Client) CreateTopic(ctx context.Context, name string, spec TopicSpec) error {
	payload := map[string]any{
		"topic": map[string]any{
			"description":              spec.Description,
			"messageRetentionDuration": seconds(spec.Retention),
		},
	}
	_, err := c.do(ctx, "create topic", http.MethodPut, "/topics/"+url.PathEscape(name), payload)
	return err
}

// SubscriptionSpec describes a pull subscription to create.
type SubscriptionSpec struct {
	Topic              string
	AckDeadline        time.Duration
	Retention          time.Duration
	MaxDeliveryAttempt int
}

// CreateSubscription creates (or replaces) a subscription on spec.Topic.
func (c *Client) CreateSubscription(ctx context.Context, name string, spec SubscriptionSpec) error {
	payload := map[string]any{
		"subscription": map[string]any{
			"topic":                    spec.Topic,
			"ackDeadlineSeconds":       int(spec.AckDeadline / time.Second),
			"messageRetentionDuration": seconds(spec.Retention),
			"maxDeliveryAttempt":       spec.MaxDeliveryAttempt,
		},
	}
	_, err := c.do(ctx, "create subscription", http.MethodPut, "/subscriptions/"+url.PathEscape(name), payload)
	return err
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%ds", int64(d/time.Second))
}

func (c *Client) do(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", op, err)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Credential-ID", c.id)
	req.Header.Set("Credential-Secret", c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pubsub %s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
