package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"
)

// SentimentClient provides a client interface for the sentiment service
type SentimentClient interface {
	Classify(ctx context.Context, text string) (*ClassifyResponse, error)
	Close() error
}

// HTTPSentimentClient calls a deployed endpoint over its public HTTP contract:
// POST /invocations with {"text": ...}, envelope {"result": ...} or {"error": ...}.
type HTTPSentimentClient struct {
	endpoint string
	client   *http.Client
}

// NewHTTPClient creates a client for a deployed inference endpoint.
// endpoint is the base URL, e.g. http://localhost:8080.
func NewHTTPClient(endpoint string, timeout time.Duration) *HTTPSentimentClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSentimentClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *HTTPSentimentClient) Classify(ctx context.Context, text string) (*ClassifyResponse, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/invocations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var envelope struct {
		Result *SentimentResult `json:"result"`
		Error  string           `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoint returned %d: %s", resp.StatusCode, envelope.Error)
	}

	return &ClassifyResponse{Result: envelope.Result}, nil
}

// Ping checks the liveness probe of a deployed endpoint.
func (c *HTTPSentimentClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/ping", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping returned %d", resp.StatusCode)
	}
	return nil
}

func (c *HTTPSentimentClient) Close() error { return nil }

// NATSSentimentClient implements SentimentClient over the NATS transport
type NATSSentimentClient struct {
	conn     *nats.Conn
	model    string
	clientID string
	timeout  time.Duration
}

// NewNATSClient creates a new NATS-based sentiment client
func NewNATSClient(natsURL, model, clientID string) (*NATSSentimentClient, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	if clientID == "" {
		clientID = "sentiment-client"
	}

	return &NATSSentimentClient{
		conn:     conn,
		model:    model,
		clientID: clientID,
		timeout:  30 * time.Second,
	}, nil
}

func (c *NATSSentimentClient) Classify(ctx context.Context, text string) (*ClassifyResponse, error) {
	topic := fmt.Sprintf("sentiment.request.%s", c.model)

	reqID := ulid.Make().String()
	replySubject := fmt.Sprintf("sentiment.reply.%s.%s", c.clientID, reqID)

	request := ClassifyRequest{
		ReqID:   reqID,
		Text:    text,
		ReplyTo: replySubject,
	}

	slog.Debug("Sending classify request",
		"topic", topic,
		"req_id", request.ReqID,
		"reply_subject", replySubject)

	requestBytes, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Subscribe to the reply subject before publishing
	replyChan := make(chan *nats.Msg, 1)
	sub, err := c.conn.Subscribe(replySubject, func(msg *nats.Msg) {
		replyChan <- msg
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to reply: %w", err)
	}
	defer sub.Unsubscribe()

	if err := c.conn.Publish(topic, requestBytes); err != nil {
		return nil, fmt.Errorf("failed to publish request: %w", err)
	}

	select {
	case msg := <-replyChan:
		var response ClassifyResponse
		if err := json.Unmarshal(msg.Data, &response); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		return &response, nil

	case <-time.After(c.timeout):
		return nil, fmt.Errorf("request timeout after %v", c.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CheckHealth queries the model's health subject
func (c *NATSSentimentClient) CheckHealth(ctx context.Context) (*HealthStatus, error) {
	healthTopic := fmt.Sprintf("models.%s.health", c.model)

	msg, err := c.conn.RequestWithContext(ctx, healthTopic, nil)
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}

	var health HealthStatus
	if err := json.Unmarshal(msg.Data, &health); err != nil {
		return nil, fmt.Errorf("failed to parse health response: %w", err)
	}
	return &health, nil
}

func (c *NATSSentimentClient) Close() error {
	if c.conn != nil {
		c.conn.Close()
	}
	return nil
}
