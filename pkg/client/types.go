package client

import "time"

// ClassifyRequest represents a request to the sentiment service
type ClassifyRequest struct {
	ReqID   string `json:"req_id"`
	Text    string `json:"text"`
	ReplyTo string `json:"reply_to,omitempty"`
}

// SentimentResult is the probability distribution returned by the classifier
type SentimentResult struct {
	Negative float64 `json:"negative"`
	Positive float64 `json:"positive"`
}

// Positive reports whether the overall verdict is positive.
func (r SentimentResult) IsPositive() bool {
	return r.Positive > r.Negative
}

// ClassifyResponse represents a response from the sentiment service
type ClassifyResponse struct {
	ReqID      string           `json:"req_id"`
	Result     *SentimentResult `json:"result,omitempty"`
	DurationMs int64            `json:"duration_ms"`
	Error      string           `json:"error,omitempty"`
}

// HealthStatus represents model health information
type HealthStatus struct {
	ModelName    string    `json:"model_name"`
	Status       string    `json:"status"`
	ModelState   string    `json:"model_state"`
	LastActivity time.Time `json:"last_activity"`
	Capabilities []string  `json:"capabilities"`
	Endpoint     string    `json:"endpoint"`
	NATSTopic    string    `json:"nats_topic"`
	Version      string    `json:"version"`
}
