package models

import "time"

// RequestLog represents a logged classification request
type RequestLog struct {
	Timestamp  time.Time `json:"ts"`
	TraceID    string    `json:"trace_id"`
	ReqID      string    `json:"req_id"`
	WorkerID   string    `json:"worker_id"`
	Source     string    `json:"source"`
	ReplyTo    string    `json:"reply_to"`
	Text       string    `json:"text"`
	InputLen   int       `json:"input_len"`
	Negative   float64   `json:"negative"`
	Positive   float64   `json:"positive"`
	DurationMs float64   `json:"dur_ms"`
	Status     string    `json:"status"`
	Error      string    `json:"error"`
}
