package services

import (
	"context"
	"fmt"
	"time"

	"github.com/polaritylab/sentiment-service/internal/engine"
	"github.com/polaritylab/sentiment-service/internal/lifecycle"
	"github.com/polaritylab/sentiment-service/internal/models"
	"github.com/polaritylab/sentiment-service/internal/repository"
)

type ClassifyRequest struct {
	TraceID string `json:"trace_id,omitempty"`
	ReqID   string `json:"req_id"`
	Text    string `json:"text"`
	ReplyTo string `json:"reply_to,omitempty"`
}

type ClassifyResponse struct {
	ReqID      string         `json:"req_id"`
	Result     *engine.Result `json:"result,omitempty"`
	DurationMs int64          `json:"duration_ms"`
	Error      string         `json:"error,omitempty"`
}

// InferenceService mediates between transports and the classifier. It never
// lets a failure escape: load errors, prediction errors and panics all come
// back as an error response while the process keeps serving.
type InferenceService struct {
	models *lifecycle.Manager
	repo   repository.Repository
}

func NewInferenceService(models *lifecycle.Manager, repo repository.Repository) *InferenceService {
	return &InferenceService{
		models: models,
		repo:   repo,
	}
}

func (s *InferenceService) Classify(ctx context.Context, req ClassifyRequest, source string, workerID string) (response *ClassifyResponse, err error) {
	start := time.Now()

	traceID := req.TraceID
	if traceID == "" {
		traceID = req.ReqID
	}

	// Service-level crash recovery
	defer func() {
		if r := recover(); r != nil {
			duration := time.Since(start)
			errStr := fmt.Sprintf("service panic: %v", r)

			s.logRequest(ctx, start, traceID, req, workerID, source, nil, duration, "panic", errStr)

			response = &ClassifyResponse{
				ReqID:      req.ReqID,
				DurationMs: duration.Milliseconds(),
				Error:      errStr,
			}
			err = fmt.Errorf("service panic: %v", r)
		}
	}()

	predictor, loadErr := s.models.Get()
	if loadErr != nil {
		duration := time.Since(start)
		errStr := fmt.Sprintf("failed to load model: %v", loadErr)
		s.logRequest(ctx, start, traceID, req, workerID, source, nil, duration, "load_failed", errStr)

		return &ClassifyResponse{
			ReqID:      req.ReqID,
			DurationMs: duration.Milliseconds(),
			Error:      errStr,
		}, fmt.Errorf("failed to load model: %w", loadErr)
	}

	result, predErr := predictor.Predict(req.Text)
	duration := time.Since(start)

	if predErr != nil {
		errStr := predErr.Error()
		s.logRequest(ctx, start, traceID, req, workerID, source, nil, duration, "error", errStr)

		return &ClassifyResponse{
			ReqID:      req.ReqID,
			DurationMs: duration.Milliseconds(),
			Error:      errStr,
		}, predErr
	}

	s.logRequest(ctx, start, traceID, req, workerID, source, &result, duration, "ok", "")

	return &ClassifyResponse{
		ReqID:      req.ReqID,
		Result:     &result,
		DurationMs: duration.Milliseconds(),
	}, nil
}

func (s *InferenceService) logRequest(ctx context.Context, start time.Time, traceID string, req ClassifyRequest, workerID, source string, result *engine.Result, duration time.Duration, status, errStr string) {
	entry := &models.RequestLog{
		Timestamp:  start,
		TraceID:    traceID,
		ReqID:      req.ReqID,
		WorkerID:   workerID,
		Source:     source,
		ReplyTo:    req.ReplyTo,
		Text:       req.Text,
		InputLen:   len(req.Text),
		DurationMs: float64(duration.Milliseconds()),
		Status:     status,
		Error:      errStr,
	}
	if result != nil {
		entry.Negative = result.Negative
		entry.Positive = result.Positive
	}
	s.repo.Request().LogRequest(ctx, entry)
}

// GetRequestLogs retrieves request logs through the repository interface
func (s *InferenceService) GetRequestLogs(ctx context.Context, limit int) ([]*models.RequestLog, error) {
	return s.repo.Request().GetRequestLogs(ctx, limit)
}

// GetRepository returns the repository for use by other services
func (s *InferenceService) GetRepository() repository.Repository {
	return s.repo
}

// Models exposes the lifecycle manager so health reporting can read state.
func (s *InferenceService) Models() *lifecycle.Manager {
	return s.models
}
