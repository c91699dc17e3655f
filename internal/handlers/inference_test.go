package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/polaritylab/sentiment-service/internal/engine"
	"github.com/polaritylab/sentiment-service/internal/lifecycle"
	"github.com/polaritylab/sentiment-service/internal/models"
	"github.com/polaritylab/sentiment-service/internal/repository"
	"github.com/polaritylab/sentiment-service/internal/services"
)

// keywordPredictor mimics the classifier well enough for façade tests:
// obviously positive text scores positive, obviously negative text negative.
type keywordPredictor struct{}

func (keywordPredictor) Predict(text string) (engine.Result, error) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "great") || strings.Contains(lower, "love"):
		return engine.Result{Negative: 0.02, Positive: 0.98}, nil
	case strings.Contains(lower, "terrible") || strings.Contains(lower, "hate"):
		return engine.Result{Negative: 0.96, Positive: 0.04}, nil
	default:
		return engine.Result{Negative: 0.5, Positive: 0.5}, nil
	}
}

type memRepo struct {
	mu   sync.Mutex
	logs []*models.RequestLog
}

func (m *memRepo) Request() repository.RequestRepositoryInterface { return m }
func (m *memRepo) Event() repository.EventRepositoryInterface     { return m }

func (m *memRepo) LogRequest(ctx context.Context, req *models.RequestLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, req)
	return nil
}

func (m *memRepo) GetRequestLogs(ctx context.Context, limit int) ([]*models.RequestLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.logs) {
		limit = len(m.logs)
	}
	return m.logs[:limit], nil
}

func (m *memRepo) LogEvent(ctx context.Context, level, code, msg string, meta map[string]interface{}) error {
	return nil
}

func newTestMux(load lifecycle.LoadFunc) *http.ServeMux {
	svc := services.NewInferenceService(lifecycle.NewManager(load), &memRepo{})
	mux := http.NewServeMux()
	NewInferenceHandler(svc).RegisterRoutes(mux)
	return mux
}

func readyMux() *http.ServeMux {
	return newTestMux(func() (lifecycle.Predictor, error) {
		return keywordPredictor{}, nil
	})
}

func postInvocations(mux *http.ServeMux, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/invocations", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeResult(t *testing.T, body []byte) engine.Result {
	t.Helper()
	var envelope struct {
		Result engine.Result `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("failed to parse result envelope %s: %v", body, err)
	}
	return envelope.Result
}

func assertErrorEnvelope(t *testing.T, w *httptest.ResponseRecorder, wantStatus int) string {
	t.Helper()
	if w.Code != wantStatus {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, wantStatus, w.Body.String())
	}
	var envelope map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("error body is not JSON: %s", w.Body.String())
	}
	msg, ok := envelope["error"]
	if !ok || msg == "" {
		t.Fatalf("body %s has no \"error\" key", w.Body.String())
	}
	return msg
}

func TestInvocationsPositiveText(t *testing.T) {
	w := postInvocations(readyMux(), "application/json", `{"text": "This is a great product!"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}

	result := decodeResult(t, w.Body.Bytes())
	if result.Positive <= result.Negative {
		t.Errorf("positive = %v, negative = %v; want positive verdict", result.Positive, result.Negative)
	}
	if sum := result.Positive + result.Negative; math.Abs(sum-1.0) > 1e-6 {
		t.Errorf("probabilities sum to %v, want 1.0", sum)
	}
}

func TestInvocationsNegativeText(t *testing.T) {
	w := postInvocations(readyMux(), "application/json", `{"text": "This is terrible and I hate it."}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	result := decodeResult(t, w.Body.Bytes())
	if result.Negative <= result.Positive {
		t.Errorf("negative = %v, positive = %v; want negative verdict", result.Negative, result.Positive)
	}
}

func TestInvocationsRejectsNonJSONContentType(t *testing.T) {
	// JSON-looking body, wrong content type: still a client error.
	w := postInvocations(readyMux(), "text/plain", `{"text": "hello"}`)
	msg := assertErrorEnvelope(t, w, http.StatusBadRequest)
	if !strings.Contains(msg, "JSON") {
		t.Errorf("error = %q, want content-type rejection", msg)
	}
}

func TestInvocationsRejectsMissingContentType(t *testing.T) {
	w := postInvocations(readyMux(), "", `{"text": "hello"}`)
	assertErrorEnvelope(t, w, http.StatusBadRequest)
}

func TestInvocationsAcceptsCharsetSuffix(t *testing.T) {
	w := postInvocations(readyMux(), "application/json; charset=utf-8", `{"text": "great"}`)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for application/json with charset", w.Code)
	}
}

func TestInvocationsRejectsMissingText(t *testing.T) {
	w := postInvocations(readyMux(), "application/json", `{"other": "field"}`)
	msg := assertErrorEnvelope(t, w, http.StatusBadRequest)
	if !strings.Contains(msg, "text") {
		t.Errorf("error = %q, want missing text message", msg)
	}
}

func TestInvocationsRejectsEmptyText(t *testing.T) {
	w := postInvocations(readyMux(), "application/json", `{"text": ""}`)
	assertErrorEnvelope(t, w, http.StatusBadRequest)
}

func TestInvocationsMalformedJSONIsServerError(t *testing.T) {
	w := postInvocations(readyMux(), "application/json", `{"text": `)
	assertErrorEnvelope(t, w, http.StatusInternalServerError)
}

func TestInvocationsMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/invocations", nil)
	w := httptest.NewRecorder()
	readyMux().ServeHTTP(w, req)
	assertErrorEnvelope(t, w, http.StatusMethodNotAllowed)
}

func TestInvocationsLoadFailureIsServerError(t *testing.T) {
	mux := newTestMux(func() (lifecycle.Predictor, error) {
		return nil, errors.New("artifact unreachable")
	})

	w := postInvocations(mux, "application/json", `{"text": "hello"}`)
	msg := assertErrorEnvelope(t, w, http.StatusInternalServerError)
	if !strings.Contains(msg, "artifact unreachable") {
		t.Errorf("error = %q, want load failure detail", msg)
	}
}

func TestInvocationsLoadRetriesAfterFailure(t *testing.T) {
	// First attempt fails, the artifact then "appears" and a later request
	// must succeed without restarting the process.
	calls := 0
	mux := newTestMux(func() (lifecycle.Predictor, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("artifact unreachable")
		}
		return keywordPredictor{}, nil
	})

	w := postInvocations(mux, "application/json", `{"text": "great"}`)
	assertErrorEnvelope(t, w, http.StatusInternalServerError)

	w = postInvocations(mux, "application/json", `{"text": "great"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status after retry = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	result := decodeResult(t, w.Body.Bytes())
	if result.Positive <= result.Negative {
		t.Errorf("unexpected result after retry: %+v", result)
	}
}

func TestPingAlwaysHealthy(t *testing.T) {
	cases := map[string]*http.ServeMux{
		"model ready": readyMux(),
		"model load fails": newTestMux(func() (lifecycle.Predictor, error) {
			return nil, errors.New("no model")
		}),
	}

	for name, mux := range cases {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("%s: ping status = %d, want 200", name, w.Code)
		}
		if w.Body.Len() != 0 {
			t.Errorf("%s: ping body = %q, want empty", name, w.Body.String())
		}
	}
}

func TestPingBeforeAnyLoadAttempt(t *testing.T) {
	mux := newTestMux(func() (lifecycle.Predictor, error) {
		t.Fatal("ping must not trigger a model load")
		return nil, nil
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("ping status = %d, want 200", w.Code)
	}
}

func TestLogsReturnsLoggedRequests(t *testing.T) {
	mux := readyMux()

	postInvocations(mux, "application/json", `{"text": "great stuff"}`)

	req := httptest.NewRequest(http.MethodGet, "/logs?limit=10", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("logs status = %d, want 200", w.Code)
	}
	var logs []models.RequestLog
	if err := json.Unmarshal(w.Body.Bytes(), &logs); err != nil {
		t.Fatalf("logs body is not JSON: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("got %d logs, want 1", len(logs))
	}
	if logs[0].Text != "great stuff" || logs[0].Status != "ok" {
		t.Errorf("logged entry = %+v", logs[0])
	}
}
