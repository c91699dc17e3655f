package handlers

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/oklog/ulid/v2"

	"github.com/polaritylab/sentiment-service/internal/services"
)

// InferenceHandler is the HTTP façade. Paths follow the hosting platform's
// serving contract: POST /invocations for inference, GET /ping for liveness.
type InferenceHandler struct {
	inferenceService *services.InferenceService
}

func NewInferenceHandler(inferenceService *services.InferenceService) *InferenceHandler {
	return &InferenceHandler{
		inferenceService: inferenceService,
	}
}

func (h *InferenceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/invocations", h.handleInvocations)
	mux.HandleFunc("/ping", h.handlePing)
	mux.HandleFunc("/logs", h.handleLogs)
}

// handlePing always answers 200 with an empty body, regardless of model
// state. The platform uses it to tell "process up" from "model ready".
func (h *InferenceHandler) handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *InferenceHandler) handleInvocations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "Request must be JSON")
		return
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		// Parse failures past the content-type gate are server faults,
		// matching the platform contract for this endpoint.
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("error during prediction: %v", err))
		return
	}

	if body.Text == "" {
		writeError(w, http.StatusBadRequest, "Missing 'text' field in request")
		return
	}

	req := services.ClassifyRequest{
		ReqID: ulid.Make().String(),
		Text:  body.Text,
	}
	if traceID := r.Header.Get("X-Trace-ID"); traceID != "" {
		req.TraceID = traceID
	}

	response, err := h.inferenceService.Classify(r.Context(), req, "http.invocations", "http-worker")
	if err != nil {
		writeError(w, http.StatusInternalServerError, response.Error)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"result": response.Result,
	})
}

func (h *InferenceHandler) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	logs, err := h.inferenceService.GetRequestLogs(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get logs: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(logs)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
