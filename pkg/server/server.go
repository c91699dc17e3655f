package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/polaritylab/sentiment-service/internal/handlers"
	"github.com/polaritylab/sentiment-service/internal/services"
)

type Server struct {
	httpAddr         string
	inferenceService *services.InferenceService
}

func NewServer(httpAddr string, inferenceService *services.InferenceService) *Server {
	return &Server{
		httpAddr:         httpAddr,
		inferenceService: inferenceService,
	}
}

func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	inferenceHandler := handlers.NewInferenceHandler(s.inferenceService)
	inferenceHandler.RegisterRoutes(mux)

	slog.Info("HTTP server starting",
		"addr", s.httpAddr,
		"endpoints", []string{"/invocations", "/ping", "/logs"})

	return http.ListenAndServe(s.httpAddr, mux)
}
