// Package server exposes the printer session over HTTP for the drawing UI.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tomgalvin.uk/sketchprint/internal/history"
	"tomgalvin.uk/sketchprint/internal/imagegen"
	"tomgalvin.uk/sketchprint/printer"
)

// The parts of printer.Session the HTTP surface uses
type Printer interface {
	Connect(ctx context.Context) (string, error)
	Disconnect()
	Print(pixels printer.PixelBuffer) error
	RefreshStatus() error
	Connected() bool
	Profile() (printer.DeviceProfile, bool)
	Info() printer.DeviceInfo
}

type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (image.Image, error)
}

type JobStore interface {
	List(limit int) ([]history.Job, error)
	Get(u uuid.UUID) (*history.Job, error)
}

// Largest request body accepted, images included
const maxBodyBytes = 32 << 20

type Server struct {
	Logger      *slog.Logger
	Printer     Printer
	Images      ImageGenerator
	Jobs        JobStore
	ScanTimeout time.Duration
}

func NewServer(logger *slog.Logger, p Printer, images ImageGenerator, jobs JobStore, scanTimeout time.Duration) *Server {
	return &Server{
		Logger:      logger,
		Printer:     p,
		Images:      images,
		Jobs:        jobs,
		ScanTimeout: scanTimeout,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/connect", s.handleConnect)
	mux.HandleFunc("POST /api/disconnect", s.handleDisconnect)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/status/refresh", s.handleRefreshStatus)
	mux.HandleFunc("POST /api/print", s.handlePrint)
	mux.HandleFunc("POST /api/print/text", s.handlePrintText)
	mux.HandleFunc("POST /api/print/generate", s.handlePrintGenerated)
	mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	return http.MaxBytesHandler(mux, maxBodyBytes)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("Couldn't write response", "error", err)
	}
}

// Maps printer errors to HTTP statuses, the message is passed on verbatim
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, printer.ErrNotConfigured), errors.Is(err, printer.ErrNotConnected):
		status = http.StatusConflict
	case errors.Is(err, printer.ErrBusy):
		status = http.StatusTooManyRequests
	case errors.Is(err, printer.ErrConnectionFailed), errors.Is(err, printer.ErrWriteFailed):
		status = http.StatusServiceUnavailable
	case errors.Is(err, imagegen.ErrCaptureFailed), errors.Is(err, imagegen.ErrDecodeFailed):
		status = http.StatusBadGateway
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, errNotFound):
		status = http.StatusNotFound
	}
	if status >= 500 {
		s.Logger.Error("Request failed", "error", err)
	}
	http.Error(w, err.Error(), status)
}
