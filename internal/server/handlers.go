package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"tomgalvin.uk/sketchprint/internal/history"
	"tomgalvin.uk/sketchprint/internal/render"
	"tomgalvin.uk/sketchprint/model"
	"tomgalvin.uk/sketchprint/printer"
)

var (
	errBadRequest = errors.New("bad request")
	errNotFound   = errors.New("not found")
)

const defaultJobLimit = 50

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.ScanTimeout)
		defer cancel()
	}

	name, err := s.Printer.Connect(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	profile, _ := s.Printer.Profile()
	s.writeJSON(w, http.StatusOK, model.ConnectResponse{Name: name, Model: profile.Model})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.Printer.Disconnect()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, deviceInfoResponse(s.Printer.Connected(), s.Printer.Info()))
}

func deviceInfoResponse(connected bool, i printer.DeviceInfo) model.DeviceInfoResponse {
	return model.DeviceInfoResponse{
		Connected:       connected,
		State:           i.State.String(),
		Name:            i.Name,
		Model:           i.Model,
		FirmwareVersion: i.FirmwareVersion,
		BatteryLevel:    i.BatteryLevel,
		PaperLoaded:     i.PaperLoaded,
	}
}

func (s *Server) handleRefreshStatus(w http.ResponseWriter, r *http.Request) {
	if err := s.Printer.RefreshStatus(); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Width images are scaled to before printing
func (s *Server) deviceWidth() int {
	if p, ok := s.Printer.Profile(); ok {
		return p.DotsPerLine()
	}
	return printer.DeviceDots
}

// Accepts either raw canvas pixels as JSON or an encoded image. Images are
// scaled and dithered unless ?raw=true is given, raw canvas pixels are
// printed as they are.
func (s *Server) handlePrint(w http.ResponseWriter, r *http.Request) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		s.writeError(w, badRequest("invalid content type"))
		return
	}

	var pixels printer.PixelBuffer
	switch {
	case mediaType == "application/json":
		var request model.PrintingRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			s.writeError(w, badRequest("%v", err))
			return
		}
		if pixels, err = printer.BitmapFromRequest(&request); err != nil {
			s.writeError(w, badRequest("%v", err))
			return
		}
	case strings.HasPrefix(mediaType, "image/"), mediaType == "application/octet-stream":
		img, _, err := render.Decode(r.Body)
		if err != nil {
			s.writeError(w, badRequest("couldn't decode image: %v", err))
			return
		}
		if raw, _ := strconv.ParseBool(r.URL.Query().Get("raw")); raw {
			pixels = printer.PixelsFromImage(img)
		} else {
			pixels = printer.PixelsFromImage(render.ForDevice(img, s.deviceWidth()))
		}
	default:
		s.writeError(w, badRequest("unsupported content type %s", mediaType))
		return
	}

	s.print(w, pixels)
}

func (s *Server) print(w http.ResponseWriter, pixels printer.PixelBuffer) {
	s.Logger.Info("Printing", "pixels", pixels.String())
	if err := s.Printer.Print(pixels); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handlePrintText(w http.ResponseWriter, r *http.Request) {
	var request model.TextRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.writeError(w, badRequest("%v", err))
		return
	}

	img, err := render.Text(request.Text, request.FontSize, s.deviceWidth())
	if err != nil {
		s.writeError(w, badRequest("%v", err))
		return
	}
	s.print(w, printer.PixelsFromImage(img))
}

func (s *Server) handlePrintGenerated(w http.ResponseWriter, r *http.Request) {
	var request model.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.writeError(w, badRequest("%v", err))
		return
	}
	if strings.TrimSpace(request.Prompt) == "" {
		s.writeError(w, badRequest("prompt is required"))
		return
	}
	if s.Images == nil {
		s.writeError(w, errors.New("image generation is not configured"))
		return
	}

	img, err := s.Images.Generate(r.Context(), request.Prompt)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.print(w, printer.PixelsFromImage(render.ForDevice(img, s.deviceWidth())))
}

func jobResponse(j history.Job) model.PrintJobResponse {
	return model.PrintJobResponse{
		ID:         j.Uuid.String(),
		Device:     j.Device,
		Model:      j.Model,
		Rows:       j.Rows,
		Frames:     j.Frames,
		Bytes:      j.Bytes,
		PrintedAt:  j.PrintedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		DurationMs: j.Duration.Milliseconds(),
		Error:      j.Error,
	}
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := defaultJobLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, badRequest("invalid limit %q", v))
			return
		}
		limit = n
	}

	jobs, err := s.Jobs.List(limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	response := make([]model.PrintJobResponse, len(jobs))
	for i, j := range jobs {
		response[i] = jobResponse(j)
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	u, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, badRequest("invalid job id"))
		return
	}
	j, err := s.Jobs.Get(u)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if j == nil {
		s.writeError(w, fmt.Errorf("%w: no print job %s", errNotFound, u))
		return
	}
	s.writeJSON(w, http.StatusOK, jobResponse(*j))
}
