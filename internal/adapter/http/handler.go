package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gabriel-vasile/mimetype"

	"github.com/bnema/docstruct/internal/adapter/http/templates"
	"github.com/bnema/docstruct/internal/adapter/http/validation"
	"github.com/bnema/docstruct/internal/domain"
	"github.com/bnema/docstruct/internal/infrastructure/logger"
	"github.com/bnema/docstruct/internal/port"
	"github.com/bnema/docstruct/internal/service"
)

const maxJobRequestBytes = 1 << 20

type Handlers struct {
	producer   *service.Producer
	log        port.Logger
	maxInputMB int
}

func NewHandlers(producer *service.Producer, log port.Logger, maxInputMB int) *Handlers {
	return &Handlers{producer: producer, log: log, maxInputMB: maxInputMB}
}

type jobRequest struct {
	JobName         string         `json:"JobName"`
	InputKey        string         `json:"InputKey"`
	OutputKeyPrefix string         `json:"OutputKeyPrefix"`
	Params          map[string]any `json:"Params"`
}

type jobResponse struct {
	JobName         string `json:"JobName"`
	InputKey        string `json:"InputKey"`
	OutputKeyPrefix string `json:"OutputKeyPrefix"`
	ResultKey       string `json:"ResultKey"`
}

func (h *Handlers) SubmitJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxJobRequestBytes)

		var req jobRequest
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid job request: "+err.Error())
			return
		}
		if err := validation.ValidateKey(req.InputKey); err != nil {
			writeError(w, http.StatusBadRequest, "InputKey: "+err.Error())
			return
		}
		if req.OutputKeyPrefix != "" {
			if err := validation.ValidatePrefix(req.OutputKeyPrefix); err != nil {
				writeError(w, http.StatusBadRequest, "OutputKeyPrefix: "+err.Error())
				return
			}
		}

		spec, err := h.producer.Submit(r.Context(), domain.JobSpecification{
			JobName:         req.JobName,
			InputKey:        req.InputKey,
			OutputKeyPrefix: req.OutputKeyPrefix,
			ExtraParams:     req.Params,
		})
		if err != nil {
			var verr *domain.ValidationError
			switch {
			case errors.Is(err, domain.ErrUnknownJob), errors.As(err, &verr):
				writeError(w, http.StatusBadRequest, err.Error())
			default:
				h.log.Errorf("submit %s: %v", logger.SanitizeForLog(req.JobName), err)
				writeError(w, http.StatusServiceUnavailable, "could not enqueue job")
			}
			return
		}

		writeJSON(w, http.StatusAccepted, jobResponse{
			JobName:         spec.JobName,
			InputKey:        spec.InputKey,
			OutputKeyPrefix: spec.OutputKeyPrefix,
			ResultKey:       domain.ResultKey(spec.OutputKeyPrefix),
		})
	}
}

func (h *Handlers) PutInput() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")
		if err := validation.ValidateKey(key); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, int64(h.maxInputMB)*1024*1024)
		data, err := io.ReadAll(r.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("input exceeds %d MB", h.maxInputMB))
				return
			}
			writeError(w, http.StatusBadRequest, "failed to read body")
			return
		}

		contentType, err := validation.DetectInputType(data)
		if err != nil {
			writeError(w, http.StatusUnsupportedMediaType, fmt.Sprintf("%s: %s", err, contentType))
			return
		}

		if err := h.producer.PutInput(r.Context(), key, data, contentType); err != nil {
			h.log.Errorf("store input %s: %v", logger.SanitizeForLog(key), err)
			writeError(w, http.StatusBadGateway, "could not store input")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"Key": key, "ContentType": contentType, "Size": len(data)})
	}
}

func (h *Handlers) Result() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prefix := r.PathValue("prefix")
		if err := validation.ValidatePrefix(prefix); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		data, err := h.producer.Result(r.Context(), prefix)
		if err != nil {
			h.storeError(w, prefix, err, "no result yet")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(data)
	}
}

func (h *Handlers) Output() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")
		if err := validation.ValidateKey(key); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		data, err := h.producer.Output(r.Context(), key)
		if err != nil {
			h.storeError(w, key, err, "output not found")
			return
		}
		w.Header().Set("Content-Type", mimetype.Detect(data).String())
		w.Header().Set("Content-Disposition", validation.ContentDisposition(key, true))
		_, _ = w.Write(data)
	}
}

func (h *Handlers) StatusPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prefix := r.PathValue("prefix")
		if err := validation.ValidatePrefix(prefix); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		view, err := loadStatus(r, h.producer, prefix)
		if err != nil {
			h.log.Errorf("status %s: %v", logger.SanitizeForLog(prefix), err)
			writeError(w, http.StatusBadGateway, "could not read result")
			return
		}
		view.Token = r.URL.Query().Get("token")

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = templates.StatusPage(view).Render(r.Context(), w)
	}
}

func (h *Handlers) storeError(w http.ResponseWriter, key string, err error, notFound string) {
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, notFound)
		return
	}
	h.log.Errorf("read %s: %v", logger.SanitizeForLog(key), err)
	writeError(w, http.StatusBadGateway, "storage unavailable")
}

// loadStatus builds the status view from output.json. A missing file means
// the job has not reported yet.
func loadStatus(r *http.Request, producer *service.Producer, prefix string) (templates.StatusView, error) {
	view := templates.StatusView{Prefix: prefix, State: templates.StatePending}

	data, err := producer.Result(r.Context(), prefix)
	if errors.Is(err, domain.ErrNotFound) {
		return view, nil
	}
	if err != nil {
		return view, err
	}

	summary, err := domain.ParseResultSummary(data)
	if err != nil {
		return view, err
	}
	if summary.State != "" {
		view.State = string(summary.State)
	}
	view.Message = summary.Message()
	view.Outputs = summary.OutputKeys(prefix)
	return view, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
