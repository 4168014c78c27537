package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/docstruct/internal/adapter/http/templates"
	"github.com/bnema/docstruct/internal/adapter/http/validation"
	"github.com/bnema/docstruct/internal/service"
)

const keepAliveInterval = 15 * time.Second

type SSEHandler struct {
	producer     *service.Producer
	eventBus     *service.EventBus
	pollInterval time.Duration
}

func NewSSEHandler(producer *service.Producer, eventBus *service.EventBus, pollInterval time.Duration) *SSEHandler {
	return &SSEHandler{
		producer:     producer,
		eventBus:     eventBus,
		pollInterval: pollInterval,
	}
}

// sseState remembers what the client last received.
type sseState struct {
	statusHTML string
}

// sseWrite writes an SSE event, handling multi-line data correctly.
func sseWrite(w http.ResponseWriter, eventName string, data string) {
	_, _ = fmt.Fprintf(w, "event: %s\n", eventName)
	for _, line := range strings.Split(data, "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = fmt.Fprint(w, "\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func sendKeepAlive(w http.ResponseWriter) {
	_, _ = fmt.Fprint(w, ": keep-alive\n\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// sendStatus emits a "status" event when the rendered fragment differs from
// what was last sent, and a "done" event once the view is terminal.
func sendStatus(w http.ResponseWriter, view templates.StatusView, prev *sseState) (*sseState, error) {
	var buf bytes.Buffer
	if err := templates.StatusFragment(view).Render(context.Background(), &buf); err != nil {
		return prev, err
	}
	html := buf.String()
	if prev != nil && prev.statusHTML == html {
		return prev, nil
	}
	sseWrite(w, "status", html)
	if view.Terminal() {
		sseWrite(w, "done", view.State)
	}
	return &sseState{statusHTML: html}, nil
}

func (h *SSEHandler) Events() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prefix := r.PathValue("prefix")
		if err := validation.ValidatePrefix(prefix); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		view, err := loadStatus(r, h.producer, prefix)
		if err != nil {
			writeError(w, http.StatusBadGateway, "could not read result")
			return
		}
		view.Token = r.URL.Query().Get("token")

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		ctx := r.Context()
		state, _ := sendStatus(w, view, nil)
		// Once terminal the client closes; returning would make it reconnect.
		if view.Terminal() {
			<-ctx.Done()
			return
		}

		var ch chan service.Event
		if h.eventBus != nil {
			ch = h.eventBus.Subscribe(prefix)
			defer h.eventBus.Unsubscribe(prefix, ch)
		}

		keepAlive := time.NewTicker(keepAliveInterval)
		defer keepAlive.Stop()
		poll := time.NewTicker(h.pollInterval)
		defer poll.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-keepAlive.C:
				sendKeepAlive(w)
				continue
			case <-poll.C:
			case _, ok := <-ch:
				if !ok {
					return
				}
			}

			view, err := loadStatus(r, h.producer, prefix)
			if err != nil {
				continue
			}
			view.Token = r.URL.Query().Get("token")
			state, _ = sendStatus(w, view, state)
			if view.Terminal() {
				<-ctx.Done()
				return
			}
		}
	}
}
