package service

import (
	"context"
	"sort"
	"sync"

	"github.com/bnema/docstruct/config"
	"github.com/bnema/docstruct/internal/domain"
	"github.com/bnema/docstruct/internal/port"
)

// Deps is everything a handler may use. It is built once at startup and
// shared read-only by every job of a dispatch loop.
type Deps struct {
	Config     *config.Config
	Logger     port.Logger
	Store      port.ObjectStore
	Transcoder port.MediaTranscoder
	Images     port.ImageTool
	Documents  port.DocumentConverter
	PDFs       port.PDFRasterizer
	Events     EventPublisher

	// ScratchDir holds the staged inputs and outputs of this loop's jobs.
	// Empty means Config.DataDir.
	ScratchDir string
}

func (d *Deps) scratchDir() string {
	if d.ScratchDir != "" {
		return d.ScratchDir
	}
	return d.Config.DataDir
}

// Handler runs one job type.
type Handler interface {
	Name() string
	Run(ctx context.Context, params domain.Params, deps *Deps) (any, error)
}

type RunFunc func(ctx context.Context, params domain.Params, deps *Deps) (any, error)

type funcHandler struct {
	name string
	fn   RunFunc
}

// HandlerFunc adapts a plain function to Handler.
func HandlerFunc(name string, fn RunFunc) Handler {
	return &funcHandler{name: name, fn: fn}
}

func (h *funcHandler) Name() string { return h.name }

func (h *funcHandler) Run(ctx context.Context, params domain.Params, deps *Deps) (any, error) {
	return h.fn(ctx, params, deps)
}

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds h under name, or under h.Name() when name is empty. A later
// registration for the same name replaces the earlier one.
func (r *Registry) Register(name string, h Handler) {
	if name == "" {
		name = h.Name()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds every built-in job type.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("", TranscodeVideo{})
	r.Register("", TranscodeAudio{})
	r.Register("", ConvertToPDF{})
	r.Register("", ResizeImage{})
	r.Register("", NormalizeImage{})
	return r
}
