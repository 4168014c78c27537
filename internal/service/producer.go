package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bnema/docstruct/internal/domain"
	"github.com/bnema/docstruct/internal/infrastructure/logger"
	"github.com/bnema/docstruct/internal/port"
)

// Producer is the client side of the queue: it stores inputs, enqueues job
// specifications and reads results back.
type Producer struct {
	queue        port.Queue
	store        port.ObjectStore
	registry     *Registry
	inputBucket  string
	outputBucket string
	log          port.Logger
}

func NewProducer(queue port.Queue, store port.ObjectStore, registry *Registry, inputBucket, outputBucket string, log port.Logger) *Producer {
	return &Producer{
		queue:        queue,
		store:        store,
		registry:     registry,
		inputBucket:  inputBucket,
		outputBucket: outputBucket,
		log:          log,
	}
}

// NewOutputKeyPrefix returns a fresh jobs/<uuid>/ prefix.
func NewOutputKeyPrefix() string {
	return "jobs/" + uuid.NewString() + "/"
}

// Submit enqueues spec and returns it as sent. A missing prefix gets a fresh
// one, and a known job name without params gets its prebuilt params.
func (p *Producer) Submit(ctx context.Context, spec domain.JobSpecification) (domain.JobSpecification, error) {
	if p.registry != nil {
		if _, ok := p.registry.Lookup(spec.JobName); !ok {
			return spec, fmt.Errorf("%w: %s", domain.ErrUnknownJob, spec.JobName)
		}
	}
	if spec.OutputKeyPrefix == "" {
		spec.OutputKeyPrefix = NewOutputKeyPrefix()
	}
	if len(spec.ExtraParams) == 0 {
		if def, ok := domain.DefaultJob(spec.JobName, spec.InputKey, spec.OutputKeyPrefix); ok {
			spec.ExtraParams = def.ExtraParams
		}
	}

	body, err := domain.Encode(spec)
	if err != nil {
		return spec, err
	}
	if err := p.queue.Post(ctx, body); err != nil {
		return spec, fmt.Errorf("enqueue %s: %w", spec.JobName, err)
	}
	p.log.Infof("queued %s for %s -> %s", spec.JobName, logger.SanitizeForLog(spec.InputKey), logger.SanitizeForLog(spec.OutputKeyPrefix))
	return spec, nil
}

// PutInput stores an input object for a later job.
func (p *Producer) PutInput(ctx context.Context, key string, data []byte, contentType string) error {
	return p.store.Put(ctx, p.inputBucket, key, data, contentType)
}

// Result returns the raw output.json stored under prefix. It wraps
// domain.ErrNotFound while the job has not finished.
func (p *Producer) Result(ctx context.Context, outputKeyPrefix string) ([]byte, error) {
	return p.store.Get(ctx, p.outputBucket, domain.ResultKey(outputKeyPrefix))
}

// Output returns one produced object.
func (p *Producer) Output(ctx context.Context, key string) ([]byte, error) {
	if strings.HasSuffix(key, "/") {
		return nil, domain.NewValidationError("key", "must name an object")
	}
	return p.store.Get(ctx, p.outputBucket, key)
}
