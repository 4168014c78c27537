package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bnema/docstruct/internal/adapter/queue/memory"
	"github.com/bnema/docstruct/internal/adapter/storage/localfs"
	"github.com/bnema/docstruct/internal/domain"
	"github.com/bnema/docstruct/internal/infrastructure/logger"
	"github.com/bnema/docstruct/internal/service"
)

const testToken = "0123456789abcdef0123456789abcdef"

var pngBytes = append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 64)...)

type apiFixture struct {
	srv   *Server
	queue *memory.Queue
	store *localfs.Store
	bus   *service.EventBus
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testToken), bcrypt.MinCost)
	require.NoError(t, err)

	store, err := localfs.NewStore(t.TempDir())
	require.NoError(t, err)
	q := memory.NewQueue()
	log := logger.New("http")
	bus := service.NewEventBus()
	producer := service.NewProducer(q, store, service.DefaultRegistry(), "in", "out", log)

	srv := NewServer(producer, bus, service.NewTokenAuth(string(hash)), log, Options{MaxInputMB: 1, PollInterval: 20 * time.Millisecond})
	t.Cleanup(srv.Close)
	return &apiFixture{srv: srv, queue: q, store: store, bus: bus}
}

func (f *apiFixture) do(method, target string, body []byte, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func TestServer_Healthz(t *testing.T) {
	f := newAPI(t)
	rec := f.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestServer_SubmitJob(t *testing.T) {
	f := newAPI(t)

	rec := f.do(http.MethodPost, "/jobs", []byte(`{"JobName":"ResizeImage","InputKey":"uploads/cat.jpg"}`), testToken)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp jobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.OutputKeyPrefix, "jobs/"))
	assert.Equal(t, domain.ResultKey(resp.OutputKeyPrefix), resp.ResultKey)

	body, err := f.queue.Receive(context.Background(), 0)
	require.NoError(t, err)
	job, err := domain.Decode(body, 0)
	require.NoError(t, err)
	assert.Equal(t, "uploads/cat.jpg", job.Spec.InputKey)
}

func TestServer_SubmitJobRejected(t *testing.T) {
	f := newAPI(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"JobName":`},
		{"unknown job", `{"JobName":"Sharpen","InputKey":"a.jpg"}`},
		{"missing input", `{"JobName":"ResizeImage"}`},
		{"escaping input", `{"JobName":"ResizeImage","InputKey":"../secret"}`},
		{"bad prefix", `{"JobName":"ResizeImage","InputKey":"a.jpg","OutputKeyPrefix":"/abs/"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/jobs", []byte(tt.body), testToken)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Zero(t, f.queue.Len())
}

func TestServer_AuthRequired(t *testing.T) {
	f := newAPI(t)

	rec := f.do(http.MethodPost, "/jobs", []byte(`{}`), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")

	rec = f.do(http.MethodGet, "/results/jobs/1/?token="+testToken, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_BlocksRepeatedFailures(t *testing.T) {
	f := newAPI(t)

	for i := 0; i < 4; i++ {
		rec := f.do(http.MethodGet, "/results/jobs/1/", nil, "wrong")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := f.do(http.MethodGet, "/results/jobs/1/", nil, "wrong")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = f.do(http.MethodGet, "/results/jobs/1/", nil, testToken)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestServer_PutInput(t *testing.T) {
	f := newAPI(t)

	rec := f.do(http.MethodPut, "/inputs/uploads/a.png", pngBytes, testToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "image/png")

	data, err := f.store.Get(context.Background(), "in", "uploads/a.png")
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	rec = f.do(http.MethodPut, "/inputs/uploads/a.exe", []byte{0x4D, 0x5A, 0x90, 0x00, 0x03, 0x00, 0x00, 0x00}, testToken)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = f.do(http.MethodPut, "/inputs/big.png", append(pngBytes, make([]byte, 2<<20)...), testToken)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestServer_ResultsAndOutputs(t *testing.T) {
	f := newAPI(t)
	ctx := context.Background()

	rec := f.do(http.MethodGet, "/results/jobs/1/", nil, testToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, f.store.Put(ctx, "out", "jobs/1/output.json", []byte(`{"state":"COMPLETED","Outputs":[{"Key":"jobs/1/Small.png"}]}`), "application/json"))
	require.NoError(t, f.store.Put(ctx, "out", "jobs/1/Small.png", pngBytes, "image/png"))

	rec = f.do(http.MethodGet, "/results/jobs/1/", nil, testToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"state":"COMPLETED","Outputs":[{"Key":"jobs/1/Small.png"}]}`, rec.Body.String())

	rec = f.do(http.MethodGet, "/outputs/jobs/1/Small.png", nil, testToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, `inline; filename="Small.png"`, rec.Header().Get("Content-Disposition"))

	rec = f.do(http.MethodGet, "/status/jobs/1/", nil, testToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "COMPLETED")
	assert.Contains(t, rec.Body.String(), `/outputs/jobs/1/Small.png`)
}

func TestServer_StatusPending(t *testing.T) {
	f := newAPI(t)

	rec := f.do(http.MethodGet, "/status/jobs/9/", nil, testToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "PENDING")
	assert.Contains(t, rec.Body.String(), "EventSource")
}
