package service

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/docstruct/internal/adapter/queue/memory"
	"github.com/bnema/docstruct/internal/domain"
	"github.com/bnema/docstruct/internal/port"
	"github.com/bnema/docstruct/internal/port/mocks"
)

type dispatcherFixture struct {
	queue      *memory.Queue
	store      port.ObjectStore
	deps       *Deps
	events     *EventBus
	dispatcher *Dispatcher
}

func newDispatcherFixture(t *testing.T, registry *Registry) *dispatcherFixture {
	t.Helper()
	store := newLocalStore(t)
	deps := newTestDeps(t, store)
	events := NewEventBus()
	deps.Events = events
	q := memory.NewQueue()
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &dispatcherFixture{
		queue:      q,
		store:      store,
		deps:       deps,
		events:     events,
		dispatcher: NewDispatcher(q, registry, deps),
	}
}

func (f *dispatcherFixture) post(t *testing.T, body []byte) {
	t.Helper()
	require.NoError(t, f.queue.Post(context.Background(), body))
}

func (f *dispatcherFixture) postJob(t *testing.T, spec domain.JobSpecification) {
	t.Helper()
	body, err := domain.Encode(spec)
	require.NoError(t, err)
	f.post(t, body)
}

func (f *dispatcherFixture) step(t *testing.T) StepResult {
	t.Helper()
	res, err := f.dispatcher.Step(context.Background())
	require.NoError(t, err)
	return res
}

func TestDispatcher_StepEmptyQueue(t *testing.T) {
	f := newDispatcherFixture(t, nil)

	res := f.step(t)
	assert.False(t, res.Received)
	assert.False(t, res.Reposted)
}

func TestDispatcher_RunsJob(t *testing.T) {
	f := newDispatcherFixture(t, nil)
	putInput(t, f.store, "photos/cat.png", pngHeader)

	ch := f.events.Subscribe("jobs/run/")
	defer f.events.Unsubscribe("jobs/run/", ch)

	f.postJob(t, domain.ResizeImageJob("photos/cat.png", "jobs/run/"))

	res := f.step(t)
	assert.True(t, res.Received)
	assert.False(t, res.Reposted)
	assert.Equal(t, 0, f.queue.Len())

	r := readResult(t, f.store, "jobs/run/")
	assert.Equal(t, domain.StateCompleted, r.State)
	assert.Len(t, r.Outputs, 4)

	select {
	case ev := <-ch:
		assert.Equal(t, domain.StateCompleted, ev.State)
	default:
		t.Fatal("expected a state event")
	}
}

func TestDispatcher_UnknownJobIsDropped(t *testing.T) {
	f := newDispatcherFixture(t, nil)
	f.postJob(t, domain.JobSpecification{JobName: "SharpenImage", InputKey: "a.png", OutputKeyPrefix: "jobs/unknown/"})

	res := f.step(t)
	assert.True(t, res.Received)
	assert.False(t, res.Reposted)
	assert.Equal(t, 0, f.queue.Len())

	_, err := f.store.Get(context.Background(), testOutputBucket, domain.ResultKey("jobs/unknown/"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDispatcher_MalformedMessageIsDropped(t *testing.T) {
	f := newDispatcherFixture(t, nil)

	for _, body := range []string{`not json`, `{"Type":"Job"}`, `{"Type":"Job","Job":"ResizeImage","Params":"nope"}`, `[]`} {
		f.post(t, []byte(body))
		res := f.step(t)
		assert.True(t, res.Received, body)
		assert.False(t, res.Reposted, body)
	}
	assert.Equal(t, 0, f.queue.Len())
}

func TestDispatcher_RetriesThenDrops(t *testing.T) {
	f := newDispatcherFixture(t, nil)
	f.postJob(t, domain.ResizeImageJob("photos/missing.png", "jobs/retry/"))

	for attempt := 1; attempt <= domain.DefaultMaxRetries; attempt++ {
		res := f.step(t)
		require.True(t, res.Reposted, "attempt %d", attempt)
		require.Equal(t, 1, f.queue.Len())

		body, err := f.queue.Receive(context.Background(), 0)
		require.NoError(t, err)
		n, err := domain.RetryCount(body)
		require.NoError(t, err)
		assert.Equal(t, attempt, n)
		f.post(t, body)
	}

	res := f.step(t)
	assert.True(t, res.Received)
	assert.False(t, res.Reposted)
	assert.Equal(t, 0, f.queue.Len())

	r := readResult(t, f.store, "jobs/retry/")
	assert.Equal(t, domain.StateError, r.State)
}

func TestDispatcher_PanicIsRetried(t *testing.T) {
	registry := NewRegistry()
	registry.Register("Explode", HandlerFunc("Explode", func(context.Context, domain.Params, *Deps) (any, error) {
		panic("boom")
	}))
	f := newDispatcherFixture(t, registry)
	f.postJob(t, domain.JobSpecification{JobName: "Explode", InputKey: "a", OutputKeyPrefix: "jobs/p/"})

	res := f.step(t)
	assert.True(t, res.Reposted)
	assert.Equal(t, 1, f.queue.Len())
}

func TestDispatcher_ProcessMessageReturnsNilForTerminal(t *testing.T) {
	f := newDispatcherFixture(t, nil)

	body, err := domain.Encode(domain.NormalizeImageJob("", "jobs/x/"))
	require.NoError(t, err)
	assert.NoError(t, f.dispatcher.ProcessMessage(context.Background(), body))
}

func notification(t *testing.T, n domain.TranscoderNotification) []byte {
	t.Helper()
	body, err := domain.NewNotificationEnvelope(n)
	require.NoError(t, err)
	return body
}

func TestDispatcher_NotificationCompletedWritesPayload(t *testing.T) {
	f := newDispatcherFixture(t, nil)
	ch := f.events.Subscribe("jobs/vid/")
	defer f.events.Unsubscribe("jobs/vid/", ch)

	f.post(t, notification(t, domain.TranscoderNotification{
		State:           domain.StateCompleted,
		JobID:           "tc-1",
		OutputKeyPrefix: "jobs/vid/",
		Outputs: []domain.NotificationOutput{
			{Key: "video.webm", PresetID: "webm-av1", Status: "Complete", Duration: 13, Width: 640, Height: 360},
		},
	}))

	res := f.step(t)
	assert.False(t, res.Reposted)

	data, err := f.store.Get(context.Background(), testOutputBucket, "jobs/vid/output.json")
	require.NoError(t, err)
	var stored map[string]any
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, "COMPLETED", stored["state"])
	assert.Equal(t, "tc-1", stored["jobId"])

	summary, err := domain.ParseResultSummary(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"jobs/vid/video.webm"}, summary.OutputKeys("jobs/vid/"))

	select {
	case ev := <-ch:
		assert.Equal(t, domain.StateCompleted, ev.State)
	default:
		t.Fatal("expected a state event")
	}
}

func TestDispatcher_NotificationErrorWritesPayload(t *testing.T) {
	f := newDispatcherFixture(t, nil)
	f.post(t, notification(t, domain.TranscoderNotification{
		State:           domain.StateError,
		JobID:           "tc-2",
		OutputKeyPrefix: "jobs/bad/",
		ErrorCode:       4000,
		MessageDetails:  "ffmpeg exited with code 1",
	}))

	f.step(t)

	data, err := f.store.Get(context.Background(), testOutputBucket, "jobs/bad/output.json")
	require.NoError(t, err)
	summary, err := domain.ParseResultSummary(data)
	require.NoError(t, err)
	assert.Equal(t, domain.StateError, summary.State)
	assert.Equal(t, "ffmpeg exited with code 1", summary.Message())
}

func TestDispatcher_NotificationProgressingIsIgnored(t *testing.T) {
	f := newDispatcherFixture(t, nil)
	f.post(t, notification(t, domain.TranscoderNotification{
		State:           domain.StateProgressing,
		JobID:           "tc-3",
		OutputKeyPrefix: "jobs/prog/",
	}))

	res := f.step(t)
	assert.False(t, res.Reposted)

	_, err := f.store.Get(context.Background(), testOutputBucket, "jobs/prog/output.json")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDispatcher_NotificationWithoutPrefixIsDropped(t *testing.T) {
	f := newDispatcherFixture(t, nil)
	f.post(t, notification(t, domain.TranscoderNotification{State: domain.StateCompleted, JobID: "tc-4"}))

	res := f.step(t)
	assert.False(t, res.Reposted)
	assert.Equal(t, 0, f.queue.Len())
}

func TestDispatcher_EmptyNotificationIsDropped(t *testing.T) {
	f := newDispatcherFixture(t, nil)
	f.post(t, []byte(`{"Type":"Notification","Message":""}`))

	res := f.step(t)
	assert.True(t, res.Received)
	assert.False(t, res.Reposted)
}

func TestDispatcher_RunStopsOnCancel(t *testing.T) {
	f := newDispatcherFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.dispatcher.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestWorkerPool_ProcessesConcurrently(t *testing.T) {
	var handled atomic.Int32
	registry := NewRegistry()
	registry.Register("", HandlerFunc("Count", func(context.Context, domain.Params, *Deps) (any, error) {
		handled.Add(1)
		return nil, nil
	}))
	f := newDispatcherFixture(t, registry)
	for range 5 {
		f.postJob(t, domain.JobSpecification{JobName: "Count", InputKey: "a", OutputKeyPrefix: "jobs/c/"})
	}

	ctx, cancel := context.WithCancel(context.Background())
	pool := NewWorkerPool(f.dispatcher, 3)
	require.NoError(t, pool.Start(ctx))

	require.Eventually(t, func() bool { return handled.Load() == 5 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	pool.Wait()
	assert.Equal(t, 0, f.queue.Len())
}

func TestDispatcher_ResizeWireMessage(t *testing.T) {
	f := newDispatcherFixture(t, nil)
	putInput(t, f.store, "in/photo.jpg", pngHeader)

	f.post(t, []byte(`{"Type":"Job","Job":"ResizeImage","Params":{"InputKey":"in/photo.jpg","OutputKeyPrefix":"out/","PreferredOutputs":[[0,0,"Original.jpg"],[160,160,"Thumbnail.jpg"]]}}`))

	res := f.step(t)
	assert.True(t, res.Received)
	assert.False(t, res.Reposted)
	assert.Equal(t, 0, f.queue.Len())

	r := readResult(t, f.store, "out/")
	assert.Equal(t, domain.StateCompleted, r.State)
	assert.Equal(t, []string{"out/Original.jpg", "out/Thumbnail.jpg"}, outputKeys(r.Outputs))

	for _, key := range []string{"out/Original.jpg", "out/Thumbnail.jpg"} {
		_, err := f.store.Get(context.Background(), testOutputBucket, key)
		assert.NoError(t, err, key)
	}
	assertScratchEmpty(t, f.deps)
}

func TestDispatcher_InvalidStoreKeyIsDropped(t *testing.T) {
	f := newDispatcherFixture(t, nil)
	f.postJob(t, domain.ResizeImageJob("../../etc/passwd", "jobs/esc/"))

	res := f.step(t)
	assert.True(t, res.Received)
	assert.False(t, res.Reposted)
	assert.Equal(t, 0, f.queue.Len())

	r := readResult(t, f.store, "jobs/esc/")
	assert.Equal(t, domain.StateError, r.State)
}

func TestDispatcher_ReceiveErrorsRetryAtFixedInterval(t *testing.T) {
	q := mocks.NewQueueMock(t)
	deps := newTestDeps(t, newLocalStore(t))
	deps.Config.RetryBackoff = 20 * time.Millisecond

	var (
		mu    sync.Mutex
		calls []time.Time
	)
	q.EXPECT().Receive(mock.Anything, mock.Anything).RunAndReturn(func(context.Context, time.Duration) ([]byte, error) {
		mu.Lock()
		calls = append(calls, time.Now())
		mu.Unlock()
		return nil, errors.New("connection refused")
	})

	d := NewDispatcher(q, DefaultRegistry(), deps)
	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()
	require.NoError(t, d.Run(ctx))

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(calls), 8, "queue should be polled again after each pause")
	assert.LessOrEqual(t, len(calls), 21)
	for i := 1; i < len(calls); i++ {
		gap := calls[i].Sub(calls[i-1])
		assert.GreaterOrEqual(t, gap, 20*time.Millisecond, "gap %d", i)
		assert.Less(t, gap, 200*time.Millisecond, "gap %d", i)
	}
}

func TestWorkerPool_SameInputOnTwoWorkers(t *testing.T) {
	f := newDispatcherFixture(t, nil)
	images := newFakeImageTool()
	images.delay = 50 * time.Millisecond
	f.deps.Images = images
	putInput(t, f.store, "photos/cat.png", pngHeader)

	chA := f.events.Subscribe("jobs/A/")
	defer f.events.Unsubscribe("jobs/A/", chA)
	chB := f.events.Subscribe("jobs/B/")
	defer f.events.Unsubscribe("jobs/B/", chB)

	f.postJob(t, domain.ResizeImageJob("photos/cat.png", "jobs/A/"))
	f.postJob(t, domain.ResizeImageJob("photos/cat.png", "jobs/B/"))

	ctx, cancel := context.WithCancel(context.Background())
	pool := NewWorkerPool(f.dispatcher, 2)
	require.NoError(t, pool.Start(ctx))
	defer func() {
		cancel()
		pool.Wait()
	}()

	for prefix, ch := range map[string]chan Event{"jobs/A/": chA, "jobs/B/": chB} {
		select {
		case ev := <-ch:
			assert.Equal(t, domain.StateCompleted, ev.State, "%s: %s", prefix, ev.Message)
		case <-time.After(5 * time.Second):
			t.Fatalf("no result for %s", prefix)
		}
	}
	assert.Equal(t, 0, f.queue.Len())

	dirs := map[string]bool{}
	for _, p := range images.written() {
		dirs[filepath.Dir(p)] = true
	}
	dataDir := f.deps.Config.DataDir
	assert.Equal(t, map[string]bool{
		WorkerScratchDir(dataDir, 0): true,
		WorkerScratchDir(dataDir, 1): true,
	}, dirs)
	assertScratchEmpty(t, f.deps)
}
