package jobs

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
)

type stubEnqueuer struct {
	sweeps   []GrantSweepPayload
	cleanups int
}

func (s *stubEnqueuer) EnqueueGrantSweep(ctx context.Context, payload GrantSweepPayload) (*asynq.TaskInfo, error) {
	s.sweeps = append(s.sweeps, payload)
	return &asynq.TaskInfo{ID: "task-1", Type: TaskGrantSweep}, nil
}

func (s *stubEnqueuer) EnqueueTokenCleanup(ctx context.Context) (*asynq.TaskInfo, error) {
	s.cleanups++
	return &asynq.TaskInfo{ID: "task-2", Type: TaskTokenCleanup}, nil
}

func newJobsRouter(queue Enqueuer) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(nil, queue, logger)
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)
	return r
}

func TestTriggerSweepEnqueuesScopedRun(t *testing.T) {
	queue := &stubEnqueuer{}
	router := newJobsRouter(queue)

	req := httptest.NewRequest(http.MethodPost, "/jobs/sweep", strings.NewReader(`{"user_id":7}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	if len(queue.sweeps) != 1 || queue.sweeps[0].UserID != 7 {
		t.Fatalf("sweeps = %+v, want one scoped to user 7", queue.sweeps)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["task"] != TaskGrantSweep || body["id"] != "task-1" {
		t.Fatalf("body = %v", body)
	}
}

func TestTriggerTokenCleanupEnqueues(t *testing.T) {
	queue := &stubEnqueuer{}
	router := newJobsRouter(queue)

	req := httptest.NewRequest(http.MethodPost, "/jobs/token-cleanup", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	if queue.cleanups != 1 {
		t.Fatalf("cleanups = %d, want 1", queue.cleanups)
	}
}

func TestTriggerSweepRejectsMalformedBody(t *testing.T) {
	queue := &stubEnqueuer{}
	router := newJobsRouter(queue)

	req := httptest.NewRequest(http.MethodPost, "/jobs/sweep", strings.NewReader(`{"user_id":`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if len(queue.sweeps) != 0 {
		t.Fatalf("sweeps = %+v, want none", queue.sweeps)
	}
}
