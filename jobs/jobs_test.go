package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/gulfplacement/placement/internal/jobs"
	_ "github.com/gulfplacement/placement/testing"
)

func TestNewSendEmailTask(t *testing.T) {
	task, err := NewSendEmailTask(SendEmailPayload{To: "a@example.com", Subject: "hi", Body: "hello"})
	require.NoError(t, err)
	assert.Equal(t, TaskTypeSendEmail, task.Type())

	var payload SendEmailPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "a@example.com", payload.To)

	_, err = NewSendEmailTask(SendEmailPayload{Subject: "no recipient"})
	require.Error(t, err)
}

func TestEmailJobHandle(t *testing.T) {
	var buf bytes.Buffer
	job := NewEmailJob(slog.New(slog.NewTextHandler(&buf, nil)), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewSendEmailTask(SendEmailPayload{To: "a@example.com", Subject: "Application update"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Contains(t, buf.String(), "to=a@example.com")

	err = job.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte(`{"to":""}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestNewWorkerRequiresHandlers(t *testing.T) {
	_, err := NewWorker(WorkerConfig{RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"}})
	require.Error(t, err)
}

type stubInspector struct {
	queues    []string
	queuesErr error
	info      *asynq.QueueInfo
	err       error
}

func (s stubInspector) Queues() ([]string, error) {
	return s.queues, s.queuesErr
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestHealthEndpoint(t *testing.T) {
	tests := []struct {
		name      string
		inspector QueueInspector
		status    int
		pending   int
	}{
		{name: "no inspector", status: http.StatusOK},
		{name: "queue info", inspector: stubInspector{queues: []string{QueueDefault}, info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3}}, status: http.StatusOK, pending: 3},
		{name: "nothing enqueued yet", inspector: stubInspector{}, status: http.StatusOK},
		{name: "queue removed between calls", inspector: stubInspector{queues: []string{QueueDefault}, err: fmt.Errorf("asynq: %w", asynq.ErrQueueNotFound)}, status: http.StatusOK},
		{name: "redis down", inspector: stubInspector{queuesErr: errors.New("dial tcp")}, status: http.StatusServiceUnavailable},
		{name: "stats unavailable", inspector: stubInspector{queues: []string{QueueDefault}, err: errors.New("dial tcp")}, status: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewHandler(tt.inspector, nil).MountRoutes(r)

			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, tt.status, rr.Code)
			if tt.status != http.StatusOK {
				return
			}
			var out queueHealth
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
			assert.Equal(t, QueueDefault, out.Queue)
			assert.Equal(t, tt.pending, out.Pending)
		})
	}
}
