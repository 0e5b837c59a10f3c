package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/gulfplacement/placement/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	if strings.TrimSpace(payload.To) == "" {
		return nil, errors.New("jobs: email recipient required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}

// EmailJob delivers mail:send tasks. Delivery is logged; no SMTP relay is
// configured.
type EmailJob struct {
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewEmailJob constructs the mail:send handler.
func NewEmailJob(logger *slog.Logger, metrics *jobmetrics.Metrics) *EmailJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailJob{Logger: logger, Metrics: metrics}
}

// Handle processes TaskTypeSendEmail tasks.
func (j *EmailJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	tracker := j.Metrics.Track(TaskTypeSendEmail)
	defer func() {
		err = tracker.End(err)
	}()

	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if strings.TrimSpace(payload.To) == "" {
		return fmt.Errorf("empty recipient: %w", asynq.SkipRetry)
	}
	j.Logger.InfoContext(ctx, "email delivered",
		slog.String("to", payload.To),
		slog.String("subject", payload.Subject))
	return nil
}
