package workflows

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/walkies/internal/core/domain"
)

// MatchTimeoutInput is the input for the match-timeout workflow.
type MatchTimeoutInput struct {
	SessionID string
	Timeout   time.Duration
}

// MatchTimeoutWorkflow waits for the matching window to pass, then fails the
// session if no sitter accepted it. Sessions that moved on are left alone.
func MatchTimeoutWorkflow(ctx workflow.Context, input MatchTimeoutInput) (bool, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting match timeout", "sessionID", input.SessionID, "timeout", input.Timeout)

	if err := workflow.Sleep(ctx, input.Timeout); err != nil {
		return false, err
	}

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var expired bool
	err := workflow.ExecuteActivity(ctx, "ExpireUnmatchedSession", input.SessionID).Get(ctx, &expired)
	if err != nil {
		return false, err
	}

	if expired {
		logger.Info("Session expired unmatched", "sessionID", input.SessionID)
	}
	return expired, nil
}

// Scheduler implements ports.MatchScheduler by starting a MatchTimeoutWorkflow.
type Scheduler struct {
	client    client.Client
	taskQueue string
	timeout   time.Duration
}

// NewScheduler creates a Scheduler.
func NewScheduler(c client.Client, taskQueue string, timeout time.Duration) *Scheduler {
	return &Scheduler{client: c, taskQueue: taskQueue, timeout: timeout}
}

// ScheduleMatchTimeout starts the timeout workflow for a session. The workflow
// id is derived from the session id, so scheduling twice is harmless.
func (s *Scheduler) ScheduleMatchTimeout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return &domain.ValidationError{Field: "session_id", Reason: "must not be empty"}
	}
	opts := client.StartWorkflowOptions{
		ID:        WorkflowID(sessionID),
		TaskQueue: s.taskQueue,
	}
	_, err := s.client.ExecuteWorkflow(ctx, opts, MatchTimeoutWorkflow, MatchTimeoutInput{
		SessionID: sessionID,
		Timeout:   s.timeout,
	})
	if err != nil {
		return fmt.Errorf("start match timeout: %w", err)
	}
	return nil
}

// WorkflowID is the workflow id used for a session's match timeout.
func WorkflowID(sessionID string) string {
	return "match-timeout-" + sessionID
}
