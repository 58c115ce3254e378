package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/churn-service/internal/domain/event"
	"github.com/bibbank/churn-service/pkg/events"
)

// RunStatus is the lifecycle state of a training run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunOutcome carries the results recorded when a run completes.
type RunOutcome struct {
	ModelName       string
	BundleVersion   string
	Threshold       float64
	F1              float64
	ROCAUC          float64
	TrainingRows    int
	HighRiskCustIDs []string
}

// TrainingRun is the aggregate root for one batch training job.
type TrainingRun struct {
	events.EventCollector

	startedAt  time.Time
	finishedAt time.Time
	status     RunStatus
	failure    string
	outcome    RunOutcome
	id         uuid.UUID
}

// NewTrainingRun starts a run with a fresh identifier.
func NewTrainingRun() *TrainingRun {
	return &TrainingRun{
		id:        uuid.New(),
		startedAt: time.Now().UTC(),
		status:    RunStatusRunning,
	}
}

// Complete records the outcome and emits ModelTrained, plus HighRiskDetected
// when any customer landed in the High category.
func (r *TrainingRun) Complete(outcome RunOutcome) error {
	if r.status != RunStatusRunning {
		return fmt.Errorf("training run %s is %s, cannot complete", r.id, r.status)
	}
	if outcome.ModelName == "" {
		return fmt.Errorf("model name is required")
	}
	if outcome.BundleVersion == "" {
		return fmt.Errorf("bundle version is required")
	}

	r.outcome = outcome
	r.status = RunStatusCompleted
	r.finishedAt = time.Now().UTC()

	r.Record(event.NewModelTrained(
		r.id, outcome.ModelName, outcome.BundleVersion,
		outcome.Threshold, outcome.F1, outcome.ROCAUC,
		outcome.TrainingRows, r.finishedAt,
	))
	if len(outcome.HighRiskCustIDs) > 0 {
		r.Record(event.NewHighRiskDetected(
			r.id, outcome.HighRiskCustIDs, r.finishedAt,
		))
	}
	return nil
}

// Fail marks the run as failed. Failed runs emit no events.
func (r *TrainingRun) Fail(err error) {
	r.status = RunStatusFailed
	r.finishedAt = time.Now().UTC()
	if err != nil {
		r.failure = err.Error()
	}
}

// --- Accessors ---

func (r *TrainingRun) ID() uuid.UUID         { return r.id }
func (r *TrainingRun) Status() RunStatus     { return r.status }
func (r *TrainingRun) StartedAt() time.Time  { return r.startedAt }
func (r *TrainingRun) FinishedAt() time.Time { return r.finishedAt }
func (r *TrainingRun) Failure() string       { return r.failure }
func (r *TrainingRun) Outcome() RunOutcome   { return r.outcome }

// Version is the suffix used for versioned files written by this run.
func (r *TrainingRun) Version() string {
	return r.startedAt.Format("20060102_150405") + "_" + r.id.String()[:8]
}

// DomainEvents returns all accumulated domain events and clears them.
func (r *TrainingRun) DomainEvents() []events.DomainEvent {
	return r.ClearEvents()
}
