package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/churn-service/pkg/events"
)

const (
	// EventTypeModelTrained is emitted when a training run commits a new artifact bundle.
	EventTypeModelTrained = "churn.model.trained"

	// EventTypeHighRiskDetected is emitted when a run scores customers in the High category.
	EventTypeHighRiskDetected = "churn.high_risk.detected"

	// AggregateTypeTrainingRun identifies the aggregate emitting churn events.
	AggregateTypeTrainingRun = "training_run"
)

// ModelTrained is published once the new model bundle is the latest one.
type ModelTrained struct {
	events.BaseEvent `json:"-"`
	RunID            uuid.UUID `json:"run_id"`
	ModelName        string    `json:"model_name"`
	BundleVersion    string    `json:"bundle_version"`
	Threshold        float64   `json:"threshold"`
	F1               float64   `json:"f1"`
	ROCAUC           float64   `json:"roc_auc"`
	TrainingRows     int       `json:"training_rows"`
	CompletedAt      time.Time `json:"completed_at"`
}

// NewModelTrained builds the event and its serialized payload.
func NewModelTrained(
	runID uuid.UUID,
	modelName, bundleVersion string,
	threshold, f1, rocAUC float64,
	trainingRows int,
	completedAt time.Time,
) ModelTrained {
	e := ModelTrained{
		RunID:         runID,
		ModelName:     modelName,
		BundleVersion: bundleVersion,
		Threshold:     threshold,
		F1:            f1,
		ROCAUC:        rocAUC,
		TrainingRows:  trainingRows,
		CompletedAt:   completedAt,
	}
	payload, _ := json.Marshal(e)
	e.BaseEvent = events.NewBaseEvent(EventTypeModelTrained, runID, AggregateTypeTrainingRun, payload)
	return e
}

// HighRiskDetected is published when a run flags customers as High risk,
// so retention campaigns can pick them up.
type HighRiskDetected struct {
	events.BaseEvent `json:"-"`
	RunID            uuid.UUID `json:"run_id"`
	CustomerIDs      []string  `json:"customer_ids"`
	HighRiskCount    int       `json:"high_risk_count"`
	DetectedAt       time.Time `json:"detected_at"`
}

// NewHighRiskDetected builds the event and its serialized payload.
func NewHighRiskDetected(runID uuid.UUID, customerIDs []string, detectedAt time.Time) HighRiskDetected {
	e := HighRiskDetected{
		RunID:         runID,
		CustomerIDs:   customerIDs,
		HighRiskCount: len(customerIDs),
		DetectedAt:    detectedAt,
	}
	payload, _ := json.Marshal(e)
	e.BaseEvent = events.NewBaseEvent(EventTypeHighRiskDetected, runID, AggregateTypeTrainingRun, payload)
	return e
}
