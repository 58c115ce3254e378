package dto

import (
	"time"

	"github.com/bibbank/churn-service/internal/domain/service"
)

// TrainingSummary is the output DTO of a completed training run.
type TrainingSummary struct {
	StartedAt        time.Time                  `json:"started_at"`
	FinishedAt       time.Time                  `json:"finished_at"`
	Metrics          service.CoreMetrics        `json:"metrics"`
	Candidates       []service.CandidateMetrics `json:"candidates"`
	ChartFiles       []string                   `json:"chart_files,omitempty"`
	Segments         []SegmentProfileDTO        `json:"segments,omitempty"`
	RunID            string                     `json:"run_id"`
	Version          string                     `json:"version"`
	BestModel        string                     `json:"best_model"`
	Threshold        float64                    `json:"threshold"`
	ChurnRatio       float64                    `json:"churn_ratio"`
	TrainingRows     int                        `json:"training_rows"`
	TestRows         int                        `json:"test_rows"`
	HighRiskCount    int                        `json:"high_risk_count"`
	ThresholdScanned bool                       `json:"threshold_scanned"`
}
