package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bibbank/churn-service/internal/domain/model"
)

// Candidate names.
const (
	CandidateLogisticRegression = "Logistic Regression"
	CandidateRandomForest       = "Random Forest"
	CandidateGradientBoosting   = "Gradient Boosting"
	CandidateWeightedBoosting   = "Weighted Gradient Boosting"
	CandidateSMOTEForest        = "SMOTE + Random Forest"
	CandidateSMOTEBoosting      = "SMOTE + Gradient Boosting"
	CandidateNearestCentroid    = "Nearest Centroid"
)

// CandidateSpec names a classifier family and builds a fresh instance of it
// for a given training fold.
type CandidateSpec struct {
	Name string
	New  func(yTrain []int) Classifier
}

// DefaultCandidates is the fixed candidate set: a linear baseline, tree
// ensembles, class-weighted and SMOTE variants, and a model without
// probability output.
func DefaultCandidates(seed uint64) []CandidateSpec {
	return []CandidateSpec{
		{Name: CandidateLogisticRegression, New: func([]int) Classifier { return NewLogisticRegression(true) }},
		{Name: CandidateRandomForest, New: func([]int) Classifier { return NewRandomForest(true, seed) }},
		{Name: CandidateGradientBoosting, New: func([]int) Classifier { return NewGradientBoosting(0) }},
		{Name: CandidateWeightedBoosting, New: func(y []int) Classifier { return NewGradientBoosting(ScalePosWeight(y)) }},
		{Name: CandidateSMOTEForest, New: func([]int) Classifier {
			return NewSMOTEClassifier(NewRandomForest(false, seed), seed)
		}},
		{Name: CandidateSMOTEBoosting, New: func([]int) Classifier {
			return NewSMOTEClassifier(NewGradientBoosting(0), seed)
		}},
		{Name: CandidateNearestCentroid, New: func([]int) Classifier { return NewNearestCentroid() }},
	}
}

// CandidateResult holds one fitted candidate and its held-out scores at the
// default threshold. ROCAUC is only meaningful when HasAUC is set.
type CandidateResult struct {
	Name      string
	Model     Classifier
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
	ROCAUC    float64
	HasAUC    bool
	Confusion ConfusionMatrix
}

// Selection is the promoted candidate plus every candidate's scores.
type Selection struct {
	Best       CandidateResult
	Candidates []CandidateResult
}

// ModelSelector trains the candidate set and promotes the best by F1.
type ModelSelector struct {
	candidates []CandidateSpec
	logger     *slog.Logger
}

// NewModelSelector creates a selector over the given candidates.
func NewModelSelector(candidates []CandidateSpec, logger *slog.Logger) *ModelSelector {
	return &ModelSelector{candidates: candidates, logger: logger}
}

// SelectBest fits every candidate on the training fold and scores it on the
// test fold. A candidate that fails to fit is logged and skipped. The winner
// has the highest F1; ties go to the higher ROC-AUC, with candidates lacking
// probability output losing the tie, then to candidate order.
func (s *ModelSelector) SelectBest(ctx context.Context, XTrain [][]float64, yTrain []int, XTest [][]float64, yTest []int) (Selection, error) {
	var sel Selection
	bestIdx := -1

	for _, spec := range s.candidates {
		if err := ctx.Err(); err != nil {
			return Selection{}, err
		}

		m := spec.New(yTrain)
		if err := m.Fit(XTrain, yTrain); err != nil {
			s.logger.Warn("candidate failed to fit", "model", spec.Name, "error", err)
			continue
		}

		res := scoreCandidate(spec.Name, m, XTest, yTest)
		s.logger.Info("candidate scored",
			"model", res.Name,
			"accuracy", res.Accuracy,
			"precision", res.Precision,
			"recall", res.Recall,
			"f1", res.F1,
			"roc_auc", res.ROCAUC,
			"has_auc", res.HasAUC,
		)

		sel.Candidates = append(sel.Candidates, res)
		if bestIdx < 0 || better(res, sel.Candidates[bestIdx]) {
			bestIdx = len(sel.Candidates) - 1
		}
	}

	if bestIdx < 0 {
		return Selection{}, fmt.Errorf("select best model: %w", model.ErrNoCandidates)
	}
	sel.Best = sel.Candidates[bestIdx]
	s.logger.Info("best model selected", "model", sel.Best.Name, "f1", sel.Best.F1)
	return sel, nil
}

func scoreCandidate(name string, m Classifier, X [][]float64, y []int) CandidateResult {
	pred := m.Predict(X)
	cm := Confusion(y, pred)
	res := CandidateResult{
		Name:      name,
		Model:     m,
		Accuracy:  cm.Accuracy(),
		Precision: cm.Precision(),
		Recall:    cm.Recall(),
		F1:        cm.F1(),
		Confusion: cm,
	}
	if proba, ok := Probabilities(m, X); ok {
		_, res.ROCAUC = ROCCurve(y, proba)
		res.HasAUC = true
	}
	return res
}

// better reports whether a beats the current best b.
func better(a, b CandidateResult) bool {
	if a.F1 != b.F1 {
		return a.F1 > b.F1
	}
	if a.HasAUC != b.HasAUC {
		return a.HasAUC
	}
	return a.HasAUC && a.ROCAUC > b.ROCAUC
}
