package service

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/bibbank/churn-service/internal/domain/model"
)

// UnknownCategory is the suffix of the one-hot bucket that receives category
// values not seen at fit time.
const UnknownCategory = "__unknown__"

// NumericScaler standardizes one numeric column.
type NumericScaler struct {
	Column string
	Mean   float64
	Std    float64
}

// CategoryEncoder one-hot encodes one categorical column over a sorted
// vocabulary plus the unknown bucket.
type CategoryEncoder struct {
	Column     string
	Vocabulary []string
}

// PreprocessingPlan is the fitted numeric scaling and categorical encoding.
// The column partition is captured once by Fit from the declared column kinds
// and is reused verbatim by every Transform call.
type PreprocessingPlan struct {
	Numeric     []NumericScaler
	Categorical []CategoryEncoder
	Fitted      bool
}

// NewPreprocessingPlan returns an unfitted plan.
func NewPreprocessingPlan() *PreprocessingPlan {
	return &PreprocessingPlan{}
}

// Fit learns scaling parameters and vocabularies from the frame. Identifier
// and target columns are excluded.
func (p *PreprocessingPlan) Fit(f *model.Frame) error {
	if f.Rows() == 0 {
		return model.ErrEmptyTable
	}

	p.Numeric = p.Numeric[:0]
	p.Categorical = p.Categorical[:0]

	for _, c := range f.Columns() {
		if c.Role != model.RoleFeature {
			continue
		}
		switch c.Kind {
		case model.KindNumeric:
			p.Numeric = append(p.Numeric, fitScaler(c.Name, c.Numbers))
		case model.KindCategorical:
			p.Categorical = append(p.Categorical, fitEncoder(c.Name, c.Labels))
		}
	}
	if len(p.Numeric)+len(p.Categorical) == 0 {
		return fmt.Errorf("no feature columns to fit")
	}

	p.Fitted = true
	return nil
}

// FitTransform fits the plan and transforms the same frame.
func (p *PreprocessingPlan) FitTransform(f *model.Frame) ([][]float64, error) {
	if err := p.Fit(f); err != nil {
		return nil, err
	}
	return p.Transform(f)
}

// Transform encodes a frame into a row-major matrix whose columns follow
// FeatureNames. Absent numeric columns and NaN values take the fit mean;
// absent categorical columns and novel values set the unknown bucket.
func (p *PreprocessingPlan) Transform(f *model.Frame) ([][]float64, error) {
	if !p.Fitted {
		return nil, model.ErrNotFitted
	}

	n := f.Rows()
	width := p.Width()
	X := make([][]float64, n)
	for i := range X {
		X[i] = make([]float64, width)
	}

	col := 0
	for _, s := range p.Numeric {
		values, ok := f.Numeric(s.Column)
		for i := 0; i < n; i++ {
			v := s.Mean
			if ok && !math.IsNaN(values[i]) && !math.IsInf(values[i], 0) {
				v = values[i]
			}
			X[i][col] = (v - s.Mean) / s.Std
		}
		col++
	}

	for _, e := range p.Categorical {
		c, ok := f.Column(e.Column)
		for i := 0; i < n; i++ {
			slot := len(e.Vocabulary)
			if ok {
				slot = e.index(c.StringAt(i))
			}
			X[i][col+slot] = 1
		}
		col += len(e.Vocabulary) + 1
	}

	return X, nil
}

// Width is the number of output columns.
func (p *PreprocessingPlan) Width() int {
	w := len(p.Numeric)
	for _, e := range p.Categorical {
		w += len(e.Vocabulary) + 1
	}
	return w
}

// FeatureNames lists the output columns in matrix order.
func (p *PreprocessingPlan) FeatureNames() []string {
	names := make([]string, 0, p.Width())
	for _, s := range p.Numeric {
		names = append(names, s.Column)
	}
	for _, e := range p.Categorical {
		for _, v := range e.Vocabulary {
			names = append(names, e.Column+"_"+v)
		}
		names = append(names, e.Column+"_"+UnknownCategory)
	}
	return names
}

// InputColumns lists the frame columns the plan reads, numeric first.
func (p *PreprocessingPlan) InputColumns() []string {
	cols := make([]string, 0, len(p.Numeric)+len(p.Categorical))
	for _, s := range p.Numeric {
		cols = append(cols, s.Column)
	}
	for _, e := range p.Categorical {
		cols = append(cols, e.Column)
	}
	return cols
}

// MissingColumns reports the plan inputs absent from the frame, or present
// with a different kind than at fit time.
func (p *PreprocessingPlan) MissingColumns(f *model.Frame) []string {
	var missing []string
	for _, s := range p.Numeric {
		if _, ok := f.Numeric(s.Column); !ok {
			missing = append(missing, s.Column)
		}
	}
	for _, e := range p.Categorical {
		if _, ok := f.Labels(e.Column); !ok {
			missing = append(missing, e.Column)
		}
	}
	return missing
}

func fitScaler(name string, values []float64) NumericScaler {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return NumericScaler{Column: name, Mean: 0, Std: 1}
	}
	mean, std := stat.PopMeanStdDev(finite, nil)
	if std == 0 || math.IsNaN(std) {
		std = 1
	}
	return NumericScaler{Column: name, Mean: mean, Std: std}
}

func fitEncoder(name string, labels []string) CategoryEncoder {
	seen := make(map[string]struct{}, 8)
	for _, l := range labels {
		if l == UnknownCategory {
			continue
		}
		seen[l] = struct{}{}
	}
	vocab := make([]string, 0, len(seen))
	for l := range seen {
		vocab = append(vocab, l)
	}
	sort.Strings(vocab)
	return CategoryEncoder{Column: name, Vocabulary: vocab}
}

// index returns the vocabulary slot for v, or the unknown slot.
func (e CategoryEncoder) index(v string) int {
	i := sort.SearchStrings(e.Vocabulary, v)
	if i < len(e.Vocabulary) && e.Vocabulary[i] == v {
		return i
	}
	return len(e.Vocabulary)
}
