// Package csvsource reads and writes raw customer tables as CSV.
package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/spf13/cast"

	"github.com/bibbank/churn-service/internal/domain/model"
)

// CustomerReader loads the training customer table from a CSV file. It
// implements port.CustomerSource.
type CustomerReader struct {
	logger *slog.Logger
	path   string
}

// NewCustomerReader creates a reader for the CSV file at path.
func NewCustomerReader(path string, logger *slog.Logger) *CustomerReader {
	return &CustomerReader{path: path, logger: logger}
}

// LoadCustomers reads the whole file into a raw customer frame.
func (r *CustomerReader) LoadCustomers(ctx context.Context) (*model.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("csvsource: open %s: %w", r.path, err)
	}
	defer f.Close()

	frame, err := ReadFrame(f)
	if err != nil {
		return nil, fmt.Errorf("csvsource: %s: %w", r.path, err)
	}
	r.logger.InfoContext(ctx, "customer data loaded",
		slog.String("path", r.path),
		slog.Int("rows", frame.Rows()),
		slog.Int("columns", len(frame.Columns())),
	)
	return frame, nil
}

// ReadFrame parses a headed CSV into a raw customer frame. Known columns are
// typed by the customer schema. Any other column is numeric when every
// non-empty value parses as a number and categorical otherwise. Empty numeric
// cells become NaN so preprocessing can impute them; a blank Age falls into the
// unknown age group.
func ReadFrame(in io.Reader) (*model.Frame, error) {
	cr := csv.NewReader(in)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, model.ErrEmptyTable
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	frame := model.NewFrame(len(records))
	for col, name := range header {
		cells := make([]string, len(records))
		for i, rec := range records {
			cells[i] = strings.TrimSpace(rec[col])
		}
		if err := addColumn(frame, name, cells); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

func addColumn(frame *model.Frame, name string, cells []string) error {
	switch {
	case name == model.ColCustomerID:
		return frame.AddCategorical(name, model.RoleIdentifier, cells)
	case name == model.ColChurn:
		values, _ := parseNumbers(cells, true)
		return frame.AddNumeric(name, model.RoleTarget, values)
	case isKnownNumeric(name):
		values, bad := parseNumbers(cells, true)
		if bad >= 0 {
			return fmt.Errorf("column %s row %d: %q is not numeric", name, bad+1, cells[bad])
		}
		return frame.AddNumeric(name, model.RoleFeature, values)
	}

	if values, bad := parseNumbers(cells, false); bad < 0 {
		return frame.AddNumeric(name, model.RoleFeature, values)
	}
	return frame.AddCategorical(name, model.RoleFeature, cells)
}

// parseNumbers converts cells to floats, returning the index of the first
// unparsable cell or -1. Booleans are accepted when allowBool is set.
func parseNumbers(cells []string, allowBool bool) ([]float64, int) {
	values := make([]float64, len(cells))
	bad := -1
	for i, c := range cells {
		if c == "" {
			values[i] = math.NaN()
			continue
		}
		v, err := cast.ToFloat64E(c)
		if err != nil && allowBool {
			var b bool
			if b, err = cast.ToBoolE(c); err == nil {
				v = cast.ToFloat64(b)
			}
		}
		if err != nil {
			values[i] = math.NaN()
			if bad < 0 {
				bad = i
			}
			continue
		}
		values[i] = v
	}
	return values, bad
}

func isKnownNumeric(name string) bool {
	for _, c := range model.NumericSourceColumns {
		if c == name {
			return true
		}
	}
	return false
}
