package model

import (
	"fmt"
	"strconv"
)

// ColumnKind is the declared storage type of a column. Kinds are fixed when a
// column is added and are never re-inferred from the values.
type ColumnKind int

const (
	KindNumeric ColumnKind = iota
	KindCategorical
)

func (k ColumnKind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// ColumnRole tells downstream stages whether a column may be used as a predictor.
type ColumnRole int

const (
	RoleFeature ColumnRole = iota
	RoleIdentifier
	RoleTarget
)

// Column is a single named, typed column. Exactly one of Numbers or Labels is
// populated, depending on Kind.
type Column struct {
	Name    string
	Kind    ColumnKind
	Role    ColumnRole
	Numbers []float64
	Labels  []string
}

// Len returns the number of values held by the column.
func (c *Column) Len() int {
	if c.Kind == KindNumeric {
		return len(c.Numbers)
	}
	return len(c.Labels)
}

// StringAt renders the value at row i for tabular output.
func (c *Column) StringAt(i int) string {
	if c.Kind == KindNumeric {
		return strconv.FormatFloat(c.Numbers[i], 'f', -1, 64)
	}
	return c.Labels[i]
}

// Frame is a column-oriented table. Column order is insertion order.
type Frame struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// NewFrame creates an empty frame that will hold the given number of rows.
func NewFrame(rows int) *Frame {
	return &Frame{
		index: make(map[string]int),
		rows:  rows,
	}
}

// Rows returns the row count.
func (f *Frame) Rows() int { return f.rows }

// AddNumeric appends a numeric column.
func (f *Frame) AddNumeric(name string, role ColumnRole, values []float64) error {
	return f.add(&Column{Name: name, Kind: KindNumeric, Role: role, Numbers: values})
}

// AddCategorical appends a categorical column.
func (f *Frame) AddCategorical(name string, role ColumnRole, values []string) error {
	return f.add(&Column{Name: name, Kind: KindCategorical, Role: role, Labels: values})
}

func (f *Frame) add(c *Column) error {
	if _, exists := f.index[c.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateColumn, c.Name)
	}
	if c.Len() != f.rows {
		return fmt.Errorf("%w: %s has %d values, frame has %d rows", ErrColumnLength, c.Name, c.Len(), f.rows)
	}
	f.index[c.Name] = len(f.columns)
	f.columns = append(f.columns, c)
	return nil
}

// Has reports whether a column is present.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the named column.
func (f *Frame) Column(name string) (*Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.columns[i], true
}

// Numeric returns the values of a numeric column.
func (f *Frame) Numeric(name string) ([]float64, bool) {
	c, ok := f.Column(name)
	if !ok || c.Kind != KindNumeric {
		return nil, false
	}
	return c.Numbers, true
}

// Labels returns the values of a categorical column.
func (f *Frame) Labels(name string) ([]string, bool) {
	c, ok := f.Column(name)
	if !ok || c.Kind != KindCategorical {
		return nil, false
	}
	return c.Labels, true
}

// Columns returns the columns in insertion order.
func (f *Frame) Columns() []*Column { return f.columns }

// Names returns the column names in insertion order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name
	}
	return names
}

// Subset returns a new frame holding copies of the given rows, in the given order.
func (f *Frame) Subset(rows []int) *Frame {
	out := NewFrame(len(rows))
	for _, c := range f.columns {
		nc := &Column{Name: c.Name, Kind: c.Kind, Role: c.Role}
		if c.Kind == KindNumeric {
			nc.Numbers = make([]float64, len(rows))
			for i, r := range rows {
				nc.Numbers[i] = c.Numbers[r]
			}
		} else {
			nc.Labels = make([]string, len(rows))
			for i, r := range rows {
				nc.Labels[i] = c.Labels[r]
			}
		}
		out.index[nc.Name] = len(out.columns)
		out.columns = append(out.columns, nc)
	}
	return out
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	rows := make([]int, f.rows)
	for i := range rows {
		rows[i] = i
	}
	return f.Subset(rows)
}
