// SPDX-License-Identifier: MIT

package mable

import (
	"fmt"
	"slices"

	"github.com/katalvlaran/coherent/forecast"
	"github.com/katalvlaran/coherent/hierarchy"
	"github.com/katalvlaran/coherent/reconcile"
)

// Column is one named column of a Frame.
// The set of kinds is closed: *KeyColumn, *ModelColumn and *ValueColumn.
type Column interface {
	Name() string
	Len() int
	renamed(name string) Column
	take(rows []int) Column
}

// KeyColumn holds the values of one key variable.
type KeyColumn struct {
	name   string
	Values []hierarchy.Value

	// origin is the name given at construction; renames and row selection keep it.
	origin string
}

// ModelColumn holds one fitted model per row and the reconciliation tag of the column.
type ModelColumn struct {
	name     string
	Models   []forecast.Model
	Strategy reconcile.Strategy
}

// ValueColumn holds arbitrary per-row data.
type ValueColumn struct {
	name   string
	Values []any
}

// NewKeyColumn returns a key column.
func NewKeyColumn(name string, values []hierarchy.Value) *KeyColumn {
	return &KeyColumn{name: name, Values: values, origin: name}
}

// NewModelColumn returns an unreconciled model column.
func NewModelColumn(name string, models []forecast.Model) *ModelColumn {
	return &ModelColumn{name: name, Models: models, Strategy: reconcile.Unreconciled{}}
}

// NewValueColumn returns a plain data column.
func NewValueColumn(name string, values []any) *ValueColumn {
	return &ValueColumn{name: name, Values: values}
}

func (c *KeyColumn) Name() string   { return c.name }
func (c *ModelColumn) Name() string { return c.name }
func (c *ValueColumn) Name() string { return c.name }

func (c *KeyColumn) Len() int   { return len(c.Values) }
func (c *ModelColumn) Len() int { return len(c.Models) }
func (c *ValueColumn) Len() int { return len(c.Values) }

func (c *KeyColumn) renamed(name string) Column {
	return &KeyColumn{name: name, Values: c.Values, origin: c.origin}
}

func (c *ModelColumn) renamed(name string) Column {
	return &ModelColumn{name: name, Models: c.Models, Strategy: c.Strategy}
}

func (c *ValueColumn) renamed(name string) Column {
	return &ValueColumn{name: name, Values: c.Values}
}

func (c *KeyColumn) take(rows []int) Column {
	out := &KeyColumn{name: c.name, Values: make([]hierarchy.Value, len(rows)), origin: c.origin}
	for i, r := range rows {
		out.Values[i] = c.Values[r]
	}

	return out
}

func (c *ModelColumn) take(rows []int) Column {
	out := &ModelColumn{name: c.name, Models: make([]forecast.Model, len(rows)), Strategy: c.Strategy}
	for i, r := range rows {
		out.Models[i] = c.Models[r]
	}

	return out
}

func (c *ValueColumn) take(rows []int) Column {
	out := &ValueColumn{name: c.name, Values: make([]any, len(rows))}
	for i, r := range rows {
		out.Values[i] = c.Values[r]
	}

	return out
}

// Frame is an ordered set of named, equal-length columns.
// Frames are values: every verb returns a new Frame and leaves the receiver untouched.
type Frame struct {
	cols []Column
	n    int
}

// NewFrame validates and assembles columns.
//
// Errors:
//   - ErrDuplicateColumn if two columns share a name.
//   - ErrLengthMismatch if column lengths differ.
func NewFrame(cols ...Column) (*Frame, error) {
	f := &Frame{cols: make([]Column, 0, len(cols))}
	for i, c := range cols {
		if i == 0 {
			f.n = c.Len()
		}
		if c.Len() != f.n {
			return nil, mableErrorf("NewFrame",
				fmt.Errorf("column %q has %d rows, %q has %d: %w", c.Name(), c.Len(), cols[0].Name(), f.n, ErrLengthMismatch))
		}
		if f.index(c.Name()) >= 0 {
			return nil, mableErrorf("NewFrame", fmt.Errorf("%q: %w", c.Name(), ErrDuplicateColumn))
		}
		f.cols = append(f.cols, c)
	}

	return f, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.n }

// Plain returns f; it lets a Frame stand wherever a Tabular is expected.
func (f *Frame) Plain() *Frame { return f }

// Names returns the column names in order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.cols))
	for i, c := range f.cols {
		out[i] = c.Name()
	}

	return out
}

// Columns returns the columns in order.
func (f *Frame) Columns() []Column { return slices.Clone(f.cols) }

// Column returns the named column or ErrUnknownColumn.
func (f *Frame) Column(name string) (Column, error) {
	i := f.index(name)
	if i < 0 {
		return nil, mableErrorf("Column", fmt.Errorf("%q: %w", name, ErrUnknownColumn))
	}

	return f.cols[i], nil
}

func (f *Frame) index(name string) int {
	return slices.IndexFunc(f.cols, func(c Column) bool { return c.Name() == name })
}

// Select keeps the named columns, in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		c, err := f.Column(name)
		if err != nil {
			return nil, mableErrorf("Select", err)
		}
		cols = append(cols, c)
	}
	out, err := NewFrame(cols...)
	if err != nil {
		return nil, mableErrorf("Select", err)
	}
	out.n = f.n

	return out, nil
}

// Rename renames column from to to.
func (f *Frame) Rename(from, to string) (*Frame, error) {
	i := f.index(from)
	if i < 0 {
		return nil, mableErrorf("Rename", fmt.Errorf("%q: %w", from, ErrUnknownColumn))
	}
	if from == to {
		return f, nil
	}
	if f.index(to) >= 0 {
		return nil, mableErrorf("Rename", fmt.Errorf("%q: %w", to, ErrDuplicateColumn))
	}
	cols := slices.Clone(f.cols)
	cols[i] = cols[i].renamed(to)

	return &Frame{cols: cols, n: f.n}, nil
}

// Mutate adds col, or replaces the column with the same name in place.
func (f *Frame) Mutate(col Column) (*Frame, error) {
	if len(f.cols) > 0 && col.Len() != f.n {
		return nil, mableErrorf("Mutate",
			fmt.Errorf("column %q has %d rows, frame has %d: %w", col.Name(), col.Len(), f.n, ErrLengthMismatch))
	}
	cols := slices.Clone(f.cols)
	if i := f.index(col.Name()); i >= 0 {
		cols[i] = col
	} else {
		cols = append(cols, col)
	}

	return &Frame{cols: cols, n: col.Len()}, nil
}

// Filter keeps the rows for which keep returns true, preserving order.
func (f *Frame) Filter(keep func(row int) bool) (*Frame, error) {
	var rows []int
	for r := 0; r < f.n; r++ {
		if keep(r) {
			rows = append(rows, r)
		}
	}
	cols := make([]Column, len(f.cols))
	for i, c := range f.cols {
		cols[i] = c.take(rows)
	}

	return &Frame{cols: cols, n: len(rows)}, nil
}

// Verb is a tidy transformation of a Frame.
type Verb func(*Frame) (*Frame, error)

// Select is the verb form of (*Frame).Select.
func Select(names ...string) Verb {
	return func(f *Frame) (*Frame, error) { return f.Select(names...) }
}

// Rename is the verb form of (*Frame).Rename.
func Rename(from, to string) Verb {
	return func(f *Frame) (*Frame, error) { return f.Rename(from, to) }
}

// Mutate is the verb form of (*Frame).Mutate.
func Mutate(col Column) Verb {
	return func(f *Frame) (*Frame, error) { return f.Mutate(col) }
}

// Filter is the verb form of (*Frame).Filter; keep also receives the frame being filtered.
func Filter(keep func(f *Frame, row int) bool) Verb {
	return func(f *Frame) (*Frame, error) {
		return f.Filter(func(row int) bool { return keep(f, row) })
	}
}
