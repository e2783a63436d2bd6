// SPDX-License-Identifier: MIT

package mable

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/katalvlaran/coherent/forecast"
	"github.com/katalvlaran/coherent/hierarchy"
	"github.com/katalvlaran/coherent/reconcile"
)

// Tabular is either a *ModelTable or a plain *Frame.
type Tabular interface {
	Len() int
	Plain() *Frame
}

// ModelTable is a Frame whose rows are identified by key columns and which carries at
// least one model column, every model sharing one response variable.
type ModelTable struct {
	frame    *Frame
	keys     []string
	models   []string
	response string
}

var (
	_ Tabular = (*ModelTable)(nil)
	_ Tabular = (*Frame)(nil)
)

// Build validates frame as a model table.
// keys name *KeyColumn columns; models name *ModelColumn columns, and when none are
// named every model column of the frame is used.
//
// Implementation:
//   - Stage 1: resolve key and model columns.
//   - Stage 2: every model cell must exist and report the same Response().
//   - Stage 3: key tuples must be unique across rows.
//
// Errors:
//   - ErrUnknownColumn, ErrNotKeyColumn, ErrNotModelColumn.
//   - ErrEmptyModelTable when no model column remains.
//   - ErrInvalidResponse names both responses with the offending column and row.
//   - ErrNonUniqueKey names the tuple and both rows.
func Build(frame *Frame, keys []string, models ...string) (*ModelTable, error) {
	const tag = "Build"
	if frame == nil {
		return nil, mableErrorf(tag, fmt.Errorf("nil frame: %w", ErrEmptyModelTable))
	}

	// Stage 1
	keyCols := make([]*KeyColumn, len(keys))
	for i, k := range keys {
		c, err := frame.Column(k)
		if err != nil {
			return nil, mableErrorf(tag, err)
		}
		kc, ok := c.(*KeyColumn)
		if !ok {
			return nil, mableErrorf(tag, fmt.Errorf("%q is %T: %w", k, c, ErrNotKeyColumn))
		}
		keyCols[i] = kc
	}
	if len(models) == 0 {
		for _, c := range frame.cols {
			if _, ok := c.(*ModelColumn); ok {
				models = append(models, c.Name())
			}
		}
	}
	if len(models) == 0 {
		return nil, mableErrorf(tag, ErrEmptyModelTable)
	}
	modelCols := make([]*ModelColumn, len(models))
	for i, m := range models {
		c, err := frame.Column(m)
		if err != nil {
			return nil, mableErrorf(tag, err)
		}
		mc, ok := c.(*ModelColumn)
		if !ok {
			return nil, mableErrorf(tag, fmt.Errorf("%q is %T: %w", m, c, ErrNotModelColumn))
		}
		modelCols[i] = mc
	}

	// Stage 2
	response, first := "", ""
	for _, mc := range modelCols {
		for row, m := range mc.Models {
			if m == nil {
				return nil, mableErrorf(tag, fmt.Errorf("column %q row %d has no model: %w", mc.name, row, ErrInvalidResponse))
			}
			if first == "" {
				response, first = m.Response(), fmt.Sprintf("column %q row %d", mc.name, row)
				continue
			}
			if r := m.Response(); r != response {
				return nil, mableErrorf(tag, fmt.Errorf("%s models %q but column %q row %d models %q: %w",
					first, response, mc.name, row, r, ErrInvalidResponse))
			}
		}
	}

	// Stage 3
	seen := make(map[string]int, frame.n)
	for row := 0; row < frame.n; row++ {
		tuple := keyTuple(keyCols, row)
		if prev, dup := seen[tuple]; dup {
			return nil, mableErrorf(tag, fmt.Errorf("(%s) appears in rows %d and %d: %w", tuple, prev, row, ErrNonUniqueKey))
		}
		seen[tuple] = row
	}

	return &ModelTable{
		frame:    frame,
		keys:     slices.Clone(keys),
		models:   slices.Clone(models),
		response: response,
	}, nil
}

func keyTuple(cols []*KeyColumn, row int) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c.name + "=" + c.Values[row].String()
	}

	return strings.Join(parts, ", ")
}

// Len returns the number of rows (series).
func (t *ModelTable) Len() int { return t.frame.n }

// Plain drops the model-table metadata and returns the underlying frame.
func (t *ModelTable) Plain() *Frame { return t.frame }

// KeyVariables returns the key column names.
func (t *ModelTable) KeyVariables() []string { return slices.Clone(t.keys) }

// ModelVariables returns the model column names.
func (t *ModelTable) ModelVariables() []string { return slices.Clone(t.models) }

// Response returns the response variable shared by every model ("" for an empty table).
func (t *ModelTable) Response() string { return t.response }

// KeyData groups the rows by key tuple into the hierarchy's node list.
func (t *ModelTable) KeyData() (hierarchy.KeyData, error) {
	cols := make([]*KeyColumn, len(t.keys))
	for i, k := range t.keys {
		c, err := t.frame.Column(k)
		if err != nil {
			return hierarchy.KeyData{}, mableErrorf("KeyData", err)
		}
		cols[i] = c.(*KeyColumn)
	}
	rows := make([][]hierarchy.Value, t.frame.n)
	for r := range rows {
		rows[r] = make([]hierarchy.Value, len(cols))
		for i, c := range cols {
			rows[r][i] = c.Values[r]
		}
	}
	kd, err := hierarchy.FromRows(t.keys, rows)
	if err != nil {
		return hierarchy.KeyData{}, mableErrorf("KeyData", err)
	}

	return kd, nil
}

// ModelColumn returns the named model column.
func (t *ModelTable) ModelColumn(name string) (*ModelColumn, error) {
	if !slices.Contains(t.models, name) {
		return nil, mableErrorf("ModelColumn", fmt.Errorf("%q: %w", name, ErrNotModelColumn))
	}
	c, err := t.frame.Column(name)
	if err != nil {
		return nil, mableErrorf("ModelColumn", err)
	}

	return c.(*ModelColumn), nil
}

// Apply runs v and re-validates the result as a model table. Model columns are
// recomputed from the cell types that survive the verb.
//
// Errors:
//   - ErrMissingKey if v dropped or retyped a key column.
//   - ErrEmptyModelTable if no model column survives.
//   - any Build or verb error.
func (t *ModelTable) Apply(v Verb) (*ModelTable, error) {
	const tag = "Apply"
	f, err := v(t.frame)
	if err != nil {
		return nil, mableErrorf(tag, err)
	}
	keys := make([]string, len(t.keys))
	for i, k := range t.keys {
		if keys[i], err = t.followKey(f, k); err != nil {
			return nil, mableErrorf(tag, err)
		}
	}
	var models []string
	for _, c := range f.cols {
		if _, ok := c.(*ModelColumn); ok {
			models = append(models, c.Name())
		}
	}
	if len(models) == 0 {
		return nil, mableErrorf(tag, ErrEmptyModelTable)
	}
	out, err := Build(f, keys, models...)
	if err != nil {
		return nil, mableErrorf(tag, err)
	}

	return out, nil
}

// followKey returns the name key k carries in f. A key column keeps its name unless
// renamed; a renamed one is found by the name it was constructed with.
func (t *ModelTable) followKey(f *Frame, k string) (string, error) {
	if c, err := f.Column(k); err == nil {
		if _, ok := c.(*KeyColumn); !ok {
			return "", fmt.Errorf("%q is now %T: %w", k, c, ErrMissingKey)
		}

		return k, nil
	}
	prev, err := t.frame.Column(k)
	if err != nil {
		return "", fmt.Errorf("%q: %w", k, ErrMissingKey)
	}
	origin := prev.(*KeyColumn).origin
	found := ""
	for _, c := range f.cols {
		kc, ok := c.(*KeyColumn)
		if !ok || kc.origin != origin || slices.Contains(t.keys, kc.name) {
			continue
		}
		if found != "" {
			return "", fmt.Errorf("%q renamed to both %q and %q: %w", k, found, kc.name, ErrMissingKey)
		}
		found = kc.name
	}
	if found == "" {
		return "", fmt.Errorf("%q: %w", k, ErrMissingKey)
	}

	return found, nil
}

// ApplyOrPlain is Apply that degrades to the plain frame instead of failing when v
// leaves no model column or drops a key.
func (t *ModelTable) ApplyOrPlain(v Verb) (Tabular, error) {
	out, err := t.Apply(v)
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, ErrEmptyModelTable), errors.Is(err, ErrMissingKey):
		f, verr := v(t.frame)
		if verr != nil {
			return nil, mableErrorf("ApplyOrPlain", verr)
		}

		return f, nil
	default:
		return nil, err
	}
}

// Reconcile tags a model column with s. Nothing is computed until Forecast; the
// receiver is left unchanged and the new table shares its model handles.
func (t *ModelTable) Reconcile(column string, s reconcile.Strategy) (*ModelTable, error) {
	mc, err := t.ModelColumn(column)
	if err != nil {
		return nil, mableErrorf("Reconcile", err)
	}
	if s == nil {
		s = reconcile.Unreconciled{}
	}
	f, err := t.frame.Mutate(&ModelColumn{name: mc.name, Models: mc.Models, Strategy: s})
	if err != nil {
		return nil, mableErrorf("Reconcile", err)
	}

	return &ModelTable{frame: f, keys: t.keys, models: t.models, response: t.response}, nil
}

// Forecast forecasts every series of column h steps ahead and reconciles them with
// the column's strategy over the table's own key structure.
func (t *ModelTable) Forecast(ctx context.Context, column string, h int, opts ...reconcile.Option) (*reconcile.Result, error) {
	const tag = "Forecast"
	mc, err := t.ModelColumn(column)
	if err != nil {
		return nil, mableErrorf(tag, err)
	}
	kd, err := t.KeyData()
	if err != nil {
		return nil, mableErrorf(tag, err)
	}
	models := make([]forecast.Model, kd.Len())
	for i, n := range kd.Nodes {
		models[i] = mc.Models[n.Rows[0]]
	}
	res, err := reconcile.Run(ctx, reconcile.Input{Keys: kd, Models: models, Strategy: mc.Strategy, Horizon: h}, opts...)
	if err != nil {
		return nil, mableErrorf(tag, err)
	}

	return res, nil
}
