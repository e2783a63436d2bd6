// SPDX-License-Identifier: MIT

package mable

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownColumn indicates a column name absent from the frame.
	ErrUnknownColumn = errors.New("mable: unknown column")

	// ErrDuplicateColumn indicates two columns with the same name.
	ErrDuplicateColumn = errors.New("mable: duplicate column")

	// ErrLengthMismatch indicates columns of different lengths.
	ErrLengthMismatch = errors.New("mable: column length mismatch")

	// ErrNotKeyColumn indicates a key variable whose column does not hold key values.
	ErrNotKeyColumn = errors.New("mable: not a key column")

	// ErrNotModelColumn indicates a model variable whose column does not hold models.
	ErrNotModelColumn = errors.New("mable: not a model column")

	// ErrEmptyModelTable indicates a model table without any model column.
	ErrEmptyModelTable = errors.New("mable: a model table needs at least one model column")

	// ErrInvalidResponse indicates model cells that disagree on the response variable.
	ErrInvalidResponse = errors.New("mable: models must share one response variable")

	// ErrNonUniqueKey indicates two rows with the same key tuple.
	ErrNonUniqueKey = errors.New("mable: key is not unique")

	// ErrMissingKey indicates a verb that dropped a key column.
	ErrMissingKey = errors.New("mable: key column dropped")
)

func mableErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}
