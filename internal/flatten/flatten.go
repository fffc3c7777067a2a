// Package flatten converts nested record trees into flat tabular rows.
//
// The algorithm is an iterative fixed point: each pass walks the current
// column set in order, exploding List columns into one row per element and
// expanding Object columns into underscore-joined child columns. Passes
// repeat until every column is scalar, which is guaranteed to terminate
// because each pass strictly reduces the remaining nesting depth.
//
// The transformation is pure: no I/O, no shared state, safe to run
// concurrently across jobs.
package flatten

import (
	"fmt"

	"jsonpress/internal/record"
	"jsonpress/internal/services"
)

// EmptyListPolicy controls what happens to a row whose list column is empty.
type EmptyListPolicy uint8

const (
	// DropEmptyLists removes the row, keeping one-row-per-leaf-element semantics.
	DropEmptyLists EmptyListPolicy = iota
	// KeepEmptyLists emits one row with a null cell instead.
	KeepEmptyLists
)

// PolicyFromString maps the config value to a policy. Unknown values fall
// back to DropEmptyLists.
func PolicyFromString(value string) EmptyListPolicy {
	if value == "keep" {
		return KeepEmptyLists
	}
	return DropEmptyLists
}

// Options configures a flattening pass.
type Options struct {
	EmptyLists EmptyListPolicy
}

// Row maps a column path to its scalar cell. Absent keys are null cells.
type Row map[string]record.Scalar

// Cell returns the scalar at the column path, or null when absent.
func (r Row) Cell(column string) record.Scalar {
	if v, ok := r[column]; ok {
		return v
	}
	return record.Null()
}

// Table is the flat result of one flattening pass over a batch: the resolved
// column-path set in first-seen order plus one Row per leaf combination.
type Table struct {
	Columns []string
	Rows    []Row
}

// Flatten converts a batch of records sharing a nominal schema into a
// rectangular table of scalar columns. Every input record must be an Object.
func Flatten(batch []*record.Node, opts Options) (*Table, error) {
	w, err := newWorkTable(batch)
	if err != nil {
		return nil, err
	}
	for w.hasNested() {
		if err := w.pass(opts); err != nil {
			return nil, err
		}
	}
	return w.finish(), nil
}

// columnKind is the resolved type of one column across the whole batch.
type columnKind uint8

const (
	colScalar columnKind = iota
	colList
	colObject
)

type workTable struct {
	columns []string
	colSet  map[string]struct{}
	rows    []map[string]*record.Node
}

func newWorkTable(batch []*record.Node) (*workTable, error) {
	if len(batch) == 0 {
		return nil, services.Wrap(services.ErrMalformedInput, "flatten", "init", "empty batch", nil)
	}
	w := &workTable{colSet: make(map[string]struct{})}
	for i, rec := range batch {
		if rec == nil || rec.Kind != record.KindObject {
			return nil, services.Wrap(services.ErrMalformedInput, "flatten", "init",
				fmt.Sprintf("record %d is not an object", i), nil)
		}
		row := make(map[string]*record.Node, len(rec.Fields))
		for _, f := range rec.Fields {
			row[f.Name] = f.Value
			if _, ok := w.colSet[f.Name]; !ok {
				w.colSet[f.Name] = struct{}{}
				w.columns = append(w.columns, f.Name)
			}
		}
		w.rows = append(w.rows, row)
	}
	return w, nil
}

func (w *workTable) hasNested() bool {
	for _, row := range w.rows {
		for _, v := range row {
			if v != nil && v.Kind != record.KindScalar {
				return true
			}
		}
	}
	return false
}

// pass applies one explode-or-expand step per column, in column order.
func (w *workTable) pass(opts Options) error {
	// Snapshot: columns added by object expansion are handled next pass.
	current := make([]string, len(w.columns))
	copy(current, w.columns)

	for _, col := range current {
		kind, err := w.resolveColumnKind(col)
		if err != nil {
			return err
		}
		switch kind {
		case colList:
			w.explode(col, opts)
		case colObject:
			if err := w.expandObject(col); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveColumnKind inspects a column across all rows. A column mixing
// scalar and list values widens to List (the scalar becomes a one-element
// list); any mix involving objects and another kind is a schema conflict.
func (w *workTable) resolveColumnKind(col string) (columnKind, error) {
	var sawScalar, sawList, sawObject bool
	for _, row := range w.rows {
		v := row[col]
		if v == nil {
			continue
		}
		switch v.Kind {
		case record.KindScalar:
			if !v.Scalar.IsNull() {
				sawScalar = true
			}
		case record.KindList:
			sawList = true
		case record.KindObject:
			sawObject = true
		}
	}
	if sawObject {
		if sawScalar || sawList {
			return 0, schemaConflict(col, "mixes object and non-object values")
		}
		return colObject, nil
	}
	if sawList {
		return colList, nil
	}
	return colScalar, nil
}

// explode turns each row with an N-element list into N rows, duplicating the
// other columns. Null or absent cells keep the row with a null cell; empty
// lists follow the configured policy. Scalars widen to one-element lists.
func (w *workTable) explode(col string, opts Options) {
	newRows := make([]map[string]*record.Node, 0, len(w.rows))
	for _, row := range w.rows {
		v := row[col]
		switch {
		case v == nil || (v.Kind == record.KindScalar && v.Scalar.IsNull()):
			delete(row, col)
			newRows = append(newRows, row)
		case v.Kind != record.KindList:
			// Widened scalar: already one value per row.
			newRows = append(newRows, row)
		case len(v.Elems) == 0:
			if opts.EmptyLists == KeepEmptyLists {
				delete(row, col)
				newRows = append(newRows, row)
			}
			// DropEmptyLists: the row vanishes.
		default:
			for _, elem := range v.Elems {
				clone := cloneRow(row)
				clone[col] = elem
				newRows = append(newRows, clone)
			}
		}
	}
	w.rows = newRows
}

// expandObject replaces a column with one child column per field, named
// parent_child. Generated names must not collide with existing columns.
func (w *workTable) expandObject(col string) error {
	// Child order: first seen across rows, preserving per-record field order.
	var childCols []string
	childSet := make(map[string]struct{})
	for _, row := range w.rows {
		v := row[col]
		if v == nil || v.Kind != record.KindObject {
			continue
		}
		for _, f := range v.Fields {
			path := col + "_" + f.Name
			if _, ok := childSet[path]; ok {
				continue
			}
			if _, exists := w.colSet[path]; exists {
				return schemaConflict(path, "generated column path collides with an existing column")
			}
			childSet[path] = struct{}{}
			childCols = append(childCols, path)
		}
	}

	w.replaceColumn(col, childCols)

	for _, row := range w.rows {
		v := row[col]
		delete(row, col)
		if v == nil || v.Kind != record.KindObject {
			continue
		}
		for _, f := range v.Fields {
			row[col+"_"+f.Name] = f.Value
		}
	}
	return nil
}

func (w *workTable) replaceColumn(col string, replacements []string) {
	delete(w.colSet, col)
	for _, c := range replacements {
		w.colSet[c] = struct{}{}
	}
	for i, c := range w.columns {
		if c != col {
			continue
		}
		out := make([]string, 0, len(w.columns)-1+len(replacements))
		out = append(out, w.columns[:i]...)
		out = append(out, replacements...)
		out = append(out, w.columns[i+1:]...)
		w.columns = out
		return
	}
}

// finish materializes the rectangular table once every column is scalar.
func (w *workTable) finish() *Table {
	t := &Table{Columns: w.columns, Rows: make([]Row, 0, len(w.rows))}
	for _, row := range w.rows {
		out := make(Row, len(row))
		for col, v := range row {
			if v == nil {
				continue
			}
			if !v.Scalar.IsNull() {
				out[col] = v.Scalar
			}
		}
		t.Rows = append(t.Rows, out)
	}
	return t
}

func cloneRow(row map[string]*record.Node) map[string]*record.Node {
	clone := make(map[string]*record.Node, len(row))
	for k, v := range row {
		clone[k] = v
	}
	return clone
}

func schemaConflict(path, message string) error {
	return services.Wrap(services.ErrSchemaConflict, "flatten", "pass",
		fmt.Sprintf("column %q %s", path, message), nil)
}
