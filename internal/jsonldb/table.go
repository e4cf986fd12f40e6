package jsonldb

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// ErrRowNotFound is returned by Modify and Delete when no row has the given ID.
var ErrRowNotFound = errors.New("row not found")

// ErrDuplicateRow is returned by Append when a row with the same ID exists.
var ErrDuplicateRow = errors.New("duplicate row ID")

// Row is implemented by types stored in a Table.
type Row[T any] interface {
	// Clone returns a deep copy of the row.
	Clone() T
	// GetID returns the row's unique identifier.
	GetID() ID
	// Validate checks that the row is well formed before it is persisted.
	Validate() error
}

// TableObserver is notified of table mutations. Used by secondary indexes.
type TableObserver[T any] interface {
	OnAppend(row T)
	OnUpdate(prev, curr T)
	OnDelete(row T)
}

// Table handles storage and in-memory caching for a single table in JSONL
// format. Rows are kept sorted by ID.
type Table[T Row[T]] struct {
	path string

	mu        sync.RWMutex
	rows      []T
	observers []TableObserver[T]
}

// NewTable creates a new Table and loads all data from the file.
func NewTable[T Row[T]](path string) (*Table[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	t := &Table[T]{path: path}
	if err := t.load(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table[T]) load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			t.rows = []T{}
			return nil
		}
		return fmt.Errorf("failed to open table file %s: %w", t.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var rows []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var row T
		if err := json.Unmarshal(line, &row); err != nil {
			return fmt.Errorf("failed to unmarshal row in %s: %w", t.path, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read table file %s: %w", t.path, err)
	}

	// Sort by ID on load if out of order (handles clock drift, manual edits).
	slices.SortStableFunc(rows, func(a, b T) int { return a.GetID().Compare(b.GetID()) })
	t.rows = rows
	return nil
}

// AddObserver registers an observer that is notified of future mutations.
func (t *Table[T]) AddObserver(obs TableObserver[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, obs)
}

// Len returns the number of rows.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// find returns the index of the row with the given ID, or -1.
// Caller must hold at least the read lock.
func (t *Table[T]) find(id ID) int {
	i, found := slices.BinarySearchFunc(t.rows, id, func(row T, target ID) int {
		return row.GetID().Compare(target)
	})
	if !found {
		return -1
	}
	return i
}

// Get returns a clone of the row with the given ID, or the zero value if absent.
func (t *Table[T]) Get(id ID) T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i := t.find(id); i >= 0 {
		return t.rows[i].Clone()
	}
	var zero T
	return zero
}

// All returns an iterator over clones of all rows, in ID order.
func (t *Table[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		t.mu.RLock()
		defer t.mu.RUnlock()
		for _, row := range t.rows {
			if !yield(row.Clone()) {
				return
			}
		}
	}
}

// Append adds a new row to the table and persists it.
func (t *Table[T]) Append(row T) error {
	if err := row.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if i := t.find(row.GetID()); i >= 0 {
		return fmt.Errorf("%w %s", ErrDuplicateRow, row.GetID())
	}

	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open table file for append: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	if _, err := f.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	t.rows = append(t.rows, row)
	// Appends are normally in ID order; re-sort only when they are not.
	if len(t.rows) > 1 && t.rows[len(t.rows)-2].GetID().Compare(row.GetID()) > 0 {
		slices.SortStableFunc(t.rows, func(a, b T) int { return a.GetID().Compare(b.GetID()) })
	}
	for _, obs := range t.observers {
		obs.OnAppend(row.Clone())
	}
	return nil
}

// Modify applies fn to a clone of the row with the given ID and persists the
// result. The write lock is held for the entire read-modify-write, so fn must
// not call back into the table. Returns a clone of the updated row.
func (t *Table[T]) Modify(id ID, fn func(row T) error) (T, error) {
	var zero T
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.find(id)
	if i < 0 {
		return zero, ErrRowNotFound
	}
	prev := t.rows[i]
	curr := prev.Clone()
	if err := fn(curr); err != nil {
		return zero, err
	}
	if curr.GetID() != id {
		return zero, fmt.Errorf("row ID cannot be modified")
	}
	if err := curr.Validate(); err != nil {
		return zero, err
	}

	rows := slices.Clone(t.rows)
	rows[i] = curr
	if err := t.persist(rows); err != nil {
		return zero, err
	}
	t.rows = rows
	for _, obs := range t.observers {
		obs.OnUpdate(prev.Clone(), curr.Clone())
	}
	return curr.Clone(), nil
}

// Upsert inserts the row, replacing any existing row with the same ID.
func (t *Table[T]) Upsert(row T) error {
	if err := row.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	rows := slices.Clone(t.rows)
	if i := t.find(row.GetID()); i >= 0 {
		prev := t.rows[i]
		rows[i] = row
		if err := t.persist(rows); err != nil {
			return err
		}
		t.rows = rows
		for _, obs := range t.observers {
			obs.OnUpdate(prev.Clone(), row.Clone())
		}
		return nil
	}

	rows = append(rows, row)
	slices.SortStableFunc(rows, func(a, b T) int { return a.GetID().Compare(b.GetID()) })
	if err := t.persist(rows); err != nil {
		return err
	}
	t.rows = rows
	for _, obs := range t.observers {
		obs.OnAppend(row.Clone())
	}
	return nil
}

// Delete removes the row with the given ID and persists the change.
func (t *Table[T]) Delete(id ID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.find(id)
	if i < 0 {
		return ErrRowNotFound
	}
	prev := t.rows[i]
	rows := slices.Delete(slices.Clone(t.rows), i, i+1)
	if err := t.persist(rows); err != nil {
		return err
	}
	t.rows = rows
	for _, obs := range t.observers {
		obs.OnDelete(prev.Clone())
	}
	return nil
}

// persist rewrites the whole file. Caller must hold the write lock.
func (t *Table[T]) persist(rows []T) error {
	f, err := os.Create(t.path)
	if err != nil {
		return fmt.Errorf("failed to create table file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	writer := bufio.NewWriter(f)
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal row: %w", err)
		}
		if _, err := writer.Write(data); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write newline: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	return nil
}
