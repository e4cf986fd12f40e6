package jsonldb

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type testRow struct {
	ID    ID       `json:"id"`
	Name  string   `json:"name"`
	Tags  []string `json:"tags,omitempty"`
	Count int      `json:"count,omitempty"`
}

func (r *testRow) Clone() *testRow {
	c := *r
	if r.Tags != nil {
		c.Tags = make([]string, len(r.Tags))
		copy(c.Tags, r.Tags)
	}
	return &c
}

func (r *testRow) GetID() ID {
	return r.ID
}

func (r *testRow) Validate() error {
	if r.ID.IsZero() {
		return errors.New("id is required")
	}
	if r.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func TestTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.jsonl")
	table, err := NewTable[*testRow](path)
	if err != nil {
		t.Fatal(err)
	}

	id1 := NewID()
	id2 := NewID()

	t.Run("Append", func(t *testing.T) {
		if err := table.Append(&testRow{ID: id1, Name: "first"}); err != nil {
			t.Fatal(err)
		}
		if err := table.Append(&testRow{ID: id2, Name: "second", Tags: []string{"a"}}); err != nil {
			t.Fatal(err)
		}
		if table.Len() != 2 {
			t.Errorf("Len() = %d, want 2", table.Len())
		}
	})

	t.Run("Append rejects invalid row", func(t *testing.T) {
		if err := table.Append(&testRow{ID: NewID()}); err == nil {
			t.Error("expected validation error for empty name")
		}
		if table.Len() != 2 {
			t.Errorf("Len() = %d, want 2 after failed append", table.Len())
		}
	})

	t.Run("Append rejects duplicate ID", func(t *testing.T) {
		if err := table.Append(&testRow{ID: id1, Name: "dup"}); err == nil {
			t.Error("expected error for duplicate ID")
		}
	})

	t.Run("Get", func(t *testing.T) {
		row := table.Get(id1)
		if row == nil || row.Name != "first" {
			t.Fatalf("Get(id1) = %+v, want name first", row)
		}
		// Clone semantics: mutating the returned row must not affect the table.
		row.Name = "mutated"
		if table.Get(id1).Name != "first" {
			t.Error("Get must return a clone")
		}
		if table.Get(NewID()) != nil {
			t.Error("Get of unknown ID should return nil")
		}
	})

	t.Run("Modify", func(t *testing.T) {
		updated, err := table.Modify(id1, func(row *testRow) error {
			row.Count = 7
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if updated.Count != 7 {
			t.Errorf("updated.Count = %d, want 7", updated.Count)
		}
		if table.Get(id1).Count != 7 {
			t.Error("Modify did not persist in memory")
		}
	})

	t.Run("Modify unknown ID", func(t *testing.T) {
		if _, err := table.Modify(NewID(), func(row *testRow) error { return nil }); !errors.Is(err, ErrRowNotFound) {
			t.Errorf("err = %v, want ErrRowNotFound", err)
		}
	})

	t.Run("Modify rolls back on fn error", func(t *testing.T) {
		sentinel := errors.New("boom")
		_, err := table.Modify(id1, func(row *testRow) error {
			row.Count = 99
			return sentinel
		})
		if !errors.Is(err, sentinel) {
			t.Fatalf("err = %v, want sentinel", err)
		}
		if table.Get(id1).Count != 7 {
			t.Error("failed Modify must not change the row")
		}
	})

	t.Run("Modify cannot change ID", func(t *testing.T) {
		if _, err := table.Modify(id1, func(row *testRow) error {
			row.ID = NewID()
			return nil
		}); err == nil {
			t.Error("expected error when fn changes the row ID")
		}
	})

	t.Run("Upsert", func(t *testing.T) {
		if err := table.Upsert(&testRow{ID: id2, Name: "second v2"}); err != nil {
			t.Fatal(err)
		}
		if table.Get(id2).Name != "second v2" {
			t.Error("Upsert did not replace the row")
		}
		id3 := NewID()
		if err := table.Upsert(&testRow{ID: id3, Name: "third"}); err != nil {
			t.Fatal(err)
		}
		if table.Len() != 3 {
			t.Errorf("Len() = %d, want 3", table.Len())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := table.Delete(id2); err != nil {
			t.Fatal(err)
		}
		if table.Get(id2) != nil {
			t.Error("row still present after Delete")
		}
		if err := table.Delete(id2); !errors.Is(err, ErrRowNotFound) {
			t.Errorf("second Delete = %v, want ErrRowNotFound", err)
		}
	})

	t.Run("Reload", func(t *testing.T) {
		reloaded, err := NewTable[*testRow](path)
		if err != nil {
			t.Fatal(err)
		}
		if reloaded.Len() != table.Len() {
			t.Errorf("reloaded Len() = %d, want %d", reloaded.Len(), table.Len())
		}
		if got := reloaded.Get(id1); got == nil || got.Count != 7 {
			t.Errorf("reloaded row = %+v, want Count 7", got)
		}
	})
}

func TestTableLoadSortsOutOfOrderRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.jsonl")
	early := NewID()
	late := NewID()
	// Write rows with the later ID first.
	content := `{"id":"` + late.String() + `","name":"late"}` + "\n" +
		`{"id":"` + early.String() + `","name":"early"}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := NewTable[*testRow](path)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for row := range table.All() {
		names = append(names, row.Name)
	}
	if len(names) != 2 || names[0] != "early" || names[1] != "late" {
		t.Errorf("rows = %v, want [early late]", names)
	}
}

func TestID(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		id := NewID()
		decoded, err := DecodeID(id.String())
		if err != nil {
			t.Fatal(err)
		}
		if decoded != id {
			t.Errorf("DecodeID(%q) = %v, want %v", id.String(), decoded, id)
		}
	})

	t.Run("sortable encoding", func(t *testing.T) {
		a := NewID()
		b := NewID()
		if a.Compare(b) >= 0 {
			t.Fatalf("IDs not monotonic: %v >= %v", a, b)
		}
		if a.String() >= b.String() {
			t.Errorf("encoding not lexicographically sortable: %q >= %q", a.String(), b.String())
		}
	})

	t.Run("zero JSON", func(t *testing.T) {
		data, err := ID(0).MarshalJSON()
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != `""` {
			t.Errorf("zero ID marshals to %s, want empty string", data)
		}
		var id ID
		if err := id.UnmarshalJSON([]byte(`""`)); err != nil {
			t.Fatal(err)
		}
		if !id.IsZero() {
			t.Error("empty string should unmarshal to zero ID")
		}
	})

	t.Run("invalid decode", func(t *testing.T) {
		if _, err := DecodeID("short"); err == nil {
			t.Error("expected error for wrong length")
		}
		if _, err := DecodeID("!!!!!!!!!!!"); err == nil {
			t.Error("expected error for invalid characters")
		}
	})
}

func TestUniqueIndex(t *testing.T) {
	table, err := NewTable[*testRow](filepath.Join(t.TempDir(), "rows.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	byName := NewUniqueIndex(table, func(r *testRow) string { return r.Name })

	id := NewID()
	if err := table.Append(&testRow{ID: id, Name: "alpha"}); err != nil {
		t.Fatal(err)
	}
	if got := byName.Get("alpha"); got == nil || got.ID != id {
		t.Fatalf("Get(alpha) = %+v, want id %v", got, id)
	}

	if _, err := table.Modify(id, func(r *testRow) error {
		r.Name = "beta"
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if byName.Get("alpha") != nil {
		t.Error("stale key still resolves after rename")
	}
	if byName.Get("beta") == nil {
		t.Error("new key does not resolve after rename")
	}

	if err := table.Delete(id); err != nil {
		t.Fatal(err)
	}
	if byName.Get("beta") != nil {
		t.Error("key still resolves after delete")
	}
}

func TestIndex(t *testing.T) {
	table, err := NewTable[*testRow](filepath.Join(t.TempDir(), "rows.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	byCount := NewIndex(table, func(r *testRow) int { return r.Count })

	for _, name := range []string{"a", "b", "c"} {
		count := 1
		if name == "c" {
			count = 2
		}
		if err := table.Append(&testRow{ID: NewID(), Name: name, Count: count}); err != nil {
			t.Fatal(err)
		}
	}

	n := 0
	for range byCount.Iter(1) {
		n++
	}
	if n != 2 {
		t.Errorf("Iter(1) yielded %d rows, want 2", n)
	}
	m := 0
	for range byCount.Iter(3) {
		m++
	}
	if m != 0 {
		t.Errorf("Iter(3) yielded %d rows, want 0", m)
	}
}
