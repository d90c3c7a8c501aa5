package rowstore

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreAppendAndList(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.AppendRow(ctx, "Tasks", []string{"alice", "u1", "read"}); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendRow(ctx, "Tasks", []string{"bob", "u2", "write"}); err != nil {
		t.Fatal(err)
	}

	rows, err := s.ListRows(ctx, "Tasks")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0][0] != "alice" || rows[1][0] != "bob" {
		t.Fatalf("unexpected rows: %v", rows)
	}

	// Tables are independent.
	other, _ := s.ListRows(ctx, "Goals")
	if len(other) != 0 {
		t.Errorf("Goals should be empty, got %v", other)
	}
}

func TestMemoryStoreListCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.AppendRow(ctx, "Tasks", []string{"alice"})

	rows, _ := s.ListRows(ctx, "Tasks")
	rows[0][0] = "mutated"

	again, _ := s.ListRows(ctx, "Tasks")
	if again[0][0] != "alice" {
		t.Errorf("caller mutation leaked into the store: %v", again)
	}
}

func TestMemoryStoreUpdateCell(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.AppendRow(ctx, "Tasks", []string{"alice", "u1", "read"})

	// Row addressing is 1-based including the header, so data row 0 is sheet row 2.
	if err := s.UpdateCell(ctx, "Tasks", DataRow(0), 3, "write"); err != nil {
		t.Fatal(err)
	}
	rows, _ := s.ListRows(ctx, "Tasks")
	if rows[0][2] != "write" {
		t.Errorf("cell not updated: %v", rows)
	}

	// Ragged rows are padded to reach the column.
	if err := s.UpdateCell(ctx, "Tasks", DataRow(0), 6, "Pending"); err != nil {
		t.Fatal(err)
	}
	rows, _ = s.ListRows(ctx, "Tasks")
	if len(rows[0]) != 6 || rows[0][5] != "Pending" {
		t.Errorf("row not padded: %v", rows[0])
	}
}

func TestMemoryStoreUpdateCellOutOfRange(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, c := range []struct{ row, col int }{
		{1, 1}, // header row
		{2, 0}, // column 0
		{2, 1}, // no data yet
	} {
		err := s.UpdateCell(ctx, "Tasks", c.row, c.col, "x")
		if !errors.Is(err, ErrRowOutOfRange) {
			t.Errorf("UpdateCell(%d,%d) err = %v, want ErrRowOutOfRange", c.row, c.col, err)
		}
	}
}

func TestDataRow(t *testing.T) {
	if DataRow(0) != 2 || DataRow(5) != 7 {
		t.Errorf("DataRow mapping wrong: %d %d", DataRow(0), DataRow(5))
	}
}
