// Package rowstore abstracts the tabular persistence backend used by all
// feature state machines. The contract mirrors a spreadsheet: ordered rows
// under named tables, appended at the end and mutated cell-by-cell. There are
// no transactions and no compare-and-swap; callers that need consistency must
// serialize their own read-modify-write cycles.
package rowstore

import (
	"context"
	"errors"
)

// ErrRowOutOfRange is returned by UpdateCell when the addressed row does not exist.
var ErrRowOutOfRange = errors.New("rowstore: row index out of range")

// Store is the generic row-store capability.
//
// ListRows returns data rows in insertion order, excluding the header row.
// Row/column addressing in UpdateCell matches spreadsheet conventions: row is
// 1-based and includes the header (so the first data row is row 2), col is
// 1-based. A data row at index i of ListRows lives at sheet row i+2.
type Store interface {
	ListRows(ctx context.Context, table string) ([][]string, error)
	AppendRow(ctx context.Context, table string, values []string) error
	UpdateCell(ctx context.Context, table string, row, col int, value string) error
	Ping(ctx context.Context) error
}

// DataRow converts a 0-based ListRows index to the 1-based sheet row used by
// UpdateCell.
func DataRow(i int) int { return i + 2 }
