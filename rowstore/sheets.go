package rowstore

import (
	"context"
	"fmt"
	"strconv"

	sheets "google.golang.org/api/sheets/v4"
	"google.golang.org/api/option"
)

// SheetsStore implements Store against a single Google spreadsheet, one sheet
// tab per table. All access goes through the Sheets API values endpoints.
type SheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
}

// NewSheetsStore builds a SheetsStore for the given spreadsheet. Credentials
// come from the supplied client options (service-account JSON in production,
// an endpoint override in tests).
func NewSheetsStore(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*SheetsStore, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("sheets store: spreadsheet id empty")
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &SheetsStore{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// ListRows fetches all data rows of a sheet tab (header row excluded).
func (s *SheetsStore) ListRows(ctx context.Context, table string) ([][]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, table+"!A2:Z").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets get %s: %w", table, err)
	}
	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			row = append(row, fmt.Sprintf("%v", cell))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// AppendRow appends values as a new row at the bottom of the sheet tab.
func (s *SheetsStore) AppendRow(ctx context.Context, table string, values []string) error {
	raw := make([]interface{}, len(values))
	for i, v := range values {
		raw[i] = v
	}
	vr := &sheets.ValueRange{Values: [][]interface{}{raw}}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, table+"!A1", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets append %s: %w", table, err)
	}
	return nil
}

// UpdateCell writes a single cell. row is 1-based including the header, col is
// 1-based, matching A1 addressing.
func (s *SheetsStore) UpdateCell(ctx context.Context, table string, row, col int, value string) error {
	if row < 2 || col < 1 {
		return ErrRowOutOfRange
	}
	a1 := fmt.Sprintf("%s!%s%s", table, columnLetter(col), strconv.Itoa(row))
	vr := &sheets.ValueRange{Values: [][]interface{}{{value}}}
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, a1, vr).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets update %s: %w", a1, err)
	}
	return nil
}

// Ping verifies the spreadsheet is reachable with the current credentials.
func (s *SheetsStore) Ping(ctx context.Context) error {
	_, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets ping: %w", err)
	}
	return nil
}

// columnLetter converts a 1-based column index to its A1 letter form (A..Z, AA..).
func columnLetter(col int) string {
	s := ""
	for col > 0 {
		col--
		s = string(rune('A'+col%26)) + s
		col /= 26
	}
	return s
}
