// Package csvimport reads transfer recipients from CSV files with rows of
// the form "address,amount".
package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Klingon-tech/coinforge/internal/planner"
	"github.com/Klingon-tech/coinforge/internal/units"
	"github.com/Klingon-tech/coinforge/pkg/types"
)

// Import errors.
var (
	ErrEmpty      = errors.New("no recipient rows in CSV")
	ErrInvalidRow = errors.New("invalid recipient row")
)

// Row is one raw recipient line. Line is 1-based.
type Row struct {
	Line    int
	Address string
	Amount  string
}

// Parse reads rows from r. Rows with fewer than two columns are skipped, as
// is a leading "address,amount" header. Extra columns are ignored.
func Parse(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var rows []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if len(rec) < 2 {
			continue
		}
		line, _ := cr.FieldPos(0)
		row := Row{
			Line:    line,
			Address: strings.TrimSpace(rec[0]),
			Amount:  strings.TrimSpace(rec[1]),
		}
		if len(rows) == 0 && isHeader(row) {
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, ErrEmpty
	}
	return rows, nil
}

// ParseFile is Parse on the named file.
func ParseFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func isHeader(r Row) bool {
	return strings.EqualFold(r.Address, "address") && strings.EqualFold(r.Amount, "amount")
}

// Recipients converts rows to planner recipients, scaling amounts by
// decimals. The first bad row fails the whole import.
func Recipients(rows []Row, decimals uint8) ([]planner.Recipient, error) {
	if len(rows) == 0 {
		return nil, ErrEmpty
	}
	out := make([]planner.Recipient, 0, len(rows))
	for _, r := range rows {
		addr, err := types.ParseAddress(r.Address)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidRow, r.Line, err)
		}
		amt, err := units.ToBaseUnits(r.Amount, decimals)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidRow, r.Line, err)
		}
		out = append(out, planner.Recipient{Address: addr, Amount: amt})
	}
	return out, nil
}

// WriteTemplate writes a sample file with a header and two rows.
func WriteTemplate(w io.Writer) error {
	cw := csv.NewWriter(w)
	records := [][]string{
		{"address", "amount"},
		{"0xabc0000000000000000000000000000000000000000000000000000000001234", "100.5"},
		{"0xdef0000000000000000000000000000000000000000000000000000000005678", "200"},
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	return nil
}
