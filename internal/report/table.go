package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/dbsmedya/straycheck/internal/types"
)

// maxCellWidth caps free-text columns in the console table.
const maxCellWidth = 32

var tableHeader = []string{"Object ID", "Observation Date", "Creator", "Bio Company"}

// WriteTable prints the report as an aligned plain-text table.
// Widths are measured in terminal cells so wide characters line up.
func WriteTable(w io.Writer, r *types.OrphanReport, loc *time.Location) error {
	if r != nil && r.Empty() {
		_, err := fmt.Fprintln(w, "All observation records have corresponding parent records.")
		return err
	}

	rows, err := Rows(r, loc)
	if err != nil {
		return err
	}

	cells := make([][]string, 0, len(rows)+1)
	cells = append(cells, tableHeader)
	for _, row := range rows {
		cells = append(cells, []string{
			strconv.FormatInt(row.ObjectID, 10),
			row.ObservationDate,
			runewidth.Truncate(row.Creator, maxCellWidth, "…"),
			runewidth.Truncate(row.Company, maxCellWidth, "…"),
		})
	}

	widths := make([]int, len(tableHeader))
	for _, line := range cells {
		for i, cell := range line {
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	for n, line := range cells {
		if err := writeLine(w, line, widths); err != nil {
			return err
		}
		if n == 0 {
			sep := make([]string, len(widths))
			for i, width := range widths {
				sep[i] = strings.Repeat("-", width)
			}
			if err := writeLine(w, sep, widths); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeLine(w io.Writer, line []string, widths []int) error {
	padded := make([]string, len(line))
	for i, cell := range line {
		if i == len(line)-1 {
			padded[i] = cell
			continue
		}
		padded[i] = runewidth.FillRight(cell, widths[i])
	}
	_, err := fmt.Fprintln(w, strings.Join(padded, "  "))
	return err
}
