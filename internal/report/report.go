// Package report renders orphan reports as HTML mail bodies and console tables.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/dbsmedya/straycheck/internal/types"
)

// ErrFormatting is returned when a report cannot be rendered faithfully.
var ErrFormatting = errors.New("report formatting failed")

// NoOrphansMessage is the whole body sent when every child has a parent.
const NoOrphansMessage = "<p>All Observation Records Have Corresponding Parent Records.</p>"

// TimestampLayout is the local time format used in reports.
const TimestampLayout = "2006-01-02 15:04:05"

var orphanTable = template.Must(template.New("orphans").Parse(
	`<p>The following observation records do not have an associated parent bird nest point:</p>` +
		`<table border="1" cellpadding="4" cellspacing="0" style="border-collapse: collapse;">` +
		`<tr><th>Missing Parent Records (Object ID)</th><th>Observation Date</th><th>Creator</th><th>Bio Company</th></tr>` +
		`{{range .}}<tr><td>{{.ObjectID}}</td><td>{{.ObservationDate}}</td><td>{{.Creator}}</td><td>{{.Company}}</td></tr>{{end}}` +
		`</table>`))

// Row is one orphan prepared for display.
type Row struct {
	ObjectID        int64
	ObservationDate string
	Creator         string
	Company         string
}

// LocalTime reads the wall clock of naive as UTC and formats it in loc.
func LocalTime(naive time.Time, loc *time.Location) string {
	utc := time.Date(naive.Year(), naive.Month(), naive.Day(),
		naive.Hour(), naive.Minute(), naive.Second(), naive.Nanosecond(), time.UTC)
	return utc.In(loc).Format(TimestampLayout)
}

// Rows converts the report into display rows, in report order.
func Rows(r *types.OrphanReport, loc *time.Location) ([]Row, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: report is nil", ErrFormatting)
	}
	if loc == nil {
		return nil, fmt.Errorf("%w: time zone is nil", ErrFormatting)
	}

	rows := make([]Row, 0, r.Len())
	var missing []int64
	r.Each(func(objectID int64, o types.Orphan) {
		if o.ObservationDate == nil {
			missing = append(missing, objectID)
			return
		}
		rows = append(rows, Row{
			ObjectID:        objectID,
			ObservationDate: LocalTime(*o.ObservationDate, loc),
			Creator:         o.CreatorName,
			Company:         o.BioCompany,
		})
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: observation date is null for object IDs %v", ErrFormatting, missing)
	}
	return rows, nil
}

// RenderHTML renders the report as an HTML fragment. Cell values are escaped.
func RenderHTML(r *types.OrphanReport, loc *time.Location) (string, error) {
	if r != nil && r.Empty() {
		return NoOrphansMessage, nil
	}

	rows, err := Rows(r, loc)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := orphanTable.Execute(&buf, rows); err != nil {
		return "", fmt.Errorf("%w: %v", ErrFormatting, err)
	}
	return buf.String(), nil
}
