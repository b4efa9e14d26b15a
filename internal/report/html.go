package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

const (
	cellStyle = "padding-left: 0.5em; padding-right: 0.5em;"
	numStyle  = "font-family: monospace; text-align: right;"
)

// The numeric cells are produced by this package and contain only digits,
// separators, signs and non-breaking spaces; they are passed as
// template.HTML so html/template does not entity-encode the "+" sign.
var htmlTemplate = template.Must(template.New("report").Parse(strings.NewReplacer(
	"$CELL", cellStyle,
	"$NUM", cellStyle+numStyle,
).Replace(`{{if .Initial}}<p>
    This is the initial snapshot.
    Everything will be counted as "new".
</p>
{{else}}<p>In the past {{.Days}} days and {{.Hours}} hours...</p>
{{end}}<h3>S3 buffer</h3>
<table>
<tr style="background-color: #eee">
    <th>Collaborator</th>
    <th colspan="2">Files</th>
    <th colspan="2">Size</th>
</tr>
{{range .Rows}}{{if .Shaded}}<tr style="background-color: #dfd">{{else}}<tr>{{end}}
<td style="$CELL">{{.Name}}</td>
<td style="$NUM">{{.Files}}</td>
<td style="$NUM">{{.DeltaFiles}}</td>
<td style="$NUM">{{.Size}}</td>
<td style="$NUM">{{.DeltaSize}}</td>
</tr>
{{end}}<tr>
<td style="$CELL"><b>{{.Total.Name}}</b></td>
<td style="$NUM">{{.Total.Files}}</td>
<td style="$NUM">{{.Total.DeltaFiles}}</td>
<td style="$NUM">{{.Total.Size}}</td>
<td style="$NUM">{{.Total.DeltaSize}}</td>
</tr>
</table>
`)))

type (
	htmlView struct {
		Initial bool
		Days    int
		Hours   int
		Rows    []htmlRow
		Total   htmlRow
	}

	htmlRow struct {
		Name       string
		Shaded     bool
		Files      template.HTML
		DeltaFiles template.HTML
		Size       template.HTML
		DeltaSize  template.HTML
	}
)

// HTML renders the report body.
func (r Report) HTML() (string, error) {
	days, hours := r.Span()
	view := htmlView{
		Initial: r.Initial(),
		Days:    days,
		Hours:   hours,
		Rows:    make([]htmlRow, len(r.Rows)),
		Total:   newHTMLRow(r.Total, false),
	}
	for i, row := range r.Rows {
		view.Rows[i] = newHTMLRow(row, i%2 == 1)
	}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

func newHTMLRow(row Row, shaded bool) htmlRow {
	return htmlRow{
		Name:       row.Name,
		Shaded:     shaded,
		Files:      template.HTML(Count(row.Files)),
		DeltaFiles: template.HTML(SignedCount(row.DeltaFiles)),
		Size:       template.HTML(HumanSize(row.Bytes)),
		DeltaSize:  template.HTML(SignedHumanSize(row.DeltaBytes)),
	}
}
