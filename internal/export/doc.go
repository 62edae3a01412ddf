package export

import (
	"fmt"
	"html/template"
	"io"
)

var docTemplate = template.Must(template.New("doc").Parse(`<html>
  <head>
    <meta charset="utf-8"/>
    <style>
      body { font-family: Calibri, Arial, sans-serif; }
      h1 { font-size: 16pt; margin-bottom: 6px; }
      .meta { color:#333; font-size: 10.5pt; margin-bottom: 10px; }
      table { border-collapse: collapse; width: 100%; }
      th, td { border: 1px solid #999; padding: 6px; font-size: 10.5pt; }
      th { background: #f2f2f2; }
      td.num { text-align: right; }
    </style>
  </head>
  <body>
    <h1>{{.Title}}</h1>
    <div class="meta">
      {{- range .Filters}}
      <div>{{.}}</div>
      {{- end}}
      <div>Gerado em: {{.Generated}}</div>
    </div>
    <table>
      <thead><tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr></thead>
      <tbody>
      {{- range .Rows}}
        <tr>{{range .}}<td class="{{if .Numeric}}num{{end}}">{{.String}}</td>{{end}}</tr>
      {{- end}}
      </tbody>
    </table>
  </body>
</html>
`))

// GeneratedLayout is the pt-BR date and time of the "Gerado em" line.
const GeneratedLayout = "02/01/2006, 15:04:05"

// DocContentType is what Word expects for an HTML .doc.
const DocContentType = "application/msword;charset=utf-8"

// WriteDoc writes d as an HTML document Word opens as a .doc file.
func WriteDoc(w io.Writer, d Document) error {
	data := struct {
		Document
		Generated string
	}{
		Document:  d,
		Generated: d.Generated.Format(GeneratedLayout),
	}
	if err := docTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("render doc: %w", err)
	}
	return nil
}
