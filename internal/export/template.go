package export

import (
	"bytes"
	"html/template"
	"time"
)

// TemplateData holds data for document page rendering
type TemplateData struct {
	Title        string
	Status       string
	BoardName    string
	Author       string
	LastModified time.Time
	ContentHTML  template.HTML
}

var documentTemplate = template.Must(template.New("document").Parse(documentPage))

// RenderDocumentHTML renders the printable page for a document.
func RenderDocumentHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const documentPage = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Georgia, serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; color: #1a1a1a; }
    h1.doc-title { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .status { text-transform: uppercase; letter-spacing: 0.05em; }
    blockquote { border-left: 3px solid #ccc; margin-left: 0; padding-left: 1rem; color: #444; }
    pre { background: #f5f5f5; padding: 1rem; overflow-x: auto; }
    table { border-collapse: collapse; width: 100%; }
    td, th { border: 1px solid #ccc; padding: 0.4rem 0.6rem; }
    ul.task-list { list-style: none; padding-left: 0.5rem; }
    img { max-width: 100%; }
    mark { background: #fff3a3; }
  </style>
</head>
<body>
  <h1 class="doc-title">{{.Title}}</h1>
  <div class="meta">
    <span class="status">{{.Status}}</span>
    {{if .BoardName}} | {{.BoardName}}{{end}}
    | {{.Author}} | {{.LastModified.Format "Jan 2, 2006"}}
  </div>
  <div>{{.ContentHTML}}</div>
</body>
</html>`
