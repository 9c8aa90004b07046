package routekit

import (
	"bytes"
	"html/template"
	"io"
)

// RootElementID is the id of the element the client bundle hydrates.
const RootElementID = "root"

var shellTemplate = template.Must(template.New("shell").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
{{- if .Title}}
<title>{{.Title}}</title>
{{- end}}
{{- if .Description}}
<meta name="description" content="{{.Description}}">
{{- end}}
{{- if .CSRFToken}}
<meta name="csrf-token" content="{{.CSRFToken}}">
{{- end}}
{{- range .Stylesheets}}
<link rel="stylesheet" href="{{.}}">
{{- end}}
</head>
<body>
{{- if .Noscript}}
<noscript>{{.Noscript}}</noscript>
{{- end}}
<div id="{{.RootID}}">{{.Markup}}</div>
<script type="module" src="{{.ClientBundle}}"></script>
{{- if .DevScript}}
{{.DevScript}}
{{- end}}
</body>
</html>
`))

// shellData fills the page shell. Markup and DevScript are trusted: the
// first comes from the server bundle, the second is a constant.
type shellData struct {
	Title        string
	Description  string
	CSRFToken    string
	Stylesheets  []string
	Noscript     string
	RootID       string
	Markup       template.HTML
	ClientBundle string
	DevScript    template.HTML
}

func renderShell(w io.Writer, data shellData) error {
	if data.RootID == "" {
		data.RootID = RootElementID
	}
	var buf bytes.Buffer
	if err := shellTemplate.Execute(&buf, data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}
