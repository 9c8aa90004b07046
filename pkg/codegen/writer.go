package codegen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Header is the first line of every generated file.
const Header = "// Code generated by routekit. DO NOT EDIT."

type writer struct {
	buf    bytes.Buffer
	indent int
}

func (w *writer) line(format string, args ...any) {
	if format == "" {
		w.buf.WriteByte('\n')
		return
	}
	w.buf.WriteString(strings.Repeat("  ", w.indent))
	fmt.Fprintf(&w.buf, format, args...)
	w.buf.WriteByte('\n')
}

func (w *writer) raw(s string) {
	w.buf.WriteString(s)
}

func (w *writer) bytes() []byte {
	return w.buf.Bytes()
}

// quote returns s as a JavaScript string literal. JSON string syntax is a
// subset of JavaScript's, and encoding/json escapes U+2028 and U+2029.
func quote(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		// Marshaling a string cannot fail.
		panic(err)
	}
	return string(b)
}

func (w *writer) header() {
	w.line(Header)
	w.line("")
}

func (w *writer) imports(p *Program) {
	for _, imp := range p.Imports {
		w.line("import %s from %s;", imp.Ident, quote(imp.Specifier))
	}
	if len(p.Imports) > 0 {
		w.line("")
	}
}

// routes prints `export const routes = [...];`.
func (w *writer) routes(p *Program) {
	w.line("export const routes = [")
	w.indent++
	for _, r := range p.Routes {
		w.route(r)
	}
	w.indent--
	w.line("];")
}

func (w *writer) route(r *RouteLiteral) {
	w.line("{")
	w.indent++
	w.line("id: %s,", quote(r.ID))
	if r.Index {
		w.line("index: true,")
	} else {
		w.line("path: %s,", quote(r.Path))
	}
	if r.Component != "" {
		w.line("Component: %s,", r.Component)
	}
	if len(r.Children) > 0 {
		w.line("children: [")
		w.indent++
		for _, c := range r.Children {
			w.route(c)
		}
		w.indent--
		w.line("],")
	}
	w.indent--
	w.line("},")
}
