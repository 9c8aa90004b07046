package codegen

// GenerateClient emits the browser entrypoint.
func GenerateClient(p *Program) []byte {
	w := &writer{}
	w.header()
	w.line("import { createBrowserRouter } from %s;", quote(p.Options.RouterRuntime))
	w.line("")
	w.imports(p)
	w.routes(p)
	w.line("")
	w.line("export function createRouter(options) {")
	w.indent++
	w.line("return createBrowserRouter(routes, options);")
	w.indent--
	w.line("}")
	return w.bytes()
}
