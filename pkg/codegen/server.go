package codegen

import "github.com/vango-dev/routekit/pkg/ssr"

// serverMain reads the request context, renders and reports. Markup goes
// to stdout only; anything else goes to stderr with a non-zero exit.
const serverMain = `function readContext() {
  if (process.env[PROTOCOL_ENV] === "envelope") {
    const envelope = JSON.parse(readFileSync(0, "utf8"));
    const major = String(envelope.version || "").split(".")[0];
    if (major !== PROTOCOL_VERSION.split(".")[0]) {
      throw new Error("unsupported render envelope version " + envelope.version);
    }
    return envelope;
  }
  const [requestPath = "/", csrfToken = "", currentUser = "null"] = process.argv.slice(2);
  return { requestPath, csrfToken, currentUser: JSON.parse(currentUser) };
}

async function main() {
  const context = readContext();
  const markup = await renderToString(routes, context);
  process.stdout.write(markup);
}

main().catch((err) => {
  process.stderr.write(String((err && err.stack) || err) + "\n");
  process.exit(1);
});
`

// GenerateServer emits the SSR entrypoint run by the invoker.
func GenerateServer(p *Program) []byte {
	w := &writer{}
	w.header()
	w.line("import { readFileSync } from %s;", quote("node:fs"))
	w.line("import { renderToString } from %s;", quote(p.Options.ServerRuntime))
	w.line("")
	w.imports(p)
	w.line("export const PROTOCOL_VERSION = %s;", quote(p.Options.ProtocolVersion))
	w.line("const PROTOCOL_ENV = %s;", quote(ssr.ProtocolEnvVar))
	w.line("")
	w.routes(p)
	w.line("")
	w.raw(serverMain)
	return w.bytes()
}
