package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Routes (E001-E019)

	"E001": {
		Category: CategoryRoutes,
		Message:  "Invalid route tree",
		Detail:   "The routes directory contains entries that cannot be turned into an unambiguous route tree.",
	},
	"E002": {
		Category:   CategoryRoutes,
		Message:    "Routes directory not found",
		Detail:     "The configured routes directory does not exist or is not a directory.",
		Suggestion: "Set routes.dir in routekit.toml or create the directory",
	},
	"E003": {
		Category: CategoryRoutes,
		Message:  "No route matches the path",
	},
	"E004": {
		Category:   CategoryRoutes,
		Message:    "Path is reserved for API handlers",
		Detail:     "Paths under the API prefix are never rendered by the route tree.",
		Suggestion: "Mount an API handler or change routes.api_prefix",
	},
	"E005": {
		Category: CategoryRoutes,
		Message:  "Invalid request path",
		Detail:   "The path could not be canonicalized.",
	},

	// Render (E020-E039)

	"E020": {
		Category: CategoryRender,
		Message:  "Server render failed",
		Detail:   "The server bundle exited unsuccessfully or produced no usable markup.",
	},
	"E021": {
		Category:   CategoryRender,
		Message:    "Server render timed out",
		Detail:     "The renderer did not finish within the configured timeout and was killed.",
		Suggestion: "Raise ssr.timeout or look for blocking work at module load",
	},
	"E022": {
		Category:   CategoryRender,
		Message:    "Renderer could not be started",
		Detail:     "The renderer command could not be spawned.",
		Suggestion: "Check that ssr.command names an installed runtime (node by default)",
	},
	"E023": {
		Category:   CategoryRender,
		Message:    "Render output too large",
		Suggestion: "Raise ssr.max_output_bytes",
	},
	"E024": {
		Category: CategoryRender,
		Message:  "Render canceled",
	},
	"E025": {
		Category:   CategoryRender,
		Message:    "Server bundle not found",
		Suggestion: "Run `routekit build` first",
	},

	// Build (E040-E059)

	"E040": {
		Category: CategoryBuild,
		Message:  "Entrypoint generation failed",
		Detail:   "The generated entrypoints could not be written to the build directory.",
	},
	"E041": {
		Category: CategoryBuild,
		Message:  "Bundler failed",
		Detail:   "The bundler exited with an error. Its output is shown below.",
	},
	"E042": {
		Category:   CategoryBuild,
		Message:    "Bundler not found",
		Detail:     "The bundler command is not installed or not in PATH.",
		Suggestion: "Install esbuild (npm install --save-dev esbuild) or set build.bundler",
	},

	// Config (E060-E079)

	"E060": {
		Category: CategoryConfig,
		Message:  "Invalid config file",
		Detail:   "routekit.toml could not be parsed.",
	},
	"E061": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "One or more settings are out of range.",
	},
	"E062": {
		Category:   CategoryConfig,
		Message:    "Config file not found",
		Suggestion: "Run `routekit config --init` to write a default routekit.toml",
	},

	// CLI (E080-E099)

	"E080": {
		Category: CategoryCLI,
		Message:  "Invalid argument",
	},
	"E081": {
		Category: CategoryCLI,
		Message:  "Dev server failed",
	},
	"E082": {
		Category: CategoryCLI,
		Message:  "File watcher failed",
		Detail:   "The routes directory could not be watched for changes.",
	},
	"E083": {
		Category:   CategoryCLI,
		Message:    "Route module already exists",
		Suggestion: "Pass --force to overwrite it",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
