// Package templates scaffolds route modules.
//
// A page is written as page<ext> inside its route directory, and with
// WithLayout a layout<ext> next to it. Directories are created as needed.
//
// # Usage
//
//	files, err := templates.Scaffold(cfg.RoutesPath(), templates.Options{
//	    Path:       "blog/_slug",
//	    Ext:        ".tsx",
//	    WithLayout: true,
//	})
//
// # Template Variables
//
//	{{.Name}}   - Heading shown by the page (default: title-cased directory name)
//	{{.Route}}  - Route directory relative to the routes directory
package templates
