package codegen

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/vango-dev/routekit/pkg/router"
)

// ManifestVersion is bumped on incompatible manifest changes.
const ManifestVersion = 1

// Manifest describes a compiled tree for tooling.
type Manifest struct {
	Version   int             `json:"version" yaml:"version"`
	APIPrefix string          `json:"apiPrefix" yaml:"apiPrefix"`
	Routes    []ManifestRoute `json:"routes" yaml:"routes"`
}

// ManifestRoute is one node of the tree.
type ManifestRoute struct {
	ID        string   `json:"id" yaml:"id"`
	Kind      string   `json:"kind" yaml:"kind"`
	Pattern   string   `json:"pattern" yaml:"pattern"`
	Module    string   `json:"module,omitempty" yaml:"module,omitempty"`
	Layouts   []string `json:"layouts" yaml:"layouts"`
	Params    []string `json:"params,omitempty" yaml:"params,omitempty"`
	Index     bool     `json:"index,omitempty" yaml:"index,omitempty"`
	Synthetic bool     `json:"synthetic,omitempty" yaml:"synthetic,omitempty"`
}

// BuildManifest lists every node depth-first with its enclosing layouts.
func BuildManifest(tree *router.Tree) *Manifest {
	m := &Manifest{
		Version:   ManifestVersion,
		APIPrefix: tree.APIPrefix(),
	}

	var visit func(n *router.RouteNode, layouts []string)
	visit = func(n *router.RouteNode, layouts []string) {
		m.Routes = append(m.Routes, ManifestRoute{
			ID:        n.ID,
			Kind:      n.Kind.String(),
			Pattern:   n.Pattern,
			Module:    n.Module.Path,
			Layouts:   append([]string{}, layouts...),
			Params:    n.Params(),
			Index:     n.IsIndex(),
			Synthetic: n.Synthetic,
		})
		if n.Kind != router.KindLayout {
			return
		}
		inner := append(append([]string{}, layouts...), n.ID)
		for _, child := range n.Children {
			visit(child, inner)
		}
	}
	visit(tree.Root(), nil)

	return m
}

// GenerateManifest emits the manifest as indented JSON.
func GenerateManifest(tree *router.Tree) ([]byte, error) {
	data, err := json.MarshalIndent(BuildManifest(tree), "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode route manifest")
	}
	return append(data, '\n'), nil
}
