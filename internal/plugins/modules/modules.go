// Package modules indexes the source files of a unit as MODULE nodes.
package modules

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/Disentinel/grafema-sub012/internal/diag"
	"github.com/Disentinel/grafema-sub012/internal/discover"
	"github.com/Disentinel/grafema-sub012/internal/fqn"
	"github.com/Disentinel/grafema-sub012/internal/graph"
	"github.com/Disentinel/grafema-sub012/internal/plugin"
	"github.com/Disentinel/grafema-sub012/internal/plugins/workspace"
	"github.com/Disentinel/grafema-sub012/internal/tagset"
)

// Name is the registered plugin name.
const Name = "ModuleIndexer"

// CodeUnreadable is reported for files that cannot be hashed.
const CodeUnreadable = "WARN_FILE_UNREADABLE"

// Plugin is the ModuleIndexer plugin.
type Plugin struct {
	opts *discover.Options
}

// New creates the plugin. opts may be nil.
func New(opts *discover.Options) *Plugin {
	return &Plugin{opts: opts}
}

func (p *Plugin) Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:     Name,
		Phase:    plugin.Indexing,
		Produces: tagset.Of(graph.EdgeContains),
		Creates: plugin.Creates{
			Nodes: []string{graph.NodeModule, graph.NodeService},
			Edges: []graph.EdgeType{graph.EdgeContains},
		},
	}
}

func (p *Plugin) Execute(ctx context.Context, ec *plugin.ExecContext) (*plugin.Result, error) {
	u := ec.Manifest.Unit
	if u == nil {
		return nil, fmt.Errorf("%s runs per unit", Name)
	}
	root := ec.Manifest.ProjectRoot
	unitDir := filepath.Join(root, filepath.FromSlash(u.Root))

	files, err := discover.Discover(ctx, unitDir, p.opts)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", u.Name, err)
	}

	serviceID, err := workspace.ServiceID(u)
	if err != nil {
		return nil, err
	}
	// Discovery plugins own the SERVICE node when they wrote one; only units
	// nobody described (the default root unit) get a bare one here.
	var nodes []graph.Node
	owned, err := ec.Graph.FindNodes(ctx, graph.NodeFilter{Type: graph.NodeService, Unit: u.Name})
	if err != nil {
		return nil, err
	}
	if !hasNode(owned, serviceID) {
		nodes = append(nodes, graph.Node{
			ID:   serviceID,
			Type: graph.NodeService,
			Name: u.Name,
			File: path.Join(u.Root, "package.json"),
			Unit: u.Name,
			Properties: map[string]any{
				"root":       u.Root,
				"entrypoint": u.EntrypointPath,
			},
		})
	}
	var edges []graph.Edge

	col := diag.NewCollector(Name, ec.Ignore)
	nested := nestedRoots(u, ec.Manifest.Units)
	for _, f := range files {
		rel := path.Join(u.Root, f.RelPath)
		if ownedByNested(rel, nested) {
			continue
		}
		hash, err := discover.FileHash(f.Path)
		if err != nil {
			col.Addf(diag.SevWarning, CodeUnreadable, rel, "cannot hash: %v", err)
			continue
		}
		id, err := fqn.ModuleID(rel)
		if err != nil {
			col.Addf(diag.SevWarning, CodeUnreadable, rel, "unusable path: %v", err)
			continue
		}
		nodes = append(nodes, graph.Node{
			ID:   id,
			Type: graph.NodeModule,
			Name: rel,
			File: rel,
			Unit: u.Name,
			Properties: map[string]any{
				"contentHash": hash,
				"language":    string(f.Language),
			},
		})
		edges = append(edges, graph.Edge{Src: serviceID, Dst: id, Type: graph.EdgeContains})
	}

	if len(nodes) > 0 {
		if err := ec.Graph.AddNodes(ctx, nodes); err != nil {
			return nil, err
		}
	}
	if len(edges) > 0 {
		if err := ec.Graph.AddEdges(ctx, edges); err != nil {
			return nil, err
		}
	}

	res := &plugin.Result{NodesCreated: len(nodes), EdgesCreated: len(edges)}
	res.Collect(col)
	return res, nil
}

// nestedRoots returns the roots of other units located inside u.
func nestedRoots(u *plugin.Unit, units []*plugin.Unit) []string {
	var out []string
	for _, o := range units {
		if o == u || o.Root == u.Root {
			continue
		}
		if u.Root == "." || u.Root == "" || strings.HasPrefix(o.Root, u.Root+"/") {
			if o.Root != "." && o.Root != "" {
				out = append(out, o.Root)
			}
		}
	}
	return out
}

func ownedByNested(rel string, nested []string) bool {
	for _, r := range nested {
		if strings.HasPrefix(rel, r+"/") {
			return true
		}
	}
	return false
}

func hasNode(nodes []graph.Node, id string) bool {
	for _, n := range nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}
