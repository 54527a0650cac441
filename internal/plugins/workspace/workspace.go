// Package workspace discovers analysis units from package.json manifests.
//
// A root manifest with a "workspaces" field turns the project into a
// monorepo: only packages whose directory matches a workspace glob become
// units. Otherwise every manifest under the root is a unit.
package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"

	"github.com/Disentinel/grafema-sub012/internal/diag"
	"github.com/Disentinel/grafema-sub012/internal/discover"
	"github.com/Disentinel/grafema-sub012/internal/fqn"
	"github.com/Disentinel/grafema-sub012/internal/graph"
	"github.com/Disentinel/grafema-sub012/internal/plugin"
	"github.com/Disentinel/grafema-sub012/internal/scope"
	"github.com/Disentinel/grafema-sub012/internal/tagset"
)

// Name is the registered plugin name.
const Name = "WorkspaceDiscovery"

// Diagnostic codes.
const (
	CodeManifestInvalid = "WARN_MANIFEST_INVALID"
	CodeDuplicateUnit   = "WARN_DUPLICATE_UNIT"
)

// packageJSON is the subset of package.json the analyzer reads.
type packageJSON struct {
	Name             string            `json:"name"`
	Version          string            `json:"version"`
	Main             string            `json:"main"`
	Dependencies     map[string]string `json:"dependencies"`
	DevDependencies  map[string]string `json:"devDependencies"`
	PeerDependencies map[string]string `json:"peerDependencies"`
	Workspaces       workspaces        `json:"workspaces"`
}

// workspaces accepts both `["packages/*"]` and `{"packages": [...]}`.
type workspaces []string

func (w *workspaces) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Packages []string `json:"packages"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*w = obj.Packages
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*w = list
	return nil
}

// Plugin is the WorkspaceDiscovery plugin.
type Plugin struct {
	opts *discover.Options
}

// New creates the plugin. opts may be nil.
func New(opts *discover.Options) *Plugin {
	return &Plugin{opts: opts}
}

func (p *Plugin) Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:  Name,
		Phase: plugin.Discovery,
		Creates: plugin.Creates{
			Nodes: []string{graph.NodeService},
		},
	}
}

// ServiceID returns the semantic id of the SERVICE node for u.
func ServiceID(u *plugin.Unit) (string, error) {
	return fqn.Compute(graph.NodeService, u.Name, scope.Context{File: manifestPath(u.Root)})
}

func manifestPath(root string) string {
	if root == "" || root == "." {
		return "package.json"
	}
	return path.Join(root, "package.json")
}

func (p *Plugin) Execute(ctx context.Context, ec *plugin.ExecContext) (*plugin.Result, error) {
	root := ec.Manifest.ProjectRoot
	manifests, err := discover.FindManifests(ctx, root, p.opts)
	if err != nil {
		return nil, fmt.Errorf("find manifests: %w", err)
	}
	slices.Sort(manifests)

	col := diag.NewCollector(Name, ec.Ignore)
	parsed := make(map[string]*packageJSON, len(manifests))
	for _, rel := range manifests {
		pkg, err := readManifest(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			col.Addf(diag.SevWarning, CodeManifestInvalid, rel, "cannot read manifest: %v", err)
			continue
		}
		parsed[rel] = pkg
	}

	selected, err := selectManifests(manifests, parsed)
	if err != nil {
		return nil, err
	}

	res := &plugin.Result{}
	seen := make(map[string]string)
	var nodes []graph.Node
	for _, rel := range selected {
		u := newUnit(root, rel, parsed[rel])
		if prev, dup := seen[u.Name]; dup {
			col.Addf(diag.SevWarning, CodeDuplicateUnit, rel, "unit %q already declared by %s", u.Name, prev)
			continue
		}
		seen[u.Name] = rel

		id, err := ServiceID(u)
		if err != nil {
			col.Addf(diag.SevWarning, CodeManifestInvalid, rel, "unusable package name %q: %v", u.Name, err)
			continue
		}
		u.ID = id
		res.Units = append(res.Units, u)
		nodes = append(nodes, graph.Node{
			ID:   id,
			Type: graph.NodeService,
			Name: u.Name,
			File: rel,
			Unit: u.Name,
			Properties: map[string]any{
				"version":    parsed[rel].Version,
				"root":       u.Root,
				"entrypoint": u.EntrypointPath,
			},
		})
	}

	if len(nodes) > 0 {
		if err := ec.Graph.AddNodes(ctx, nodes); err != nil {
			return nil, err
		}
	}
	res.NodesCreated = len(nodes)
	res.Collect(col)
	ec.Logger.Debug("workspace.units", "manifests", len(manifests), "units", len(res.Units))
	return res, nil
}

func readManifest(p string) (*packageJSON, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// selectManifests applies the root workspaces globs when present.
func selectManifests(manifests []string, parsed map[string]*packageJSON) ([]string, error) {
	rootPkg, ok := parsed["package.json"]
	if !ok || len(rootPkg.Workspaces) == 0 {
		var out []string
		for _, rel := range manifests {
			if parsed[rel] != nil {
				out = append(out, rel)
			}
		}
		return out, nil
	}

	globs := make([]glob.Glob, 0, len(rootPkg.Workspaces))
	for _, w := range rootPkg.Workspaces {
		g, err := glob.Compile(strings.TrimSuffix(strings.TrimPrefix(w, "./"), "/"), '/')
		if err != nil {
			return nil, fmt.Errorf("workspace glob %q: %w", w, err)
		}
		globs = append(globs, g)
	}
	var out []string
	for _, rel := range manifests {
		dir := path.Dir(rel)
		if dir == "." || parsed[rel] == nil {
			continue
		}
		for _, g := range globs {
			if g.Match(dir) {
				out = append(out, rel)
				break
			}
		}
	}
	return out, nil
}

func newUnit(projectRoot, rel string, pkg *packageJSON) *plugin.Unit {
	dir := path.Dir(rel)
	name := pkg.Name
	if name == "" {
		if dir == "." {
			name = filepath.Base(projectRoot)
		} else {
			name = path.Base(dir)
		}
	}

	deps := tagset.Of[string]()
	for _, m := range []map[string]string{pkg.Dependencies, pkg.DevDependencies, pkg.PeerDependencies} {
		for dep := range m {
			deps.Add(dep)
		}
	}

	return &plugin.Unit{
		Name:                    name,
		Root:                    dir,
		EntrypointPath:          entrypoint(projectRoot, dir, pkg.Main),
		DeclaredDependencyNames: deps,
	}
}

// entrypoint resolves "main", falling back to index.js / index.ts.
func entrypoint(projectRoot, dir, main string) string {
	candidates := []string{"index.js", "index.ts"}
	if main != "" {
		candidates = append([]string{strings.TrimPrefix(main, "./")}, candidates...)
	}
	for _, c := range candidates {
		rel := path.Join(dir, c)
		if _, err := os.Stat(filepath.Join(projectRoot, filepath.FromSlash(rel))); err == nil {
			return rel
		}
	}
	return ""
}
