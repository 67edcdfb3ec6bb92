package router

import (
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
)

const (
	scoreStatic = 3
	scoreParam  = 2
)

type segment struct {
	value string
	param bool
}

// branch is one matchable chain of routes, root first.
type branch struct {
	routes   []*Route
	segments []segment
	// ends[i] is the number of segments consumed once routes[i] is matched.
	ends  []int
	score int
	order int
}

// Table is the immutable, validated route table.
type Table struct {
	roots    []*Route
	branches []branch
	byID     map[string]*Route
}

// NewTable validates routes and prepares them for matching. Duplicate or empty IDs,
// malformed patterns and two branches matching the same URLs are rejected.
func NewTable(routes ...*Route) (*Table, error) {
	if len(routes) == 0 {
		return nil, ErrNoRoutes
	}

	t := &Table{roots: routes, byID: make(map[string]*Route)}
	for _, r := range routes {
		if err := t.collect(r, nil, "/"); err != nil {
			return nil, err
		}
	}

	shapes := make(map[string]string, len(t.branches))
	for _, b := range t.branches {
		shape := b.shape()
		leaf := b.routes[len(b.routes)-1].ID
		if other, ok := shapes[shape]; ok {
			return nil, fmt.Errorf("routes %q and %q both match %s", other, leaf, shape)
		}
		shapes[shape] = leaf
	}

	return t, nil
}

func (t *Table) collect(r *Route, chain []*Route, parentPath string) error {
	if r == nil {
		return fmt.Errorf("nil route under %q", parentPath)
	}
	if r.ID == "" {
		return fmt.Errorf("route with path %q has no id", r.Path)
	}
	if _, ok := t.byID[r.ID]; ok {
		return fmt.Errorf("duplicate route id %q", r.ID)
	}
	if r.Path == "" && len(r.Children) == 0 {
		return fmt.Errorf("route %q has neither a path nor children", r.ID)
	}
	t.byID[r.ID] = r

	chain = append(chain[:len(chain):len(chain)], r)

	full := parentPath
	if r.Path != "" {
		full = joinPattern(parentPath, r.Path)
		b, err := newBranch(chain, full, len(t.branches))
		if err != nil {
			return fmt.Errorf("route %q: %w", r.ID, err)
		}
		t.branches = append(t.branches, b)
	}

	for _, child := range r.Children {
		if err := t.collect(child, chain, full); err != nil {
			return err
		}
	}
	return nil
}

func joinPattern(parent, p string) string {
	if strings.HasPrefix(p, "/") {
		return path.Clean(p)
	}
	return path.Clean(parent + "/" + p)
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func newBranch(chain []*Route, pattern string, order int) (branch, error) {
	b := branch{routes: chain, order: order}

	for _, part := range splitPath(pattern) {
		if strings.HasPrefix(part, ":") {
			if len(part) == 1 {
				return branch{}, fmt.Errorf("unnamed parameter in %q", pattern)
			}
			b.segments = append(b.segments, segment{value: part[1:], param: true})
			b.score += scoreParam
			continue
		}
		b.segments = append(b.segments, segment{value: part})
		b.score += scoreStatic
	}

	// Each route consumes the segments of its own pattern.
	b.ends = make([]int, len(chain))
	parent := "/"
	for i, r := range chain {
		if r.Path != "" {
			parent = joinPattern(parent, r.Path)
		}
		b.ends[i] = len(splitPath(parent))
	}

	return b, nil
}

func (b branch) shape() string {
	parts := make([]string, len(b.segments))
	for i, s := range b.segments {
		if s.param {
			parts[i] = ":"
			continue
		}
		parts[i] = s.value
	}
	return "/" + strings.Join(parts, "/")
}

func (b branch) match(parts []string) (Params, bool) {
	if len(parts) != len(b.segments) {
		return nil, false
	}

	params := Params{}
	for i, s := range b.segments {
		if s.param {
			params[s.value] = parts[i]
			continue
		}
		if s.value != parts[i] {
			return nil, false
		}
	}
	return params, true
}

// Route returns the route registered under id.
func (t *Table) Route(id string) (*Route, bool) {
	r, ok := t.byID[id]
	return r, ok
}

// Match resolves an escaped URL path to its route chain. The most specific branch
// wins; equally specific branches keep declaration order. An unmatched path returns the
// leading pathless layouts and a 404 RouteError.
func (t *Table) Match(escapedPath string) ([]Match, error) {
	raw := splitPath(escapedPath)
	parts := make([]string, len(raw))
	for i, p := range raw {
		v, err := url.PathUnescape(p)
		if err != nil {
			return t.fallback(), NewError(http.StatusBadRequest, "Malformed address", err)
		}
		parts[i] = v
	}

	var (
		best       *branch
		bestParams Params
	)
	for i := range t.branches {
		b := &t.branches[i]
		params, ok := b.match(parts)
		if !ok {
			continue
		}
		if best == nil || b.score > best.score {
			best, bestParams = b, params
		}
	}

	if best == nil {
		return t.fallback(), NotFound(fmt.Sprintf("No page at %s", "/"+strings.Join(parts, "/")))
	}

	matches := make([]Match, len(best.routes))
	for i, r := range best.routes {
		matches[i] = Match{
			Route:    r,
			Params:   bestParams,
			Pathname: "/" + strings.Join(parts[:best.ends[i]], "/"),
		}
	}
	return matches, nil
}

func (t *Table) fallback() []Match {
	var matches []Match
	for r := t.roots[0]; r != nil && r.Path == ""; {
		matches = append(matches, Match{Route: r, Params: Params{}, Pathname: "/"})
		if len(r.Children) == 0 {
			break
		}
		r = r.Children[0]
	}
	return matches
}
