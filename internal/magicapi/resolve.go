package magicapi

import (
	"fmt"
	"strings"
)

// NormalizePath strips leading and trailing slashes and collapses any run
// of consecutive slashes into one. It is idempotent:
// NormalizePath(NormalizePath(p)) == NormalizePath(p) for all inputs.
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}

	path = strings.Trim(path, "/")

	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}

	return path
}

// joinPath appends a node's own path fragment to its parent's full path.
// Empty fragments contribute nothing.
func joinPath(parent, fragment string) string {
	switch {
	case parent != "" && fragment != "":
		return parent + "/" + fragment
	case fragment != "":
		return fragment
	default:
		return parent
	}
}

// workItem pairs a node with the full path accumulated down to it.
// FindByPath and Flatten walk with an explicit stack instead of recursion
// so arbitrarily deep (or accidentally cyclic) trees cannot blow the stack.
type workItem struct {
	node       *Node
	parentPath string
}

// FindByPath walks a tree snapshot and returns every endpoint node whose
// computed full path matches target, in pre-order discovery order.
//
// Both sides are normalized before comparison, and a node matches when any
// of the following holds:
//  1. the full path equals the target,
//  2. the full path extends the target by at least one segment (the target
//     names an ancestor), or
//  3. the target extends the full path by at least one segment (the caller
//     typed something more specific than the route).
//
// Zero matches is a valid outcome, not an error. When several nodes match,
// the convention everywhere in this module is to act on the first and
// report the rest — callers must not silently drop alternates.
func FindByPath(root *Node, target string) []MatchedNode {
	if root == nil {
		return nil
	}

	normalTarget := NormalizePath(target)

	var matches []MatchedNode

	visited := make(map[string]bool)
	stack := []workItem{{node: root, parentPath: ""}}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := item.node

		// Cycle guard. The backend tree is expected acyclic, but a repeated
		// id must not hang the walk.
		if node.ID != "" {
			if visited[node.ID] {
				continue
			}

			visited[node.ID] = true
		}

		fullPath := NormalizePath(joinPath(item.parentPath, node.Path))

		if node.IsEndpoint() && fullPath != "" && pathMatches(fullPath, normalTarget) {
			matches = append(matches, MatchedNode{
				ID:       node.ID,
				FullPath: fullPath,
				Method:   node.Method,
				Name:     node.Name,
				GroupID:  node.GroupID,
			})
		}

		// Push children in reverse so delivery order pops first.
		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, workItem{node: &node.Children[i], parentPath: fullPath})
		}
	}

	return matches
}

// ResolveOne resolves a path that must name exactly one endpoint. Zero
// matches yields ErrNotFound; several yield ErrAmbiguousMatch with the full
// match list still returned, first-match first, so the caller can pick or
// report the alternates.
func ResolveOne(root *Node, target string) (MatchedNode, []MatchedNode, error) {
	matches := FindByPath(root, target)

	switch len(matches) {
	case 0:
		return MatchedNode{}, nil, fmt.Errorf("%w: %q", ErrNotFound, target)
	case 1:
		return matches[0], matches, nil
	default:
		return matches[0], matches, fmt.Errorf("%w: %q has %d matches", ErrAmbiguousMatch, target, len(matches))
	}
}

// pathMatches implements the three-way matching policy over two already
// normalized paths.
func pathMatches(fullPath, target string) bool {
	return fullPath == target ||
		strings.HasPrefix(fullPath, target+"/") ||
		strings.HasPrefix(target, fullPath+"/")
}

// Flatten lists every endpoint node in the tree as {method, full path,
// name} rows, in the same pre-order as FindByPath. Used for listing,
// export, and statistics.
func Flatten(root *Node) []Endpoint {
	if root == nil {
		return nil
	}

	var endpoints []Endpoint

	visited := make(map[string]bool)
	stack := []workItem{{node: root, parentPath: ""}}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := item.node

		if node.ID != "" {
			if visited[node.ID] {
				continue
			}

			visited[node.ID] = true
		}

		fullPath := NormalizePath(joinPath(item.parentPath, node.Path))

		if node.Method != "" && fullPath != "" {
			endpoints = append(endpoints, Endpoint{
				Method:   node.Method,
				FullPath: fullPath,
				Name:     node.Name,
			})
		}

		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, workItem{node: &node.Children[i], parentPath: fullPath})
		}
	}

	return endpoints
}

// GroupEntry is one group row in a flattened listing.
type GroupEntry struct {
	ID       string `json:"id"`
	FullPath string `json:"path"`
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
}

// FlattenGroups lists every group node in the tree as {id, full path, name,
// parent} rows, in the same pre-order as Flatten. The synthetic section
// root (which has no id) is skipped.
func FlattenGroups(root *Node) []GroupEntry {
	if root == nil {
		return nil
	}

	var groups []GroupEntry

	visited := make(map[string]bool)
	stack := []workItem{{node: root, parentPath: ""}}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := item.node

		if node.ID != "" {
			if visited[node.ID] {
				continue
			}

			visited[node.ID] = true
		}

		fullPath := NormalizePath(joinPath(item.parentPath, node.Path))

		if node.Kind == KindGroup && node.ID != "" {
			groups = append(groups, GroupEntry{
				ID:       node.ID,
				FullPath: fullPath,
				Name:     node.Name,
				ParentID: node.GroupID,
			})
		}

		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, workItem{node: &node.Children[i], parentPath: fullPath})
		}
	}

	return groups
}

// FlattenTree flattens every section of a snapshot in the fixed section
// order. Only the api section can contribute endpoints (other kinds have
// no HTTP method), but walking all sections keeps the behavior uniform.
func FlattenTree(tree *Tree) []Endpoint {
	var endpoints []Endpoint

	for _, kind := range tree.SectionKinds() {
		root := tree.Sections[kind]
		endpoints = append(endpoints, Flatten(&root)...)
	}

	return endpoints
}

// Depth reports how many segments a normalized path has. Empty paths have
// depth zero.
func Depth(path string) int {
	path = NormalizePath(path)
	if path == "" {
		return 0
	}

	return strings.Count(path, "/") + 1
}
