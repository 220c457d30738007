package magicapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// resourcePath is the backend endpoint that returns the full resource tree.
const resourcePath = "/resource"

// Tree is one immutable snapshot of the backend resource tree, keyed by
// section kind. Snapshots require no synchronization once fetched.
type Tree struct {
	Sections map[NodeKind]Node
}

// treeSectionOrder fixes iteration order over sections so listings are
// deterministic regardless of map iteration.
var treeSectionOrder = []NodeKind{KindEndpoint, KindFunction, KindTask, KindDatasource}

// TreeClient fetches resource-tree snapshots through a session. It decodes
// the wire shape but does not interpret content — resolution and filtering
// are separate concerns.
type TreeClient struct {
	session *Session
	logger  *slog.Logger
}

// NewTreeClient creates a tree client over the given session.
func NewTreeClient(session *Session, logger *slog.Logger) *TreeClient {
	if logger == nil {
		logger = slog.Default()
	}

	return &TreeClient{session: session, logger: logger}
}

// Fetch retrieves one full tree snapshot.
func (c *TreeClient) Fetch(ctx context.Context) (*Tree, error) {
	data, err := c.session.Call(ctx, Request{Method: http.MethodPost, Path: resourcePath})
	if err != nil {
		return nil, err
	}

	var sections map[string]struct {
		Children []wireNode `json:"children"`
	}

	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("%w: decoding resource tree: %v", ErrMalformedResponse, err)
	}

	tree := &Tree{Sections: make(map[NodeKind]Node, len(sections))}

	for name, section := range sections {
		kind := NodeKind(name)

		root := Node{Kind: KindGroup, Name: name}
		root.Children = make([]Node, 0, len(section.Children))

		for i := range section.Children {
			root.Children = append(root.Children, decodeWireNode(&section.Children[i], kind))
		}

		tree.Sections[kind] = root
	}

	c.logger.Debug("fetched resource tree",
		slog.Int("sections", len(tree.Sections)),
	)

	return tree, nil
}

// Section returns the root node of one section, or nil if the backend did
// not deliver that section.
func (t *Tree) Section(kind NodeKind) *Node {
	if root, ok := t.Sections[kind]; ok {
		return &root
	}

	return nil
}

// SectionKinds returns the kinds present in this snapshot, in the fixed
// listing order.
func (t *Tree) SectionKinds() []NodeKind {
	kinds := make([]NodeKind, 0, len(t.Sections))

	for _, k := range treeSectionOrder {
		if _, ok := t.Sections[k]; ok {
			kinds = append(kinds, k)
		}
	}

	// Sections the fixed order does not know about go last.
	for k := range t.Sections {
		if !containsKind(kinds, k) {
			kinds = append(kinds, k)
		}
	}

	return kinds
}

func containsKind(kinds []NodeKind, k NodeKind) bool {
	for _, have := range kinds {
		if have == k {
			return true
		}
	}

	return false
}
