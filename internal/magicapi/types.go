package magicapi

import "encoding/json"

// NodeKind tags which variant of the resource tree a Node is.
type NodeKind string

// Resource tree node kinds delivered by the backend.
const (
	KindGroup      NodeKind = "group"
	KindEndpoint   NodeKind = "api"
	KindFunction   NodeKind = "function"
	KindTask       NodeKind = "task"
	KindDatasource NodeKind = "datasource"
)

// Node is one entry in the resource tree snapshot. The tree is immutable
// once decoded; full paths are always computed, never stored.
type Node struct {
	ID      string
	Kind    NodeKind
	Path    string // path fragment contributed by this node, may be empty
	Name    string // display label, may differ from Path
	Method  string // set only for KindEndpoint
	GroupID string // owning group reference, lookup only

	// Children in backend delivery order.
	Children []Node
}

// IsEndpoint reports whether the node is a callable endpoint: it carries
// both an HTTP method and a backend id. Only endpoints participate in
// path matching.
func (n *Node) IsEndpoint() bool {
	return n.Method != "" && n.ID != ""
}

// MatchedNode is one path-resolution hit.
type MatchedNode struct {
	ID       string
	FullPath string // normalized full path at match time
	Method   string
	Name     string
	GroupID  string
}

// Endpoint is one row of a flattened tree listing.
type Endpoint struct {
	Method   string
	FullPath string
	Name     string
}

// envelope is the backend's uniform response wrapper. Data stays raw so
// each operation can decode its own payload shape.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// envelopeOK is the success code the backend uses across all operations.
const envelopeOK = 1

// wireNode mirrors the backend's nested tree JSON exactly. Unexported —
// callers only ever see Node via decodeWireNode.
type wireNode struct {
	Node     wireNodeInfo `json:"node"`
	Children []wireNode   `json:"children"`
}

type wireNodeInfo struct {
	ID      string `json:"id"`
	Path    string `json:"path"`
	Name    string `json:"name"`
	Method  string `json:"method"`
	GroupID string `json:"groupId"`
	Type    string `json:"type"`
}

// decodeWireNode converts a wire node subtree into the tagged Node form,
// preserving child delivery order. tree is the kind of the tree section
// the subtree came from; folder entries become KindGroup regardless.
func decodeWireNode(w *wireNode, tree NodeKind) Node {
	kind := tree

	switch {
	case w.Node.Type != "":
		// Group folders carry a type field; leaf entries do not.
		kind = KindGroup
	case tree == KindEndpoint && w.Node.Method == "":
		kind = KindGroup
	}

	n := Node{
		ID:      w.Node.ID,
		Kind:    kind,
		Path:    w.Node.Path,
		Name:    w.Node.Name,
		Method:  w.Node.Method,
		GroupID: w.Node.GroupID,
	}

	if len(w.Children) > 0 {
		n.Children = make([]Node, 0, len(w.Children))
		for i := range w.Children {
			n.Children = append(n.Children, decodeWireNode(&w.Children[i], tree))
		}
	}

	return n
}
