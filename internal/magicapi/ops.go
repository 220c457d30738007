package magicapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Backend mutation endpoints, relative to the session base URL.
const (
	groupSavePath  = "/resource/folder/save"
	groupCopyPath  = "/resource/folder/copy"
	apiSavePath    = "/resource/file/api/save"
	movePath       = "/resource/move"
	deletePath     = "/resource/delete"
	lockPath       = "/resource/lock"
	unlockPath     = "/resource/unlock"
	fileDetailPath = "/resource/file/"
)

// rootGroupID is the parent id for top-level groups.
const rootGroupID = "0"

// GroupSpec describes a group to create.
type GroupSpec struct {
	Name     string          `json:"name"`
	ParentID string          `json:"parentId"`
	Type     string          `json:"type"` // api, function, task, datasource
	Path     string          `json:"path,omitempty"`
	Options  json.RawMessage `json:"-"` // raw options JSON, merged into the request body
}

// APISpec describes an endpoint to create.
type APISpec struct {
	GroupID string `json:"groupId"`
	Name    string `json:"name"`
	Method  string `json:"method"`
	Path    string `json:"path"`
	Script  string `json:"script"`
}

// FileDetail is the decoded detail record of one endpoint file. Raw keeps
// the full payload for callers that display extension fields.
type FileDetail struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	Method      string `json:"method"`
	GroupID     string `json:"groupId"`
	Script      string `json:"script"`
	Description string `json:"description"`
	CreateTime  int64  `json:"createTime"`
	UpdateTime  int64  `json:"updateTime"`
	CreateBy    string `json:"createBy"`
	UpdateBy    string `json:"updateBy"`

	Raw json.RawMessage `json:"-"`
}

// Ops implements the mutating resource operations. Each call is a single
// authenticated round trip through the session; success is the API-level
// envelope code, not the HTTP status alone.
type Ops struct {
	session *Session
	logger  *slog.Logger
}

// NewOps creates the mutation client over the given session.
func NewOps(session *Session, logger *slog.Logger) *Ops {
	if logger == nil {
		logger = slog.Default()
	}

	return &Ops{session: session, logger: logger}
}

// CreateGroup creates a group and returns the new group id.
func (o *Ops) CreateGroup(ctx context.Context, spec GroupSpec) (string, error) {
	if spec.Name == "" {
		return "", fmt.Errorf("magicapi: group name is required")
	}

	if spec.ParentID == "" {
		spec.ParentID = rootGroupID
	}

	if spec.Type == "" {
		spec.Type = string(KindEndpoint)
	}

	body, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("magicapi: marshaling group: %w", err)
	}

	// Caller-supplied options are raw JSON; splice them in verbatim.
	if len(spec.Options) > 0 {
		body, err = sjson.SetRawBytes(body, "options", spec.Options)
		if err != nil {
			return "", fmt.Errorf("magicapi: merging group options: %w", err)
		}
	}

	o.logger.Info("creating group",
		slog.String("name", spec.Name),
		slog.String("parent_id", spec.ParentID),
		slog.String("type", spec.Type),
	)

	data, err := o.session.Call(ctx, Request{Method: http.MethodPost, Path: groupSavePath, JSON: json.RawMessage(body)})
	if err != nil {
		return "", err
	}

	return dataString(data), nil
}

// CreateAPI creates an endpoint file under a group and returns the new
// file id.
func (o *Ops) CreateAPI(ctx context.Context, spec APISpec) (string, error) {
	if spec.GroupID == "" || spec.Name == "" || spec.Method == "" || spec.Path == "" {
		return "", fmt.Errorf("magicapi: group id, name, method, and path are required")
	}

	o.logger.Info("creating endpoint",
		slog.String("group_id", spec.GroupID),
		slog.String("name", spec.Name),
		slog.String("method", spec.Method),
		slog.String("path", spec.Path),
	)

	data, err := o.session.Call(ctx, Request{Method: http.MethodPost, Path: apiSavePath, JSON: spec})
	if err != nil {
		return "", err
	}

	return dataString(data), nil
}

// CopyGroup duplicates a group subtree on the backend and returns the id
// of the new group.
func (o *Ops) CopyGroup(ctx context.Context, srcID, targetID string) (string, error) {
	o.logger.Info("copying group",
		slog.String("src", srcID),
		slog.String("target", targetID),
	)

	form := url.Values{}
	form.Set("src", srcID)
	form.Set("target", targetID)

	data, err := o.session.Call(ctx, Request{Method: http.MethodPost, Path: groupCopyPath, Form: form})
	if err != nil {
		return "", err
	}

	return dataString(data), nil
}

// Move reparents a resource under a new group.
func (o *Ops) Move(ctx context.Context, id, targetGroupID string) error {
	o.logger.Info("moving resource",
		slog.String("id", id),
		slog.String("target_group", targetGroupID),
	)

	form := url.Values{}
	form.Set("src", id)
	form.Set("groupId", targetGroupID)

	return o.boolOp(ctx, movePath, form, "move")
}

// Delete removes a resource (and, for groups, its subtree).
func (o *Ops) Delete(ctx context.Context, id string) error {
	o.logger.Info("deleting resource", slog.String("id", id))

	form := url.Values{}
	form.Set("id", id)

	return o.boolOp(ctx, deletePath, form, "delete")
}

// Lock marks a resource read-only on the backend.
func (o *Ops) Lock(ctx context.Context, id string) error {
	o.logger.Info("locking resource", slog.String("id", id))

	form := url.Values{}
	form.Set("id", id)

	return o.boolOp(ctx, lockPath, form, "lock")
}

// Unlock releases a locked resource.
func (o *Ops) Unlock(ctx context.Context, id string) error {
	o.logger.Info("unlocking resource", slog.String("id", id))

	form := url.Values{}
	form.Set("id", id)

	return o.boolOp(ctx, unlockPath, form, "unlock")
}

// FileDetail fetches the full detail record of one endpoint file.
func (o *Ops) FileDetail(ctx context.Context, id string) (*FileDetail, error) {
	if id == "" {
		return nil, fmt.Errorf("magicapi: file id is required")
	}

	data, err := o.session.Call(ctx, Request{Method: http.MethodGet, Path: fileDetailPath + url.PathEscape(id)})
	if err != nil {
		return nil, err
	}

	var detail FileDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		return nil, fmt.Errorf("%w: decoding file detail: %v", ErrMalformedResponse, err)
	}

	detail.Raw = data

	return &detail, nil
}

// boolOp runs a mutation whose data payload is a boolean success flag.
func (o *Ops) boolOp(ctx context.Context, path string, form url.Values, op string) error {
	data, err := o.session.Call(ctx, Request{Method: http.MethodPost, Path: path, Form: form})
	if err != nil {
		return err
	}

	if !gjson.ParseBytes(data).Bool() {
		return &APIError{Code: envelopeOK, Message: op + " reported failure"}
	}

	return nil
}

// dataString extracts the envelope data payload as a plain string. The
// backend delivers new ids both as bare strings and as quoted JSON.
func dataString(data json.RawMessage) string {
	return gjson.ParseBytes(data).String()
}

// BatchItemResult is the outcome of one item of a batch operation.
type BatchItemResult struct {
	Key string // name or id of the item
	ID  string // created id, when the operation produces one
	Err error  // nil on success
}

// BatchResult aggregates a best-effort batch: every item ran regardless of
// earlier failures, and each outcome is independent.
type BatchResult struct {
	Successful int
	Failed     int
	Results    []BatchItemResult
}

// runBatch applies fn to every item, never stopping on failure.
func runBatch[T any](items []T, key func(T) string, fn func(T) (string, error)) BatchResult {
	result := BatchResult{Results: make([]BatchItemResult, 0, len(items))}

	for _, item := range items {
		id, err := fn(item)

		itemResult := BatchItemResult{Key: key(item), ID: id, Err: err}
		if err != nil {
			result.Failed++
		} else {
			result.Successful++
		}

		result.Results = append(result.Results, itemResult)
	}

	return result
}

// BatchCreateGroups creates every group in specs, best effort.
func (o *Ops) BatchCreateGroups(ctx context.Context, specs []GroupSpec) BatchResult {
	return runBatch(specs,
		func(s GroupSpec) string { return s.Name },
		func(s GroupSpec) (string, error) { return o.CreateGroup(ctx, s) },
	)
}

// BatchCreateAPIs creates every endpoint in specs, best effort.
func (o *Ops) BatchCreateAPIs(ctx context.Context, specs []APISpec) BatchResult {
	return runBatch(specs,
		func(s APISpec) string { return s.Name },
		func(s APISpec) (string, error) { return o.CreateAPI(ctx, s) },
	)
}

// BatchDelete deletes every resource id, best effort.
func (o *Ops) BatchDelete(ctx context.Context, ids []string) BatchResult {
	return runBatch(ids,
		func(id string) string { return id },
		func(id string) (string, error) { return "", o.Delete(ctx, id) },
	)
}
