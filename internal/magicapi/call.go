package magicapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Headers correlating an endpoint invocation with a console session. The
// backend routes script log output to the WebSocket client named here.
const (
	clientIDHeader = "Magic-Request-Client-Id"
	scriptIDHeader = "Magic-Request-Script-Id"
)

// CallRequest describes one invocation of a user-defined endpoint. Path is
// the endpoint's full tree path, not a management route.
type CallRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   json.RawMessage // optional JSON request body

	// ScriptID ties console log output to the invoked endpoint; ClientID
	// names the console session that should receive it. Both optional.
	ScriptID string
	ClientID string
}

// CallResult is the raw outcome of an endpoint invocation. User endpoints
// return arbitrary payloads, so no envelope is assumed; Envelope reports
// whether the body parsed as the standard {code, message, data} shape.
type CallResult struct {
	Status int
	Header http.Header
	Body   []byte
}

// Envelope decodes the body as a standard response envelope. ok is false
// when the endpoint returned something else.
func (r *CallResult) Envelope() (code int, message string, data json.RawMessage, ok bool) {
	parsed := gjson.ParseBytes(r.Body)
	if !parsed.IsObject() || !parsed.Get("code").Exists() {
		return 0, "", nil, false
	}

	return int(parsed.Get("code").Int()), parsed.Get("message").String(),
		json.RawMessage(parsed.Get("data").Raw), true
}

// Caller invokes user-defined endpoints through an authenticated session.
type Caller struct {
	session *Session
}

// NewCaller creates the invocation collaborator.
func NewCaller(session *Session) *Caller {
	return &Caller{session: session}
}

// Call invokes one endpoint and returns the raw response. The method is
// upper-cased; the path is normalized to a single leading slash.
func (c *Caller) Call(ctx context.Context, req CallRequest) (*CallResult, error) {
	if req.Method == "" || req.Path == "" {
		return nil, fmt.Errorf("magicapi: call method and path are required")
	}

	headers := http.Header{}
	clientID := req.ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	}

	headers.Set(clientIDHeader, clientID)

	if req.ScriptID != "" {
		headers.Set(scriptIDHeader, req.ScriptID)
	}

	resp, err := c.session.Send(ctx, Request{
		Method:  strings.ToUpper(req.Method),
		Path:    "/" + NormalizePath(req.Path),
		Query:   req.Query,
		JSON:    callBody(req.Body),
		Headers: headers,
	})
	if err != nil {
		return nil, err
	}

	return &CallResult{Status: resp.Status, Header: resp.Header, Body: resp.Body}, nil
}

// callBody passes the raw body through as the JSON payload, or nil so no
// body is sent at all.
func callBody(body json.RawMessage) any {
	if len(body) == 0 {
		return nil
	}

	return body
}
