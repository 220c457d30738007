package magicapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Script-engine class endpoints, relative to the session base URL.
const (
	classesPath    = "/classes"
	classPath      = "/class"
	classesTxtPath = "/classes.txt"
)

// Class index kinds, as reported in flattened listings.
const (
	ClassKindClass     = "class"
	ClassKindExtension = "extension"
	ClassKindFunction  = "function"
)

// ClassScope restricts which member kinds a pattern search inspects.
type ClassScope string

// Class search scopes.
const (
	ClassScopeAll    ClassScope = "all"
	ClassScopeClass  ClassScope = "class"
	ClassScopeMethod ClassScope = "method"
	ClassScopeField  ClassScope = "field"
)

// ClassIndex holds the names the script engine exposes, one sorted list per
// kind: registered script classes, extension classes, and global functions.
type ClassIndex struct {
	Classes    []string `json:"classes"`
	Extensions []string `json:"extensions"`
	Functions  []string `json:"functions"`
}

// ClassEntry is one flattened index row.
type ClassEntry struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

// Entries flattens the index into rows, classes first, then extensions,
// then functions, each block in sorted name order.
func (idx *ClassIndex) Entries() []ClassEntry {
	entries := make([]ClassEntry, 0, len(idx.Classes)+len(idx.Extensions)+len(idx.Functions))

	for _, name := range idx.Classes {
		entries = append(entries, ClassEntry{Kind: ClassKindClass, Name: name})
	}

	for _, name := range idx.Extensions {
		entries = append(entries, ClassEntry{Kind: ClassKindExtension, Name: name})
	}

	for _, name := range idx.Functions {
		entries = append(entries, ClassEntry{Kind: ClassKindFunction, Name: name})
	}

	return entries
}

// MemberClasses returns the class and extension names, in listing order.
// These are the names that can carry methods and fields.
func (idx *ClassIndex) MemberClasses() []string {
	names := make([]string, 0, len(idx.Classes)+len(idx.Extensions))
	names = append(names, idx.Classes...)
	names = append(names, idx.Extensions...)

	return names
}

// ClassParam is one parameter of a script-engine method.
type ClassParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ClassMethod is one method of a script-engine class.
type ClassMethod struct {
	Name       string       `json:"name"`
	ReturnType string       `json:"returnType"`
	Parameters []ClassParam `json:"parameters"`
}

// Signature renders the method as "ReturnType name(Type arg, ...)".
func (m ClassMethod) Signature() string {
	params := make([]string, 0, len(m.Parameters))
	for _, p := range m.Parameters {
		params = append(params, strings.TrimSpace(p.Type+" "+p.Name))
	}

	ret := m.ReturnType
	if ret == "" {
		ret = "void"
	}

	return fmt.Sprintf("%s %s(%s)", ret, m.Name, strings.Join(params, ", "))
}

// ClassField is one field of a script-engine class.
type ClassField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ClassDetail is one declaration record of a class. The backend may report
// several records per name (the class plus its superclasses).
type ClassDetail struct {
	Methods []ClassMethod `json:"methods"`
	Fields  []ClassField  `json:"fields"`
}

// MemberHit is one method or field matched by a scoped member search.
type MemberHit struct {
	Class     string `json:"class"`
	Kind      string `json:"kind"` // "method" or "field"
	Name      string `json:"name"`
	Signature string `json:"signature"`
}

// ClassClient browses the script-engine classes the backend exposes to
// endpoint scripts.
type ClassClient struct {
	session *Session
	logger  *slog.Logger
}

// NewClassClient creates the class explorer collaborator.
func NewClassClient(session *Session, logger *slog.Logger) *ClassClient {
	if logger == nil {
		logger = slog.Default()
	}

	return &ClassClient{session: session, logger: logger}
}

// Index fetches the top-level class index. Names within each kind come
// back sorted so listings are deterministic.
func (c *ClassClient) Index(ctx context.Context) (*ClassIndex, error) {
	data, err := c.session.Call(ctx, Request{Method: http.MethodPost, Path: classesPath})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Classes    map[string]json.RawMessage `json:"classes"`
		Extensions map[string]json.RawMessage `json:"extensions"`
		Functions  map[string]json.RawMessage `json:"functions"`
	}

	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding class index: %v", ErrMalformedResponse, err)
	}

	return &ClassIndex{
		Classes:    sortedKeys(payload.Classes),
		Extensions: sortedKeys(payload.Extensions),
		Functions:  sortedKeys(payload.Functions),
	}, nil
}

// Details fetches the declaration records of one class.
func (c *ClassClient) Details(ctx context.Context, className string) ([]ClassDetail, error) {
	if strings.TrimSpace(className) == "" {
		return nil, fmt.Errorf("magicapi: class name must not be empty")
	}

	form := url.Values{}
	form.Set("className", className)

	data, err := c.session.Call(ctx, Request{Method: http.MethodPost, Path: classPath, Form: form})
	if err != nil {
		return nil, err
	}

	var details []ClassDetail
	if err := json.Unmarshal(data, &details); err != nil {
		return nil, fmt.Errorf("%w: decoding class details: %v", ErrMalformedResponse, err)
	}

	return details, nil
}

// Txt fetches the compressed class listing, one "package:Class,Class,..."
// line per package. The endpoint returns plain text, not an envelope.
func (c *ClassClient) Txt(ctx context.Context) (string, error) {
	resp, err := c.session.Send(ctx, Request{Method: http.MethodGet, Path: classesTxtPath})
	if err != nil {
		return "", err
	}

	if resp.Status != http.StatusOK {
		return "", &APIError{Status: resp.Status, Message: excerpt(resp.Body), Err: ErrNetwork}
	}

	return string(resp.Body), nil
}

// SearchMembers fetches the details of every class and extension in the
// index and returns the methods and fields whose names match the pattern.
// scope narrows the search to methods or fields only. Classes whose detail
// fetch fails are skipped so one broken class cannot sink the whole search.
func (c *ClassClient) SearchMembers(ctx context.Context, idx *ClassIndex, opts FilterOptions, scope ClassScope) ([]MemberHit, error) {
	match, err := compileMatcher(opts)
	if err != nil {
		return nil, err
	}

	if scope == "" {
		scope = ClassScopeAll
	}

	var hits []MemberHit

	for _, className := range idx.MemberClasses() {
		details, err := c.Details(ctx, className)
		if err != nil {
			c.logger.Debug("skipping class in member search",
				slog.String("class", className),
				slog.Any("error", err),
			)

			continue
		}

		for _, detail := range details {
			if scope == ClassScopeAll || scope == ClassScopeMethod {
				for _, method := range detail.Methods {
					if match(method.Name) {
						hits = append(hits, MemberHit{
							Class:     className,
							Kind:      "method",
							Name:      method.Name,
							Signature: method.Signature(),
						})
					}
				}
			}

			if scope == ClassScopeAll || scope == ClassScopeField {
				for _, field := range detail.Fields {
					if match(field.Name) {
						hits = append(hits, MemberHit{
							Class:     className,
							Kind:      "field",
							Name:      field.Name,
							Signature: strings.TrimSpace(field.Type + " " + field.Name),
						})
					}
				}
			}
		}
	}

	return hits, nil
}

// FilterClassEntries returns the index rows whose names match the pattern,
// with the same substring/regex semantics as endpoint filtering.
func FilterClassEntries(entries []ClassEntry, opts FilterOptions) ([]ClassEntry, error) {
	if opts.Pattern == "" {
		return entries, nil
	}

	match, err := compileMatcher(opts)
	if err != nil {
		return nil, err
	}

	filtered := make([]ClassEntry, 0, len(entries))

	for _, entry := range entries {
		if match(entry.Name) {
			filtered = append(filtered, entry)
		}
	}

	return filtered, nil
}

// TxtEntry is one class from the compressed listing, qualified by package.
type TxtEntry struct {
	Package string `json:"package"`
	Class   string `json:"class"`
}

// ParseClassesTxt splits the compressed listing into entries. Lines without
// a package separator are skipped.
func ParseClassesTxt(txt string) []TxtEntry {
	var entries []TxtEntry

	for _, line := range strings.Split(strings.TrimSpace(txt), "\n") {
		pkg, classes, found := strings.Cut(line, ":")
		if !found {
			continue
		}

		for _, class := range strings.Split(classes, ",") {
			class = strings.TrimSpace(class)
			if class == "" {
				continue
			}

			entries = append(entries, TxtEntry{Package: pkg, Class: class})
		}
	}

	return entries
}

// FilterTxtEntries returns the entries whose package or class name matches
// the pattern. A package match keeps every class in that package.
func FilterTxtEntries(entries []TxtEntry, opts FilterOptions) ([]TxtEntry, error) {
	if opts.Pattern == "" {
		return entries, nil
	}

	match, err := compileMatcher(opts)
	if err != nil {
		return nil, err
	}

	filtered := make([]TxtEntry, 0, len(entries))

	for _, entry := range entries {
		if match(entry.Package) || match(entry.Class) {
			filtered = append(filtered, entry)
		}
	}

	return filtered, nil
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
