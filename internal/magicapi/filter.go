package magicapi

import (
	"fmt"
	"regexp"
	"strings"
)

// FilterScope restricts which endpoint fields a pattern is matched against.
type FilterScope string

// Filter scopes.
const (
	ScopeAll    FilterScope = "all"
	ScopePath   FilterScope = "path"
	ScopeName   FilterScope = "name"
	ScopeMethod FilterScope = "method"
)

// FilterOptions describes one filtering pass over a flattened listing.
type FilterOptions struct {
	Pattern string      // empty means no filtering
	Regex   bool        // caller-declared: compile Pattern as a regular expression
	Scope   FilterScope // empty means ScopeAll
	Field   string      // which flag/field the pattern came from, for error reporting
}

// FilterEndpoints returns the items whose scoped fields match the pattern.
// Plain patterns match as case-insensitive substrings; regex patterns are
// compiled case-insensitively. A malformed regular expression rejects the
// whole operation with a *FilterError naming the offending field — the
// already-fetched listing is unaffected.
func FilterEndpoints(items []Endpoint, opts FilterOptions) ([]Endpoint, error) {
	if opts.Pattern == "" {
		return items, nil
	}

	match, err := compileMatcher(opts)
	if err != nil {
		return nil, err
	}

	scope := opts.Scope
	if scope == "" {
		scope = ScopeAll
	}

	filtered := make([]Endpoint, 0, len(items))

	for _, item := range items {
		if matchesScope(&item, scope, match) {
			filtered = append(filtered, item)
		}
	}

	return filtered, nil
}

// compileMatcher builds the match predicate for a pattern.
func compileMatcher(opts FilterOptions) (func(string) bool, error) {
	if !opts.Regex {
		needle := strings.ToLower(opts.Pattern)

		return func(s string) bool {
			return strings.Contains(strings.ToLower(s), needle)
		}, nil
	}

	re, err := regexp.Compile("(?i)" + opts.Pattern)
	if err != nil {
		field := opts.Field
		if field == "" {
			field = "search"
		}

		return nil, &FilterError{Field: field, Err: err}
	}

	return re.MatchString, nil
}

// matchesScope applies the predicate to the fields the scope selects.
func matchesScope(item *Endpoint, scope FilterScope, match func(string) bool) bool {
	switch scope {
	case ScopePath:
		return match(item.FullPath)
	case ScopeName:
		return match(item.Name)
	case ScopeMethod:
		return match(item.Method)
	default:
		return match(item.FullPath) || match(item.Name) || match(item.Method)
	}
}

// LimitDepth keeps only the items whose full path has at most maxDepth
// segments. maxDepth < 1 means no limit.
func LimitDepth(items []Endpoint, maxDepth int) []Endpoint {
	if maxDepth < 1 {
		return items
	}

	kept := make([]Endpoint, 0, len(items))

	for _, item := range items {
		if Depth(item.FullPath) <= maxDepth {
			kept = append(kept, item)
		}
	}

	return kept
}

// Page is one pagination window plus the totals the caller needs to tell
// "empty because out of range" from "zero results": check Number <= TotalPages.
type Page[T any] struct {
	Items      []T
	Number     int // 1-based page number that was requested
	TotalPages int
	TotalCount int
}

// Paginate slices items into the requested 1-based page window. Requesting
// a page beyond the last yields an empty window with the true totals — not
// an error. page and pageSize must be positive.
func Paginate[T any](items []T, page, pageSize int) (Page[T], error) {
	if page < 1 {
		return Page[T]{}, fmt.Errorf("magicapi: page must be >= 1, got %d", page)
	}

	if pageSize < 1 {
		return Page[T]{}, fmt.Errorf("magicapi: page size must be >= 1, got %d", pageSize)
	}

	total := len(items)
	totalPages := (total + pageSize - 1) / pageSize

	result := Page[T]{
		Number:     page,
		TotalPages: totalPages,
		TotalCount: total,
	}

	start := (page - 1) * pageSize
	if start >= total {
		return result, nil
	}

	end := start + pageSize
	if end > total {
		end = total
	}

	result.Items = items[start:end]

	return result, nil
}
