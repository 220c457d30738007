package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/magicapi/magicapi-go/internal/magicapi"
)

func newEndpointsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "endpoints",
		Short: "List, resolve, and inspect API endpoints",
		Long: `List the flattened API endpoints, resolve a path to its backend ids,
or fetch the full detail record of one endpoint.

Path resolution follows the first-match convention: when several endpoints
match, the first pre-order match is the answer and the alternates are
listed after it.`,
		Args: cobra.NoArgs,
		RunE: runEndpoints,
	}

	cmd.Flags().String("method", "", "keep only endpoints with this HTTP method")
	cmd.Flags().String("search", "", "filter rows by pattern")
	cmd.Flags().Bool("regex", false, "treat --search as a regular expression")
	cmd.Flags().String("scope", "all", "fields to match: all, path, name, method")
	cmd.Flags().Int("depth", 0, "keep only paths with at most this many segments (0 = no limit)")
	cmd.Flags().Int("page", 1, "1-based page number")
	cmd.Flags().Int("page-size", 0, "rows per page (0 = everything on one page)")
	cmd.Flags().Bool("csv", false, "output CSV instead of a table")
	cmd.Flags().String("path-to-id", "", "resolve an endpoint path to its backend ids")
	cmd.Flags().String("detail", "", "fetch the detail record of an endpoint by id")
	cmd.Flags().String("path-to-detail", "", "resolve a path and fetch the first match's detail record")
	cmd.Flags().Bool("stats", false, "print tree statistics instead of a listing")

	return cmd
}

func runEndpoints(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	session := newSession(logger)

	pathToID, _ := cmd.Flags().GetString("path-to-id")
	detail, _ := cmd.Flags().GetString("detail")
	pathToDetail, _ := cmd.Flags().GetString("path-to-detail")
	stats, _ := cmd.Flags().GetBool("stats")

	switch {
	case detail != "":
		return runEndpointDetail(cmd, session, logger, detail)
	case pathToID != "":
		return runPathToID(cmd, session, logger, pathToID)
	case pathToDetail != "":
		return runPathToDetail(cmd, session, logger, pathToDetail)
	case stats:
		return runEndpointStats(cmd, session, logger)
	default:
		return runEndpointList(cmd, session, logger)
	}
}

func runEndpointList(cmd *cobra.Command, session *magicapi.Session, logger *slog.Logger) error {
	items, err := fetchEndpoints(cmd, session, logger)
	if err != nil {
		return err
	}

	if method, _ := cmd.Flags().GetString("method"); method != "" {
		items, err = magicapi.FilterEndpoints(items, magicapi.FilterOptions{
			Pattern: method,
			Scope:   magicapi.ScopeMethod,
			Field:   "method",
		})
		if err != nil {
			return err
		}
	}

	items, err = applyListingFlags(cmd, items)
	if err != nil {
		return err
	}

	page, err := paginateFlags(cmd, items)
	if err != nil {
		return err
	}

	return renderEndpoints(cmd, page)
}

// resolvePath resolves a path against the api section and returns every
// match in pre-order.
func resolvePath(cmd *cobra.Command, session *magicapi.Session, logger *slog.Logger, path string) ([]magicapi.MatchedNode, error) {
	trees := magicapi.NewTreeClient(session, logger)

	tree, err := trees.Fetch(cmd.Context())
	if err != nil {
		return nil, err
	}

	root := tree.Section(magicapi.KindEndpoint)
	if root == nil {
		return nil, fmt.Errorf("backend has no api section")
	}

	return magicapi.FindByPath(root, path), nil
}

func runPathToID(cmd *cobra.Command, session *magicapi.Session, logger *slog.Logger, path string) error {
	matches, err := resolvePath(cmd, session, logger, path)
	if err != nil {
		return err
	}

	if flagJSON || resolvedCfg.JSON {
		return printJSON(os.Stdout, matches)
	}

	if len(matches) == 0 {
		statusf("no endpoint matches %q\n", path)

		return nil
	}

	rows := make([][]string, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, []string{m.ID, m.Method, "/" + m.FullPath, m.Name})
	}

	printTable(os.Stdout, []string{"ID", "METHOD", "PATH", "NAME"}, rows)

	if len(matches) > 1 {
		statusf("%d endpoints match; the first is the conventional answer\n", len(matches))
	}

	return nil
}

func runPathToDetail(cmd *cobra.Command, session *magicapi.Session, logger *slog.Logger, path string) error {
	matches, err := resolvePath(cmd, session, logger, path)
	if err != nil {
		return err
	}

	if len(matches) == 0 {
		return fmt.Errorf("no endpoint matches %q", path)
	}

	if len(matches) > 1 {
		statusf("%d endpoints match %q; showing the first (/%s)\n",
			len(matches), path, matches[0].FullPath)
	}

	return runEndpointDetail(cmd, session, logger, matches[0].ID)
}

func runEndpointDetail(cmd *cobra.Command, session *magicapi.Session, logger *slog.Logger, id string) error {
	ops := magicapi.NewOps(session, logger)

	detail, err := ops.FileDetail(cmd.Context(), id)
	if err != nil {
		return err
	}

	if flagJSON || resolvedCfg.JSON {
		return printJSON(os.Stdout, detail)
	}

	fmt.Printf("ID:      %s\n", detail.ID)
	fmt.Printf("Name:    %s\n", detail.Name)
	fmt.Printf("Method:  %s\n", detail.Method)
	fmt.Printf("Path:    %s\n", detail.Path)
	fmt.Printf("Group:   %s\n", detail.GroupID)

	if detail.Description != "" {
		fmt.Printf("About:   %s\n", detail.Description)
	}

	if detail.Script != "" {
		fmt.Printf("\n%s\n", detail.Script)
	}

	return nil
}

func runEndpointStats(cmd *cobra.Command, session *magicapi.Session, logger *slog.Logger) error {
	trees := magicapi.NewTreeClient(session, logger)

	tree, err := trees.Fetch(cmd.Context())
	if err != nil {
		return err
	}

	stats := magicapi.ComputeStats(tree)

	if flagJSON || resolvedCfg.JSON {
		return printJSON(os.Stdout, stats)
	}

	fmt.Printf("Resources: %d\n", stats.TotalResources)
	fmt.Printf("Endpoints: %d\n", stats.Endpoints)
	fmt.Printf("Other:     %d\n", stats.OtherResources)

	methods := make([]string, 0, len(stats.ByMethod))
	for m := range stats.ByMethod {
		methods = append(methods, m)
	}

	sort.Strings(methods)

	for _, m := range methods {
		fmt.Printf("  %-8s %d\n", m, stats.ByMethod[m])
	}

	return nil
}

// fetchEndpoints returns the flattened api section.
func fetchEndpoints(cmd *cobra.Command, session *magicapi.Session, logger *slog.Logger) ([]magicapi.Endpoint, error) {
	trees := magicapi.NewTreeClient(session, logger)

	tree, err := trees.Fetch(cmd.Context())
	if err != nil {
		return nil, err
	}

	root := tree.Section(magicapi.KindEndpoint)
	if root == nil {
		return nil, nil
	}

	return magicapi.Flatten(root), nil
}
