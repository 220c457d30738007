package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/magicapi/magicapi-go/internal/magicapi"
)

func newTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "List the backend resource tree",
		Long: `List the backend resource tree as flattened endpoint rows.

By default only the api section is shown; --kind selects another section
(function, task, datasource) and --all walks every section.`,
		Args: cobra.NoArgs,
		RunE: runTree,
	}

	cmd.Flags().String("kind", string(magicapi.KindEndpoint), "tree section to list (api, function, task, datasource)")
	cmd.Flags().Bool("all", false, "list every section")
	cmd.Flags().String("search", "", "filter rows by pattern")
	cmd.Flags().Bool("regex", false, "treat --search as a regular expression")
	cmd.Flags().String("scope", "all", "fields to match: all, path, name, method")
	cmd.Flags().Int("depth", 0, "keep only paths with at most this many segments (0 = no limit)")
	cmd.Flags().Int("page", 1, "1-based page number")
	cmd.Flags().Int("page-size", 0, "rows per page (0 = everything on one page)")
	cmd.Flags().Bool("csv", false, "output CSV instead of a table")

	return cmd
}

func runTree(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	session := newSession(logger)
	trees := magicapi.NewTreeClient(session, logger)

	tree, err := trees.Fetch(cmd.Context())
	if err != nil {
		return err
	}

	all, _ := cmd.Flags().GetBool("all")
	kind, _ := cmd.Flags().GetString("kind")

	var items []magicapi.Endpoint
	if all {
		items = magicapi.FlattenTree(tree)
	} else {
		root := tree.Section(magicapi.NodeKind(kind))
		if root == nil {
			return fmt.Errorf("backend has no %q section", kind)
		}

		items = magicapi.Flatten(root)
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

// applyListingFlags runs the shared search/scope/depth filters over a
// flattened listing.
func applyListingFlags(cmd *cobra.Command, items []magicapi.Endpoint) ([]magicapi.Endpoint, error) {
	pattern, _ := cmd.Flags().GetString("search")
	regex, _ := cmd.Flags().GetBool("regex")
	scope, _ := cmd.Flags().GetString("scope")
	depth, _ := cmd.Flags().GetInt("depth")

	items, err := magicapi.FilterEndpoints(items, magicapi.FilterOptions{
		Pattern: pattern,
		Regex:   regex,
		Scope:   magicapi.FilterScope(scope),
		Field:   "search",
	})
	if err != nil {
		return nil, err
	}

	return magicapi.LimitDepth(items, depth), nil
}

// paginateFlags slices a listing per --page/--page-size. A page size of
// zero puts everything on page one.
func paginateFlags(cmd *cobra.Command, items []magicapi.Endpoint) (magicapi.Page[magicapi.Endpoint], error) {
	page, _ := cmd.Flags().GetInt("page")
	pageSize, _ := cmd.Flags().GetInt("page-size")

	if pageSize == 0 {
		pageSize = len(items)
		if pageSize == 0 {
			pageSize = 1
		}
	}

	return magicapi.Paginate(items, page, pageSize)
}

// renderEndpoints prints one page of endpoint rows as JSON, CSV, or an
// aligned table depending on flags.
func renderEndpoints(cmd *cobra.Command, page magicapi.Page[magicapi.Endpoint]) error {
	if flagJSON || resolvedCfg.JSON {
		return printJSON(os.Stdout, page)
	}

	headers := []string{"METHOD", "PATH", "NAME"}

	rows := make([][]string, 0, len(page.Items))
	for _, item := range page.Items {
		rows = append(rows, []string{item.Method, "/" + item.FullPath, item.Name})
	}

	if csvOut, _ := cmd.Flags().GetBool("csv"); csvOut {
		return writeCSV(os.Stdout, headers, rows)
	}

	printTable(os.Stdout, headers, rows)

	if page.TotalPages > 1 {
		statusf("page %d of %d (%d endpoints total)\n",
			page.Number, page.TotalPages, page.TotalCount)
	}

	return nil
}
