package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/magicapi/magicapi-go/internal/magicapi"
)

func newClassesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classes",
		Short: "Browse the script-engine classes the backend exposes",
		Long: `Browse the script classes, extension classes, and global functions the
backend makes available to endpoint scripts.

By default the class index is listed. --search matches names (and, with
--scope method or field, the members of every class); --class shows one
class's methods and fields; --txt prints the compressed package listing.`,
		Args: cobra.NoArgs,
		RunE: runClasses,
	}

	cmd.Flags().String("search", "", "filter classes (or members) by pattern")
	cmd.Flags().Bool("regex", false, "treat --search as a regular expression")
	cmd.Flags().String("scope", "all", "what to match: all, class, method, field")
	cmd.Flags().String("class", "", "show the methods and fields of one class")
	cmd.Flags().Bool("txt", false, "print the compressed package:class listing")
	cmd.Flags().String("txt-search", "", "search the compressed listing by package or class name")
	cmd.Flags().Int("page", 1, "1-based page number")
	cmd.Flags().Int("page-size", 0, "rows per page (0 = everything on one page)")
	cmd.Flags().Bool("csv", false, "output CSV instead of a table")

	return cmd
}

func runClasses(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	classes := magicapi.NewClassClient(newSession(logger), logger)

	search, _ := cmd.Flags().GetString("search")
	className, _ := cmd.Flags().GetString("class")
	txt, _ := cmd.Flags().GetBool("txt")
	txtSearch, _ := cmd.Flags().GetString("txt-search")

	switch {
	case className != "":
		return runClassDetail(cmd, classes, className)
	case txt:
		return runClassesTxt(cmd, classes)
	case txtSearch != "":
		return runClassesTxtSearch(cmd, classes, txtSearch)
	case search != "":
		return runClassSearch(cmd, classes, search)
	default:
		return runClassList(cmd, classes)
	}
}

// classRow is one output row shared by the listing and search modes.
type classRow struct {
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	Details string `json:"details,omitempty"`
}

func runClassList(cmd *cobra.Command, classes *magicapi.ClassClient) error {
	idx, err := classes.Index(cmd.Context())
	if err != nil {
		return err
	}

	rows := make([]classRow, 0)
	for _, entry := range idx.Entries() {
		rows = append(rows, classRow{Kind: entry.Kind, Name: entry.Name})
	}

	return renderClassRows(cmd, rows)
}

func runClassSearch(cmd *cobra.Command, classes *magicapi.ClassClient, pattern string) error {
	regex, _ := cmd.Flags().GetBool("regex")
	scope, _ := cmd.Flags().GetString("scope")

	opts := magicapi.FilterOptions{Pattern: pattern, Regex: regex, Field: "search"}
	classScope := magicapi.ClassScope(scope)

	idx, err := classes.Index(cmd.Context())
	if err != nil {
		return err
	}

	var rows []classRow

	if classScope == magicapi.ClassScopeAll || classScope == magicapi.ClassScopeClass {
		entries, err := magicapi.FilterClassEntries(idx.Entries(), opts)
		if err != nil {
			return err
		}

		for _, entry := range entries {
			rows = append(rows, classRow{Kind: entry.Kind, Name: entry.Name})
		}
	}

	if classScope != magicapi.ClassScopeClass {
		hits, err := classes.SearchMembers(cmd.Context(), idx, opts, classScope)
		if err != nil {
			return err
		}

		for _, hit := range hits {
			rows = append(rows, classRow{
				Kind:    hit.Kind,
				Name:    hit.Class + "." + hit.Name,
				Details: hit.Signature,
			})
		}
	}

	if len(rows) == 0 {
		statusf("nothing matches %q in scope %s\n", pattern, scope)
	}

	return renderClassRows(cmd, rows)
}

func runClassDetail(cmd *cobra.Command, classes *magicapi.ClassClient, className string) error {
	details, err := classes.Details(cmd.Context(), className)
	if err != nil {
		return err
	}

	if flagJSON || resolvedCfg.JSON {
		return printJSON(os.Stdout, map[string]any{
			"class":   className,
			"details": details,
		})
	}

	if len(details) == 0 {
		statusf("class %q has no published details\n", className)

		return nil
	}

	fmt.Printf("Class: %s\n", className)

	for _, detail := range details {
		if len(detail.Methods) > 0 {
			fmt.Println("Methods:")

			for _, method := range detail.Methods {
				fmt.Printf("  %s\n", method.Signature())
			}
		}

		if len(detail.Fields) > 0 {
			fmt.Println("Fields:")

			for _, field := range detail.Fields {
				fmt.Printf("  %s %s\n", field.Type, field.Name)
			}
		}
	}

	return nil
}

func runClassesTxt(cmd *cobra.Command, classes *magicapi.ClassClient) error {
	txt, err := classes.Txt(cmd.Context())
	if err != nil {
		return err
	}

	if csvOut, _ := cmd.Flags().GetBool("csv"); csvOut {
		entries := magicapi.ParseClassesTxt(txt)

		rows := make([][]string, 0, len(entries))
		for _, entry := range entries {
			rows = append(rows, []string{entry.Package, entry.Class})
		}

		return writeCSV(os.Stdout, []string{"PACKAGE", "CLASS"}, rows)
	}

	fmt.Print(txt)

	return nil
}

func runClassesTxtSearch(cmd *cobra.Command, classes *magicapi.ClassClient, pattern string) error {
	regex, _ := cmd.Flags().GetBool("regex")

	txt, err := classes.Txt(cmd.Context())
	if err != nil {
		return err
	}

	entries, err := magicapi.FilterTxtEntries(magicapi.ParseClassesTxt(txt), magicapi.FilterOptions{
		Pattern: pattern,
		Regex:   regex,
		Field:   "txt-search",
	})
	if err != nil {
		return err
	}

	rows := make([]classRow, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, classRow{Kind: "class", Name: entry.Package + "." + entry.Class})
	}

	if len(rows) == 0 {
		statusf("nothing matches %q\n", pattern)
	}

	return renderClassRows(cmd, rows)
}

// renderClassRows paginates and prints class rows as JSON, CSV, or a table.
func renderClassRows(cmd *cobra.Command, rows []classRow) error {
	page, err := paginateClassFlags(cmd, rows)
	if err != nil {
		return err
	}

	if flagJSON || resolvedCfg.JSON {
		return printJSON(os.Stdout, page)
	}

	headers := []string{"KIND", "NAME", "DETAILS"}

	out := make([][]string, 0, len(page.Items))
	for _, row := range page.Items {
		out = append(out, []string{row.Kind, row.Name, row.Details})
	}

	if csvOut, _ := cmd.Flags().GetBool("csv"); csvOut {
		return writeCSV(os.Stdout, headers, out)
	}

	printTable(os.Stdout, headers, out)

	if page.TotalPages > 1 {
		statusf("page %d of %d (%d rows total)\n",
			page.Number, page.TotalPages, page.TotalCount)
	}

	return nil
}

func paginateClassFlags(cmd *cobra.Command, rows []classRow) (magicapi.Page[classRow], error) {
	page, _ := cmd.Flags().GetInt("page")
	pageSize, _ := cmd.Flags().GetInt("page-size")

	if pageSize == 0 {
		pageSize = len(rows)
		if pageSize == 0 {
			pageSize = 1
		}
	}

	return magicapi.Paginate(rows, page, pageSize)
}
