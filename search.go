package main

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/magicapi/magicapi-go/internal/magicapi"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search endpoint scripts for a keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger()
			searches := magicapi.NewSearchClient(newSession(logger))

			limit, _ := cmd.Flags().GetInt("limit")

			hits, err := searches.Search(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}

			return renderHits(hits)
		},
	}

	cmd.Flags().Int("limit", 0, "cap the number of hits shown (0 = all)")

	return cmd
}

func newTodoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "todo",
		Short: "List TODO comments across endpoint scripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()
			searches := magicapi.NewSearchClient(newSession(logger))

			limit, _ := cmd.Flags().GetInt("limit")

			hits, err := searches.Todos(cmd.Context(), limit)
			if err != nil {
				return err
			}

			return renderHits(hits)
		},
	}

	cmd.Flags().Int("limit", 0, "cap the number of hits shown (0 = all)")

	return cmd
}

func renderHits(hits []magicapi.SearchHit) error {
	if flagJSON || resolvedCfg.JSON {
		return printJSON(os.Stdout, hits)
	}

	rows := make([][]string, 0, len(hits))
	for _, h := range hits {
		rows = append(rows, []string{h.ID, strconv.Itoa(h.Line), h.Text})
	}

	printTable(os.Stdout, []string{"ID", "LINE", "TEXT"}, rows)

	return nil
}
