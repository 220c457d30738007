package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/magicapi/magicapi-go/internal/magicapi"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Inspect and restore backend backups",
	}

	cmd.AddCommand(newBackupListCmd())
	cmd.AddCommand(newBackupHistoryCmd())
	cmd.AddCommand(newBackupContentCmd())
	cmd.AddCommand(newBackupRollbackCmd())
	cmd.AddCommand(newBackupFullCmd())

	return cmd
}

func newBackupListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List backup records",
		Args:  cobra.NoArgs,
		RunE:  runBackupList,
	}

	cmd.Flags().Int64("before", 0, "list records created before this unix millisecond timestamp")
	cmd.Flags().String("filter", "", "fuzzy filter over id, type, name, creator, and tag")
	cmd.Flags().String("name", "", "filter by record name")
	cmd.Flags().Int("limit", 0, "cap the number of records shown (0 = all)")

	return cmd
}

func runBackupList(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	backups := magicapi.NewBackupClient(newSession(logger), logger)

	before, _ := cmd.Flags().GetInt64("before")

	records, err := backups.List(cmd.Context(), before)
	if err != nil {
		return err
	}

	fuzzy, _ := cmd.Flags().GetString("filter")
	name, _ := cmd.Flags().GetString("name")
	records = magicapi.FilterBackups(records, fuzzy, name)

	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	return renderBackups(records)
}

func newBackupHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show the version history of one backed-up object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger()
			backups := magicapi.NewBackupClient(newSession(logger), logger)

			records, err := backups.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return renderBackups(records)
		},
	}
}

func newBackupContentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "content <id> <timestamp>",
		Short: "Print the stored content of one backup version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			timestamp, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid timestamp %q: %w", args[1], err)
			}

			logger := buildLogger()
			backups := magicapi.NewBackupClient(newSession(logger), logger)

			content, err := backups.Content(cmd.Context(), args[0], timestamp)
			if err != nil {
				return err
			}

			fmt.Println(content)

			return nil
		},
	}
}

func newBackupRollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <id> <timestamp>",
		Short: "Restore an object to a backup version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			timestamp, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid timestamp %q: %w", args[1], err)
			}

			logger := buildLogger()
			backups := magicapi.NewBackupClient(newSession(logger), logger)

			if err := backups.Rollback(cmd.Context(), args[0], timestamp); err != nil {
				return err
			}

			statusf("rolled back %s to %d\n", args[0], timestamp)

			return nil
		},
	}
}

func newBackupFullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "full",
		Short: "Trigger a full backup on the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()
			backups := magicapi.NewBackupClient(newSession(logger), logger)

			if err := backups.FullBackup(cmd.Context()); err != nil {
				return err
			}

			statusf("full backup requested\n")

			return nil
		},
	}
}

func renderBackups(records []magicapi.BackupRecord) error {
	if flagJSON || resolvedCfg.JSON {
		return printJSON(os.Stdout, records)
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		created := time.UnixMilli(r.CreateDate).Format("2006-01-02 15:04:05")
		rows = append(rows, []string{r.ID, r.Type, r.Name, r.Tag, r.CreateBy, created})
	}

	printTable(os.Stdout, []string{"ID", "TYPE", "NAME", "TAG", "BY", "CREATED"}, rows)

	return nil
}
