package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/magicapi/magicapi-go/internal/magicapi"
)

func newGroupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage resource groups",
	}

	cmd.AddCommand(newGroupListCmd())
	cmd.AddCommand(newGroupCreateCmd())
	cmd.AddCommand(newGroupCopyCmd())

	return cmd
}

func newGroupListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List groups with their ids and paths",
		Args:  cobra.NoArgs,
		RunE:  runGroupList,
	}

	cmd.Flags().String("kind", string(magicapi.KindEndpoint), "tree section to list (api, function, task, datasource)")
	cmd.Flags().Bool("csv", false, "output CSV instead of a table")

	return cmd
}

func runGroupList(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	trees := magicapi.NewTreeClient(newSession(logger), logger)

	tree, err := trees.Fetch(cmd.Context())
	if err != nil {
		return err
	}

	kind, _ := cmd.Flags().GetString("kind")

	root := tree.Section(magicapi.NodeKind(kind))
	if root == nil {
		return fmt.Errorf("backend has no %q section", kind)
	}

	groups := magicapi.FlattenGroups(root)

	if flagJSON || resolvedCfg.JSON {
		return printJSON(os.Stdout, groups)
	}

	headers := []string{"ID", "PATH", "NAME", "PARENT"}

	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{g.ID, "/" + g.FullPath, g.Name, g.ParentID})
	}

	if csvOut, _ := cmd.Flags().GetBool("csv"); csvOut {
		return writeCSV(os.Stdout, headers, rows)
	}

	printTable(os.Stdout, headers, rows)

	return nil
}

func newGroupCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a group",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runGroupCreate,
	}

	cmd.Flags().String("parent", "", "parent group id (default: top level)")
	cmd.Flags().String("type", "", "group type: api, function, task, datasource (default api)")
	cmd.Flags().String("path", "", "path fragment the group contributes")
	cmd.Flags().String("options", "", "raw options JSON merged into the group record")
	cmd.Flags().String("batch", "", "JSON file with an array of group specs to create")

	return cmd
}

func runGroupCreate(cmd *cobra.Command, args []string) error {
	logger := buildLogger()
	ops := magicapi.NewOps(newSession(logger), logger)

	if batchFile, _ := cmd.Flags().GetString("batch"); batchFile != "" {
		var specs []magicapi.GroupSpec
		if err := readBatchFile(batchFile, &specs); err != nil {
			return err
		}

		result := ops.BatchCreateGroups(cmd.Context(), specs)

		return renderBatch(cmd, result)
	}

	if len(args) == 0 {
		return fmt.Errorf("group name required (or use --batch)")
	}

	parent, _ := cmd.Flags().GetString("parent")
	groupType, _ := cmd.Flags().GetString("type")
	path, _ := cmd.Flags().GetString("path")
	options, _ := cmd.Flags().GetString("options")

	spec := magicapi.GroupSpec{
		Name:     args[0],
		ParentID: parent,
		Type:     groupType,
		Path:     path,
	}

	if options != "" {
		spec.Options = json.RawMessage(options)
	}

	id, err := ops.CreateGroup(cmd.Context(), spec)
	if err != nil {
		return err
	}

	fmt.Println(id)

	return nil
}

func newGroupCopyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy <src-group-id> <target-group-id>",
		Short: "Copy a group subtree under another group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger()
			ops := magicapi.NewOps(newSession(logger), logger)

			id, err := ops.CopyGroup(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Println(id)

			return nil
		},
	}
}

func newAPICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Manage API endpoints",
	}

	cmd.AddCommand(newAPICreateCmd())

	return cmd
}

func newAPICreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an API endpoint",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAPICreate,
	}

	cmd.Flags().String("group", "", "group id the endpoint belongs to")
	cmd.Flags().String("method", "GET", "HTTP method")
	cmd.Flags().String("path", "", "endpoint path fragment")
	cmd.Flags().String("script", "", "endpoint script body")
	cmd.Flags().String("script-file", "", "read the script body from a file")
	cmd.Flags().String("batch", "", "JSON file with an array of endpoint specs to create")

	return cmd
}

func runAPICreate(cmd *cobra.Command, args []string) error {
	logger := buildLogger()
	ops := magicapi.NewOps(newSession(logger), logger)

	if batchFile, _ := cmd.Flags().GetString("batch"); batchFile != "" {
		var specs []magicapi.APISpec
		if err := readBatchFile(batchFile, &specs); err != nil {
			return err
		}

		result := ops.BatchCreateAPIs(cmd.Context(), specs)

		return renderBatch(cmd, result)
	}

	if len(args) == 0 {
		return fmt.Errorf("endpoint name required (or use --batch)")
	}

	group, _ := cmd.Flags().GetString("group")
	method, _ := cmd.Flags().GetString("method")
	path, _ := cmd.Flags().GetString("path")
	script, _ := cmd.Flags().GetString("script")

	if scriptFile, _ := cmd.Flags().GetString("script-file"); scriptFile != "" {
		content, err := os.ReadFile(scriptFile)
		if err != nil {
			return fmt.Errorf("reading script file: %w", err)
		}

		script = string(content)
	}

	id, err := ops.CreateAPI(cmd.Context(), magicapi.APISpec{
		GroupID: group,
		Name:    args[0],
		Method:  method,
		Path:    path,
		Script:  script,
	})
	if err != nil {
		return err
	}

	fmt.Println(id)

	return nil
}

func newResourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resource",
		Short: "Move, delete, lock, and unlock resources",
	}

	cmd.AddCommand(newResourceMoveCmd())
	cmd.AddCommand(newResourceDeleteCmd())
	cmd.AddCommand(newResourceLockCmd())
	cmd.AddCommand(newResourceUnlockCmd())

	return cmd
}

func newResourceMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <target-group-id>",
		Short: "Move a resource under another group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger()
			ops := magicapi.NewOps(newSession(logger), logger)

			if err := ops.Move(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}

			statusf("moved %s under %s\n", args[0], args[1])

			return nil
		},
	}
}

func newResourceDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete [id...]",
		Short: "Delete resources (groups delete their whole subtree)",
		Args:  cobra.ArbitraryArgs,
		RunE:  runResourceDelete,
	}

	cmd.Flags().String("batch", "", "JSON file with an array of resource ids to delete")

	return cmd
}

func runResourceDelete(cmd *cobra.Command, args []string) error {
	logger := buildLogger()
	ops := magicapi.NewOps(newSession(logger), logger)

	ids := args

	if batchFile, _ := cmd.Flags().GetString("batch"); batchFile != "" {
		if err := readBatchFile(batchFile, &ids); err != nil {
			return err
		}
	}

	if len(ids) == 0 {
		return fmt.Errorf("at least one resource id required (or use --batch)")
	}

	if len(ids) == 1 {
		if err := ops.Delete(cmd.Context(), ids[0]); err != nil {
			return err
		}

		statusf("deleted %s\n", ids[0])

		return nil
	}

	result := ops.BatchDelete(cmd.Context(), ids)

	return renderBatch(cmd, result)
}

func newResourceLockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lock <id>",
		Short: "Lock a resource against modification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger()
			ops := magicapi.NewOps(newSession(logger), logger)

			if err := ops.Lock(cmd.Context(), args[0]); err != nil {
				return err
			}

			statusf("locked %s\n", args[0])

			return nil
		},
	}
}

func newResourceUnlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <id>",
		Short: "Unlock a locked resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger()
			ops := magicapi.NewOps(newSession(logger), logger)

			if err := ops.Unlock(cmd.Context(), args[0]); err != nil {
				return err
			}

			statusf("unlocked %s\n", args[0])

			return nil
		},
	}
}

// readBatchFile decodes a JSON array from a file into out.
func readBatchFile(path string, out any) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading batch file: %w", err)
	}

	if err := json.Unmarshal(content, out); err != nil {
		return fmt.Errorf("parsing batch file %s: %w", path, err)
	}

	return nil
}

// renderBatch prints a per-item batch outcome. Any failed item makes the
// command exit nonzero, after every item has been reported.
func renderBatch(cmd *cobra.Command, result magicapi.BatchResult) error {
	if flagJSON || resolvedCfg.JSON {
		type itemView struct {
			Key   string `json:"key"`
			ID    string `json:"id,omitempty"`
			Error string `json:"error,omitempty"`
		}

		view := struct {
			Successful int        `json:"successful"`
			Failed     int        `json:"failed"`
			Results    []itemView `json:"results"`
		}{Successful: result.Successful, Failed: result.Failed}

		for _, r := range result.Results {
			item := itemView{Key: r.Key, ID: r.ID}
			if r.Err != nil {
				item.Error = r.Err.Error()
			}

			view.Results = append(view.Results, item)
		}

		if err := printJSON(os.Stdout, view); err != nil {
			return err
		}
	} else {
		for _, r := range result.Results {
			if r.Err != nil {
				fmt.Printf("FAIL  %s: %v\n", r.Key, r.Err)
			} else if r.ID != "" {
				fmt.Printf("OK    %s -> %s\n", r.Key, r.ID)
			} else {
				fmt.Printf("OK    %s\n", r.Key)
			}
		}

		statusf("%d succeeded, %d failed\n", result.Successful, result.Failed)
	}

	if result.Failed > 0 {
		return fmt.Errorf("%d of %d batch items failed", result.Failed, result.Successful+result.Failed)
	}

	return nil
}
