package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/magicapi/magicapi-go/internal/magicapi"
)

func newCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <method> <path>",
		Short: "Invoke an API endpoint",
		Long: `Invoke an API endpoint and print the raw response body.

With --listen, a console session is opened first and the invocation's
script logs stream to stderr while the call runs.`,
		Args: cobra.ExactArgs(2),
		RunE: runCall,
	}

	cmd.Flags().StringArray("param", nil, "query parameter, key=value (repeatable)")
	cmd.Flags().String("body", "", "JSON request body")
	cmd.Flags().String("body-file", "", "read the JSON request body from a file")
	cmd.Flags().Bool("listen", false, "stream script logs over the console while calling")

	return cmd
}

func runCall(cmd *cobra.Command, args []string) error {
	logger := buildLogger()
	session := newSession(logger)
	caller := magicapi.NewCaller(session)

	params, _ := cmd.Flags().GetStringArray("param")

	query := url.Values{}
	for _, p := range params {
		key, value, found := strings.Cut(p, "=")
		if !found {
			return fmt.Errorf("invalid --param %q (want key=value)", p)
		}

		query.Add(key, value)
	}

	body, _ := cmd.Flags().GetString("body")

	if bodyFile, _ := cmd.Flags().GetString("body-file"); bodyFile != "" {
		content, err := os.ReadFile(bodyFile)
		if err != nil {
			return fmt.Errorf("reading body file: %w", err)
		}

		body = string(content)
	}

	req := magicapi.CallRequest{
		Method:   args[0],
		Path:     args[1],
		Query:    query,
		ClientID: uuid.NewString(),
	}

	if body != "" {
		req.Body = json.RawMessage(body)
	}

	listen, _ := cmd.Flags().GetBool("listen")
	if !listen {
		result, err := caller.Call(cmd.Context(), req)
		if err != nil {
			return err
		}

		return renderCallResult(result)
	}

	return callWithConsole(cmd.Context(), caller, req, logger)
}

// callWithConsole runs the console listener and the invocation concurrently
// so the call's script logs stream live. The listener is canceled once the
// call finishes; its cancellation is not an error.
func callWithConsole(ctx context.Context, caller *magicapi.Caller, req magicapi.CallRequest, logger *slog.Logger) error {
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	console := magicapi.NewConsole(resolvedCfg.BaseURL, resolvedCfg.Username, req.ClientID, logger)

	group, groupCtx := errgroup.WithContext(callCtx)

	group.Go(func() error {
		err := console.Listen(groupCtx, func(msg magicapi.ConsoleMessage) error {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", msg.Type, msg.Payload)

			return nil
		})
		if groupCtx.Err() != nil {
			return nil
		}

		return err
	})

	var result *magicapi.CallResult

	group.Go(func() error {
		defer cancel()

		r, err := caller.Call(groupCtx, req)
		if err != nil {
			return err
		}

		result = r

		return nil
	})

	if err := group.Wait(); err != nil {
		return err
	}

	return renderCallResult(result)
}

func renderCallResult(result *magicapi.CallResult) error {
	if flagJSON || resolvedCfg.JSON {
		if code, message, data, ok := result.Envelope(); ok {
			return printJSON(os.Stdout, map[string]any{
				"status":  result.Status,
				"code":    code,
				"message": message,
				"data":    data,
			})
		}

		return printJSON(os.Stdout, map[string]any{
			"status": result.Status,
			"body":   string(result.Body),
		})
	}

	statusf("HTTP %d\n", result.Status)
	fmt.Println(string(result.Body))

	return nil
}

func newListenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Stream backend script logs over the console channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()
			console := magicapi.NewConsole(resolvedCfg.BaseURL, resolvedCfg.Username, "", logger)

			statusf("listening as client %s (ctrl-c to stop)\n", console.ClientID())

			err := console.Listen(cmd.Context(), func(msg magicapi.ConsoleMessage) error {
				fmt.Printf("[%s] %s\n", msg.Type, msg.Payload)

				return nil
			})
			if cmd.Context().Err() != nil {
				return nil
			}

			return err
		},
	}
}
