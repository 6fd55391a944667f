// Command example-server serves the example MCP capabilities over stdio.
//
// Requests are read from stdin one JSON-RPC message per line and responses
// are written to stdout the same way. Logs go to stderr.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/mcp-example-server/internal/capabilities"
	"github.com/ajitpratap0/mcp-example-server/pkg/config"
	"github.com/ajitpratap0/mcp-example-server/pkg/protocol"
	"github.com/ajitpratap0/mcp-example-server/pkg/registry"
)

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// execute runs the command line and returns the process exit code
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCommand(stdin, stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "example-server: %v\n", err)
		return 1
	}
	return 0
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	serveRun := func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(config.Options{Flags: cmd.Flags()})
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg, stdin, stdout, stderr)
	}

	root := &cobra.Command{
		Use:           "example-server",
		Short:         "Example MCP server over stdio",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveRun,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve requests from stdin until EOF or a signal (default)",
			Args:  cobra.NoArgs,
			RunE:  serveRun,
		},
		&cobra.Command{
			Use:   "capabilities",
			Short: "Print the registered resources, tools and prompts as JSON",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := config.Load(config.Options{Flags: cmd.Flags()})
				if err != nil {
					return err
				}
				return printCapabilities(cmd.OutOrStdout(), cfg)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the server name and version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := config.Load(config.Options{Flags: cmd.Flags()})
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", cfg.Name, cfg.Version)
				return err
			},
		},
	)
	return root
}

type surface struct {
	Tools             []protocol.Tool             `json:"tools"`
	Resources         []protocol.Resource         `json:"resources"`
	ResourceTemplates []protocol.ResourceTemplate `json:"resourceTemplates"`
	Prompts           []protocol.Prompt           `json:"prompts"`
}

func buildRegistry(cfg *config.Config) (*registry.Registry, error) {
	reg := registry.New()
	if err := capabilities.RegisterAll(reg, capabilities.Deps{SQLiteBaseDir: cfg.SQLite.BaseDir}); err != nil {
		return nil, fmt.Errorf("register capabilities: %w", err)
	}
	reg.Freeze()
	return reg, nil
}

func printCapabilities(w io.Writer, cfg *config.Config) error {
	reg, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(surface{
		Tools:             reg.Tools(),
		Resources:         reg.Resources(),
		ResourceTemplates: reg.Templates(),
		Prompts:           reg.Prompts(),
	}, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
