package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"mcpd/internal/builtin"
	"mcpd/internal/config"
	"mcpd/internal/logging"
	"mcpd/internal/mcp/protocol"
	"mcpd/internal/mcp/server"
	"mcpd/internal/mcp/tools"
	"mcpd/internal/repl"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// options holds the persistent flags
type options struct {
	configFile string
	logFile    string
	logLevel   string
}

func (o *options) overrides() config.Overrides {
	return config.Overrides{
		ConfigFile: o.configFile,
		LogFile:    o.logFile,
		LogLevel:   o.logLevel,
	}
}

// app is everything built once at startup
type app struct {
	cfg        *config.Config
	registry   *tools.Registry
	dispatcher *server.Dispatcher
	sink       *logging.Sink
}

func (a *app) Close() error {
	a.sink.Info("shutting down")
	return a.sink.Close()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "mcpd [request-file]",
		Short: "MCP tool server speaking JSON-RPC 2.0 over stdio",
		Long: `mcpd answers Model Context Protocol requests, one JSON object per line.

Without arguments it serves stdin until end of input. Given a file, it
answers the single request the file contains and exits.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			transport := server.NewTransport(a.dispatcher, a.sink)
			if len(args) == 1 {
				file, err := os.Open(args[0])
				if err != nil {
					a.sink.Error("failed to open request file", "path", args[0], "error", err)
					return fmt.Errorf("failed to open request file: %w", err)
				}
				defer file.Close()
				return transport.ServeOnce(ctx, file, cmd.OutOrStdout())
			}
			return transport.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "Path to configuration file (env MCPD_CONFIG)")
	root.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "Path to the log file (env MCPD_LOG_FILE)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, request, response, warn, error (env MCPD_LOG_LEVEL)")

	root.AddCommand(
		newConsoleCmd(opts),
		newToolsCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

func newConsoleCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Send requests interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			repl.Start(cmd.Context(), repl.NewConsole(a.dispatcher, cmd.OutOrStdout()))
			return nil
		},
	}
}

func newToolsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tool descriptors served by tools/list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			data, err := json.MarshalIndent(a.dispatcher.Tools(), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal tools: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newConfigCmd(opts *options) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default configuration including the built-in tool descriptors",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				var err error
				if path, err = xdg.ConfigFile(filepath.Join(config.AppName, "config.yaml")); err != nil {
					return fmt.Errorf("failed to resolve config path: %w", err)
				}
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
			}

			cfg := config.DefaultConfig()
			descriptors, err := builtin.Descriptors()
			if err != nil {
				return err
			}
			cfg.Tools = descriptors

			if err := config.SaveConfig(cfg, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(opts.overrides())
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	configCmd.AddCommand(initCmd, showCmd)
	return configCmd
}

// setup checks the JSON codec, resolves configuration, opens the log sink and
// fills and seals the tool registry. Nothing here changes once serving starts.
func setup(opts *options, stderr io.Writer) (*app, error) {
	if err := protocol.CheckCodec(); err != nil {
		return nil, fmt.Errorf("json codec unavailable: %w", err)
	}

	cfg, err := config.Resolve(opts.overrides())
	if err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	sink, err := logging.Open(cfg.LogFile, level)
	if err != nil {
		sink = logging.New(stderr, level)
		sink.Warn("log file unavailable, logging to stderr", "path", cfg.LogFile, "error", err)
	}

	registry := tools.NewRegistry()
	if err := builtin.Register(registry); err != nil {
		sink.Close()
		return nil, err
	}
	registry.Seal()

	if len(cfg.Tools) == 0 {
		if cfg.Tools, err = builtin.Descriptors(); err != nil {
			sink.Close()
			return nil, err
		}
	}

	for _, tool := range cfg.Tools {
		if _, ok := registry.Resolve(tool.Name); !ok {
			sink.Warn("advertised tool has no handler", "tool", tool.Name)
		}
	}

	sink.Info("starting",
		"server", cfg.Server.ServerInfo.Name,
		"version", cfg.Server.ServerInfo.Version,
		"tools", registry.Count(),
	)

	return &app{
		cfg:        cfg,
		registry:   registry,
		dispatcher: server.NewDispatcher(cfg, registry, sink),
		sink:       sink,
	}, nil
}
