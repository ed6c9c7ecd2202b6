// imessage-max answers questions about the local Messages history, as an MCP
// server over stdio or as one-shot JSON commands.
//
// Usage:
//
//	imessage-max serve
//	imessage-max find-chat --participant "John"
//	imessage-max messages chat12 --since 24h
//	imessage-max search "dinner" --from me --jq '.results[].text'
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Napageneral/imessage-max/internal/app"
	"github.com/Napageneral/imessage-max/internal/config"
	"github.com/Napageneral/imessage-max/internal/fixture"
	"github.com/Napageneral/imessage-max/internal/logging"
	"github.com/Napageneral/imessage-max/internal/outfmt"
	"github.com/Napageneral/imessage-max/internal/tools"
)

var version = "0.1.0-dev"

// errReported means the failure was already written as a JSON envelope.
var errReported = errors.New("reported")

// cli holds the global flags shared by every command.
type cli struct {
	out        io.Writer
	stderr     io.Writer
	dbPath     string
	configPath string
	jqFilter   string
	logLevel   string
}

func main() {
	c := &cli{out: os.Stdout, stderr: os.Stderr}
	if err := c.rootCmd().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func (c *cli) rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "imessage-max",
		Short:         "Read-only queries over the macOS Messages history",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(c.out)
	rootCmd.SetErr(c.stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.dbPath, "db", "", "path to chat.db (default ~/Library/Messages/chat.db)")
	flags.StringVar(&c.configPath, "config", "", "path to config.toml")
	flags.StringVar(&c.jqFilter, "jq", "", "jq expression applied to the JSON output")
	flags.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn or error")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.print(map[string]any{"version": version})
		},
	}

	pathsCmd := &cobra.Command{
		Use:   "paths",
		Short: "Print application paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			return c.print(map[string]any{
				"app_dir":       cfg.AppDir,
				"config_path":   cfg.ConfigPath,
				"chat_db_path":  cfg.ChatDBPath,
				"contacts_file": cfg.ContactsFile,
				"log_path":      cfg.LogPath,
			})
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			app.New(app.Params{Config: cfg, Version: version}).Run()
			return nil
		},
	}

	demoCmd := &cobra.Command{
		Use:   "demo-db <path>",
		Short: "Write a small sample chat.db for trying the commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err == nil {
				return fmt.Errorf("%s already exists", args[0])
			}
			if err := fixture.Demo(args[0]); err != nil {
				return err
			}
			return c.print(map[string]any{"path": args[0]})
		},
	}

	rootCmd.AddCommand(versionCmd, pathsCmd, serveCmd, demoCmd)
	rootCmd.AddCommand(c.queryCommands()...)
	return rootCmd
}

func (c *cli) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.dbPath != "" {
		cfg.ChatDBPath = c.dbPath
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	return cfg, nil
}

// service builds the query service for a one-shot command. Logs go to
// stderr at warn unless a level was asked for.
func (c *cli) service() (*tools.Service, func(), error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	level := c.logLevel
	if level == "" {
		level = "warn"
	}
	logger, err := logging.New(logging.Options{Level: level, LogPath: cfg.LogPath, Console: c.stderr})
	if err != nil {
		return nil, nil, err
	}
	dir, closer, err := app.NewDirectory(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if closer != nil {
			if err := closer.Close(); err != nil {
				logger.Debug("close contacts cache", zap.Error(err))
			}
		}
		_ = logger.Sync()
	}
	svc, err := app.NewService(cfg, dir, app.NewMedia(logger), logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}

func (c *cli) print(v any) error {
	return outfmt.New(c.out, c.jqFilter).Print(v)
}

// result prints an operation outcome. Failures are printed as their JSON
// envelope and make the command exit non-zero.
func (c *cli) result(v any, err error) error {
	if err != nil {
		if perr := c.print(tools.AsError(err)); perr != nil {
			return perr
		}
		return errReported
	}
	return c.print(v)
}
