// Package main implements the MCP server for editing Hexo blogs.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/cockroachdb/errors"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/rhamdeew/hex-tool/internal/config"
	"github.com/rhamdeew/hex-tool/internal/logging"
)

const shutdownTimeout = 10 * time.Second

type flags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func main() {
	var f flags

	cmd := &cobra.Command{
		Use:   "hex-tool [project-path]",
		Short: "MCP server for editing Hexo blogs",
		Long: `hex-tool is a Model Context Protocol (MCP) server for Hexo blogs.
It lets any MCP-compatible client list, read and edit posts, pages
and drafts, manage images, and drive the hexo generator: run
one-shot commands such as generate or clean, and start or stop the
preview server.

Without a project path the last opened project is used, then the
current directory.`,
		Example: `hex-tool ~/blog
hex-tool --log-level debug ~/blog`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), f, args)
		},
	}

	cmd.Flags().StringVar(&f.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/hex-tool/config.yaml)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	cmd.Flags().StringVar(&f.logFormat, "log-format", "", "log format: text or json")

	if err := fang.Execute(
		context.Background(),
		cmd,
		fang.WithVersion(version),
		fang.WithoutCompletions(),
		fang.WithoutManpage(),
	); err != nil {
		os.Exit(1)
	}
}

func runServer(ctx context.Context, f flags, args []string) error {
	cfgStore, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	cfg := cfgStore.Get()

	logger, err := newLogger(cfg.Log, f)
	if err != nil {
		logger = logging.Default()
		logger.Warn("invalid log settings, using defaults", "error", err)
	}
	slog.SetDefault(logger)

	projectPath, err := startupProject(cfg, args)
	if err != nil {
		return err
	}

	a := newApp(cfgStore, logger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.supervisor.Shutdown(ctx); err != nil {
			logger.Error("stopping servers", "error", err)
		}
	}()

	if _, err := a.openProject(projectPath); err != nil {
		// Codec and config tools still work; project tools report the error.
		logger.Warn("no hexo project opened", "path", projectPath, "error", err)
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    config.AppName,
		Version: version,
	}, nil)

	registerTools(server, a)

	logger.Info("serving mcp over stdio", "version", version, "config", cfgStore.Path())
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return errors.Wrap(err, "error running server")
	}

	return nil
}

// newLogger builds the logger from config, with flags taking precedence.
// Logs go to stderr because stdout carries the MCP protocol.
func newLogger(cfg config.Log, f flags) (*slog.Logger, error) {
	levelName, formatName := cfg.Level, cfg.Format
	if f.logLevel != "" {
		levelName = f.logLevel
	}
	if f.logFormat != "" {
		formatName = f.logFormat
	}

	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(formatName)
	if err != nil {
		return nil, err
	}

	return logging.New(logging.Config{
		Level:  level,
		Format: format,
		Output: os.Stderr,
	}), nil
}

// startupProject picks the project to open: the argument, then the last
// opened project, then the working directory.
func startupProject(cfg config.Config, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if cfg.LastProjectPath != "" {
		return cfg.LastProjectPath, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "failed to get current directory")
	}
	return wd, nil
}
