package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/cevatkerim/chargenow-mcp/pkg/config"
	"github.com/cevatkerim/chargenow-mcp/pkg/observability"
	"github.com/cevatkerim/chargenow-mcp/pkg/server"
	"github.com/cevatkerim/chargenow-mcp/pkg/version"
	"github.com/cockroachdb/errors"
)

// clientConfigKey is the entry written under mcpServers
const clientConfigKey = "ChargeNow"

var (
	showVersion    bool
	debug          bool
	generateConfig string
)

func init() {
	flag.BoolVar(&showVersion, "version", false, "Display version information")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.StringVar(&generateConfig, "generate-config", "", "Generate a Claude Desktop Client config file at the specified path")
}

func main() {
	flag.Parse()

	// Configure logging; stdout belongs to the stdio transport
	var level slog.LevelVar
	if debug {
		level.Set(slog.LevelDebug)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: &level,
	}))
	slog.SetDefault(logger)

	if showVersion {
		fmt.Println(version.String())
		return
	}

	if generateConfig != "" {
		if err := generateClientConfig(generateConfig); err != nil {
			logger.Error("failed to generate config", "error", err)
			os.Exit(1)
		}
		logger.Info("successfully generated Claude Desktop Client config", "path", generateConfig)
		return
	}

	if err := run(logger, &level); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, level *slog.LevelVar) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	if !debug {
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return errors.Wrap(err, "log level")
		}
	}

	logger.Info("starting charge point MCP server",
		"build", version.LogValue(),
		"log_level", level.Level().String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	if cfg.MetricsAddr != "" {
		metrics = observability.NewMetrics()
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, logger); err != nil {
				logger.Error("metrics endpoint stopped", "error", err)
			}
		}()
	}

	srv, err := server.NewServer(cfg, metrics, logger)
	if err != nil {
		return errors.Wrap(err, "create server")
	}

	logger.Info("server initialized, waiting for requests")
	return srv.Run()
}

// validateConfigPath rejects paths that are empty, not JSON or escape the
// working directory.
func validateConfigPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("config path is empty")
	}
	if filepath.Ext(path) != ".json" {
		return errors.Newf("config path %q must have a .json extension", path)
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return errors.Newf("config path %q must not contain ..", path)
		}
	}
	return nil
}

// generateClientConfig creates or updates a Claude Desktop Client config file.
// Existing entries, including env values already set for this server, are kept.
func generateClientConfig(outputPath string) error {
	logger := slog.Default()

	if err := validateConfigPath(outputPath); err != nil {
		return err
	}

	execPath, err := os.Executable()
	if err != nil {
		execPath = os.Args[0]
	}
	absExecPath, err := filepath.Abs(execPath)
	if err != nil {
		absExecPath = execPath
	}

	var cfg map[string]any
	if data, err := os.ReadFile(outputPath); err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			logger.Warn("existing config is not valid JSON, will create new", "error", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "failed to read existing config")
	}
	if cfg == nil {
		cfg = make(map[string]any)
	}

	mcpServers, ok := cfg["mcpServers"].(map[string]any)
	if !ok {
		mcpServers = make(map[string]any)
		cfg["mcpServers"] = mcpServers
	}

	env := map[string]any{
		config.APIKeyEnv:                  "",
		config.EnvPrefix + "_NETWORK_URL": "",
	}
	if prev, ok := mcpServers[clientConfigKey].(map[string]any); ok {
		if prevEnv, ok := prev["env"].(map[string]any); ok {
			for k, v := range prevEnv {
				env[k] = v
			}
		}
	}

	mcpServers[clientConfigKey] = map[string]any{
		"command": absExecPath,
		"args":    []string{},
		"env":     env,
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return errors.Wrap(err, "failed to create directory")
	}
	// The file may hold the API key.
	if err := os.WriteFile(outputPath, data, 0o600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return os.Chmod(outputPath, 0o600)
}
