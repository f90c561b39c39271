// Package server wires the charge point MCP server together.
package server

import (
	"log/slog"

	"github.com/cevatkerim/chargenow-mcp/pkg/chargenow"
	"github.com/cevatkerim/chargenow-mcp/pkg/config"
	"github.com/cevatkerim/chargenow-mcp/pkg/geocode"
	"github.com/cevatkerim/chargenow-mcp/pkg/observability"
	"github.com/cevatkerim/chargenow-mcp/pkg/report"
	"github.com/cevatkerim/chargenow-mcp/pkg/tools"
	"github.com/cevatkerim/chargenow-mcp/pkg/tools/prompts"
	"github.com/cevatkerim/chargenow-mcp/pkg/upstream"
	"github.com/cevatkerim/chargenow-mcp/pkg/version"
	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/server"
)

// ServerName is the name of the MCP server
const ServerName = "chargenow-mcp"

// Server encapsulates the MCP server with the charge point tool.
type Server struct {
	srv    *server.MCPServer
	finder *tools.ChargePointFinder
	logger *slog.Logger
}

// NewServer creates the MCP server with all tools and prompts registered.
// metrics may be nil when they are not exported.
func NewServer(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server: nil config")
	}
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}

	logger.Info("initializing charge point MCP server",
		"name", ServerName,
		"version", version.BuildVersion)

	limiter := upstream.NewRateLimiter()
	limiter.Set(upstream.ServiceGeocode, cfg.GeocodeRateLimit, cfg.GeocodeBurst)
	httpClient := upstream.NewClient(cfg.HTTPTimeout, limiter, metrics)

	resolver := geocode.NewResolver(httpClient, cfg.GeocodeBaseURL, cfg.GeocodeAPIKey, logger)
	network := chargenow.NewClient(httpClient, cfg.NetworkURL, resolver, cfg.ReverseConcurrency, logger)
	finder := tools.NewChargePointFinder(resolver, network, report.NewFormatter(cfg.Location()), cfg.GeocodeAPIKey, metrics, logger)

	srv := server.NewMCPServer(
		ServerName,
		version.BuildVersion,
		server.WithToolCapabilities(false),
		server.WithPromptCapabilities(false),
		server.WithRecovery(),
	)

	tools.NewRegistry(logger, finder).RegisterTools(srv)
	prompts.RegisterChargePointPrompts(srv)

	return &Server{srv: srv, finder: finder, logger: logger}, nil
}

// Run starts the MCP server using stdin/stdout for communication.
func (s *Server) Run() error {
	errLogger := slog.NewLogLogger(s.logger.Handler(), slog.LevelError)
	return server.ServeStdio(s.srv, server.WithErrorLogger(errLogger))
}
