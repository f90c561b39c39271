package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cevatkerim/chargenow-mcp/pkg/chargenow"
	"github.com/cevatkerim/chargenow-mcp/pkg/geo"
	"github.com/cevatkerim/chargenow-mcp/pkg/observability"
	"github.com/cevatkerim/chargenow-mcp/pkg/report"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// FindAvailableChargePointsName is the MCP name of the charge point tool.
const FindAvailableChargePointsName = "find_available_chargepoints"

// Geocoder resolves an address to a coordinate.
type Geocoder interface {
	Forward(ctx context.Context, address string) (geo.Coordinate, bool)
}

// ChargeNetwork is the subset of the charging network client used by the finder.
type ChargeNetwork interface {
	SearchPools(ctx context.Context, bbox geo.BoundingBox) []chargenow.ChargePool
	PoolDetails(ctx context.Context, ids []string) []chargenow.PoolDetail
	ChargePointStatuses(ctx context.Context, ids []string) []chargenow.ChargePointStatus
}

// ChargePointFinder runs one charge point search from address to report.
type ChargePointFinder struct {
	geocoder  Geocoder
	network   ChargeNetwork
	formatter *report.Formatter
	apiKey    string
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewChargePointFinder creates a finder. A nil formatter renders times in
// time.Local and nil metrics are not exported.
func NewChargePointFinder(geocoder Geocoder, network ChargeNetwork, formatter *report.Formatter, apiKey string, metrics *observability.Metrics, logger *slog.Logger) *ChargePointFinder {
	if formatter == nil {
		formatter = report.NewFormatter(nil)
	}
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}
	return &ChargePointFinder{
		geocoder:  geocoder,
		network:   network,
		formatter: formatter,
		apiKey:    apiKey,
		metrics:   metrics,
		logger:    logger.With("tool", FindAvailableChargePointsName),
	}
}

// Find searches for charge points around address and returns the text to
// show the user, and whether that text describes an error.
func (f *ChargePointFinder) Find(ctx context.Context, address string) (string, bool) {
	text, outcome := f.find(ctx, address)
	f.metrics.ToolInvocations.WithLabelValues(outcome).Inc()
	return text, outcome == observability.OutcomeError
}

func (f *ChargePointFinder) find(ctx context.Context, address string) (string, string) {
	logger := f.logger.With("invocation_id", uuid.NewString())

	if f.apiKey == "" {
		return fail(ctx, logger, MissingAPIKeyError())
	}

	address = normalizeAddress(address)
	if address == "" {
		return fail(ctx, logger, EmptyAddressError())
	}
	logger = logger.With("address", address)
	logger.Info("searching for charge points")

	coord, ok := f.geocoder.Forward(ctx, address)
	if !ok {
		return fail(ctx, logger, AddressNotFoundError(address))
	}

	bbox := geo.NewBoundingBox(coord)
	logger.Debug("resolved address", "coordinate", coord.String(), "bbox", bbox.String())

	pools := f.network.SearchPools(ctx, bbox)
	if len(pools) == 0 {
		logger.Info("no pools found")
		return fmt.Sprintf("No charging pools found near %s.", address), observability.OutcomeEmpty
	}

	details := f.network.PoolDetails(ctx, chargenow.PoolIDs(pools))

	cpIDs := chargenow.ChargePointIDs(pools)
	if len(cpIDs) == 0 {
		logger.Info("pools carry no charge point ids", "pools", len(pools))
		return fmt.Sprintf("No charge point IDs found for pools near %s.", address), observability.OutcomeEmpty
	}

	statuses := f.network.ChargePointStatuses(ctx, cpIDs)
	logger.Info("charge point search finished",
		"pools", len(pools),
		"details", len(details),
		"charge_points", len(cpIDs),
		"statuses", len(statuses))

	return f.formatter.Format(statuses, pools, details, coord, address), observability.OutcomeSuccess
}

// fail logs err and returns its user-facing text. Errors the user cannot fix
// by changing the request are logged at error level.
func fail(ctx context.Context, logger *slog.Logger, err *APIError) (string, string) {
	level := slog.LevelWarn
	if !err.Recoverable {
		level = slog.LevelError
	}
	logger.Log(ctx, level, "charge point search failed",
		"error", err,
		"recoverable", err.Recoverable)
	return err.Text(), observability.OutcomeError
}

// normalizeAddress trims the address and collapses internal whitespace.
func normalizeAddress(address string) string {
	return strings.Join(strings.Fields(address), " ")
}

// FindAvailableChargePointsTool returns the tool definition for the charge point search.
func FindAvailableChargePointsTool() mcp.Tool {
	return mcp.NewTool(FindAvailableChargePointsName,
		mcp.WithDescription("Find charge points near an address together with their live availability, distance, connectors and payment options"),
		mcp.WithString("address",
			mcp.Required(),
			mcp.Description("The address or place name to search around, e.g. \"Alexanderplatz, Berlin\""),
		),
	)
}

// HandleFindAvailableChargePoints implements the charge point search tool.
func (f *ChargePointFinder) HandleFindAvailableChargePoints(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address := mcp.ParseString(req, "address", "")

	text, isError := f.Find(ctx, address)
	if isError {
		return ErrorResponse(text), nil
	}
	return mcp.NewToolResultText(text), nil
}
