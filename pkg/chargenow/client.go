// Package chargenow is a client for the charging network API: pool search by
// bounding box, pool details and live charge point status.
package chargenow

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cevatkerim/chargenow-mcp/pkg/geo"
	"github.com/cevatkerim/chargenow-mcp/pkg/observability"
	"github.com/cevatkerim/chargenow-mcp/pkg/upstream"
	"golang.org/x/sync/errgroup"
)

const (
	// HeaderAPIPath routes a request to one of the network's operations
	HeaderAPIPath = "rest-api-path"

	// Routing header values
	PathClusters     = "clusters"
	PathPools        = "pools"
	PathChargePoints = "charge-points"

	// DefaultPrecision is the clustering precision sent with a pool search
	DefaultPrecision = 7

	// Language and FallbackLanguage are requested for pool details
	Language         = "en"
	FallbackLanguage = "de"

	// DefaultReverseConcurrency bounds the reverse geocoding fan-out
	DefaultReverseConcurrency = 8
)

// AddressResolver turns a coordinate into a display address.
type AddressResolver interface {
	Reverse(ctx context.Context, lat, lon float64) (string, bool)
}

// Client queries the charging network. All operations are best-effort: a
// failed call is logged and yields an empty result.
type Client struct {
	http        *upstream.Client
	endpoint    string
	resolver    AddressResolver
	concurrency int
	logger      *slog.Logger
}

// NewClient creates a charging network client posting to endpoint. resolver
// may be nil, in which case pools are returned without addresses.
func NewClient(httpClient *upstream.Client, endpoint string, resolver AddressResolver, concurrency int, logger *slog.Logger) *Client {
	if concurrency < 1 {
		concurrency = DefaultReverseConcurrency
	}
	return &Client{
		http:        httpClient,
		endpoint:    endpoint,
		resolver:    resolver,
		concurrency: concurrency,
		logger:      logger.With("component", "chargenow"),
	}
}

type searchRequest struct {
	NWLat                        float64 `json:"nwLat"`
	NWLon                        float64 `json:"nwLon"`
	SELat                        float64 `json:"seLat"`
	SELon                        float64 `json:"seLon"`
	Precision                    int     `json:"precision"`
	UnpackSolitudeCluster        bool    `json:"unpackSolitudeCluster"`
	UnpackClustersWithSinglePool bool    `json:"unpackClustersWithSinglePool"`
	WithChargePointIDs           bool    `json:"withChargePointIds"`
}

type poolDetailsRequest struct {
	DcsPoolIDs       []string `json:"dcsPoolIds"`
	Language         string   `json:"language"`
	FallbackLanguage string   `json:"fallbackLanguage"`
}

type statusRequest struct {
	ChargePoints []statusRequestEntry `json:"chargePoints"`
}

type statusRequestEntry struct {
	DcsChargePointID string `json:"dcsChargePointId"`
}

// SearchPools returns the pools inside bbox in response order, each with
// its reverse geocoded address when one could be resolved.
func (c *Client) SearchPools(ctx context.Context, bbox geo.BoundingBox) []ChargePool {
	body := searchRequest{
		NWLat:                        bbox.NorthWest.Latitude,
		NWLon:                        bbox.NorthWest.Longitude,
		SELat:                        bbox.SouthEast.Latitude,
		SELon:                        bbox.SouthEast.Longitude,
		Precision:                    DefaultPrecision,
		UnpackSolitudeCluster:        false,
		UnpackClustersWithSinglePool: true,
		WithChargePointIDs:           true,
	}

	logger := c.logger.With("operation", PathClusters, "bbox", bbox.String())
	res := upstream.Attempt(ctx, logger, "search pools", func(ctx context.Context) ([]ChargePool, error) {
		var pools []ChargePool
		err := c.post(ctx, PathClusters, body, &pools)
		return pools, err
	})

	pools := res.Value
	logger.Debug("pool search finished", "pools", len(pools))
	if len(pools) == 0 {
		return pools
	}

	c.attachAddresses(ctx, pools)
	return pools
}

// attachAddresses reverse geocodes every pool concurrently. A failed lookup
// leaves that pool's address empty and does not affect the others.
func (c *Client) attachAddresses(ctx context.Context, pools []ChargePool) {
	if c.resolver == nil {
		return
	}

	reverseGeocodes := c.http.Metrics().ReverseGeocodes

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i := range pools {
		g.Go(func() error {
			addr, ok := c.resolver.Reverse(ctx, pools[i].Latitude, pools[i].Longitude)
			if !ok {
				reverseGeocodes.WithLabelValues(observability.OutcomeEmpty).Inc()
				return nil
			}
			pools[i].Address = addr
			reverseGeocodes.WithLabelValues(observability.OutcomeSuccess).Inc()
			return nil
		})
	}
	_ = g.Wait()
}

// PoolDetails returns the details of the given pools. No request is made
// for an empty id list.
func (c *Client) PoolDetails(ctx context.Context, ids []string) []PoolDetail {
	if len(ids) == 0 {
		return nil
	}

	body := poolDetailsRequest{
		DcsPoolIDs:       ids,
		Language:         Language,
		FallbackLanguage: FallbackLanguage,
	}

	logger := c.logger.With("operation", PathPools, "pool_ids", len(ids))
	res := upstream.Attempt(ctx, logger, "pool details", func(ctx context.Context) ([]PoolDetail, error) {
		var details []PoolDetail
		err := c.post(ctx, PathPools, body, &details)
		return details, err
	})

	logger.Debug("pool details fetched", "details", len(res.Value))
	return res.Value
}

// ChargePointStatuses returns the live status of the given charge points.
// No request is made for an empty id list.
func (c *Client) ChargePointStatuses(ctx context.Context, ids []string) []ChargePointStatus {
	if len(ids) == 0 {
		return nil
	}

	entries := make([]statusRequestEntry, len(ids))
	for i, id := range ids {
		entries[i] = statusRequestEntry{DcsChargePointID: id}
	}

	logger := c.logger.With("operation", PathChargePoints, "charge_point_ids", len(ids))
	res := upstream.Attempt(ctx, logger, "charge point statuses", func(ctx context.Context) ([]ChargePointStatus, error) {
		var statuses []ChargePointStatus
		err := c.post(ctx, PathChargePoints, statusRequest{ChargePoints: entries}, &statuses)
		return statuses, err
	})

	logger.Debug("charge point statuses fetched", "statuses", len(res.Value))
	return res.Value
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.http.DoJSON(ctx, upstream.Request{
		Service:   upstream.ServiceChargeNow,
		Operation: path,
		Method:    http.MethodPost,
		URL:       c.endpoint,
		Header:    http.Header{HeaderAPIPath: {path}},
		Body:      body,
	}, out)
}
