// Package geocode resolves free-text addresses to coordinates and
// coordinates back to display addresses.
package geocode

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cevatkerim/chargenow-mcp/pkg/geo"
	"github.com/cevatkerim/chargenow-mcp/pkg/upstream"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cast"
)

// DefaultBaseURL is the geocoding service used when none is configured
const DefaultBaseURL = "https://geocode.maps.co"

// Resolver performs forward and reverse geocoding. Failures are logged and
// reported as absent results, never as errors.
type Resolver struct {
	client  *upstream.Client
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

// NewResolver creates a geocoding resolver.
func NewResolver(client *upstream.Client, baseURL, apiKey string, logger *slog.Logger) *Resolver {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Resolver{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  logger.With("component", "geocode"),
	}
}

// place is one element of the search response. The service sends lat/lon
// as strings, but numbers are accepted as well.
type place struct {
	Lat         any    `json:"lat"`
	Lon         any    `json:"lon"`
	DisplayName string `json:"display_name"`
}

type reverseResult struct {
	DisplayName string `json:"display_name"`
}

// Forward returns the coordinate of the first search result for address.
func (r *Resolver) Forward(ctx context.Context, address string) (geo.Coordinate, bool) {
	logger := r.logger.With("operation", "forward", "address", address)
	if r.apiKey == "" {
		logger.Warn("geocoding API key is not configured")
		return geo.Coordinate{}, false
	}

	params := url.Values{
		"q":       {address},
		"api_key": {r.apiKey},
	}
	logger.Debug("geocoding address")

	res := upstream.Attempt(ctx, logger, "geocode forward", func(ctx context.Context) ([]place, error) {
		var places []place
		err := r.client.DoJSON(ctx, upstream.Request{
			Service:   upstream.ServiceGeocode,
			Operation: "forward",
			Method:    http.MethodGet,
			URL:       r.baseURL + "/search?" + params.Encode(),
		}, &places)
		return places, err
	})
	if !res.OK() {
		return geo.Coordinate{}, false
	}
	if len(res.Value) == 0 {
		logger.Info("no geocoding results")
		return geo.Coordinate{}, false
	}

	coord, err := res.Value[0].coordinate()
	if err != nil {
		logger.Warn("geocoding result has invalid coordinates", "error", err)
		return geo.Coordinate{}, false
	}

	logger.Debug("geocoded address",
		"latitude", coord.Latitude,
		"longitude", coord.Longitude,
		"display_name", res.Value[0].DisplayName)
	return coord, true
}

// Reverse returns the display name of the address at lat/lon.
func (r *Resolver) Reverse(ctx context.Context, lat, lon float64) (string, bool) {
	logger := r.logger.With("operation", "reverse", "latitude", lat, "longitude", lon)
	if r.apiKey == "" {
		logger.Warn("geocoding API key is not configured")
		return "", false
	}

	params := url.Values{
		"lat":     {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":     {strconv.FormatFloat(lon, 'f', -1, 64)},
		"api_key": {r.apiKey},
	}

	res := upstream.Attempt(ctx, logger, "geocode reverse", func(ctx context.Context) (reverseResult, error) {
		var out reverseResult
		err := r.client.DoJSON(ctx, upstream.Request{
			Service:   upstream.ServiceGeocode,
			Operation: "reverse",
			Method:    http.MethodGet,
			URL:       r.baseURL + "/reverse?" + params.Encode(),
		}, &out)
		return out, err
	})
	if !res.OK() {
		return "", false
	}
	if res.Value.DisplayName == "" {
		logger.Debug("reverse geocoding returned no display name")
		return "", false
	}

	logger.Debug("reverse geocoded", "display_name", res.Value.DisplayName)
	return res.Value.DisplayName, true
}

func (p place) coordinate() (geo.Coordinate, error) {
	lat, err := parseDegrees(p.Lat)
	if err != nil {
		return geo.Coordinate{}, errors.Wrap(err, "lat")
	}
	lon, err := parseDegrees(p.Lon)
	if err != nil {
		return geo.Coordinate{}, errors.Wrap(err, "lon")
	}
	return geo.Coordinate{Latitude: lat, Longitude: lon}, nil
}

// parseDegrees accepts a JSON string or number holding a finite float.
func parseDegrees(v any) (float64, error) {
	switch s := v.(type) {
	case nil:
		return 0, errors.New("missing")
	case bool:
		return 0, errors.Newf("unexpected boolean %t", s)
	case string:
		v = strings.TrimSpace(s)
	}

	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %v", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.Newf("not a finite number: %v", v)
	}
	return f, nil
}
