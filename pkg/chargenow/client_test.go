package chargenow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cevatkerim/chargenow-mcp/pkg/geo"
	"github.com/cevatkerim/chargenow-mcp/pkg/observability"
	"github.com/cevatkerim/chargenow-mcp/pkg/testutil"
	"github.com/cevatkerim/chargenow-mcp/pkg/upstream"
	"github.com/google/go-cmp/cmp"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResolver answers from a map keyed by latitude; missing keys fail.
type fakeResolver struct {
	mu        sync.Mutex
	addresses map[float64]string
	delays    map[float64]time.Duration
	calls     int
	inFlight  int
	maxFlight int
}

func (f *fakeResolver) Reverse(_ context.Context, lat, _ float64) (string, bool) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxFlight {
		f.maxFlight = f.inFlight
	}
	delay := f.delays[lat]
	f.mu.Unlock()

	time.Sleep(delay)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	addr, ok := f.addresses[lat]
	return addr, ok
}

func testClient(endpoint string, resolver AddressResolver) (*Client, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	httpClient := upstream.NewClient(5*time.Second, nil, metrics)
	return NewClient(httpClient, endpoint, resolver, 4, testutil.DiscardLogger()), metrics
}

func TestClient_SearchPools_RequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, PathClusters, r.Header.Get(HeaderAPIPath))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, upstream.BrowserUserAgent, r.Header.Get("User-Agent"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.InDelta(t, 52.525, body["nwLat"], 1e-9)
		assert.InDelta(t, 13.400, body["nwLon"], 1e-9)
		assert.InDelta(t, 52.515, body["seLat"], 1e-9)
		assert.InDelta(t, 13.410, body["seLon"], 1e-9)
		assert.Equal(t, float64(DefaultPrecision), body["precision"])
		assert.Equal(t, false, body["unpackSolitudeCluster"])
		assert.Equal(t, true, body["unpackClustersWithSinglePool"])
		assert.Equal(t, true, body["withChargePointIds"])

		testutil.ServeJSON(t, []any{})(w, r)
	}))
	defer srv.Close()

	c, _ := testClient(srv.URL, nil)
	pools := c.SearchPools(context.Background(), geo.NewBoundingBox(geo.Coordinate{Latitude: 52.52, Longitude: 13.405}))
	assert.Empty(t, pools)
}

func TestClient_SearchPools_AttachesAddressesInOrder(t *testing.T) {
	srv := httptest.NewServer(testutil.ServeJSON(t, []ChargePool{
		{ID: "p1", Latitude: 1, Longitude: 10, ChargePointCount: 1, ChargePoints: []ChargePointRef{{ID: "a"}}},
		{ID: "p2", Latitude: 2, Longitude: 20, ChargePointCount: 2, ChargePoints: []ChargePointRef{{ID: "b"}, {ID: "c"}}},
		{ID: "p3", Latitude: 3, Longitude: 30},
	}))
	defer srv.Close()

	resolver := &fakeResolver{
		addresses: map[float64]string{1: "First Street 1", 3: "Third Street 3"},
		// the first pool finishes last
		delays: map[float64]time.Duration{1: 50 * time.Millisecond},
	}
	c, metrics := testClient(srv.URL, resolver)

	pools := c.SearchPools(context.Background(), geo.NewBoundingBox(geo.Coordinate{}))
	require.Len(t, pools, 3)

	got := []string{pools[0].ID, pools[1].ID, pools[2].ID}
	assert.Equal(t, []string{"p1", "p2", "p3"}, got)
	assert.Equal(t, "First Street 1", pools[0].Address)
	assert.Empty(t, pools[1].Address)
	assert.Equal(t, "Third Street 3", pools[2].Address)
	assert.Equal(t, 3, resolver.calls)
	assert.Equal(t, []ChargePointRef{{ID: "b"}, {ID: "c"}}, pools[1].ChargePoints)

	assert.Equal(t, 2.0, promtestutil.ToFloat64(metrics.ReverseGeocodes.WithLabelValues(observability.OutcomeSuccess)))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(metrics.ReverseGeocodes.WithLabelValues(observability.OutcomeEmpty)))
}

func TestClient_SearchPools_BoundedFanOut(t *testing.T) {
	pools := make([]ChargePool, 12)
	delays := make(map[float64]time.Duration)
	for i := range pools {
		lat := float64(i + 1)
		pools[i] = ChargePool{ID: fmt.Sprintf("p%d", i), Latitude: lat}
		delays[lat] = 20 * time.Millisecond
	}
	srv := httptest.NewServer(testutil.ServeJSON(t, pools))
	defer srv.Close()

	resolver := &fakeResolver{delays: delays}
	c, _ := testClient(srv.URL, resolver)

	got := c.SearchPools(context.Background(), geo.NewBoundingBox(geo.Coordinate{}))
	assert.Len(t, got, 12)
	assert.Equal(t, 12, resolver.calls)
	assert.LessOrEqual(t, resolver.maxFlight, 4)
	assert.Greater(t, resolver.maxFlight, 1)
}

func TestClient_SearchPools_SoftFailure(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", testutil.ServeRaw(http.StatusInternalServerError, "oops")},
		{"malformed body", testutil.ServeRaw(http.StatusOK, "{not json")},
		{"object body", testutil.ServeJSON(t, map[string]string{"message": "forbidden"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			resolver := &fakeResolver{}
			c, _ := testClient(srv.URL, resolver)
			assert.Empty(t, c.SearchPools(context.Background(), geo.NewBoundingBox(geo.Coordinate{})))
			assert.Zero(t, resolver.calls)
		})
	}
}

func TestClient_EmptyIDsSkipNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c, _ := testClient(srv.URL, nil)
	assert.Empty(t, c.PoolDetails(context.Background(), nil))
	assert.Empty(t, c.PoolDetails(context.Background(), []string{}))
	assert.Empty(t, c.ChargePointStatuses(context.Background(), nil))
	assert.Empty(t, c.ChargePointStatuses(context.Background(), []string{}))
	assert.Zero(t, calls.Load())
}

func TestClient_PoolDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathPools, r.Header.Get(HeaderAPIPath))

		var body poolDetailsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"p1", "p2"}, body.DcsPoolIDs)
		assert.Equal(t, "en", body.Language)
		assert.Equal(t, "de", body.FallbackLanguage)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{
			"dcsPoolId": "p1",
			"incomingPoolId": "in-1",
			"poolPaymentMethods": ["App", "RFID"],
			"poolLocations": [{"name": "Supermarket Parking", "street": "Hauptstr. 1", "zip": "10115", "city": "Berlin"}],
			"poolContacts": {"phone": "+49 30 1234"},
			"chargingStations": [{"id": "s1", "connectors": [{"plugType": "Type2", "cableAttached": false, "phaseType": "AC_3_PHASE", "ampere": 32, "powerLevel": 22, "voltage": 400}]}],
			"technicalChargePointOperatorName": "Stadtwerke",
			"poolLocationType": "PARKING_LOT",
			"access": "PUBLIC",
			"open24h": true
		}]`))
	}))
	defer srv.Close()

	c, _ := testClient(srv.URL, nil)
	details := c.PoolDetails(context.Background(), []string{"p1", "p2"})
	require.Len(t, details, 1)

	d := details[0]
	assert.Equal(t, "p1", d.DcsPoolID)
	assert.Equal(t, []string{"App", "RFID"}, d.PoolPaymentMethods)
	assert.Equal(t, "Supermarket Parking", d.PoolLocations[0].Name)
	assert.Equal(t, "Stadtwerke", d.TechnicalChargePointOperatorName)
	require.NotNil(t, d.Open24h)
	assert.True(t, *d.Open24h)
	require.Len(t, d.ChargingStations, 1)
	assert.Equal(t, "Type2", d.ChargingStations[0].Connectors[0].PlugType)
	assert.Equal(t, "22", d.ChargingStations[0].Connectors[0].PowerLevel.String())
	assert.JSONEq(t, `{"phone": "+49 30 1234"}`, string(d.PoolContacts))
}

func TestClient_PoolDetails_LenientConnectors(t *testing.T) {
	srv := httptest.NewServer(testutil.ServeRaw(http.StatusOK, `[{
		"dcsPoolId": "p1",
		"poolLocations": [{"name": "Depot"}],
		"chargingStations": [{"id": "s1", "connectors": [
			{"plugType": "Type2", "cableAttached": "true", "ampere": "32A", "powerLevel": "22 kW", "voltage": "400"},
			{"plugType": "CCS", "cableAttached": 1, "ampere": null, "powerLevel": 150.0, "voltage": {"min": 200}},
			{"plugType": "CHAdeMO", "cableAttached": "maybe", "powerLevel": "50.0"}
		]}]
	}]`))
	defer srv.Close()

	c, _ := testClient(srv.URL, nil)
	details := c.PoolDetails(context.Background(), []string{"p1"})
	require.Len(t, details, 1)
	assert.Equal(t, "Depot", details[0].PoolLocations[0].Name)

	conns := details[0].ChargingStations[0].Connectors
	require.Len(t, conns, 3)

	assert.True(t, bool(conns[0].CableAttached))
	assert.Equal(t, DisplayValue("32A"), conns[0].Ampere)
	assert.Equal(t, DisplayValue("22 kW"), conns[0].PowerLevel)
	assert.Equal(t, DisplayValue("400"), conns[0].Voltage)

	assert.True(t, bool(conns[1].CableAttached))
	assert.Equal(t, DisplayValue(""), conns[1].Ampere)
	assert.Equal(t, DisplayValue("150"), conns[1].PowerLevel)
	assert.Equal(t, DisplayValue(""), conns[1].Voltage)

	assert.False(t, bool(conns[2].CableAttached))
	assert.Equal(t, DisplayValue("50"), conns[2].PowerLevel)
}

func TestClient_PoolDetails_SoftFailure(t *testing.T) {
	srv := httptest.NewServer(testutil.ServeRaw(http.StatusBadGateway, "bad gateway"))
	defer srv.Close()

	c, _ := testClient(srv.URL, nil)
	assert.Empty(t, c.PoolDetails(context.Background(), []string{"p1"}))
}

func TestClient_ChargePointStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathChargePoints, r.Header.Get(HeaderAPIPath))

		var body statusRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		want := []statusRequestEntry{{DcsChargePointID: "a"}, {DcsChargePointID: "b"}, {DcsChargePointID: "c"}}
		if diff := cmp.Diff(want, body.ChargePoints); diff != "" {
			t.Errorf("request entries mismatch (-want +got):\n%s", diff)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"dcsChargePointId": "a", "OperationalStateCP": "AVAILABLE", "Timestamp": "2024-05-01T10:15:00Z"},
			{"dcsChargePointId": "b", "OperationalStateCP": "charging", "Timestamp": "2024-05-01T10:16:00Z"},
			{"dcsChargePointId": "c", "OperationalStateCP": "RESERVED", "Timestamp": "2024-05-01T10:17:00Z"}
		]`))
	}))
	defer srv.Close()

	c, _ := testClient(srv.URL, nil)
	statuses := c.ChargePointStatuses(context.Background(), []string{"a", "b", "c"})

	want := []ChargePointStatus{
		{DcsChargePointID: "a", OperationalStateCP: StateAvailable, Timestamp: "2024-05-01T10:15:00Z"},
		{DcsChargePointID: "b", OperationalStateCP: StateCharging, Timestamp: "2024-05-01T10:16:00Z"},
		{DcsChargePointID: "c", OperationalStateCP: StateUnknown, Timestamp: "2024-05-01T10:17:00Z"},
	}
	if diff := cmp.Diff(want, statuses); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_ChargePointStatuses_SoftFailure(t *testing.T) {
	srv := httptest.NewServer(testutil.ServeRaw(http.StatusOK, "<html>maintenance</html>"))
	defer srv.Close()

	c, _ := testClient(srv.URL, nil)
	assert.Empty(t, c.ChargePointStatuses(context.Background(), []string{"a"}))
}
