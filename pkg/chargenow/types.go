package chargenow

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// OperationalState is the live state of a single charge point.
type OperationalState string

const (
	StateAvailable OperationalState = "AVAILABLE"
	StateCharging  OperationalState = "CHARGING"
	StateOffline   OperationalState = "OFFLINE"
	StateUnknown   OperationalState = "UNKNOWN"
)

// ParseOperationalState maps a wire value onto the closed set of states.
// Anything unrecognised is StateUnknown.
func ParseOperationalState(s string) OperationalState {
	switch OperationalState(strings.ToUpper(strings.TrimSpace(s))) {
	case StateAvailable:
		return StateAvailable
	case StateCharging:
		return StateCharging
	case StateOffline:
		return StateOffline
	default:
		return StateUnknown
	}
}

// UnmarshalJSON decodes any value; non-string or unknown values become StateUnknown.
func (s *OperationalState) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*s = StateUnknown
		return nil
	}
	*s = ParseOperationalState(raw)
	return nil
}

// ChargePointRef identifies a charge point inside a pool search result.
type ChargePointRef struct {
	ID string `json:"id"`
}

// ChargePool is a site with one or more charge points, as returned by the
// cluster search. Address is filled in by reverse geocoding and may be empty.
type ChargePool struct {
	ID               string           `json:"id"`
	Longitude        float64          `json:"longitude"`
	Latitude         float64          `json:"latitude"`
	ChargePointCount int              `json:"chargePointCount"`
	ChargePoints     []ChargePointRef `json:"chargePoints"`
	Address          string           `json:"address,omitempty"`
	Name             string           `json:"name,omitempty"`
	Operator         string           `json:"operator,omitempty"`
}

// HasChargePoint reports whether id is one of the pool's charge points.
func (p ChargePool) HasChargePoint(id string) bool {
	for _, cp := range p.ChargePoints {
		if cp.ID == id {
			return true
		}
	}
	return false
}

// PoolDetail is the metadata of a pool. DcsPoolID equals ChargePool.ID.
type PoolDetail struct {
	DcsPoolID                        string            `json:"dcsPoolId"`
	IncomingPoolID                   string            `json:"incomingPoolId"`
	PoolPaymentMethods               []string          `json:"poolPaymentMethods"`
	PoolLocations                    []PoolLocation    `json:"poolLocations"`
	PoolContacts                     json.RawMessage   `json:"poolContacts,omitempty"`
	ChargingStations                 []ChargingStation `json:"chargingStations"`
	TechnicalChargePointOperatorName string            `json:"technicalChargePointOperatorName"`
	PoolLocationType                 string            `json:"poolLocationType"`
	Access                           string            `json:"access"`
	// Open24h is nil when the network does not report opening hours.
	Open24h *bool `json:"open24h"`
}

// PoolLocation is a named, addressed location of a pool.
type PoolLocation struct {
	Name    string `json:"name"`
	Street  string `json:"street"`
	Zip     string `json:"zip"`
	City    string `json:"city"`
	Country string `json:"country"`
}

// ChargingStation groups the connectors of one physical charger.
type ChargingStation struct {
	ID         string      `json:"id"`
	Connectors []Connector `json:"connectors"`
}

// Connector is a plug on a charging station. Its fields are only displayed,
// so they decode leniently and never fail the surrounding response.
type Connector struct {
	PlugType      string       `json:"plugType"`
	CableAttached Flag         `json:"cableAttached"`
	PhaseType     string       `json:"phaseType"`
	Ampere        DisplayValue `json:"ampere"`
	PowerLevel    DisplayValue `json:"powerLevel"`
	Voltage       DisplayValue `json:"voltage"`
}

// DisplayValue is a number or string kept for display. Numbers, including
// numeric strings, are normalised so 22.0 and "22" both read "22". Values
// that are neither become empty.
type DisplayValue string

// UnmarshalJSON accepts any JSON value.
func (v *DisplayValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		*v = ""
		return nil
	}

	switch x := raw.(type) {
	case nil, map[string]any, []any:
		*v = ""
	case float64:
		*v = DisplayValue(strconv.FormatFloat(x, 'f', -1, 64))
	default:
		s, err := cast.ToStringE(x)
		if err != nil {
			*v = ""
			return nil
		}
		s = strings.TrimSpace(s)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			s = strconv.FormatFloat(f, 'f', -1, 64)
		}
		*v = DisplayValue(s)
	}
	return nil
}

// String returns the display text.
func (v DisplayValue) String() string {
	return string(v)
}

// Flag is a boolean that also accepts "true", "1" and numbers. Anything it
// cannot interpret is false.
type Flag bool

// UnmarshalJSON accepts any JSON value.
func (f *Flag) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		*f = false
		return nil
	}
	switch x := raw.(type) {
	case float64:
		*f = x != 0
		return nil
	case string:
		raw = strings.TrimSpace(x)
	}
	b, err := cast.ToBoolE(raw)
	*f = Flag(err == nil && b)
	return nil
}

// ChargePointStatus is the current state of one charge point.
type ChargePointStatus struct {
	DcsChargePointID   string           `json:"dcsChargePointId"`
	OperationalStateCP OperationalState `json:"OperationalStateCP"`
	Timestamp          string           `json:"Timestamp"`
}

// State returns the operational state, treating a missing value as StateUnknown.
func (s ChargePointStatus) State() OperationalState {
	return ParseOperationalState(string(s.OperationalStateCP))
}

// PoolIDs returns the distinct pool ids in first-seen order.
func PoolIDs(pools []ChargePool) []string {
	seen := make(map[string]struct{}, len(pools))
	ids := make([]string, 0, len(pools))
	for _, p := range pools {
		if p.ID == "" {
			continue
		}
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		ids = append(ids, p.ID)
	}
	return ids
}

// ChargePointIDs returns the distinct charge point ids across all pools in
// first-seen order.
func ChargePointIDs(pools []ChargePool) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, p := range pools {
		for _, cp := range p.ChargePoints {
			if cp.ID == "" {
				continue
			}
			if _, ok := seen[cp.ID]; ok {
				continue
			}
			seen[cp.ID] = struct{}{}
			ids = append(ids, cp.ID)
		}
	}
	return ids
}
