// Package report renders charge point search results as a plain-text report.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cevatkerim/chargenow-mcp/pkg/chargenow"
	"github.com/cevatkerim/chargenow-mcp/pkg/geo"
)

const (
	// DefaultStationName is shown for pools without a named location
	DefaultStationName = "Charging Station"

	timeOfDay = "15:04:05"
)

// localLayouts carry no zone and are read as wall time in the formatter's location.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Group is one pool in the detailed listing together with the statuses of
// its own charge points.
type Group struct {
	Pool     chargenow.ChargePool
	Detail   *chargenow.PoolDetail
	Statuses []chargenow.ChargePointStatus
	Distance float64
}

// Counts tallies charge points per operational state.
type Counts struct {
	Available int
	Charging  int
	Offline   int
	Unknown   int
}

// Add counts one status.
func (c *Counts) Add(s chargenow.ChargePointStatus) {
	switch s.State() {
	case chargenow.StateAvailable:
		c.Available++
	case chargenow.StateCharging:
		c.Charging++
	case chargenow.StateOffline:
		c.Offline++
	case chargenow.StateUnknown:
		c.Unknown++
	}
}

// CountStates tallies the given statuses.
func CountStates(statuses []chargenow.ChargePointStatus) Counts {
	var c Counts
	for _, s := range statuses {
		c.Add(s)
	}
	return c
}

// Formatter renders reports. The zero value formats times in time.Local.
type Formatter struct {
	loc *time.Location
}

// NewFormatter returns a Formatter rendering timestamps in loc. A nil loc
// means time.Local.
func NewFormatter(loc *time.Location) *Formatter {
	return &Formatter{loc: loc}
}

func (f *Formatter) location() *time.Location {
	if f == nil || f.loc == nil {
		return time.Local
	}
	return f.loc
}

// NoStatusesMessage is returned when there is nothing to report.
func NoStatusesMessage(label string) string {
	return fmt.Sprintf("No statuses found near %s.", label)
}

// BuildGroups joins pools with their details and statuses. Pools without a
// matching status are left out. Groups are ordered by distance from origin,
// ties keeping pool order.
func BuildGroups(statuses []chargenow.ChargePointStatus, pools []chargenow.ChargePool, details []chargenow.PoolDetail, origin geo.Coordinate) []Group {
	byPool := make(map[string]*chargenow.PoolDetail, len(details))
	for i := range details {
		if _, ok := byPool[details[i].DcsPoolID]; !ok {
			byPool[details[i].DcsPoolID] = &details[i]
		}
	}

	groups := make([]Group, 0, len(pools))
	for _, pool := range pools {
		var matched []chargenow.ChargePointStatus
		for _, s := range statuses {
			if pool.HasChargePoint(s.DcsChargePointID) {
				matched = append(matched, s)
			}
		}
		if len(matched) == 0 {
			continue
		}
		groups = append(groups, Group{
			Pool:     pool,
			Detail:   byPool[pool.ID],
			Statuses: matched,
			Distance: geo.Distance(origin, geo.Coordinate{Latitude: pool.Latitude, Longitude: pool.Longitude}),
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Distance < groups[j].Distance
	})
	return groups
}

// Format renders the report for the statuses found around origin. Summary
// counts cover every status, including those not matched to a pool.
func (f *Formatter) Format(statuses []chargenow.ChargePointStatus, pools []chargenow.ChargePool, details []chargenow.PoolDetail, origin geo.Coordinate, label string) string {
	if len(pools) == 0 || len(statuses) == 0 {
		return NoStatusesMessage(label)
	}

	var b strings.Builder
	total := CountStates(statuses)

	fmt.Fprintf(&b, "Charge points near %s:\n\n", label)
	b.WriteString("Summary:\n")
	fmt.Fprintf(&b, "- %d charge points AVAILABLE\n", total.Available)
	fmt.Fprintf(&b, "- %d charge points CHARGING\n", total.Charging)
	if total.Offline > 0 {
		fmt.Fprintf(&b, "- %d charge points OFFLINE\n", total.Offline)
	}

	for i, g := range BuildGroups(statuses, pools, details, origin) {
		b.WriteString("\n")
		f.writeGroup(&b, i+1, g)
	}

	return strings.TrimSpace(b.String())
}

func (f *Formatter) writeGroup(b *strings.Builder, n int, g Group) {
	fmt.Fprintf(b, "%d. %s (%.2f km)\n", n, stationName(g.Detail), g.Distance)

	if addr := addressLine(g); addr != "" {
		fmt.Fprintf(b, "   Address: %s\n", addr)
	}

	if d := g.Detail; d != nil {
		if d.TechnicalChargePointOperatorName != "" {
			fmt.Fprintf(b, "   Operator: %s\n", d.TechnicalChargePointOperatorName)
		}
		if len(d.PoolPaymentMethods) > 0 {
			fmt.Fprintf(b, "   Payment: %s\n", strings.Join(d.PoolPaymentMethods, ", "))
		}
		if d.Open24h != nil {
			hours := "Limited hours"
			if *d.Open24h {
				hours = "24/7"
			}
			fmt.Fprintf(b, "   Hours: %s\n", hours)
		}
		if conns := connectorSummary(*d); len(conns) > 0 {
			fmt.Fprintf(b, "   Connectors: %s\n", strings.Join(conns, ", "))
		}
	}

	c := CountStates(g.Statuses)
	status := []string{fmt.Sprintf("%d available", c.Available)}
	if c.Charging > 0 {
		status = append(status, fmt.Sprintf("%d charging", c.Charging))
	}
	if c.Offline > 0 {
		status = append(status, fmt.Sprintf("%d offline", c.Offline))
	}
	fmt.Fprintf(b, "   Status: %s\n", strings.Join(status, ", "))

	if ts := g.Statuses[0].Timestamp; ts != "" {
		fmt.Fprintf(b, "   Last updated: %s\n", f.timeOfDay(ts))
	}
}

func (f *Formatter) timeOfDay(ts string) string {
	loc := f.location()
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t.In(loc).Format(timeOfDay)
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, ts, loc); err == nil {
			return t.Format(timeOfDay)
		}
	}
	return ts
}

func stationName(d *chargenow.PoolDetail) string {
	if d != nil && len(d.PoolLocations) > 0 && d.PoolLocations[0].Name != "" {
		return d.PoolLocations[0].Name
	}
	return DefaultStationName
}

// addressLine prefers the network's pool location and falls back to the
// reverse geocoded address.
func addressLine(g Group) string {
	if g.Detail != nil && len(g.Detail.PoolLocations) > 0 {
		loc := g.Detail.PoolLocations[0]
		city := strings.TrimSpace(loc.Zip + " " + loc.City)
		parts := make([]string, 0, 2)
		for _, p := range []string{strings.TrimSpace(loc.Street), city} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, ", ")
		}
	}
	return g.Pool.Address
}

// connectorSummary lists each (plug type, power) pair once, in first-seen order.
func connectorSummary(d chargenow.PoolDetail) []string {
	type key struct{ plug, power string }
	seen := make(map[key]struct{})
	var out []string
	for _, st := range d.ChargingStations {
		for _, c := range st.Connectors {
			k := key{c.PlugType, powerKW(c.PowerLevel)}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			if k.power == "" {
				out = append(out, k.plug)
				continue
			}
			out = append(out, fmt.Sprintf("%s (%skW)", k.plug, k.power))
		}
	}
	return out
}

// powerKW strips a unit already present in the power level.
func powerKW(v chargenow.DisplayValue) string {
	p := strings.TrimSpace(v.String())
	if n := len(p); n >= 2 && strings.EqualFold(p[n-2:], "kw") {
		p = strings.TrimSpace(p[:n-2])
	}
	return p
}
