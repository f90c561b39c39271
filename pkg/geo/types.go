// Package geo provides the coordinate types and distance math shared by the
// geocoder, the charging network client and the report renderer.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean radius of Earth in kilometers
const EarthRadiusKm = 6371.0

const (
	// LatOffset is the latitude half-height of a pool search box in degrees
	LatOffset = 0.005

	// LonOffset is the longitude half-width of a pool search box in degrees
	LonOffset = 0.005
)

// Coordinate represents a geographic coordinate (latitude and longitude).
//
// Example:
//
//	c := geo.Coordinate{Latitude: 52.5200, Longitude: 13.4050}
//	km := geo.DistanceKm(c.Latitude, c.Longitude, 48.1351, 11.5820)
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// String returns the coordinate as "lat,lon" with six decimals
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// BoundingBox is the rectangle sent to the pool search, described by its
// north-west and south-east corners.
type BoundingBox struct {
	NorthWest Coordinate
	SouthEast Coordinate
}

// NewBoundingBox returns the search box centered on c, extended by
// LatOffset and LonOffset in each direction.
func NewBoundingBox(c Coordinate) BoundingBox {
	return BoundingBox{
		NorthWest: Coordinate{
			Latitude:  c.Latitude + LatOffset,
			Longitude: c.Longitude - LonOffset,
		},
		SouthEast: Coordinate{
			Latitude:  c.Latitude - LatOffset,
			Longitude: c.Longitude + LonOffset,
		},
	}
}

// String returns a string representation of the bounding box for logging
func (bb BoundingBox) String() string {
	return fmt.Sprintf("(%s;%s)", bb.NorthWest, bb.SouthEast)
}

// DistanceKm calculates the great-circle distance in kilometers between two
// points given in degrees, using the haversine formula.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Distance returns the distance in kilometers between two coordinates
func Distance(from, to Coordinate) float64 {
	return DistanceKm(from.Latitude, from.Longitude, to.Latitude, to.Longitude)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
