// Package geo validates farm boundaries and derives the centroid and area
// used for weather lookups and farm summaries.
package geo

import (
	"fmt"
	"math"

	"agrowatch/models"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// MinRingPositions is the smallest closed ring: a triangle plus its closing point.
const MinRingPositions = 4

// ValidationError reports a malformed polygon payload.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ValidatePolygon checks that p is a GeoJSON Polygon with a single closed,
// simple exterior ring of at least four [lon, lat] positions enclosing a
// non-zero area.
func ValidatePolygon(p models.Polygon) error {
	if p.Type != "Polygon" {
		return invalid("area.type", "must be Polygon, got %q", p.Type)
	}
	if len(p.Coordinates) == 0 {
		return invalid("area.coordinates", "exterior ring is required")
	}
	if len(p.Coordinates) > 1 {
		return invalid("area.coordinates", "holes are not supported")
	}
	ring := p.Coordinates[0]
	if len(ring) < MinRingPositions {
		return invalid("area.coordinates", "ring needs at least %d positions, got %d", MinRingPositions, len(ring))
	}
	for i, pos := range ring {
		if len(pos) != 2 {
			return invalid("area.coordinates", "position %d must be [lon, lat]", i)
		}
		lon, lat := pos[0], pos[1]
		if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
			return invalid("area.coordinates", "position %d is not finite", i)
		}
		if lon < -180 || lon > 180 {
			return invalid("area.coordinates", "position %d longitude out of range [-180, 180]", i)
		}
		if lat < -90 || lat > 90 {
			return invalid("area.coordinates", "position %d latitude out of range [-90, 90]", i)
		}
	}
	r := toRing(ring)
	if !r.Closed() {
		return invalid("area.coordinates", "ring must be closed (first position equal to last)")
	}
	if distinct(r) < 3 {
		return invalid("area.coordinates", "ring needs at least 3 distinct positions")
	}
	if zeroArea(r) {
		return invalid("area.coordinates", "ring has zero area")
	}
	if selfIntersects(r) {
		return invalid("area.coordinates", "ring must not intersect itself")
	}
	return nil
}

// Centroid returns the planar area-weighted centroid of the exterior ring as
// (lat, lon).
func Centroid(p models.Polygon) (lat, lon float64) {
	ring := p.Ring()
	if len(ring) == 0 {
		return 0, 0
	}
	c, _ := planar.CentroidArea(orb.Polygon{toRing(ring)})
	return c.Lat(), c.Lon()
}

// AreaHectares returns the geodesic area of the exterior ring on the WGS84
// radius.
func AreaHectares(p models.Polygon) float64 {
	ring := p.Ring()
	if len(ring) < MinRingPositions {
		return 0
	}
	return math.Abs(orbgeo.Area(orb.Polygon{toRing(ring)})) / 10000
}

// toRing converts validated [lon, lat] positions.
func toRing(ring [][]float64) orb.Ring {
	r := make(orb.Ring, 0, len(ring))
	for _, pos := range ring {
		if len(pos) < 2 {
			continue
		}
		r = append(r, orb.Point{pos[0], pos[1]})
	}
	return r
}

// zeroArea reports whether the ring encloses no area. The ring is shifted to
// its first position so collinear input at large coordinates sums to zero
// exactly; a sliver below 1e-9 of its bounding box counts as zero.
func zeroArea(r orb.Ring) bool {
	origin := r[0]
	shifted := make(orb.Ring, len(r))
	for i, pt := range r {
		shifted[i] = orb.Point{pt[0] - origin[0], pt[1] - origin[1]}
	}
	b := shifted.Bound()
	box := (b.Max[0] - b.Min[0]) * (b.Max[1] - b.Min[1])
	return math.Abs(planar.Area(shifted)) <= 1e-9*box
}

func distinct(r orb.Ring) int {
	seen := make(map[orb.Point]struct{}, len(r))
	for _, pt := range r[:len(r)-1] {
		seen[pt] = struct{}{}
	}
	return len(seen)
}

// selfIntersects reports whether two non-adjacent edges of a closed ring
// touch or cross. Repeated consecutive positions are ignored.
func selfIntersects(r orb.Ring) bool {
	pts := make([]orb.Point, 0, len(r))
	for _, pt := range r {
		if n := len(pts); n > 0 && pts[n-1] == pt {
			continue
		}
		pts = append(pts, pt)
	}
	n := len(pts) - 1 // edges; pts[n] == pts[0]
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			if segmentsIntersect(pts[i], pts[i+1], pts[j], pts[j+1]) {
				return true
			}
		}
	}
	return false
}

func segmentsIntersect(a, b, c, d orb.Point) bool {
	d1, d2 := orient(c, d, a), orient(c, d, b)
	d3, d4 := orient(a, b, c), orient(a, b, d)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(c, d, a)) ||
		(d2 == 0 && onSegment(c, d, b)) ||
		(d3 == 0 && onSegment(a, b, c)) ||
		(d4 == 0 && onSegment(a, b, d))
}

func orient(p, q, r orb.Point) float64 {
	return (q[0]-p[0])*(r[1]-p[1]) - (q[1]-p[1])*(r[0]-p[0])
}

// onSegment reports whether r, collinear with p and q, lies between them.
func onSegment(p, q, r orb.Point) bool {
	return min(p[0], q[0]) <= r[0] && r[0] <= max(p[0], q[0]) &&
		min(p[1], q[1]) <= r[1] && r[1] <= max(p[1], q[1])
}
