package geometry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/airbusgeo/parcel-imagery/common"
	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/geojson"
	geomwkt "github.com/go-spatial/geom/encoding/wkt"
)

// ErrInvalidGeometry is returned when a boundary cannot be turned into a polygon
var ErrInvalidGeometry = errors.New("invalid geometry")

// MinPoints is the minimum number of distinct points of a boundary
const MinPoints = 3

// ClosedRing converts an open boundary into a single-ring polygon, appending the first point at the end.
// Coordinates are [longitude, latitude].
func ClosedRing(points []common.Point) (geom.Polygon, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("ClosedRing: empty boundary: %w", ErrInvalidGeometry)
	}
	if len(points) < MinPoints {
		return nil, fmt.Errorf("ClosedRing: %d points: %w", len(points), ErrInvalidGeometry)
	}
	ring := make([][2]float64, 0, len(points)+1)
	for _, p := range points {
		ring = append(ring, [2]float64{p.Longitude, p.Latitude})
	}
	ring = append(ring, ring[0])
	return geom.Polygon{ring}, nil
}

// PolygonGeoJSON returns the GeoJSON Polygon of the closed ring of the boundary.
// Coordinates are encoded with full float64 precision.
func PolygonGeoJSON(points []common.Point) ([]byte, error) {
	polygon, err := ClosedRing(points)
	if err != nil {
		return nil, fmt.Errorf("PolygonGeoJSON.%w", err)
	}
	data, err := json.Marshal(geojson.Geometry{Geometry: polygon})
	if err != nil {
		return nil, fmt.Errorf("PolygonGeoJSON.Marshal: %w", err)
	}
	return data, nil
}

// PointsFromWKT decodes a POLYGON and returns its exterior ring as an open boundary
func PointsFromWKT(wkt string) ([]common.Point, error) {
	g, err := geomwkt.DecodeString(wkt)
	if err != nil {
		return nil, fmt.Errorf("PointsFromWKT.DecodeString: %w", err)
	}
	return pointsFromGeometry(g)
}

// PointsFromGeoJSON decodes a Polygon (or a Feature holding a Polygon) and returns its exterior ring as an open boundary
func PointsFromGeoJSON(data []byte) ([]common.Point, error) {
	g, err := UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("PointsFromGeoJSON.Unmarshal: %v: %w", err, ErrInvalidGeometry)
	}
	return pointsFromGeometry(g)
}

// UnmarshalGeometry, merging featureCollections and geometryCollections into a multipolygon
func UnmarshalGeometry(data []byte) (_ geom.Geometry, err error) {
	var g geojson.Geometry
	if err := g.UnmarshalJSON(data); err != nil {
		return g.Geometry, err
	}
	switch geo := g.Geometry.(type) {
	case geojson.FeatureCollection:
		var mp geom.MultiPolygon
		for _, f := range geo.Features {
			if err := mergeMultiPolygons(f.Geometry.Geometry, &mp); err != nil {
				return nil, err
			}
		}
		return mp, nil
	case geojson.Feature:
		return geo.Geometry.Geometry, nil
	default:
		return g.Geometry, nil
	}
}

func mergeMultiPolygons(g geom.Geometry, mp *geom.MultiPolygon) error {
	switch g := g.(type) {
	case geom.MultiPolygon:
		*mp = append(*mp, g.Polygons()...)
	case geom.Polygon:
		*mp = append(*mp, g.LinearRings())
	case geom.Collection:
		for _, g := range g.Geometries() {
			if err := mergeMultiPolygons(g, mp); err != nil {
				return err
			}
		}
	}
	return nil
}

func pointsFromGeometry(g geom.Geometry) ([]common.Point, error) {
	var ring [][2]float64
	switch g := g.(type) {
	case geom.Polygon:
		if len(g) > 0 {
			ring = g[0]
		}
	case geom.MultiPolygon:
		if len(g) == 1 && len(g[0]) > 0 {
			ring = g[0][0]
		} else {
			return nil, fmt.Errorf("multipolygon with %d polygons: %w", len(g), ErrInvalidGeometry)
		}
	default:
		return nil, fmt.Errorf("%T is not a polygon: %w", g, ErrInvalidGeometry)
	}
	if n := len(ring); n > 1 && ring[0] == ring[n-1] {
		ring = ring[:n-1]
	}
	if len(ring) < MinPoints {
		return nil, fmt.Errorf("%d points: %w", len(ring), ErrInvalidGeometry)
	}
	points := make([]common.Point, len(ring))
	for i, c := range ring {
		points[i] = common.Point{Longitude: c[0], Latitude: c[1]}
	}
	return points, nil
}
