package geometry

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/airbusgeo/parcel-imagery/common"
	"github.com/go-spatial/geom/encoding/geojson"
)

func TestClosedRing(t *testing.T) {
	points := []common.Point{{Longitude: 1, Latitude: 2}, {Longitude: 3, Latitude: 4}, {Longitude: 5, Latitude: 6}}
	polygon, err := ClosedRing(points)
	if err != nil {
		t.Fatal(err)
	}
	bytes, err := json.Marshal(geojson.Geometry{Geometry: polygon})
	if err != nil {
		t.Error(err)
	}
	expected := `{"type":"Polygon","coordinates":[[[1,2],[3,4],[5,6],[1,2]]]}`
	if string(bytes) != expected {
		t.Errorf("Expect %s found %s", expected, string(bytes))
	}

	// Round trip: dropping the closing point gives back the input
	ring := polygon[0]
	if ring[0] != ring[len(ring)-1] {
		t.Errorf("ring is not closed")
	}
	for i, p := range points {
		if ring[i] != [2]float64{p.Longitude, p.Latitude} {
			t.Errorf("point %d: expected %v found %v", i, p, ring[i])
		}
	}
}

func TestClosedRingInvalid(t *testing.T) {
	for _, points := range [][]common.Point{nil, {}, {{Longitude: 1, Latitude: 2}, {Longitude: 3, Latitude: 4}}} {
		if _, err := ClosedRing(points); !errors.Is(err, ErrInvalidGeometry) {
			t.Errorf("%v: expected ErrInvalidGeometry, got %v", points, err)
		}
	}
}

func TestPointsFromWKT(t *testing.T) {
	expected := []common.Point{{Longitude: 129, Latitude: -11}, {Longitude: 130, Latitude: -11}, {Longitude: 130, Latitude: -12}, {Longitude: 129, Latitude: -12}}
	back, err := PointsFromWKT("POLYGON ((129 -11, 130 -11, 130 -12, 129 -12, 129 -11))")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(expected, back) {
		t.Errorf("expect %v found %v", expected, back)
	}

	if _, err := PointsFromWKT("POINT (1 2)"); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("expected ErrInvalidGeometry, got %v", err)
	}
}

func TestPolygonGeoJSONPrecision(t *testing.T) {
	points := []common.Point{{Longitude: -58.381234567891, Latitude: -34.603722123456}, {Longitude: -58.370000000001, Latitude: -34.6}, {Longitude: -58.37, Latitude: -34.611111111111}}
	data, err := PolygonGeoJSON(points)
	if err != nil {
		t.Fatal(err)
	}
	back, err := PointsFromGeoJSON(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(points, back) {
		t.Errorf("expect %v found %v (%s)", points, back, data)
	}

	if _, err := PolygonGeoJSON(points[:2]); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("expected ErrInvalidGeometry, got %v", err)
	}
}

func TestPointsFromGeoJSON(t *testing.T) {
	expected := []common.Point{{Longitude: 20, Latitude: 35}, {Longitude: 10, Latitude: 30}, {Longitude: 10, Latitude: 10}}

	for _, data := range []string{
		`{"type":"Polygon","coordinates":[[[20,35],[10,30],[10,10],[20,35]]]}`,
		`{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[20,35],[10,30],[10,10],[20,35]]]}}`,
	} {
		points, err := PointsFromGeoJSON([]byte(data))
		if err != nil {
			t.Errorf("%s: %v", data, err)
			continue
		}
		if !reflect.DeepEqual(points, expected) {
			t.Errorf("expect %v found %v", expected, points)
		}
	}

	if _, err := PointsFromGeoJSON([]byte(`{"type":"Point","coordinates":[1,2]}`)); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("expected ErrInvalidGeometry, got %v", err)
	}
	if _, err := PointsFromGeoJSON([]byte(`not json`)); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("expected ErrInvalidGeometry, got %v", err)
	}
}
