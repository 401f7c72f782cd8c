package sentinelhub

import (
	"encoding/json"
	"errors"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/airbusgeo/parcel-imagery/common"
	"github.com/airbusgeo/parcel-imagery/service/geometry"
)

var testTimeRange = TimeRange{
	From: time.Date(2024, 5, 25, 0, 0, 0, 0, time.UTC),
	To:   time.Date(2024, 6, 25, 23, 59, 59, 0, time.UTC),
}

var sampledBand = regexp.MustCompile(`let \w+ = \w+\.(\w+);`)

func TestBuildPayloadInputsMatchCatalog(t *testing.T) {
	polygon, err := geometry.ClosedRing(testParcel.Boundary)
	if err != nil {
		t.Fatal(err)
	}
	for _, analysisType := range common.AnalysisTypeValues() {
		prefix := common.ImagePrefix(testNow, analysisType, testParcel)
		payload, err := BuildPayload(analysisType, polygon, prefix, testTimeRange, Size{})
		if err != nil {
			t.Errorf("%s: %v", analysisType, err)
			continue
		}
		bands, _ := BandsFor(analysisType)
		if !reflect.DeepEqual(payload.InputBands(), bands) {
			t.Errorf("%s: expected inputs %v, got %v", analysisType, bands, payload.InputBands())
		}

		var script string
		switch p := payload.(type) {
		case ScriptPayload:
			script = p.Script
		case *ProcessRequest:
			script = p.Evalscript
		default:
			t.Fatalf("unexpected payload %T", payload)
		}
		var sampled []common.SpectralBand
		for _, m := range sampledBand.FindAllStringSubmatch(script, -1) {
			sampled = append(sampled, common.SpectralBand(m[1]))
		}
		if !reflect.DeepEqual(sampled, bands) {
			t.Errorf("%s: expected the script to sample %v, got %v\n%s", analysisType, bands, sampled, script)
		}
	}
}

func TestBuildPayloadScript(t *testing.T) {
	polygon, _ := geometry.ClosedRing(testParcel.Boundary)
	payload, err := BuildPayload(common.AnalysisTypeVegetationState, polygon, "prefix", testTimeRange, Size{})
	if err != nil {
		t.Fatal(err)
	}
	script, ok := payload.(ScriptPayload)
	if !ok {
		t.Fatalf("expected a ScriptPayload, got %T", payload)
	}
	if payload.ContentType() != ContentTypeJavascript {
		t.Errorf("unexpected content type %s", payload.ContentType())
	}
	for _, expected := range []string{
		"//VERSION=3",
		`input: ["B04", "B08"],`,
		`{ id: "red", bands: 1 },`,
		`{ id: "false_color", bands: 3 },`,
		`"false_color": [nir, red, red],`,
	} {
		if !strings.Contains(script.Script, expected) {
			t.Errorf("expected %q in\n%s", expected, script.Script)
		}
	}
	body, _ := payload.Body()
	if string(body) != script.Script {
		t.Errorf("the body must be the script")
	}
}

func TestEvalscriptEscapesIdentifiers(t *testing.T) {
	d, err := lookup(common.AnalysisTypeVegetationState)
	if err != nil {
		t.Fatal(err)
	}
	script, _, err := evalscript(d, `p"1`)
	if err != nil {
		t.Fatal(err)
	}
	for _, expected := range []string{
		`{ id: "red_p\"1", bands: 1 },`,
		`"false_color_p\"1": [nir, red, red],`,
	} {
		if !strings.Contains(script, expected) {
			t.Errorf("expected %q in\n%s", expected, script)
		}
	}
	if strings.Contains(script, `_p"1"`) {
		t.Errorf("unescaped identifier in\n%s", script)
	}
}

func TestBuildPayloadProcessRequest(t *testing.T) {
	polygon, _ := geometry.ClosedRing([]common.Point{{Longitude: 1, Latitude: 2}, {Longitude: 3, Latitude: 4}, {Longitude: 5, Latitude: 6}})
	payload, err := BuildPayload(common.AnalysisTypePests, polygon, "20240625_pests_p1_u1", testTimeRange, Size{Width: 256})
	if err != nil {
		t.Fatal(err)
	}
	if payload.ContentType() != ContentTypeJSON {
		t.Errorf("unexpected content type %s", payload.ContentType())
	}
	body, err := payload.Body()
	if err != nil {
		t.Fatal(err)
	}

	var req struct {
		Input struct {
			Bounds struct {
				Geometry json.RawMessage `json:"geometry"`
			} `json:"bounds"`
			Data []struct {
				ID         string `json:"id"`
				Type       string `json:"type"`
				DataFilter struct {
					TimeRange struct {
						From string `json:"from"`
						To   string `json:"to"`
					} `json:"timeRange"`
				} `json:"dataFilter"`
			} `json:"data"`
		} `json:"input"`
		Output struct {
			Width     int `json:"width"`
			Height    int `json:"height"`
			Responses []struct {
				Identifier string `json:"identifier"`
				Format     struct {
					Type string `json:"type"`
				} `json:"format"`
			} `json:"responses"`
		} `json:"output"`
		Evalscript string `json:"evalscript"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatal(err)
	}

	if g := string(req.Input.Bounds.Geometry); g != `{"type":"Polygon","coordinates":[[[1,2],[3,4],[5,6],[1,2]]]}` {
		t.Errorf("unexpected geometry %s", g)
	}
	if len(req.Input.Data) != 1 || req.Input.Data[0].Type != CollectionSentinel2L2A || req.Input.Data[0].ID != "" {
		t.Errorf("unexpected data %+v", req.Input.Data)
	} else if tr := req.Input.Data[0].DataFilter.TimeRange; tr.From != "2024-05-25T00:00:00Z" || tr.To != "2024-06-25T23:59:59Z" {
		t.Errorf("unexpected time range %+v", tr)
	}
	if req.Output.Width != 256 || req.Output.Height != DefaultHeight {
		t.Errorf("unexpected size %dx%d", req.Output.Width, req.Output.Height)
	}

	expected := []string{"blue", "green", "red", "nir", "combined"}
	if len(req.Output.Responses) != len(expected) {
		t.Fatalf("expected %d responses, got %d", len(expected), len(req.Output.Responses))
	}
	for i, name := range expected {
		id := name + "_20240625_pests_p1_u1"
		if r := req.Output.Responses[i]; r.Identifier != id || r.Format.Type != "image/png" {
			t.Errorf("unexpected response %+v", r)
		}
		if !strings.Contains(req.Evalscript, `{ id: "`+id+`", bands: `) {
			t.Errorf("output %s not found in\n%s", id, req.Evalscript)
		}
	}
}

func TestBuildPayloadCollections(t *testing.T) {
	polygon, _ := geometry.ClosedRing(testParcel.Boundary)

	payload, err := BuildPayload(common.AnalysisTypeClimateDamageAssessment, polygon, "x", testTimeRange, Size{})
	if err != nil {
		t.Fatal(err)
	}
	req := payload.(*ProcessRequest)
	if len(req.Input.Data) != 1 || req.Input.Data[0].Type != CollectionSentinel2L1C {
		t.Errorf("expected a single L1C collection, got %+v", req.Input.Data)
	}

	payload, err = BuildPayload(common.AnalysisTypeCropMapping, polygon, "x", testTimeRange, Size{})
	if err != nil {
		t.Fatal(err)
	}
	req = payload.(*ProcessRequest)
	if len(req.Input.Data) != 2 ||
		req.Input.Data[0].ID != "s2" || req.Input.Data[0].Type != CollectionSentinel2L2A ||
		req.Input.Data[1].ID != "s1" || req.Input.Data[1].Type != CollectionSentinel1GRD {
		t.Errorf("expected a data fusion of s2 and s1, got %+v", req.Input.Data)
	}
	for _, expected := range []string{
		`{ datasource: "s2", bands: ["B02", "B03", "B04", "B08"] },`,
		`{ datasource: "s1", bands: ["VV", "VH"] },`,
		"function evaluatePixel(samples) {",
		"let s1 = samples.s1[0];",
		"let vv = s1.VV;",
	} {
		if !strings.Contains(req.Evalscript, expected) {
			t.Errorf("expected %q in\n%s", expected, req.Evalscript)
		}
	}
}

func TestBuildPayloadUnsupported(t *testing.T) {
	polygon, _ := geometry.ClosedRing(testParcel.Boundary)
	if _, err := BuildPayload(common.AnalysisType(99), polygon, "x", testTimeRange, Size{}); !errors.Is(err, ErrUnsupportedAnalysisType) {
		t.Errorf("expected ErrUnsupportedAnalysisType, got %v", err)
	}
}
