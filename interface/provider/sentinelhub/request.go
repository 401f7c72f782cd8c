package sentinelhub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/airbusgeo/parcel-imagery/common"
	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/geojson"
)

// Content types of the payloads
const (
	ContentTypeJSON       = "application/json"
	ContentTypeJavascript = "application/javascript"
)

// Default output size of the images
const (
	DefaultWidth  = 512
	DefaultHeight = 512
)

// Size of the output images, in pixels
type Size struct {
	Width  int
	Height int
}

// TimeRange filters the acquisitions used to compute the images
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Payload is the body of a request to the process api: a ScriptPayload or a ProcessRequest
type Payload interface {
	// ContentType of the body
	ContentType() string
	// Body to be posted
	Body() ([]byte, error)
	// InputBands returns the bands requested by the evalscript of the payload
	InputBands() []common.SpectralBand

	payload()
}

// ScriptPayload is a bare evalscript
type ScriptPayload struct {
	Script string
	inputs []common.SpectralBand
}

func (ScriptPayload) payload() {}

// ContentType implements Payload
func (p ScriptPayload) ContentType() string { return ContentTypeJavascript }

// Body implements Payload
func (p ScriptPayload) Body() ([]byte, error) { return []byte(p.Script), nil }

// InputBands implements Payload
func (p ScriptPayload) InputBands() []common.SpectralBand { return p.inputs }

// ProcessRequest is a structured request to the process api
type ProcessRequest struct {
	Input      ProcessInput  `json:"input"`
	Output     ProcessOutput `json:"output"`
	Evalscript string        `json:"evalscript"`

	inputs []common.SpectralBand
}

type ProcessInput struct {
	Bounds Bounds       `json:"bounds"`
	Data   []DataSource `json:"data"`
}

type Bounds struct {
	Geometry geojson.Geometry `json:"geometry"`
}

type DataSource struct {
	ID         string     `json:"id,omitempty"`
	Type       string     `json:"type"`
	DataFilter DataFilter `json:"dataFilter"`
}

type DataFilter struct {
	TimeRange TimeRange `json:"timeRange"`
}

type ProcessOutput struct {
	Width     int        `json:"width"`
	Height    int        `json:"height"`
	Responses []Response `json:"responses"`
}

type Response struct {
	Identifier string         `json:"identifier"`
	Format     ResponseFormat `json:"format"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

func (*ProcessRequest) payload() {}

// ContentType implements Payload
func (r *ProcessRequest) ContentType() string { return ContentTypeJSON }

// Body implements Payload
func (r *ProcessRequest) Body() ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("ProcessRequest.Marshal: %w", err)
	}
	return b, nil
}

// InputBands implements Payload
func (r *ProcessRequest) InputBands() []common.SpectralBand { return r.inputs }

// BuildPayload builds the request computing the bands of the analysis type over the polygon.
// The outputs of a ProcessRequest are identified by <name>_<prefix>.
// Raise ErrUnsupportedAnalysisType
func BuildPayload(analysisType common.AnalysisType, polygon geom.Polygon, prefix string, timeRange TimeRange, size Size) (Payload, error) {
	d, err := lookup(analysisType)
	if err != nil {
		return nil, err
	}
	if size.Width <= 0 {
		size.Width = DefaultWidth
	}
	if size.Height <= 0 {
		size.Height = DefaultHeight
	}

	if d.Style == StyleScript {
		script, sources, err := evalscript(d, "")
		if err != nil {
			return nil, fmt.Errorf("BuildPayload.%w", err)
		}
		return ScriptPayload{Script: script, inputs: inputBands(sources)}, nil
	}

	script, sources, err := evalscript(d, prefix)
	if err != nil {
		return nil, fmt.Errorf("BuildPayload.%w", err)
	}
	timeRange = TimeRange{From: timeRange.From.UTC(), To: timeRange.To.UTC()}
	req := &ProcessRequest{
		Input:      ProcessInput{Bounds: Bounds{Geometry: geojson.Geometry{Geometry: polygon}}},
		Output:     ProcessOutput{Width: size.Width, Height: size.Height},
		Evalscript: script,
		inputs:     inputBands(sources),
	}
	for _, s := range sources {
		req.Input.Data = append(req.Input.Data, DataSource{ID: s.ID, Type: s.Collection, DataFilter: DataFilter{TimeRange: timeRange}})
	}
	for _, b := range d.Bands {
		req.Output.Responses = append(req.Output.Responses, pngResponse(outputID(bandNames[b], prefix)))
	}
	req.Output.Responses = append(req.Output.Responses, pngResponse(outputID(d.Composite.Name, prefix)))
	return req, nil
}

func pngResponse(id string) Response {
	return Response{Identifier: id, Format: ResponseFormat{Type: "image/png"}}
}

func inputBands(sources []source) []common.SpectralBand {
	var bands []common.SpectralBand
	for _, s := range sources {
		bands = append(bands, s.Bands...)
	}
	return bands
}
