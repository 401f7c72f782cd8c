package sentinelhub

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/airbusgeo/parcel-imagery/common"
)

// Collections of the process api
const (
	CollectionSentinel2L2A = "sentinel-2-l2a"
	CollectionSentinel2L1C = "sentinel-2-l1c"
	CollectionSentinel1GRD = "sentinel-1-grd"
)

// source is a collection providing some of the bands of an analysis
type source struct {
	ID         string // only set for data fusion
	Collection string
	Bands      []common.SpectralBand
}

type scriptVariable struct {
	Name   string
	Sample string
	Band   common.SpectralBand
}

type scriptOutput struct {
	ID   string
	Vars []string
}

type scriptData struct {
	Fusion    bool
	Sources   []source
	Variables []scriptVariable
	Outputs   []scriptOutput
}

var evalscriptTemplate = template.Must(template.New("evalscript").Funcs(template.FuncMap{
	"bandList": func(bands []common.SpectralBand) string {
		quoted := make([]string, len(bands))
		for i, b := range bands {
			quoted[i] = fmt.Sprintf("%q", b)
		}
		return strings.Join(quoted, ", ")
	},
	"join": strings.Join,
}).Parse(`//VERSION=3

function setup() {
  return {
{{- if .Fusion}}
    input: [
{{- range .Sources}}
      { datasource: "{{.ID}}", bands: [{{bandList .Bands}}] },
{{- end}}
    ],
{{- else}}
    input: [{{bandList (index .Sources 0).Bands}}],
{{- end}}
    output: [
{{- range .Outputs}}
      { id: "{{js .ID}}", bands: {{len .Vars}} },
{{- end}}
    ]
  };
}

function evaluatePixel({{if .Fusion}}samples{{else}}sample{{end}}) {
{{- range .Sources}}{{if .ID}}
  let {{.ID}} = samples.{{.ID}}[0];
{{- end}}{{end}}
{{- range .Variables}}
  let {{.Name}} = {{.Sample}}.{{.Band}};
{{- end}}

  return {
{{- range .Outputs}}
    "{{js .ID}}": [{{join .Vars ", "}}],
{{- end}}
  };
}
`))

func isRadar(band common.SpectralBand) bool {
	return band == BandVV || band == BandVH
}

// sourcesFor splits the bands between the optical and the radar collections.
// Sentinel-2 bands are taken from L1C if B10 is requested (it is not available in L2A).
func sourcesFor(bands []common.SpectralBand) []source {
	optical := source{Collection: CollectionSentinel2L2A}
	radar := source{Collection: CollectionSentinel1GRD}
	for _, b := range bands {
		if isRadar(b) {
			radar.Bands = append(radar.Bands, b)
			continue
		}
		if b == BandCirrus {
			optical.Collection = CollectionSentinel2L1C
		}
		optical.Bands = append(optical.Bands, b)
	}
	switch {
	case len(radar.Bands) == 0:
		return []source{optical}
	case len(optical.Bands) == 0:
		return []source{radar}
	}
	optical.ID, radar.ID = "s2", "s1"
	return []source{optical, radar}
}

// outputID returns the identifier of an output, suffixed by the prefix of the images if not empty
func outputID(name, prefix string) string {
	if prefix == "" {
		return name
	}
	return name + "_" + prefix
}

// evalscript renders the script computing one output per band and the composite of the descriptor
func evalscript(d descriptor, prefix string) (string, []source, error) {
	sources := sourcesFor(d.Bands)
	data := scriptData{Fusion: len(sources) > 1, Sources: sources}
	for _, s := range sources {
		sample := "sample"
		if s.ID != "" {
			sample = s.ID
		}
		for _, b := range s.Bands {
			data.Variables = append(data.Variables, scriptVariable{Name: bandNames[b], Sample: sample, Band: b})
		}
	}
	for _, b := range d.Bands {
		data.Outputs = append(data.Outputs, scriptOutput{ID: outputID(bandNames[b], prefix), Vars: []string{bandNames[b]}})
	}
	composite := scriptOutput{ID: outputID(d.Composite.Name, prefix)}
	for _, b := range d.Composite.Bands {
		composite.Vars = append(composite.Vars, bandNames[b])
	}
	data.Outputs = append(data.Outputs, composite)

	var sb strings.Builder
	if err := evalscriptTemplate.Execute(&sb, data); err != nil {
		return "", nil, fmt.Errorf("evalscript.Execute: %w", err)
	}
	return sb.String(), sources, nil
}
