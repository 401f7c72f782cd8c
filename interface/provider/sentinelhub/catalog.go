package sentinelhub

import (
	"errors"
	"fmt"

	"github.com/airbusgeo/parcel-imagery/common"
)

// ErrUnsupportedAnalysisType is returned when no band selection is defined for an analysis type
var ErrUnsupportedAnalysisType = errors.New("unsupported analysis type")

// Spectral bands used by the analyses
const (
	BandBlue   common.SpectralBand = "B02"
	BandGreen  common.SpectralBand = "B03"
	BandRed    common.SpectralBand = "B04"
	BandNIR    common.SpectralBand = "B08"
	BandCirrus common.SpectralBand = "B10"
	BandSWIR1  common.SpectralBand = "B11"
	BandSWIR2  common.SpectralBand = "B12"
	BandVV     common.SpectralBand = "VV"
	BandVH     common.SpectralBand = "VH"
)

// bandNames are the names of the variables and outputs of the evalscripts
var bandNames = map[common.SpectralBand]string{
	BandBlue:   "blue",
	BandGreen:  "green",
	BandRed:    "red",
	BandNIR:    "nir",
	BandCirrus: "cirrus",
	BandSWIR1:  "swir1",
	BandSWIR2:  "swir2",
	BandVV:     "vv",
	BandVH:     "vh",
}

// Style of the payload sent to the process api
type Style int

const (
	// StyleScript: the evalscript is sent alone
	StyleScript Style = iota
	// StyleProcess: the evalscript is embedded in a structured process request
	StyleProcess
)

// Composite is a 3-band output computed from the bands of an analysis
type Composite struct {
	Name  string
	Bands [3]common.SpectralBand
}

type descriptor struct {
	Bands     []common.SpectralBand
	Style     Style
	Composite Composite
}

var (
	rgbNIR    = []common.SpectralBand{BandBlue, BandGreen, BandRed, BandNIR}
	falseRGB  = Composite{Name: "combined", Bands: [3]common.SpectralBand{BandNIR, BandRed, BandGreen}}
	rgbNIRSAR = append(append([]common.SpectralBand{}, rgbNIR...), BandVV, BandVH)
)

var catalog = map[common.AnalysisType]descriptor{
	common.AnalysisTypeVegetationState: {
		Bands:     []common.SpectralBand{BandRed, BandNIR},
		Style:     StyleScript,
		Composite: Composite{Name: "false_color", Bands: [3]common.SpectralBand{BandNIR, BandRed, BandRed}},
	},
	common.AnalysisTypeWaterStress: {
		Bands:     []common.SpectralBand{BandSWIR1, BandSWIR2},
		Style:     StyleScript,
		Composite: Composite{Name: "combined", Bands: [3]common.SpectralBand{BandSWIR1, BandSWIR2, BandSWIR1}},
	},
	common.AnalysisTypePests:            {Bands: rgbNIR, Style: StyleProcess, Composite: falseRGB},
	common.AnalysisTypeDiseaseDetection: {Bands: rgbNIR, Style: StyleProcess, Composite: falseRGB},
	common.AnalysisTypeSoilAnalysis:     {Bands: rgbNIRSAR, Style: StyleProcess, Composite: falseRGB},
	common.AnalysisTypeGrowthMonitoring: {Bands: rgbNIR, Style: StyleProcess, Composite: falseRGB},
	common.AnalysisTypeWeedDetection:    {Bands: rgbNIR, Style: StyleProcess, Composite: falseRGB},
	common.AnalysisTypeYieldEstimation:  {Bands: rgbNIR, Style: StyleProcess, Composite: falseRGB},
	common.AnalysisTypeClimateDamageAssessment: {
		Bands:     []common.SpectralBand{BandBlue, BandGreen, BandRed, BandNIR, BandCirrus},
		Style:     StyleProcess,
		Composite: falseRGB,
	},
	common.AnalysisTypeCropMapping: {Bands: rgbNIRSAR, Style: StyleProcess, Composite: falseRGB},
}

func lookup(analysisType common.AnalysisType) (descriptor, error) {
	d, ok := catalog[analysisType]
	if !ok {
		return descriptor{}, fmt.Errorf("%w: %s", ErrUnsupportedAnalysisType, analysisType)
	}
	return d, nil
}

// BandsFor returns the ordered list of spectral bands fetched for the analysis type
// Raise ErrUnsupportedAnalysisType
func BandsFor(analysisType common.AnalysisType) ([]common.SpectralBand, error) {
	d, err := lookup(analysisType)
	if err != nil {
		return nil, err
	}
	return append([]common.SpectralBand{}, d.Bands...), nil
}

// StyleFor returns the style of the payload sent for the analysis type
func StyleFor(analysisType common.AnalysisType) (Style, error) {
	d, err := lookup(analysisType)
	if err != nil {
		return 0, err
	}
	return d.Style, nil
}
