package provider

import (
	"context"
	"time"

	"github.com/airbusgeo/parcel-imagery/common"
)

// ImageProvider is the interface of a satellite imagery service
type ImageProvider interface {
	// FetchImages fetches and stores one image per band required by the analysis type,
	// over a default period ending now.
	// Returns the stored images in band order
	FetchImages(ctx context.Context, parcel common.Parcel, analysisType common.AnalysisType) ([]common.SatelliteImage, error)

	// FetchImagesBetween is FetchImages using the acquisitions between from and to
	FetchImagesBetween(ctx context.Context, parcel common.Parcel, analysisType common.AnalysisType, from, to time.Time) ([]common.SatelliteImage, error)

	// Name of the provider
	Name() string
}
