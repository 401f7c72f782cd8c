package common

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

//go:generate go run github.com/dmarkham/enumer -json -sql -type AnalysisType -trimprefix AnalysisType -transform kebab

// AnalysisType is the agronomic question asked about a parcel.
// It determines the spectral bands and the request sent to the imagery provider.
type AnalysisType int

const (
	AnalysisTypeVegetationState AnalysisType = iota
	AnalysisTypeWaterStress
	AnalysisTypePests
	AnalysisTypeDiseaseDetection
	AnalysisTypeSoilAnalysis
	AnalysisTypeGrowthMonitoring
	AnalysisTypeWeedDetection
	AnalysisTypeYieldEstimation
	AnalysisTypeClimateDamageAssessment
	AnalysisTypeCropMapping
)

// SpectralBand is a provider-defined band code (B04, B08, VV...)
type SpectralBand string

// SatelliteImage is a stored image of one band of a parcel
type SatelliteImage struct {
	Path string       `json:"path"`
	Band SpectralBand `json:"band"`
}

// SatelliteImages is a list of images, stored as json in database
type SatelliteImages []SatelliteImage

// Analysis is the record of an analysis requested by a user on one of its parcels
type Analysis struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	ParcelID  string          `json:"parcel_id"`
	Type      AnalysisType    `json:"type"`
	Status    Status          `json:"status"`
	Message   string          `json:"message,omitempty"`
	Result    string          `json:"result,omitempty"`
	Images    SatelliteImages `json:"images"`
	CreatedAt time.Time       `json:"created_at"`
}

// AnalysisEvent is published when the images of an analysis have been fetched (or failed to)
type AnalysisEvent struct {
	AnalysisID string          `json:"analysis_id"`
	UserID     string          `json:"user_id"`
	ParcelID   string          `json:"parcel_id"`
	Type       AnalysisType    `json:"type"`
	Status     Status          `json:"status"`
	Message    string          `json:"message,omitempty"`
	Images     SatelliteImages `json:"images,omitempty"`
}

// Value implements the driver.Value interface
func (i SatelliteImages) Value() (driver.Value, error) {
	if i == nil {
		i = SatelliteImages{}
	}
	return json.Marshal(i)
}

// Scan implements the sql.Scanner interface.
func (i *SatelliteImages) Scan(value interface{}) error {
	if value == nil {
		*i = SatelliteImages{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, i)
}
