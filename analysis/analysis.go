package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/airbusgeo/geocube/interface/messaging"
	"github.com/airbusgeo/parcel-imagery/common"
	db "github.com/airbusgeo/parcel-imagery/interface/database"
	"github.com/airbusgeo/parcel-imagery/interface/provider"
	"github.com/airbusgeo/parcel-imagery/interface/provider/sentinelhub"
	"github.com/airbusgeo/parcel-imagery/service"
	"github.com/airbusgeo/parcel-imagery/service/log"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidInput is returned when a request cannot be parsed
var ErrInvalidInput = errors.New("invalid input")

// Input is the user-provided content of an analysis
type Input struct {
	Type    common.AnalysisType    `json:"type"`
	Status  *common.Status         `json:"status,omitempty"`
	Message string                 `json:"message,omitempty"`
	Result  string                 `json:"result,omitempty"`
	Images  common.SatelliteImages `json:"images,omitempty"`
}

// Indexer registers the fetched analyses in an external catalog
type Indexer interface {
	Index(ctx context.Context, parcel common.Parcel, a common.Analysis) (string, error)
}

// Service manages the analyses of the parcels and fetches their images
type Service struct {
	db.AnalysisDBBackend
	provider provider.ImageProvider
	events   messaging.Publisher
	indexer  Indexer
	now      func() time.Time
}

// Option of the Service
type Option func(*Service)

// WithIndexer registers each successful fetch with the indexer
func WithIndexer(indexer Indexer) Option {
	return func(s *Service) {
		s.indexer = indexer
	}
}

// NewService creates a new Service. events is optional
func NewService(db db.AnalysisDBBackend, provider provider.ImageProvider, events messaging.Publisher, opts ...Option) *Service {
	s := &Service{
		AnalysisDBBackend: db,
		provider:          provider,
		events:            events,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAnalysisFromInput creates a new analysis of the parcel (status NEW if not provided)
func (s *Service) CreateAnalysisFromInput(ctx context.Context, userID, parcelID string, input Input) (common.Analysis, error) {
	if !input.Type.IsAAnalysisType() {
		return common.Analysis{}, fmt.Errorf("%w: analysis type %s", ErrInvalidInput, input.Type)
	}
	a := common.Analysis{
		ID:        uuid.New().String(),
		UserID:    userID,
		ParcelID:  parcelID,
		Type:      input.Type,
		Status:    common.StatusNEW,
		Message:   input.Message,
		Result:    input.Result,
		Images:    input.Images,
		CreatedAt: s.now(),
	}
	if input.Status != nil {
		a.Status = *input.Status
	}
	if a.Images == nil {
		a.Images = common.SatelliteImages{}
	}
	if err := s.CreateAnalysis(ctx, a); err != nil {
		return a, fmt.Errorf("CreateAnalysis: %w", err)
	}
	log.Logger(ctx).Sugar().Debugf("analysis %s created (%s)", a.ID, a.Type)
	return a, nil
}

// UpdateAnalysisFromInput replaces the content of an existing analysis
func (s *Service) UpdateAnalysisFromInput(ctx context.Context, userID, parcelID, id string, input Input) (common.Analysis, error) {
	if !input.Type.IsAAnalysisType() {
		return common.Analysis{}, fmt.Errorf("%w: analysis type %s", ErrInvalidInput, input.Type)
	}
	var a common.Analysis
	err := db.UnitOfWork(ctx, s, func(tx db.AnalysisTxBackend) error {
		var err error
		if a, err = tx.Analysis(ctx, userID, parcelID, id); err != nil {
			return err
		}
		a.Type, a.Message, a.Result = input.Type, input.Message, input.Result
		if input.Status != nil {
			a.Status = *input.Status
		}
		if input.Images != nil {
			a.Images = input.Images
		}
		return tx.UpdateAnalysis(ctx, a)
	})
	if err != nil {
		return a, fmt.Errorf("UpdateAnalysis.%w", err)
	}
	return a, nil
}

// Fetch fetches the images of the parcel required by the analysis type and records the result as a new analysis:
// DONE with the images, RETRY if the failure is temporary, FAILED otherwise.
// If from and to are not zero, the acquisitions between from and to are used.
// On failure, the recorded analysis is returned with the error.
func (s *Service) Fetch(ctx context.Context, userID, parcelID string, analysisType common.AnalysisType, from, to time.Time) (common.Analysis, error) {
	if _, err := sentinelhub.BandsFor(analysisType); err != nil {
		return common.Analysis{}, fmt.Errorf("Fetch: %w", err)
	}
	parcel, err := s.Parcel(ctx, userID, parcelID)
	if err != nil {
		return common.Analysis{}, fmt.Errorf("Fetch.%w", err)
	}

	ctx = log.With(ctx, "parcel", parcelID)
	var images []common.SatelliteImage
	var fetchErr error
	if from.IsZero() && to.IsZero() {
		images, fetchErr = s.provider.FetchImages(ctx, parcel, analysisType)
	} else {
		images, fetchErr = s.provider.FetchImagesBetween(ctx, parcel, analysisType, from, to)
	}

	a := common.Analysis{
		ID:        uuid.New().String(),
		UserID:    userID,
		ParcelID:  parcelID,
		Type:      analysisType,
		Status:    common.StatusDONE,
		Images:    images,
		CreatedAt: s.now(),
	}
	if a.Images == nil {
		a.Images = common.SatelliteImages{}
	}
	if fetchErr != nil {
		a.Status = common.StatusFAILED
		if service.Temporary(fetchErr) {
			a.Status = common.StatusRETRY
		}
		a.Message = fetchErr.Error()
		log.Logger(ctx).Warn("fetch failed", zap.String("analysis", a.ID), zap.Error(fetchErr))
	}

	if err := s.CreateAnalysis(ctx, a); err != nil {
		return a, service.MergeErrors(true, fetchErr, fmt.Errorf("Fetch.CreateAnalysis: %w", err))
	}
	if fetchErr == nil && s.indexer != nil {
		if recordID, err := s.indexer.Index(ctx, parcel, a); err != nil {
			log.Logger(ctx).Warn("index analysis", zap.String("analysis", a.ID), zap.Error(err))
		} else {
			log.Logger(ctx).Sugar().Debugf("analysis %s indexed as record %s", a.ID, recordID)
		}
	}
	if err := s.publish(ctx, a); err != nil {
		log.Logger(ctx).Error("publish event", zap.String("analysis", a.ID), zap.Error(err))
	}
	if fetchErr != nil {
		return a, fmt.Errorf("Fetch.%w", fetchErr)
	}
	return a, nil
}

// publish the result of a fetch, if an event publisher is configured
func (s *Service) publish(ctx context.Context, a common.Analysis) error {
	if s.events == nil {
		return nil
	}
	event, err := json.Marshal(common.AnalysisEvent{
		AnalysisID: a.ID,
		UserID:     a.UserID,
		ParcelID:   a.ParcelID,
		Type:       a.Type,
		Status:     a.Status,
		Message:    a.Message,
		Images:     a.Images,
	})
	if err != nil {
		return fmt.Errorf("publish.Marshal: %w", err)
	}
	return service.Retriable(ctx, func() error {
		return s.events.Publish(ctx, event)
	}, 100*time.Millisecond, 3)
}
