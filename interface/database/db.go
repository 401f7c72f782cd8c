package db

import (
	"context"
	"fmt"

	"github.com/airbusgeo/parcel-imagery/common"
)

type ErrAlreadyExists struct {
	Type, ID string
}

func (e ErrAlreadyExists) Error() string {
	return fmt.Sprintf("%s alreay exists: %s", e.Type, e.ID)
}

type ErrNotFound struct {
	Type, ID string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Type, e.ID)
}

type AnalysisTxBackend interface {
	AnalysisBackend
	// Must be call to apply transaction
	Commit() error
	// Might be called to cancel the transaction (no effect if commit has already be done)
	Rollback() error
}

type AnalysisDBBackend interface {
	AnalysisBackend
	StartTransaction(ctx context.Context) (AnalysisTxBackend, error)
}

type AnalysisBackend interface {
	// Create or replace a parcel
	SaveParcel(ctx context.Context, parcel common.Parcel) error
	// Get the parcel of the user, may return ErrNotFound
	Parcel(ctx context.Context, userID, parcelID string) (common.Parcel, error)

	// Create a new analysis, may return ErrAlreadyExists, or ErrNotFound if the parcel does not exist
	CreateAnalysis(ctx context.Context, analysis common.Analysis) error
	// Get the analysis with the given id, may return ErrNotFound
	Analysis(ctx context.Context, userID, parcelID, id string) (common.Analysis, error)
	// Analyses returns the analyses of the parcel, latest first
	// status [optional=""] status of the analyses
	Analyses(ctx context.Context, userID, parcelID, status string, page, limit int) ([]common.Analysis, error)
	// Update type, status, message, result and images of the analysis, may return ErrNotFound
	UpdateAnalysis(ctx context.Context, analysis common.Analysis) error
	// Delete the analysis, may return ErrNotFound
	DeleteAnalysis(ctx context.Context, userID, parcelID, id string) error
	// Returns the latest analysis of the given type, may return ErrNotFound
	LastAnalysisByType(ctx context.Context, userID, parcelID string, analysisType common.AnalysisType) (common.Analysis, error)
}

// UnitOfWork runs a function and commit the database at the end or rollback if the function returns an error
func UnitOfWork(ctx context.Context, db AnalysisDBBackend, f func(tx AnalysisTxBackend) error) (err error) {
	// Start transaction
	txn, err := db.StartTransaction(ctx)
	if err != nil {
		return fmt.Errorf("uow.starttransaction: %w", err)
	}

	// Rollback if not successful
	defer func() {
		if e := txn.Rollback(); err == nil {
			err = e
		}
	}()

	// Execute function
	if err = f(txn); err != nil {
		return fmt.Errorf("uow.%w", err)
	}

	return txn.Commit()
}
