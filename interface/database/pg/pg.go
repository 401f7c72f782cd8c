package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/airbusgeo/parcel-imagery/common"
	db "github.com/airbusgeo/parcel-imagery/interface/database"
	"github.com/airbusgeo/parcel-imagery/service/geometry"
	"github.com/lib/pq"
)

// pgInterface allows to use either a sql.DB or a sql.Tx
type pgInterface interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// BackendTx implements AnalysisTxBackend
type BackendTx struct {
	*sql.Tx
	Backend
}

// BackendDB implements AnalysisDBBackend
type BackendDB struct {
	*sql.DB
	Backend
}

// Backend implements AnalysisBackend
type Backend struct {
	pgInterface
}

/* http://www.postgresql.org/docs/9.3/static/errcodes-appendix.html */
const (
	noError             = "00000"
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"

	notPqError = "X"
)

func pqErrorCode(err error) pq.ErrorCode {
	if err == nil {
		return noError
	}
	var pqerr *pq.Error
	if errors.As(err, &pqerr) {
		return pqerr.Code
	}
	return notPqError
}

// StartTransaction implements AnalysisDBBackend
func (bdb BackendDB) StartTransaction(ctx context.Context) (db.AnalysisTxBackend, error) {
	tx, err := bdb.BeginTx(ctx, nil)
	if err != nil {
		return BackendTx{}, err
	}
	return BackendTx{tx, Backend{pgInterface: tx}}, nil
}

// Rollback overloads sql.Tx.Rollback to be idempotent
func (btx BackendTx) Rollback() error {
	err := btx.Tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}

// New creates a new backend using Postgres
func New(ctx context.Context, dbConnection string) (*BackendDB, error) {
	db, err := sql.Open("postgres", dbConnection)
	if err != nil {
		return nil, fmt.Errorf("sql.open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sql.ping: %w", err)
	}
	return &BackendDB{db, Backend{pgInterface: db}}, nil
}

// SaveParcel implements AnalysisBackend
func (b Backend) SaveParcel(ctx context.Context, parcel common.Parcel) error {
	boundary, err := geometry.PolygonGeoJSON(parcel.Boundary)
	if err != nil {
		return fmt.Errorf("SaveParcel.%w", err)
	}
	if _, err := b.ExecContext(ctx,
		"insert into parcel(user_id, id, boundary) values($1, $2, $3) "+
			"ON CONFLICT (user_id, id) DO UPDATE SET boundary = EXCLUDED.boundary",
		parcel.UserID, parcel.ID, string(boundary)); err != nil {
		return fmt.Errorf("SaveParcel.exec: %w", err)
	}
	return nil
}

// Parcel implements AnalysisBackend
func (b Backend) Parcel(ctx context.Context, userID, parcelID string) (common.Parcel, error) {
	parcel := common.Parcel{ID: parcelID, UserID: userID}
	var boundary []byte
	err := b.QueryRowContext(ctx, "select boundary from parcel where user_id = $1 and id = $2", userID, parcelID).Scan(&boundary)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return parcel, db.ErrNotFound{Type: "parcel", ID: parcelID}
	case err != nil:
		return parcel, fmt.Errorf("Parcel.QueryRowContext: %w", err)
	}
	if parcel.Boundary, err = geometry.PointsFromGeoJSON(boundary); err != nil {
		return parcel, fmt.Errorf("Parcel.%w", err)
	}
	return parcel, nil
}

// CreateAnalysis implements AnalysisBackend
func (b Backend) CreateAnalysis(ctx context.Context, a common.Analysis) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := b.ExecContext(ctx,
		"insert into analysis(id, user_id, parcel_id, type, status, message, result, images, created_at) "+
			"values($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		a.ID, a.UserID, a.ParcelID, a.Type, a.Status, a.Message, a.Result, a.Images, a.CreatedAt)
	switch pqErrorCode(err) {
	case noError:
		return nil
	case uniqueViolation:
		return db.ErrAlreadyExists{Type: "analysis", ID: a.ID}
	case foreignKeyViolation:
		return db.ErrNotFound{Type: "parcel", ID: a.ParcelID}
	default:
		return fmt.Errorf("CreateAnalysis.exec: %w", err)
	}
}

const analysisColumns = "id, user_id, parcel_id, type, status, message, result, images, created_at"

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAnalysis(row scanner) (common.Analysis, error) {
	var a common.Analysis
	err := row.Scan(&a.ID, &a.UserID, &a.ParcelID, &a.Type, &a.Status, &a.Message, &a.Result, &a.Images, &a.CreatedAt)
	return a, err
}

// Analysis implements AnalysisBackend
func (b Backend) Analysis(ctx context.Context, userID, parcelID, id string) (common.Analysis, error) {
	a, err := scanAnalysis(b.QueryRowContext(ctx,
		"select "+analysisColumns+" from analysis where user_id = $1 and parcel_id = $2 and id = $3",
		userID, parcelID, id))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return a, db.ErrNotFound{Type: "analysis", ID: id}
	case err != nil:
		return a, fmt.Errorf("Analysis.QueryRowContext: %w", err)
	}
	return a, nil
}

// Analyses implements AnalysisBackend
func (b Backend) Analyses(ctx context.Context, userID, parcelID, status string, page, limit int) ([]common.Analysis, error) {
	wc := whereClause{}
	wc.and("user_id = $%d", userID)
	wc.and("parcel_id = $%d", parcelID)
	if status != "" {
		wc.and("status = $%d", status)
	}

	rows, err := b.QueryContext(ctx,
		"select "+analysisColumns+" from analysis"+wc.String()+" ORDER BY created_at DESC, id"+limitOffset(page, limit),
		wc.parameters...)
	if err != nil {
		return nil, fmt.Errorf("Analyses.QueryContext: %w", err)
	}
	defer rows.Close()

	analyses := []common.Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("Analyses.Scan: %w", err)
		}
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Analyses.rows.err: %w", err)
	}
	return analyses, nil
}

// UpdateAnalysis implements AnalysisBackend
func (b Backend) UpdateAnalysis(ctx context.Context, a common.Analysis) error {
	res, err := b.ExecContext(ctx,
		"update analysis set type = $4, status = $5, message = $6, result = $7, images = $8 "+
			"where user_id = $1 and parcel_id = $2 and id = $3",
		a.UserID, a.ParcelID, a.ID, a.Type, a.Status, a.Message, a.Result, a.Images)
	if err != nil {
		return fmt.Errorf("UpdateAnalysis.exec: %w", err)
	}
	return expectOneRow(res, "analysis", a.ID)
}

// DeleteAnalysis implements AnalysisBackend
func (b Backend) DeleteAnalysis(ctx context.Context, userID, parcelID, id string) error {
	res, err := b.ExecContext(ctx, "delete from analysis where user_id = $1 and parcel_id = $2 and id = $3", userID, parcelID, id)
	if err != nil {
		return fmt.Errorf("DeleteAnalysis.exec: %w", err)
	}
	return expectOneRow(res, "analysis", id)
}

// LastAnalysisByType implements AnalysisBackend
func (b Backend) LastAnalysisByType(ctx context.Context, userID, parcelID string, analysisType common.AnalysisType) (common.Analysis, error) {
	a, err := scanAnalysis(b.QueryRowContext(ctx,
		"select "+analysisColumns+" from analysis where user_id = $1 and parcel_id = $2 and type = $3 "+
			"ORDER BY created_at DESC LIMIT 1",
		userID, parcelID, analysisType))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return a, db.ErrNotFound{Type: "analysis", ID: analysisType.String()}
	case err != nil:
		return a, fmt.Errorf("LastAnalysisByType.QueryRowContext: %w", err)
	}
	return a, nil
}

func expectOneRow(res sql.Result, typ, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("RowsAffected: %w", err)
	}
	if n == 0 {
		return db.ErrNotFound{Type: typ, ID: id}
	}
	return nil
}

func limitOffset(page, limit int) string {
	if limit > 0 {
		if page > 0 {
			return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, page*limit)
		}
		return fmt.Sprintf(" LIMIT %d", limit)
	}
	return ""
}

// whereClause joins conditions with AND, numbering their parameters
type whereClause struct {
	parameters []interface{}
	conditions []string
}

// and appends a condition whose %d verbs are replaced by the positions of the parameters
func (wc *whereClause) and(condition string, parameters ...interface{}) {
	positions := make([]interface{}, len(parameters))
	for i := range parameters {
		positions[i] = len(wc.parameters) + i + 1
	}
	wc.parameters = append(wc.parameters, parameters...)
	wc.conditions = append(wc.conditions, fmt.Sprintf(condition, positions...))
}

func (wc whereClause) String() string {
	if len(wc.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(wc.conditions, " AND ")
}
