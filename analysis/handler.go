package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/airbusgeo/parcel-imagery/common"
	db "github.com/airbusgeo/parcel-imagery/interface/database"
	"github.com/airbusgeo/parcel-imagery/interface/provider/sentinelhub"
	"github.com/airbusgeo/parcel-imagery/service/geometry"
	"github.com/airbusgeo/parcel-imagery/service/log"
	"github.com/araddon/dateparse"
	"github.com/gorilla/mux"
)

// NewHandler returns the router of the analysis API
func (s *Service) NewHandler() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/parcel/{user}/{parcel}", s.GetParcelHandler).Methods("GET")
	r.HandleFunc("/parcel/{user}/{parcel}", s.SaveParcelHandler).Methods("PUT")
	r.HandleFunc("/analysis/last_by_type/{user}/{parcel}/{type}", s.LastAnalysisByTypeHandler).Methods("GET")
	r.HandleFunc("/analysis/{user}/{parcel}/create", s.CreateAnalysisHandler).Methods("POST")
	r.HandleFunc("/analysis/{user}/{parcel}/fetch/{type}", s.FetchHandler).Methods("POST")
	r.HandleFunc("/analysis/{user}/{parcel}/", s.ListAnalysesHandler).Methods("GET")
	r.HandleFunc("/analysis/{user}/{parcel}/{analysis}", s.GetAnalysisHandler).Methods("GET")
	r.HandleFunc("/analysis/{user}/{parcel}/{analysis}", s.UpdateAnalysisHandler).Methods("PUT")
	r.HandleFunc("/analysis/{user}/{parcel}/{analysis}", s.DeleteAnalysisHandler).Methods("DELETE")
	return r
}

// httpStatus maps an error to the status code of the response
func httpStatus(err error) int {
	var authErr *sentinelhub.AuthenticationError
	var providerErr *sentinelhub.ProviderRequestError
	var storageErr *sentinelhub.StorageError
	switch {
	case errors.As(err, &db.ErrNotFound{}):
		return http.StatusNotFound
	case errors.As(err, &db.ErrAlreadyExists{}):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, sentinelhub.ErrUnsupportedAnalysisType),
		errors.Is(err, geometry.ErrInvalidGeometry):
		return http.StatusBadRequest
	case errors.As(err, &authErr), errors.As(err, &providerErr):
		return http.StatusBadGateway
	case errors.As(err, &storageErr):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, req *http.Request, err error) {
	code := httpStatus(err)
	if code >= 500 {
		log.Logger(req.Context()).Sugar().Warnf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	w.WriteHeader(code)
	fmt.Fprintf(w, "%v", err)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func decodeInput(req *http.Request, v interface{}) error {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func parseAnalysisType(s string) (common.AnalysisType, error) {
	t, err := common.AnalysisTypeString(s)
	if err != nil {
		return t, fmt.Errorf("%w: %v", sentinelhub.ErrUnsupportedAnalysisType, err)
	}
	return t, nil
}

// SaveParcelHandler creates or replaces the boundary of a parcel from a GeoJSON polygon
func (s *Service) SaveParcelHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	vars := mux.Vars(req)
	body, err := io.ReadAll(req.Body)
	if err != nil {
		writeError(w, req, fmt.Errorf("%w: %v", ErrInvalidInput, err))
		return
	}
	points, err := geometry.PointsFromGeoJSON(body)
	if err != nil {
		writeError(w, req, err)
		return
	}
	parcel := common.Parcel{ID: vars["parcel"], UserID: vars["user"], Boundary: points}
	if _, err := geometry.ClosedRing(parcel.Boundary); err != nil {
		writeError(w, req, err)
		return
	}
	if err := s.SaveParcel(ctx, parcel); err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, parcel)
}

// GetParcelHandler retrieves a parcel
func (s *Service) GetParcelHandler(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	parcel, err := s.Parcel(req.Context(), vars["user"], vars["parcel"])
	if err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, parcel)
}

// CreateAnalysisHandler creates an analysis from the body of the request
func (s *Service) CreateAnalysisHandler(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	var input Input
	if err := decodeInput(req, &input); err != nil {
		writeError(w, req, err)
		return
	}
	a, err := s.CreateAnalysisFromInput(req.Context(), vars["user"], vars["parcel"], input)
	if err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, a)
}

// GetAnalysisHandler retrieves an analysis
func (s *Service) GetAnalysisHandler(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	a, err := s.Analysis(req.Context(), vars["user"], vars["parcel"], vars["analysis"])
	if err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, a)
}

// ListAnalysesHandler lists the analyses of a parcel, latest first
// query: status [optional], page [optional=0], limit [optional=0 (no limit)]
func (s *Service) ListAnalysesHandler(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	query := req.URL.Query()
	status := query.Get("status")
	if status != "" {
		if _, err := common.StatusString(status); err != nil {
			writeError(w, req, fmt.Errorf("%w: %v", ErrInvalidInput, err))
			return
		}
	}
	var page, limit int
	var err error
	if v := query.Get("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil || page < 0 {
			writeError(w, req, fmt.Errorf("%w: page %s", ErrInvalidInput, v))
			return
		}
	}
	if v := query.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			writeError(w, req, fmt.Errorf("%w: limit %s", ErrInvalidInput, v))
			return
		}
	}
	analyses, err := s.Analyses(req.Context(), vars["user"], vars["parcel"], status, page, limit)
	if err != nil {
		writeError(w, req, err)
		return
	}
	if len(analyses) == 0 {
		w.WriteHeader(404)
		fmt.Fprintf(w, "no analysis found for parcel %s", vars["parcel"])
		return
	}
	writeJSON(w, analyses)
}

// UpdateAnalysisHandler replaces the content of an analysis
func (s *Service) UpdateAnalysisHandler(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	var input Input
	if err := decodeInput(req, &input); err != nil {
		writeError(w, req, err)
		return
	}
	a, err := s.UpdateAnalysisFromInput(req.Context(), vars["user"], vars["parcel"], vars["analysis"], input)
	if err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, a)
}

// DeleteAnalysisHandler deletes an analysis
func (s *Service) DeleteAnalysisHandler(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	if err := s.DeleteAnalysis(req.Context(), vars["user"], vars["parcel"], vars["analysis"]); err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, map[string]string{"message": fmt.Sprintf("analysis %s deleted", vars["analysis"])})
}

// LastAnalysisByTypeHandler retrieves the latest analysis of the given type
func (s *Service) LastAnalysisByTypeHandler(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	t, err := parseAnalysisType(vars["type"])
	if err != nil {
		writeError(w, req, err)
		return
	}
	a, err := s.LastAnalysisByType(req.Context(), vars["user"], vars["parcel"], t)
	if err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, a)
}

// FetchHandler fetches the images of the parcel for the analysis type and records the analysis
// query: from, to [optional] acquisition time range (both or none), any format supported by dateparse, UTC by default
func (s *Service) FetchHandler(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	t, err := parseAnalysisType(vars["type"])
	if err != nil {
		writeError(w, req, err)
		return
	}
	from, to, err := parseTimeRange(req)
	if err != nil {
		writeError(w, req, err)
		return
	}
	a, err := s.Fetch(req.Context(), vars["user"], vars["parcel"], t, from, to)
	if err != nil {
		if a.ID != "" {
			w.Header().Set("X-Analysis-Id", a.ID)
		}
		writeError(w, req, err)
		return
	}
	writeJSON(w, a)
}

func parseTimeRange(req *http.Request) (from, to time.Time, err error) {
	query := req.URL.Query()
	fromStr, toStr := query.Get("from"), query.Get("to")
	if fromStr == "" && toStr == "" {
		return
	}
	if fromStr == "" || toStr == "" {
		return from, to, fmt.Errorf("%w: both from and to must be provided", ErrInvalidInput)
	}
	if from, err = dateparse.ParseIn(fromStr, time.UTC); err != nil {
		return from, to, fmt.Errorf("%w: from: %v", ErrInvalidInput, err)
	}
	if to, err = dateparse.ParseIn(toStr, time.UTC); err != nil {
		return from, to, fmt.Errorf("%w: to: %v", ErrInvalidInput, err)
	}
	if !from.Before(to) {
		return from, to, fmt.Errorf("%w: from must be before to", ErrInvalidInput)
	}
	return from, to, nil
}
