package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/lox/citywx/internal/cityname"
	"github.com/lox/citywx/internal/store"
	"github.com/lox/citywx/internal/weather"
)

type cityQuery struct {
	City string `validate:"required,max=100"`
}

type compareQuery struct {
	A string `validate:"required,max=100"`
	B string `validate:"required,max=100,nefield=A"`
}

type runsQuery struct {
	Limit int `validate:"min=1,max=100"`
}

const defaultRunsLimit = 20

type lookupRequest struct {
	City any `json:"city"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	var verr validator.ValidationErrors
	switch {
	case errors.As(err, &verr),
		errors.Is(err, cityname.ErrInvalid),
		errors.Is(err, cityname.ErrNotText),
		errors.Is(err, weather.ErrSameCity):
		return http.StatusBadRequest
	case errors.Is(err, weather.ErrNoData), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, weather.ErrProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("api: request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleAPICurrent(w http.ResponseWriter, r *http.Request) {
	q := cityQuery{City: r.URL.Query().Get("city")}
	if err := s.validate.Struct(q); err != nil {
		s.writeError(w, r, err)
		return
	}

	var (
		cond weather.Conditions
		err  error
	)
	if r.URL.Query().Get("refresh") == "true" {
		cond, err = s.svc.FetchAndStore(r.Context(), q.City)
	} else {
		cond, err = s.svc.Current(q.City)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newConditionsView(cond))
}

// handleAPILookup fetches a city from the provider and stores the result.
func (s *Server) handleAPILookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	city, err := cityname.FromValue(req.City)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	cond, err := s.svc.FetchAndStore(r.Context(), city)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newConditionsView(cond))
}

// handleAPIAlerts evaluates alerts for the given city, or for the most
// recently observed city when none is given.
func (s *Server) handleAPIAlerts(w http.ResponseWriter, r *http.Request) {
	var (
		cond weather.Conditions
		err  error
	)
	if city := r.URL.Query().Get("city"); city != "" {
		cond, err = s.svc.Current(city)
	} else {
		cond, err = s.svc.LatestAlerts()
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newConditionsView(cond))
}

func (s *Server) handleAPICompare(w http.ResponseWriter, r *http.Request) {
	q := compareQuery{A: r.URL.Query().Get("a"), B: r.URL.Query().Get("b")}
	if err := s.validate.Struct(q); err != nil {
		s.writeError(w, r, err)
		return
	}
	cmp, err := s.svc.Compare(q.A, q.B)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newComparisonView(cmp))
}

func (s *Server) handleAPIRecords(w http.ResponseWriter, r *http.Request) {
	q := cityQuery{City: r.URL.Query().Get("city")}
	if err := s.validate.Struct(q); err != nil {
		s.writeError(w, r, err)
		return
	}
	ranked, err := s.svc.Ranked(q.City)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]RankedView, 0, len(ranked))
	for _, sc := range ranked {
		out = append(out, RankedView{Score: sc.Score, Record: newRecordView(sc.Record)})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleAPILatest returns the newest record for a city, which may be less
// complete than the one /api/current picks.
func (s *Server) handleAPILatest(w http.ResponseWriter, r *http.Request) {
	q := cityQuery{City: r.URL.Query().Get("city")}
	if err := s.validate.Struct(q); err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.svc.Latest(q.City)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRecordView(rec))
}

func (s *Server) handleAPICities(w http.ResponseWriter, r *http.Request) {
	cities, err := s.store.Locations()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if cities == nil {
		cities = []string{}
	}
	writeJSON(w, http.StatusOK, CitiesView{Count: len(cities), Cities: cities})
}

func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Stats()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsView(st))
}

// handleAPIRuns lists recent fetches and imports, newest first.
func (s *Server) handleAPIRuns(w http.ResponseWriter, r *http.Request) {
	q := runsQuery{Limit: defaultRunsLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid limit %q", raw)})
			return
		}
		q.Limit = n
	}
	if err := s.validate.Struct(q); err != nil {
		s.writeError(w, r, err)
		return
	}
	runs, err := s.store.RecentIngestRuns(q.Limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]RunView, 0, len(runs))
	for _, run := range runs {
		out = append(out, newRunView(run))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleAPIPayload serves an archived provider payload as it was received.
func (s *Server) handleAPIPayload(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid payload id %q", r.PathValue("id"))})
		return
	}
	payload, err := s.store.GetRawPayload(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

func (s *Server) handleAPIExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="citywx.csv"`)
	if _, err := s.store.ExportCSV(w); err != nil {
		s.log.Error("api: export", zap.Error(err))
	}
}
