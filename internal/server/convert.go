package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	persian "github.com/tartampluch/go-persian"
	"github.com/tartampluch/go-persian/internal/config"
)

// conversionResult is the JSON envelope shared by the conversion endpoints.
type conversionResult struct {
	Kind   string `json:"kind"`
	Input  string `json:"input"`
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Day    int    `json:"day"`
	Hour   int    `json:"hour"`
	Minute int    `json:"minute"`
	Second int    `json:"second"`
	Zone   string `json:"zone,omitempty"` // absent for civil results
	Text   string `json:"text"`
}

// errorResult is the JSON envelope for rejected requests.
type errorResult struct {
	Error string `json:"error"`
}

// healthResult is the JSON envelope of the health endpoint.
type healthResult struct {
	Status string `json:"status"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResult{Status: config.HealthStatusOK})
}

// handleConvert translates the "at" query parameter to the Persian calendar.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	at := r.URL.Query().Get(config.QueryAt)
	if at == "" {
		writeError(w, http.StatusBadRequest, config.HTTPMsgMissingAt)
		return
	}

	kind, ok := s.requestKind(r)
	if !ok {
		writeError(w, http.StatusBadRequest, config.HTTPMsgBadKind)
		return
	}

	result, ok, err := convertAt(kind, at)
	if err != nil {
		writeError(w, http.StatusBadRequest, config.HTTPMsgBadAt)
		return
	}
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, config.HTTPMsgNotConvertible)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleNow converts the current instant as seen by the server clock.
func (s *Server) handleNow(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.requestKind(r)
	if !ok {
		writeError(w, http.StatusBadRequest, config.HTTPMsgBadKind)
		return
	}

	result, ok := convertNow(kind, s.Clock.Now())
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, config.HTTPMsgNotConvertible)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// requestKind resolves the kind parameter, falling back to the server default.
func (s *Server) requestKind(r *http.Request) (string, bool) {
	kind := r.URL.Query().Get(config.QueryKind)
	if kind == "" {
		kind = s.Kind
	}
	if !slices.Contains(config.SupportedKinds, kind) {
		return "", false
	}
	return kind, true
}

// convertAt parses at according to kind and converts it. The boolean is false
// when the value falls outside the representable range.
func convertAt(kind, at string) (conversionResult, bool, error) {
	switch kind {
	case config.KindUTC:
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return conversionResult{}, false, fmt.Errorf("%s: %w", config.ErrTimestampParse, err)
		}
		pt, ok := persian.FromUTC(t)
		if !ok {
			return conversionResult{}, false, nil
		}
		return instantResult(kind, at, pt), true, nil

	case config.KindLocal:
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return conversionResult{}, false, fmt.Errorf("%s: %w", config.ErrTimestampParse, err)
		}
		pt, ok := persian.FromLocal(t)
		if !ok {
			return conversionResult{}, false, nil
		}
		return instantResult(kind, at, pt), true, nil

	default: // config.KindCivil
		dt, err := parseCivil(at)
		if err != nil {
			return conversionResult{}, false, err
		}
		out, ok := persian.FromDateTime(dt)
		if !ok {
			return conversionResult{}, false, nil
		}
		return civilResult(kind, at, out), true, nil
	}
}

// convertNow reads the current instant according to kind. The civil kind uses
// the reference timezone wall clock as the naive reading of now.
func convertNow(kind string, now time.Time) (conversionResult, bool) {
	switch kind {
	case config.KindUTC:
		pt, ok := persian.FromUTC(now)
		if !ok {
			return conversionResult{}, false
		}
		return instantResult(kind, now.UTC().Format(time.RFC3339), pt), true

	case config.KindLocal:
		pt, ok := persian.FromLocal(now)
		if !ok {
			return conversionResult{}, false
		}
		return instantResult(kind, now.In(persian.Reference()).Format(time.RFC3339), pt), true

	default: // config.KindCivil
		reading := now.In(persian.Reference())
		out, ok := persian.FromDateTime(persian.DateTimeOf(reading))
		if !ok {
			return conversionResult{}, false
		}
		return civilResult(kind, reading.Format(config.LayoutCivil), out), true
	}
}

// parseCivil accepts a timezone-naive timestamp, or a bare date read as
// midnight. Zoned inputs are rejected so the civil kind stays offset-free.
func parseCivil(value string) (persian.DateTime, error) {
	for _, layout := range []string{config.LayoutCivil, config.DateFormatFullDash} {
		if t, err := time.Parse(layout, value); err == nil {
			return persian.DateTimeOf(t), nil
		}
	}
	return persian.DateTime{}, errors.New(config.ErrTimestampParse)
}

func instantResult(kind, input string, pt persian.Time) conversionResult {
	return conversionResult{
		Kind:   kind,
		Input:  input,
		Year:   pt.Year,
		Month:  pt.Month,
		Day:    pt.Day,
		Hour:   pt.Hour,
		Minute: pt.Minute,
		Second: pt.Second,
		Zone:   pt.Location.String(),
		Text:   pt.String(),
	}
}

func civilResult(kind, input string, dt persian.DateTime) conversionResult {
	return conversionResult{
		Kind:   kind,
		Input:  input,
		Year:   dt.Year,
		Month:  dt.Month,
		Day:    dt.Day,
		Hour:   dt.Hour,
		Minute: dt.Minute,
		Second: dt.Second,
		Text:   dt.String(),
	}
}

// writeJSON renders v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HeaderContentType, config.MimeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(config.ErrWriteResp,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResult{Error: msg})
}
