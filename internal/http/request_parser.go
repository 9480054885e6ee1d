package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"bilancio/internal/core"
)

const (
	maxBodyBytes   = 1 << 20
	maxImportBytes = 16 << 20
)

// errBadRequest marks input that could not be read at all, as opposed to
// input that was read but failed validation.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// pathYearMonth reads {year} and {month} from the route.
func pathYearMonth(r *http.Request) (core.YearMonth, error) {
	year, err := strconv.Atoi(strings.TrimSpace(r.PathValue("year")))
	if err != nil {
		return core.YearMonth{}, badRequest("year must be a number")
	}
	month, err := strconv.Atoi(strings.TrimSpace(r.PathValue("month")))
	if err != nil {
		return core.YearMonth{}, badRequest("month must be a number")
	}
	ym := core.NewYearMonth(year, month)
	return ym, ym.Validate()
}

// pathID reads a positive {id} from the route.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("id must be a positive number")
	}
	return id, nil
}

// decodeJSON reads one JSON value from the body into v, rejecting unknown
// fields and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return badRequest("request body exceeds %d bytes", maxErr.Limit)
		}
		return badRequest("invalid JSON: %v", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return badRequest("request body must hold a single JSON value")
	}
	return nil
}

// decodeDeclaration reads and validates a declaration body.
func decodeDeclaration(w http.ResponseWriter, r *http.Request) (core.Declaration, error) {
	var dto declarationDTO
	if err := decodeJSON(w, r, maxBodyBytes, &dto); err != nil {
		return core.Declaration{}, err
	}
	return dto.toDeclaration()
}

func rowError(i int, err error) error {
	return fmt.Errorf("row %d: %w", i+1, err)
}
