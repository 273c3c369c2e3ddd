package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"gestor/internal/core"
)

// respondJSON writes v as a JSON body with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// respondError maps domain errors onto HTTP statuses: not-found to 404,
// conflicts to 409, validation failures to 422, everything else to 500
// with the detail kept out of the body.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, core.ErrConflict):
		respondJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case isValidationError(err):
		respondJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	default:
		respondJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrInvalidAmount,
		core.ErrInvalidDate,
		core.ErrInvalidGroup,
		core.ErrEmptyName,
		core.ErrEmptyDescription,
		core.ErrInvalidAccountType,
		core.ErrInvalidTxType,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// decodeJSON reads a request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func badRequest(w http.ResponseWriter, err error) {
	respondJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
}
