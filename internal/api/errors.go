package api

import (
	"errors"
	"net/http"

	"greencircuit/internal/ingest"
	"greencircuit/internal/opt"
	"greencircuit/internal/score"
	"greencircuit/internal/store"
)

// statusForError maps core sentinel errors onto HTTP status codes.
// Malformed uploads are 400, misconfigured solves 422, lookups 404.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ingest.ErrMissingColumn), errors.Is(err, ingest.ErrInvalidValue):
		return http.StatusBadRequest
	case errors.Is(err, score.ErrInvalidCount), errors.Is(err, score.ErrInvalidValue),
		errors.Is(err, opt.ErrEmptyCandidateSet):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, title string, err error, instance string) {
	writeProblem(w, statusForError(err), title, err.Error(), instance)
}
