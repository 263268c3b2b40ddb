package main

import (
	"errors"
	"net/http"

	"github.com/syndrizzle/briq/internal/review/engine"
	"github.com/syndrizzle/briq/pkg/domain"
	"github.com/syndrizzle/briq/pkg/httpx"
)

// writeEngineError maps engine failures onto the shared error envelope.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, engine.ErrNotParty):
		httpx.WriteError(w, http.StatusForbidden, httpx.CodeUnauthorized, err.Error(), nil)
	case errors.Is(err, domain.ErrPaused):
		httpx.WriteError(w, http.StatusServiceUnavailable, httpx.CodePaused, err.Error(), nil)
	case errors.Is(err, domain.ErrNotInitialized):
		httpx.WriteError(w, http.StatusServiceUnavailable, httpx.CodeNotConfigured, err.Error(), nil)
	case errors.Is(err, domain.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, httpx.CodeNotFound, err.Error(), nil)
	case errors.Is(err, domain.ErrAlreadyInitialized),
		errors.Is(err, engine.ErrNotReviewable),
		errors.Is(err, engine.ErrTooEarly),
		errors.Is(err, engine.ErrAlreadyReviewed):
		httpx.WriteError(w, http.StatusConflict, httpx.CodeInvalidState, err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidRating), errors.Is(err, domain.ErrReviewTooLong):
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, err.Error(), nil)
	default:
		httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeDBError, err.Error(), nil)
	}
}
