package main

import (
	"errors"
	"net/http"

	"github.com/syndrizzle/briq/internal/agreement/ledger"
	"github.com/syndrizzle/briq/pkg/domain"
	"github.com/syndrizzle/briq/pkg/httpx"
)

// writeLedgerError maps engine failures onto the shared error envelope.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, ledger.ErrNotParty):
		httpx.WriteError(w, http.StatusForbidden, httpx.CodeUnauthorized, err.Error(), nil)
	case errors.Is(err, domain.ErrPaused):
		httpx.WriteError(w, http.StatusServiceUnavailable, httpx.CodePaused, err.Error(), nil)
	case errors.Is(err, domain.ErrNotInitialized):
		httpx.WriteError(w, http.StatusServiceUnavailable, httpx.CodeNotConfigured, err.Error(), nil)
	case errors.Is(err, domain.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, httpx.CodeNotFound, err.Error(), nil)
	case errors.Is(err, domain.ErrAlreadyInitialized),
		errors.Is(err, ledger.ErrAlreadySigned),
		errors.Is(err, ledger.ErrInvalidState),
		errors.Is(err, ledger.ErrTermNotEnded):
		httpx.WriteError(w, http.StatusConflict, httpx.CodeInvalidState, err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidDates),
		errors.Is(err, domain.ErrDurationBelowMinimum),
		errors.Is(err, domain.ErrDurationAboveMaximum),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrPropertyNotUsable),
		errors.Is(err, ledger.ErrPropertyNotAvailable):
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, err.Error(), nil)
	default:
		httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeDBError, err.Error(), nil)
	}
}
