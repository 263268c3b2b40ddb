package main

import (
	"errors"
	"net/http"

	"github.com/syndrizzle/briq/internal/reward/ledger"
	"github.com/syndrizzle/briq/internal/reward/store"
	"github.com/syndrizzle/briq/pkg/domain"
	"github.com/syndrizzle/briq/pkg/httpx"
)

// writeLedgerError maps engine failures onto the shared error envelope.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		httpx.WriteError(w, http.StatusForbidden, httpx.CodeUnauthorized, err.Error(), nil)
	case errors.Is(err, domain.ErrPaused):
		httpx.WriteError(w, http.StatusServiceUnavailable, httpx.CodePaused, err.Error(), nil)
	case errors.Is(err, domain.ErrNotInitialized), errors.Is(err, domain.ErrNotConfigured):
		httpx.WriteError(w, http.StatusServiceUnavailable, httpx.CodeNotConfigured, err.Error(), nil)
	case errors.Is(err, domain.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, httpx.CodeNotFound, err.Error(), nil)
	case errors.Is(err, domain.ErrAlreadyInitialized), errors.Is(err, store.ErrInsufficientBalance):
		httpx.WriteError(w, http.StatusConflict, httpx.CodeInvalidState, err.Error(), nil)
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, domain.ErrNegativeRewardAmount):
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, err.Error(), nil)
	default:
		httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeDBError, err.Error(), nil)
	}
}
