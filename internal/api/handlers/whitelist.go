package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/janitarr/janitarr/internal/apperrors"
	"github.com/janitarr/janitarr/internal/controllers"
	"github.com/sirupsen/logrus"
)

// WhitelistHandler manages whitelist and episode-exemption requests
type WhitelistHandler struct {
	whitelistCtrl *controllers.WhitelistController
	defaultUser   string
	logger        *logrus.Logger
}

// NewWhitelistHandler creates a new whitelist handler
func NewWhitelistHandler(whitelistCtrl *controllers.WhitelistController, defaultUser string, logger *logrus.Logger) *WhitelistHandler {
	return &WhitelistHandler{
		whitelistCtrl: whitelistCtrl,
		defaultUser:   defaultUser,
		logger:        logger,
	}
}

// ListContent lists the acting user's whitelist entries
func (h *WhitelistHandler) ListContent(w http.ResponseWriter, r *http.Request) {
	entries, err := h.whitelistCtrl.ListContent(userID(r, h.defaultUser))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, entries)
}

// AddContent whitelists a library item
func (h *WhitelistHandler) AddContent(w http.ResponseWriter, r *http.Request) {
	var req controllers.AddContentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	entry, err := h.whitelistCtrl.AddContent(userID(r, h.defaultUser), req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, entry)
}

// RemoveContent deletes a whitelist entry by id
func (h *WhitelistHandler) RemoveContent(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if err := h.whitelistCtrl.RemoveContent(userID(r, h.defaultUser), id); err != nil {
		respondError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListExemptions lists the acting user's episode exemptions
func (h *WhitelistHandler) ListExemptions(w http.ResponseWriter, r *http.Request) {
	entries, err := h.whitelistCtrl.ListEpisodeExemptions(userID(r, h.defaultUser))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, entries)
}

// AddExemption exempts a single episode from language checks
func (h *WhitelistHandler) AddExemption(w http.ResponseWriter, r *http.Request) {
	var req controllers.AddExemptionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	entry, err := h.whitelistCtrl.AddEpisodeExemption(userID(r, h.defaultUser), req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, entry)
}

// RemoveExemption deletes an episode exemption by id
func (h *WhitelistHandler) RemoveExemption(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if err := h.whitelistCtrl.RemoveEpisodeExemption(userID(r, h.defaultUser), id); err != nil {
		respondError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func entryID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, apperrors.New(apperrors.KindValidation, "invalid entry id")
	}
	return id, nil
}
