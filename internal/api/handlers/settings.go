package handlers

import (
	"net/http"

	"github.com/janitarr/janitarr/internal/controllers"
	"github.com/janitarr/janitarr/internal/models"
	"github.com/sirupsen/logrus"
)

// SettingsHandler manages threshold requests
type SettingsHandler struct {
	settingsCtrl *controllers.SettingsController
	defaultUser  string
	logger       *logrus.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settingsCtrl *controllers.SettingsController, defaultUser string, logger *logrus.Logger) *SettingsHandler {
	return &SettingsHandler{
		settingsCtrl: settingsCtrl,
		defaultUser:  defaultUser,
		logger:       logger,
	}
}

// GetThresholds returns the acting user's thresholds
func (h *SettingsHandler) GetThresholds(w http.ResponseWriter, r *http.Request) {
	thresholds, err := h.settingsCtrl.GetThresholds(userID(r, h.defaultUser))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, thresholds)
}

// UpdateThresholds validates and persists new thresholds
func (h *SettingsHandler) UpdateThresholds(w http.ResponseWriter, r *http.Request) {
	var thresholds models.Thresholds
	if err := decodeJSON(r, &thresholds); err != nil {
		respondError(w, h.logger, err)
		return
	}

	updated, err := h.settingsCtrl.UpdateThresholds(userID(r, h.defaultUser), thresholds)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}
