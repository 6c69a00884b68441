package controllers

import (
	"github.com/janitarr/janitarr/internal/apperrors"
	"github.com/janitarr/janitarr/internal/models"
	"github.com/sirupsen/logrus"
)

// SettingsController manages the per-user classification thresholds
type SettingsController struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewSettingsController creates a new settings controller
func NewSettingsController(db *models.Database, logger *logrus.Logger) *SettingsController {
	return &SettingsController{db: db, logger: logger}
}

// GetThresholds returns the user's thresholds, falling back to defaults
func (c *SettingsController) GetThresholds(userID string) (*models.Thresholds, error) {
	return c.db.GetThresholds(userID)
}

// UpdateThresholds validates and persists new thresholds. Changes take
// effect on the next classification; no re-sync is needed.
func (c *SettingsController) UpdateThresholds(userID string, thresholds models.Thresholds) (*models.Thresholds, error) {
	if thresholds.OldContentMonths <= 0 || thresholds.MinAgeMonths <= 0 {
		return nil, apperrors.New(apperrors.KindValidation, "age thresholds must be positive")
	}
	if thresholds.LargeMovieSizeGB <= 0 || thresholds.LargeSeasonSizeGB <= 0 {
		return nil, apperrors.New(apperrors.KindValidation, "size thresholds must be positive")
	}

	thresholds.UserID = userID
	if err := c.db.SaveThresholds(&thresholds); err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"user":           userID,
		"old_months":     thresholds.OldContentMonths,
		"min_age_months": thresholds.MinAgeMonths,
		"movie_size_gb":  thresholds.LargeMovieSizeGB,
		"season_size_gb": thresholds.LargeSeasonSizeGB,
	}).Info("Updated thresholds")

	return &thresholds, nil
}
