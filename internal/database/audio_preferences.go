package database

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetAudioPreference returns the stored language for movieID, or "" when
// none is stored.
func GetAudioPreference(db *gorm.DB, movieID string) (string, error) {
	var pref AudioPreference
	err := db.Where("movie_id = ?", movieID).First(&pref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return pref.Language, nil
}

// SaveAudioPreference upserts the language for movieID. An empty language
// clears the preference.
func SaveAudioPreference(db *gorm.DB, movieID, language string) error {
	if movieID == "" {
		return errors.New("audio preference needs a movie id")
	}
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		return ClearAudioPreference(db, movieID)
	}

	pref := AudioPreference{
		MovieID:   movieID,
		Language:  language,
		UpdatedAt: time.Now(),
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "movie_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"language", "updated_at"}),
	}).Create(&pref).Error
}

// ClearAudioPreference removes the preference for movieID. It is idempotent.
func ClearAudioPreference(db *gorm.DB, movieID string) error {
	return db.Where("movie_id = ?", movieID).Delete(&AudioPreference{}).Error
}
