package database

import (
	"time"

	"gorm.io/gorm"
)

// History is one viewing session of a movie. Incomplete sessions are updated
// in place; the latest incomplete row is the resume point.
type History struct {
	ID              uint      `gorm:"primaryKey"`
	SessionID       string    `gorm:"not null;index"`
	MovieID         string    `gorm:"not null;index"`
	Title           string    `gorm:"not null"`
	SourceKind      string    `gorm:"not null;default:''"` // hosted_mp4, direct_mp4, mobile_mp4, embed
	Platform        string    `gorm:"default:''"`          // embed platform, empty for native sources
	PositionSeconds float64   `gorm:"not null"`
	DurationSeconds float64   `gorm:"not null"`
	ProgressPercent float64   `gorm:"not null"`
	Completed       bool      `gorm:"default:false;index"`
	Demoted         bool      `gorm:"default:false"` // playback fell back to the embed
	WatchedAt       time.Time `gorm:"index;default:CURRENT_TIMESTAMP"`
}

// TableName overrides the table name
func (History) TableName() string {
	return "history"
}

// AudioPreference remembers the dubbed-track language chosen for a movie
type AudioPreference struct {
	ID        uint      `gorm:"primaryKey"`
	MovieID   string    `gorm:"not null;uniqueIndex"`
	Language  string    `gorm:"not null"` // ISO code of the dubbed track
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}

// TableName overrides the table name
func (AudioPreference) TableName() string {
	return "audio_preferences"
}

// Migrate runs database migrations
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&History{},
		&AudioPreference{},
	)
}
