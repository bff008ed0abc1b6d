package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/justchokingaround/playcore/internal/database"
)

// DefaultCompletedThreshold is the progress fraction at which a watch counts
// as completed.
const DefaultCompletedThreshold = 0.9

var errNoDB = errors.New("database connection is nil")

// Service stores watch progress and per-movie audio preferences. It backs
// the core's progress loader and audio preference store.
type Service struct {
	db        *gorm.DB
	completed float64
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCompletedThreshold overrides DefaultCompletedThreshold.
func WithCompletedThreshold(fraction float64) Option {
	return func(s *Service) {
		if fraction > 0 && fraction <= 1 {
			s.completed = fraction
		}
	}
}

// WithNow overrides the wall clock used for timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// SortOrder defines the sorting order for history items
type SortOrder string

const (
	SortRecentFirst  SortOrder = "recent_first"
	SortOldestFirst  SortOrder = "oldest_first"
	SortTitleAsc     SortOrder = "title_asc"
	SortProgressDesc SortOrder = "progress_desc"
)

// FilterOptions narrows history queries. Zero values match everything.
type FilterOptions struct {
	MovieID     string
	SearchQuery string // substring of the title
	Completed   *bool
	Since       time.Time
	Limit       int
	Offset      int
	SortBy      SortOrder
}

// Entry is one progress report for a session.
type Entry struct {
	SessionID  string
	MovieID    string
	Title      string
	SourceKind string
	Platform   string
	Position   float64
	Duration   float64
	Demoted    bool
}

// Stats summarises the stored history
type Stats struct {
	TotalItems     int64
	TotalWatchTime time.Duration
	CompletedCount int64
	DemotedCount   int64
}

// NewService creates a history service over db
func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{db: db, completed: DefaultCompletedThreshold, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Completed reports whether position is far enough into duration to count
// as a finished watch.
func (s *Service) Completed(position, duration float64) bool {
	return duration > 0 && position/duration >= s.completed
}

// Record upserts the row of e.SessionID. Once a session completes, earlier
// incomplete rows of the movie are dropped so it is no longer resumed.
func (s *Service) Record(ctx context.Context, e Entry) error {
	if s.db == nil {
		return errNoDB
	}
	if e.MovieID == "" || e.SessionID == "" {
		return errors.New("history entry needs a movie and a session id")
	}

	row := database.History{
		SessionID:       e.SessionID,
		MovieID:         e.MovieID,
		Title:           e.Title,
		SourceKind:      e.SourceKind,
		Platform:        e.Platform,
		PositionSeconds: e.Position,
		DurationSeconds: e.Duration,
		Completed:       s.Completed(e.Position, e.Duration),
		Demoted:         e.Demoted,
		WatchedAt:       s.now(),
	}
	if e.Duration > 0 {
		row.ProgressPercent = min(e.Position/e.Duration*100, 100)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing database.History
		err := tx.Where("session_id = ?", e.SessionID).First(&existing).Error
		switch {
		case err == nil:
			row.ID = existing.ID
			// a session never goes back to incomplete
			row.Completed = row.Completed || existing.Completed
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		default:
			return err
		}

		if row.Completed {
			return tx.Where("movie_id = ? AND completed = ? AND id <> ?", e.MovieID, false, row.ID).
				Delete(&database.History{}).Error
		}
		return nil
	})
}

// LoadSavedProgress returns the position of the latest incomplete watch of
// movieID.
func (s *Service) LoadSavedProgress(ctx context.Context, movieID string) (float64, bool, error) {
	if s.db == nil {
		return 0, false, errNoDB
	}

	var row database.History
	err := s.db.WithContext(ctx).
		Where("movie_id = ? AND completed = ?", movieID, false).
		Order("watched_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to load progress: %w", err)
	}
	if row.PositionSeconds <= 0 {
		return 0, false, nil
	}
	return row.PositionSeconds, true, nil
}

// AudioLanguage returns the remembered dubbed language of movieID
func (s *Service) AudioLanguage(ctx context.Context, movieID string) (string, error) {
	if s.db == nil {
		return "", errNoDB
	}
	return database.GetAudioPreference(s.db.WithContext(ctx), movieID)
}

// SetAudioLanguage remembers language for movieID; "" forgets it
func (s *Service) SetAudioLanguage(ctx context.Context, movieID, language string) error {
	if s.db == nil {
		return errNoDB
	}
	return database.SaveAudioPreference(s.db.WithContext(ctx), movieID, language)
}

// GetHistory retrieves history rows with filtering and sorting
func (s *Service) GetHistory(ctx context.Context, filter FilterOptions) ([]database.History, error) {
	if s.db == nil {
		return nil, errNoDB
	}

	query := s.db.WithContext(ctx).Model(&database.History{})
	if filter.MovieID != "" {
		query = query.Where("movie_id = ?", filter.MovieID)
	}
	if filter.SearchQuery != "" {
		query = query.Where("title LIKE ?", "%"+filter.SearchQuery+"%")
	}
	if filter.Completed != nil {
		query = query.Where("completed = ?", *filter.Completed)
	}
	if !filter.Since.IsZero() {
		query = query.Where("watched_at >= ?", filter.Since)
	}

	switch filter.SortBy {
	case SortOldestFirst:
		query = query.Order("watched_at ASC")
	case SortTitleAsc:
		query = query.Order("title ASC")
	case SortProgressDesc:
		query = query.Order("progress_percent DESC")
	default:
		query = query.Order("watched_at DESC")
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []database.History
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	return rows, nil
}

// DeleteByMovieID forgets every watch of movieID
func (s *Service) DeleteByMovieID(ctx context.Context, movieID string) error {
	if s.db == nil {
		return errNoDB
	}
	return s.db.WithContext(ctx).Where("movie_id = ?", movieID).Delete(&database.History{}).Error
}

// GetStats aggregates the stored history
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	db := s.db.WithContext(ctx).Model(&database.History{})

	var stats Stats
	if err := db.Session(&gorm.Session{}).Count(&stats.TotalItems).Error; err != nil {
		return nil, err
	}

	var watched float64
	if err := db.Session(&gorm.Session{}).Select("COALESCE(SUM(position_seconds), 0)").Scan(&watched).Error; err != nil {
		return nil, err
	}
	stats.TotalWatchTime = time.Duration(watched * float64(time.Second))

	if err := db.Session(&gorm.Session{}).Where("completed = ?", true).Count(&stats.CompletedCount).Error; err != nil {
		return nil, err
	}
	if err := db.Session(&gorm.Session{}).Where("demoted = ?", true).Count(&stats.DemotedCount).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

// Cleanup removes incomplete rows not touched for olderThan
func (s *Service) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s.db == nil {
		return 0, errNoDB
	}
	cutoff := s.now().Add(-olderThan)
	res := s.db.WithContext(ctx).
		Where("completed = ? AND watched_at < ?", false, cutoff).
		Delete(&database.History{})
	return res.RowsAffected, res.Error
}
