package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/riftarena/rift-backend/internal/engine"
)

// conflictRetries bounds how often an optimistic write is retried before the
// conflict surfaces to the caller as a transient failure.
const conflictRetries = 4

type queueEntryRow struct {
	PlayerID string `gorm:"primaryKey"`
	Name     string
	Role     string `gorm:"index"`
	Rating   int
	Region   string
	JoinedAt time.Time
}

func (queueEntryRow) TableName() string { return "queue_entries" }

type draftRow struct {
	ID        string `gorm:"primaryKey"`
	Status    string `gorm:"index"`
	Version   int64
	Data      []byte `gorm:"type:jsonb"`
	CreatedAt time.Time
}

func (draftRow) TableName() string { return "draft_sessions" }

type ratingRow struct {
	PlayerID       string `gorm:"primaryKey"`
	Name           string
	Rating         int `gorm:"index"`
	PlacementGames int
	Placed         bool `gorm:"index"`
	Games          int
	Wins           int
	Losses         int
	PeakRating     int
	History        []byte `gorm:"type:jsonb"`
	Version        int64
}

func (ratingRow) TableName() string { return "player_ratings" }

type matchRow struct {
	ID        string `gorm:"primaryKey"`
	Processed bool
	Data      []byte `gorm:"type:jsonb"`
	CreatedAt time.Time
}

func (matchRow) TableName() string { return "match_records" }

// Gorm is the postgres-backed Store.
type Gorm struct {
	db *gorm.DB
}

var _ Store = (*Gorm)(nil)

// Open connects to postgres and migrates the schema.
func Open(dsn string) (*Gorm, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&queueEntryRow{}, &draftRow{}, &ratingRow{}, &matchRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Gorm{db: db}, nil
}

func NewGorm(db *gorm.DB) *Gorm { return &Gorm{db: db} }

func (g *Gorm) GetQueueEntry(ctx context.Context, playerID string) (*QueueEntry, error) {
	var row queueEntryRow
	err := g.db.WithContext(ctx).First(&row, "player_id = ?", playerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e := toQueueEntry(row)
	return &e, nil
}

func (g *Gorm) ListQueueEntries(ctx context.Context) ([]QueueEntry, error) {
	var rows []queueEntryRow
	if err := g.db.WithContext(ctx).Order("joined_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]QueueEntry, len(rows))
	for i, row := range rows {
		entries[i] = toQueueEntry(row)
	}
	return entries, nil
}

func (g *Gorm) AddQueueEntry(ctx context.Context, e QueueEntry) error {
	row := queueEntryRow{
		PlayerID: e.PlayerID, Name: e.Name, Role: string(e.Role),
		Rating: e.Rating, Region: e.Region, JoinedAt: e.JoinedAt,
	}
	err := g.db.WithContext(ctx).Create(&row).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrExists
	}
	return err
}

func (g *Gorm) DeleteQueueEntry(ctx context.Context, playerID string) error {
	res := g.db.WithContext(ctx).Delete(&queueEntryRow{}, "player_id = ?", playerID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *Gorm) FormMatch(ctx context.Context, playerIDs []string, session engine.Session) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&queueEntryRow{}, "player_id IN ?", playerIDs)
		if res.Error != nil {
			return res.Error
		}
		// Someone raced a leave between the read and this transaction; the
		// match is off, nothing is persisted.
		if res.RowsAffected != int64(len(playerIDs)) {
			return ErrConflict
		}
		row, err := toDraftRow(session, 1)
		if err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
}

func (g *Gorm) GetDraft(ctx context.Context, id string) (engine.Session, error) {
	var row draftRow
	err := g.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return engine.Session{}, ErrNotFound
	}
	if err != nil {
		return engine.Session{}, err
	}
	return toSession(row)
}

func (g *Gorm) ListActiveDrafts(ctx context.Context) ([]engine.Session, error) {
	var rows []draftRow
	err := g.db.WithContext(ctx).
		Where("status IN ?", []string{
			string(engine.StatusWaiting), string(engine.StatusBanning), string(engine.StatusPicking),
		}).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	sessions := make([]engine.Session, 0, len(rows))
	for _, row := range rows {
		s, err := toSession(row)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func (g *Gorm) ActiveDraftForPlayer(ctx context.Context, playerID string) (*engine.Session, error) {
	sessions, err := g.ListActiveDrafts(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range sessions {
		if engine.HasPlayer(s, playerID) {
			return &s, nil
		}
	}
	return nil, nil
}

func (g *Gorm) UpdateDraft(ctx context.Context, id string, mutate func(engine.Session) (engine.Session, error)) (engine.Session, error) {
	var out engine.Session
	backoff := retry.WithMaxRetries(conflictRetries, retry.NewConstant(25*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var row draftRow
		if err := g.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		current, err := toSession(row)
		if err != nil {
			return err
		}

		next, err := mutate(current)
		if err != nil {
			return err
		}

		data, err := json.Marshal(next)
		if err != nil {
			return err
		}
		res := g.db.WithContext(ctx).Model(&draftRow{}).
			Where("id = ? AND version = ?", id, row.Version).
			Updates(map[string]any{
				"status":  string(next.Status),
				"version": row.Version + 1,
				"data":    data,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race to a concurrent transition; re-read and retry.
			return retry.RetryableError(ErrConflict)
		}
		out = next
		return nil
	})
	return out, err
}

func (g *Gorm) GetRating(ctx context.Context, playerID string) (*PlayerRating, error) {
	var row ratingRow
	err := g.db.WithContext(ctx).First(&row, "player_id = ?", playerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toPlayerRating(row)
}

func (g *Gorm) Leaderboard(ctx context.Context, limit int) ([]PlayerRating, error) {
	var rows []ratingRow
	err := g.db.WithContext(ctx).
		Where("placed = ?", true).
		Order("rating desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]PlayerRating, 0, len(rows))
	for _, row := range rows {
		pr, err := toPlayerRating(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *pr)
	}
	return out, nil
}

func (g *Gorm) GetMatch(ctx context.Context, id string) (*MatchRecord, error) {
	var row matchRow
	err := g.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec MatchRecord
	if err := json.Unmarshal(row.Data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (g *Gorm) RecordMatch(ctx context.Context, rec MatchRecord, ratings []PlayerRating) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&matchRow{
			ID: rec.ID, Processed: rec.Processed, Data: data, CreatedAt: rec.CreatedAt,
		}).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrExists
			}
			return err
		}

		for _, pr := range ratings {
			history, err := json.Marshal(pr.History)
			if err != nil {
				return err
			}
			row := ratingRow{
				PlayerID: pr.PlayerID, Name: pr.Name, Rating: pr.Rating,
				PlacementGames: pr.PlacementGames, Placed: pr.Placed,
				Games: pr.Games, Wins: pr.Wins, Losses: pr.Losses,
				PeakRating: pr.PeakRating, History: history, Version: pr.Version + 1,
			}
			if pr.Version == 0 {
				if err := tx.Create(&row).Error; err != nil {
					if errors.Is(err, gorm.ErrDuplicatedKey) {
						return ErrConflict
					}
					return err
				}
				continue
			}
			res := tx.Model(&ratingRow{}).
				Where("player_id = ? AND version = ?", pr.PlayerID, pr.Version).
				Select("*").Updates(&row)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrConflict
			}
		}
		return nil
	})
}

func toQueueEntry(row queueEntryRow) QueueEntry {
	return QueueEntry{
		PlayerID: row.PlayerID, Name: row.Name, Role: engine.Role(row.Role),
		Rating: row.Rating, Region: row.Region, JoinedAt: row.JoinedAt,
	}
}

func toDraftRow(s engine.Session, version int64) (draftRow, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return draftRow{}, err
	}
	return draftRow{
		ID: s.ID, Status: string(s.Status), Version: version,
		Data: data, CreatedAt: s.CreatedAt,
	}, nil
}

func toSession(row draftRow) (engine.Session, error) {
	var s engine.Session
	if err := json.Unmarshal(row.Data, &s); err != nil {
		return engine.Session{}, err
	}
	return s, nil
}

func toPlayerRating(row ratingRow) (*PlayerRating, error) {
	pr := PlayerRating{
		PlayerID: row.PlayerID, Name: row.Name, Rating: row.Rating,
		PlacementGames: row.PlacementGames, Placed: row.Placed,
		Games: row.Games, Wins: row.Wins, Losses: row.Losses,
		PeakRating: row.PeakRating, Version: row.Version,
	}
	if len(row.History) > 0 {
		if err := json.Unmarshal(row.History, &pr.History); err != nil {
			return nil, err
		}
	}
	return &pr, nil
}
