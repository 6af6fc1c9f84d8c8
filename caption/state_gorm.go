package caption

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CaptionKeyState is a quarantined key, identified by its fingerprint
type CaptionKeyState struct {
	KeyHash     string `gorm:"primaryKey;type:varchar(128)"`
	UsableAfter int64  `gorm:"not null"` // unix milliseconds
}

// CaptionCursor holds the round-robin position (single row)
type CaptionCursor struct {
	ID       uint8 `gorm:"primaryKey;autoIncrement:false"`
	Position int   `gorm:"not null"`
}

const cursorRowID = 1

// GormStateStore persists the key pool state in the application database
type GormStateStore struct {
	db *gorm.DB
}

func NewGormStateStore(db *gorm.DB) (*GormStateStore, error) {
	if err := db.AutoMigrate(&CaptionKeyState{}, &CaptionCursor{}); err != nil {
		return nil, err
	}
	return &GormStateStore{db: db}, nil
}

func (s *GormStateStore) Load(ctx context.Context) (State, error) {
	state := State{Quarantine: map[string]time.Time{}}
	var rows []CaptionKeyState
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return state, err
	}
	for _, r := range rows {
		state.Quarantine[r.KeyHash] = time.UnixMilli(r.UsableAfter)
	}
	cursor := CaptionCursor{}
	result := s.db.WithContext(ctx).Limit(1).Find(&cursor, cursorRowID)
	if result.Error != nil {
		return state, result.Error
	}
	state.Cursor = cursor.Position
	return state, nil
}

func (s *GormStateStore) Save(ctx context.Context, state State) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&CaptionKeyState{}).Error; err != nil {
			return err
		}
		if len(state.Quarantine) > 0 {
			rows := make([]CaptionKeyState, 0, len(state.Quarantine))
			for hash, until := range state.Quarantine {
				rows = append(rows, CaptionKeyState{KeyHash: hash, UsableAfter: until.UnixMilli()})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"position"}),
		}).Create(&CaptionCursor{ID: cursorRowID, Position: state.Cursor}).Error
	})
}
