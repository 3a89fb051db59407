package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SourceType string

const (
	SourceTypeAction SourceType = "action"
	SourceTypeHabit  SourceType = "habit"
)

// PointEvent is one ledger entry. The id is content-derived, never random:
// re-deriving the same transition upserts the same row instead of inserting
// a duplicate. At most one active event exists per (source_type, source_id).
type PointEvent struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;index:idx_point_user_date,priority:1;not null" json:"user_id"`
	SourceType   SourceType `gorm:"size:10;index:idx_point_source,priority:1;not null" json:"source_type"`
	SourceID     string     `gorm:"size:100;index:idx_point_source,priority:2;not null" json:"source_id"`
	PillarIDs    PillarSet  `gorm:"type:text;serializer:json" json:"pillar_ids"`
	Points       int        `gorm:"not null" json:"points"`
	BonusGranted bool       `gorm:"default:false" json:"bonus_granted"`
	Active       bool       `gorm:"default:true;index" json:"active"`
	CreatedAt    time.Time  `gorm:"autoCreateTime;index:idx_point_user_date,priority:2" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Namespace for deterministic point-event ids (uuid v5 over source identity).
var pointEventNamespace = uuid.MustParse("9f2c1d4e-3b7a-4c8d-9e60-5a1f2b3c4d5e")

// PointEventID derives the ledger id for a source. Concurrent duplicate
// awards collapse onto this id at the database level.
func PointEventID(sourceType SourceType, sourceID string) uuid.UUID {
	return uuid.NewSHA1(pointEventNamespace, []byte(string(sourceType)+":"+sourceID))
}

// HabitSourceID keys one habit completion per date.
func HabitSourceID(habitID uuid.UUID, occurredDate time.Time) string {
	return fmt.Sprintf("%s:%s", habitID, DateOnly(occurredDate).Format("2006-01-02"))
}
