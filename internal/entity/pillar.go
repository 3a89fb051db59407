package entity

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Pillar is a user-defined life area (Health, Finances, ...) used to group
// actions and habits and to roll up points.
type Pillar struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Slug      string    `gorm:"size:100;index" json:"slug"`
	Color     string    `gorm:"size:20" json:"color"`
	Position  int       `gorm:"default:0" json:"position"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (p *Pillar) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID, err = uuid.NewV7()
	}
	return
}

// PillarSet is an unordered set of pillar ids, persisted as a JSON array.
type PillarSet []string

func (s PillarSet) Has(id string) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Equal compares two sets ignoring order and duplicates.
func (s PillarSet) Equal(other PillarSet) bool {
	a := s.sorted()
	b := other.sorted()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Diff returns the elements of s not present in other.
func (s PillarSet) Diff(other PillarSet) PillarSet {
	var out PillarSet
	for _, v := range s {
		if !other.Has(v) && !out.Has(v) {
			out = append(out, v)
		}
	}
	return out
}

func (s PillarSet) sorted() []string {
	seen := make(map[string]struct{}, len(s))
	out := make([]string, 0, len(s))
	for _, v := range s {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
