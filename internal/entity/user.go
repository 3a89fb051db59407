package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username    string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	DisplayName string    `gorm:"size:100" json:"display_name"`
	Timezone    string    `gorm:"size:64;default:UTC" json:"timezone"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID, err = uuid.NewV7()
	}
	return
}
