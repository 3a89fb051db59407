package bootstrap

import (
	"log"

	"gorm.io/gorm"

	"tandera.com/daypillar/internal/entity"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Pillar{},
		&entity.Action{},
		&entity.Habit{},
		&entity.HabitLog{},
		&entity.Reflection{},
		&entity.PointEvent{},
	)
}

// SeedDemo creates the demo user and a starter pillar set. Development only;
// idempotent across restarts.
func SeedDemo(db *gorm.DB) error {
	var count int64
	if err := db.Model(&entity.User{}).
		Where("username = ?", "demo").
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("Demo user already exists, skipping seed")
		return nil
	}

	demoUser := entity.User{
		Username:    "demo",
		DisplayName: "Demo User",
		Timezone:    "UTC",
	}
	if err := db.Create(&demoUser).Error; err != nil {
		return err
	}

	defaultPillars := []entity.Pillar{
		{UserID: demoUser.ID, Name: "Health", Slug: "health", Color: "#4caf50", Position: 0},
		{UserID: demoUser.ID, Name: "Finances", Slug: "finances", Color: "#ffb300", Position: 1},
		{UserID: demoUser.ID, Name: "Learning", Slug: "learning", Color: "#2196f3", Position: 2},
		{UserID: demoUser.ID, Name: "Relationships", Slug: "relationships", Color: "#e91e63", Position: 3},
	}
	for _, pillar := range defaultPillars {
		if err := db.Create(&pillar).Error; err != nil {
			return err
		}
	}

	log.Printf("Seeded demo user %s with %d default pillars", demoUser.ID, len(defaultPillars))
	return nil
}
