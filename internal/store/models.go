package store

import "time"

// ModelSnapshot stores a trained classifier pipeline as an opaque JSON
// payload, keyed by name so future model variants can coexist.
type ModelSnapshot struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"uniqueIndex;size:64"`
	Payload   []byte    `gorm:"type:blob"`
	TrainedAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
