package model

import (
	"time"

	"github.com/google/uuid"
)

// Draft is the row form of a saved wizard snapshot.
// VariantID "" means the draft covers the product as a whole; keeping it
// NOT NULL lets the unique index treat "no variant" as a single key.
type Draft struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Shop      string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_draft_key,priority:1"`
	UserID    string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_draft_key,priority:2"`
	ProductID string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_draft_key,priority:3"`
	VariantID string    `gorm:"type:varchar(128);not null;default:'';uniqueIndex:idx_draft_key,priority:4"`
	Payload   string    `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
