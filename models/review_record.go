package models

import "time"

// ReviewRecord is one moderator decision in the review log.
type ReviewRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	GuildID     string    `gorm:"size:32;index" json:"guild_id"`
	ArtifactKey string    `gorm:"size:128;index;not null" json:"artifact_key"`
	Action      string    `gorm:"size:16;not null" json:"action"`
	ModeratorID string    `gorm:"size:32;not null" json:"moderator_id"`
	SubmitterID string    `gorm:"size:32" json:"submitter_id"`
	PillowName  string    `gorm:"size:255" json:"pillow_name"`
	PillowType  string    `gorm:"size:64" json:"pillow_type"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}
