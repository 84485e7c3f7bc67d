package store

import "time"

// Media is one accepted photo.
type Media struct {
	ID         uint       `gorm:"primaryKey"`
	SourceID   string     `gorm:"type:varchar(1024);index;not null"`
	Path       string     `gorm:"type:varchar(2048);not null"`
	CapturedAt *time.Time `gorm:"index"`
	Latitude   *float64
	Longitude  *float64
	Event      string    `gorm:"type:varchar(255);index;not null"`
	Images     []Image   `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (Media) TableName() string {
	return "media"
}

// Image is the stored thumbnail of a Media row.
type Image struct {
	ID       uint   `gorm:"primaryKey"`
	MediaID  uint   `gorm:"index;not null"`
	PublicID string `gorm:"type:varchar(1024);not null"`
	Format   string `gorm:"type:varchar(16);not null"`
	Version  string `gorm:"type:varchar(64);not null"`
}

func (Image) TableName() string {
	return "images"
}
