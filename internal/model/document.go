package model

import "time"

// Document is one uploaded PDF. Path points at the stored file and must
// stay valid for as long as the row exists; Filename is the display name
// the user uploaded under.
type Document struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Filename  string    `gorm:"size:256;not null" json:"filename"`
	Path      string    `gorm:"size:512;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
