package model

import "time"

// QueryLog records one answered question. Rows are written asynchronously
// by the persist worker, so a lost log entry never fails a query.
type QueryLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	DocumentID uint      `gorm:"index" json:"document_id"`
	IndexName  string    `gorm:"size:64;not null" json:"index_name"`
	Question   string    `gorm:"type:text;not null" json:"question"`
	Answer     string    `gorm:"type:text;not null" json:"answer"`
	CreatedAt  time.Time `json:"created_at"`
}
