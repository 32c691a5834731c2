package ingest

import (
	"time"

	"gorm.io/datatypes"
)

// Notification mirrors one disclosure event in the relational store. The
// id comes from the source portal and is never generated locally.
type Notification struct {
	ID         int64     `gorm:"primaryKey;autoIncrement:false" json:"notification_id"`
	Title      string    `gorm:"size:500;not null" json:"title"`
	History    string    `gorm:"size:10;index" json:"history"`
	Period     string    `gorm:"size:64" json:"period"`
	ChunkCount int       `gorm:"not null;default:0" json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Notification) TableName() string {
	return "kap_notifications"
}

// ContentChunk is one narrative chunk of a disclosure. Chunk index 0 is
// the title record; body chunks run from 1 to TotalChunks.
type ContentChunk struct {
	ID             uint64    `gorm:"primaryKey" json:"id"`
	NotificationID int64     `gorm:"not null;index:idx_notification_chunk,unique" json:"notification_id"`
	ChunkIndex     int       `gorm:"not null;index:idx_notification_chunk,unique" json:"chunk_index"`
	IsTitle        bool      `gorm:"not null;default:false" json:"is_title"`
	TotalChunks    int       `gorm:"not null;default:0" json:"total_chunks"`
	Content        string    `gorm:"type:text" json:"content"`
	VectorID       string    `gorm:"size:128;not null;uniqueIndex" json:"vector_id"`
	CreatedAt      time.Time `json:"created_at"`
}

func (ContentChunk) TableName() string {
	return "kap_content_chunks"
}

// TableChunk is one row-window of a financial table, stored as a
// serialized record list. Table records carry no title; the sibling
// title-bearing ContentChunk resolves it.
type TableChunk struct {
	ID             uint64         `gorm:"primaryKey" json:"id"`
	NotificationID int64          `gorm:"not null;index:idx_notification_table,unique" json:"notification_id"`
	TableNum       int            `gorm:"not null;index:idx_notification_table,unique" json:"table_num"`
	ChunkIndex     int            `gorm:"not null;index:idx_notification_table,unique" json:"chunk_index"`
	Rows           datatypes.JSON `gorm:"type:json" json:"rows"`
	VectorID       string         `gorm:"size:128;not null;uniqueIndex" json:"vector_id"`
	ArchiveObject  string         `gorm:"size:255" json:"archive_object,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (TableChunk) TableName() string {
	return "kap_table_chunks"
}
