package models

import "time"

// Document is the metadata row for one uploaded PDF. It is created once the
// file is stored and its chunks are indexed, and never mutated afterwards.
type Document struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	Filename         string    `gorm:"not null;size:512" json:"filename"`
	OriginalFilename string    `gorm:"not null;size:512" json:"original_filename"`
	UploadDate       time.Time `gorm:"index;not null" json:"upload_date"`
	FilePath         string    `gorm:"not null;size:1024" json:"file_path"`
}

// TableName keeps the table name stable regardless of gorm's pluralization.
func (Document) TableName() string { return "documents" }
