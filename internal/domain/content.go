// Package domain contains core business types and interfaces.
//
// This file defines the Content domain type: a photo, video, or message
// stored inside a vault. Photos live in one of four fixed albums.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ContentType identifies the kind of a content item.
type ContentType string

const (
	ContentTypePhoto   ContentType = "photo"
	ContentTypeVideo   ContentType = "video"
	ContentTypeMessage ContentType = "message"
)

// String returns the string representation of the type.
func (t ContentType) String() string {
	return string(t)
}

// IsValid returns true if the type is a recognized value.
func (t ContentType) IsValid() bool {
	switch t {
	case ContentTypePhoto, ContentTypeVideo, ContentTypeMessage:
		return true
	}
	return false
}

// HasFile reports whether items of this type carry a file reference.
// Messages are text only.
func (t ContentType) HasFile() bool {
	return t == ContentTypePhoto || t == ContentTypeVideo
}

// MaxFileBytes returns the file-size ceiling for the type, or 0 for types
// that carry no file.
func (t ContentType) MaxFileBytes() int64 {
	switch t {
	case ContentTypePhoto:
		return PhotoFileMaxBytes
	case ContentTypeVideo:
		return VideoFileMaxBytes
	}
	return 0
}

// ValidAlbum reports whether n is a valid album number.
func ValidAlbum(n int) bool {
	return n >= 1 && n <= AlbumCount
}

// Content represents one item stored in a vault.
//
// Order is assigned at admission as the current count within the item's
// scope (album for photos, vault-wide per type otherwise). Deleting an item
// does not renumber survivors, so order values are not guaranteed
// contiguous after deletions.
type Content struct {
	ID          uuid.UUID
	VaultID     uuid.UUID
	Type        ContentType
	AlbumNumber int // photos only, 1..AlbumCount; 0 otherwise
	Order       int
	Title       string
	Body        string
	FileKey     string // opaque blob reference; empty for messages and pending reservations
	SizeBytes   int64
	Pending     bool // reservation placed, file transfer not yet committed
	DeliverAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
