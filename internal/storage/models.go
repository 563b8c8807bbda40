package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// TransformRecord is one served transform. ProfileJSON is the profile the
// transform ran with, stored as an opaque JSON document.
type TransformRecord struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	ArticleID   string    `json:"articleId"`
	Title       string    `json:"title"`
	ChunkCount  int       `json:"chunkCount"`
	TermCount   int       `json:"termCount"`
	Analogies   bool      `json:"analogies"`
	ProfileJSON string    `json:"profileJson"`
}
