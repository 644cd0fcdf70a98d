// Package repository declares the storage contracts of the feed server.
// Services depend on these interfaces; internal/repository/sqlite
// implements them.
package repository

import (
	"context"

	"github.com/sakif/brewlog/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// RatingRange bounds a rating filter. Either end may be open; both ends
// are inclusive.
type RatingRange struct {
	Min *float64
	Max *float64
}

// FeedQuery selects a page of the shared feed. Type and Rating combine with
// AND; Keyword matches bean name OR brand, case-insensitively, and is ANDed
// with the rest. Results are newest publish first.
type FeedQuery struct {
	Type    model.FeedType // empty means every type
	Rating  *RatingRange
	Keyword string
	ListOptions
}

// PublishedRecordRepository stores the shared feed.
type PublishedRecordRepository interface {
	// FindByNaturalKey returns apperror.ErrNotFound when (beanID, userID)
	// has never been published.
	FindByNaturalKey(ctx context.Context, beanID, userID string) (*model.PublishedRecord, error)
	// CreatePublished assigns the document id. It returns apperror.ErrConflict
	// when the natural key is already taken.
	CreatePublished(ctx context.Context, rec *model.PublishedRecord) error
	// UpdatePublished rewrites every field except the document id.
	UpdatePublished(ctx context.Context, rec *model.PublishedRecord) error
	ListFeed(ctx context.Context, q FeedQuery) ([]model.PublishedRecord, error)
}

// UserRepository stores the people who have logged in to the feed.
type UserRepository interface {
	// UpsertExternal creates the user on first login and refreshes the
	// provider profile afterwards, keeping ID and CreatedAt stable.
	UpsertExternal(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, id string, profile model.Profile) error
}
