package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/brewlog/internal/apperror"
	"github.com/sakif/brewlog/internal/metrics"
	"github.com/sakif/brewlog/internal/model"
	"github.com/sakif/brewlog/internal/repository"
)

const (
	DefaultPage        = 1
	DefaultPageSize    = 10
	DefaultMaxPageSize = 50

	// MaxPage bounds the requested page so the row offset stays far from
	// integer overflow at any page size.
	MaxPage = 100_000
)

// Discover filter types accepted from clients.
const (
	FilterAll      = "all"
	FilterPourOver = "pourOver"
	FilterEspresso = "espresso"
)

// MsgDiscoverFailed is reported when the feed cannot be read.
const MsgDiscoverFailed = "获取列表失败"

// RatingFilter is an inclusive rating window. Either end may be nil.
type RatingFilter struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// DiscoverQuery is the getDiscoverList request.
type DiscoverQuery struct {
	Page          int           `json:"page"`
	PageSize      int           `json:"pageSize"`
	FilterType    string        `json:"filterType"`
	RatingFilter  *RatingFilter `json:"ratingFilter"`
	SearchKeyword string        `json:"searchKeyword"`
}

// DiscoverPage is one page of the feed.
//
// HasMore is true whenever the page came back full. A feed whose size is
// an exact multiple of the page size therefore reports one empty page
// at the end. Total is the number of items on this page, not in the feed.
type DiscoverPage struct {
	Data     []model.PublishedRecord `json:"data"`
	HasMore  bool                    `json:"hasMore"`
	Page     int                     `json:"page"`
	PageSize int                     `json:"pageSize"`
	Total    int                     `json:"total"`
}

// DiscoverService reads the shared feed.
type DiscoverService struct {
	repo        repository.PublishedRecordRepository
	maxPageSize int
	logger      *slog.Logger
}

// NewDiscoverService caps page sizes at maxPageSize; zero or less means
// DefaultMaxPageSize.
func NewDiscoverService(repo repository.PublishedRecordRepository, maxPageSize int, logger *slog.Logger) *DiscoverService {
	if maxPageSize <= 0 {
		maxPageSize = DefaultMaxPageSize
	}
	return &DiscoverService{
		repo:        repo,
		maxPageSize: maxPageSize,
		logger:      logger,
	}
}

// List returns one page, newest publish first. Type and rating filters
// combine with AND; the keyword matches bean name or brand and narrows the
// result further.
func (s *DiscoverService) List(ctx context.Context, q DiscoverQuery) (*DiscoverPage, error) {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > s.maxPageSize {
		q.PageSize = s.maxPageSize
	}
	if q.Page > MaxPage {
		return nil, apperror.ValidationFailed("page", fmt.Sprintf("page must not exceed %d", MaxPage))
	}

	feedType, err := parseFilterType(q.FilterType)
	if err != nil {
		return nil, err
	}

	fq := repository.FeedQuery{
		Type:    feedType,
		Keyword: strings.TrimSpace(q.SearchKeyword),
		ListOptions: repository.ListOptions{
			Limit:  q.PageSize,
			Offset: (q.Page - 1) * q.PageSize,
		},
	}
	if q.RatingFilter != nil && (q.RatingFilter.Min != nil || q.RatingFilter.Max != nil) {
		if q.RatingFilter.Min != nil && q.RatingFilter.Max != nil && *q.RatingFilter.Min > *q.RatingFilter.Max {
			return nil, apperror.ValidationFailed("ratingFilter", "ratingFilter min must not exceed max")
		}
		fq.Rating = &repository.RatingRange{Min: q.RatingFilter.Min, Max: q.RatingFilter.Max}
	}

	records, err := s.repo.ListFeed(ctx, fq)
	if err != nil {
		s.logger.Error("listing feed failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/discover: %s: %w", MsgDiscoverFailed, err)
	}

	metrics.ObserveDiscover(q.FilterType, len(records))
	s.logger.Debug("feed page served",
		slog.Int("page", q.Page),
		slog.Int("page_size", q.PageSize),
		slog.Int("items", len(records)),
	)

	return &DiscoverPage{
		Data:     records,
		HasMore:  len(records) == q.PageSize,
		Page:     q.Page,
		PageSize: q.PageSize,
		Total:    len(records),
	}, nil
}

func parseFilterType(s string) (model.FeedType, error) {
	switch strings.TrimSpace(s) {
	case "", FilterAll:
		return "", nil
	case FilterPourOver, string(model.FeedTypePourOver):
		return model.FeedTypePourOver, nil
	case FilterEspresso, string(model.FeedTypeEspresso):
		return model.FeedTypeEspresso, nil
	}
	return "", apperror.ValidationFailed("filterType",
		fmt.Sprintf("filterType must be one of %s, %s, %s", FilterAll, FilterPourOver, FilterEspresso))
}
