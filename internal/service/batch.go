package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/brewlog/internal/apperror"
	"github.com/sakif/brewlog/internal/metrics"
	"github.com/sakif/brewlog/internal/model"
	"github.com/sakif/brewlog/internal/repository"
)

const (
	DefaultBatchSize = 20
	MaxBatchErrors   = 10

	// BatchUserID and BatchUserName attribute imported records that carry
	// no publisher of their own.
	BatchUserID   = "batch_import"
	BatchUserName = "批量导入"
)

// MsgBatchNoRecords is reported when the import has nothing to process.
const MsgBatchNoRecords = "缺少记录数据或数据格式不正确"

// BatchInput is one window of an import. Clients send the whole record list
// every time and advance StartIndex by the previous call's NextIndex.
type BatchInput struct {
	Records    []model.Payload `json:"records"`
	BatchSize  int             `json:"batchSize"`
	StartIndex int             `json:"startIndex"`
}

// BatchError describes one record that could not be stored.
type BatchError struct {
	BeanID   string `json:"beanId"`
	BeanName string `json:"beanName"`
	Error    string `json:"error"`
}

// BatchResult is the progress after one window. NextIndex is nil once the
// whole list has been processed.
type BatchResult struct {
	Total        int          `json:"total"`
	Processed    int          `json:"processed"`
	Remaining    int          `json:"remaining"`
	SuccessCount int          `json:"successCount"`
	FailCount    int          `json:"failCount"`
	HasMore      bool         `json:"hasMore"`
	NextIndex    *int         `json:"nextIndex"`
	Errors       []BatchError `json:"errors"`
}

// BatchService imports exported feed records in bounded windows. A record
// whose (beanId, userId) is already in the feed is left untouched and
// counted as a success.
type BatchService struct {
	repo   repository.PublishedRecordRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewBatchService(repo repository.PublishedRecordRepository, logger *slog.Logger) *BatchService {
	return &BatchService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Publish processes in.Records[StartIndex : StartIndex+BatchSize].
func (s *BatchService) Publish(ctx context.Context, in BatchInput) (*BatchResult, error) {
	if len(in.Records) == 0 {
		return nil, apperror.ValidationFailed("records", MsgBatchNoRecords)
	}
	if in.BatchSize <= 0 {
		in.BatchSize = DefaultBatchSize
	}
	if in.StartIndex < 0 {
		in.StartIndex = 0
	}

	start := min(in.StartIndex, len(in.Records))
	end := min(start+in.BatchSize, len(in.Records))
	window := in.Records[start:end]

	s.logger.Info("batch import started",
		slog.Int("total", len(in.Records)),
		slog.Int("start_index", start),
		slog.Int("window", len(window)),
	)

	result := &BatchResult{Total: len(in.Records), Errors: []BatchError{}}
	inserted, skipped := 0, 0
	now := s.now().UTC()

	for i, raw := range window {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("service/batch: %w", err)
		}

		rec := ConvertBatchRecord(raw, now)
		if rec.BeanID == "" {
			rec.BeanID = fmt.Sprintf("batch_%s_%d", model.NewID(), start+i)
		}

		_, err := s.repo.FindByNaturalKey(ctx, rec.BeanID, rec.UserID)
		if err == nil {
			skipped++
			result.SuccessCount++
			continue
		}
		if errors.Is(err, apperror.ErrNotFound) {
			err = s.repo.CreatePublished(ctx, rec)
			if errors.Is(err, apperror.ErrConflict) {
				// Inserted concurrently by another import; same as existing.
				skipped++
				result.SuccessCount++
				continue
			}
		}
		if err != nil {
			result.FailCount++
			if len(result.Errors) < MaxBatchErrors {
				result.Errors = append(result.Errors, BatchError{BeanID: rec.BeanID, BeanName: rec.BeanName, Error: err.Error()})
			}
			s.logger.Warn("batch record failed",
				slog.String("bean_id", rec.BeanID),
				slog.String("error", err.Error()),
			)
			continue
		}
		inserted++
		result.SuccessCount++
	}

	next := start + len(window)
	result.Processed = next
	result.Remaining = len(in.Records) - next
	result.HasMore = next < len(in.Records)
	if result.HasMore {
		result.NextIndex = &next
	}

	metrics.ObserveBatch(inserted, skipped, result.FailCount)
	s.logger.Info("batch import window done",
		slog.Int("inserted", inserted),
		slog.Int("skipped", skipped),
		slog.Int("failed", result.FailCount),
		slog.Bool("has_more", result.HasMore),
	)
	return result, nil
}

// ConvertBatchRecord maps one exported record onto a feed entry. It never
// fails; unusable values fall back to defaults. The bean id is left empty
// when the record has none.
func ConvertBatchRecord(p model.Payload, now time.Time) *model.PublishedRecord {
	if p == nil {
		p = model.Payload{}
	}

	createTime := now
	if t, ok := p.Time("createTime"); ok {
		createTime = t.UTC()
	}
	publishTime := now
	if t, ok := p.Time("publishTime"); ok {
		publishTime = t.UTC()
	}

	userID := p.String("userId")
	if userID == "" {
		userID = BatchUserID
	}
	userName := p.String("userName")
	if userName == "" {
		userName = BatchUserName
	}

	var price *float64
	if f := p.Number("pricePer100g"); f != nil && *f >= 0 {
		price = f
	}

	return &model.PublishedRecord{
		BeanID:        p.String("beanId"),
		UserID:        userID,
		UserName:      userName,
		UserAvatar:    p.String("userAvatar"),
		BeanName:      p.String("beanName"),
		Brand:         p.String("brand"),
		Type:          model.ParseFeedType(p.String("type")),
		RoastLevel:    p.String("roastLevel"),
		Origin:        p.String("origin"),
		Altitude:      p.String("altitude"),
		ProcessMethod: p.String("processMethod"),
		RoastDate:     p.String("roastDate"),
		PricePer100g:  price,
		FlavorNotes:   p.Strings("flavorNotes"),
		Rating:        batchRating(p["rating"]),
		Remarks:       p.FirstString("remarks", "notes"),
		BrewParams:    objectJSON(p, "brewParams"),
		ExtractParams: objectJSON(p, "extractParams"),
		FlavorScores:  objectJSON(p, "flavorScores"),
		Equipment:     objectJSON(p, "equipment"),
		CreateTime:    createTime,
		PublishTime:   publishTime,
	}
}

// batchRating reads ratings from exports that wrote them as "4-" or "4.5+".
// Everything except digits and dots is dropped and the longest numeric
// prefix is parsed.
func batchRating(v any) float64 {
	switch r := v.(type) {
	case float64:
		return r
	case string:
		var b strings.Builder
		for _, c := range r {
			if (c >= '0' && c <= '9') || c == '.' {
				b.WriteRune(c)
			}
		}
		return parseNumericPrefix(b.String())
	}
	return 0
}

func parseNumericPrefix(s string) float64 {
	end, seenDot := 0, false
	for end < len(s) {
		if s[end] == '.' {
			if seenDot {
				break
			}
			seenDot = true
		}
		end++
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		return 0
	}
	return f
}

func objectJSON(p model.Payload, key string) json.RawMessage {
	obj := p.Object(key)
	if len(obj) == 0 {
		return model.EmptyObject
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return model.EmptyObject
	}
	return data
}
