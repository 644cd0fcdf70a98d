package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/brewlog/internal/apperror"
	"github.com/sakif/brewlog/internal/metrics"
	"github.com/sakif/brewlog/internal/model"
	"github.com/sakif/brewlog/internal/repository"
)

// Publish messages shown to the user.
const (
	MsgPublished        = "发布成功"
	MsgPublishedUpdated = "发布成功（已更新）"
	MsgMissingBeanData  = "缺少豆单数据"
	MsgMissingOpenID    = "未获取到用户 OpenID"
	MsgMissingBeanID    = "缺少记录 ID，请先保存记录"
)

// DefaultUserName stands in for a publisher who has no display name.
const DefaultUserName = "匿名用户"

// PublishService copies local records into the shared feed. Republishing the
// same (beanId, userId) updates the existing feed entry instead of adding a
// second one.
type PublishService struct {
	repo   repository.PublishedRecordRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewPublishService(repo repository.PublishedRecordRepository, logger *slog.Logger) *PublishService {
	return &PublishService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// PublishResult reports where the record landed.
type PublishResult struct {
	RecordID string   `json:"recordId"`
	Updated  bool     `json:"updated"`
	Message  string   `json:"message"`
	Warnings []string `json:"warnings,omitempty"`
}

// Publish upserts in under userID, the openid of the caller.
func (s *PublishService) Publish(ctx context.Context, userID string, in *model.PublishInput) (*PublishResult, error) {
	result, err := s.publish(ctx, userID, in)
	metrics.ObservePublish(result != nil && result.Updated, err)
	return result, err
}

func (s *PublishService) publish(ctx context.Context, userID string, in *model.PublishInput) (*PublishResult, error) {
	if in == nil {
		return nil, apperror.MissingRecord(MsgMissingBeanData)
	}
	if userID == "" {
		return nil, apperror.Unauthenticated(MsgMissingOpenID)
	}

	now := s.now().UTC()
	rec, warnings := Project(in, userID, now)
	if rec.BeanID == "" {
		return nil, apperror.MissingRecord(MsgMissingBeanID)
	}

	existing, err := s.repo.FindByNaturalKey(ctx, rec.BeanID, rec.UserID)
	switch {
	case err == nil:
		return s.update(ctx, existing, rec, warnings)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/publish: looking up %s: %w", rec.BeanID, err)
	}

	if err := s.repo.CreatePublished(ctx, rec); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			return nil, fmt.Errorf("service/publish: inserting %s: %w", rec.BeanID, err)
		}
		// A concurrent publish of the same key won the insert.
		existing, findErr := s.repo.FindByNaturalKey(ctx, rec.BeanID, rec.UserID)
		if findErr != nil {
			return nil, fmt.Errorf("service/publish: re-reading %s after conflict: %w", rec.BeanID, findErr)
		}
		return s.update(ctx, existing, rec, warnings)
	}

	s.logger.Info("record published",
		slog.String("bean_id", rec.BeanID),
		slog.String("user_id", rec.UserID),
		slog.String("record_id", rec.ID),
		slog.Bool("updated", false),
	)
	return &PublishResult{RecordID: rec.ID, Message: MsgPublished, Warnings: warnings}, nil
}

// update overwrites existing with rec, keeping the document id.
func (s *PublishService) update(ctx context.Context, existing, rec *model.PublishedRecord, warnings []string) (*PublishResult, error) {
	rec.ID = existing.ID
	if err := s.repo.UpdatePublished(ctx, rec); err != nil {
		return nil, fmt.Errorf("service/publish: updating %s: %w", rec.ID, err)
	}

	s.logger.Info("record published",
		slog.String("bean_id", rec.BeanID),
		slog.String("user_id", rec.UserID),
		slog.String("record_id", rec.ID),
		slog.Bool("updated", true),
	)
	return &PublishResult{RecordID: rec.ID, Updated: true, Message: MsgPublishedUpdated, Warnings: warnings}, nil
}

// Project maps a publish payload onto a feed entry owned by userID. Every
// optional field is defaulted; publishTime is now and createTime falls back
// to now. The returned warnings list substituted values the client should
// know about.
func Project(in *model.PublishInput, userID string, now time.Time) (*model.PublishedRecord, []string) {
	var warnings []string

	userName := strings.TrimSpace(in.UserName)
	if userName == "" {
		userName = DefaultUserName
		warnings = append(warnings, "userName missing, published as "+DefaultUserName)
	}

	beanID := strings.TrimSpace(in.BeanID)
	if beanID == "" {
		beanID = strings.TrimSpace(in.ID)
	}

	remarks := in.Remarks
	if remarks == "" {
		remarks = in.Notes
	}

	rating := 0.0
	if in.Rating != nil {
		rating = *in.Rating
	}

	flavorNotes := in.FlavorNotes
	if flavorNotes == nil {
		flavorNotes = []string{}
	}

	createTime := now
	if in.CreateTime != nil && !in.CreateTime.IsZero() {
		createTime = in.CreateTime.UTC()
	}

	return &model.PublishedRecord{
		BeanID:        beanID,
		UserID:        userID,
		UserName:      userName,
		UserAvatar:    in.UserAvatar,
		BeanName:      in.BeanName,
		Brand:         in.Brand,
		Type:          projectType(in.Type),
		RoastLevel:    in.RoastLevel,
		Origin:        in.Origin,
		Altitude:      in.Altitude,
		ProcessMethod: in.ProcessMethod,
		RoastDate:     in.RoastDate,
		PricePer100g:  in.PricePer100g,
		FlavorNotes:   flavorNotes,
		Rating:        rating,
		Remarks:       remarks,
		BrewParams:    model.ObjectOrEmpty(in.BrewParams),
		ExtractParams: model.ObjectOrEmpty(in.ExtractParams),
		FlavorScores:  model.ObjectOrEmpty(in.FlavorScores),
		Equipment:     model.ObjectOrEmpty(in.Equipment),
		CreateTime:    createTime,
		PublishTime:   now,
	}, warnings
}

// projectType maps the record type onto the feed vocabulary. Only a
// pour-over reads as "Pour Over"; anything else is an espresso.
func projectType(t string) model.FeedType {
	switch strings.TrimSpace(t) {
	case string(model.RecordTypePourOver), string(model.FeedTypePourOver):
		return model.FeedTypePourOver
	}
	return model.FeedTypeEspresso
}
