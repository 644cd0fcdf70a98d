package local

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/sakif/brewlog/internal/apperror"
	"github.com/sakif/brewlog/internal/model"
	"github.com/sakif/brewlog/internal/store"
)

// InventoryService tracks the beans on a user's shelf and how much of each
// is left.
type InventoryService struct {
	store  store.Store
	userID string
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

func NewInventoryService(st store.Store, userID string, logger *slog.Logger) *InventoryService {
	return &InventoryService{
		store:  st,
		userID: userID,
		logger: logger,
		now:    time.Now,
	}
}

func (s *InventoryService) key() string {
	return store.UserKey(store.PrefixInventory, s.userID)
}

func (s *InventoryService) load(ctx context.Context) ([]model.InventoryBean, error) {
	var beans []model.InventoryBean
	if _, err := s.store.Get(ctx, s.key(), &beans); err != nil {
		return nil, fmt.Errorf("local/inventory: loading: %w", err)
	}
	if beans == nil {
		beans = []model.InventoryBean{}
	}
	return beans, nil
}

func (s *InventoryService) save(ctx context.Context, beans []model.InventoryBean) error {
	if err := s.store.Set(ctx, s.key(), beans); err != nil {
		return fmt.Errorf("local/inventory: saving: %w", err)
	}
	return nil
}

// List returns every bean in stored order.
func (s *InventoryService) List(ctx context.Context) ([]model.InventoryBean, error) {
	return s.load(ctx)
}

// Get returns apperror.ErrNotFound for an unknown id.
func (s *InventoryService) Get(ctx context.Context, id string) (model.InventoryBean, error) {
	beans, err := s.load(ctx)
	if err != nil {
		return model.InventoryBean{}, err
	}
	idx := indexBean(beans, id)
	if idx < 0 {
		return model.InventoryBean{}, apperror.NotFound("bean", id)
	}
	return beans[idx], nil
}

// Upsert normalizes in and stores it. Updating a known id keeps the
// original createTime; the status is always recomputed from the weight.
func (s *InventoryService) Upsert(ctx context.Context, in model.BeanInput) (model.InventoryBean, error) {
	bean := model.NormalizeBean(in, s.now())
	if err := ValidateBean(bean); err != nil {
		return model.InventoryBean{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	beans, err := s.load(ctx)
	if err != nil {
		return model.InventoryBean{}, err
	}

	idx := indexBean(beans, bean.ID)
	if idx >= 0 {
		bean.CreateTime = beans[idx].CreateTime
		beans[idx] = bean
	} else {
		beans = append(beans, bean)
	}

	if err := s.save(ctx, beans); err != nil {
		return model.InventoryBean{}, err
	}

	s.logger.Debug("bean upserted",
		slog.String("bean_id", bean.ID),
		slog.Float64("current_weight", bean.CurrentWeight),
		slog.String("status", string(bean.Status)),
	)
	return bean, nil
}

// Delete removes a bean.
func (s *InventoryService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	beans, err := s.load(ctx)
	if err != nil {
		return err
	}
	idx := indexBean(beans, id)
	if idx < 0 {
		return apperror.NotFound("bean", id)
	}
	return s.save(ctx, slices.Delete(beans, idx, idx+1))
}

// RecordConsumption takes amount grams off a bean. Negative or non-finite
// amounts count as zero and the weight never drops below zero.
func (s *InventoryService) RecordConsumption(ctx context.Context, id string, amount float64) (model.InventoryBean, error) {
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	return s.modify(ctx, id, func(b *model.InventoryBean) {
		b.CurrentWeight = math.Max(0, b.CurrentWeight-amount)
		b.Status = model.DeriveStatus(b.CurrentWeight, "")
	})
}

// MarkFinished empties a bean.
func (s *InventoryService) MarkFinished(ctx context.Context, id string) (model.InventoryBean, error) {
	return s.modify(ctx, id, func(b *model.InventoryBean) {
		b.CurrentWeight = 0
		b.Status = model.BeanStatusFinished
	})
}

func (s *InventoryService) modify(ctx context.Context, id string, fn func(*model.InventoryBean)) (model.InventoryBean, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	beans, err := s.load(ctx)
	if err != nil {
		return model.InventoryBean{}, err
	}
	idx := indexBean(beans, id)
	if idx < 0 {
		return model.InventoryBean{}, apperror.NotFound("bean", id)
	}

	fn(&beans[idx])
	beans[idx].UpdateTime = s.now()

	if err := s.save(ctx, beans); err != nil {
		return model.InventoryBean{}, err
	}
	return beans[idx], nil
}

// ByStatus lists beans in status, most recently touched first. Asking for
// in_stock also returns near_empty beans.
func (s *InventoryService) ByStatus(ctx context.Context, status model.BeanStatus) ([]model.InventoryBean, error) {
	beans, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.InventoryBean, 0, len(beans))
	for _, b := range beans {
		if b.Status == status || (status == model.BeanStatusInStock && b.Status == model.BeanStatusNearEmpty) {
			out = append(out, b)
		}
	}
	slices.SortStableFunc(out, func(a, b model.InventoryBean) int {
		return cmp.Compare(b.UpdateTime.UnixNano(), a.UpdateTime.UnixNano())
	})
	return out, nil
}

// Stats counts beans per status. InStock includes NearEmpty.
func (s *InventoryService) Stats(ctx context.Context) (model.InventoryStats, error) {
	beans, err := s.load(ctx)
	if err != nil {
		return model.InventoryStats{}, err
	}

	stats := model.InventoryStats{Total: len(beans)}
	for _, b := range beans {
		switch b.Status {
		case model.BeanStatusFinished:
			stats.Finished++
		case model.BeanStatusNearEmpty:
			stats.NearEmpty++
			stats.InStock++
		default:
			stats.InStock++
		}
	}
	return stats, nil
}

func indexBean(beans []model.InventoryBean, id string) int {
	return slices.IndexFunc(beans, func(b model.InventoryBean) bool { return b.ID == id })
}
