package local

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sakif/brewlog/internal/apperror"
	"github.com/sakif/brewlog/internal/model"
	"github.com/sakif/brewlog/internal/store"
)

// RecordService is the user's brew log. Records are stored in whatever
// shape they were written in and normalized on every read, so documents
// from older clients load without a migration.
type RecordService struct {
	store  store.Store
	userID string
	logger *slog.Logger
	now    func() time.Time

	// mu serializes read-modify-write cycles within this process.
	mu sync.Mutex
}

func NewRecordService(st store.Store, userID string, logger *slog.Logger) *RecordService {
	return &RecordService{
		store:  st,
		userID: userID,
		logger: logger,
		now:    time.Now,
	}
}

// SearchFilter narrows Search. Zero values match everything.
type SearchFilter struct {
	Type      model.RecordType
	Brand     string
	MinRating *float64
}

// HomeCard is a record with its list-view display fields.
type HomeCard struct {
	model.BrewRecord
	DisplayRating string `json:"displayRating"`
	DisplayDate   string `json:"displayDate"`
	HasCover      bool   `json:"hasCover"`
}

func (s *RecordService) key() string {
	return store.UserKey(store.PrefixRecords, s.userID)
}

// load reads and normalizes every stored record, in stored order.
func (s *RecordService) load(ctx context.Context) ([]model.BrewRecord, error) {
	var raw []model.Payload
	if _, err := s.store.Get(ctx, s.key(), &raw); err != nil {
		return nil, fmt.Errorf("local/records: loading: %w", err)
	}
	records := make([]model.BrewRecord, 0, len(raw))
	for _, p := range raw {
		records = append(records, model.NormalizeRecord(p))
	}
	return records, nil
}

func (s *RecordService) save(ctx context.Context, records []model.BrewRecord) error {
	if err := s.store.Set(ctx, s.key(), records); err != nil {
		return fmt.Errorf("local/records: saving: %w", err)
	}
	return nil
}

// canonical passes r through the read-time adapter so what is saved is
// exactly what a later read returns.
func canonical(r model.BrewRecord) model.BrewRecord {
	data, err := json.Marshal(r)
	if err != nil {
		return r
	}
	p, err := model.DecodePayload(data)
	if err != nil {
		return r
	}
	return model.NormalizeRecord(p)
}

// Save validates r and writes it. An existing id is replaced in place with
// its original createdAt; a new id is appended. updatedAt is refreshed
// either way.
func (s *RecordService) Save(ctx context.Context, r model.BrewRecord) (model.BrewRecord, error) {
	if err := ValidateRecord(r); err != nil {
		return model.BrewRecord{}, err
	}
	if r.ID == "" {
		r.ID = model.NewID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return model.BrewRecord{}, err
	}

	now := s.now()
	r.UpdatedAt = now

	idx := slices.IndexFunc(records, func(existing model.BrewRecord) bool { return existing.ID == r.ID })
	if idx >= 0 {
		r.CreatedAt = records[idx].CreatedAt
		records[idx] = canonical(r)
	} else {
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		records = append(records, canonical(r))
	}

	if err := s.save(ctx, records); err != nil {
		return model.BrewRecord{}, err
	}

	s.logger.Debug("record saved",
		slog.String("record_id", r.ID),
		slog.Bool("updated", idx >= 0),
	)
	if idx >= 0 {
		return records[idx], nil
	}
	return records[len(records)-1], nil
}

// Get returns apperror.ErrNotFound for an unknown id.
func (s *RecordService) Get(ctx context.Context, id string) (model.BrewRecord, error) {
	records, err := s.load(ctx)
	if err != nil {
		return model.BrewRecord{}, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, nil
		}
	}
	return model.BrewRecord{}, apperror.NotFound("record", id)
}

// List returns every record in stored order.
func (s *RecordService) List(ctx context.Context) ([]model.BrewRecord, error) {
	return s.load(ctx)
}

// Delete removes a record. Records already published stay in the feed.
func (s *RecordService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(records, func(r model.BrewRecord) bool { return r.ID == id })
	if idx < 0 {
		return apperror.NotFound("record", id)
	}
	return s.save(ctx, slices.Delete(records, idx, idx+1))
}

// Search matches keyword as a substring of name, brand, origin or any
// flavor tag, then applies the filters.
func (s *RecordService) Search(ctx context.Context, keyword string, f SearchFilter) ([]model.BrewRecord, error) {
	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	keyword = strings.TrimSpace(keyword)
	out := make([]model.BrewRecord, 0, len(records))
	for _, r := range records {
		if keyword != "" && !matchesKeyword(r, keyword) {
			continue
		}
		if f.Type != "" && r.Type != f.Type {
			continue
		}
		if f.Brand != "" && r.Brand != f.Brand {
			continue
		}
		if f.MinRating != nil && *f.MinRating > 0 && r.RatingValue() < *f.MinRating {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func matchesKeyword(r model.BrewRecord, keyword string) bool {
	if strings.Contains(r.Name, keyword) ||
		strings.Contains(r.Brand, keyword) ||
		strings.Contains(r.Origin, keyword) {
		return true
	}
	return slices.ContainsFunc(r.Flavors, func(tag string) bool { return strings.Contains(tag, keyword) })
}

// HomeList is Search sorted newest first with display fields filled in.
func (s *RecordService) HomeList(ctx context.Context, keyword string, f SearchFilter) ([]HomeCard, error) {
	records, err := s.Search(ctx, keyword, f)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(records, func(a, b model.BrewRecord) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})

	cards := make([]HomeCard, len(records))
	for i, r := range records {
		cards[i] = HomeCard{
			BrewRecord:    r,
			DisplayRating: model.FormatRating(r.Rating),
			DisplayDate:   model.FormatDate(r.CreatedAt),
			HasCover:      r.CoverImage != "",
		}
	}
	return cards, nil
}
