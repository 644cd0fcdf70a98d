package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/sakif/brewlog/internal/apperror"
	"github.com/sakif/brewlog/internal/model"
	"github.com/sakif/brewlog/internal/repository"
)

// =========================================================================
// MOCK REPOSITORIES
// =========================================================================

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// mockFeedRepo is an in-memory repository.PublishedRecordRepository. The
// *Err fields force the matching method to fail.
type mockFeedRepo struct {
	mu      sync.Mutex
	records map[string]*model.PublishedRecord // keyed by document id
	nextID  int

	findErr   error
	createErr error
	updateErr error
	listErr   error

	// conflictOnce makes the next CreatePublished behave as if a concurrent
	// writer had inserted the same key first.
	conflictOnce bool

	creates int
	updates int
	lastQ   repository.FeedQuery
}

var _ repository.PublishedRecordRepository = (*mockFeedRepo)(nil)

func newMockFeedRepo() *mockFeedRepo {
	return &mockFeedRepo{records: make(map[string]*model.PublishedRecord)}
}

func (m *mockFeedRepo) FindByNaturalKey(_ context.Context, beanID, userID string) (*model.PublishedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, r := range m.records {
		if r.BeanID == beanID && r.UserID == userID {
			copied := *r
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("published record", beanID)
}

func (m *mockFeedRepo) CreatePublished(_ context.Context, rec *model.PublishedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if m.conflictOnce {
		m.conflictOnce = false
		m.insertLocked(&model.PublishedRecord{BeanID: rec.BeanID, UserID: rec.UserID, UserName: "racer"})
		return apperror.Conflict("published record", rec.BeanID)
	}
	for _, r := range m.records {
		if r.BeanID == rec.BeanID && r.UserID == rec.UserID {
			return apperror.Conflict("published record", rec.BeanID)
		}
	}
	m.creates++
	m.insertLocked(rec)
	return nil
}

func (m *mockFeedRepo) insertLocked(rec *model.PublishedRecord) {
	m.nextID++
	rec.ID = fmt.Sprintf("doc-%d", m.nextID)
	copied := *rec
	m.records[rec.ID] = &copied
}

func (m *mockFeedRepo) UpdatePublished(_ context.Context, rec *model.PublishedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.records[rec.ID]; !ok {
		return apperror.NotFound("published record", rec.ID)
	}
	m.updates++
	copied := *rec
	m.records[rec.ID] = &copied
	return nil
}

func (m *mockFeedRepo) ListFeed(_ context.Context, q repository.FeedQuery) ([]model.PublishedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQ = q
	if m.listErr != nil {
		return nil, m.listErr
	}

	keyword := strings.ToLower(q.Keyword)
	out := []model.PublishedRecord{}
	for _, r := range m.records {
		if q.Type != "" && r.Type != q.Type {
			continue
		}
		if q.Rating != nil {
			if q.Rating.Min != nil && r.Rating < *q.Rating.Min {
				continue
			}
			if q.Rating.Max != nil && r.Rating > *q.Rating.Max {
				continue
			}
		}
		if keyword != "" &&
			!strings.Contains(strings.ToLower(r.BeanName), keyword) &&
			!strings.Contains(strings.ToLower(r.Brand), keyword) {
			continue
		}
		out = append(out, *r)
	}
	slices.SortFunc(out, func(a, b model.PublishedRecord) int {
		if c := b.PublishTime.Compare(a.PublishTime); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	if q.Offset >= len(out) {
		return []model.PublishedRecord{}, nil
	}
	out = out[q.Offset:]
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *mockFeedRepo) all() []model.PublishedRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.PublishedRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, *r)
	}
	return out
}

// fakeUserRepo is an in-memory repository.UserRepository.
type fakeUserRepo struct {
	users  map[string]*model.User // keyed by id
	nextID int

	upsertErr error
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) UpsertExternal(_ context.Context, user *model.User) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, existing := range f.users {
		if existing.Provider == user.Provider && existing.ExternalID == user.ExternalID {
			if existing.NickName == "" {
				existing.NickName = user.NickName
			}
			if existing.AvatarURL == "" {
				existing.AvatarURL = user.AvatarURL
			}
			*user = *existing
			return nil
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, id string, p model.Profile) error {
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.NickName = p.NickName
	u.AvatarURL = p.AvatarURL
	return nil
}
