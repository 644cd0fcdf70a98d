package publisher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/brewlog/internal/apperror"
	"github.com/sakif/brewlog/internal/local"
	"github.com/sakif/brewlog/internal/model"
	"github.com/sakif/brewlog/internal/service"
	"github.com/sakif/brewlog/internal/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fixedIdentity struct {
	id  model.Identity
	err error
}

func (f fixedIdentity) Identity(context.Context) (model.Identity, error) { return f.id, f.err }

// fakeRemote records every publish and can block or fail.
type fakeRemote struct {
	mu      sync.Mutex
	calls   []model.PublishInput
	err     error
	entered chan struct{}
	release chan struct{}
}

func (f *fakeRemote) PublishRecord(_ context.Context, in model.PublishInput) (*service.PublishResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, in)
	entered, release := f.entered, f.release
	f.mu.Unlock()

	if entered != nil {
		close(entered)
		<-release
	}
	if f.err != nil {
		return nil, f.err
	}
	return &service.PublishResult{RecordID: "doc-1", Message: service.MsgPublished}, nil
}

func (f *fakeRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type countingRefresher struct {
	n   int
	err error
}

func (c *countingRefresher) Refresh(context.Context) error {
	c.n++
	return c.err
}

var alice = model.Identity{UserID: "openid-1", DisplayName: "阿丽", AvatarRef: "a.png"}

func validRecord() model.BrewRecord {
	r := model.CreateRecord(model.RecordTypePourOver, model.Payload{
		"name":       "耶加雪菲",
		"brand":      "Manner",
		"roastLevel": "浅烘",
		"rating":     4.5,
	})
	return r
}

func newRecords() *local.RecordService {
	return local.NewRecordService(store.NewMemory(), "openid-1", quietLogger())
}

// =========================================================================
// PUBLISH TESTS
// =========================================================================

func TestPublish_SavesThenSends(t *testing.T) {
	records := newRecords()
	remote := &fakeRemote{}
	feed := &countingRefresher{}
	p := New(records, fixedIdentity{id: alice}, remote, feed, quietLogger())
	ctx := context.Background()

	out, err := p.Publish(ctx, validRecord())
	require.NoError(t, err)

	assert.Equal(t, "doc-1", out.Result.RecordID)
	stored, err := records.Get(ctx, out.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, "耶加雪菲", stored.Name)

	require.Equal(t, 1, remote.callCount())
	in := remote.calls[0]
	assert.Equal(t, out.Record.ID, in.BeanID)
	assert.Equal(t, "阿丽", in.UserName)
	assert.Equal(t, "a.png", in.UserAvatar)
	assert.Equal(t, "pourOver", in.Type)
	assert.Equal(t, 1, feed.n)
}

func TestPublish_EmptyNameIsRejectedBeforeAnyCall(t *testing.T) {
	records := newRecords()
	remote := &fakeRemote{}
	p := New(records, fixedIdentity{id: alice}, remote, nil, quietLogger())

	r := validRecord()
	r.Name = ""
	_, err := p.Publish(context.Background(), r)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, "name", apperror.FieldOf(err))
	assert.Equal(t, 0, remote.callCount())

	all, err := records.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all, "nothing is saved either")
}

func TestPublish_RequiresIdentity(t *testing.T) {
	remote := &fakeRemote{}
	p := New(newRecords(), fixedIdentity{err: apperror.Unauthenticated(local.MsgNoOpenID)}, remote, nil, quietLogger())

	_, err := p.Publish(context.Background(), validRecord())
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	assert.Equal(t, 0, remote.callCount())
}

func TestPublish_RemoteFailureSurfaces(t *testing.T) {
	remote := &fakeRemote{err: apperror.RemoteCallFailed("publishRecord", "缺少豆单数据", errors.New("status 422"))}
	feed := &countingRefresher{}
	p := New(newRecords(), fixedIdentity{id: alice}, remote, feed, quietLogger())

	_, err := p.Publish(context.Background(), validRecord())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrRemoteCall)
	assert.Contains(t, err.Error(), "缺少豆单数据")
	assert.Equal(t, 0, feed.n)
	assert.False(t, p.Busy())
}

func TestPublish_RefreshFailureIsNotFatal(t *testing.T) {
	feed := &countingRefresher{err: errors.New("offline")}
	p := New(newRecords(), fixedIdentity{id: alice}, &fakeRemote{}, feed, quietLogger())

	_, err := p.Publish(context.Background(), validRecord())
	assert.NoError(t, err)
	assert.Equal(t, 1, feed.n)
}

func TestPublish_BusyGuard(t *testing.T) {
	remote := &fakeRemote{entered: make(chan struct{}), release: make(chan struct{})}
	p := New(newRecords(), fixedIdentity{id: alice}, remote, nil, quietLogger())
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := p.Publish(ctx, validRecord())
		done <- err
	}()
	<-remote.entered

	assert.True(t, p.Busy())
	_, err := p.Publish(ctx, validRecord())
	assert.ErrorIs(t, err, ErrBusy)

	close(remote.release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("first publish did not finish")
	}
	assert.False(t, p.Busy())
	assert.Equal(t, 1, remote.callCount())
}

func TestPublishByID(t *testing.T) {
	records := newRecords()
	remote := &fakeRemote{}
	p := New(records, fixedIdentity{id: alice}, remote, nil, quietLogger())
	ctx := context.Background()

	saved, err := records.Save(ctx, validRecord())
	require.NoError(t, err)

	_, err = p.PublishByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, remote.calls[0].BeanID)

	_, err = p.PublishByID(ctx, "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
