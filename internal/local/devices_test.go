package local

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/brewlog/internal/apperror"
	"github.com/sakif/brewlog/internal/model"
	"github.com/sakif/brewlog/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDevices(t *testing.T) *DeviceService {
	t.Helper()
	s := NewDeviceService(store.NewMemory(), "u1", quietLogger())
	s.now = fakeClock(t)
	return s
}

func addDevice(t *testing.T, s *DeviceService, typ model.DeviceType, name string, isDefault bool) model.Device {
	t.Helper()
	d, err := s.Upsert(context.Background(), model.Device{Type: typ, Name: name, IsDefault: isDefault})
	if err != nil {
		t.Fatalf("failed to add test device: %v", err)
	}
	return d
}

func defaults(t *testing.T, s *DeviceService) map[string]bool {
	t.Helper()
	all, err := s.List(context.Background())
	require.NoError(t, err)
	out := make(map[string]bool, len(all))
	for _, d := range all {
		out[d.Name] = d.IsDefault
	}
	return out
}

// =========================================================================
// DEFAULT TESTS
// =========================================================================

func TestUpsert_SingleDefaultPerType(t *testing.T) {
	s := newTestDevices(t)

	addDevice(t, s, model.DeviceTypePourOver, "V60", true)
	addDevice(t, s, model.DeviceTypeGrinder, "A", true)
	addDevice(t, s, model.DeviceTypeGrinder, "B", true)

	got := defaults(t, s)
	assert.False(t, got["A"])
	assert.True(t, got["B"])
	assert.True(t, got["V60"], "a grinder default must not touch pour_over devices")
}

func TestSetDefault(t *testing.T) {
	s := newTestDevices(t)
	a := addDevice(t, s, model.DeviceTypeGrinder, "A", true)
	addDevice(t, s, model.DeviceTypeGrinder, "B", false)
	addDevice(t, s, model.DeviceTypePourOver, "V60", true)

	all, err := s.List(context.Background())
	require.NoError(t, err)
	var b model.Device
	for _, d := range all {
		if d.Name == "B" {
			b = d
		}
	}

	_, err = s.SetDefault(context.Background(), b.ID)
	require.NoError(t, err)

	got := defaults(t, s)
	assert.False(t, got["A"])
	assert.True(t, got["B"])
	assert.True(t, got["V60"])

	def, ok, err := s.Default(context.Background(), model.DeviceTypeGrinder)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, b.ID, def.ID)
	assert.NotEqual(t, a.ID, def.ID)
}

func TestSetDefault_NotFound(t *testing.T) {
	s := newTestDevices(t)

	_, err := s.SetDefault(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestUpsert_UpdateKeepsStoredDefault(t *testing.T) {
	s := newTestDevices(t)
	ctx := context.Background()
	d := addDevice(t, s, model.DeviceTypeEspresso, "Linea", true)

	updated, err := s.Upsert(ctx, model.Device{ID: d.ID, Type: model.DeviceTypeEspresso, Name: "Linea Mini"})
	require.NoError(t, err)

	assert.True(t, updated.IsDefault)
	assert.True(t, updated.CreateTime.Equal(d.CreateTime))
	assert.True(t, updated.UpdateTime.After(d.UpdateTime))
}

func TestUpsert_DefaultsType(t *testing.T) {
	s := newTestDevices(t)

	d := addDevice(t, s, "", "Kalita", false)
	assert.Equal(t, model.DeviceTypePourOver, d.Type)

	_, err := s.Upsert(context.Background(), model.Device{Type: model.DeviceTypeOther})
	assert.Equal(t, "name", apperror.FieldOf(err))
}

func TestUpsert_RejectsUnknownType(t *testing.T) {
	s := newTestDevices(t)
	ctx := context.Background()

	for _, typ := range []model.DeviceType{"kettle", "Grinder", " espresso"} {
		_, err := s.Upsert(ctx, model.Device{Type: typ, Name: "Fellow"})
		require.Error(t, err, typ)
		assert.ErrorIs(t, err, apperror.ErrValidation)
		assert.Equal(t, "type", apperror.FieldOf(err), typ)
	}

	groups, err := s.Groups(ctx)
	require.NoError(t, err)
	for _, g := range groups {
		assert.Empty(t, g.Devices, g.Key)
	}
}

// =========================================================================
// GROUP TESTS
// =========================================================================

func TestGroups(t *testing.T) {
	s := newTestDevices(t)
	addDevice(t, s, model.DeviceTypeGrinder, "Old", false)
	addDevice(t, s, model.DeviceTypeGrinder, "Default", true)
	addDevice(t, s, model.DeviceTypeGrinder, "New", false)
	addDevice(t, s, model.DeviceTypePourOver, "V60", false)

	groups, err := s.Groups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 4)

	assert.Equal(t, model.DeviceTypePourOver, groups[0].Key)
	assert.Equal(t, "手冲设备", groups[0].Label)
	assert.Len(t, groups[0].Devices, 1)

	grinders := groups[2]
	assert.Equal(t, "磨豆机", grinders.Label)
	names := make([]string, len(grinders.Devices))
	for i, d := range grinders.Devices {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"Default", "New", "Old"}, names)

	assert.NotNil(t, groups[3].Devices)
	assert.Empty(t, groups[3].Devices)
}

func TestDeviceDelete(t *testing.T) {
	s := newTestDevices(t)
	ctx := context.Background()
	d := addDevice(t, s, model.DeviceTypeOther, "Scale", false)

	require.NoError(t, s.Delete(ctx, d.ID))
	_, err := s.Get(ctx, d.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}
