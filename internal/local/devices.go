package local

import (
	"cmp"
	"context"
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

// DeviceService manages a user's brewing equipment. Each device type has at
// most one default.
type DeviceService struct {
	store  store.Store
	userID string
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

func NewDeviceService(st store.Store, userID string, logger *slog.Logger) *DeviceService {
	return &DeviceService{
		store:  st,
		userID: userID,
		logger: logger,
		now:    time.Now,
	}
}

func (s *DeviceService) key() string {
	return store.UserKey(store.PrefixDevices, s.userID)
}

func (s *DeviceService) load(ctx context.Context) ([]model.Device, error) {
	var devices []model.Device
	if _, err := s.store.Get(ctx, s.key(), &devices); err != nil {
		return nil, fmt.Errorf("local/devices: loading: %w", err)
	}
	if devices == nil {
		devices = []model.Device{}
	}
	return devices, nil
}

func (s *DeviceService) save(ctx context.Context, devices []model.Device) error {
	if err := s.store.Set(ctx, s.key(), devices); err != nil {
		return fmt.Errorf("local/devices: saving: %w", err)
	}
	return nil
}

func (s *DeviceService) List(ctx context.Context) ([]model.Device, error) {
	return s.load(ctx)
}

// Get returns apperror.ErrNotFound for an unknown id.
func (s *DeviceService) Get(ctx context.Context, id string) (model.Device, error) {
	devices, err := s.load(ctx)
	if err != nil {
		return model.Device{}, err
	}
	idx := indexDevice(devices, id)
	if idx < 0 {
		return model.Device{}, apperror.NotFound("device", id)
	}
	return devices[idx], nil
}

// Upsert stores d. An empty type means model.DefaultDeviceType; any other
// unknown type fails validation. When d is marked default every other device
// of its type loses the flag. Updating a device without the flag keeps
// whatever default state it already had.
func (s *DeviceService) Upsert(ctx context.Context, d model.Device) (model.Device, error) {
	if d.Type == "" {
		d.Type = model.DefaultDeviceType
	}
	d.Name = strings.TrimSpace(d.Name)
	if err := ValidateDevice(d); err != nil {
		return model.Device{}, err
	}
	if d.ID == "" {
		d.ID = model.NewID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	devices, err := s.load(ctx)
	if err != nil {
		return model.Device{}, err
	}

	now := s.now()
	d.UpdateTime = now

	idx := indexDevice(devices, d.ID)
	if idx >= 0 {
		d.CreateTime = devices[idx].CreateTime
		if !d.IsDefault {
			d.IsDefault = devices[idx].IsDefault
		}
		devices[idx] = d
	} else {
		d.CreateTime = now
		devices = append(devices, d)
	}

	if d.IsDefault {
		clearDefaults(devices, d.Type, d.ID)
	}

	if err := s.save(ctx, devices); err != nil {
		return model.Device{}, err
	}

	s.logger.Debug("device upserted",
		slog.String("device_id", d.ID),
		slog.String("type", string(d.Type)),
		slog.Bool("default", d.IsDefault),
	)
	return d, nil
}

func (s *DeviceService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	devices, err := s.load(ctx)
	if err != nil {
		return err
	}
	idx := indexDevice(devices, id)
	if idx < 0 {
		return apperror.NotFound("device", id)
	}
	return s.save(ctx, slices.Delete(devices, idx, idx+1))
}

// SetDefault makes id the default of its type.
func (s *DeviceService) SetDefault(ctx context.Context, id string) ([]model.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	devices, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	idx := indexDevice(devices, id)
	if idx < 0 {
		return nil, apperror.NotFound("device", id)
	}

	devices[idx].IsDefault = true
	clearDefaults(devices, devices[idx].Type, id)

	if err := s.save(ctx, devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// Default returns the default device of type t, if one is set.
func (s *DeviceService) Default(ctx context.Context, t model.DeviceType) (model.Device, bool, error) {
	devices, err := s.load(ctx)
	if err != nil {
		return model.Device{}, false, err
	}
	for _, d := range devices {
		if d.Type == t && d.IsDefault {
			return d, true, nil
		}
	}
	return model.Device{}, false, nil
}

// Groups returns one group per device type in display order. Within a
// group the default comes first, then the most recently updated.
func (s *DeviceService) Groups(ctx context.Context) ([]model.DeviceGroup, error) {
	devices, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	groups := make([]model.DeviceGroup, 0, len(model.DeviceTypes))
	for _, info := range model.DeviceTypes {
		members := make([]model.Device, 0)
		for _, d := range devices {
			if d.Type == info.Key {
				members = append(members, d)
			}
		}
		slices.SortStableFunc(members, func(a, b model.Device) int {
			if a.IsDefault != b.IsDefault {
				if a.IsDefault {
					return -1
				}
				return 1
			}
			return cmp.Compare(b.UpdateTime.UnixNano(), a.UpdateTime.UnixNano())
		})
		groups = append(groups, model.DeviceGroup{Key: info.Key, Label: info.Label, Devices: members})
	}
	return groups, nil
}

// clearDefaults unsets the default flag on every device of type t except keep.
func clearDefaults(devices []model.Device, t model.DeviceType, keep string) {
	for i := range devices {
		if devices[i].Type == t && devices[i].ID != keep {
			devices[i].IsDefault = false
		}
	}
}

func indexDevice(devices []model.Device, id string) int {
	return slices.IndexFunc(devices, func(d model.Device) bool { return d.ID == id })
}
