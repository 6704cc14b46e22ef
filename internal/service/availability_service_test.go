package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medi-online/clinic-api/internal/models"
	appErrors "github.com/medi-online/clinic-api/pkg/errors"
)

type mockBookingLedger struct {
	booked map[string][]string
	calls  int
	err    error
}

func (m *mockBookingLedger) BookedSlots(_ context.Context, doctorID, date string) ([]string, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.booked[doctorID+"|"+date], nil
}

type stubCacheRepo struct {
	store map[string][]byte
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if s.store == nil {
		return appErrors.ErrCacheMiss
	}
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) Delete(_ context.Context, key string) error {
	delete(s.store, key)
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, _ string) error {
	s.store = nil
	return nil
}

func TestNormalizeTimeOfDay(t *testing.T) {
	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{"09:00", "09:00", true},
		{"9:5", "09:05", true},
		{"14:30:00", "14:30", true},
		{"14:30:59", "14:30", true},
		{"00:00", "00:00", true},
		{"23:59", "23:59", true},
		{"24:00", "", false},
		{"12:60", "", false},
		{"-1:00", "", false},
		{"noon", "", false},
		{"12", "", false},
		{"12:00:00:00", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, ok := NormalizeTimeOfDay(tc.input)
		assert.Equal(t, tc.ok, ok, "input %q", tc.input)
		assert.Equal(t, tc.want, got, "input %q", tc.input)
	}
}

func TestNormalizeTimeOfDayIdempotent(t *testing.T) {
	for _, input := range []string{"9:00", "09:00:30", "23:59"} {
		first, ok := NormalizeTimeOfDay(input)
		require.True(t, ok)
		second, ok := NormalizeTimeOfDay(first)
		require.True(t, ok)
		assert.Equal(t, first, second)
	}
}

func TestBaseSlotsAlwaysOpen(t *testing.T) {
	doctor := &models.Doctor{AvailabilityMode: models.AvailabilityAlwaysOpen}
	slots := BaseSlots(doctor)

	require.Len(t, slots, 24)
	assert.Equal(t, "00:00", slots[0])
	assert.Equal(t, "09:00", slots[9])
	assert.Equal(t, "23:00", slots[23])
}

func TestBaseSlotsCustomNormalizesAndDropsMalformed(t *testing.T) {
	doctor := &models.Doctor{
		AvailabilityMode:  models.AvailabilityCustom,
		AvailabilitySlots: pq.StringArray{"14:30", "9:00", "garbage", "09:00:00", "25:00"},
	}

	slots := BaseSlots(doctor)
	assert.Equal(t, []string{"09:00", "14:30"}, slots)
}

func TestBaseSlotsCustomEmptyAfterFiltering(t *testing.T) {
	doctor := &models.Doctor{
		AvailabilityMode:  models.AvailabilityCustom,
		AvailabilitySlots: pq.StringArray{"nope", "also nope"},
	}

	assert.Empty(t, BaseSlots(doctor))
}

func TestAvailableSlotsSubtractsBookings(t *testing.T) {
	doctor := &models.Doctor{
		ID:                "doc-1",
		AvailabilityMode:  models.AvailabilityCustom,
		AvailabilitySlots: pq.StringArray{"09:00", "10:00", "11:00"},
	}
	ledger := &mockBookingLedger{booked: map[string][]string{
		"doc-1|2026-09-10": {"10:00:00"},
	}}
	svc := NewAvailabilityService(ledger, nil, time.Minute, zap.NewNop())

	slots, err := svc.AvailableSlots(context.Background(), doctor, "2026-09-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "11:00"}, slots)
}

func TestAvailableSlotsFullyBooked(t *testing.T) {
	doctor := &models.Doctor{
		ID:                "doc-1",
		AvailabilityMode:  models.AvailabilityCustom,
		AvailabilitySlots: pq.StringArray{"09:00"},
	}
	ledger := &mockBookingLedger{booked: map[string][]string{
		"doc-1|2026-09-10": {"09:00:00"},
	}}
	svc := NewAvailabilityService(ledger, nil, time.Minute, zap.NewNop())

	slots, err := svc.AvailableSlots(context.Background(), doctor, "2026-09-10")
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestAvailableSlotsRequiresDate(t *testing.T) {
	svc := NewAvailabilityService(&mockBookingLedger{}, nil, time.Minute, zap.NewNop())

	_, err := svc.AvailableSlots(context.Background(), &models.Doctor{ID: "doc-1"}, "  ")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCachedAvailableSlotsReadThrough(t *testing.T) {
	doctor := &models.Doctor{
		ID:                "doc-1",
		AvailabilityMode:  models.AvailabilityCustom,
		AvailabilitySlots: pq.StringArray{"09:00", "10:00"},
	}
	ledger := &mockBookingLedger{}
	cacheSvc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := NewAvailabilityService(ledger, cacheSvc, time.Minute, zap.NewNop())

	ctx := context.Background()
	first, err := svc.CachedAvailableSlots(ctx, doctor, "2026-09-10")
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.calls)

	second, err := svc.CachedAvailableSlots(ctx, doctor, "2026-09-10")
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.calls, "second read should hit the cache")
	assert.Equal(t, first, second)
}

func TestInvalidateSlotsForcesRecompute(t *testing.T) {
	doctor := &models.Doctor{
		ID:                "doc-1",
		AvailabilityMode:  models.AvailabilityCustom,
		AvailabilitySlots: pq.StringArray{"09:00", "10:00"},
	}
	ledger := &mockBookingLedger{}
	cacheSvc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := NewAvailabilityService(ledger, cacheSvc, time.Minute, zap.NewNop())

	ctx := context.Background()
	_, err := svc.CachedAvailableSlots(ctx, doctor, "2026-09-10")
	require.NoError(t, err)

	svc.InvalidateSlots(ctx, "doc-1", "2026-09-10")

	_, err = svc.CachedAvailableSlots(ctx, doctor, "2026-09-10")
	require.NoError(t, err)
	assert.Equal(t, 2, ledger.calls)
}
