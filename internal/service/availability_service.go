package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/medi-online/clinic-api/internal/models"
	appErrors "github.com/medi-online/clinic-api/pkg/errors"
)

// NormalizeTimeOfDay reduces a time-of-day representation to the canonical
// HH:MM comparison key. A trailing seconds component is discarded. Returns
// false for values that do not parse or fall outside 00:00..23:59.
func NormalizeTimeOfDay(raw string) (string, bool) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return "", false
	}

	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return "", false
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", false
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", false
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

// BaseSlots resolves a doctor's declared availability into an ordered slot
// list, independent of bookings. Always-open doctors expose every top-of-hour
// value; custom slot lists are normalized, deduplicated and sorted, and
// entries that fail normalization are dropped rather than failing resolution.
func BaseSlots(doctor *models.Doctor) []string {
	if doctor == nil {
		return nil
	}

	if doctor.AvailabilityMode != models.AvailabilityCustom {
		slots := make([]string, 0, 24)
		for hour := 0; hour < 24; hour++ {
			slots = append(slots, fmt.Sprintf("%02d:00", hour))
		}
		return slots
	}

	seen := make(map[string]struct{}, len(doctor.AvailabilitySlots))
	slots := make([]string, 0, len(doctor.AvailabilitySlots))
	for _, raw := range doctor.AvailabilitySlots {
		normalized, ok := NormalizeTimeOfDay(raw)
		if !ok {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		slots = append(slots, normalized)
	}
	sort.Strings(slots)
	return slots
}

type bookingLedger interface {
	BookedSlots(ctx context.Context, doctorID, date string) ([]string, error)
}

// AvailabilityService computes bookable slots for a doctor and date by
// subtracting the booking ledger from the doctor's declared availability.
type AvailabilityService struct {
	ledger   bookingLedger
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewAvailabilityService instantiates AvailabilityService. The cache may be
// nil; it only ever serves the informational listing path.
func NewAvailabilityService(ledger bookingLedger, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{ledger: ledger, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// AvailableSlots returns the doctor's open slots on the given date, in base
// slot order. It always recomputes from the ledger; the booking admission
// check depends on this being a pure function of doctor state and ledger
// contents.
func (s *AvailabilityService) AvailableSlots(ctx context.Context, doctor *models.Doctor, date string) ([]string, error) {
	if strings.TrimSpace(date) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date is required")
	}

	booked, err := s.ledger.BookedSlots(ctx, doctor.ID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booked slots")
	}

	taken := make(map[string]struct{}, len(booked))
	for _, raw := range booked {
		if normalized, ok := NormalizeTimeOfDay(raw); ok {
			taken[normalized] = struct{}{}
		}
	}

	base := BaseSlots(doctor)
	available := make([]string, 0, len(base))
	for _, slot := range base {
		if _, occupied := taken[slot]; occupied {
			continue
		}
		available = append(available, slot)
	}
	return available, nil
}

// CachedAvailableSlots serves the informational listing through the slot
// cache when enabled. Stale reads are bounded by the cache TTL and by
// invalidation on bookings and status transitions.
func (s *AvailabilityService) CachedAvailableSlots(ctx context.Context, doctor *models.Doctor, date string) ([]string, error) {
	if !s.cache.Enabled() {
		return s.AvailableSlots(ctx, doctor, date)
	}

	key := slotCacheKey(doctor.ID, date)
	var cached []string
	hit, err := s.cache.Get(ctx, key, &cached)
	if err == nil && hit {
		return cached, nil
	}

	slots, err := s.AvailableSlots(ctx, doctor, date)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, slots, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache slot listing", zap.String("doctor_id", doctor.ID), zap.Error(err))
	}
	return slots, nil
}

// InvalidateSlots drops the cached listing for one doctor/date.
func (s *AvailabilityService) InvalidateSlots(ctx context.Context, doctorID, date string) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Delete(ctx, slotCacheKey(doctorID, date)); err != nil {
		s.logger.Warn("failed to invalidate slot cache", zap.String("doctor_id", doctorID), zap.Error(err))
	}
}

// InvalidateDoctorSlots drops all cached listings for a doctor, used when
// the doctor's availability configuration changes.
func (s *AvailabilityService) InvalidateDoctorSlots(ctx context.Context, doctorID string) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, fmt.Sprintf("slots:%s:*", doctorID)); err != nil {
		s.logger.Warn("failed to invalidate doctor slot cache", zap.String("doctor_id", doctorID), zap.Error(err))
	}
}

func slotCacheKey(doctorID, date string) string {
	return fmt.Sprintf("slots:%s:%s", doctorID, date)
}
