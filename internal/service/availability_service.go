package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/campus-assist/rostering-api/internal/models"
)

type availabilityRepository interface {
	ListForUser(ctx context.Context, username string) ([]models.Availability, error)
	ListForDay(ctx context.Context, day models.DayOfWeek) ([]models.Availability, error)
	ListAll(ctx context.Context) ([]models.Availability, error)
	Create(ctx context.Context, a *models.Availability) error
	Delete(ctx context.Context, username, id string) error
}

type assistantPoolRepository interface {
	ListActiveHelpDesk(ctx context.Context) ([]models.HelpDeskAssistant, error)
	ListActiveLab(ctx context.Context) ([]models.LabAssistant, error)
}

// AvailabilityService answers who is free for a given pool/day/hour, backed
// by a short-lived cache so repeated scheduler lookups within one solve
// don't each round-trip to Postgres.
type AvailabilityService struct {
	repo    availabilityRepository
	pools   assistantPoolRepository
	cache   *CacheService
	cacheTTL time.Duration
	logger  *zap.Logger
}

// NewAvailabilityService constructs the resolver.
func NewAvailabilityService(repo availabilityRepository, pools assistantPoolRepository, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Second
	}
	return &AvailabilityService{repo: repo, pools: pools, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// BatchQuery is one (staff, day, hour) probe for batch_available.
type BatchQuery struct {
	Username string
	Day      models.DayOfWeek
	Hour     int
}

// ListAvailable returns the usernames of active staff in kind's pool who
// have a window covering hh:00 on day.
func (s *AvailabilityService) ListAvailable(ctx context.Context, kind models.StaffKind, day models.DayOfWeek, hour int) ([]string, error) {
	activeSet, err := s.activeStaff(ctx, kind)
	if err != nil {
		return nil, err
	}

	windows, err := s.dayWindows(ctx, day)
	if err != nil {
		return nil, err
	}

	covered := make(map[string]bool)
	for _, w := range windows {
		if !activeSet[w.Username] {
			continue
		}
		if w.StartTime.CoversHour(w.EndTime, hour) {
			covered[w.Username] = true
		}
	}

	result := make([]string, 0, len(covered))
	for username := range covered {
		result = append(result, username)
	}
	sort.Strings(result)
	return result, nil
}

// IsAvailable reports whether staff has a window covering hh:00 on day,
// regardless of pool membership.
func (s *AvailabilityService) IsAvailable(ctx context.Context, staff string, day models.DayOfWeek, hour int) (bool, error) {
	windows, err := s.dayWindows(ctx, day)
	if err != nil {
		return false, err
	}
	for _, w := range windows {
		if w.Username == staff && w.StartTime.CoversHour(w.EndTime, hour) {
			return true, nil
		}
	}
	return false, nil
}

// BatchAvailable resolves many (staff, day, hour) probes, loading each
// distinct day's windows once, used by the scheduler to avoid N+1 availability lookups while scoring
// shift candidates.
func (s *AvailabilityService) BatchAvailable(ctx context.Context, queries []BatchQuery) (map[BatchQuery]bool, error) {
	byDay := make(map[models.DayOfWeek][]models.Availability)
	results := make(map[BatchQuery]bool, len(queries))

	for _, q := range queries {
		windows, ok := byDay[q.Day]
		if !ok {
			var err error
			windows, err = s.dayWindows(ctx, q.Day)
			if err != nil {
				return nil, err
			}
			byDay[q.Day] = windows
		}
		found := false
		for _, w := range windows {
			if w.Username == q.Username && w.StartTime.CoversHour(w.EndTime, q.Hour) {
				found = true
				break
			}
		}
		results[q] = found
	}
	return results, nil
}

// ListForUser returns a staff member's declared windows, for the profile
// and editor views.
func (s *AvailabilityService) ListForUser(ctx context.Context, username string) ([]models.Availability, error) {
	return s.repo.ListForUser(ctx, username)
}

// Declare inserts a new availability window after validating start < end.
func (s *AvailabilityService) Declare(ctx context.Context, a *models.Availability) error {
	if !a.StartTime.Before(a.EndTime) {
		return fmt.Errorf("availability: start must be before end")
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, cacheKeyForDay(a.DayOfWeek)+"*")
	}
	return nil
}

// Withdraw removes a declared window.
func (s *AvailabilityService) Withdraw(ctx context.Context, username, id string) error {
	if err := s.repo.Delete(ctx, username, id); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, "availability:day:*")
	}
	return nil
}

func (s *AvailabilityService) dayWindows(ctx context.Context, day models.DayOfWeek) ([]models.Availability, error) {
	key := cacheKeyForDay(day)
	var cached []models.Availability
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	windows, err := s.repo.ListForDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("load availability windows: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, windows, s.cacheTTL)
	}
	return windows, nil
}

func (s *AvailabilityService) activeStaff(ctx context.Context, kind models.StaffKind) (map[string]bool, error) {
	active := make(map[string]bool)
	switch kind {
	case models.StaffKindLab:
		staff, err := s.pools.ListActiveLab(ctx)
		if err != nil {
			return nil, fmt.Errorf("list active lab staff: %w", err)
		}
		for _, st := range staff {
			active[st.Username] = true
		}
	default:
		staff, err := s.pools.ListActiveHelpDesk(ctx)
		if err != nil {
			return nil, fmt.Errorf("list active help desk staff: %w", err)
		}
		for _, st := range staff {
			active[st.Username] = true
		}
	}
	return active, nil
}

func cacheKeyForDay(day models.DayOfWeek) string {
	return fmt.Sprintf("availability:day:%d", int(day))
}
