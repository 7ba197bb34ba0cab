// Package dashboard loads district reports for the portal pages, the JSON
// API and the MCP tools.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bobmcallan/mgnrega-portal/internal/cache"
	"github.com/bobmcallan/mgnrega-portal/internal/common"
	"github.com/bobmcallan/mgnrega-portal/internal/models"
)

// ErrInvalidCoordinates is returned by Locate for out-of-range input.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// FallbackDistricts is offered when the district list cannot be fetched.
var FallbackDistricts = []models.District{
	{Code: "nagpur", Name: "Nagpur"},
	{Code: "pune", Name: "Pune"},
}

// fetchTimeout bounds a shared fetch once it is detached from the caller.
const fetchTimeout = 30 * time.Second

var gluedFamilies = regexp.MustCompile(`(\d)(families)`)

// NormalizeSummary inserts the missing space between a number and
// "families" that some upstream summaries carry.
func NormalizeSummary(s string) string {
	return gluedFamilies.ReplaceAllString(s, "$1 $2")
}

// LoadState is the state of a dashboard data load.
type LoadState int

const (
	StateLoading LoadState = iota
	StateLoaded
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("LoadState(%d)", int(s))
	}
}

// LoadResult is the outcome of Service.Load.
type LoadResult struct {
	State  LoadState
	Report *models.Report
	Err    error
}

// SnapshotStore persists last-known-good reports.
type SnapshotStore interface {
	SaveReport(ctx context.Context, key string, report *models.Report) error
	LoadReport(ctx context.Context, key string) (*models.Report, error)
	DeleteReport(ctx context.Context, key string) error
	ListForDistrict(ctx context.Context, districtCode string) ([]models.SnapshotInfo, error)
}

// Service loads district data from a Source, with an in-memory cache in
// front and an optional snapshot store behind.
type Service struct {
	source    Source
	cache     *cache.Cache[*models.Report]
	snapshots SnapshotStore
	group     singleflight.Group
	logger    *common.Logger
}

// NewService creates a dashboard service. The cache and snapshot store may be nil.
func NewService(source Source, reportCache *cache.Cache[*models.Report], snapshots SnapshotStore, logger *common.Logger) *Service {
	return &Service{
		source:    source,
		cache:     reportCache,
		snapshots: snapshots,
		logger:    logger,
	}
}

// Districts returns the district list. When the source fails the
// fallback list is returned with fallback set.
func (s *Service) Districts(ctx context.Context) (districts []models.District, fallback bool) {
	list, err := s.source.Districts(ctx)
	if err != nil || len(list) == 0 {
		if err != nil {
			s.logger.Warn().Err(err).Msg("district list unavailable, using fallback")
		}
		return append([]models.District(nil), FallbackDistricts...), true
	}
	return list, false
}

// Load fetches the report for a district. Concurrent loads of the same
// key share one upstream request. A caller whose context ends first
// gets a Failed result carrying the context error.
func (s *Service) Load(ctx context.Context, code, month string) LoadResult {
	if code == "" {
		return LoadResult{State: StateFailed, Err: errors.New("district code is required")}
	}

	key := cache.MakeKey(code, month)
	if s.cache != nil {
		if report, ok := s.cache.Get(key); ok {
			return LoadResult{State: StateLoaded, Report: copyReport(report)}
		}
	}

	ch := s.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		return s.fetch(fetchCtx, key, code, month)
	})

	select {
	case <-ctx.Done():
		return LoadResult{State: StateFailed, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return LoadResult{State: StateFailed, Err: res.Err}
		}
		return LoadResult{State: StateLoaded, Report: copyReport(res.Val.(*models.Report))}
	}
}

func (s *Service) fetch(ctx context.Context, key, code, month string) (*models.Report, error) {
	start := time.Now()
	report, err := s.source.Report(ctx, code, month)
	if err != nil {
		if stale := s.loadSnapshot(ctx, key); stale != nil {
			s.logger.Warn().
				Str("district", code).
				Err(err).
				Msg("serving stale snapshot")
			return stale, nil
		}
		return nil, fmt.Errorf("failed to load report for %s: %w", code, err)
	}

	if report.DistrictCode == "" {
		report.DistrictCode = code
	}
	if report.DistrictName == "" {
		report.DistrictName = code
	}
	report.Summary = NormalizeSummary(report.Summary)
	report.Stale = false

	if s.cache != nil {
		s.cache.Set(key, report)
	}
	if s.snapshots != nil {
		if err := s.snapshots.SaveReport(ctx, key, report); err != nil {
			s.logger.Warn().Str("key", key).Err(err).Msg("failed to save snapshot")
		}
	}

	s.logger.Debug().
		Str("district", code).
		Str("month", month).
		Dur("elapsed", time.Since(start)).
		Msg("report loaded")

	return report, nil
}

func (s *Service) loadSnapshot(ctx context.Context, key string) *models.Report {
	if s.snapshots == nil {
		return nil
	}
	report, err := s.snapshots.LoadReport(ctx, key)
	if err != nil || report == nil {
		return nil
	}
	report.Stale = true
	return report
}

// Snapshots lists the saved reports of a district, newest first. Without
// a snapshot store the list is empty.
func (s *Service) Snapshots(ctx context.Context, code string) ([]models.SnapshotInfo, error) {
	if s.snapshots == nil {
		return nil, nil
	}
	return s.snapshots.ListForDistrict(ctx, code)
}

// Forget drops every cached and saved report of a district so the next
// load goes to the source. It returns the number of snapshots removed.
func (s *Service) Forget(ctx context.Context, code string) (int, error) {
	if s.cache != nil {
		s.cache.InvalidatePrefix(cache.DistrictPrefix(code))
	}
	if s.snapshots == nil {
		return 0, nil
	}

	list, err := s.snapshots.ListForDistrict(ctx, code)
	if err != nil {
		return 0, err
	}
	for i, snap := range list {
		if err := s.snapshots.DeleteReport(ctx, snap.Key); err != nil {
			return i, err
		}
	}

	s.logger.Info().Str("district", code).Int("snapshots", len(list)).Msg("district reports forgotten")
	return len(list), nil
}

// Locate resolves coordinates to a district code.
func (s *Service) Locate(ctx context.Context, lat, lon float64) (string, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return "", err
	}
	return s.source.Locate(ctx, lat, lon)
}

// ValidateCoordinates checks latitude and longitude ranges.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidCoordinates, lat, lon)
	}
	return nil
}

// copyReport isolates callers from the cached value.
func copyReport(r *models.Report) *models.Report {
	if r == nil {
		return nil
	}
	out := *r
	out.Trend = append([]models.TrendPoint(nil), r.Trend...)
	if r.Comparisons != nil {
		out.Comparisons = make(models.Comparisons, len(r.Comparisons))
		for k, v := range r.Comparisons {
			out.Comparisons[k] = v
		}
	}
	return &out
}
