package badger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/bobmcallan/mgnrega-portal/internal/cache"
	"github.com/bobmcallan/mgnrega-portal/internal/common"
	"github.com/bobmcallan/mgnrega-portal/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ErrNotFound is returned when no snapshot exists for a key.
var ErrNotFound = errors.New("snapshot not found")

// ReportEntry is a last-known-good district report stored in BadgerDB.
type ReportEntry struct {
	Key          string `badgerhold:"key"`
	DistrictCode string
	Month        string
	Report       models.Report
	SavedAt      time.Time
}

// ReportStorage persists district report snapshots so the dashboard can
// still render when the upstream API is unavailable.
type ReportStorage struct {
	store  *badgerhold.Store
	logger *common.Logger
}

// NewReportStorage creates report snapshot storage on store.
func NewReportStorage(store *badgerhold.Store, logger *common.Logger) *ReportStorage {
	return &ReportStorage{
		store:  store,
		logger: logger,
	}
}

// SaveReport upserts the snapshot for key.
func (s *ReportStorage) SaveReport(_ context.Context, key string, report *models.Report) error {
	if report == nil {
		return fmt.Errorf("nil report for key %s", key)
	}
	entry := ReportEntry{
		Key:          key,
		DistrictCode: report.DistrictCode,
		Month:        report.Month,
		Report:       *report,
		SavedAt:      time.Now().UTC(),
	}
	entry.Report.Stale = false

	if err := s.store.Upsert(key, &entry); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", key, err)
	}
	return nil
}

// LoadReport returns the snapshot for key, or ErrNotFound.
func (s *ReportStorage) LoadReport(_ context.Context, key string) (*models.Report, error) {
	var entry ReportEntry
	err := s.store.Get(key, &entry)
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load snapshot %s: %w", key, err)
	}
	report := entry.Report
	return &report, nil
}

// DeleteReport removes the snapshot for key. Missing keys are not an error.
func (s *ReportStorage) DeleteReport(_ context.Context, key string) error {
	err := s.store.Delete(key, ReportEntry{})
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete snapshot %s: %w", key, err)
	}
	return nil
}

// ListForDistrict describes every stored snapshot of one district, newest first.
func (s *ReportStorage) ListForDistrict(_ context.Context, districtCode string) ([]models.SnapshotInfo, error) {
	var entries []ReportEntry
	err := s.store.Find(&entries, badgerhold.Where("DistrictCode").Eq(districtCode))
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots for %s: %w", districtCode, err)
	}

	slices.SortFunc(entries, func(a, b ReportEntry) int {
		return b.SavedAt.Compare(a.SavedAt)
	})

	latestKey := cache.MakeKey(districtCode, "")
	out := make([]models.SnapshotInfo, len(entries))
	for i, e := range entries {
		out[i] = models.SnapshotInfo{
			Key:          e.Key,
			DistrictCode: e.DistrictCode,
			Month:        e.Month,
			Latest:       e.Key == latestKey,
			SavedAt:      e.SavedAt,
		}
	}
	return out, nil
}
