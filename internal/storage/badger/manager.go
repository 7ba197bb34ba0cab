package badger

import (
	"fmt"
	"os"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/mgnrega-portal/internal/common"
	"github.com/bobmcallan/mgnrega-portal/internal/config"
)

// Manager owns the badgerhold store and the storages built on it.
type Manager struct {
	store   *badgerhold.Store
	path    string
	reports *ReportStorage
	logger  *common.Logger
}

// NewManager opens the snapshot store at cfg.Path, creating the directory
// when missing.
func NewManager(logger *common.Logger, cfg *config.BadgerConfig) (*Manager, error) {
	store, err := openStore(cfg.Path)
	if err != nil {
		return nil, err
	}

	logger.Debug().Str("path", cfg.Path).Msg("snapshot store opened")

	return &Manager{
		store:   store,
		path:    cfg.Path,
		reports: NewReportStorage(store, logger),
		logger:  logger,
	}, nil
}

func openStore(path string) (*badgerhold.Store, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store %s: %w", path, err)
	}
	return store, nil
}

// Path returns the directory holding the store.
func (m *Manager) Path() string {
	return m.path
}

// Reports returns the report snapshot storage.
func (m *Manager) Reports() *ReportStorage {
	return m.reports
}

// Close closes the store. It is safe to call more than once.
func (m *Manager) Close() error {
	if m.store == nil {
		return nil
	}
	err := m.store.Close()
	m.store = nil
	return err
}
