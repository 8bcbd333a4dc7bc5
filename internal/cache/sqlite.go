package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// entryModel is the persisted row form of an Entry. The payload round-trips
// through JSON, so a warm restart serves the same value a live process
// would, just as a generic JSON document.
type entryModel struct {
	Fingerprint string         `gorm:"primaryKey;column:fingerprint"`
	Capability  string         `gorm:"index;column:capability"`
	Payload     datatypes.JSON `gorm:"column:payload"`
	Confidence  float64        `gorm:"column:confidence"`
	Provenance  string         `gorm:"column:provenance"`
	FetchedAt   int64          `gorm:"column:fetched_at"`
	ExpiresAt   int64          `gorm:"column:expires_at"`
}

func (entryModel) TableName() string { return "cache_entries" }

// SQLiteStore is the durable cache backend. It is the only state the system
// persists across restarts.
type SQLiteStore struct {
	db *gorm.DB

	now func() time.Time
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("cache database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&entryModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, fingerprint string) (*Entry, bool, error) {
	return s.get(ctx, fingerprint, false)
}

func (s *SQLiteStore) GetStale(ctx context.Context, fingerprint string) (*Entry, bool, error) {
	return s.get(ctx, fingerprint, true)
}

func (s *SQLiteStore) get(ctx context.Context, fingerprint string, stale bool) (*Entry, bool, error) {
	var row entryModel
	err := s.db.WithContext(ctx).Where("fingerprint = ?", fingerprint).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	entry, err := rowToEntry(row)
	if err != nil {
		return nil, false, err
	}
	if entry.Expired(s.now()) != stale {
		return nil, false, nil
	}
	return entry, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry.Result.Payload)
	if err != nil {
		return fmt.Errorf("marshaling cache payload failed: %w", err)
	}
	row := entryModel{
		Fingerprint: entry.Fingerprint,
		Capability:  entry.Capability,
		Payload:     datatypes.JSON(payload),
		Confidence:  entry.Result.Confidence,
		Provenance:  entry.Result.Provenance,
		FetchedAt:   entry.Result.FetchedAt.UnixMilli(),
		ExpiresAt:   entry.ExpiresAt.UnixMilli(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fingerprint"}},
		UpdateAll: true,
	}).Create(&row).Error
}

func (s *SQLiteStore) EvictCapability(ctx context.Context, capability string) (int64, error) {
	res := s.db.WithContext(ctx).Where("capability = ?", capability).Delete(&entryModel{})
	return res.RowsAffected, res.Error
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func rowToEntry(row entryModel) (*Entry, error) {
	var payload any
	if len(row.Payload) > 0 {
		if err := json.Unmarshal(row.Payload, &payload); err != nil {
			return nil, fmt.Errorf("unmarshaling cache payload failed: %w", err)
		}
	}
	entry := Entry{
		Fingerprint: row.Fingerprint,
		Capability:  row.Capability,
		ExpiresAt:   time.UnixMilli(row.ExpiresAt),
	}
	entry.Result.Payload = payload
	entry.Result.Confidence = row.Confidence
	entry.Result.Provenance = row.Provenance
	entry.Result.FetchedAt = time.UnixMilli(row.FetchedAt)
	return &entry, nil
}
