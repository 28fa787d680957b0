// =============================================================================
// TTC Price Export - Snapshot Store
// =============================================================================
//
// This module optionally persists every export into MySQL, so price history
// can be queried without re-reading dated CSV folders.
//
// TABLES:
//   price_snapshots  one row per (region, snapshot time, record key)
//   item_names       item id -> display name, last write wins
//
// Writes are idempotent: exporting the same price table twice updates the
// existing rows instead of duplicating them.
//
// =============================================================================

package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ttc-tools/ttc-price-export/internal/config"
	"github.com/ttc-tools/ttc-price-export/internal/types"
)

// =============================================================================
// MODELS
// =============================================================================

// PriceSnapshot is one price record of one region at one point in time.
type PriceSnapshot struct {
	ID         uint      `gorm:"primaryKey"`
	Region     string    `gorm:"size:16;not null;uniqueIndex:idx_snapshot_identity,priority:1"`
	SnapshotAt time.Time `gorm:"not null;index;uniqueIndex:idx_snapshot_identity,priority:2"`
	ItemID     string    `gorm:"size:32;not null;index;uniqueIndex:idx_snapshot_identity,priority:3"`
	Quality    string    `gorm:"size:32;not null;uniqueIndex:idx_snapshot_identity,priority:4"`
	Level      string    `gorm:"size:32;not null;uniqueIndex:idx_snapshot_identity,priority:5"`
	TraitID    string    `gorm:"size:32;not null;uniqueIndex:idx_snapshot_identity,priority:6"`
	Variant    string    `gorm:"size:32;not null;uniqueIndex:idx_snapshot_identity,priority:7"`

	Avg         float64 `gorm:"not null"`
	Max         float64 `gorm:"not null"`
	Min         float64 `gorm:"not null"`
	EntryCount  uint32  `gorm:"not null"`
	AmountCount uint32  `gorm:"not null"`

	SuggestedPrice  *float64
	SaleAvg         *float64
	SaleEntryCount  *uint32
	SaleAmountCount *uint32

	CreatedAt time.Time
}

// ItemName maps an item id to its display name.
type ItemName struct {
	ItemID    string `gorm:"primaryKey;size:32"`
	Name      string `gorm:"size:255;not null"`
	UpdatedAt time.Time
}

// =============================================================================
// STORE
// =============================================================================

// Store writes snapshots through gorm.
type Store struct {
	db        *gorm.DB
	batchSize int
}

// Open connects to MySQL and migrates the schema.
func Open(cfg config.DatabaseConfig) (*Store, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(4)
	sqlDB.SetMaxOpenConns(8)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&PriceSnapshot{}, &ItemName{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return New(db, cfg.BatchSize), nil
}

// New wraps an open gorm connection.
func New(db *gorm.DB, batchSize int) *Store {
	if batchSize < 1 {
		batchSize = 500
	}
	return &Store{db: db, batchSize: batchSize}
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SavePrices upserts the records of one export in a single transaction.
//
// RETURNS:
//   - The number of rows written.
//   - An error if the transaction failed; nothing is written in that case.
func (s *Store) SavePrices(ctx context.Context, region string, snapshotAt time.Time, records []types.PriceRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	rows := ToSnapshots(region, snapshotAt, records)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "region"}, {Name: "snapshot_at"}, {Name: "item_id"},
				{Name: "quality"}, {Name: "level"}, {Name: "trait_id"}, {Name: "variant"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"avg", "max", "min", "entry_count", "amount_count",
				"suggested_price", "sale_avg", "sale_entry_count", "sale_amount_count",
			}),
		}).CreateInBatches(rows, s.batchSize).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to save %s snapshot: %w", region, err)
	}
	return len(rows), nil
}

// SaveLookup upserts item names.
func (s *Store) SaveLookup(ctx context.Context, lookup types.Lookup) (int, error) {
	if len(lookup) == 0 {
		return 0, nil
	}

	rows := ToItemNames(lookup)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).CreateInBatches(rows, s.batchSize).Error
	if err != nil {
		return 0, fmt.Errorf("failed to save item names: %w", err)
	}
	return len(rows), nil
}

// =============================================================================
// MAPPING
// =============================================================================

// ToSnapshots maps records to rows. snapshotAt is stored in UTC.
func ToSnapshots(region string, snapshotAt time.Time, records []types.PriceRecord) []PriceSnapshot {
	at := snapshotAt.UTC().Truncate(time.Second)
	rows := make([]PriceSnapshot, len(records))
	for i, r := range records {
		p := r.Price
		rows[i] = PriceSnapshot{
			Region:          region,
			SnapshotAt:      at,
			ItemID:          r.Key.ItemID(),
			Quality:         r.Key.Quality(),
			Level:           r.Key.Level(),
			TraitID:         r.Key.TraitID(),
			Variant:         r.Key.Variant(),
			Avg:             p.Avg,
			Max:             p.Max,
			Min:             p.Min,
			EntryCount:      p.EntryCount,
			AmountCount:     p.AmountCount,
			SuggestedPrice:  p.SuggestedPrice,
			SaleAvg:         p.SaleAvg,
			SaleEntryCount:  p.SaleEntryCount,
			SaleAmountCount: p.SaleAmountCount,
		}
	}
	return rows
}

// ToItemNames maps a lookup to rows in ascending id order.
func ToItemNames(lookup types.Lookup) []ItemName {
	entries := lookup.Entries()
	rows := make([]ItemName, len(entries))
	for i, e := range entries {
		rows[i] = ItemName{ItemID: e.ItemID, Name: e.Name}
	}
	return rows
}
