package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ttc-tools/ttc-price-export/internal/types"
)

// =============================================================================
// RECORDING CONNECTION POOL
// =============================================================================

// sqlRecorder captures the statements gorm sends to MySQL.
type sqlRecorder struct {
	mu         sync.Mutex
	execs      []string
	args       [][]interface{}
	begins     int
	commits    int
	rollbacks  int
	failInsert error
}

type execResult int64

func (r execResult) LastInsertId() (int64, error) { return 1, nil }
func (r execResult) RowsAffected() (int64, error) { return int64(r), nil }

func (r *sqlRecorder) PrepareContext(context.Context, string) (*sql.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (r *sqlRecorder) ExecContext(_ context.Context, query string, args ...interface{}) (sql.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.execs = append(r.execs, query)
	r.args = append(r.args, args)
	if r.failInsert != nil && strings.HasPrefix(query, "INSERT") {
		return nil, r.failInsert
	}
	return execResult(1), nil
}

func (r *sqlRecorder) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, errors.New("query not supported")
}

func (r *sqlRecorder) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}

func (r *sqlRecorder) inserts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, q := range r.execs {
		if strings.HasPrefix(q, "INSERT") {
			out = append(out, q)
		}
	}
	return out
}

// recordingPool is the connection pool; BeginTx hands out a recordingTx.
type recordingPool struct{ *sqlRecorder }

func (p recordingPool) BeginTx(context.Context, *sql.TxOptions) (gorm.ConnPool, error) {
	p.mu.Lock()
	p.begins++
	p.mu.Unlock()
	return &recordingTx{p.sqlRecorder}, nil
}

type recordingTx struct{ *sqlRecorder }

func (t recordingTx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.commits++
	return nil
}

func (t recordingTx) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollbacks++
	return nil
}

func newRecordingStore(t *testing.T, batchSize int) (*Store, *sqlRecorder) {
	t.Helper()

	rec := &sqlRecorder{}
	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      recordingPool{rec},
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger:               gormlogger.Discard,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return New(db, batchSize), rec
}

var snapshotRecords = []types.PriceRecord{
	{Key: types.RecordKey{"4521", "1", "50", "", ""}, Price: types.PriceInfo{Avg: 10.5, Max: 20, Min: 5, EntryCount: 3, AmountCount: 4}},
	{Key: types.RecordKey{"9001", "", "", "", ""}, Price: types.PriceInfo{Avg: 1, Max: 2, Min: 1, EntryCount: 1, AmountCount: 1}},
}

// =============================================================================
// TESTS
// =============================================================================

func TestSavePrices_UpsertsOnSnapshotIdentity(t *testing.T) {
	t.Parallel()

	s, rec := newRecordingStore(t, 0)
	at := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)

	n, err := s.SavePrices(context.Background(), "NA", at, snapshotRecords)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	inserts := rec.inserts()
	require.Len(t, inserts, 1)
	assert.True(t, strings.HasPrefix(inserts[0], "INSERT INTO `price_snapshots`"), inserts[0])
	assert.True(t, strings.HasSuffix(inserts[0], " ON DUPLICATE KEY UPDATE "+
		"`avg`=VALUES(`avg`),`max`=VALUES(`max`),`min`=VALUES(`min`),"+
		"`entry_count`=VALUES(`entry_count`),`amount_count`=VALUES(`amount_count`),"+
		"`suggested_price`=VALUES(`suggested_price`),`sale_avg`=VALUES(`sale_avg`),"+
		"`sale_entry_count`=VALUES(`sale_entry_count`),`sale_amount_count`=VALUES(`sale_amount_count`)"), inserts[0])
	assert.NotContains(t, inserts[0], "`region`=VALUES")
	assert.NotContains(t, inserts[0], "`created_at`=VALUES")

	assert.Contains(t, rec.args[0], "NA")
	assert.Contains(t, rec.args[0], "4521")
	assert.Contains(t, rec.args[0], "9001")

	assert.Equal(t, 1, rec.begins)
	assert.Equal(t, 1, rec.commits)
	assert.Equal(t, 0, rec.rollbacks)
}

func TestSavePrices_SplitsBatchesInOneTransaction(t *testing.T) {
	t.Parallel()

	s, rec := newRecordingStore(t, 1)

	n, err := s.SavePrices(context.Background(), "EU", time.Unix(1700000000, 0), snapshotRecords)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, rec.inserts(), 2)
	assert.Equal(t, 1, rec.begins)
	assert.Equal(t, 1, rec.commits)
}

func TestSavePrices_RollsBackOnFailure(t *testing.T) {
	t.Parallel()

	s, rec := newRecordingStore(t, 0)
	rec.failInsert = errors.New("deadlock found")

	n, err := s.SavePrices(context.Background(), "NA", time.Unix(1700000000, 0), snapshotRecords)
	require.Error(t, err)
	assert.ErrorIs(t, err, rec.failInsert)
	assert.Contains(t, err.Error(), "failed to save NA snapshot")
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, rec.commits)
	assert.Equal(t, 1, rec.rollbacks)
}

func TestSaveLookup_UpsertsNames(t *testing.T) {
	t.Parallel()

	s, rec := newRecordingStore(t, 0)

	n, err := s.SaveLookup(context.Background(), types.Lookup{"9001": "Iron Shield", "4521": "Steel Sword"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	inserts := rec.inserts()
	require.Len(t, inserts, 1)
	assert.True(t, strings.HasPrefix(inserts[0], "INSERT INTO `item_names`"), inserts[0])
	assert.True(t, strings.HasSuffix(inserts[0],
		" ON DUPLICATE KEY UPDATE `name`=VALUES(`name`),`updated_at`=VALUES(`updated_at`)"), inserts[0])
}

func TestSave_EmptyInputSkipsDatabase(t *testing.T) {
	t.Parallel()

	s, rec := newRecordingStore(t, 0)

	n, err := s.SavePrices(context.Background(), "NA", time.Now(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = s.SaveLookup(context.Background(), types.Lookup{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.Empty(t, rec.execs)
	assert.Equal(t, 0, rec.begins)
}
