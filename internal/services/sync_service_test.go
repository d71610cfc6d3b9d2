package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-sync-service/internal/clients"
	"catalog-sync-service/internal/config"
	"catalog-sync-service/internal/models"
)

// fakeRunStore is an in-memory runStore recording progress writes and the
// finalized run.
type fakeRunStore struct {
	mu        sync.Mutex
	created   []*models.SyncRun
	progress  []int
	finalized *models.SyncRun
}

func (f *fakeRunStore) CreateRun(_ context.Context, run *models.SyncRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, run)
	return nil
}

func (f *fakeRunStore) GetRunByID(_ context.Context, id uuid.UUID) (*models.SyncRun, error) {
	return nil, fmt.Errorf("not found")
}

func (f *fakeRunStore) ListRuns(_ context.Context, limit int) ([]models.SyncRun, error) {
	return nil, nil
}

func (f *fakeRunStore) UpdateProgress(_ context.Context, _ uuid.UUID, progress int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = append(f.progress, progress)
	return nil
}

func (f *fakeRunStore) FinalizeRun(_ context.Context, run *models.SyncRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalized = run
	return nil
}

func writeFeeds(t *testing.T, incoming, delisted string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "items_1.csv"), []byte(incoming), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "oos_1.csv"), []byte(delisted), 0o644))
	return dir
}

func newTestSyncService(feedDir string, client *fakeCatalogClient, store *fakeRunStore) *SyncService {
	cfg := &config.Config{
		FeedDir:            feedDir,
		IncomingFeedPrefix: "items",
		IncomingFeedSuffix: ".csv",
		DelistedFeedPrefix: "oos",
		DelistedFeedSuffix: ".csv",
		LocationID:         "loc-1",
		DelistedPolicy:     models.DelistedZeroStock,
	}
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	return &SyncService{
		runRepo:      store,
		indexSvc:     NewIndexService(client),
		reconcileSvc: NewReconcileService(client, cfg.LocationID),
		inventorySvc: NewInventoryService(client, cfg.LocationID, cfg.DelistedPolicy),
		cfg:          cfg,
		logger:       logger,
	}
}

func TestExecuteRunCompletes(t *testing.T) {
	dir := writeFeeds(t,
		"001;Widget;desc;BrandX;Cat;Sub;1234567890123;19.99;10;BEC1;http://img\n",
		"999;x;x;x;x;x\n")
	client := newFakeCatalogClient(
		clients.ProductRef{ProductID: "p9", Barcode: "999", InventoryItemID: "i9"},
	)
	store := &fakeRunStore{}
	svc := newTestSyncService(dir, client, store)

	run := &models.SyncRun{ID: uuid.New(), Status: models.RunStatusRunning}
	svc.executeRun(run)

	require.NotNil(t, store.finalized)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.CreatedCount)
	assert.Equal(t, 0, run.FailedCount)
	assert.Equal(t, 100, run.Progress)
	assert.Equal(t, "created 1, updated 0, failures 0", run.Summary)

	// One reconcile adjustment (+10) plus one delisted zeroing.
	require.Len(t, client.adjustCalls, 2)
	assert.Equal(t, 10, client.adjustCalls[0][0].Delta)
	assert.Equal(t, 0, client.adjustCalls[1][0].Delta)

	require.NotEmpty(t, store.progress)
	last := 0
	for _, p := range store.progress {
		assert.GreaterOrEqual(t, p, last)
		last = p
	}
	assert.Equal(t, 100, last)
}

func TestExecuteRunPartialOnLedgerEntries(t *testing.T) {
	dir := writeFeeds(t,
		"001;Widget;desc;BrandX;Cat;Sub;1234567890123;19.99;10;BEC1;\n",
		"888;x;x;x;x;x\n")
	client := newFakeCatalogClient()
	store := &fakeRunStore{}
	svc := newTestSyncService(dir, client, store)

	run := &models.SyncRun{ID: uuid.New(), Status: models.RunStatusRunning}
	svc.executeRun(run)

	assert.Equal(t, models.RunStatusPartial, run.Status)
	require.Len(t, run.Ledger, 1)
	assert.Equal(t, "not found: 888", run.Ledger[0])
	assert.Equal(t, 1, run.FailedCount)
}

func TestExecuteRunFailsOnIndexError(t *testing.T) {
	dir := writeFeeds(t,
		"001;Widget;desc;BrandX;Cat;Sub;1234567890123;19.99;10;BEC1;\n",
		"999;x;x;x;x;x\n")
	client := newFakeCatalogClient()
	client.queryErr = fmt.Errorf("connection refused")
	store := &fakeRunStore{}
	svc := newTestSyncService(dir, client, store)

	run := &models.SyncRun{ID: uuid.New(), Status: models.RunStatusRunning}
	svc.executeRun(run)

	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Contains(t, run.ErrorMessage, "connection refused")
	assert.Empty(t, client.setBatches)
	assert.Empty(t, client.adjustCalls)
}

func TestExecuteRunFailsOnMissingFeed(t *testing.T) {
	dir := t.TempDir()
	client := newFakeCatalogClient()
	store := &fakeRunStore{}
	svc := newTestSyncService(dir, client, store)

	run := &models.SyncRun{ID: uuid.New(), Status: models.RunStatusRunning}
	svc.executeRun(run)

	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Equal(t, 0, client.queryCalls)
}

func TestCollectKeysDeduplicatesAcrossFeeds(t *testing.T) {
	incoming := []models.IncomingProduct{
		{Barcode: "111"},
		{Barcode: "222"},
		{Barcode: "111"},
	}
	delisted := []models.DelistedProduct{
		{Code: "222"},
		{Code: "333"},
	}

	assert.Equal(t, []string{"111", "222", "333"}, collectKeys(incoming, delisted))
}

func TestCollectKeysNormalizes(t *testing.T) {
	incoming := []models.IncomingProduct{{Barcode: " 111� "}}
	delisted := []models.DelistedProduct{{Code: "111"}}

	assert.Equal(t, []string{"111"}, collectKeys(incoming, delisted))
}

func TestCollectKeysSkipsEmpty(t *testing.T) {
	incoming := []models.IncomingProduct{{Barcode: "  "}}
	assert.Empty(t, collectKeys(incoming, nil))
}

func TestValidateIncomingRecordsRejections(t *testing.T) {
	svc := &SyncService{}
	rc := testRunContext()

	valid := svc.validateIncoming(rc, []models.IncomingProduct{
		{Code: "001", Title: "Widget", Barcode: "111", Price: decimal.RequireFromString("1.00"), Stock: 1},
		{Code: "002", Title: "", Barcode: "222", Price: decimal.RequireFromString("1.00"), Stock: 1},
	})

	require.Len(t, valid, 1)
	assert.Equal(t, "001", valid[0].Code)

	entries := rc.Ledger.Entries()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0], "validation rejected product 002")
}

func TestValidateDelistedRecordsRejections(t *testing.T) {
	svc := &SyncService{}
	rc := testRunContext()

	valid := svc.validateDelisted(rc, []models.DelistedProduct{
		{Code: "999"},
		{Code: ""},
	})

	require.Len(t, valid, 1)
	assert.Equal(t, "999", valid[0].Code)
	assert.Equal(t, 1, rc.Ledger.Len())
}
