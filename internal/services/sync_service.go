package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"catalog-sync-service/internal/clients"
	"catalog-sync-service/internal/config"
	"catalog-sync-service/internal/feed"
	"catalog-sync-service/internal/models"
	"catalog-sync-service/internal/repository"
)

// runStore is the persistence surface the orchestrator needs.
type runStore interface {
	CreateRun(ctx context.Context, run *models.SyncRun) error
	GetRunByID(ctx context.Context, id uuid.UUID) (*models.SyncRun, error)
	ListRuns(ctx context.Context, limit int) ([]models.SyncRun, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error
	FinalizeRun(ctx context.Context, run *models.SyncRun) error
}

// SyncService orchestrates catalog sync runs: feed ingestion, validation,
// index build, reconciliation and the delisted phase, strictly in sequence.
// One run at a time; concurrent runs against the same remote catalog are not
// safe and are rejected.
type SyncService struct {
	runRepo      runStore
	indexSvc     *IndexService
	reconcileSvc *ReconcileService
	inventorySvc *InventoryService
	cfg          *config.Config
	logger       *logrus.Logger

	mu        sync.Mutex
	runActive bool
}

// NewSyncService creates a new sync service
func NewSyncService(runRepo *repository.RunRepository, client clients.CatalogClient, cfg *config.Config, logger *logrus.Logger) *SyncService {
	return &SyncService{
		runRepo:      runRepo,
		indexSvc:     NewIndexService(client),
		reconcileSvc: NewReconcileService(client, cfg.LocationID),
		inventorySvc: NewInventoryService(client, cfg.LocationID, cfg.DelistedPolicy),
		cfg:          cfg,
		logger:       logger,
	}
}

// ErrRunInProgress is returned when a run is requested while another is
// still active.
var ErrRunInProgress = fmt.Errorf("a sync run is already in progress")

// StartRun creates a sync run and executes it in the background.
func (s *SyncService) StartRun(ctx context.Context, triggeredBy models.TriggerType) (*models.SyncRun, error) {
	s.mu.Lock()
	if s.runActive {
		s.mu.Unlock()
		return nil, ErrRunInProgress
	}
	s.runActive = true
	s.mu.Unlock()

	now := time.Now()
	run := &models.SyncRun{
		ID:          uuid.New(),
		Status:      models.RunStatusRunning,
		TriggeredBy: triggeredBy,
		StartedAt:   &now,
		Ledger:      models.StringList{},
	}
	if err := s.runRepo.CreateRun(ctx, run); err != nil {
		s.mu.Lock()
		s.runActive = false
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	go s.executeRun(run)
	return run, nil
}

// GetRun retrieves a sync run by ID
func (s *SyncService) GetRun(ctx context.Context, id uuid.UUID) (*models.SyncRun, error) {
	return s.runRepo.GetRunByID(ctx, id)
}

// ListRuns lists recent sync runs
func (s *SyncService) ListRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	return s.runRepo.ListRuns(ctx, limit)
}

// executeRun drives one run through every phase. Fatal errors abort the
// remaining phases; already-applied remote writes stay in place.
func (s *SyncService) executeRun(run *models.SyncRun) {
	defer func() {
		s.mu.Lock()
		s.runActive = false
		s.mu.Unlock()
	}()

	ctx := context.Background()
	rc := NewRunContext(
		s.logger.WithField("runId", run.ID),
		func(total int) {
			_ = s.runRepo.UpdateProgress(ctx, run.ID, total)
		},
	)
	rc.Log.Info("Sync run started")

	incoming, delisted, err := s.loadFeeds(rc)
	if err != nil {
		s.failRun(ctx, run, rc, err)
		return
	}

	validIncoming := s.validateIncoming(rc, incoming)
	validDelisted := s.validateDelisted(rc, delisted)

	index, err := s.indexSvc.BuildIndex(ctx, rc, collectKeys(validIncoming, validDelisted))
	if err != nil {
		s.failRun(ctx, run, rc, err)
		return
	}

	outcome, err := s.reconcileSvc.Reconcile(ctx, rc, validIncoming, index)
	if err != nil {
		s.failRun(ctx, run, rc, err)
		return
	}

	if err := s.inventorySvc.ProcessDelisted(ctx, rc, validDelisted, index); err != nil {
		s.failRun(ctx, run, rc, err)
		return
	}

	s.completeRun(ctx, run, rc, outcome)
}

// loadFeeds discovers and parses both feed files. Any failure here is a
// precondition failure: the run aborts before any remote write.
func (s *SyncService) loadFeeds(rc *RunContext) ([]models.IncomingProduct, []models.DelistedProduct, error) {
	incomingPath, err := feed.Discover(s.cfg.FeedDir, s.cfg.IncomingFeedPrefix, s.cfg.IncomingFeedSuffix)
	if err != nil {
		return nil, nil, err
	}
	delistedPath, err := feed.Discover(s.cfg.FeedDir, s.cfg.DelistedFeedPrefix, s.cfg.DelistedFeedSuffix)
	if err != nil {
		return nil, nil, err
	}

	incoming, err := parseFile(incomingPath, rc, feed.ParseIncoming)
	if err != nil {
		return nil, nil, err
	}
	delisted, err := parseFile(delistedPath, rc, feed.ParseDelisted)
	if err != nil {
		return nil, nil, err
	}

	rc.Log.WithFields(logrus.Fields{
		"incoming": len(incoming),
		"delisted": len(delisted),
	}).Info("Feeds parsed")
	return incoming, delisted, nil
}

func parseFile[T any](path string, rc *RunContext, parse func(r io.Reader, logger logrus.FieldLogger) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feed %s: %w", path, err)
	}
	defer f.Close()
	return parse(f, rc.Log)
}

func (s *SyncService) validateIncoming(rc *RunContext, products []models.IncomingProduct) []models.IncomingProduct {
	valid := make([]models.IncomingProduct, 0, len(products))
	for _, p := range products {
		if err := feed.ValidateIncoming(p); err != nil {
			rc.Ledger.Add("validation rejected product %s: %v", p.Code, err)
			continue
		}
		valid = append(valid, p)
	}
	return valid
}

func (s *SyncService) validateDelisted(rc *RunContext, products []models.DelistedProduct) []models.DelistedProduct {
	valid := make([]models.DelistedProduct, 0, len(products))
	for _, p := range products {
		if err := feed.ValidateDelisted(p); err != nil {
			rc.Ledger.Add("validation rejected delisted row: %v", err)
			continue
		}
		valid = append(valid, p)
	}
	return valid
}

// collectKeys gathers the deduplicated union of business keys across both
// feeds, preserving first-seen order.
func collectKeys(incoming []models.IncomingProduct, delisted []models.DelistedProduct) []string {
	seen := make(map[string]bool)
	var keys []string
	add := func(raw string) {
		key := feed.NormalizeKey(raw)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		keys = append(keys, key)
	}
	for _, p := range incoming {
		add(p.Barcode)
	}
	for _, p := range delisted {
		add(p.Code)
	}
	return keys
}

func (s *SyncService) completeRun(ctx context.Context, run *models.SyncRun, rc *RunContext, outcome *ReconcileOutcome) {
	run.Ledger = rc.Ledger.Entries()
	run.Progress = rc.Progress.Total()
	run.CreatedCount = outcome.Created
	run.UpdatedCount = outcome.Updated
	run.FailedCount = len(run.Ledger)
	run.Summary = fmt.Sprintf("created %d, updated %d, failures %d",
		outcome.Created, outcome.Updated, run.FailedCount)

	if run.FailedCount == 0 {
		run.Status = models.RunStatusCompleted
	} else {
		run.Status = models.RunStatusPartial
	}

	if err := s.runRepo.FinalizeRun(ctx, run); err != nil {
		rc.Log.WithError(err).Error("Failed to persist run result")
	}
	rc.Log.WithFields(logrus.Fields{
		"status":  run.Status,
		"summary": run.Summary,
	}).Info("Sync run finished")
}

func (s *SyncService) failRun(ctx context.Context, run *models.SyncRun, rc *RunContext, cause error) {
	run.Ledger = rc.Ledger.Entries()
	run.Progress = rc.Progress.Total()
	run.FailedCount = len(run.Ledger)
	run.Status = models.RunStatusFailed
	run.ErrorMessage = cause.Error()

	if err := s.runRepo.FinalizeRun(ctx, run); err != nil {
		rc.Log.WithError(err).Error("Failed to persist run result")
	}
	rc.Log.WithError(cause).Error("Sync run failed")
}
