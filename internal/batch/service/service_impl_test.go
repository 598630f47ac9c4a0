package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/HDZ65/crm-final-sub010/internal/batch/domain"
	"github.com/HDZ65/crm-final-sub010/internal/batch/pending"
	batchrepo "github.com/HDZ65/crm-final-sub010/internal/batch/repository"
	"github.com/HDZ65/crm-final-sub010/internal/clock"
	"github.com/HDZ65/crm-final-sub010/internal/config"
	cutoffdomain "github.com/HDZ65/crm-final-sub010/internal/cutoff/domain"
	cutoffrepo "github.com/HDZ65/crm-final-sub010/internal/cutoff/repository"
	expeditiondomain "github.com/HDZ65/crm-final-sub010/internal/expedition/domain"
	snapshotdomain "github.com/HDZ65/crm-final-sub010/internal/snapshot/domain"
	snapshotrepo "github.com/HDZ65/crm-final-sub010/internal/snapshot/repository"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeSource struct {
	due   []domain.ShipmentCandidate
	bySub map[string]*domain.SubscriptionDetails
}

func (f *fakeSource) ListDue(ctx context.Context, orgID, legalEntityID string, batchDate time.Time) ([]domain.ShipmentCandidate, error) {
	return f.due, nil
}

func (f *fakeSource) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.SubscriptionDetails, error) {
	return f.bySub[subscriptionID], nil
}

type fakeAddresses struct {
	byClient map[string]snapshotdomain.Address
}

func (f *fakeAddresses) GetClientAddress(ctx context.Context, orgID, clientID string) (*snapshotdomain.Address, error) {
	address, ok := f.byClient[clientID]
	if !ok {
		return nil, nil
	}
	return &address, nil
}

type fakePreferences struct {
	bySub map[string]map[string]any
}

func (f *fakePreferences) GetSubscriptionPreferences(ctx context.Context, orgID, subscriptionID string) (map[string]any, error) {
	if prefs, ok := f.bySub[subscriptionID]; ok {
		return prefs, nil
	}
	return map[string]any{}, nil
}

type fakeBridge struct {
	next    int
	failOn  map[string]bool // keyed by product id
	created []expeditiondomain.CreateExpeditionRequest
}

func (f *fakeBridge) CreateExpedition(ctx context.Context, req expeditiondomain.CreateExpeditionRequest) (*expeditiondomain.Expedition, error) {
	if f.failOn[req.ProductID] {
		return nil, errors.New("carrier unavailable")
	}
	f.created = append(f.created, req)
	f.next++
	return &expeditiondomain.Expedition{ID: fmt.Sprintf("exp-%d", f.next)}, nil
}

type fakeResolver struct {
	orgID string
}

func (f *fakeResolver) ResolveOrganisation(ctx context.Context, legalEntityID string) (string, error) {
	return f.orgID, nil
}

type fixture struct {
	db        *gorm.DB
	svc       domain.Service
	source    *fakeSource
	addresses *fakeAddresses
	prefs     *fakePreferences
	bridge    *fakeBridge
}

func newFixture(t *testing.T, mutate ...func(*ServiceParam)) *fixture {
	t.Helper()
	db := setupBatchTestDB(t)

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	source := &fakeSource{bySub: map[string]*domain.SubscriptionDetails{}}
	addresses := &fakeAddresses{byClient: map[string]snapshotdomain.Address{
		"client-1": {Street: "12 rue des Lilas", PostalCode: "75011", City: "Paris", Country: "FR"},
		"client-2": {Street: "3 avenue Foch", PostalCode: "69006", City: "Lyon", Country: "FR"},
	}}
	prefs := &fakePreferences{bySub: map[string]map[string]any{}}
	bridge := &fakeBridge{failOn: map[string]bool{}}

	param := ServiceParam{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clock.SystemClock{},
		Config:      config.Config{DefaultTransporteurAccountID: "acct-default"},
		Batches:     batchrepo.Provide(),
		Lines:       batchrepo.ProvideLines(),
		Pending:     pending.NewStore(),
		Cutoffs:     cutoffrepo.Provide(),
		AddrSnap:    snapshotrepo.ProvideAddress(),
		PrefSnap:    snapshotrepo.ProvidePreference(),
		Source:      source,
		Addresses:   addresses,
		Preferences: prefs,
		Bridge:      bridge,
	}
	for _, m := range mutate {
		m(&param)
	}

	return &fixture{
		db:        db,
		svc:       NewService(param),
		source:    source,
		addresses: addresses,
		prefs:     prefs,
		bridge:    bridge,
	}
}

func setupBatchTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS fulfillment_batches (
			id BIGINT PRIMARY KEY,
			organisation_id TEXT NOT NULL,
			legal_entity_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'OPEN',
			batch_date TIMESTAMP NOT NULL,
			line_count INTEGER NOT NULL DEFAULT 0,
			locked_at TIMESTAMP,
			dispatched_at TIMESTAMP,
			completed_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_fulfillment_batches_open
			ON fulfillment_batches (legal_entity_id) WHERE status = 'OPEN'`,
		`CREATE TABLE IF NOT EXISTS fulfillment_batch_lines (
			id BIGINT PRIMARY KEY,
			organisation_id TEXT NOT NULL,
			batch_id BIGINT NOT NULL,
			subscription_id TEXT NOT NULL,
			client_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			address_snapshot_id BIGINT NOT NULL,
			preference_snapshot_id BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT 'TO_PREPARE',
			expedition_id TEXT NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT '',
			transporteur_account_id TEXT NOT NULL DEFAULT '',
			contract_id TEXT NOT NULL DEFAULT '',
			product_name TEXT NOT NULL DEFAULT '',
			weight_kg REAL NOT NULL DEFAULT 0,
			order_reference TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS address_snapshots (
			id BIGINT PRIMARY KEY,
			organisation_id TEXT NOT NULL,
			client_id TEXT NOT NULL,
			street TEXT NOT NULL,
			postal_code TEXT NOT NULL,
			city TEXT NOT NULL,
			country TEXT NOT NULL,
			captured_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS preference_snapshots (
			id BIGINT PRIMARY KEY,
			organisation_id TEXT NOT NULL,
			subscription_id TEXT NOT NULL,
			preferences TEXT,
			captured_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cutoff_configurations (
			id BIGINT PRIMARY KEY,
			organisation_id TEXT NOT NULL,
			legal_entity_id TEXT NOT NULL,
			day_of_week INTEGER NOT NULL,
			cutoff_time TEXT NOT NULL,
			timezone TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pending_candidates (
			batch_id BIGINT NOT NULL,
			subscription_id TEXT NOT NULL,
			organisation_id TEXT NOT NULL,
			client_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			transporteur_account_id TEXT NOT NULL DEFAULT '',
			contract_id TEXT NOT NULL DEFAULT '',
			product_name TEXT NOT NULL DEFAULT '',
			weight_kg REAL NOT NULL DEFAULT 0,
			order_reference TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (batch_id, subscription_id)
		)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func insertCutoffConfig(t *testing.T, db *gorm.DB, id int64, orgID, legalEntityID string, day int, cutoffTime, timezone string, active bool) {
	t.Helper()
	now := time.Now().UTC()
	err := db.Create(&cutoffdomain.Configuration{
		ID:             snowflake.ID(id),
		OrganisationID: orgID,
		LegalEntityID:  legalEntityID,
		DayOfWeek:      day,
		CutoffTime:     cutoffTime,
		Timezone:       timezone,
		Active:         active,
		CreatedAt:      now,
		UpdatedAt:      now,
	}).Error
	if err != nil {
		t.Fatalf("insert cutoff config: %v", err)
	}
}

func chargedEvent(subscriptionID string, quantity int) domain.SubscriptionChargedEvent {
	return domain.SubscriptionChargedEvent{
		SubscriptionID: subscriptionID,
		OrganisationID: "org-1",
		LegalEntityID:  "soc-1",
		ClientID:       "client-1",
		ProductID:      "prod-1",
		Quantity:       quantity,
	}
}

func TestTransitionMonotonicity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	batch, err := f.svc.CreateBatch(ctx, "org-1", "soc-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := batch.ID.String()

	if _, err := f.svc.DispatchBatch(ctx, id); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("dispatch from OPEN: expected INVALID_TRANSITION, got %v", err)
	}
	if _, err := f.svc.CompleteBatch(ctx, id); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("complete from OPEN: expected INVALID_TRANSITION, got %v", err)
	}

	if _, err := f.svc.LockBatch(ctx, id); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if _, err := f.svc.LockBatch(ctx, id); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("second lock: expected INVALID_TRANSITION, got %v", err)
	}
	if _, err := f.svc.CompleteBatch(ctx, id); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("complete from LOCKED: expected INVALID_TRANSITION, got %v", err)
	}

	if _, err := f.svc.DispatchBatch(ctx, id); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if _, err := f.svc.LockBatch(ctx, id); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("lock from DISPATCHED: expected INVALID_TRANSITION, got %v", err)
	}

	if _, err := f.svc.CompleteBatch(ctx, id); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.svc.DispatchBatch(ctx, id); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("dispatch from COMPLETED: expected INVALID_TRANSITION, got %v", err)
	}
}

func TestLockBatchUnknownID(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.LockBatch(context.Background(), "123456789"); !errors.Is(err, domain.ErrBatchNotFound) {
		t.Fatalf("expected BATCH_NOT_FOUND, got %v", err)
	}
	if _, err := f.svc.LockBatch(context.Background(), "not-a-batch-id"); !errors.Is(err, domain.ErrBatchNotFound) {
		t.Fatalf("expected BATCH_NOT_FOUND for malformed id, got %v", err)
	}
}

func TestEndToEndLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.prefs.bySub["sub-1"] = map[string]any{"engraving": "A&M"}

	if err := f.svc.HandleSubscriptionCharged(ctx, chargedEvent("sub-1", 2)); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	batch, err := f.svc.GetOpenBatch(ctx, "soc-1")
	if err != nil {
		t.Fatalf("get open batch: %v", err)
	}
	if batch.LineCount != 1 {
		t.Fatalf("advisory line count: expected 1, got %d", batch.LineCount)
	}

	locked, err := f.svc.LockBatch(ctx, batch.ID.String())
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if locked.Status != domain.BatchStatusLocked || locked.LockedAt == nil {
		t.Fatalf("expected LOCKED with locked_at, got %+v", locked)
	}
	if locked.LineCount != 1 {
		t.Fatalf("line count after lock: expected 1, got %d", locked.LineCount)
	}

	var lines []domain.BatchLine
	if err := f.db.Where("batch_id = ?", batch.ID).Find(&lines).Error; err != nil {
		t.Fatalf("load lines: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].Quantity != 2 || lines[0].Status != domain.LineStatusToPrepare {
		t.Fatalf("unexpected line: %+v", lines[0])
	}
	if lines[0].AddressSnapshotID == 0 || lines[0].PreferenceSnapshotID == 0 {
		t.Fatal("line must reference both snapshots")
	}

	dispatched, err := f.svc.DispatchBatch(ctx, batch.ID.String())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if dispatched.Status != domain.BatchStatusDispatched || dispatched.DispatchedAt == nil {
		t.Fatalf("expected DISPATCHED with dispatched_at, got %+v", dispatched)
	}

	if err := f.db.Where("batch_id = ?", batch.ID).Find(&lines).Error; err != nil {
		t.Fatalf("reload lines: %v", err)
	}
	if lines[0].Status != domain.LineStatusShipped || lines[0].ExpeditionID == "" {
		t.Fatalf("expected SHIPPED line with expedition id, got %+v", lines[0])
	}

	completed, err := f.svc.CompleteBatch(ctx, batch.ID.String())
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != domain.BatchStatusCompleted || completed.CompletedAt == nil {
		t.Fatalf("expected COMPLETED with completed_at, got %+v", completed)
	}
}

func TestHandleSubscriptionChargedIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.HandleSubscriptionCharged(ctx, chargedEvent("sub-1", 2)); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := f.svc.HandleSubscriptionCharged(ctx, chargedEvent("sub-1", 2)); err != nil {
		t.Fatalf("second delivery: %v", err)
	}

	batch, err := f.svc.GetOpenBatch(ctx, "soc-1")
	if err != nil {
		t.Fatalf("get open batch: %v", err)
	}
	if _, err := f.svc.LockBatch(ctx, batch.ID.String()); err != nil {
		t.Fatalf("lock: %v", err)
	}

	var count int64
	if err := f.db.Model(&domain.BatchLine{}).Where("batch_id = ?", batch.ID).Count(&count).Error; err != nil {
		t.Fatalf("count lines: %v", err)
	}
	if count != 1 {
		t.Fatalf("redelivered event must produce exactly one line, got %d", count)
	}
}

func TestHandleSubscriptionChargedResolvesSparsePayload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.source.bySub["sub-7"] = &domain.SubscriptionDetails{
		OrganisationID: "org-1",
		LegalEntityID:  "soc-1",
		ShipmentCandidate: domain.ShipmentCandidate{
			SubscriptionID: "sub-7",
			ClientID:       "client-1",
			ProductID:      "prod-7",
			Quantity:       1,
		},
	}

	err := f.svc.HandleSubscriptionCharged(ctx, domain.SubscriptionChargedEvent{SubscriptionID: "sub-7"})
	if err != nil {
		t.Fatalf("sparse payload should resolve via source, got %v", err)
	}

	err = f.svc.HandleSubscriptionCharged(ctx, domain.SubscriptionChargedEvent{SubscriptionID: "sub-unknown"})
	if !errors.Is(err, domain.ErrChargedPayloadInvalid) {
		t.Fatalf("expected SUBSCRIPTION_CHARGED_PAYLOAD_INVALID, got %v", err)
	}

	err = f.svc.HandleSubscriptionCharged(ctx, domain.SubscriptionChargedEvent{})
	if !errors.Is(err, domain.ErrChargedPayloadInvalid) {
		t.Fatalf("expected SUBSCRIPTION_CHARGED_PAYLOAD_INVALID for empty payload, got %v", err)
	}
}

// lockRaceBatches marks the open batch LOCKED right after it is looked up,
// reproducing a cutoff job winning the race against an in-flight enqueue.
type lockRaceBatches struct {
	domain.Repository
	db    *gorm.DB
	raced bool
}

func (r *lockRaceBatches) FindOpenByLegalEntity(ctx context.Context, db *gorm.DB, legalEntityID string) (*domain.Batch, error) {
	batch, err := r.Repository.FindOpenByLegalEntity(ctx, db, legalEntityID)
	if err != nil || batch == nil || r.raced {
		return batch, err
	}
	r.raced = true
	execErr := r.db.Exec(
		`UPDATE fulfillment_batches SET status = ? WHERE id = ?`,
		domain.BatchStatusLocked, batch.ID,
	).Error
	if execErr != nil {
		return nil, execErr
	}
	return batch, nil
}

func TestHandleSubscriptionChargedRetargetsWhenBatchLocks(t *testing.T) {
	var race *lockRaceBatches
	f := newFixture(t, func(p *ServiceParam) {
		race = &lockRaceBatches{Repository: p.Batches, db: p.DB}
		p.Batches = race
	})
	ctx := context.Background()

	first, err := f.svc.CreateBatch(ctx, "org-1", "soc-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.svc.HandleSubscriptionCharged(ctx, chargedEvent("sub-1", 2)); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if !race.raced {
		t.Fatal("the lock race never triggered")
	}

	// The candidate must not be stranded on the batch that locked mid-enqueue.
	var strandedCount int64
	if err := f.db.Table("pending_candidates").Where("batch_id = ?", first.ID).Count(&strandedCount).Error; err != nil {
		t.Fatalf("count stranded: %v", err)
	}
	if strandedCount != 0 {
		t.Fatalf("candidate stranded on the locked batch, %d rows", strandedCount)
	}

	next, err := f.svc.GetOpenBatch(ctx, "soc-1")
	if err != nil {
		t.Fatalf("get open batch: %v", err)
	}
	if next.ID == first.ID {
		t.Fatal("expected a fresh open batch after the race")
	}
	if next.LineCount != 1 {
		t.Fatalf("advisory count on the new batch: expected 1, got %d", next.LineCount)
	}

	locked, err := f.svc.LockBatch(ctx, next.ID.String())
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if locked.LineCount != 1 {
		t.Fatalf("the retargeted candidate must become a line, got %d", locked.LineCount)
	}
}

func TestLockBatchFailsWhenClientAddressMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	delete(f.addresses.byClient, "client-1")

	if err := f.svc.HandleSubscriptionCharged(ctx, chargedEvent("sub-1", 1)); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	batch, err := f.svc.GetOpenBatch(ctx, "soc-1")
	if err != nil {
		t.Fatalf("get open batch: %v", err)
	}

	_, err = f.svc.LockBatch(ctx, batch.ID.String())
	if !errors.Is(err, domain.ErrClientAddressNotFound) {
		t.Fatalf("expected CLIENT_ADDRESS_NOT_FOUND, got %v", err)
	}

	// The failed lock rolls back whole: batch still OPEN, candidate still queued.
	reloaded, err := f.svc.GetOpenBatch(ctx, "soc-1")
	if err != nil {
		t.Fatalf("reload batch: %v", err)
	}
	if reloaded.ID != batch.ID || reloaded.Status != domain.BatchStatusOpen {
		t.Fatalf("batch must stay OPEN after a failed lock, got %+v", reloaded)
	}
	var queued int64
	if err := f.db.Table("pending_candidates").Where("batch_id = ?", batch.ID).Count(&queued).Error; err != nil {
		t.Fatalf("count queued: %v", err)
	}
	if queued != 1 {
		t.Fatalf("candidate must survive the rollback, got %d rows", queued)
	}
}

func TestCandidatePrecedencePendingWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.source.due = []domain.ShipmentCandidate{
		{SubscriptionID: "sub-1", ClientID: "client-1", ProductID: "prod-1", Quantity: 1},
	}

	if err := f.svc.HandleSubscriptionCharged(ctx, chargedEvent("sub-1", 5)); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	batch, err := f.svc.GetOpenBatch(ctx, "soc-1")
	if err != nil {
		t.Fatalf("get open batch: %v", err)
	}
	if _, err := f.svc.LockBatch(ctx, batch.ID.String()); err != nil {
		t.Fatalf("lock: %v", err)
	}

	var lines []domain.BatchLine
	if err := f.db.Where("batch_id = ?", batch.ID).Find(&lines).Error; err != nil {
		t.Fatalf("load lines: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 merged line, got %d", len(lines))
	}
	if lines[0].Quantity != 5 {
		t.Fatalf("pending candidate must win: expected quantity 5, got %d", lines[0].Quantity)
	}
}

func TestSnapshotImmutability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.HandleSubscriptionCharged(ctx, chargedEvent("sub-1", 1)); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	batch, err := f.svc.GetOpenBatch(ctx, "soc-1")
	if err != nil {
		t.Fatalf("get open batch: %v", err)
	}
	if _, err := f.svc.LockBatch(ctx, batch.ID.String()); err != nil {
		t.Fatalf("lock: %v", err)
	}

	// The client moves house after lock.
	f.addresses.byClient["client-1"] = snapshotdomain.Address{
		Street: "99 boulevard Nouveau", PostalCode: "33000", City: "Bordeaux", Country: "FR",
	}

	var line domain.BatchLine
	if err := f.db.Where("batch_id = ?", batch.ID).First(&line).Error; err != nil {
		t.Fatalf("load line: %v", err)
	}
	var snap snapshotdomain.AddressSnapshot
	if err := f.db.First(&snap, "id = ?", line.AddressSnapshotID).Error; err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if snap.Street != "12 rue des Lilas" || snap.City != "Paris" {
		t.Fatalf("snapshot changed after the live address moved: %+v", snap)
	}

	// Dispatch still ships to the frozen address.
	if _, err := f.svc.DispatchBatch(ctx, batch.ID.String()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(f.bridge.created) != 1 || f.bridge.created[0].AddressLine1 != "12 rue des Lilas" {
		t.Fatalf("expedition must use the snapshot address, got %+v", f.bridge.created)
	}
}

func TestDispatchPartialFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.source.due = []domain.ShipmentCandidate{
		{SubscriptionID: "sub-a", ClientID: "client-1", ProductID: "prod-a", Quantity: 1},
		{SubscriptionID: "sub-b", ClientID: "client-2", ProductID: "prod-b", Quantity: 1},
	}
	f.bridge.failOn["prod-a"] = true

	batch, err := f.svc.CreateBatch(ctx, "org-1", "soc-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.LockBatch(ctx, batch.ID.String()); err != nil {
		t.Fatalf("lock: %v", err)
	}

	dispatched, err := f.svc.DispatchBatch(ctx, batch.ID.String())
	if err != nil {
		t.Fatalf("dispatch must not fail on a single bad line: %v", err)
	}
	if dispatched.Status != domain.BatchStatusDispatched {
		t.Fatalf("batch must still transition, got %s", dispatched.Status)
	}

	var lines []domain.BatchLine
	if err := f.db.Where("batch_id = ?", batch.ID).Order("subscription_id").Find(&lines).Error; err != nil {
		t.Fatalf("load lines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Status != domain.LineStatusError || lines[0].ErrorMessage == "" {
		t.Fatalf("failing line must be ERROR with a message, got %+v", lines[0])
	}
	if lines[1].Status != domain.LineStatusShipped || lines[1].ExpeditionID == "" {
		t.Fatalf("healthy line must be SHIPPED, got %+v", lines[1])
	}

	// Once the carrier recovers, the failed line can be retried out of band.
	delete(f.bridge.failOn, "prod-a")
	shipped, err := f.svc.RedispatchFailedLines(ctx, batch.ID.String())
	if err != nil {
		t.Fatalf("redispatch: %v", err)
	}
	if shipped != 1 {
		t.Fatalf("expected 1 line to ship on retry, got %d", shipped)
	}

	var retried domain.BatchLine
	if err := f.db.Where("batch_id = ? AND subscription_id = ?", batch.ID, "sub-a").First(&retried).Error; err != nil {
		t.Fatalf("reload retried line: %v", err)
	}
	if retried.Status != domain.LineStatusShipped || retried.ExpeditionID == "" || retried.ErrorMessage != "" {
		t.Fatalf("retried line must be SHIPPED with the error cleared, got %+v", retried)
	}
}

func TestRedispatchRequiresDispatchedBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	batch, err := f.svc.CreateBatch(ctx, "org-1", "soc-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.RedispatchFailedLines(ctx, batch.ID.String()); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("redispatch on OPEN batch: expected INVALID_TRANSITION, got %v", err)
	}
}

func TestDispatchRequiresTransporteurAccount(t *testing.T) {
	f := newFixture(t, func(p *ServiceParam) {
		p.Config.DefaultTransporteurAccountID = ""
	})
	ctx := context.Background()
	f.source.due = []domain.ShipmentCandidate{
		{SubscriptionID: "sub-1", ClientID: "client-1", ProductID: "prod-1", Quantity: 1},
	}

	batch, err := f.svc.CreateBatch(ctx, "org-1", "soc-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.LockBatch(ctx, batch.ID.String()); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if _, err := f.svc.DispatchBatch(ctx, batch.ID.String()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	var line domain.BatchLine
	if err := f.db.Where("batch_id = ?", batch.ID).First(&line).Error; err != nil {
		t.Fatalf("load line: %v", err)
	}
	if line.Status != domain.LineStatusError {
		t.Fatalf("expected ERROR line, got %s", line.Status)
	}
	if !strings.Contains(line.ErrorMessage, "TRANSPORTEUR_ACCOUNT_REQUIRED") {
		t.Fatalf("recorded message must carry the stable code, got %q", line.ErrorMessage)
	}
}

func TestGetOpenBatchResolution(t *testing.T) {
	t.Run("resolver wins", func(t *testing.T) {
		f := newFixture(t, func(p *ServiceParam) {
			p.Resolver = &fakeResolver{orgID: "org-resolved"}
			p.Config.DefaultOrganisationID = "org-default"
		})
		batch, err := f.svc.GetOpenBatch(context.Background(), "soc-1")
		if err != nil {
			t.Fatalf("get open batch: %v", err)
		}
		if batch.OrganisationID != "org-resolved" {
			t.Fatalf("expected resolver organisation, got %q", batch.OrganisationID)
		}
	})

	t.Run("cutoff configuration fallback", func(t *testing.T) {
		f := newFixture(t)
		insertCutoffConfig(t, f.db, 900, "org-from-config", "soc-2", 0, "12:00", "UTC", true)

		batch, err := f.svc.GetOpenBatch(context.Background(), "soc-2")
		if err != nil {
			t.Fatalf("get open batch: %v", err)
		}
		if batch.OrganisationID != "org-from-config" {
			t.Fatalf("expected configuration organisation, got %q", batch.OrganisationID)
		}
	})

	t.Run("configured default fallback", func(t *testing.T) {
		f := newFixture(t, func(p *ServiceParam) {
			p.Config.DefaultOrganisationID = "org-default"
		})
		batch, err := f.svc.GetOpenBatch(context.Background(), "soc-3")
		if err != nil {
			t.Fatalf("get open batch: %v", err)
		}
		if batch.OrganisationID != "org-default" {
			t.Fatalf("expected default organisation, got %q", batch.OrganisationID)
		}
	})

	t.Run("unresolved", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.GetOpenBatch(context.Background(), "soc-4")
		if !errors.Is(err, domain.ErrOrganisationNotResolved) {
			t.Fatalf("expected ORGANISATION_NOT_RESOLVED, got %v", err)
		}
	})

	t.Run("returns the existing open batch", func(t *testing.T) {
		f := newFixture(t)
		created, err := f.svc.CreateBatch(context.Background(), "org-1", "soc-5")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		found, err := f.svc.GetOpenBatch(context.Background(), "soc-5")
		if err != nil {
			t.Fatalf("get open batch: %v", err)
		}
		if found.ID != created.ID {
			t.Fatalf("expected the existing open batch %s, got %s", created.ID, found.ID)
		}
	})
}

func TestRunCutoffJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	insertCutoffConfig(t, f.db, 901, "org-1", "soc-1", 0, "12:00", "UTC", true)
	// Active configuration with no open batch: skipped silently.
	insertCutoffConfig(t, f.db, 902, "org-1", "soc-idle", 0, "12:00", "UTC", true)
	// Inactive configuration: never evaluated.
	insertCutoffConfig(t, f.db, 903, "org-1", "soc-1", 0, "00:00", "UTC", false)

	batch, err := f.svc.CreateBatch(ctx, "org-1", "soc-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Monday 2026-01-05 11:59 UTC: cutoff not reached.
	locked, err := f.svc.RunCutoffJob(ctx, "org-1", time.Date(2026, 1, 5, 11, 59, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("cutoff job: %v", err)
	}
	if len(locked) != 0 {
		t.Fatalf("expected no locks before the cutoff, got %d", len(locked))
	}

	// Monday 12:00 UTC: cutoff reached.
	locked, err = f.svc.RunCutoffJob(ctx, "org-1", time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("cutoff job: %v", err)
	}
	if len(locked) != 1 || locked[0].ID != batch.ID {
		t.Fatalf("expected exactly the open batch to lock, got %+v", locked)
	}
	if locked[0].Status != domain.BatchStatusLocked {
		t.Fatalf("expected LOCKED, got %s", locked[0].Status)
	}

	// Re-running finds nothing open: silent no-op.
	locked, err = f.svc.RunCutoffJob(ctx, "org-1", time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("cutoff job rerun: %v", err)
	}
	if len(locked) != 0 {
		t.Fatalf("expected no further locks, got %d", len(locked))
	}
}
