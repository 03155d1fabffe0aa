package anchor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rwa-portal/anchorgate/src/utils/apperr"
	"github.com/rwa-portal/anchorgate/src/utils/config"
	"github.com/rwa-portal/anchorgate/src/utils/model"
	"github.com/rwa-portal/anchorgate/src/utils/monitor"
	"github.com/rwa-portal/anchorgate/src/utils/publisher"
	"github.com/rwa-portal/anchorgate/src/utils/task"

	"github.com/jackc/pgtype"
	cache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const anchoredIdsCacheKey = "anchored-ids"

// Ledger is the permissioned ledger transport. Implemented by
// fabric.Client, faked in tests.
type Ledger interface {
	Submit(name string, args ...string) ([]byte, error)
}

// Service idempotently anchors records on the permissioned ledger.
// Chaincode submissions go through a bounded worker pool, the Fabric
// gateway doesn't cope well with unbounded concurrency.
type Service struct {
	*task.Task

	db      *gorm.DB
	ledger  Ledger
	monitor *monitor.Monitor
	events  chan publisher.Event

	// Read-back of anchored ids is served from this TTL cache
	anchoredIds *cache.Cache
}

func NewService(config *config.Config) (self *Service) {
	self = new(Service)

	self.anchoredIds = cache.New(config.Fabric.AnchoredCacheTTL, 5*time.Minute)

	self.Task = task.NewTask(config, "anchor").
		WithSubtaskFunc(self.run).
		WithWorkerPool(config.Fabric.MaxWorkers, config.Fabric.MaxQueueSize)

	return
}

// Keeps the worker pool alive until the task is stopped
func (self *Service) run() (err error) {
	<-self.StopChannel
	return
}

func (self *Service) WithDB(v *gorm.DB) *Service {
	self.db = v
	return self
}

// WithLedger sets the Fabric transport, nil means anchors are only
// persisted in the database
func (self *Service) WithLedger(v Ledger) *Service {
	self.ledger = v
	return self
}

func (self *Service) WithMonitor(v *monitor.Monitor) *Service {
	self.monitor = v
	return self
}

func (self *Service) WithEventChannel(v chan publisher.Event) *Service {
	self.events = v
	return self
}

// Anchor writes the record's canonical fields to the permissioned
// ledger, keyed by record id. Re-anchoring is a no-op success, fresh
// reports whether this call created the entry.
func (self *Service) Anchor(ctx context.Context, id string) (entry model.AnchorEntry, fresh bool, err error) {
	// Fast path, the entry may already exist
	err = self.db.WithContext(ctx).
		Where("record_id = ?", id).
		First(&entry).
		Error
	if err == nil {
		self.monitor.Report.AnchorsDuplicate.Inc()
		return entry, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		self.monitor.Report.Errors.DbError.Inc()
		return
	}

	var rec model.Record
	err = self.db.WithContext(ctx).
		Where("id = ?", id).
		First(&rec).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = apperr.ErrNotFound
		return
	}
	if err != nil {
		self.monitor.Report.Errors.DbError.Inc()
		return
	}

	payload, err := canonicalPayload(&rec)
	if err != nil {
		return
	}

	err = self.writeLedger(ctx, id, payload)
	if err != nil {
		return
	}

	var payloadJSONB pgtype.JSONB
	err = payloadJSONB.Set(payload)
	if err != nil {
		return
	}

	entry = model.AnchorEntry{
		RecordId:   id,
		Payload:    payloadJSONB,
		AnchoredAt: time.Now(),
	}

	// Insert-if-absent, a concurrent anchor of the same id loses the
	// race gracefully and reads back the winner's entry
	result := self.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "record_id"}},
			DoNothing: true,
		}).
		Create(&entry)
	if result.Error != nil {
		self.monitor.Report.Errors.DbError.Inc()
		err = result.Error
		return
	}
	if result.RowsAffected == 0 {
		err = self.db.WithContext(ctx).
			Where("record_id = ?", id).
			First(&entry).
			Error
		if err != nil {
			return
		}
		self.monitor.Report.AnchorsDuplicate.Inc()
		return entry, false, nil
	}

	self.anchoredIds.Delete(anchoredIdsCacheKey)
	self.monitor.Report.AnchorsFresh.Inc()
	self.publish(publisher.Event{Event: "anchored", RecordId: id, RwaHash: rec.RwaHash})

	self.Log.WithField("id", id).Info("Record anchored")
	return entry, true, nil
}

// ListAnchored returns the deduplicated set of anchored record ids
func (self *Service) ListAnchored(ctx context.Context) (out map[string]struct{}, err error) {
	cached, ok := self.anchoredIds.Get(anchoredIdsCacheKey)
	if ok {
		return cached.(map[string]struct{}), nil
	}

	var ids []string
	err = self.db.WithContext(ctx).
		Table(model.TableAnchorEntry).
		Pluck("record_id", &ids).
		Error
	if err != nil {
		self.monitor.Report.Errors.DbError.Inc()
		return
	}

	out = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}

	self.anchoredIds.SetDefault(anchoredIdsCacheKey, out)
	return
}

// ListEntries returns every anchored record's canonical payload
func (self *Service) ListEntries(ctx context.Context) (out []model.AnchorEntry, err error) {
	err = self.db.WithContext(ctx).
		Table(model.TableAnchorEntry).
		Order("anchored_at ASC").
		Find(&out).
		Error
	if err != nil {
		self.monitor.Report.Errors.DbError.Inc()
	}
	return
}

// IsAnchored is the mint gate's optional precondition check
func (self *Service) IsAnchored(ctx context.Context, id string) (anchored bool, err error) {
	ids, err := self.ListAnchored(ctx)
	if err != nil {
		return
	}
	_, anchored = ids[id]
	return
}

// writeLedger submits the chaincode transaction through the worker
// pool with bounded backoff
func (self *Service) writeLedger(ctx context.Context, id string, payload []byte) (err error) {
	if self.ledger == nil {
		return
	}

	resultChannel := make(chan error, 1)
	submitted := self.SubmitToWorker(func() {
		resultChannel <- task.NewRetry().
			WithContext(ctx).
			WithMaxElapsedTime(self.Config.Fabric.MaxElapsedTime).
			WithMaxInterval(self.Config.Fabric.MaxInterval).
			WithOnError(func(err error, isDurationAcceptable bool) error {
				self.Log.WithError(err).WithField("id", id).Error("Ledger write failed, retrying")
				self.monitor.Report.Errors.FabricError.Inc()
				return err
			}).
			Run(func() (err error) {
				_, err = self.ledger.Submit("StoreRecord", id, string(payload))
				return
			})
	})
	if !submitted {
		return fmt.Errorf("%w: submission queue is full", apperr.ErrLedgerUnavailable)
	}

	select {
	case err = <-resultChannel:
		if err != nil {
			err = fmt.Errorf("%w: %s", apperr.ErrLedgerUnavailable, err)
		}
	case <-ctx.Done():
		err = ctx.Err()
	}
	return
}

func (self *Service) publish(event publisher.Event) {
	if self.events == nil {
		return
	}
	select {
	case self.events <- event:
	default:
		self.Log.Warn("Event channel is full, dropping event")
	}
}

func canonicalPayload(rec *model.Record) ([]byte, error) {
	doc := map[string]interface{}{
		"id":             rec.Id,
		"submitterType":  rec.SubmitterType,
		"walletAddress":  rec.WalletAddress,
		"rwa_hash":       rec.RwaHash,
		"anchoredSource": "anchorgate",
	}
	if rec.Deploy.Status == pgtype.Present {
		doc["deploy"] = json.RawMessage(rec.Deploy.Bytes)
	}
	if rec.ProofOfReserve.Status == pgtype.Present {
		doc["proof_of_reserve"] = json.RawMessage(rec.ProofOfReserve.Bytes)
	}
	return json.Marshal(doc)
}
