package mint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rwa-portal/anchorgate/src/record"
	"github.com/rwa-portal/anchorgate/src/utils/apperr"
	"github.com/rwa-portal/anchorgate/src/utils/config"
	"github.com/rwa-portal/anchorgate/src/utils/model"
	"github.com/rwa-portal/anchorgate/src/utils/monitor"
	"github.com/rwa-portal/anchorgate/src/utils/publisher"
	"github.com/rwa-portal/anchorgate/src/utils/task"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/xid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Chain submits the irreversible mint transaction. A non-empty txHash
// means the transaction was broadcast even when err is non-nil.
// Implemented by eth.Client, faked in tests.
type Chain interface {
	Mint(ctx context.Context, to string, amount float64) (txHash string, err error)
}

// AnchorChecker answers whether a record is anchored on the
// permissioned ledger
type AnchorChecker interface {
	IsAnchored(ctx context.Context, id string) (bool, error)
}

// Result of one requestMint call. AlreadyMinted is a success variant,
// the returned transaction is then the prior successful one.
type Result struct {
	Transaction   model.MintTransaction
	AlreadyMinted bool
}

// Gate authorizes at most one successful mint per proof-of-reserve
// fingerprint, ever. The per-fingerprint state machine is
// unminted -> minting -> minted, with minting being a leased lock row
// in shared durable storage so the guarantee holds across service
// instances, not just goroutines.
type Gate struct {
	*task.Task

	db      *gorm.DB
	chain   Chain
	anchors AnchorChecker
	records *record.Store
	monitor *monitor.Monitor
	events  chan publisher.Event

	// Effective lease on a minting claim, never shorter than one full
	// submit-and-confirm attempt so a live mint can't lose its lock
	leaseDuration time.Duration
}

func NewGate(config *config.Config) (self *Gate) {
	self = new(Gate)

	self.Task = task.NewTask(config, "mint-gate").
		WithPeriodicSubtaskFunc(config.Minter.JanitorPeriod, self.expireLeases)

	self.leaseDuration = config.Minter.LockLeaseDuration
	if floor := config.Minter.ConfirmationTimeout + config.Minter.MaxElapsedTime; self.leaseDuration < floor {
		self.Log.WithField("configured", config.Minter.LockLeaseDuration).
			WithField("effective", floor).
			Warn("Mint lock lease is shorter than a full mint attempt, raising it")
		self.leaseDuration = floor
	}

	return
}

func (self *Gate) WithDB(v *gorm.DB) *Gate {
	self.db = v
	return self
}

func (self *Gate) WithChain(v Chain) *Gate {
	self.chain = v
	return self
}

func (self *Gate) WithAnchorChecker(v AnchorChecker) *Gate {
	self.anchors = v
	return self
}

func (self *Gate) WithRecordStore(v *record.Store) *Gate {
	self.records = v
	return self
}

func (self *Gate) WithMonitor(v *monitor.Monitor) *Gate {
	self.monitor = v
	return self
}

func (self *Gate) WithEventChannel(v chan publisher.Event) *Gate {
	self.events = v
	return self
}

// RequestMint resolves the record, claims its fingerprint, performs
// the chain mint and appends the outcome to the transaction ledger.
func (self *Gate) RequestMint(ctx context.Context, id string) (out Result, err error) {
	rec, err := self.records.Get(ctx, id)
	if err != nil {
		return
	}

	por, err := self.records.ProofOfReserveOf(rec)
	if err != nil {
		return
	}
	if !por.Verified {
		err = apperr.Validation("proofOfReserve", "must be verified before minting")
		return
	}

	if self.Config.Minter.RequireAnchored {
		var anchored bool
		anchored, err = self.anchors.IsAnchored(ctx, id)
		if err != nil {
			return
		}
		if !anchored {
			err = apperr.Validation("record", "must be anchored on the ledger before minting")
			return
		}
	}

	fingerprint := rec.RwaHash
	lockId := xid.New().String()

	prior, claimed, err := self.claim(ctx, fingerprint, lockId)
	if err != nil {
		return
	}
	if !claimed {
		self.monitor.Report.MintsDuplicate.Inc()
		self.Log.WithField("rwa_hash", fingerprint).Info("Proof of reserve already minted")
		return Result{Transaction: prior, AlreadyMinted: true}, nil
	}

	amount := por.TotalAmount()
	txHash, err := self.mintOnChain(ctx, rec.WalletAddress, amount)
	if err != nil {
		self.release(fingerprint, lockId, rec, amount, txHash, err)
		self.monitor.Report.MintsFailed.Inc()

		switch {
		case errors.Is(err, apperr.ErrMintFailed):
			// Terminal input or contract problem, already classified
		case txHash == "":
			err = fmt.Errorf("%w: %s", apperr.ErrChainUnavailable, err)
		default:
			err = fmt.Errorf("%w: %s", apperr.ErrMintFailed, err)
		}
		return
	}

	out.Transaction = model.MintTransaction{
		WalletAddress:  rec.WalletAddress,
		MintedAmount:   amount,
		EthTxHash:      txHash,
		MintedAt:       time.Now(),
		RwaHash:        fingerprint,
		SourceRecordId: id,
		Outcome:        model.MintOutcomeSuccess,
	}

	// Terminal state and the audit row commit together. The state row
	// is upserted, not updated, so a lost lease can't leave a confirmed
	// mint without its minted marker.
	err = self.db.WithContext(self.Ctx).Transaction(func(tx *gorm.DB) (err error) {
		err = tx.Create(&out.Transaction).Error
		if err != nil {
			return
		}
		now := time.Now()
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "rwa_hash"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"state":      model.FingerprintMinted,
				"updated_at": now,
			}),
		}).Create(&model.MintState{
			RwaHash:        fingerprint,
			State:          model.FingerprintMinted,
			LockedBy:       lockId,
			LeaseExpiresAt: now,
			UpdatedAt:      now,
		}).Error
	})
	if err != nil {
		// The chain tx is confirmed, losing the ledger row here would
		// allow a double mint, so this is logged loudly and surfaced
		self.Log.WithError(err).WithField("tx", txHash).Error("Failed to persist confirmed mint")
		self.monitor.Report.Errors.DbError.Inc()
		return
	}

	self.monitor.Report.MintsSucceeded.Inc()
	self.publish(publisher.Event{Event: "minted", RecordId: id, RwaHash: fingerprint, EthTxHash: txHash})
	self.Log.WithField("id", id).
		WithField("rwa_hash", fingerprint).
		WithField("tx", txHash).
		Info("Mint confirmed")
	return
}

// ListTransactions returns the audit ledger, newest first
func (self *Gate) ListTransactions(ctx context.Context) (out []model.MintTransaction, err error) {
	err = self.db.WithContext(ctx).
		Table(model.TableMintTransaction).
		Order("minted_at DESC").
		Find(&out).
		Error
	if err != nil {
		self.monitor.Report.Errors.DbError.Inc()
	}
	return
}

// claim atomically moves the fingerprint from unminted to minting.
// Returns claimed=false with the prior successful transaction when the
// fingerprint is already minted, ErrConflict when another mint holds an
// unexpired lease.
func (self *Gate) claim(ctx context.Context, fingerprint, lockId string) (prior model.MintTransaction, claimed bool, err error) {
	now := time.Now()
	state := model.MintState{
		RwaHash:        fingerprint,
		State:          model.FingerprintMinting,
		LockedBy:       lockId,
		LeaseExpiresAt: now.Add(self.leaseDuration),
		UpdatedAt:      now,
	}

	// Insert-if-absent on the primary key is the single atomic
	// operation that closes the race between concurrent requests
	result := self.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "rwa_hash"}},
			DoNothing: true,
		}).
		Create(&state)
	if result.Error != nil {
		self.monitor.Report.Errors.DbError.Inc()
		err = result.Error
		return
	}
	if result.RowsAffected == 1 {
		claimed = true
		return
	}

	// Row already exists, inspect it
	var existing model.MintState
	err = self.db.WithContext(ctx).
		Where("rwa_hash = ?", fingerprint).
		First(&existing).
		Error
	if err != nil {
		self.monitor.Report.Errors.DbError.Inc()
		return
	}

	if existing.State == model.FingerprintMinted {
		err = self.db.WithContext(ctx).
			Where("rwa_hash = ? AND outcome = ?", fingerprint, model.MintOutcomeSuccess).
			First(&prior).
			Error
		if err != nil {
			self.monitor.Report.Errors.DbError.Inc()
		}
		return
	}

	if existing.LeaseExpiresAt.After(now) {
		self.monitor.Report.MintConflicts.Inc()
		err = apperr.ErrConflict
		return
	}

	// The previous holder abandoned its attempt, retake the lease with
	// a conditional update so only one retaker wins
	retake := self.db.WithContext(ctx).
		Model(&model.MintState{}).
		Where("rwa_hash = ? AND state = ? AND lease_expires_at < ?",
			fingerprint, model.FingerprintMinting, now).
		Updates(map[string]interface{}{
			"locked_by":        lockId,
			"lease_expires_at": now.Add(self.leaseDuration),
			"updated_at":       now,
		})
	if retake.Error != nil {
		self.monitor.Report.Errors.DbError.Inc()
		err = retake.Error
		return
	}
	if retake.RowsAffected == 0 {
		self.monitor.Report.MintConflicts.Inc()
		err = apperr.ErrConflict
		return
	}

	self.monitor.Report.LeasesExpired.Inc()
	claimed = true
	return
}

// mintOnChain bounds the whole submit-and-confirm call with the
// confirmation timeout. Transient RPC errors are retried only until
// the transaction is broadcast, a broadcast mint must never be re-sent.
func (self *Gate) mintOnChain(ctx context.Context, to string, amount float64) (txHash string, err error) {
	mintCtx, cancel := context.WithTimeout(ctx, self.Config.Minter.ConfirmationTimeout)
	defer cancel()

	err = task.NewRetry().
		WithContext(mintCtx).
		WithMaxElapsedTime(self.Config.Minter.MaxElapsedTime).
		WithMaxInterval(self.Config.Minter.MaxInterval).
		WithOnError(func(err error, isDurationAcceptable bool) error {
			if txHash != "" {
				// Broadcast already happened, retrying would double mint
				return backoff.Permanent(err)
			}
			if errors.Is(err, apperr.ErrChainUnavailable) {
				return backoff.Permanent(err)
			}
			if errors.Is(err, apperr.ErrMintFailed) {
				// Bad calldata or recipient, retrying cannot help
				return backoff.Permanent(err)
			}
			self.Log.WithError(err).Error("Chain RPC failed before broadcast, retrying")
			self.monitor.Report.Errors.ChainError.Inc()
			return err
		}).
		Run(func() (err error) {
			txHash, err = self.chain.Mint(mintCtx, to, amount)
			return
		})
	return
}

// release reverts minting -> unminted after a failed attempt and
// appends the failed transaction for audit. Runs on the task context,
// the caller may already be gone.
func (self *Gate) release(fingerprint, lockId string, rec model.Record, amount float64, txHash string, cause error) {
	failed := model.MintTransaction{
		WalletAddress:  rec.WalletAddress,
		MintedAmount:   amount,
		EthTxHash:      txHash,
		MintedAt:       time.Now(),
		RwaHash:        fingerprint,
		SourceRecordId: rec.Id,
		Outcome:        model.MintOutcomeFailed,
		ChainError:     cause.Error(),
	}
	err := self.db.WithContext(self.Ctx).Create(&failed).Error
	if err != nil {
		self.Log.WithError(err).Error("Failed to record failed mint attempt")
		self.monitor.Report.Errors.DbError.Inc()
	}

	err = self.db.WithContext(self.Ctx).
		Where("rwa_hash = ? AND state = ? AND locked_by = ?",
			fingerprint, model.FingerprintMinting, lockId).
		Delete(&model.MintState{}).
		Error
	if err != nil {
		self.Log.WithError(err).Error("Failed to release mint lock")
		self.monitor.Report.Errors.DbError.Inc()
	}
}

// expireLeases cleans up minting rows whose lease ran out without a
// resolution, e.g. after a crash mid-mint. Runs periodically so no
// fingerprint stays stuck in minting forever.
func (self *Gate) expireLeases() (err error) {
	// A fingerprint with a success row is minted no matter what its
	// state row claims, it must never be reopened
	succeeded := self.db.
		Table(model.TableMintTransaction).
		Select("rwa_hash").
		Where("outcome = ?", model.MintOutcomeSuccess)

	result := self.db.WithContext(self.Ctx).
		Where("state = ? AND lease_expires_at < ? AND rwa_hash NOT IN (?)",
			model.FingerprintMinting, time.Now(), succeeded).
		Delete(&model.MintState{})
	if result.Error != nil {
		if errors.Is(result.Error, context.Canceled) {
			return nil
		}
		self.Log.WithError(result.Error).Error("Failed to expire mint leases")
		self.monitor.Report.Errors.DbError.Inc()
		return nil
	}
	if result.RowsAffected > 0 {
		self.monitor.Report.LeasesExpired.Add(uint64(result.RowsAffected))
		self.Log.WithField("num", result.RowsAffected).Info("Expired abandoned mint leases")
	}
	return nil
}

func (self *Gate) publish(event publisher.Event) {
	if self.events == nil {
		return
	}
	select {
	case self.events <- event:
	default:
		self.Log.Warn("Event channel is full, dropping event")
	}
}
