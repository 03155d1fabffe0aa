package record

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/rwa-portal/anchorgate/src/utils/apperr"
	"github.com/rwa-portal/anchorgate/src/utils/logger"
	"github.com/rwa-portal/anchorgate/src/utils/model"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgtype"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Caller is the explicit identity passed with every request.
// The store never reads ambient credential storage.
type Caller struct {
	IsAdmin bool

	// Institution api key, set when IsAdmin is false
	ApiKey string
}

// SubmitInput accepts the record fields minus id, in any of the
// payload shapes the portal has historically sent.
type SubmitInput struct {
	WalletAddress string          `json:"walletAddress"`
	Deploy        json.RawMessage `json:"deploy"`

	ProofOfReserve      json.RawMessage `json:"proofOfReserve"`
	ProofOfReserveSnake json.RawMessage `json:"proof_of_reserve"`
}

// Store owns durable record state and the authorization scope of reads
type Store struct {
	db  *gorm.DB
	log *logrus.Entry
}

func NewStore(db *gorm.DB) (self *Store) {
	self = new(Store)
	self.db = db
	self.log = logger.NewSublogger("record-store")
	return
}

// Submit validates, normalizes and persists a new record,
// assigning its id and fingerprint.
func (self *Store) Submit(ctx context.Context, caller Caller, in SubmitInput) (out model.Record, err error) {
	if in.WalletAddress == "" {
		err = apperr.Validation("walletAddress", "is missing")
		return
	}
	if !ethcommon.IsHexAddress(in.WalletAddress) {
		err = apperr.Validation("walletAddress", "is not a valid chain address")
		return
	}

	porData := in.ProofOfReserve
	if len(porData) == 0 {
		porData = in.ProofOfReserveSnake
	}
	por, err := NormalizeProofOfReserve(porData)
	if err != nil {
		return
	}

	porJSONB, err := por.ToJSONB()
	if err != nil {
		return
	}

	var deploy pgtype.JSONB
	if len(in.Deploy) > 0 {
		err = deploy.Set([]byte(in.Deploy))
	} else {
		err = deploy.Set(nil)
	}
	if err != nil {
		return
	}

	out = model.Record{
		Id:             xid.New().String(),
		SubmitterType:  model.SubmitterAdmin,
		WalletAddress:  in.WalletAddress,
		Deploy:         deploy,
		ProofOfReserve: porJSONB,
		RwaHash:        Fingerprint(por),
		Verified:       por.Verified,
		CreatedAt:      time.Now(),
	}
	if !caller.IsAdmin {
		out.SubmitterType = model.SubmitterInstitution
		out.ApiKey = sql.NullString{String: caller.ApiKey, Valid: true}
	}

	err = self.db.WithContext(ctx).Create(&out).Error
	if err != nil {
		self.log.WithError(err).Error("Failed to insert record")
		return
	}

	self.log.WithField("id", out.Id).WithField("rwa_hash", out.RwaHash).Debug("Record submitted")
	return
}

// Fetch returns records visible to the caller. Admins see everything,
// institutions only their own submissions. The scope is enforced here,
// not in the UI.
func (self *Store) Fetch(ctx context.Context, caller Caller) (out []model.Record, err error) {
	query := self.db.WithContext(ctx).Table(model.TableRecord)
	if !caller.IsAdmin {
		query = query.Where("api_key = ?", caller.ApiKey)
	}
	err = query.Order("created_at ASC").Find(&out).Error
	return
}

func (self *Store) Get(ctx context.Context, id string) (out model.Record, err error) {
	err = self.db.WithContext(ctx).
		Where("id = ?", id).
		First(&out).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = apperr.ErrNotFound
	}
	return
}

// UpdateVerification is an idempotent upsert of the verification
// sub-document. The fingerprint is recomputed in case balances changed.
func (self *Store) UpdateVerification(ctx context.Context, id string, por ProofOfReserve) (out model.Record, err error) {
	out, err = self.Get(ctx, id)
	if err != nil {
		return
	}

	porJSONB, err := por.ToJSONB()
	if err != nil {
		return
	}

	out.ProofOfReserve = porJSONB
	out.RwaHash = Fingerprint(por)
	out.Verified = por.Verified

	err = self.db.WithContext(ctx).
		Model(&model.Record{Id: id}).
		Updates(map[string]interface{}{
			"proof_of_reserve": out.ProofOfReserve,
			"rwa_hash":         out.RwaHash,
			"verified":         out.Verified,
		}).
		Error
	if err != nil {
		self.log.WithError(err).WithField("id", id).Error("Failed to update verification")
		return
	}
	return
}

// ListUnverified feeds the attestation poller
func (self *Store) ListUnverified(ctx context.Context, limit int) (out []model.Record, err error) {
	err = self.db.WithContext(ctx).
		Table(model.TableRecord).
		Where("verified = ?", false).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).
		Error
	return
}

// ProofOfReserveOf decodes the canonical sub-document of a record
func (self *Store) ProofOfReserveOf(rec model.Record) (ProofOfReserve, error) {
	return ProofOfReserveFromJSONB(rec.ProofOfReserve)
}

// AuthenticateInstitution resolves an api key pair to an institution.
// The secret comparison is constant time, the same error is returned
// for an unknown key and a bad secret.
func (self *Store) AuthenticateInstitution(ctx context.Context, apiKey, apiSecret string) (out model.Institution, err error) {
	err = self.db.WithContext(ctx).
		Where("api_key = ?", apiKey).
		First(&out).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = apperr.ErrUnauthorized
		return
	}
	if err != nil {
		return
	}

	hash := sha256.Sum256([]byte(apiSecret))
	if subtle.ConstantTimeCompare([]byte(hex.EncodeToString(hash[:])), []byte(out.ApiSecretHash)) != 1 {
		err = apperr.ErrUnauthorized
		return
	}
	return
}
