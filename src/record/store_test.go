package record

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/rwa-portal/anchorgate/src/utils/apperr"
	"github.com/rwa-portal/anchorgate/src/utils/model"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

const testWallet = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

type StoreTestSuite struct {
	suite.Suite
	ctx   context.Context
	db    *gorm.DB
	store *Store
}

func (s *StoreTestSuite) SetupTest() {
	s.ctx = context.Background()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", s.T().Name())), &gorm.Config{})
	require.Nil(s.T(), err)
	err = db.AutoMigrate(&model.Record{}, &model.Institution{})
	require.Nil(s.T(), err)

	s.db = db
	s.store = NewStore(db)
}

func (s *StoreTestSuite) submit(caller Caller, por string) model.Record {
	rec, err := s.store.Submit(s.ctx, caller, SubmitInput{
		WalletAddress:  testWallet,
		ProofOfReserve: json.RawMessage(por),
	})
	require.Nil(s.T(), err)
	return rec
}

func (s *StoreTestSuite) TestSubmitAssignsIdAndFingerprint() {
	rec := s.submit(Caller{IsAdmin: true}, `{"balances":{"usdt":100.5}}`)

	assert.NotEmpty(s.T(), rec.Id)
	assert.NotEmpty(s.T(), rec.RwaHash)
	assert.Equal(s.T(), model.SubmitterAdmin, rec.SubmitterType)
	assert.False(s.T(), rec.Verified)
	assert.False(s.T(), rec.ApiKey.Valid)

	loaded, err := s.store.Get(s.ctx, rec.Id)
	assert.Nil(s.T(), err)
	assert.Equal(s.T(), rec.RwaHash, loaded.RwaHash)
}

func (s *StoreTestSuite) TestSubmitVariantsShareFingerprint() {
	a := s.submit(Caller{IsAdmin: true}, `{"balances":{"usdt":100.5}}`)
	b := s.submit(Caller{IsAdmin: true}, `{"usdtBalance":100.5}`)

	assert.NotEqual(s.T(), a.Id, b.Id)
	assert.Equal(s.T(), a.RwaHash, b.RwaHash)
}

func (s *StoreTestSuite) TestSubmitRejectsMissingWallet() {
	_, err := s.store.Submit(s.ctx, Caller{IsAdmin: true}, SubmitInput{
		ProofOfReserve: json.RawMessage(`{"balances":{"usdt":1}}`),
	})
	assert.True(s.T(), apperr.IsValidation(err))
	assert.Equal(s.T(), "walletAddress is missing", err.Error())

	var count int64
	s.db.Table(model.TableRecord).Count(&count)
	assert.Zero(s.T(), count)
}

func (s *StoreTestSuite) TestSubmitRejectsInvalidWallet() {
	_, err := s.store.Submit(s.ctx, Caller{IsAdmin: true}, SubmitInput{
		WalletAddress:  "not-an-address",
		ProofOfReserve: json.RawMessage(`{"balances":{"usdt":1}}`),
	})
	assert.True(s.T(), apperr.IsValidation(err))
}

func (s *StoreTestSuite) TestSubmitStampsInstitution() {
	rec := s.submit(Caller{ApiKey: "inst-a"}, `{"balances":{"usdt":1}}`)

	assert.Equal(s.T(), model.SubmitterInstitution, rec.SubmitterType)
	assert.True(s.T(), rec.ApiKey.Valid)
	assert.Equal(s.T(), "inst-a", rec.ApiKey.String)
}

func (s *StoreTestSuite) TestFetchIsScopedToCaller() {
	s.submit(Caller{IsAdmin: true}, `{"balances":{"usdt":1}}`)
	s.submit(Caller{ApiKey: "inst-a"}, `{"balances":{"usdt":2}}`)
	s.submit(Caller{ApiKey: "inst-b"}, `{"balances":{"usdt":3}}`)

	all, err := s.store.Fetch(s.ctx, Caller{IsAdmin: true})
	assert.Nil(s.T(), err)
	assert.Len(s.T(), all, 3)

	own, err := s.store.Fetch(s.ctx, Caller{ApiKey: "inst-a"})
	assert.Nil(s.T(), err)
	assert.Len(s.T(), own, 1)
	assert.Equal(s.T(), "inst-a", own[0].ApiKey.String)
}

func (s *StoreTestSuite) TestGetUnknownId() {
	_, err := s.store.Get(s.ctx, "no-such-id")
	assert.True(s.T(), errors.Is(err, apperr.ErrNotFound))
}

func (s *StoreTestSuite) TestUpdateVerification() {
	rec := s.submit(Caller{IsAdmin: true}, `{"balances":{"usdt":100.5}}`)

	por, err := s.store.ProofOfReserveOf(rec)
	require.Nil(s.T(), err)
	por.Verified = true

	updated, err := s.store.UpdateVerification(s.ctx, rec.Id, por)
	assert.Nil(s.T(), err)
	assert.True(s.T(), updated.Verified)

	// Verification metadata doesn't change the fingerprint
	assert.Equal(s.T(), rec.RwaHash, updated.RwaHash)

	pending, err := s.store.ListUnverified(s.ctx, 10)
	assert.Nil(s.T(), err)
	assert.Empty(s.T(), pending)
}

func (s *StoreTestSuite) TestListUnverified() {
	s.submit(Caller{IsAdmin: true}, `{"balances":{"usdt":1}}`)
	s.submit(Caller{IsAdmin: true}, `{"balances":{"usdt":2},"verified":true}`)

	pending, err := s.store.ListUnverified(s.ctx, 10)
	assert.Nil(s.T(), err)
	assert.Len(s.T(), pending, 1)
}

func (s *StoreTestSuite) TestAuthenticateInstitution() {
	hash := sha256.Sum256([]byte("s3cret"))
	err := s.db.Create(&model.Institution{
		Name:          "First Bank",
		ApiKey:        "key-1",
		ApiSecretHash: hex.EncodeToString(hash[:]),
	}).Error
	require.Nil(s.T(), err)

	inst, err := s.store.AuthenticateInstitution(s.ctx, "key-1", "s3cret")
	assert.Nil(s.T(), err)
	assert.Equal(s.T(), "First Bank", inst.Name)

	_, err = s.store.AuthenticateInstitution(s.ctx, "key-1", "wrong")
	assert.True(s.T(), errors.Is(err, apperr.ErrUnauthorized))

	_, err = s.store.AuthenticateInstitution(s.ctx, "unknown", "s3cret")
	assert.True(s.T(), errors.Is(err, apperr.ErrUnauthorized))
}
