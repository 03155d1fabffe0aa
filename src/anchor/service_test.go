package anchor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rwa-portal/anchorgate/src/utils/apperr"
	"github.com/rwa-portal/anchorgate/src/utils/config"
	"github.com/rwa-portal/anchorgate/src/utils/model"
	"github.com/rwa-portal/anchorgate/src/utils/monitor"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type fakeLedger struct {
	mtx   sync.Mutex
	calls []string
	err   error
}

func (self *fakeLedger) Submit(name string, args ...string) ([]byte, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	if self.err != nil {
		return nil, self.err
	}
	self.calls = append(self.calls, args[0])
	return []byte("ok"), nil
}

func (self *fakeLedger) numCalls() int {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	return len(self.calls)
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

type ServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	config  *config.Config
	db      *gorm.DB
	ledger  *fakeLedger
	service *Service
}

func (s *ServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.config = config.Default()
	s.config.Fabric.MaxElapsedTime = 100 * time.Millisecond
	s.config.Fabric.MaxInterval = 20 * time.Millisecond

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", s.T().Name())), &gorm.Config{})
	require.Nil(s.T(), err)
	err = db.AutoMigrate(&model.Record{}, &model.AnchorEntry{})
	require.Nil(s.T(), err)
	s.db = db

	s.ledger = &fakeLedger{}
	s.service = NewService(s.config).
		WithDB(db).
		WithLedger(s.ledger).
		WithMonitor(monitor.NewMonitor())

	err = s.service.Start()
	require.Nil(s.T(), err)
}

func (s *ServiceTestSuite) TearDownTest() {
	s.service.StopWait()
}

func (s *ServiceTestSuite) insertRecord(id string) model.Record {
	var por pgtype.JSONB
	err := por.Set([]byte(`{"balances":{"USDT":100.5},"verified":true}`))
	require.Nil(s.T(), err)

	var deploy pgtype.JSONB
	require.Nil(s.T(), deploy.Set(nil))

	rec := model.Record{
		Id:             id,
		SubmitterType:  model.SubmitterAdmin,
		WalletAddress:  "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
		ProofOfReserve: por,
		RwaHash:        "0xabc",
		Verified:       true,
		Deploy:         deploy,
		CreatedAt:      time.Now(),
	}
	err = s.db.Create(&rec).Error
	require.Nil(s.T(), err)
	return rec
}

func (s *ServiceTestSuite) TestAnchorPersistsEntry() {
	s.insertRecord("rec-1")

	entry, fresh, err := s.service.Anchor(s.ctx, "rec-1")
	assert.Nil(s.T(), err)
	assert.True(s.T(), fresh)
	assert.Equal(s.T(), "rec-1", entry.RecordId)
	assert.Equal(s.T(), 1, s.ledger.numCalls())

	var payload map[string]json.RawMessage
	err = json.Unmarshal(entry.Payload.Bytes, &payload)
	assert.Nil(s.T(), err)
	assert.Contains(s.T(), payload, "walletAddress")
	assert.Contains(s.T(), payload, "rwa_hash")
	assert.Contains(s.T(), payload, "proof_of_reserve")

	anchored, err := s.service.IsAnchored(s.ctx, "rec-1")
	assert.Nil(s.T(), err)
	assert.True(s.T(), anchored)
}

func (s *ServiceTestSuite) TestAnchorIsIdempotent() {
	s.insertRecord("rec-1")

	first, fresh, err := s.service.Anchor(s.ctx, "rec-1")
	require.Nil(s.T(), err)
	require.True(s.T(), fresh)

	second, fresh, err := s.service.Anchor(s.ctx, "rec-1")
	assert.Nil(s.T(), err)
	assert.False(s.T(), fresh)
	assert.Equal(s.T(), first.Payload.Bytes, second.Payload.Bytes)

	// The duplicate call must not touch the ledger again
	assert.Equal(s.T(), 1, s.ledger.numCalls())

	var count int64
	s.db.Table(model.TableAnchorEntry).Count(&count)
	assert.Equal(s.T(), int64(1), count)
}

func (s *ServiceTestSuite) TestAnchorUnknownId() {
	_, _, err := s.service.Anchor(s.ctx, "no-such-id")
	assert.True(s.T(), errors.Is(err, apperr.ErrNotFound))
	assert.Zero(s.T(), s.ledger.numCalls())
}

func (s *ServiceTestSuite) TestAnchorLedgerFailure() {
	s.insertRecord("rec-1")
	s.ledger.err = errors.New("gateway timeout")

	_, _, err := s.service.Anchor(s.ctx, "rec-1")
	assert.True(s.T(), errors.Is(err, apperr.ErrLedgerUnavailable))

	// Nothing is persisted when the ledger write fails
	var count int64
	s.db.Table(model.TableAnchorEntry).Count(&count)
	assert.Zero(s.T(), count)

	anchored, err := s.service.IsAnchored(s.ctx, "rec-1")
	assert.Nil(s.T(), err)
	assert.False(s.T(), anchored)
}

func (s *ServiceTestSuite) TestAnchorWithoutLedger() {
	s.insertRecord("rec-1")
	s.service.ledger = nil

	_, fresh, err := s.service.Anchor(s.ctx, "rec-1")
	assert.Nil(s.T(), err)
	assert.True(s.T(), fresh)
}

func (s *ServiceTestSuite) TestListEntries() {
	s.insertRecord("rec-1")
	s.insertRecord("rec-2")

	_, _, err := s.service.Anchor(s.ctx, "rec-1")
	require.Nil(s.T(), err)
	_, _, err = s.service.Anchor(s.ctx, "rec-2")
	require.Nil(s.T(), err)

	entries, err := s.service.ListEntries(s.ctx)
	assert.Nil(s.T(), err)
	assert.Len(s.T(), entries, 2)
}
