package gateway

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rwa-portal/anchorgate/src/anchor"
	"github.com/rwa-portal/anchorgate/src/mint"
	"github.com/rwa-portal/anchorgate/src/record"
	"github.com/rwa-portal/anchorgate/src/utils/config"
	"github.com/rwa-portal/anchorgate/src/utils/model"
	"github.com/rwa-portal/anchorgate/src/utils/monitor"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/lestrrat-go/jwx/jwa"
	"github.com/lestrrat-go/jwx/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

const testWallet = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"

type fakeChain struct {
	mtx   sync.Mutex
	mints int
}

func (self *fakeChain) Mint(ctx context.Context, to string, amount float64) (string, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	self.mints++
	return fmt.Sprintf("0xtx%d", self.mints), nil
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

type ServerTestSuite struct {
	suite.Suite
	config     *config.Config
	db         *gorm.DB
	server     *Server
	adminToken string
}

func (s *ServerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	s.config = config.Default()
	s.config.Auth.AdminJwtSecret = "test-secret"
	s.config.Minter.ConfirmationTimeout = 2 * time.Second
	s.config.Minter.MaxElapsedTime = 100 * time.Millisecond
	s.config.Minter.MaxInterval = 20 * time.Millisecond

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", s.T().Name())), &gorm.Config{})
	require.Nil(s.T(), err)
	err = db.AutoMigrate(&model.Record{}, &model.AnchorEntry{}, &model.MintState{}, &model.MintTransaction{}, &model.Institution{})
	require.Nil(s.T(), err)
	s.db = db

	mon := monitor.NewMonitor()
	records := record.NewStore(db)

	anchors := anchor.NewService(s.config).
		WithDB(db).
		WithMonitor(mon)

	gate := mint.NewGate(s.config).
		WithDB(db).
		WithChain(&fakeChain{}).
		WithAnchorChecker(anchors).
		WithRecordStore(records).
		WithMonitor(mon)

	s.server = NewServer(s.config).
		WithRecordStore(records).
		WithAnchorService(anchors).
		WithMintGate(gate).
		WithMonitor(mon)
	s.server.registerRoutes()

	token := jwt.New()
	err = token.Set(jwt.SubjectKey, s.config.Auth.AdminSubject)
	require.Nil(s.T(), err)
	signed, err := jwt.Sign(token, jwa.HS256, []byte(s.config.Auth.AdminJwtSecret))
	require.Nil(s.T(), err)
	s.adminToken = string(signed)
}

func (s *ServerTestSuite) request(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.Nil(s.T(), err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	recorder := httptest.NewRecorder()
	s.server.Router.ServeHTTP(recorder, req)
	return recorder
}

func (s *ServerTestSuite) asAdmin() map[string]string {
	return map[string]string{"Authorization": "Bearer " + s.adminToken}
}

func (s *ServerTestSuite) submitRecord() string {
	resp := s.request(http.MethodPost, "/data/submit", gin.H{
		"walletAddress":  testWallet,
		"proofOfReserve": gin.H{"balances": gin.H{"usdt": 100.5}, "verified": true},
	}, s.asAdmin())
	require.Equal(s.T(), http.StatusOK, resp.Code)

	var out struct {
		Id string `json:"id"`
	}
	require.Nil(s.T(), json.Unmarshal(resp.Body.Bytes(), &out))
	require.NotEmpty(s.T(), out.Id)
	return out.Id
}

func (s *ServerTestSuite) message(resp *httptest.ResponseRecorder) string {
	var out struct {
		Message string `json:"message"`
	}
	require.Nil(s.T(), json.Unmarshal(resp.Body.Bytes(), &out))
	return out.Message
}

func (s *ServerTestSuite) TestRejectsMissingCredentials() {
	resp := s.request(http.MethodGet, "/data/fetch", nil, nil)
	assert.Equal(s.T(), http.StatusUnauthorized, resp.Code)
	assert.NotEmpty(s.T(), s.message(resp))
}

func (s *ServerTestSuite) TestRejectsForgedAdminToken() {
	token := jwt.New()
	require.Nil(s.T(), token.Set(jwt.SubjectKey, s.config.Auth.AdminSubject))
	signed, err := jwt.Sign(token, jwa.HS256, []byte("wrong-secret"))
	require.Nil(s.T(), err)

	resp := s.request(http.MethodGet, "/data/fetch", nil, map[string]string{
		"Authorization": "Bearer " + string(signed),
	})
	assert.Equal(s.T(), http.StatusUnauthorized, resp.Code)
}

func (s *ServerTestSuite) TestSubmitAndFetch() {
	id := s.submitRecord()

	resp := s.request(http.MethodGet, "/data/fetch", nil, s.asAdmin())
	assert.Equal(s.T(), http.StatusOK, resp.Code)

	var records []map[string]interface{}
	require.Nil(s.T(), json.Unmarshal(resp.Body.Bytes(), &records))
	require.Len(s.T(), records, 1)
	assert.Equal(s.T(), id, records[0]["id"])
	assert.Equal(s.T(), testWallet, records[0]["walletAddress"])
}

func (s *ServerTestSuite) TestSubmitValidationMessage() {
	resp := s.request(http.MethodPost, "/data/submit", gin.H{
		"proofOfReserve": gin.H{"balances": gin.H{"usdt": 1}},
	}, s.asAdmin())

	assert.Equal(s.T(), http.StatusBadRequest, resp.Code)
	assert.Equal(s.T(), "walletAddress is missing", s.message(resp))
}

func (s *ServerTestSuite) TestInstitutionScope() {
	hash := sha256.Sum256([]byte("s3cret"))
	require.Nil(s.T(), s.db.Create(&model.Institution{
		Name:          "First Bank",
		ApiKey:        "key-1",
		ApiSecretHash: hex.EncodeToString(hash[:]),
	}).Error)

	instHeaders := map[string]string{"x-api-key": "key-1", "x-api-secret": "s3cret"}

	resp := s.request(http.MethodPost, "/data/submit", gin.H{
		"walletAddress":  testWallet,
		"proofOfReserve": gin.H{"balances": gin.H{"usdt": 1}},
	}, instHeaders)
	require.Equal(s.T(), http.StatusOK, resp.Code)

	s.submitRecord()

	// The institution sees only its own record, the admin sees both
	resp = s.request(http.MethodGet, "/data/fetch", nil, instHeaders)
	require.Equal(s.T(), http.StatusOK, resp.Code)
	var records []map[string]interface{}
	require.Nil(s.T(), json.Unmarshal(resp.Body.Bytes(), &records))
	assert.Len(s.T(), records, 1)

	resp = s.request(http.MethodGet, "/data/fetch", nil, s.asAdmin())
	require.Nil(s.T(), json.Unmarshal(resp.Body.Bytes(), &records))
	assert.Len(s.T(), records, 2)
}

func (s *ServerTestSuite) TestInstitutionCannotUseOperatorEndpoints() {
	hash := sha256.Sum256([]byte("s3cret"))
	require.Nil(s.T(), s.db.Create(&model.Institution{
		Name:          "First Bank",
		ApiKey:        "key-1",
		ApiSecretHash: hex.EncodeToString(hash[:]),
	}).Error)
	instHeaders := map[string]string{"x-api-key": "key-1", "x-api-secret": "s3cret"}

	id := s.submitRecord()

	// Anchoring someone else's record is an operator action
	resp := s.request(http.MethodPost, "/fabric/store/"+id, nil, instHeaders)
	assert.Equal(s.T(), http.StatusForbidden, resp.Code)
	assert.NotEmpty(s.T(), s.message(resp))

	// Nothing was anchored
	var count int64
	s.db.Table(model.TableAnchorEntry).Count(&count)
	assert.Zero(s.T(), count)

	resp = s.request(http.MethodGet, "/fabric/fetch-all", nil, instHeaders)
	assert.Equal(s.T(), http.StatusForbidden, resp.Code)

	// The global mint ledger exposes other parties' wallets and amounts
	resp = s.request(http.MethodGet, "/transactions", nil, instHeaders)
	assert.Equal(s.T(), http.StatusForbidden, resp.Code)

	// The same endpoints keep working for the admin
	resp = s.request(http.MethodPost, "/fabric/store/"+id, nil, s.asAdmin())
	assert.Equal(s.T(), http.StatusOK, resp.Code)
	resp = s.request(http.MethodGet, "/transactions", nil, s.asAdmin())
	assert.Equal(s.T(), http.StatusOK, resp.Code)

	// Institution-scoped endpoints stay open to the key pair
	resp = s.request(http.MethodGet, "/data/fetch", nil, instHeaders)
	assert.Equal(s.T(), http.StatusOK, resp.Code)
}

func (s *ServerTestSuite) TestAnchorRoundTrip() {
	id := s.submitRecord()

	resp := s.request(http.MethodPost, "/fabric/store/"+id, nil, s.asAdmin())
	require.Equal(s.T(), http.StatusOK, resp.Code)
	var out struct {
		Id            string `json:"id"`
		AlreadyStored bool   `json:"alreadyStored"`
	}
	require.Nil(s.T(), json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(s.T(), id, out.Id)
	assert.False(s.T(), out.AlreadyStored)

	resp = s.request(http.MethodPost, "/fabric/store/"+id, nil, s.asAdmin())
	require.Equal(s.T(), http.StatusOK, resp.Code)
	require.Nil(s.T(), json.Unmarshal(resp.Body.Bytes(), &out))
	assert.True(s.T(), out.AlreadyStored)

	resp = s.request(http.MethodGet, "/fabric/fetch-all", nil, s.asAdmin())
	assert.Equal(s.T(), http.StatusOK, resp.Code)
	var entries []map[string]interface{}
	require.Nil(s.T(), json.Unmarshal(resp.Body.Bytes(), &entries))
	assert.Len(s.T(), entries, 1)
}

func (s *ServerTestSuite) TestAnchorUnknownRecord() {
	resp := s.request(http.MethodPost, "/fabric/store/no-such-id", nil, s.asAdmin())
	assert.Equal(s.T(), http.StatusNotFound, resp.Code)
	assert.NotEmpty(s.T(), s.message(resp))
}

func (s *ServerTestSuite) TestMintRoundTrip() {
	id := s.submitRecord()

	resp := s.request(http.MethodPost, "/fabric/store/"+id, nil, s.asAdmin())
	require.Equal(s.T(), http.StatusOK, resp.Code)

	resp = s.request(http.MethodPost, "/mint", gin.H{"id": id}, s.asAdmin())
	require.Equal(s.T(), http.StatusOK, resp.Code)
	var out struct {
		Status      string `json:"status"`
		Transaction struct {
			TransactionHash string  `json:"transactionHash"`
			EthTxHash       string  `json:"ethTxHash"`
			Amount          float64 `json:"amount"`
			MintedAmount    float64 `json:"mintedAmount"`
		} `json:"transaction"`
	}
	require.Nil(s.T(), json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(s.T(), "minted", out.Status)
	assert.Equal(s.T(), out.Transaction.EthTxHash, out.Transaction.TransactionHash)
	assert.Equal(s.T(), 100.5, out.Transaction.Amount)
	assert.Equal(s.T(), 100.5, out.Transaction.MintedAmount)

	// Same record again is a success variant, not an error
	resp = s.request(http.MethodPost, "/mint", gin.H{"id": id}, s.asAdmin())
	require.Equal(s.T(), http.StatusOK, resp.Code)
	require.Nil(s.T(), json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(s.T(), "already_minted", out.Status)
}

func (s *ServerTestSuite) TestMintUnanchoredRecord() {
	id := s.submitRecord()

	resp := s.request(http.MethodPost, "/mint", gin.H{"id": id}, s.asAdmin())
	assert.Equal(s.T(), http.StatusBadRequest, resp.Code)
	assert.NotEmpty(s.T(), s.message(resp))
}

func (s *ServerTestSuite) TestMintWithoutId() {
	resp := s.request(http.MethodPost, "/mint", gin.H{}, s.asAdmin())
	assert.Equal(s.T(), http.StatusBadRequest, resp.Code)
	assert.Equal(s.T(), "id is missing", s.message(resp))
}

func (s *ServerTestSuite) TestTransactionsListing() {
	id := s.submitRecord()
	s.request(http.MethodPost, "/fabric/store/"+id, nil, s.asAdmin())
	s.request(http.MethodPost, "/mint", gin.H{"id": id}, s.asAdmin())

	resp := s.request(http.MethodGet, "/transactions", nil, s.asAdmin())
	require.Equal(s.T(), http.StatusOK, resp.Code)

	var out struct {
		Transactions []map[string]interface{} `json:"transactions"`
	}
	require.Nil(s.T(), json.Unmarshal(resp.Body.Bytes(), &out))
	require.Len(s.T(), out.Transactions, 1)
	assert.Equal(s.T(), "success", out.Transactions[0]["outcome"])
	assert.Equal(s.T(), out.Transactions[0]["ethTxHash"], out.Transactions[0]["transactionHash"])
	assert.Equal(s.T(), out.Transactions[0]["mintedAt"], out.Transactions[0]["timestamp"])
}

func (s *ServerTestSuite) TestHealthEndpointIsPublic() {
	resp := s.request(http.MethodGet, "/v1/health", nil, nil)
	assert.Equal(s.T(), http.StatusOK, resp.Code)
}
