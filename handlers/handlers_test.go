package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stellar/go/txnbuild"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/invoice-factoring/config"
	"github.com/yourusername/invoice-factoring/ledger"
	"github.com/yourusername/invoice-factoring/middleware"
	"github.com/yourusername/invoice-factoring/models"
	"github.com/yourusername/invoice-factoring/utils"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, config.Migrate(db))
	return db
}

func testConfig(operator *keypair.Full) *config.Config {
	return &config.Config{
		JWTSecret:         "test-secret",
		JWTRefreshSecret:  "test-refresh-secret",
		OperatorSecret:    operator.Seed(),
		NetworkPassphrase: network.TestNetworkPassphrase,
		PayoutAssetCode:   "XLM",
	}
}

type MockStellarClient struct {
	ValidateAccountFunc func(accountID string) error
	LoadAccountFunc     func(accountID string) (txnbuild.Account, error)
	BuildPaymentTxFunc  func(source txnbuild.Account, destination, assetCode, issuer, amount string) (*txnbuild.Transaction, error)
	SubmitXDRFunc       func(envelopeXDR string) (string, error)
}

func (m *MockStellarClient) ValidateAccount(accountID string) error {
	return m.ValidateAccountFunc(accountID)
}

func (m *MockStellarClient) LoadAccount(accountID string) (txnbuild.Account, error) {
	return m.LoadAccountFunc(accountID)
}

func (m *MockStellarClient) BuildPaymentTx(source txnbuild.Account, destination, assetCode, issuer, amount string) (*txnbuild.Transaction, error) {
	return m.BuildPaymentTxFunc(source, destination, assetCode, issuer, amount)
}

func (m *MockStellarClient) SubmitXDR(envelopeXDR string) (string, error) {
	return m.SubmitXDRFunc(envelopeXDR)
}

// offlineStellar builds real transactions against a fixed sequence number
// and never touches the network.
func offlineStellar() *MockStellarClient {
	builder := utils.NewStellarClient("", network.TestNetworkPassphrase)
	return &MockStellarClient{
		ValidateAccountFunc: func(string) error { return nil },
		LoadAccountFunc: func(accountID string) (txnbuild.Account, error) {
			return &txnbuild.SimpleAccount{AccountID: accountID, Sequence: 100}, nil
		},
		BuildPaymentTxFunc: builder.BuildPaymentTx,
		SubmitXDRFunc: func(string) (string, error) {
			return "", assert.AnError
		},
	}
}

type env struct {
	t        *testing.T
	db       *gorm.DB
	host     *ledger.Host
	cfg      *config.Config
	operator *keypair.Full
	stellar  *MockStellarClient
	log      *zap.Logger
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	operator := keypair.MustRandom()
	return &env{
		t:        t,
		db:       setupTestDB(t),
		host:     ledger.NewHost(ledger.NewMemoryStore()),
		cfg:      testConfig(operator),
		operator: operator,
		stellar:  offlineStellar(),
		log:      zap.NewNop(),
	}
}

func (e *env) operatorAddress() ledger.Address {
	return ledger.Address(e.operator.Address())
}

func (e *env) deploy(kind string) ledger.Address {
	e.t.Helper()
	id, err := e.host.Deploy(e.t.Context(), kind)
	require.NoError(e.t, err)
	return id
}

// asCaller stands in for JwtAuthMiddleware.
func asCaller(addr ledger.Address, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextAddress, addr)
		c.Set(middleware.ContextRole, role)
		c.Next()
	}
}

func newAccount() ledger.Address {
	return ledger.Address(keypair.MustRandom().Address())
}

func doJSON(router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doRequest(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{ledger.ErrNotFound, http.StatusNotFound, "NotFound"},
		{ledger.ErrNotInitialized, http.StatusNotFound, "NotInitialized"},
		{ledger.ErrUnauthorized, http.StatusForbidden, "Unauthorized"},
		{ledger.ErrInvalidArgument, http.StatusBadRequest, "InvalidArgument"},
		{ledger.ErrAlreadyInitialized, http.StatusConflict, "AlreadyInitialized"},
		{ledger.ErrInsufficientBalance, http.StatusConflict, "InsufficientBalance"},
		{ledger.ErrInsufficientAvailability, http.StatusConflict, "InsufficientAvailability"},
		{ledger.ErrInvalidState, http.StatusConflict, "InvalidState"},
		{assert.AnError, http.StatusInternalServerError, "Internal"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code := statusFor(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestAccountRole(t *testing.T) {
	e := newEnv(t)
	h := NewAuthHandler(e.db, e.cfg, e.log)

	admin, err := h.upsertAccount(e.operator.Address())
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	investor, err := h.upsertAccount(newAccount().String())
	require.NoError(t, err)
	assert.Equal(t, models.RoleInvestor, investor.Role)
	assert.True(t, investor.IsActive)

	again, err := h.upsertAccount(investor.StellarAddress)
	require.NoError(t, err)
	assert.Equal(t, investor.ID, again.ID)
}
