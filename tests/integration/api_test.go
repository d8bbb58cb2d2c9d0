package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coursepay/config"
	httpHandler "coursepay/internal/adapter/http/handler"
	redisStorage "coursepay/internal/adapter/storage/redis"
	"coursepay/internal/core/domain"
	"coursepay/internal/core/ports"
	"coursepay/internal/service"
	"coursepay/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testGatewayName   = "momo"
	testGatewaySecret = "momo-callback-secret"
	callbackPath      = "/api/v1/gateway/callback"
)

// testApp wires the real HTTP layer, middleware, services and Redis
// stores (via miniredis) over in-memory repositories. Only Postgres is
// replaced; everything above the repository ports is production code.
type testApp struct {
	server   *httptest.Server
	redis    *miniredis.Miniredis
	tokenSvc ports.TokenService
	sigSvc   ports.SignatureService
	ledger   ports.LedgerService
	wallets  *memWalletRepo
	coupons  *memCouponRepo
	access   *memAccessGranter
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	nonceStore := redisStorage.NewNonceStore(rdb)
	rateLimiter := redisStorage.NewRateLimitStore(rdb)

	sigSvc := service.NewHMACSignatureService()
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", 24*time.Hour, "test-issuer")

	db := newMemDB()
	walletRepo := newMemWalletRepo(db)
	entryRepo := newMemEntryRepo(db)
	paymentRepo := newMemPaymentRepo(db)
	couponRepo := newMemCouponRepo(db)
	reviewRepo := newMemReviewRepo(db)
	transactor := newMemTransactor(db)
	access := newMemAccessGranter()

	log := logger.New("error", false)
	ledgerSvc := service.NewLedgerService(walletRepo, entryRepo, idempotencyCache, transactor, "VND", log)
	couponSvc := service.NewCouponService(couponRepo, log)
	checkoutSvc := service.NewCheckoutService(paymentRepo, entryRepo, ledgerSvc, couponSvc, access, "VND", log)
	settlementSvc := service.NewSettlementService(paymentRepo, reviewRepo, ledgerSvc, access, log)
	reportingSvc := service.NewReportingService(walletRepo, entryRepo, "VND", log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:     ledgerSvc,
		CheckoutSvc:   checkoutSvc,
		CouponSvc:     couponSvc,
		SettlementSvc: settlementSvc,
		ReportingSvc:  reportingSvc,
		TokenSvc:      tokenSvc,
		SigSvc:        sigSvc,
		NonceStore:    nonceStore,
		RateLimiter:   rateLimiter,
		Gateways: map[string]config.GatewayConfig{
			testGatewayName: {Secret: testGatewaySecret},
		},
		WalletExponent: 0,
		HealthCheckers: []ports.HealthChecker{redisStorage.NewHealthCheck(rdb)},
		Logger:         log,
	})

	server := httptest.NewServer(router)

	return &testApp{
		server:   server,
		redis:    mr,
		tokenSvc: tokenSvc,
		sigSvc:   sigSvc,
		ledger:   ledgerSvc,
		wallets:  walletRepo,
		coupons:  couponRepo,
		access:   access,
	}
}

func (a *testApp) close() {
	a.server.Close()
	a.redis.Close()
}

func (a *testApp) token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, _, err := a.tokenSvc.Generate(userID)
	require.NoError(t, err)
	return token
}

// fund credits the user's wallet directly through the ledger, outside
// the HTTP surface, to set up balances for tests.
func (a *testApp) fund(t *testing.T, userID uuid.UUID, amount int64) {
	t.Helper()
	_, err := a.ledger.Credit(context.Background(), ports.MutationParams{
		UserID:    userID,
		Amount:    amount,
		Reference: "test funding",
	})
	require.NoError(t, err)
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}, headers map[string]string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// signedCallback delivers a gateway settlement event through the HMAC
// authenticated callback endpoint, the way a real gateway would.
func (a *testApp) signedCallback(t *testing.T, event map[string]interface{}, nonce string) *http.Response {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)

	ts := time.Now().Unix()
	canonical := a.sigSvc.BuildCanonicalString(http.MethodPost, callbackPath, ts, nonce, string(raw))
	signature := a.sigSvc.Sign(testGatewaySecret, canonical)

	req, err := http.NewRequest(http.MethodPost, a.server.URL+callbackPath, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Gateway", testGatewayName)
	req.Header.Set("X-Signature", signature)
	req.Header.Set("X-Timestamp", fmt.Sprintf("%d", ts))
	req.Header.Set("X-Nonce", nonce)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeData(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body), "body: %s", string(raw))
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "no data envelope in: %s", string(raw))
	return data
}

// --- Integration tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestIntegration_BalanceRequiresAuth(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp := app.do(t, http.MethodGet, "/api/v1/wallets/balance", "", nil, nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIntegration_BalanceNewUser(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	token := app.token(t, uuid.New())
	resp := app.do(t, http.MethodGet, "/api/v1/wallets/balance", token, nil, nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := decodeData(t, resp)
	assert.Equal(t, float64(0), data["balance"])
	assert.Equal(t, "VND", data["currency"])
}

func TestIntegration_TransferEndToEnd(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	alice := uuid.New()
	bob := uuid.New()
	app.fund(t, alice, 100000)

	transferBody := map[string]interface{}{
		"to_user_id": bob.String(),
		"amount":     int64(30000),
		"reference":  "rent split",
	}
	headers := map[string]string{"Idempotency-Key": "transfer-rent-001"}

	resp := app.do(t, http.MethodPost, "/api/v1/wallets/transfer", app.token(t, alice), transferBody, headers)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := decodeData(t, resp)
	resp.Body.Close()
	groupID := data["transfer_group_id"].(string)
	require.NotEmpty(t, groupID)

	// Replaying the same request must return the original transfer and
	// leave balances untouched.
	resp2 := app.do(t, http.MethodPost, "/api/v1/wallets/transfer", app.token(t, alice), transferBody, headers)
	require.Equal(t, http.StatusCreated, resp2.StatusCode)
	data2 := decodeData(t, resp2)
	resp2.Body.Close()
	assert.Equal(t, groupID, data2["transfer_group_id"])

	respA := app.do(t, http.MethodGet, "/api/v1/wallets/balance", app.token(t, alice), nil, nil)
	assert.Equal(t, float64(70000), decodeData(t, respA)["balance"])
	respA.Body.Close()

	respB := app.do(t, http.MethodGet, "/api/v1/wallets/balance", app.token(t, bob), nil, nil)
	assert.Equal(t, float64(30000), decodeData(t, respB)["balance"])
	respB.Body.Close()
}

func TestIntegration_TransferInsufficientFunds(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	poor := uuid.New()
	app.fund(t, poor, 100)

	body := map[string]interface{}{
		"to_user_id": uuid.New().String(),
		"amount":     int64(5000),
	}
	resp := app.do(t, http.MethodPost, "/api/v1/wallets/transfer", app.token(t, poor), body, nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	var errBody map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
	assert.Equal(t, "WAL_001", errBody["error_code"])
}

func TestIntegration_FrozenWalletRejectsDebits(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	user := uuid.New()
	app.fund(t, user, 50000)
	require.NoError(t, app.wallets.SetActive(context.Background(), user, false))

	resp := app.do(t, http.MethodPost, "/api/v1/wallets/withdraw", app.token(t, user), map[string]interface{}{
		"amount":      int64(10000),
		"destination": "bank:970436:0123456789",
	}, nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	var errBody map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
	assert.Equal(t, "WAL_003", errBody["error_code"])
}

func TestIntegration_Withdraw(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	user := uuid.New()
	app.fund(t, user, 50000)

	body := map[string]interface{}{
		"amount":      int64(20000),
		"destination": "bank:970436:0123456789",
	}
	resp := app.do(t, http.MethodPost, "/api/v1/wallets/withdraw", app.token(t, user), body, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := decodeData(t, resp)
	resp.Body.Close()
	assert.Equal(t, string(domain.EntryDirectionDebit), data["direction"])
	assert.Equal(t, float64(20000), data["amount"])

	respBal := app.do(t, http.MethodGet, "/api/v1/wallets/balance", app.token(t, user), nil, nil)
	assert.Equal(t, float64(30000), decodeData(t, respBal)["balance"])
	respBal.Body.Close()
}

func TestIntegration_CouponPreview(t *testing.T) {
	app := newTestApp(t)
	defer app.close()
	app.coupons.put(domain.Coupon{Code: "SAVE10", Kind: domain.CouponKindPercent, Value: 10, Active: true})

	body := map[string]interface{}{"code": "SAVE10", "amount": int64(100000)}
	resp := app.do(t, http.MethodPost, "/api/v1/coupons/preview", app.token(t, uuid.New()), body, nil)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decodeData(t, resp)
	assert.Equal(t, true, data["valid"])
	assert.Equal(t, float64(10000), data["discount"])
	assert.Equal(t, float64(90000), data["final_amount"])
}

func TestIntegration_WalletCheckout(t *testing.T) {
	app := newTestApp(t)
	defer app.close()
	app.coupons.put(domain.Coupon{Code: "SAVE10", Kind: domain.CouponKindPercent, Value: 10, Active: true})

	user := uuid.New()
	app.fund(t, user, 100000)
	courseID := uuid.New()

	body := map[string]interface{}{
		"item_type":   "COURSE",
		"item_id":     courseID.String(),
		"amount":      int64(50000),
		"gateway":     domain.GatewayWallet,
		"coupon_code": "SAVE10",
	}
	resp := app.do(t, http.MethodPost, "/api/v1/checkout", app.token(t, user), body,
		map[string]string{"Idempotency-Key": "checkout-course-001"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := decodeData(t, resp)
	resp.Body.Close()

	payment := data["payment"].(map[string]interface{})
	assert.Equal(t, string(domain.PaymentStatusCompleted), payment["status"])
	assert.Equal(t, float64(45000), payment["amount"])
	assert.Equal(t, float64(5000), payment["discount_amount"])

	entry, ok := data["entry"].(map[string]interface{})
	require.True(t, ok, "wallet checkout should return the debit entry")
	assert.Equal(t, string(domain.EntryDirectionDebit), entry["direction"])
	assert.Equal(t, float64(45000), entry["amount"])

	respBal := app.do(t, http.MethodGet, "/api/v1/wallets/balance", app.token(t, user), nil, nil)
	assert.Equal(t, float64(55000), decodeData(t, respBal)["balance"])
	respBal.Body.Close()

	// Access is granted synchronously for wallet-funded purchases.
	assert.Equal(t, 1, app.access.callCount())
}

func TestIntegration_TopupSettlement(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	user := uuid.New()

	checkoutBody := map[string]interface{}{
		"item_type": "TOPUP",
		"amount":    int64(200000),
		"gateway":   testGatewayName,
	}
	resp := app.do(t, http.MethodPost, "/api/v1/checkout", app.token(t, user), checkoutBody,
		map[string]string{"Idempotency-Key": "topup-001"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := decodeData(t, resp)
	resp.Body.Close()

	payment := data["payment"].(map[string]interface{})
	paymentID := payment["id"].(string)
	assert.Equal(t, string(domain.PaymentStatusPending), payment["status"])

	entry := data["entry"].(map[string]interface{})
	assert.Equal(t, string(domain.EntryStatusPending), entry["status"])

	// Pending credits do not count toward the balance.
	respBal := app.do(t, http.MethodGet, "/api/v1/wallets/balance", app.token(t, user), nil, nil)
	assert.Equal(t, float64(0), decodeData(t, respBal)["balance"])
	respBal.Body.Close()

	event := map[string]interface{}{
		"gateway_transaction_id": "momo-tx-777",
		"payment_reference":      paymentID,
		"outcome":                string(domain.GatewayOutcomeSuccess),
		"amount":                 int64(200000),
		"currency":               "VND",
	}
	cbResp := app.signedCallback(t, event, "nonce-topup-001")
	require.Equal(t, http.StatusOK, cbResp.StatusCode)
	cbData := decodeData(t, cbResp)
	cbResp.Body.Close()
	assert.Equal(t, string(domain.PaymentStatusCompleted), cbData["status"])

	respBal2 := app.do(t, http.MethodGet, "/api/v1/wallets/balance", app.token(t, user), nil, nil)
	assert.Equal(t, float64(200000), decodeData(t, respBal2)["balance"])
	respBal2.Body.Close()

	// A redelivered settlement (fresh nonce, same event) is accepted but
	// must not credit the wallet twice.
	cbResp2 := app.signedCallback(t, event, "nonce-topup-002")
	require.Equal(t, http.StatusOK, cbResp2.StatusCode)
	cbResp2.Body.Close()

	respBal3 := app.do(t, http.MethodGet, "/api/v1/wallets/balance", app.token(t, user), nil, nil)
	assert.Equal(t, float64(200000), decodeData(t, respBal3)["balance"])
	respBal3.Body.Close()
}

func TestIntegration_CallbackBadSignature(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	raw, _ := json.Marshal(map[string]interface{}{
		"gateway_transaction_id": "tx-1",
		"payment_reference":      uuid.New().String(),
		"outcome":                "success",
		"amount":                 int64(1000),
		"currency":               "VND",
	})
	req, _ := http.NewRequest(http.MethodPost, app.server.URL+callbackPath, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Gateway", testGatewayName)
	req.Header.Set("X-Signature", "deadbeef")
	req.Header.Set("X-Timestamp", fmt.Sprintf("%d", time.Now().Unix()))
	req.Header.Set("X-Nonce", "nonce-bad-sig")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIntegration_CallbackNonceReplay(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	event := map[string]interface{}{
		"gateway_transaction_id": "tx-replay",
		"payment_reference":      uuid.New().String(),
		"outcome":                "success",
		"amount":                 int64(1000),
		"currency":               "VND",
	}
	first := app.signedCallback(t, event, "nonce-reused")
	first.Body.Close()

	second := app.signedCallback(t, event, "nonce-reused")
	defer second.Body.Close()

	assert.Equal(t, http.StatusForbidden, second.StatusCode)
	var errBody map[string]interface{}
	require.NoError(t, json.NewDecoder(second.Body).Decode(&errBody))
	assert.Equal(t, "SEC_003", errBody["error_code"])
}

func TestIntegration_CallbackAmountMismatchGoesToReview(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	user := uuid.New()
	resp := app.do(t, http.MethodPost, "/api/v1/checkout", app.token(t, user), map[string]interface{}{
		"item_type": "TOPUP",
		"amount":    int64(100000),
		"gateway":   testGatewayName,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := decodeData(t, resp)
	resp.Body.Close()
	paymentID := data["payment"].(map[string]interface{})["id"].(string)

	cbResp := app.signedCallback(t, map[string]interface{}{
		"gateway_transaction_id": "momo-tx-888",
		"payment_reference":      paymentID,
		"outcome":                "success",
		"amount":                 int64(99999), // does not match the payment
		"currency":               "VND",
	}, "nonce-mismatch-001")
	defer cbResp.Body.Close()
	assert.Equal(t, http.StatusConflict, cbResp.StatusCode)

	// Balance untouched, event queued for manual review.
	respBal := app.do(t, http.MethodGet, "/api/v1/wallets/balance", app.token(t, user), nil, nil)
	assert.Equal(t, float64(0), decodeData(t, respBal)["balance"])
	respBal.Body.Close()

	respRev := app.do(t, http.MethodGet, "/api/v1/settlements/reviews", app.token(t, user), nil, nil)
	require.Equal(t, http.StatusOK, respRev.StatusCode)
	revData := decodeData(t, respRev)
	respRev.Body.Close()
	require.Equal(t, float64(1), revData["total"])
	items := revData["items"].([]interface{})
	review := items[0].(map[string]interface{})
	assert.Equal(t, "momo-tx-888", review["gateway_tx_id"])
}

func TestIntegration_TopupFailureSettlement(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	user := uuid.New()
	resp := app.do(t, http.MethodPost, "/api/v1/checkout", app.token(t, user), map[string]interface{}{
		"item_type": "TOPUP",
		"amount":    int64(150000),
		"gateway":   testGatewayName,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := decodeData(t, resp)
	resp.Body.Close()
	paymentID := data["payment"].(map[string]interface{})["id"].(string)

	cbResp := app.signedCallback(t, map[string]interface{}{
		"gateway_transaction_id": "momo-tx-999",
		"payment_reference":      paymentID,
		"outcome":                string(domain.GatewayOutcomeFailure),
		"amount":                 int64(150000),
		"currency":               "VND",
	}, "nonce-failure-001")
	require.Equal(t, http.StatusOK, cbResp.StatusCode)
	cbData := decodeData(t, cbResp)
	cbResp.Body.Close()
	assert.Equal(t, string(domain.PaymentStatusFailed), cbData["status"])

	respBal := app.do(t, http.MethodGet, "/api/v1/wallets/balance", app.token(t, user), nil, nil)
	assert.Equal(t, float64(0), decodeData(t, respBal)["balance"])
	respBal.Body.Close()
}

func TestIntegration_TopupRefund(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	user := uuid.New()
	resp := app.do(t, http.MethodPost, "/api/v1/checkout", app.token(t, user), map[string]interface{}{
		"item_type": "TOPUP",
		"amount":    int64(120000),
		"gateway":   testGatewayName,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := decodeData(t, resp)
	resp.Body.Close()
	paymentID := data["payment"].(map[string]interface{})["id"].(string)

	settle := app.signedCallback(t, map[string]interface{}{
		"gateway_transaction_id": "momo-tx-refund",
		"payment_reference":      paymentID,
		"outcome":                string(domain.GatewayOutcomeSuccess),
		"amount":                 int64(120000),
		"currency":               "VND",
	}, "nonce-refund-settle")
	require.Equal(t, http.StatusOK, settle.StatusCode)
	settle.Body.Close()

	refund := app.signedCallback(t, map[string]interface{}{
		"gateway_transaction_id": "momo-tx-refund",
		"payment_reference":      paymentID,
		"outcome":                string(domain.GatewayOutcomeRefund),
		"amount":                 int64(120000),
		"currency":               "VND",
	}, "nonce-refund-apply")
	require.Equal(t, http.StatusOK, refund.StatusCode)
	refundData := decodeData(t, refund)
	refund.Body.Close()
	assert.Equal(t, string(domain.PaymentStatusRefunded), refundData["status"])

	// The refund reverses the exact settled amount.
	respBal := app.do(t, http.MethodGet, "/api/v1/wallets/balance", app.token(t, user), nil, nil)
	assert.Equal(t, float64(0), decodeData(t, respBal)["balance"])
	respBal.Body.Close()
}

func TestIntegration_ListTransactions(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	user := uuid.New()
	app.fund(t, user, 10000)
	app.fund(t, user, 20000)

	resp := app.do(t, http.MethodGet, "/api/v1/wallets/transactions?page=1&page_size=10", app.token(t, user), nil, nil)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decodeData(t, resp)
	assert.Equal(t, float64(2), data["total"])
	items := data["items"].([]interface{})
	require.Len(t, items, 2)
	first := items[0].(map[string]interface{})
	assert.Equal(t, string(domain.EntryDirectionCredit), first["direction"])
}

func TestIntegration_WalletStats(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	user := uuid.New()
	app.fund(t, user, 80000)
	_, err := app.ledger.Debit(context.Background(), ports.MutationParams{
		UserID:    user,
		Amount:    30000,
		Reference: "test debit",
	})
	require.NoError(t, err)

	resp := app.do(t, http.MethodGet, "/api/v1/wallets/stats", app.token(t, user), nil, nil)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decodeData(t, resp)
	assert.Equal(t, float64(80000), data["total_credits"])
	assert.Equal(t, float64(30000), data["total_debits"])
	assert.Equal(t, float64(50000), data["cached_balance"])
	assert.Equal(t, true, data["consistent"])
}
