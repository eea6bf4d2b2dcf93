//nolint:noctx // Test file uses http.NewRequest for simplicity
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecohood/points-ledger/internal/models"
	"github.com/ecohood/points-ledger/internal/repository"
	"github.com/ecohood/points-ledger/internal/service/badges"
	"github.com/ecohood/points-ledger/internal/service/donations"
	"github.com/ecohood/points-ledger/internal/service/ledger"
	"github.com/ecohood/points-ledger/internal/service/pickups"
	"github.com/ecohood/points-ledger/internal/service/redemptions"
	"github.com/ecohood/points-ledger/internal/service/settings"
	"github.com/ecohood/points-ledger/internal/service/vouchers"
	"github.com/ecohood/points-ledger/pkg/logger"
	"github.com/ecohood/points-ledger/test/mocks"
	"github.com/ecohood/points-ledger/test/testdb"
)

type testEnv struct {
	db     *repository.DB
	router *gin.Engine
	sent   *mocks.MockDispatcher
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testdb.New(t)
	testdb.SeedSettings(t, db, nil)

	log := logger.Nop()
	sent := mocks.NewMockDispatcher()
	ledgerSvc := ledger.NewService(db, log)

	handler := NewHandler(Services{
		Ledger:      ledgerSvc,
		Badges:      badges.NewService(repository.NewBadgeRepository(db), repository.NewUserRepository(db), sent, log),
		Pickups:     pickups.NewService(db, ledgerSvc, sent, log),
		Donations:   donations.NewService(db, ledgerSvc, sent, log),
		Redemptions: redemptions.NewService(db, ledgerSvc, sent, log),
		Vouchers:    vouchers.NewService(db, ledgerSvc, sent, log),
		Settings:    settings.NewService(repository.NewSettingsRepository(db), log),
	}, log)

	gin.SetMode(gin.TestMode)
	router := NewRouter(handler, RouterOptions{
		Checks: map[string]HealthCheck{
			"database": func(context.Context) error { return db.Health() },
		},
	}, log)

	return &testEnv{db: db, router: router, sent: sent}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	reqBody := http.NoBody
	var req *http.Request
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		req, _ = http.NewRequest(method, path, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, reqBody)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return w.Code, response
}

func (e *testEnv) balance(t *testing.T, userID uint) int64 {
	t.Helper()
	b, err := repository.NewLedgerRepository(e.db).GetBalance(userID)
	require.NoError(t, err)
	return b
}

func userPath(userID uint, suffix string) string {
	return fmt.Sprintf("/api/v1/users/%d%s", userID, suffix)
}

func TestGrantAndDeductPoints(t *testing.T) {
	env := setupTestEnv(t)
	user := testdb.CreateUser(t, env.db, "alice")

	code, resp := env.do(t, "POST", userPath(user.ID, "/points/grant"), PointsRequest{Points: 100, Reason: "welcome bonus"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(100), resp["balance"])

	code, resp = env.do(t, "POST", userPath(user.ID, "/points/deduct"), PointsRequest{Points: 150, Reason: "correction"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(100), resp["points"])
	assert.Equal(t, float64(0), resp["balance"])
	assert.Contains(t, resp["message"], "limited")

	code, resp = env.do(t, "GET", userPath(user.ID, "/points/log?limit=10"), nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), resp["total_entries"])
}

func TestDeductPoints_EmptyBalance(t *testing.T) {
	env := setupTestEnv(t)
	user := testdb.CreateUser(t, env.db, "ivan")

	code, resp := env.do(t, "POST", userPath(user.ID, "/points/deduct"), PointsRequest{Points: 10})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), resp["points"])
	assert.Contains(t, resp["message"], "nothing deducted")

	code, resp = env.do(t, "GET", userPath(user.ID, "/points/log"), nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), resp["total_entries"])
}

func TestGrantPoints_Overflow(t *testing.T) {
	env := setupTestEnv(t)
	user := testdb.CreateUser(t, env.db, "oscar")

	code, _ := env.do(t, "POST", userPath(user.ID, "/points/grant"), PointsRequest{Points: math.MaxInt64 - 5})
	require.Equal(t, http.StatusOK, code)

	code, _ = env.do(t, "POST", userPath(user.ID, "/points/grant"), PointsRequest{Points: 10})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestGrantPoints_Validation(t *testing.T) {
	env := setupTestEnv(t)
	user := testdb.CreateUser(t, env.db, "bob")

	tests := []struct {
		name string
		path string
		body interface{}
		code int
	}{
		{"zero points", userPath(user.ID, "/points/grant"), PointsRequest{Points: 0}, http.StatusBadRequest},
		{"negative points", userPath(user.ID, "/points/grant"), PointsRequest{Points: -5}, http.StatusBadRequest},
		{"invalid user id", "/api/v1/users/abc/points/grant", PointsRequest{Points: 5}, http.StatusBadRequest},
		{"unknown user", userPath(9999, "/points/grant"), PointsRequest{Points: 5}, http.StatusNotFound},
		{"malformed body", userPath(user.ID, "/points/grant"), "not an object", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := env.do(t, "POST", tt.path, tt.body)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, false, resp["success"])
			assert.NotEmpty(t, resp["message"])
		})
	}

	assert.Equal(t, int64(0), env.balance(t, user.ID))
}

func TestGetBalance(t *testing.T) {
	env := setupTestEnv(t)
	user := testdb.CreateUser(t, env.db, "carol")

	code, resp := env.do(t, "GET", userPath(user.ID, "/balance"), nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), resp["balance"])

	code, _ = env.do(t, "GET", userPath(404, "/balance"), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGetPointsLog_InvalidLimit(t *testing.T) {
	env := setupTestEnv(t)
	user := testdb.CreateUser(t, env.db, "dave")

	for _, limit := range []string{"0", "abc", "1001"} {
		code, resp := env.do(t, "GET", userPath(user.ID, "/points/log?limit="+limit), nil)
		assert.Equal(t, http.StatusBadRequest, code, limit)
		assert.Equal(t, false, resp["success"])
	}
}

func TestPickupCompletionFlow(t *testing.T) {
	env := setupTestEnv(t)
	user := testdb.CreateUser(t, env.db, "erin")

	code, resp := env.do(t, "POST", "/api/v1/pickups", map[string]interface{}{
		"user_id": user.ID,
		"address": "12 Olive Street",
		"items": []map[string]interface{}{
			{"name": "plastic bottles", "quantity": "2.5"},
			{"name": "food scraps", "quantity": 3},
		},
	})
	require.Equal(t, http.StatusOK, code, resp)
	pickup := resp["pickup"].(map[string]interface{})
	pickupID := uint(pickup["id"].(float64))

	path := fmt.Sprintf("/api/v1/pickups/%d/status", pickupID)
	code, resp = env.do(t, "PUT", path, StatusRequest{Status: models.PickupStatusCompleted})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(40), resp["points_awarded"])
	assert.Equal(t, int64(40), env.balance(t, user.ID))

	code, resp = env.do(t, "PUT", path, StatusRequest{Status: models.PickupStatusCompleted})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), resp["points_awarded"])
	assert.Equal(t, "pickup status unchanged", resp["message"])
	assert.Equal(t, int64(40), env.balance(t, user.ID))

	code, _ = env.do(t, "PUT", path, StatusRequest{Status: models.PickupStatusCancelled})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = env.do(t, "PUT", path, StatusRequest{Status: "lost"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, "PUT", path, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = env.do(t, "GET", userPath(user.ID, "/pickups"), nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), resp["total"])
}

func TestDonationApproval(t *testing.T) {
	env := setupTestEnv(t)
	user := testdb.CreateUser(t, env.db, "frank")

	code, resp := env.do(t, "POST", "/api/v1/donations", donations.CreateRequest{
		UserID:      user.ID,
		Description: "winter coats",
		Quantity:    3,
	})
	require.Equal(t, http.StatusOK, code, resp)
	donationID := uint(resp["donation"].(map[string]interface{})["id"].(float64))

	path := fmt.Sprintf("/api/v1/donations/%d/status", donationID)
	code, resp = env.do(t, "PUT", path, StatusRequest{Status: models.DonationStatusApproved})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(60), resp["points_awarded"])

	code, _ = env.do(t, "PUT", path, StatusRequest{Status: models.DonationStatusApproved})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(60), env.balance(t, user.ID))

	code, _ = env.do(t, "GET", "/api/v1/donations/999", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRedemptionLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	user := testdb.CreateUser(t, env.db, "grace")

	code, _ := env.do(t, "POST", userPath(user.ID, "/points/grant"), PointsRequest{Points: 300})
	require.Equal(t, http.StatusOK, code)

	request := redemptions.CreateRequest{
		UserID:        user.ID,
		Points:        200,
		BankName:      "Green Bank",
		AccountHolder: "Grace",
		AccountNumber: "0011223344",
	}
	code, resp := env.do(t, "POST", "/api/v1/redemptions", request)
	require.Equal(t, http.StatusOK, code, resp)
	redemption := resp["redemption"].(map[string]interface{})
	assert.Equal(t, "10", redemption["amount"])
	assert.Equal(t, int64(300), env.balance(t, user.ID))

	redemptionID := uint(redemption["id"].(float64))
	path := fmt.Sprintf("/api/v1/redemptions/%d/status", redemptionID)

	code, _ = env.do(t, "PUT", path, StatusRequest{Status: models.RedemptionStatusCompleted})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(100), env.balance(t, user.ID))

	code, _ = env.do(t, "PUT", path, StatusRequest{Status: models.RedemptionStatusCancelled})
	assert.Equal(t, http.StatusConflict, code)

	code, resp = env.do(t, "GET", fmt.Sprintf("/api/v1/redemptions/%d", redemptionID), nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.RedemptionStatusCompleted, resp["redemption"].(map[string]interface{})["status"])

	code, resp = env.do(t, "GET", "/api/v1/redemptions?status=completed", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), resp["total"])

	code, _ = env.do(t, "DELETE", fmt.Sprintf("/api/v1/redemptions/%d", redemptionID), nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(100), env.balance(t, user.ID))

	code, _ = env.do(t, "DELETE", fmt.Sprintf("/api/v1/redemptions/%d", redemptionID), nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = env.do(t, "GET", fmt.Sprintf("/api/v1/redemptions/%d", redemptionID), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRedemption_Rejections(t *testing.T) {
	env := setupTestEnv(t)
	user := testdb.CreateUser(t, env.db, "heidi")

	code, _ := env.do(t, "POST", "/api/v1/redemptions", redemptions.CreateRequest{
		UserID: user.ID, Points: 50, BankName: "B", AccountHolder: "H", AccountNumber: "1",
	})
	assert.Equal(t, http.StatusConflict, code, "below minimum")

	code, _ = env.do(t, "POST", "/api/v1/redemptions", redemptions.CreateRequest{
		UserID: user.ID, Points: 500, BankName: "B", AccountHolder: "H", AccountNumber: "1",
	})
	assert.Equal(t, http.StatusConflict, code, "insufficient points")

	code, _ = env.do(t, "POST", "/api/v1/redemptions", redemptions.CreateRequest{
		UserID: user.ID, Points: 500,
	})
	assert.Equal(t, http.StatusBadRequest, code, "missing bank details")
}

func TestVoucherRedeemAndProcess(t *testing.T) {
	env := setupTestEnv(t)
	user := testdb.CreateUser(t, env.db, "ivan")

	code, _ := env.do(t, "POST", userPath(user.ID, "/points/grant"), PointsRequest{Points: 500})
	require.Equal(t, http.StatusOK, code)

	code, resp := env.do(t, "POST", "/api/v1/vouchers", vouchers.CreateRequest{
		Title:          "Cafe voucher",
		Partner:        "Corner Cafe",
		PointsRequired: 500,
		Quantity:       1,
	})
	require.Equal(t, http.StatusOK, code, resp)
	voucherID := uint(resp["voucher"].(map[string]interface{})["id"].(float64))

	redeemPath := fmt.Sprintf("/api/v1/vouchers/%d/redeem", voucherID)
	code, resp = env.do(t, "POST", redeemPath, RedeemVoucherRequest{UserID: user.ID})
	require.Equal(t, http.StatusOK, code, resp)
	assert.Equal(t, int64(0), env.balance(t, user.ID))
	redemptionID := uint(resp["redemption"].(map[string]interface{})["id"].(float64))

	code, _ = env.do(t, "POST", redeemPath, RedeemVoucherRequest{UserID: user.ID})
	assert.Equal(t, http.StatusConflict, code)

	code, resp = env.do(t, "PUT", fmt.Sprintf("/api/v1/voucher-redemptions/%d/process", redemptionID), nil)
	assert.Equal(t, http.StatusOK, code)
	processed := resp["redemption"].(map[string]interface{})
	assert.Equal(t, models.VoucherRedemptionProcessed, processed["status"])
	assert.Regexp(t, `^ECO-[0-9A-F]{12}$`, processed["coupon_code"])

	code, resp = env.do(t, "GET", userPath(user.ID, "/voucher-redemptions"), nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), resp["total"])

	code, resp = env.do(t, "GET", "/api/v1/vouchers", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), resp["total"])
	code, resp = env.do(t, "GET", fmt.Sprintf("/api/v1/vouchers/%d", voucherID), nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), resp["voucher"].(map[string]interface{})["quantity"])

	code, _ = env.do(t, "GET", "/api/v1/vouchers/999", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestBadgeEndpoints(t *testing.T) {
	env := setupTestEnv(t)
	user := testdb.CreateUser(t, env.db, "judy")

	code, resp := env.do(t, "POST", "/api/v1/badges", CreateBadgeRequest{Name: "Eco Starter", Description: "First pickup"})
	require.Equal(t, http.StatusOK, code, resp)
	badgeID := uint(resp["badge"].(map[string]interface{})["id"].(float64))

	code, _ = env.do(t, "POST", userPath(user.ID, "/badges"), GrantBadgeRequest{BadgeID: badgeID})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, env.sent.Count())

	code, _ = env.do(t, "POST", userPath(user.ID, "/badges"), GrantBadgeRequest{BadgeID: badgeID})
	assert.Equal(t, http.StatusConflict, code)

	code, resp = env.do(t, "GET", userPath(user.ID, "/badges"), nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), resp["total_badges"])

	code, resp = env.do(t, "GET", fmt.Sprintf("/api/v1/badges/%d/holders", badgeID), nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), resp["holders"])

	code, _ = env.do(t, "POST", "/api/v1/badges", CreateBadgeRequest{Name: "Eco Starter"})
	assert.Equal(t, http.StatusConflict, code, "duplicate badge name")

	code, _ = env.do(t, "DELETE", userPath(user.ID, fmt.Sprintf("/badges/%d", badgeID)), nil)
	assert.Equal(t, http.StatusOK, code)

	code, resp = env.do(t, "GET", fmt.Sprintf("/api/v1/badges/%d/holders", badgeID), nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), resp["holders"])

	code, _ = env.do(t, "GET", "/api/v1/badges/777/holders", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = env.do(t, "POST", userPath(user.ID, "/badges"), GrantBadgeRequest{BadgeID: 777})
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = env.do(t, "GET", "/api/v1/badges", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), resp["total_badges"])
}

func TestPointSettings(t *testing.T) {
	env := setupTestEnv(t)

	code, resp := env.do(t, "GET", "/api/v1/settings/points", nil)
	assert.Equal(t, http.StatusOK, code)
	current := resp["settings"].(map[string]interface{})
	assert.Equal(t, true, current["auto_grant_enabled"])

	code, resp = env.do(t, "PUT", "/api/v1/settings/points", map[string]interface{}{
		"auto_grant_enabled": false,
		"recycling_per_kg":   "12.5",
	})
	assert.Equal(t, http.StatusOK, code)
	updated := resp["settings"].(map[string]interface{})
	assert.Equal(t, false, updated["auto_grant_enabled"])
	assert.Equal(t, "12.5", updated["recycling_per_kg"])

	code, _ = env.do(t, "PUT", "/api/v1/settings/points", map[string]interface{}{"point_value": "-1"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestNotifications_InboxDisabled(t *testing.T) {
	env := setupTestEnv(t)
	user := testdb.CreateUser(t, env.db, "kim")

	code, _ := env.do(t, "GET", userPath(user.ID, "/notifications"), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHealth(t *testing.T) {
	env := setupTestEnv(t)

	code, resp := env.do(t, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp["status"])
}

func TestHealth_Unhealthy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(NewHandler(Services{}, logger.Nop()), RouterOptions{
		Checks: map[string]HealthCheck{
			"redis": func(context.Context) error { return errors.New("connection refused") },
		},
	}, logger.Nop())

	req, _ := http.NewRequest("GET", "/health", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

// brokenLedger fails every call with an infrastructure error.
type brokenLedger struct{}

func (brokenLedger) Grant(context.Context, *repository.DB, ledger.Entry) (*ledger.Movement, error) {
	return nil, errors.New("database is locked")
}

func (brokenLedger) Deduct(context.Context, uint, int64, string) (*ledger.Movement, error) {
	return nil, errors.New("database is locked")
}

func (brokenLedger) GetBalance(context.Context, uint) (int64, error) {
	return 0, errors.New("database is locked")
}

func (brokenLedger) GetPointsLog(context.Context, uint, int) ([]models.PointsLogEntry, error) {
	return nil, errors.New("database is locked")
}

func TestInfrastructureErrorsAreGeneric(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(NewHandler(Services{Ledger: brokenLedger{}}, logger.Nop()), RouterOptions{}, logger.Nop())

	payload, _ := json.Marshal(PointsRequest{Points: 10})
	req, _ := http.NewRequest("POST", "/api/v1/users/1/points/grant", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), genericFailure)
	assert.NotContains(t, w.Body.String(), "database is locked")
}

func TestRequestIDHeader(t *testing.T) {
	env := setupTestEnv(t)

	req, _ := http.NewRequest("GET", "/health", http.NoBody)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))

	req, _ = http.NewRequest("GET", "/health", http.NoBody)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}
