package redemptions

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecohood/points-ledger/internal/apperrors"
	"github.com/ecohood/points-ledger/internal/models"
	"github.com/ecohood/points-ledger/internal/service/ledger"
	"github.com/ecohood/points-ledger/pkg/logger"
	"github.com/ecohood/points-ledger/test/mocks"
	"github.com/ecohood/points-ledger/test/testdb"
)

type fixture struct {
	svc        *Service
	ledger     *ledger.Service
	dispatcher *mocks.MockDispatcher
	user       *models.User
}

func setup(t *testing.T, startingPoints int64) *fixture {
	t.Helper()
	db := testdb.New(t)
	testdb.SeedSettings(t, db, nil)
	ledgerSvc := ledger.NewService(db, logger.Nop())
	dispatcher := mocks.NewMockDispatcher()
	user := testdb.CreateUser(t, db, "yara")

	if startingPoints > 0 {
		_, err := ledgerSvc.Grant(context.Background(), nil, ledger.Entry{UserID: user.ID, Points: startingPoints})
		require.NoError(t, err)
	}

	return &fixture{
		svc:        NewService(db, ledgerSvc, dispatcher, logger.Nop()),
		ledger:     ledgerSvc,
		dispatcher: dispatcher,
		user:       user,
	}
}

func (f *fixture) request(points int64) CreateRequest {
	return CreateRequest{
		UserID:        f.user.ID,
		Points:        points,
		BankName:      "Cairo Bank",
		AccountHolder: "Yara H.",
		AccountNumber: "EG00 1234",
	}
}

func (f *fixture) balance(t *testing.T) int64 {
	t.Helper()
	b, err := f.ledger.GetBalance(context.Background(), f.user.ID)
	require.NoError(t, err)
	return b
}

func TestRedemptionDebitsOnlyOnCompletion(t *testing.T) {
	f := setup(t, 500)
	ctx := context.Background()

	req, err := f.svc.CreateRedemption(ctx, f.request(200))
	require.NoError(t, err)
	assert.Equal(t, models.RedemptionStatusPending, req.Status)
	assert.True(t, req.Amount.Equal(decimal.NewFromInt(10)), "200 points x 0.05")
	assert.Equal(t, int64(500), f.balance(t), "creating a request does not debit")

	result, err := f.svc.UpdateStatus(ctx, req.ID, models.RedemptionStatusCompleted)
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.NotNil(t, result.Redemption.CompletedAt)
	assert.Equal(t, int64(300), f.balance(t))

	entries, err := f.ledger.GetPointsLog(ctx, f.user.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(-200), entries[0].Delta)
	assert.Equal(t, models.SourceRedemption, entries[0].SourceType)

	require.Equal(t, 1, f.dispatcher.Count())
	assert.Contains(t, f.dispatcher.Sent()[0].Content, "10.00")
}

func TestCompletingTwiceDebitsOnce(t *testing.T) {
	f := setup(t, 500)
	ctx := context.Background()

	req, err := f.svc.CreateRedemption(ctx, f.request(200))
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, req.ID, models.RedemptionStatusCompleted)
	require.NoError(t, err)
	result, err := f.svc.UpdateStatus(ctx, req.ID, models.RedemptionStatusCompleted)
	require.NoError(t, err)
	assert.False(t, result.Changed)

	assert.Equal(t, int64(300), f.balance(t))
}

func TestCompletionRevalidatesBalance(t *testing.T) {
	f := setup(t, 300)
	ctx := context.Background()

	req, err := f.svc.CreateRedemption(ctx, f.request(250))
	require.NoError(t, err)

	// Balance drops after the request was made.
	_, err = f.ledger.Deduct(ctx, f.user.ID, 100, "correction")
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, req.ID, models.RedemptionStatusCompleted)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientPoints)

	stored, err := f.svc.GetRedemption(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RedemptionStatusPending, stored.Status, "rejected completion leaves the request pending")
	assert.Equal(t, int64(200), f.balance(t))
}

func TestCancelledRedemptionIsTerminal(t *testing.T) {
	f := setup(t, 500)
	ctx := context.Background()

	req, err := f.svc.CreateRedemption(ctx, f.request(150))
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, req.ID, models.RedemptionStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, int64(500), f.balance(t))

	_, err = f.svc.UpdateStatus(ctx, req.ID, models.RedemptionStatusCompleted)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Equal(t, int64(500), f.balance(t))
}

func TestCreateRedemptionRules(t *testing.T) {
	f := setup(t, 150)
	ctx := context.Background()

	_, err := f.svc.CreateRedemption(ctx, f.request(50))
	assert.ErrorIs(t, err, apperrors.ErrBelowMinimum)

	_, err = f.svc.CreateRedemption(ctx, f.request(151))
	assert.ErrorIs(t, err, apperrors.ErrInsufficientPoints)

	_, err = f.svc.CreateRedemption(ctx, f.request(0))
	assert.ErrorIs(t, err, apperrors.ErrInvalidPoints)

	bad := f.request(100)
	bad.AccountNumber = " "
	_, err = f.svc.CreateRedemption(ctx, bad)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestDeleteRedemption(t *testing.T) {
	f := setup(t, 500)
	ctx := context.Background()

	req, err := f.svc.CreateRedemption(ctx, f.request(100))
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, req.ID, models.RedemptionStatusCompleted)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteRedemption(ctx, req.ID))
	assert.Equal(t, int64(400), f.balance(t), "deleting does not refund")

	assert.ErrorIs(t, f.svc.DeleteRedemption(ctx, req.ID), apperrors.ErrRedemptionNotFound)
}

func TestListRedemptions(t *testing.T) {
	f := setup(t, 1000)
	ctx := context.Background()

	first, err := f.svc.CreateRedemption(ctx, f.request(100))
	require.NoError(t, err)
	_, err = f.svc.CreateRedemption(ctx, f.request(200))
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, first.ID, models.RedemptionStatusCancelled)
	require.NoError(t, err)

	pending, err := f.svc.ListRedemptions(ctx, models.RedemptionStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	all, err := f.svc.ListRedemptions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.ListRedemptions(ctx, "paid")
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)
}

func TestAmount(t *testing.T) {
	assert.True(t, Amount(333, decimal.RequireFromString("0.05")).Equal(decimal.RequireFromString("16.65")))
	assert.True(t, Amount(1, decimal.RequireFromString("0.004")).Equal(decimal.Zero))
}
