package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	commissiondomain "github.com/lotworks/dealdesk/internal/commission/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testDBSeq int

func newTestService(t *testing.T) (commissiondomain.Service, *snowflake.Node) {
	t.Helper()

	testDBSeq++
	dsn := fmt.Sprintf("file:commissionsvc%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&commissiondomain.Commission{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{DB: db, Log: zap.NewNop(), GenID: node})
	return svc, node
}

func TestAccrueForDeal_UpsertsSingleRow(t *testing.T) {
	svc, node := newTestService(t)
	ctx := context.Background()

	dealID, repID := node.Generate(), node.Generate()

	first, err := svc.AccrueForDeal(ctx, commissiondomain.AccrueRequest{
		DealID: dealID, SalesRepID: repID, Percent: 3.0, CalculatedAmount: 6_000,
	})
	require.NoError(t, err)
	assert.Equal(t, commissiondomain.CommissionStatusAccrued, first.Status)
	assert.Equal(t, commissiondomain.CommissionBasisNet, first.Basis)

	// A second accrual for the same deal updates the row in place.
	second, err := svc.AccrueForDeal(ctx, commissiondomain.AccrueRequest{
		DealID: dealID, SalesRepID: repID, Percent: 4.0, CalculatedAmount: 8_000,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(8_000), second.CalculatedAmount)

	list, err := svc.List(ctx, commissiondomain.ListCommissionRequest{DealID: dealID.String()})
	require.NoError(t, err)
	assert.Len(t, list.Commissions, 1)
}

func TestWorkflow_AccruedPayablePaid(t *testing.T) {
	svc, node := newTestService(t)
	ctx := context.Background()

	commission, err := svc.AccrueForDeal(ctx, commissiondomain.AccrueRequest{
		DealID: node.Generate(), SalesRepID: node.Generate(), Percent: 3.0, CalculatedAmount: 5_000,
	})
	require.NoError(t, err)

	// Paid before payable is refused.
	_, err = svc.MarkPaid(ctx, commission.ID.String())
	assert.ErrorIs(t, err, commissiondomain.ErrInvalidTransition)

	payable, err := svc.MarkPayable(ctx, commission.ID.String())
	require.NoError(t, err)
	assert.Equal(t, commissiondomain.CommissionStatusPayable, payable.Status)

	_, err = svc.MarkPayable(ctx, commission.ID.String())
	assert.ErrorIs(t, err, commissiondomain.ErrInvalidTransition)

	paid, err := svc.MarkPaid(ctx, commission.ID.String())
	require.NoError(t, err)
	assert.Equal(t, commissiondomain.CommissionStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	_, err = svc.MarkPaid(ctx, commission.ID.String())
	assert.ErrorIs(t, err, commissiondomain.ErrInvalidTransition)
}

func TestReleaseForDeal_OnlyMovesAccrued(t *testing.T) {
	svc, node := newTestService(t)
	ctx := context.Background()

	dealID := node.Generate()
	commission, err := svc.AccrueForDeal(ctx, commissiondomain.AccrueRequest{
		DealID: dealID, SalesRepID: node.Generate(), Percent: 3.0, CalculatedAmount: 5_000,
	})
	require.NoError(t, err)

	require.NoError(t, svc.ReleaseForDeal(ctx, dealID))

	payable, err := svc.MarkPaid(ctx, commission.ID.String())
	require.NoError(t, err)
	assert.Equal(t, commissiondomain.CommissionStatusPaid, payable.Status)

	// Releasing again is a no-op; the paid row stays paid.
	require.NoError(t, svc.ReleaseForDeal(ctx, dealID))
	list, err := svc.List(ctx, commissiondomain.ListCommissionRequest{DealID: dealID.String()})
	require.NoError(t, err)
	require.Len(t, list.Commissions, 1)
	assert.Equal(t, commissiondomain.CommissionStatusPaid, list.Commissions[0].Status)
}

func TestMarkPayable_UnknownID(t *testing.T) {
	svc, node := newTestService(t)

	_, err := svc.MarkPayable(context.Background(), node.Generate().String())
	assert.ErrorIs(t, err, commissiondomain.ErrNotFound)

	_, err = svc.MarkPayable(context.Background(), "not-a-snowflake")
	assert.ErrorIs(t, err, commissiondomain.ErrInvalidID)
}
