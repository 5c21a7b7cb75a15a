package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	taxruledomain "github.com/lotworks/dealdesk/internal/taxrule/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testDBSeq int

func newTestService(t *testing.T) (taxruledomain.Service, taxruledomain.Resolver) {
	t.Helper()

	testDBSeq++
	dsn := fmt.Sprintf("file:taxrulesvc%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&taxruledomain.TaxRegime{},
		&taxruledomain.TaxRule{},
		&taxruledomain.TaxRuleLine{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{DB: db, Log: zap.NewNop(), GenID: node})
	return svc, NewResolver(svc)
}

func rate(v float64) *float64 { return &v }

func TestCreateRule_VersionsPerRegime(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	regime, err := svc.CreateRegime(ctx, taxruledomain.CreateRegimeRequest{Name: "Texas Retail", Jurisdiction: "TX"})
	require.NoError(t, err)

	lines := []taxruledomain.CreateRuleLineRequest{
		{
			Name: "Sales Tax", LineKind: taxruledomain.LineKindTax,
			CalcType: taxruledomain.CalcTypePercent, Base: taxruledomain.FeeBaseVehicleSubtotal,
			Rate: rate(6.25), Sort: 1,
		},
	}

	first, err := svc.CreateRule(ctx, taxruledomain.CreateRuleRequest{RegimeID: regime.ID.String(), Lines: lines})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Rule.Version)

	second, err := svc.CreateRule(ctx, taxruledomain.CreateRuleRequest{RegimeID: regime.ID.String(), Lines: lines})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Rule.Version)
	assert.NotEqual(t, first.Rule.ID, second.Rule.ID)
}

func TestCreateRule_ValidatesLines(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	regime, err := svc.CreateRegime(ctx, taxruledomain.CreateRegimeRequest{Name: "Ohio Retail"})
	require.NoError(t, err)

	_, err = svc.CreateRule(ctx, taxruledomain.CreateRuleRequest{RegimeID: regime.ID.String()})
	assert.ErrorIs(t, err, taxruledomain.ErrNoLines)

	_, err = svc.CreateRule(ctx, taxruledomain.CreateRuleRequest{
		RegimeID: regime.ID.String(),
		Lines: []taxruledomain.CreateRuleLineRequest{
			{
				Name: "Sales Tax", LineKind: taxruledomain.LineKindTax,
				CalcType: taxruledomain.CalcTypePercent, Base: taxruledomain.FeeBaseVehicleSubtotal,
				// no rate on a percent line
			},
		},
	})
	assert.ErrorIs(t, err, taxruledomain.ErrInvalidRate)

	_, err = svc.CreateRule(ctx, taxruledomain.CreateRuleRequest{
		RegimeID: svc.(*Service).genID.Generate().String(),
		Lines: []taxruledomain.CreateRuleLineRequest{
			{
				Name: "Doc Fee", LineKind: taxruledomain.LineKindFee,
				CalcType: taxruledomain.CalcTypeFixed, Base: taxruledomain.FeeBaseVehicleSubtotal,
				FixedAmount: 9_900,
			},
		},
	})
	assert.ErrorIs(t, err, taxruledomain.ErrRegimeNotFound)
}

func TestResolveForDeal_ReturnsLinesInSortOrder(t *testing.T) {
	svc, resolver := newTestService(t)
	ctx := context.Background()

	regime, err := svc.CreateRegime(ctx, taxruledomain.CreateRegimeRequest{Name: "Florida Retail", Jurisdiction: "FL"})
	require.NoError(t, err)

	created, err := svc.CreateRule(ctx, taxruledomain.CreateRuleRequest{
		RegimeID: regime.ID.String(),
		Lines: []taxruledomain.CreateRuleLineRequest{
			{
				Name: "Doc Fee", LineKind: taxruledomain.LineKindFee,
				CalcType: taxruledomain.CalcTypeFixed, Base: taxruledomain.FeeBaseVehicleSubtotal,
				FixedAmount: 9_900, Sort: 2,
			},
			{
				Name: "Sales Tax", LineKind: taxruledomain.LineKindTax,
				CalcType: taxruledomain.CalcTypePercent, Base: taxruledomain.FeeBaseVehicleSubtotal,
				Rate: rate(6.0), Sort: 1,
			},
		},
	})
	require.NoError(t, err)

	rule, lines, err := resolver.ResolveForDeal(ctx, created.Rule.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Rule.ID, rule.ID)
	require.Len(t, lines, 2)
	assert.Equal(t, "Sales Tax", lines[0].Name)
	assert.Equal(t, "Doc Fee", lines[1].Name)

	_, _, err = resolver.ResolveForDeal(ctx, rule.ID+1)
	assert.ErrorIs(t, err, taxruledomain.ErrRuleNotFound)
}

func TestClassifyLineKind(t *testing.T) {
	assert.Equal(t, taxruledomain.LineKindTax, taxruledomain.ClassifyLineKind("State Sales Tax"))
	assert.Equal(t, taxruledomain.LineKindTax, taxruledomain.ClassifyLineKind("sales surcharge"))
	assert.Equal(t, taxruledomain.LineKindFee, taxruledomain.ClassifyLineKind("Documentation"))
	assert.Equal(t, taxruledomain.LineKindFee, taxruledomain.ClassifyLineKind("Title Fee"))
}
