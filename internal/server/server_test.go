package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/lotworks/dealdesk/internal/audit/domain"
	auditservice "github.com/lotworks/dealdesk/internal/audit/service"
	commissiondomain "github.com/lotworks/dealdesk/internal/commission/domain"
	commissionservice "github.com/lotworks/dealdesk/internal/commission/service"
	"github.com/lotworks/dealdesk/internal/config"
	dealdomain "github.com/lotworks/dealdesk/internal/deal/domain"
	dealservice "github.com/lotworks/dealdesk/internal/deal/service"
	"github.com/lotworks/dealdesk/internal/events"
	inventorydomain "github.com/lotworks/dealdesk/internal/inventory/domain"
	inventoryservice "github.com/lotworks/dealdesk/internal/inventory/service"
	obsmetrics "github.com/lotworks/dealdesk/internal/observability/metrics"
	salesrepdomain "github.com/lotworks/dealdesk/internal/salesrep/domain"
	salesrepservice "github.com/lotworks/dealdesk/internal/salesrep/service"
	taxruledomain "github.com/lotworks/dealdesk/internal/taxrule/domain"
	taxruleservice "github.com/lotworks/dealdesk/internal/taxrule/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var serverTestSeq int

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	serverTestSeq++
	dsn := fmt.Sprintf("file:serversvc%d?mode=memory&cache=shared", serverTestSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&salesrepdomain.SalesRep{},
		&inventorydomain.Unit{},
		&taxruledomain.TaxRegime{},
		&taxruledomain.TaxRule{},
		&taxruledomain.TaxRuleLine{},
		&dealdomain.Deal{},
		&dealdomain.DealUnit{},
		&dealdomain.DealFee{},
		&dealdomain.Payment{},
		&commissiondomain.Commission{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	logger := zap.NewNop()
	cfg := config.Config{DefaultCommissionPercent: 3.0}

	auditSvc := auditservice.NewService(auditservice.Params{DB: db, Log: logger, GenID: node})
	salesRepSvc := salesrepservice.NewService(salesrepservice.Params{DB: db, Log: logger, GenID: node})
	inventorySvc := inventoryservice.NewService(inventoryservice.Params{DB: db, Log: logger, GenID: node})
	taxRuleSvc := taxruleservice.NewService(taxruleservice.Params{DB: db, Log: logger, GenID: node})
	commissionSvc := commissionservice.NewService(commissionservice.Params{
		DB: db, Log: logger, GenID: node, AuditSvc: auditSvc,
	})
	dealSvc := dealservice.NewService(dealservice.Params{
		DB:            db,
		Log:           logger,
		GenID:         node,
		Cfg:           cfg,
		AuditSvc:      auditSvc,
		CommissionSvc: commissionSvc,
		CostLookup:    inventoryservice.NewCostLookup(inventorySvc),
		RepLookup:     salesrepservice.NewRepLookup(salesRepSvc),
		TaxResolver:   taxruleservice.NewResolver(taxRuleSvc),
		Publisher:     events.NewBus(logger),
	})

	engine := NewEngine(logger, obsmetrics.NewHTTPMetricsWithRegisterer(prometheus.NewRegistry()))
	return NewServer(ServerParams{
		Gin:           engine,
		Cfg:           cfg,
		DB:            db,
		GenID:         node,
		DealSvc:       dealSvc,
		TaxRuleSvc:    taxRuleSvc,
		CommissionSvc: commissionSvc,
		InventorySvc:  inventorySvc,
		SalesRepSvc:   salesRepSvc,
		AuditSvc:      auditSvc,
	})
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	return w
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDealFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	node, _ := snowflake.NewNode(2)

	// Regime and rule first.
	w := doJSON(t, srv, http.MethodPost, "/v1/tax_regimes", map[string]any{
		"name": "Texas Retail", "jurisdiction": "TX",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var regime taxruledomain.TaxRegime
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &regime))

	w = doJSON(t, srv, http.MethodPost, "/v1/tax_rules", map[string]any{
		"regime_id": regime.ID.String(),
		"lines": []map[string]any{
			{
				"name": "Sales Tax", "line_kind": "tax", "calc_type": "percent",
				"base": "vehicle_subtotal", "rate": 6.25, "sort": 1,
			},
			{
				"name": "Doc Fee", "line_kind": "fee", "calc_type": "fixed",
				"base": "vehicle_subtotal", "fixed_amount": 9900, "sort": 2,
			},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var rule taxruledomain.RuleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rule))

	w = doJSON(t, srv, http.MethodPost, "/v1/deals", map[string]any{
		"opportunity_id": node.Generate().String(),
		"account_id":     node.Generate().String(),
		"sales_rep_id":   node.Generate().String(),
		"currency":       "USD",
		"units": []map[string]any{
			{"unit_id": node.Generate().String(), "agreed_price": 1_000_000},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var deal dealdomain.Deal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &deal))
	assert.Equal(t, int64(1_000_000), deal.TotalDue)

	w = doJSON(t, srv, http.MethodPost,
		fmt.Sprintf("/v1/deals/%s/tax_rule/%s", deal.ID, rule.Rule.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail dealdomain.DealDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, int64(62_500), detail.Deal.TaxesTotal)
	assert.Equal(t, int64(9_900), detail.Deal.FeesTotal)

	w = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/v1/deals/%s/issue", deal.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/v1/deals/%s/payments", deal.ID), map[string]any{
		"method": "wire", "amount": 1_072_400, "recorded_by": node.Generate().String(),
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/v1/deals/%s", deal.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, dealdomain.DealStatusPaid, detail.Deal.Status)
	assert.Equal(t, int64(0), detail.Deal.BalanceDue)

	w = doJSON(t, srv, http.MethodGet, "/v1/commissions?deal_id="+deal.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var commissions commissiondomain.ListCommissionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &commissions))
	require.Len(t, commissions.Commissions, 1)
	assert.Equal(t, commissiondomain.CommissionStatusPayable, commissions.Commissions[0].Status)
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t)
	node, _ := snowflake.NewNode(3)

	// Unknown deal: 404.
	w := doJSON(t, srv, http.MethodGet, "/v1/deals/"+node.Generate().String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Malformed body: 400 with validation payload.
	w = doJSON(t, srv, http.MethodPost, "/v1/deals", "not-json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Missing units: domain validation error, 400.
	w = doJSON(t, srv, http.MethodPost, "/v1/deals", map[string]any{
		"opportunity_id": node.Generate().String(),
		"account_id":     node.Generate().String(),
		"sales_rep_id":   node.Generate().String(),
		"currency":       "USD",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Canceling an issued deal: 409.
	w = doJSON(t, srv, http.MethodPost, "/v1/deals", map[string]any{
		"opportunity_id": node.Generate().String(),
		"account_id":     node.Generate().String(),
		"sales_rep_id":   node.Generate().String(),
		"currency":       "USD",
		"units": []map[string]any{
			{"unit_id": node.Generate().String(), "agreed_price": 100_000},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var deal dealdomain.Deal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &deal))

	w = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/v1/deals/%s/issue", deal.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/v1/deals/%s/cancel", deal.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}
