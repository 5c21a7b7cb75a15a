package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/lotworks/dealdesk/internal/audit"
	auditdomain "github.com/lotworks/dealdesk/internal/audit/domain"
	"github.com/lotworks/dealdesk/internal/commission"
	commissiondomain "github.com/lotworks/dealdesk/internal/commission/domain"
	"github.com/lotworks/dealdesk/internal/config"
	"github.com/lotworks/dealdesk/internal/deal"
	dealdomain "github.com/lotworks/dealdesk/internal/deal/domain"
	"github.com/lotworks/dealdesk/internal/events"
	"github.com/lotworks/dealdesk/internal/inventory"
	inventorydomain "github.com/lotworks/dealdesk/internal/inventory/domain"
	"github.com/lotworks/dealdesk/internal/observability"
	obslogger "github.com/lotworks/dealdesk/internal/observability/logger"
	obsmetrics "github.com/lotworks/dealdesk/internal/observability/metrics"
	"github.com/lotworks/dealdesk/internal/salesrep"
	salesrepdomain "github.com/lotworks/dealdesk/internal/salesrep/domain"
	"github.com/lotworks/dealdesk/internal/taxrule"
	taxruledomain "github.com/lotworks/dealdesk/internal/taxrule/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	observability.Module,
	events.Module,
	audit.Module,
	salesrep.Module,
	inventory.Module,
	taxrule.Module,
	commission.Module,
	deal.Module,
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	genID         *snowflake.Node
	dealSvc       dealdomain.Service
	taxRuleSvc    taxruledomain.Service
	commissionSvc commissiondomain.Service
	inventorySvc  inventorydomain.Service
	salesRepSvc   salesrepdomain.Service
	auditSvc      auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	GenID         *snowflake.Node
	DealSvc       dealdomain.Service
	TaxRuleSvc    taxruledomain.Service
	CommissionSvc commissiondomain.Service
	InventorySvc  inventorydomain.Service
	SalesRepSvc   salesrepdomain.Service
	AuditSvc      auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		genID:         p.GenID,
		dealSvc:       p.DealSvc,
		taxRuleSvc:    p.TaxRuleSvc,
		commissionSvc: p.CommissionSvc,
		inventorySvc:  p.InventorySvc,
		salesRepSvc:   p.SalesRepSvc,
		auditSvc:      p.AuditSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/v1")

	// -------- Deals --------
	api.POST("/deals", s.CreateDeal)
	api.GET("/deals", s.ListDeals)
	api.GET("/deals/:id", s.GetDealByID)
	api.POST("/deals/:id/fees", s.AddDealFee)
	api.POST("/deals/:id/tax_rule/:ruleId", s.ApplyTaxRule)
	api.POST("/deals/:id/payments", s.RecordPayment)
	api.PATCH("/payments/:id", s.UpdatePayment)
	api.DELETE("/payments/:id", s.DeletePayment)
	api.POST("/deals/:id/issue", s.IssueDeal)
	api.POST("/deals/:id/deliver", s.MarkDealDelivered)
	api.POST("/deals/:id/close", s.CloseDeal)
	api.POST("/deals/:id/cancel", s.CancelDeal)

	// -------- Tax rules --------
	api.POST("/tax_regimes", s.CreateTaxRegime)
	api.GET("/tax_regimes", s.ListTaxRegimes)
	api.POST("/tax_rules", s.CreateTaxRule)
	api.GET("/tax_rules/:id", s.GetTaxRuleByID)

	// -------- Commissions --------
	api.GET("/commissions", s.ListCommissions)
	api.POST("/commissions/:id/payable", s.MarkCommissionPayable)
	api.POST("/commissions/:id/paid", s.MarkCommissionPaid)

	// -------- Inventory --------
	api.GET("/units", s.ListUnits)
	api.GET("/units/:id", s.GetUnitByID)
	api.POST("/units/import", s.ImportUnits)

	// -------- Sales reps --------
	api.POST("/sales_reps", s.CreateSalesRep)
	api.GET("/sales_reps", s.ListSalesReps)
	api.GET("/sales_reps/:id", s.GetSalesRepByID)

	// -------- Audit --------
	api.GET("/audit_logs", s.ListAuditLogs)
}
