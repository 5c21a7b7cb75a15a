package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/lotworks/dealdesk/internal/audit/domain"
	commissiondomain "github.com/lotworks/dealdesk/internal/commission/domain"
	"github.com/lotworks/dealdesk/pkg/db/option"
	"github.com/lotworks/dealdesk/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	AuditSvc auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     repository.Repository[commissiondomain.Commission]
	auditSvc auditdomain.Service
}

func NewService(p Params) commissiondomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("commission.service"),
		genID:    p.GenID,
		repo:     repository.ProvideStore[commissiondomain.Commission](p.DB),
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) AccrueForDeal(ctx context.Context, req commissiondomain.AccrueRequest) (commissiondomain.Commission, error) {
	now := time.Now().UTC()

	existing, err := s.repo.FindOne(ctx, &commissiondomain.Commission{DealID: req.DealID})
	if err != nil {
		return commissiondomain.Commission{}, err
	}

	if existing != nil {
		percent := req.Percent
		existing.SalesRepID = req.SalesRepID
		existing.Percent = &percent
		existing.CalculatedAmount = req.CalculatedAmount
		existing.UpdatedAt = now
		if err := s.db.WithContext(ctx).Save(existing).Error; err != nil {
			return commissiondomain.Commission{}, err
		}
		s.emitAudit(ctx, "commission.recalculated", *existing)
		return *existing, nil
	}

	percent := req.Percent
	commission := commissiondomain.Commission{
		ID:               s.genID.Generate(),
		DealID:           req.DealID,
		SalesRepID:       req.SalesRepID,
		Basis:            commissiondomain.CommissionBasisNet,
		Percent:          &percent,
		CalculatedAmount: req.CalculatedAmount,
		Status:           commissiondomain.CommissionStatusAccrued,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Create(ctx, &commission); err != nil {
		return commissiondomain.Commission{}, err
	}
	s.emitAudit(ctx, "commission.accrued", commission)
	return commission, nil
}

func (s *Service) ReleaseForDeal(ctx context.Context, dealID snowflake.ID) error {
	result := s.db.WithContext(ctx).
		Model(&commissiondomain.Commission{}).
		Where("deal_id = ? AND status = ?", dealID, commissiondomain.CommissionStatusAccrued).
		Updates(map[string]any{
			"status":     commissiondomain.CommissionStatusPayable,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		s.log.Info("commission released to payable", zap.String("deal_id", dealID.String()))
	}
	return nil
}

func (s *Service) MarkPayable(ctx context.Context, id string) (commissiondomain.Commission, error) {
	commission, err := s.getByID(ctx, id)
	if err != nil {
		return commissiondomain.Commission{}, err
	}
	if commission.Status != commissiondomain.CommissionStatusAccrued {
		return commissiondomain.Commission{}, commissiondomain.ErrInvalidTransition
	}

	commission.Status = commissiondomain.CommissionStatusPayable
	commission.UpdatedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).Save(&commission).Error; err != nil {
		return commissiondomain.Commission{}, err
	}
	s.emitAudit(ctx, "commission.payable", commission)
	return commission, nil
}

func (s *Service) MarkPaid(ctx context.Context, id string) (commissiondomain.Commission, error) {
	commission, err := s.getByID(ctx, id)
	if err != nil {
		return commissiondomain.Commission{}, err
	}
	if commission.Status != commissiondomain.CommissionStatusPayable {
		return commissiondomain.Commission{}, commissiondomain.ErrInvalidTransition
	}

	now := time.Now().UTC()
	commission.Status = commissiondomain.CommissionStatusPaid
	commission.PaidAt = &now
	commission.UpdatedAt = now
	if err := s.db.WithContext(ctx).Save(&commission).Error; err != nil {
		return commissiondomain.Commission{}, err
	}
	s.emitAudit(ctx, "commission.paid", commission)
	return commission, nil
}

func (s *Service) List(ctx context.Context, req commissiondomain.ListCommissionRequest) (commissiondomain.ListCommissionResponse, error) {
	filter := &commissiondomain.Commission{
		Status: commissiondomain.CommissionStatus(strings.TrimSpace(req.Status)),
	}
	if dealID := strings.TrimSpace(req.DealID); dealID != "" {
		parsed, err := snowflake.ParseString(dealID)
		if err != nil {
			return commissiondomain.ListCommissionResponse{}, commissiondomain.ErrInvalidID
		}
		filter.DealID = parsed
	}
	if repID := strings.TrimSpace(req.SalesRepID); repID != "" {
		parsed, err := snowflake.ParseString(repID)
		if err != nil {
			return commissiondomain.ListCommissionResponse{}, commissiondomain.ErrInvalidID
		}
		filter.SalesRepID = parsed
	}

	items, err := s.repo.Find(ctx, filter,
		option.WithSortBy(option.QuerySortBy{Allow: map[string]bool{"created_at": true}, Field: "created_at"}),
	)
	if err != nil {
		return commissiondomain.ListCommissionResponse{}, err
	}

	commissions := make([]commissiondomain.Commission, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		commissions = append(commissions, *item)
	}
	return commissiondomain.ListCommissionResponse{Commissions: commissions}, nil
}

func (s *Service) getByID(ctx context.Context, id string) (commissiondomain.Commission, error) {
	commissionID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return commissiondomain.Commission{}, commissiondomain.ErrInvalidID
	}

	item, err := s.repo.FindOne(ctx, &commissiondomain.Commission{ID: commissionID})
	if err != nil {
		return commissiondomain.Commission{}, err
	}
	if item == nil {
		return commissiondomain.Commission{}, commissiondomain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, commission commissiondomain.Commission) {
	if s.auditSvc == nil {
		return
	}
	targetID := commission.ID.String()
	_ = s.auditSvc.AuditLog(ctx, "", nil, action, "commission", &targetID, map[string]any{
		"deal_id":           commission.DealID.String(),
		"sales_rep_id":      commission.SalesRepID.String(),
		"calculated_amount": commission.CalculatedAmount,
		"status":            string(commission.Status),
	})
}
