package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/lotworks/dealdesk/internal/audit/domain"
	commissiondomain "github.com/lotworks/dealdesk/internal/commission/domain"
	"github.com/lotworks/dealdesk/internal/config"
	dealdomain "github.com/lotworks/dealdesk/internal/deal/domain"
	"github.com/lotworks/dealdesk/internal/events"
	inventorydomain "github.com/lotworks/dealdesk/internal/inventory/domain"
	salesrepdomain "github.com/lotworks/dealdesk/internal/salesrep/domain"
	taxruledomain "github.com/lotworks/dealdesk/internal/taxrule/domain"
	"github.com/lotworks/dealdesk/pkg/db/option"
	"github.com/lotworks/dealdesk/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Cfg           config.Config
	AuditSvc      auditdomain.Service
	CommissionSvc commissiondomain.Service
	CostLookup    inventorydomain.CostLookup
	RepLookup     salesrepdomain.RepLookup
	TaxResolver   taxruledomain.Resolver
	Publisher     events.Publisher
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	cfg   config.Config

	dealrepo    repository.Repository[dealdomain.Deal]
	paymentrepo repository.Repository[dealdomain.Payment]

	auditSvc      auditdomain.Service
	commissionSvc commissiondomain.Service
	costLookup    inventorydomain.CostLookup
	repLookup     salesrepdomain.RepLookup
	taxResolver   taxruledomain.Resolver
	publisher     events.Publisher
}

func NewService(p Params) dealdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("deal.service"),
		genID: p.GenID,
		cfg:   p.Cfg,

		dealrepo:    repository.ProvideStore[dealdomain.Deal](p.DB),
		paymentrepo: repository.ProvideStore[dealdomain.Payment](p.DB),

		auditSvc:      p.AuditSvc,
		commissionSvc: p.CommissionSvc,
		costLookup:    p.CostLookup,
		repLookup:     p.RepLookup,
		taxResolver:   p.TaxResolver,
		publisher:     p.Publisher,
	}
}

func (s *Service) Create(ctx context.Context, req dealdomain.CreateDealRequest) (dealdomain.Deal, error) {
	opportunityID, err := parseID(req.OpportunityID)
	if err != nil {
		return dealdomain.Deal{}, dealdomain.ErrInvalidID
	}
	accountID, err := parseID(req.AccountID)
	if err != nil {
		return dealdomain.Deal{}, dealdomain.ErrInvalidID
	}
	salesRepID, err := parseID(req.SalesRepID)
	if err != nil {
		return dealdomain.Deal{}, dealdomain.ErrInvalidID
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(currency) != 3 {
		return dealdomain.Deal{}, dealdomain.ErrInvalidCurrency
	}
	if len(req.Units) == 0 {
		return dealdomain.Deal{}, dealdomain.ErrNoUnits
	}
	if req.DiscountsTotal < 0 {
		return dealdomain.Deal{}, dealdomain.ErrInvalidAmount
	}

	now := time.Now().UTC()
	dealID := s.genID.Generate()

	var subtotal int64
	units := make([]dealdomain.DealUnit, 0, len(req.Units))
	for _, input := range req.Units {
		unitID, err := parseID(input.UnitID)
		if err != nil {
			return dealdomain.Deal{}, dealdomain.ErrInvalidID
		}
		if input.AgreedPrice < 0 {
			return dealdomain.Deal{}, dealdomain.ErrInvalidAmount
		}
		subtotal += input.AgreedPrice
		units = append(units, dealdomain.DealUnit{
			DealID:      dealID,
			UnitID:      unitID,
			AgreedPrice: input.AgreedPrice,
			CreatedAt:   now,
		})
	}

	deal := dealdomain.Deal{
		ID:              dealID,
		OpportunityID:   opportunityID,
		AccountID:       accountID,
		SalesRepID:      salesRepID,
		Status:          dealdomain.DealStatusDraft,
		Currency:        currency,
		VehicleSubtotal: subtotal,
		DiscountsTotal:  req.DiscountsTotal,
		TotalDue:        subtotal - req.DiscountsTotal,
		BalanceDue:      subtotal - req.DiscountsTotal,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&deal).Error; err != nil {
			return err
		}
		return tx.Create(&units).Error
	})
	if err != nil {
		return dealdomain.Deal{}, err
	}

	s.emitAudit(ctx, "deal.created", deal, nil)
	return deal, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (dealdomain.DealDetail, error) {
	dealID, err := parseID(id)
	if err != nil {
		return dealdomain.DealDetail{}, dealdomain.ErrInvalidID
	}
	return s.loadDetail(ctx, s.db, dealID)
}

func (s *Service) List(ctx context.Context, req dealdomain.ListDealRequest) (dealdomain.ListDealResponse, error) {
	filter := &dealdomain.Deal{
		Status: dealdomain.DealStatus(strings.TrimSpace(req.Status)),
	}
	if repID := strings.TrimSpace(req.SalesRepID); repID != "" {
		parsed, err := parseID(repID)
		if err != nil {
			return dealdomain.ListDealResponse{}, dealdomain.ErrInvalidID
		}
		filter.SalesRepID = parsed
	}

	options := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{Allow: map[string]bool{"created_at": true}, Field: "created_at", Desc: true}),
	}
	if req.CreatedFrom != nil {
		options = append(options, option.ApplyOperator(option.Condition{Field: "created_at", Operator: option.GTE, Value: *req.CreatedFrom}))
	}
	if req.CreatedTo != nil {
		options = append(options, option.ApplyOperator(option.Condition{Field: "created_at", Operator: option.LTE, Value: *req.CreatedTo}))
	}
	if req.TotalMin != nil {
		options = append(options, option.ApplyOperator(option.Condition{Field: "total_due", Operator: option.GTE, Value: *req.TotalMin}))
	}
	if req.TotalMax != nil {
		options = append(options, option.ApplyOperator(option.Condition{Field: "total_due", Operator: option.LTE, Value: *req.TotalMax}))
	}

	items, err := s.dealrepo.Find(ctx, filter, options...)
	if err != nil {
		return dealdomain.ListDealResponse{}, err
	}

	deals := make([]dealdomain.Deal, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		deals = append(deals, *item)
	}
	return dealdomain.ListDealResponse{Deals: deals}, nil
}

// AddFee attaches an ad-hoc line to a deal and refreshes totals. Lines
// created without an explicit kind fall back to name classification.
func (s *Service) AddFee(ctx context.Context, req dealdomain.AddFeeRequest) (dealdomain.DealFee, error) {
	dealID, err := parseID(req.DealID)
	if err != nil {
		return dealdomain.DealFee{}, dealdomain.ErrInvalidID
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return dealdomain.DealFee{}, dealdomain.ErrInvalidFeeConfiguration
	}
	kind := req.LineKind
	if kind == "" {
		kind = taxruledomain.ClassifyLineKind(name)
	}
	if kind != taxruledomain.LineKindTax && kind != taxruledomain.LineKindFee {
		return dealdomain.DealFee{}, dealdomain.ErrInvalidFeeConfiguration
	}
	switch req.CalcType {
	case taxruledomain.CalcTypePercent:
		if req.Rate == nil || *req.Rate < 0 {
			return dealdomain.DealFee{}, dealdomain.ErrInvalidFeeConfiguration
		}
	case taxruledomain.CalcTypeFixed:
		if req.FixedAmount < 0 {
			return dealdomain.DealFee{}, dealdomain.ErrInvalidFeeConfiguration
		}
	default:
		return dealdomain.DealFee{}, dealdomain.ErrInvalidFeeConfiguration
	}
	if req.Base != taxruledomain.FeeBaseVehicleSubtotal && req.Base != taxruledomain.FeeBaseCustom {
		return dealdomain.DealFee{}, dealdomain.ErrInvalidFeeConfiguration
	}

	applies := true
	if req.Applies != nil {
		applies = *req.Applies
	}
	conditions := req.Conditions
	if conditions == nil {
		conditions = datatypes.JSONMap{}
	}

	var fee dealdomain.DealFee
	var snapshot totals
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deal, err := s.loadDeal(ctx, tx, dealID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		fee = dealdomain.DealFee{
			ID:           s.genID.Generate(),
			DealID:       dealID,
			Name:         name,
			LineKind:     kind,
			CalcType:     req.CalcType,
			Base:         req.Base,
			Rate:         req.Rate,
			FixedAmount:  req.FixedAmount,
			ResultAmount: computeLineAmount(deal.VehicleSubtotal, req.CalcType, req.Base, req.Rate, req.FixedAmount),
			Applies:      applies,
			Sort:         req.Sort,
			Conditions:   conditions,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Create(&fee).Error; err != nil {
			return err
		}

		snapshot, err = s.recalculateTotals(ctx, tx, dealID)
		return err
	})
	if err != nil {
		return dealdomain.DealFee{}, err
	}

	s.afterTotalsChange(ctx, dealID, snapshot)
	return fee, nil
}

// ApplyTaxRule replaces every fee row on the deal with lines instantiated
// from the rule version, in ascending sort order, then refreshes totals.
// The replace is atomic: it happens inside one transaction.
func (s *Service) ApplyTaxRule(ctx context.Context, dealID, ruleID string) (dealdomain.DealDetail, error) {
	id, err := parseID(dealID)
	if err != nil {
		return dealdomain.DealDetail{}, dealdomain.ErrInvalidID
	}
	rid, err := parseID(ruleID)
	if err != nil {
		return dealdomain.DealDetail{}, dealdomain.ErrInvalidID
	}

	rule, lines, err := s.taxResolver.ResolveForDeal(ctx, rid)
	if err != nil {
		return dealdomain.DealDetail{}, err
	}

	var snapshot totals
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deal, err := s.loadDeal(ctx, tx, id)
		if err != nil {
			return err
		}
		if deal.Status == dealdomain.DealStatusCanceled {
			return dealdomain.ErrInvalidStatus
		}

		if err := tx.Where("deal_id = ?", id).Delete(&dealdomain.DealFee{}).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		fees := make([]dealdomain.DealFee, 0, len(lines))
		for _, line := range lines {
			conditions := line.Conditions
			if conditions == nil {
				conditions = datatypes.JSONMap{}
			}
			fees = append(fees, dealdomain.DealFee{
				ID:           s.genID.Generate(),
				DealID:       id,
				Name:         line.Name,
				LineKind:     line.LineKind,
				CalcType:     line.CalcType,
				Base:         line.Base,
				Rate:         line.Rate,
				FixedAmount:  line.FixedAmount,
				ResultAmount: computeLineAmount(deal.VehicleSubtotal, line.CalcType, line.Base, line.Rate, line.FixedAmount),
				Applies:      true,
				Sort:         line.Sort,
				Conditions:   conditions,
				CreatedAt:    now,
				UpdatedAt:    now,
			})
		}
		if len(fees) > 0 {
			if err := tx.Create(&fees).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&dealdomain.Deal{}).Where("id = ?", id).Updates(map[string]any{
			"tax_rule_id": rule.ID,
			"updated_at":  now,
		}).Error; err != nil {
			return err
		}

		snapshot, err = s.recalculateTotals(ctx, tx, id)
		return err
	})
	if err != nil {
		return dealdomain.DealDetail{}, err
	}

	s.afterTotalsChange(ctx, id, snapshot)
	s.emitAuditByID(ctx, "deal.tax_rule_applied", id, map[string]any{
		"tax_rule_id": rule.ID.String(),
		"line_count":  len(lines),
	})
	return s.loadDetail(ctx, s.db, id)
}

func (s *Service) RecordPayment(ctx context.Context, req dealdomain.RecordPaymentRequest) (dealdomain.Payment, error) {
	dealID, err := parseID(req.DealID)
	if err != nil {
		return dealdomain.Payment{}, dealdomain.ErrInvalidID
	}
	recordedBy, err := parseID(req.RecordedBy)
	if err != nil {
		return dealdomain.Payment{}, dealdomain.ErrInvalidID
	}
	if req.Amount <= 0 {
		return dealdomain.Payment{}, dealdomain.ErrInvalidAmount
	}
	if !dealdomain.ValidPaymentMethod(req.Method) {
		return dealdomain.Payment{}, dealdomain.ErrInvalidMethod
	}

	now := time.Now().UTC()
	receivedAt := now
	if req.ReceivedAt != nil {
		receivedAt = req.ReceivedAt.UTC()
	}

	payment := dealdomain.Payment{
		ID:         s.genID.Generate(),
		DealID:     dealID,
		Method:     req.Method,
		Amount:     req.Amount,
		ReceivedAt: receivedAt,
		Reference:  req.Reference,
		Notes:      req.Notes,
		RecordedBy: recordedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var snapshot totals
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadDeal(ctx, tx, dealID); err != nil {
			return err
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		snapshot, err = s.recalculateTotals(ctx, tx, dealID)
		return err
	})
	if err != nil {
		return dealdomain.Payment{}, err
	}

	s.afterTotalsChange(ctx, dealID, snapshot)
	s.emitAuditByID(ctx, "deal.payment_recorded", dealID, map[string]any{
		"payment_id": payment.ID.String(),
		"method":     string(payment.Method),
		"amount":     payment.Amount,
	})
	return payment, nil
}

func (s *Service) UpdatePayment(ctx context.Context, req dealdomain.UpdatePaymentRequest) (dealdomain.Payment, error) {
	paymentID, err := parseID(req.ID)
	if err != nil {
		return dealdomain.Payment{}, dealdomain.ErrInvalidID
	}
	if req.Amount != nil && *req.Amount <= 0 {
		return dealdomain.Payment{}, dealdomain.ErrInvalidAmount
	}
	if req.Method != nil && !dealdomain.ValidPaymentMethod(*req.Method) {
		return dealdomain.Payment{}, dealdomain.ErrInvalidMethod
	}

	var payment dealdomain.Payment
	var snapshot totals
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing dealdomain.Payment
		if err := tx.First(&existing, "id = ?", paymentID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return dealdomain.ErrPaymentNotFound
			}
			return err
		}

		if req.Method != nil {
			existing.Method = *req.Method
		}
		if req.Amount != nil {
			existing.Amount = *req.Amount
		}
		if req.ReceivedAt != nil {
			existing.ReceivedAt = req.ReceivedAt.UTC()
		}
		if req.Reference != nil {
			existing.Reference = req.Reference
		}
		if req.Notes != nil {
			existing.Notes = req.Notes
		}
		existing.UpdatedAt = time.Now().UTC()

		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		payment = existing

		var err error
		snapshot, err = s.recalculateTotals(ctx, tx, existing.DealID)
		return err
	})
	if err != nil {
		return dealdomain.Payment{}, err
	}

	s.afterTotalsChange(ctx, payment.DealID, snapshot)
	return payment, nil
}

func (s *Service) DeletePayment(ctx context.Context, id string) error {
	paymentID, err := parseID(id)
	if err != nil {
		return dealdomain.ErrInvalidID
	}

	existing, err := s.paymentrepo.FindOne(ctx, &dealdomain.Payment{ID: paymentID})
	if err != nil {
		return err
	}
	if existing == nil {
		// Idempotent: the payment is already gone.
		return nil
	}
	dealID := existing.DealID

	var snapshot totals
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", paymentID).Delete(&dealdomain.Payment{}).Error; err != nil {
			return err
		}
		var err error
		snapshot, err = s.recalculateTotals(ctx, tx, dealID)
		return err
	})
	if err != nil {
		return err
	}

	s.afterTotalsChange(ctx, dealID, snapshot)
	s.emitAuditByID(ctx, "deal.payment_deleted", dealID, map[string]any{
		"payment_id": paymentID.String(),
	})
	return nil
}

// Issue moves a draft to issued and accrues the deal's single commission.
// Issuing is one-way; a deal that already left draft cannot be re-issued.
func (s *Service) Issue(ctx context.Context, dealID string) (dealdomain.IssueDealResponse, error) {
	id, err := parseID(dealID)
	if err != nil {
		return dealdomain.IssueDealResponse{}, dealdomain.ErrInvalidID
	}

	var deal dealdomain.Deal
	var units []dealdomain.DealUnit
	now := time.Now().UTC()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loaded, err := s.loadDeal(ctx, tx, id)
		if err != nil {
			return err
		}
		if loaded.Status != dealdomain.DealStatusDraft {
			return dealdomain.ErrInvalidStatus
		}

		if err := tx.Where("deal_id = ?", id).Find(&units).Error; err != nil {
			return err
		}

		if err := tx.Model(&dealdomain.Deal{}).Where("id = ?", id).Updates(map[string]any{
			"status":     dealdomain.DealStatusIssued,
			"issued_at":  now,
			"updated_at": now,
		}).Error; err != nil {
			return err
		}

		loaded.Status = dealdomain.DealStatusIssued
		loaded.IssuedAt = &now
		loaded.UpdatedAt = now
		deal = *loaded
		return nil
	})
	if err != nil {
		return dealdomain.IssueDealResponse{}, err
	}

	net := s.commissionNet(ctx, deal, units)
	percent := s.commissionPercent(ctx, deal.SalesRepID)
	amount := percentOf(net, percent)

	commission, err := s.commissionSvc.AccrueForDeal(ctx, commissiondomain.AccrueRequest{
		DealID:           deal.ID,
		SalesRepID:       deal.SalesRepID,
		Percent:          percent,
		CalculatedAmount: amount,
	})
	if err != nil {
		return dealdomain.IssueDealResponse{}, err
	}

	s.emitAudit(ctx, "deal.issued", deal, map[string]any{
		"commission_id":     commission.ID.String(),
		"commission_amount": commission.CalculatedAmount,
	})
	return dealdomain.IssueDealResponse{Deal: deal, Commission: commission}, nil
}

// MarkDelivered stamps delivered_at once the deal is fully paid.
func (s *Service) MarkDelivered(ctx context.Context, dealID string) (dealdomain.Deal, error) {
	id, err := parseID(dealID)
	if err != nil {
		return dealdomain.Deal{}, dealdomain.ErrInvalidID
	}

	var deal dealdomain.Deal
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loaded, err := s.loadDeal(ctx, tx, id)
		if err != nil {
			return err
		}
		if loaded.Status != dealdomain.DealStatusPaid {
			return dealdomain.ErrInvalidStatus
		}
		if loaded.DeliveredAt != nil {
			return dealdomain.ErrAlreadyDelivered
		}

		now := time.Now().UTC()
		if err := tx.Model(&dealdomain.Deal{}).Where("id = ?", id).Updates(map[string]any{
			"delivered_at": now,
			"updated_at":   now,
		}).Error; err != nil {
			return err
		}
		loaded.DeliveredAt = &now
		loaded.UpdatedAt = now
		deal = *loaded
		return nil
	})
	if err != nil {
		return dealdomain.Deal{}, err
	}

	s.emitAudit(ctx, "deal.delivered", deal, nil)
	return deal, nil
}

// Close stamps closed_at on a delivered deal and announces the closure so
// inventory can mark the units sold.
func (s *Service) Close(ctx context.Context, dealID string) (dealdomain.Deal, error) {
	id, err := parseID(dealID)
	if err != nil {
		return dealdomain.Deal{}, dealdomain.ErrInvalidID
	}

	var deal dealdomain.Deal
	var unitIDs []snowflake.ID
	now := time.Now().UTC()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loaded, err := s.loadDeal(ctx, tx, id)
		if err != nil {
			return err
		}
		if loaded.DeliveredAt == nil {
			return dealdomain.ErrNotDelivered
		}
		if loaded.ClosedAt != nil {
			return dealdomain.ErrAlreadyClosed
		}

		var units []dealdomain.DealUnit
		if err := tx.Where("deal_id = ?", id).Find(&units).Error; err != nil {
			return err
		}
		for _, unit := range units {
			unitIDs = append(unitIDs, unit.UnitID)
		}

		if err := tx.Model(&dealdomain.Deal{}).Where("id = ?", id).Updates(map[string]any{
			"closed_at":  now,
			"updated_at": now,
		}).Error; err != nil {
			return err
		}
		loaded.ClosedAt = &now
		loaded.UpdatedAt = now
		deal = *loaded
		return nil
	})
	if err != nil {
		return dealdomain.Deal{}, err
	}

	s.publisher.PublishDealClosed(ctx, events.DealClosed{
		DealID:   deal.ID,
		UnitIDs:  unitIDs,
		ClosedAt: now,
	})
	s.emitAudit(ctx, "deal.closed", deal, map[string]any{"unit_count": len(unitIDs)})
	return deal, nil
}

func (s *Service) Cancel(ctx context.Context, dealID string) (dealdomain.Deal, error) {
	id, err := parseID(dealID)
	if err != nil {
		return dealdomain.Deal{}, dealdomain.ErrInvalidID
	}

	var deal dealdomain.Deal
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loaded, err := s.loadDeal(ctx, tx, id)
		if err != nil {
			return err
		}
		if loaded.Status != dealdomain.DealStatusDraft {
			return dealdomain.ErrInvalidStatus
		}

		now := time.Now().UTC()
		if err := tx.Model(&dealdomain.Deal{}).Where("id = ?", id).Updates(map[string]any{
			"status":     dealdomain.DealStatusCanceled,
			"updated_at": now,
		}).Error; err != nil {
			return err
		}
		loaded.Status = dealdomain.DealStatusCanceled
		loaded.UpdatedAt = now
		deal = *loaded
		return nil
	})
	if err != nil {
		return dealdomain.Deal{}, err
	}

	s.emitAudit(ctx, "deal.canceled", deal, nil)
	return deal, nil
}

// totals is the snapshot produced by a recalculation pass.
type totals struct {
	TaxesTotal int64
	FeesTotal  int64
	TotalDue   int64
	AmountPaid int64
	BalanceDue int64
	Status     dealdomain.DealStatus
}

// recalculateTotals re-derives a deal's money fields from its fee and
// payment rows and persists them:
//
//	total_due   = vehicle_subtotal - discounts_total + taxes_total + fees_total
//	balance_due = total_due - amount_paid
//
// Status becomes paid when amount_paid covers a positive total, and
// partially_paid when payment is partial; otherwise it is left alone, so a
// fresh draft with no payment stays draft.
func (s *Service) recalculateTotals(ctx context.Context, tx *gorm.DB, dealID snowflake.ID) (totals, error) {
	deal, err := s.loadDeal(ctx, tx, dealID)
	if err != nil {
		return totals{}, err
	}

	var fees []dealdomain.DealFee
	if err := tx.Where("deal_id = ? AND applies = ?", dealID, true).Find(&fees).Error; err != nil {
		return totals{}, err
	}

	var taxesTotal, feesTotal int64
	for _, fee := range fees {
		if fee.Kind() == taxruledomain.LineKindTax {
			taxesTotal += fee.ResultAmount
		} else {
			feesTotal += fee.ResultAmount
		}
	}

	var amountPaid int64
	if err := tx.Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE deal_id = ?`,
		dealID,
	).Scan(&amountPaid).Error; err != nil {
		return totals{}, err
	}

	totalDue := deal.VehicleSubtotal - deal.DiscountsTotal + taxesTotal + feesTotal
	balanceDue := totalDue - amountPaid

	status := deal.Status
	switch {
	case totalDue > 0 && amountPaid >= totalDue:
		status = dealdomain.DealStatusPaid
	case amountPaid > 0 && amountPaid < totalDue:
		status = dealdomain.DealStatusPartiallyPaid
	}

	if err := tx.Model(&dealdomain.Deal{}).Where("id = ?", dealID).Updates(map[string]any{
		"taxes_total": taxesTotal,
		"fees_total":  feesTotal,
		"total_due":   totalDue,
		"amount_paid": amountPaid,
		"balance_due": balanceDue,
		"status":      status,
		"updated_at":  time.Now().UTC(),
	}).Error; err != nil {
		return totals{}, err
	}

	return totals{
		TaxesTotal: taxesTotal,
		FeesTotal:  feesTotal,
		TotalDue:   totalDue,
		AmountPaid: amountPaid,
		BalanceDue: balanceDue,
		Status:     status,
	}, nil
}

// afterTotalsChange runs the commission-status check: a deal whose balance
// just reached zero releases its accrued commission to payable.
func (s *Service) afterTotalsChange(ctx context.Context, dealID snowflake.ID, snapshot totals) {
	if snapshot.TotalDue <= 0 || snapshot.BalanceDue > 0 {
		return
	}
	if err := s.commissionSvc.ReleaseForDeal(ctx, dealID); err != nil {
		s.log.Warn("failed to release commission",
			zap.String("deal_id", dealID.String()), zap.Error(err))
	}
}

// commissionNet is vehicle subtotal minus discounts, minus the units'
// acquisition cost stack when the inventory side has it, minus taxes and
// fees unless configured into the basis.
func (s *Service) commissionNet(ctx context.Context, deal dealdomain.Deal, units []dealdomain.DealUnit) int64 {
	net := deal.VehicleSubtotal - deal.DiscountsTotal

	for _, unit := range units {
		cost, ok, err := s.costLookup.AcquisitionCost(ctx, unit.UnitID)
		if err != nil {
			s.log.Warn("acquisition cost lookup failed",
				zap.String("unit_id", unit.UnitID.String()), zap.Error(err))
			continue
		}
		if ok {
			net -= cost
		}
	}

	if !s.cfg.IncludeFeesInNet {
		net -= deal.TaxesTotal + deal.FeesTotal
	}
	return net
}

func (s *Service) commissionPercent(ctx context.Context, repID snowflake.ID) float64 {
	percent, err := s.repLookup.CommissionPercent(ctx, repID)
	if err != nil {
		s.log.Warn("commission percent lookup failed",
			zap.String("sales_rep_id", repID.String()), zap.Error(err))
		return s.cfg.DefaultCommissionPercent
	}
	if percent == nil {
		return s.cfg.DefaultCommissionPercent
	}
	return *percent
}

func (s *Service) loadDeal(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*dealdomain.Deal, error) {
	var deal dealdomain.Deal
	if err := tx.WithContext(ctx).First(&deal, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, dealdomain.ErrDealNotFound
		}
		return nil, err
	}
	return &deal, nil
}

func (s *Service) loadDetail(ctx context.Context, db *gorm.DB, id snowflake.ID) (dealdomain.DealDetail, error) {
	deal, err := s.loadDeal(ctx, db, id)
	if err != nil {
		return dealdomain.DealDetail{}, err
	}

	var units []dealdomain.DealUnit
	if err := db.WithContext(ctx).Where("deal_id = ?", id).Find(&units).Error; err != nil {
		return dealdomain.DealDetail{}, err
	}
	var fees []dealdomain.DealFee
	if err := db.WithContext(ctx).Where("deal_id = ?", id).Order("sort ASC").Find(&fees).Error; err != nil {
		return dealdomain.DealDetail{}, err
	}
	var payments []dealdomain.Payment
	if err := db.WithContext(ctx).Where("deal_id = ?", id).Order("received_at ASC").Find(&payments).Error; err != nil {
		return dealdomain.DealDetail{}, err
	}

	return dealdomain.DealDetail{Deal: *deal, Units: units, Fees: fees, Payments: payments}, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, deal dealdomain.Deal, extra map[string]any) {
	if s.auditSvc == nil {
		return
	}
	metadata := map[string]any{
		"status":      string(deal.Status),
		"currency":    deal.Currency,
		"total_due":   deal.TotalDue,
		"balance_due": deal.BalanceDue,
	}
	for key, value := range extra {
		if key == "" {
			continue
		}
		metadata[key] = value
	}
	targetID := deal.ID.String()
	_ = s.auditSvc.AuditLog(ctx, "", nil, action, "deal", &targetID, metadata)
}

func (s *Service) emitAuditByID(ctx context.Context, action string, dealID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := dealID.String()
	_ = s.auditSvc.AuditLog(ctx, "", nil, action, "deal", &targetID, metadata)
}

// computeLineAmount prices one fee line against the deal. Percent lines
// bound to anything but the vehicle subtotal degrade to zero.
func computeLineAmount(vehicleSubtotal int64, calcType taxruledomain.CalcType, base taxruledomain.FeeBase, rate *float64, fixedAmount int64) int64 {
	switch calcType {
	case taxruledomain.CalcTypeFixed:
		return fixedAmount
	case taxruledomain.CalcTypePercent:
		if base != taxruledomain.FeeBaseVehicleSubtotal || rate == nil {
			return 0
		}
		return percentOf(vehicleSubtotal, *rate)
	default:
		return 0
	}
}

func percentOf(amount int64, rate float64) int64 {
	return int64(math.Round(float64(amount) * rate / 100))
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}
