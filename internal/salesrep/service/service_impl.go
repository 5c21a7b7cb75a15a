package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	salesrepdomain "github.com/lotworks/dealdesk/internal/salesrep/domain"
	"github.com/lotworks/dealdesk/pkg/db/option"
	"github.com/lotworks/dealdesk/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  repository.Repository[salesrepdomain.SalesRep]
}

func NewService(p Params) salesrepdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("salesrep.service"),
		genID: p.GenID,
		repo:  repository.ProvideStore[salesrepdomain.SalesRep](p.DB),
	}
}

// NewRepLookup exposes the same service through the lookup-only interface
// consumed by the deal ledger.
func NewRepLookup(svc salesrepdomain.Service) salesrepdomain.RepLookup {
	return svc.(salesrepdomain.RepLookup)
}

func (s *Service) Create(ctx context.Context, req salesrepdomain.CreateSalesRepRequest) (salesrepdomain.SalesRep, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return salesrepdomain.SalesRep{}, salesrepdomain.ErrInvalidName
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return salesrepdomain.SalesRep{}, salesrepdomain.ErrInvalidEmail
	}
	if req.CommissionPercent != nil && (*req.CommissionPercent < 0 || *req.CommissionPercent > 100) {
		return salesrepdomain.SalesRep{}, salesrepdomain.ErrInvalidPercent
	}

	now := time.Now().UTC()
	rep := salesrepdomain.SalesRep{
		ID:                s.genID.Generate(),
		Name:              name,
		Email:             email,
		CommissionPercent: req.CommissionPercent,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(ctx, &rep); err != nil {
		return salesrepdomain.SalesRep{}, err
	}
	return rep, nil
}

func (s *Service) List(ctx context.Context) (salesrepdomain.ListSalesRepResponse, error) {
	items, err := s.repo.Find(ctx, &salesrepdomain.SalesRep{},
		option.WithSortBy(option.QuerySortBy{Allow: map[string]bool{"created_at": true}, Field: "created_at"}),
	)
	if err != nil {
		return salesrepdomain.ListSalesRepResponse{}, err
	}

	reps := make([]salesrepdomain.SalesRep, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		reps = append(reps, *item)
	}
	return salesrepdomain.ListSalesRepResponse{SalesReps: reps}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (salesrepdomain.SalesRep, error) {
	repID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return salesrepdomain.SalesRep{}, salesrepdomain.ErrInvalidID
	}

	item, err := s.repo.FindOne(ctx, &salesrepdomain.SalesRep{ID: repID})
	if err != nil {
		return salesrepdomain.SalesRep{}, err
	}
	if item == nil {
		return salesrepdomain.SalesRep{}, salesrepdomain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) CommissionPercent(ctx context.Context, repID snowflake.ID) (*float64, error) {
	item, err := s.repo.FindOne(ctx, &salesrepdomain.SalesRep{ID: repID})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, salesrepdomain.ErrNotFound
	}
	return item.CommissionPercent, nil
}
