package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
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

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node

	regimerepo repository.Repository[taxruledomain.TaxRegime]
	rulerepo   repository.Repository[taxruledomain.TaxRule]
	linerepo   repository.Repository[taxruledomain.TaxRuleLine]
}

func NewService(p Params) taxruledomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("taxrule.service"),
		genID:      p.GenID,
		regimerepo: repository.ProvideStore[taxruledomain.TaxRegime](p.DB),
		rulerepo:   repository.ProvideStore[taxruledomain.TaxRule](p.DB),
		linerepo:   repository.ProvideStore[taxruledomain.TaxRuleLine](p.DB),
	}
}

// NewResolver exposes the same service through the lookup-only interface
// the deal ledger applies rules through.
func NewResolver(svc taxruledomain.Service) taxruledomain.Resolver {
	return svc.(taxruledomain.Resolver)
}

func (s *Service) CreateRegime(ctx context.Context, req taxruledomain.CreateRegimeRequest) (taxruledomain.TaxRegime, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return taxruledomain.TaxRegime{}, taxruledomain.ErrInvalidName
	}

	now := time.Now().UTC()
	regime := taxruledomain.TaxRegime{
		ID:           s.genID.Generate(),
		Name:         name,
		Jurisdiction: strings.TrimSpace(req.Jurisdiction),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.regimerepo.Create(ctx, &regime); err != nil {
		return taxruledomain.TaxRegime{}, err
	}
	return regime, nil
}

func (s *Service) ListRegimes(ctx context.Context) (taxruledomain.ListRegimeResponse, error) {
	items, err := s.regimerepo.Find(ctx, &taxruledomain.TaxRegime{},
		option.WithSortBy(option.QuerySortBy{Allow: map[string]bool{"created_at": true}, Field: "created_at"}),
	)
	if err != nil {
		return taxruledomain.ListRegimeResponse{}, err
	}

	regimes := make([]taxruledomain.TaxRegime, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		regimes = append(regimes, *item)
	}
	return taxruledomain.ListRegimeResponse{Regimes: regimes}, nil
}

// CreateRule creates the next version of a regime's line template. Lines are
// written with the rule in one transaction, normalized to ascending sort.
func (s *Service) CreateRule(ctx context.Context, req taxruledomain.CreateRuleRequest) (taxruledomain.RuleResponse, error) {
	regimeID, err := snowflake.ParseString(strings.TrimSpace(req.RegimeID))
	if err != nil {
		return taxruledomain.RuleResponse{}, taxruledomain.ErrInvalidID
	}
	if len(req.Lines) == 0 {
		return taxruledomain.RuleResponse{}, taxruledomain.ErrNoLines
	}

	regime, err := s.regimerepo.FindOne(ctx, &taxruledomain.TaxRegime{ID: regimeID})
	if err != nil {
		return taxruledomain.RuleResponse{}, err
	}
	if regime == nil {
		return taxruledomain.RuleResponse{}, taxruledomain.ErrRegimeNotFound
	}

	now := time.Now().UTC()
	rule := taxruledomain.TaxRule{
		ID:        s.genID.Generate(),
		RegimeID:  regimeID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	lines := make([]taxruledomain.TaxRuleLine, 0, len(req.Lines))
	for _, lineReq := range req.Lines {
		conditions := lineReq.Conditions
		if conditions == nil {
			conditions = datatypes.JSONMap{}
		}
		kind := lineReq.LineKind
		if kind == "" {
			kind = taxruledomain.ClassifyLineKind(lineReq.Name)
		}
		line := taxruledomain.TaxRuleLine{
			ID:          s.genID.Generate(),
			RuleID:      rule.ID,
			Name:        strings.TrimSpace(lineReq.Name),
			LineKind:    kind,
			CalcType:    lineReq.CalcType,
			Base:        lineReq.Base,
			Rate:        lineReq.Rate,
			FixedAmount: lineReq.FixedAmount,
			Conditions:  conditions,
			Sort:        lineReq.Sort,
			CreatedAt:   now,
		}
		if err := line.Validate(); err != nil {
			return taxruledomain.RuleResponse{}, err
		}
		lines = append(lines, line)
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Sort < lines[j].Sort })

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var nextVersion int
		if err := tx.Raw(
			`SELECT COALESCE(MAX(version), 0) + 1 FROM tax_rules WHERE regime_id = ?`,
			regimeID,
		).Scan(&nextVersion).Error; err != nil {
			return err
		}
		rule.Version = nextVersion

		if err := tx.Create(&rule).Error; err != nil {
			return err
		}
		return tx.Create(&lines).Error
	})
	if err != nil {
		return taxruledomain.RuleResponse{}, err
	}

	return taxruledomain.RuleResponse{Rule: rule, Lines: lines}, nil
}

func (s *Service) GetRule(ctx context.Context, id string) (taxruledomain.RuleResponse, error) {
	ruleID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return taxruledomain.RuleResponse{}, taxruledomain.ErrInvalidID
	}

	rule, lines, err := s.ResolveForDeal(ctx, ruleID)
	if err != nil {
		return taxruledomain.RuleResponse{}, err
	}
	return taxruledomain.RuleResponse{Rule: rule, Lines: lines}, nil
}

func (s *Service) ResolveForDeal(ctx context.Context, ruleID snowflake.ID) (taxruledomain.TaxRule, []taxruledomain.TaxRuleLine, error) {
	rule, err := s.rulerepo.FindOne(ctx, &taxruledomain.TaxRule{ID: ruleID})
	if err != nil {
		return taxruledomain.TaxRule{}, nil, err
	}
	if rule == nil {
		return taxruledomain.TaxRule{}, nil, taxruledomain.ErrRuleNotFound
	}

	items, err := s.linerepo.Find(ctx, &taxruledomain.TaxRuleLine{RuleID: ruleID},
		option.WithSortBy(option.QuerySortBy{Allow: map[string]bool{"sort": true}, Field: "sort"}),
	)
	if err != nil {
		return taxruledomain.TaxRule{}, nil, err
	}

	lines := make([]taxruledomain.TaxRuleLine, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		lines = append(lines, *item)
	}
	return *rule, lines, nil
}
