package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	inventorydomain "github.com/lotworks/dealdesk/internal/inventory/domain"
	"github.com/lotworks/dealdesk/internal/inventory/importer"
	"github.com/lotworks/dealdesk/pkg/db/option"
	"github.com/lotworks/dealdesk/pkg/db/pagination"
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
	repo  repository.Repository[inventorydomain.Unit]
}

func NewService(p Params) inventorydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("inventory.service"),
		genID: p.GenID,
		repo:  repository.ProvideStore[inventorydomain.Unit](p.DB),
	}
}

// NewCostLookup exposes the inventory service as the acquisition-cost
// side-channel consumed by the deal ledger.
func NewCostLookup(svc inventorydomain.Service) inventorydomain.CostLookup {
	return svc.(inventorydomain.CostLookup)
}

func (s *Service) List(ctx context.Context, req inventorydomain.ListUnitRequest) (inventorydomain.ListUnitResponse, error) {
	filter := &inventorydomain.Unit{
		Status:   inventorydomain.UnitStatus(strings.TrimSpace(req.Status)),
		Category: strings.TrimSpace(req.Category),
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	options := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{Allow: map[string]bool{"id": true}, Field: "id"}),
		option.WithLimit(pageSize + 1),
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return inventorydomain.ListUnitResponse{}, inventorydomain.ErrInvalidPageToken
		}
		lastID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return inventorydomain.ListUnitResponse{}, inventorydomain.ErrInvalidPageToken
		}
		options = append(options, option.ApplyOperator(option.Condition{
			Field: "id", Operator: option.GT, Value: lastID,
		}))
	}

	items, err := s.repo.Find(ctx, filter, options...)
	if err != nil {
		return inventorydomain.ListUnitResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(unit *inventorydomain.Unit) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: unit.ID.String()})
		return token
	})
	if len(items) > pageSize {
		items = items[:pageSize]
	}

	units := make([]inventorydomain.Unit, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		units = append(units, *item)
	}
	return inventorydomain.ListUnitResponse{Units: units, PageInfo: pageInfo}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (inventorydomain.Unit, error) {
	unitID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return inventorydomain.Unit{}, inventorydomain.ErrInvalidID
	}

	item, err := s.repo.FindOne(ctx, &inventorydomain.Unit{ID: unitID})
	if err != nil {
		return inventorydomain.Unit{}, err
	}
	if item == nil {
		return inventorydomain.Unit{}, inventorydomain.ErrNotFound
	}
	return *item, nil
}

// ImportCSV validates every row against the mapping and inserts accepted
// rows one by one. The import is intentionally non-transactional across
// rows: a failure partway through leaves earlier rows committed.
func (s *Service) ImportCSV(ctx context.Context, req inventorydomain.ImportCSVRequest) (inventorydomain.ImportReport, error) {
	if req.Reader == nil {
		return inventorydomain.ImportReport{}, inventorydomain.ErrInvalidMapping
	}
	if req.Mapping.Make < 0 || req.Mapping.Model < 0 || req.Mapping.Year < 0 {
		return inventorydomain.ImportReport{}, inventorydomain.ErrInvalidMapping
	}

	rows, err := importer.Parse(req.Reader)
	if err != nil {
		return inventorydomain.ImportReport{}, err
	}

	existingKeys, err := s.existingIdentityKeys(ctx)
	if err != nil {
		return inventorydomain.ImportReport{}, err
	}

	batchID := uuid.NewString()
	now := time.Now().UTC()
	report := inventorydomain.ImportReport{BatchID: batchID, Total: len(rows)}

	for _, raw := range rows {
		result := importer.EvaluateRow(raw, req.Mapping, existingKeys, now)

		switch {
		case len(result.Errors) > 0:
			report.Rejected++
		case result.Duplicate && !req.OverrideDuplicate:
			report.Duplicates++
		default:
			unit := result.Unit
			unit.ID = s.genID.Generate()
			unit.ImportBatchID = &batchID
			unit.CreatedAt = now
			unit.UpdatedAt = now
			if err := s.repo.Create(ctx, unit); err != nil {
				s.log.Warn("failed to insert imported unit",
					zap.Int("line", result.Line), zap.Error(err))
				result.Errors = append(result.Errors, inventorydomain.RowIssue{
					Field: "row", Code: "insert_failed", Message: err.Error(),
				})
				result.Unit = nil
				report.Rejected++
				break
			}
			result.Imported = true
			report.Imported++
			// Later rows in the same file must also dedupe against this one.
			if unit.VIN != "" {
				existingKeys[strings.ToLower(unit.VIN)] = true
			}
			if unit.Serial != "" {
				existingKeys[strings.ToLower(unit.Serial)] = true
			}
		}

		report.Rows = append(report.Rows, result)
	}

	s.log.Info("unit import finished",
		zap.String("batch_id", batchID),
		zap.Int("total", report.Total),
		zap.Int("imported", report.Imported),
		zap.Int("rejected", report.Rejected),
		zap.Int("duplicates", report.Duplicates),
	)
	return report, nil
}

func (s *Service) MarkUnitsSold(ctx context.Context, unitIDs []snowflake.ID) error {
	if len(unitIDs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&inventorydomain.Unit{}).
		Where("id IN ?", unitIDs).
		Updates(map[string]any{
			"status":     inventorydomain.UnitStatusSold,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (s *Service) AcquisitionCost(ctx context.Context, unitID snowflake.ID) (int64, bool, error) {
	item, err := s.repo.FindOne(ctx, &inventorydomain.Unit{ID: unitID})
	if err != nil {
		return 0, false, err
	}
	if item == nil {
		return 0, false, nil
	}
	return item.AcquisitionCost(), true, nil
}

func (s *Service) existingIdentityKeys(ctx context.Context) (map[string]bool, error) {
	var rows []struct {
		VIN    string
		Serial string
	}
	if err := s.db.WithContext(ctx).
		Model(&inventorydomain.Unit{}).
		Select("vin", "serial").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	keys := make(map[string]bool, len(rows)*2)
	for _, row := range rows {
		if vin := strings.ToLower(strings.TrimSpace(row.VIN)); vin != "" {
			keys[vin] = true
		}
		if serial := strings.ToLower(strings.TrimSpace(row.Serial)); serial != "" {
			keys[serial] = true
		}
	}
	return keys, nil
}
