package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"furniture-erp/internal/archive"
	"furniture-erp/internal/importer"
	"furniture-erp/internal/models"
	"furniture-erp/internal/store"
	"furniture-erp/internal/util"

	"go.uber.org/zap"
)

// ImportService runs catalog imports from uploaded spreadsheets
type ImportService struct {
	products       ProductStore
	customers      CustomerStore
	catalog        *CatalogService
	archive        archive.S3Interface
	eventPublisher Publisher
	logger         *zap.Logger
}

// NewImportService creates a new import service. archive may be nil, in
// which case uploads are not kept.
func NewImportService(
	products ProductStore,
	customers CustomerStore,
	catalog *CatalogService,
	archive archive.S3Interface,
	eventPublisher Publisher,
) *ImportService {
	return &ImportService{
		products:       products,
		customers:      customers,
		catalog:        catalog,
		archive:        archive,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// Upload is a file received from the import screen or the CLI
type Upload struct {
	Filename string
	Content  []byte
}

// PreviewSummary counts rows per action
type PreviewSummary struct {
	Total  int `json:"total"`
	Create int `json:"create"`
	Update int `json:"update"`
	Skip   int `json:"skip"`
}

// PreviewResult is the row-by-row classification of an upload
type PreviewResult struct {
	Items   []importer.PreviewItem `json:"items"`
	Summary PreviewSummary         `json:"summary"`
}

// ImportResult reports an executed import
type ImportResult struct {
	Summary    importer.Summary    `json:"summary"`
	Errors     []importer.RowError `json:"errors"`
	Failed     []string            `json:"failed,omitempty"`
	ArchiveKey string              `json:"archive_key,omitempty"`
	ArchiveURL string              `json:"archive_url,omitempty"`
}

// LegacyResult reports a legacy sheet import
type LegacyResult struct {
	Rows     int      `json:"rows"`
	Products int      `json:"products"`
	Created  int      `json:"created"`
	Skipped  int      `json:"skipped"`
	Failed   []string `json:"failed,omitempty"`
}

// ParseUpload reads an XLSX workbook or delimited text into rows
func ParseUpload(u Upload) ([]importer.Row, error) {
	if len(u.Content) == 0 {
		return nil, invalid("empty file")
	}

	var (
		rows []importer.Row
		err  error
	)
	if strings.EqualFold(filepath.Ext(u.Filename), ".xlsx") {
		rows, err = importer.ParseXLSX(bytes.NewReader(u.Content))
	} else {
		var text string
		text, err = importer.DecodeText(u.Content)
		if err == nil {
			rows, err = importer.Parse(text)
		}
	}
	if err != nil {
		if de := domainError(err); de != err {
			return nil, de
		}
		return nil, invalid("%s", err.Error())
	}
	return rows, nil
}

// Template returns the downloadable TSV template
func (s *ImportService) Template() string {
	return importer.Template()
}

// Preview classifies every row of an upload without writing anything
func (s *ImportService) Preview(ctx context.Context, u Upload) (*PreviewResult, error) {
	ctx, span := util.StartSpan(ctx, "ImportService.Preview")
	defer span.End()

	rows, err := ParseUpload(u)
	if err != nil {
		return nil, err
	}
	existing, err := s.products.GetAllProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	items := importer.Preview(rows, existing)
	res := &PreviewResult{Items: items, Summary: PreviewSummary{Total: len(items)}}
	for _, it := range items {
		switch it.Action {
		case importer.ActionCreate:
			res.Summary.Create++
		case importer.ActionUpdate:
			res.Summary.Update++
		default:
			res.Summary.Skip++
		}
	}
	return res, nil
}

// Execute applies an upload to the catalog. Row problems are reported, not
// fatal; only an unreadable file fails the import.
func (s *ImportService) Execute(ctx context.Context, u Upload) (*ImportResult, error) {
	ctx, span := util.StartSpan(ctx, "ImportService.Execute")
	defer span.End()

	start := time.Now()
	defer func() {
		util.ImportDuration.Observe(time.Since(start).Seconds())
	}()

	rows, err := ParseUpload(u)
	if err != nil {
		return nil, err
	}
	existing, err := s.products.GetAllProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	customers, err := s.customers.ListCustomers(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}

	plan := importer.Process(rows, existing, customers)
	result := &ImportResult{Summary: plan.Summary, Errors: plan.Errors}

	byID := make(map[string]models.Product, len(existing))
	for _, p := range existing {
		byID[p.ID] = p
	}

	created := 0
	for i := range plan.Creates {
		p := plan.Creates[i]
		if err := s.products.CreateProduct(ctx, &p); err != nil {
			s.logger.Error("Failed to create imported product", zap.String("sku", p.SKU), zap.Error(err))
			result.Failed = append(result.Failed, fmt.Sprintf("create %s: %v", p.SKU, err))
			continue
		}
		created++
	}

	updated := 0
	for _, upd := range plan.Updates {
		p, ok := byID[upd.ID]
		if !ok {
			result.Failed = append(result.Failed, fmt.Sprintf("update %s: product no longer exists", upd.SKU))
			continue
		}
		upd.Apply(&p)
		if err := s.products.UpdateProduct(ctx, &p); err != nil {
			s.logger.Error("Failed to update imported product", zap.String("sku", p.SKU), zap.Error(err))
			result.Failed = append(result.Failed, fmt.Sprintf("update %s: %v", p.SKU, err))
			continue
		}
		updated++
	}
	result.Summary.Created = created
	result.Summary.Updated = updated

	util.ImportRowsTotal.WithLabelValues(importer.ActionCreate).Add(float64(created))
	util.ImportRowsTotal.WithLabelValues(importer.ActionUpdate).Add(float64(updated))
	util.ImportRowsTotal.WithLabelValues(importer.ActionSkip).Add(float64(len(plan.Errors)))

	if s.archive != nil {
		key, err := s.archive.ArchiveUpload(ctx, u.Filename, u.Content)
		if err != nil {
			s.logger.Warn("Failed to archive import upload", zap.String("filename", u.Filename), zap.Error(err))
		} else {
			result.ArchiveKey = key
			if url, err := s.archive.GetPresignedURL(ctx, key); err == nil {
				result.ArchiveURL = url
			}
		}
	}

	s.logger.Info("Catalog import finished",
		zap.String("filename", u.Filename),
		zap.Int("rows", result.Summary.TotalRows),
		zap.Int("created", created),
		zap.Int("updated", updated),
		zap.Int("warnings", len(result.Errors)),
		zap.Int("failed", len(result.Failed)))

	s.imported(ctx, &models.ProductsImportedEvent{
		Created:           created,
		Updated:           updated,
		Errors:            len(result.Errors) + len(result.Failed),
		CustomerPricesSet: result.Summary.CustomerPricesSet,
		ArchiveKey:        result.ArchiveKey,
	})
	return result, nil
}

// ImportLegacy loads the semicolon price sheet: one product per product
// name, skipping names already in the catalog. Customer prices are keyed by
// customer id when the name matches a customer, else by the name itself.
func (s *ImportService) ImportLegacy(ctx context.Context, content []byte) (*LegacyResult, error) {
	ctx, span := util.StartSpan(ctx, "ImportService.ImportLegacy")
	defer span.End()

	text, err := importer.DecodeText(content)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	rows := importer.ParseLegacy(text)
	if len(rows) == 0 {
		return nil, invalid("no valid rows found")
	}
	groups := importer.GroupLegacy(rows)

	customers, err := s.customers.ListCustomers(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}
	ids := make(map[string]string, len(customers))
	for _, c := range customers {
		key := strings.ToLower(c.Name)
		if _, dup := ids[key]; !dup {
			ids[key] = c.ID
		}
	}
	resolve := func(name string) string {
		if id, ok := ids[strings.ToLower(strings.TrimSpace(name))]; ok {
			return id
		}
		return name
	}

	// every existing product can hold at most one generated SKU
	existing, err := s.products.CountProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	result := &LegacyResult{Rows: len(rows), Products: len(groups)}
	index := 1
	for _, g := range groups {
		exists, err := s.products.ProductNameExists(ctx, g.Name)
		if err != nil {
			return result, fmt.Errorf("failed to check product %q: %w", g.Name, err)
		}
		if exists {
			result.Skipped++
			continue
		}

		next, err := s.createLegacy(ctx, g, index, existing+1, resolve)
		if err != nil {
			s.logger.Error("Failed to create legacy product", zap.String("name", g.Name), zap.Error(err))
			result.Failed = append(result.Failed, fmt.Sprintf("%s: %v", g.Name, err))
			continue
		}
		result.Created++
		index = next
	}

	util.ImportRowsTotal.WithLabelValues(importer.ActionCreate).Add(float64(result.Created))
	util.ImportRowsTotal.WithLabelValues(importer.ActionSkip).Add(float64(result.Skipped))

	s.imported(ctx, &models.ProductsImportedEvent{
		Created: result.Created,
		Errors:  len(result.Failed),
	})
	return result, nil
}

// createLegacy saves g under the first free legacy SKU from index on,
// trying at most attempts indexes. It returns the index after the one used.
func (s *ImportService) createLegacy(ctx context.Context, g importer.LegacyGroup, index, attempts int, resolve func(string) string) (int, error) {
	for i := 0; i < attempts; i++ {
		p := importer.BuildLegacyProduct(g, index+i, resolve)
		err := s.products.CreateProduct(ctx, &p)
		if err == nil {
			return index + i + 1, nil
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return index, err
		}
		s.logger.Debug("Legacy SKU taken", zap.String("sku", p.SKU))
	}
	return index, fmt.Errorf("no free SKU after %d attempts: %w", attempts, store.ErrDuplicate)
}

func (s *ImportService) imported(ctx context.Context, event *models.ProductsImportedEvent) {
	s.catalog.Invalidate(ctx)
	if err := s.eventPublisher.PublishProductsImported(ctx, event); err != nil {
		s.logger.Error("Failed to publish import event", zap.Error(err))
	}
}
