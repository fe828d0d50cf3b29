package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"furniture-erp/internal/models"
	"furniture-erp/internal/store"
	"furniture-erp/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService serves the paginated product catalog and product writes
type CatalogService struct {
	products       ProductStore
	cache          Cache
	eventPublisher Publisher
	pageSize       int
	searchLimit    int
	cacheTTL       time.Duration
	logger         *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	products ProductStore,
	cache Cache,
	eventPublisher Publisher,
	pageSize, searchLimit int,
	cacheTTL time.Duration,
) *CatalogService {
	return &CatalogService{
		products:       products,
		cache:          cache,
		eventPublisher: eventPublisher,
		pageSize:       pageSize,
		searchLimit:    searchLimit,
		cacheTTL:       cacheTTL,
		logger:         util.GetLogger(),
	}
}

// ProductPage is one page of the catalog
type ProductPage struct {
	Products   []models.Product `json:"products"`
	NextCursor string           `json:"next_cursor,omitempty"`
	HasMore    bool             `json:"has_more"`
	TotalCount int              `json:"total_count"`
	TotalPages int              `json:"total_pages"`
}

// ProductInput is the writable part of a product
type ProductInput struct {
	SKU            string                `json:"sku"`
	Name           string                `json:"name"`
	Category       string                `json:"category"`
	Description    string                `json:"description"`
	Barcode        string                `json:"barcode"`
	BasePrice      decimal.Decimal       `json:"base_price"`
	CostPrice      decimal.Decimal       `json:"cost_price"`
	Margin         decimal.Decimal       `json:"margin"`
	Status         string                `json:"status"`
	Models         models.ProductModels  `json:"models"`
	Specifications models.Specifications `json:"specifications"`
	Images         models.StringList     `json:"images"`
	CustomerPrices models.CustomerPrices `json:"customer_prices"`
}

func (in *ProductInput) validate() error {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)
	if in.SKU == "" || in.Name == "" {
		return invalid("sku and name are required")
	}
	if in.Category == "" {
		in.Category = models.CategoryBed
	}
	if in.Status == "" {
		in.Status = models.ProductStatusActive
	}
	if in.BasePrice.IsNegative() || in.CostPrice.IsNegative() {
		return invalid("prices cannot be negative")
	}
	return nil
}

func (in *ProductInput) applyTo(p *models.Product) {
	p.SKU = in.SKU
	p.Name = in.Name
	p.Category = in.Category
	p.Description = in.Description
	p.Barcode = in.Barcode
	p.BasePrice = in.BasePrice
	p.CostPrice = in.CostPrice
	p.Margin = in.Margin
	p.Status = in.Status
	p.Models = in.Models
	p.Specifications = in.Specifications
	p.Images = in.Images
	p.CustomerPrices = in.CustomerPrices
	if p.Models == nil {
		p.Models = models.ProductModels{}
	}
	if p.Specifications == nil {
		p.Specifications = models.Specifications{}
	}
	if p.Images == nil {
		p.Images = models.StringList{}
	}
	if p.CustomerPrices == nil {
		p.CustomerPrices = models.CustomerPrices{}
	}
}

// EncodeCursor makes the opaque page cursor of the last product on a page
func EncodeCursor(p models.Product) string {
	raw := p.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + p.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor reverses EncodeCursor
func DecodeCursor(cursor string) (*store.ProductCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, invalid("malformed cursor")
	}
	createdAt, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return nil, invalid("malformed cursor")
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, invalid("malformed cursor")
	}
	return &store.ProductCursor{CreatedAt: t, ID: id}, nil
}

func (s *CatalogService) cacheKey(ctx context.Context, kind, arg string) (string, bool) {
	version, err := s.cache.CatalogVersion(ctx)
	if err != nil {
		s.logger.Warn("Catalog cache unavailable", zap.Error(err))
		return "", false
	}
	return fmt.Sprintf("catalog:v%d:%s:%s", version, kind, arg), true
}

func (s *CatalogService) cached(ctx context.Context, key string, dst *ProductPage) bool {
	found, err := s.cache.GetJSON(ctx, key, dst)
	if err != nil {
		s.logger.Warn("Catalog cache read failed", zap.String("key", key), zap.Error(err))
		found = false
	}
	result := "miss"
	if found {
		result = "hit"
	}
	util.CatalogCacheTotal.WithLabelValues(result).Inc()
	return found
}

func (s *CatalogService) remember(ctx context.Context, key string, page *ProductPage) {
	if err := s.cache.SetJSON(ctx, key, page, s.cacheTTL); err != nil {
		s.logger.Warn("Catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Page returns the page after cursor, newest first. has_more is set when the
// page is full.
func (s *CatalogService) Page(ctx context.Context, cursor string) (*ProductPage, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Page")
	defer span.End()

	var after *store.ProductCursor
	if cursor != "" {
		c, err := DecodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		after = c
	}

	key, cacheable := "", false
	if after == nil {
		key, cacheable = s.cacheKey(ctx, "page", "first")
		var page ProductPage
		if cacheable && s.cached(ctx, key, &page) {
			return &page, nil
		}
	}

	products, err := s.products.ListProductsPage(ctx, after, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	total, err := s.products.CountProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	page := &ProductPage{
		Products:   products,
		HasMore:    len(products) == s.pageSize,
		TotalCount: total,
		TotalPages: (total + s.pageSize - 1) / s.pageSize,
	}
	if page.HasMore {
		page.NextCursor = EncodeCursor(products[len(products)-1])
	}

	if cacheable {
		s.remember(ctx, key, page)
	}
	return page, nil
}

// Search finds products by SKU prefix, then keeps those whose name, SKU or
// description contains the term. Search results are never paginated.
func (s *CatalogService) Search(ctx context.Context, query string) (*ProductPage, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Search")
	defer span.End()

	term := strings.ToLower(strings.TrimSpace(query))
	if term == "" {
		return s.Page(ctx, "")
	}

	key, cacheable := s.cacheKey(ctx, "search", term)
	var cachedPage ProductPage
	if cacheable && s.cached(ctx, key, &cachedPage) {
		return &cachedPage, nil
	}

	candidates, err := s.products.SearchProductsBySKUPrefix(ctx, term, s.searchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}

	matches := make([]models.Product, 0, len(candidates))
	for _, p := range candidates {
		if strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(p.SKU), term) ||
			strings.Contains(strings.ToLower(p.Description), term) {
			matches = append(matches, p)
		}
	}

	page := &ProductPage{
		Products:   matches,
		HasMore:    false,
		TotalCount: len(matches),
		TotalPages: 1,
	}
	if cacheable {
		s.remember(ctx, key, page)
	}
	return page, nil
}

// Get returns one product
func (s *CatalogService) Get(ctx context.Context, id string) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Get")
	defer span.End()

	return s.products.GetProductByID(ctx, id)
}

// Create adds a product, defaulting category and status
func (s *CatalogService) Create(ctx context.Context, in *ProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Create")
	defer span.End()

	if err := in.validate(); err != nil {
		return nil, err
	}
	p := &models.Product{}
	in.applyTo(p)
	if err := s.products.CreateProduct(ctx, p); err != nil {
		return nil, domainError(err)
	}

	s.changed(ctx, p, "created")
	return p, nil
}

// Update overwrites the writable fields of a product
func (s *CatalogService) Update(ctx context.Context, id string, in *ProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Update")
	defer span.End()

	if err := in.validate(); err != nil {
		return nil, err
	}
	p, err := s.products.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.applyTo(p)
	if err := s.products.UpdateProduct(ctx, p); err != nil {
		return nil, domainError(err)
	}

	s.changed(ctx, p, "updated")
	return p, nil
}

// Delete removes a product
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.Delete")
	defer span.End()

	p, err := s.products.GetProductByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.products.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.changed(ctx, p, "deleted")
	return nil
}

// Invalidate starts a new cache generation
func (s *CatalogService) Invalidate(ctx context.Context) {
	if _, err := s.cache.BumpCatalogVersion(ctx); err != nil {
		s.logger.Warn("Failed to bump catalog version", zap.Error(err))
	}
}

func (s *CatalogService) changed(ctx context.Context, p *models.Product, action string) {
	s.Invalidate(ctx)
	s.logger.Info("Product changed",
		zap.String("product_id", p.ID),
		zap.String("sku", p.SKU),
		zap.String("action", action))
	if err := s.eventPublisher.PublishProductChanged(ctx, p, action); err != nil {
		s.logger.Error("Failed to publish product event", zap.String("product_id", p.ID), zap.Error(err))
	}
}
