package importer

import (
	"fmt"
	"strings"

	"furniture-erp/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Preview actions
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionSkip   = "skip"
)

// PreviewItem is the classification of one row before import
type PreviewItem struct {
	Row
	Action string `json:"action"`
	Reason string `json:"reason,omitempty"`
}

// RowError is a non-fatal problem found on one row
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Update is a staged field-level change of an existing product. Nil fields
// are left untouched.
type Update struct {
	ID             string                `json:"id"`
	SKU            string                `json:"sku"`
	Name           *string               `json:"name,omitempty"`
	Description    *string               `json:"description,omitempty"`
	CustomerPrices models.CustomerPrices `json:"customer_prices,omitempty"`
}

// Empty reports whether the update changes nothing
func (u *Update) Empty() bool {
	return u.Name == nil && u.Description == nil && u.CustomerPrices == nil
}

// Apply copies the staged fields onto p
func (u *Update) Apply(p *models.Product) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.CustomerPrices != nil {
		p.CustomerPrices = u.CustomerPrices.Clone()
	}
}

// Summary counts the outcome of a processed file
type Summary struct {
	TotalRows         int `json:"total_rows"`
	ValidRows         int `json:"valid_rows"`
	Created           int `json:"created"`
	Updated           int `json:"updated"`
	CustomerPricesSet int `json:"customer_prices_set"`
}

// Result is the staged outcome of a catalog file
type Result struct {
	Creates []models.Product `json:"products_to_create"`
	Updates []Update         `json:"products_to_update"`
	Errors  []RowError       `json:"errors"`
	Summary Summary          `json:"summary"`
}

// Preview classifies every row as create, update or skip against the
// existing catalog.
func Preview(rows []Row, existing []models.Product) []PreviewItem {
	skus := make(map[string]bool, len(existing))
	for _, p := range existing {
		skus[strings.ToLower(p.SKU)] = true
	}

	out := make([]PreviewItem, 0, len(rows))
	for _, r := range rows {
		item := PreviewItem{Row: r}
		switch {
		case r.SKU == "":
			item.Action, item.Reason = ActionSkip, "empty SKU"
		case r.Product == "":
			item.Action, item.Reason = ActionSkip, "empty PRODUTO"
		case skus[strings.ToLower(r.SKU)]:
			item.Action, item.Reason = ActionUpdate, "SKU already exists"
		default:
			item.Action = ActionCreate
		}
		out = append(out, item)
	}
	return out
}

// ParsePrice reads a price with either a dot or a comma as decimal separator
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	return decimal.NewFromString(strings.Replace(s, ",", ".", 1))
}

// NewProduct returns a catalog entry with the import defaults: an active bed
// with zero prices and one empty "Standard" model.
func NewProduct(sku, name string) models.Product {
	return models.Product{
		SKU:            sku,
		Name:           name,
		Category:       models.CategoryBed,
		Status:         models.ProductStatusActive,
		BasePrice:      decimal.Zero,
		CostPrice:      decimal.Zero,
		Margin:         decimal.Zero,
		Specifications: models.Specifications{},
		Images:         models.StringList{},
		Models: models.ProductModels{{
			ID:            "model-" + uuid.New().String(),
			Name:          models.DefaultModelName,
			PriceModifier: decimal.NewFromInt(1),
			IsActive:      true,
			Sizes:         []models.ModelOption{},
			Colors:        []models.ModelOption{},
			Fabrics:       []models.ModelOption{},
		}},
	}
}

type planner struct {
	customers map[string]models.Customer
	existing  map[string]*models.Product
	creates   map[string]int
	updates   map[string]int
	result    *Result
}

// Process stages creates and updates for rows. Row problems are collected in
// Result.Errors and never stop the run. A SKU seen again later in the same
// file folds into the product staged for it.
func Process(rows []Row, existing []models.Product, customers []models.Customer) *Result {
	p := &planner{
		customers: make(map[string]models.Customer, len(customers)),
		existing:  make(map[string]*models.Product, len(existing)),
		creates:   make(map[string]int),
		updates:   make(map[string]int),
		result: &Result{
			Creates: []models.Product{},
			Updates: []Update{},
			Errors:  []RowError{},
		},
	}
	for _, c := range customers {
		key := strings.ToLower(c.Name)
		if _, dup := p.customers[key]; !dup {
			p.customers[key] = c
		}
	}
	for i := range existing {
		prod := existing[i]
		prod.CustomerPrices = prod.CustomerPrices.Clone()
		p.existing[strings.ToLower(prod.SKU)] = &prod
	}

	for _, r := range rows {
		p.process(r)
	}

	res := p.result
	res.Summary.TotalRows = len(rows)
	res.Summary.ValidRows = len(rows) - len(res.Errors)
	res.Summary.Created = len(res.Creates)
	res.Summary.Updated = len(res.Updates)
	return res
}

func (p *planner) warn(row int, format string, args ...interface{}) {
	p.result.Errors = append(p.result.Errors, RowError{Row: row, Message: fmt.Sprintf(format, args...)})
}

func (p *planner) process(r Row) {
	if r.SKU == "" {
		p.warn(r.Number, "empty SKU - row skipped")
		return
	}
	key := strings.ToLower(r.SKU)

	if prod, ok := p.existing[key]; ok && prod.ID != "" {
		p.update(r, prod)
		return
	}

	if i, ok := p.creates[key]; ok {
		p.mergeCreate(r, &p.result.Creates[i])
		return
	}

	if r.Product == "" {
		p.warn(r.Number, "empty PRODUTO - row skipped")
		return
	}

	prod := NewProduct(r.SKU, r.Product)
	prod.Description = r.Variants()
	if customerID, price, ok := p.customerPrice(r); ok {
		prod.CustomerPrices = models.CustomerPrices{customerID: price}
	}
	p.creates[key] = len(p.result.Creates)
	p.result.Creates = append(p.result.Creates, prod)
}

func (p *planner) update(r Row, prod *models.Product) {
	u := Update{ID: prod.ID, SKU: prod.SKU}
	if r.Product != "" {
		name := r.Product
		u.Name = &name
	}
	if v := r.Variants(); v != "" {
		u.Description = &v
	}
	if customerID, price, ok := p.customerPrice(r); ok {
		if prod.CustomerPrices == nil {
			prod.CustomerPrices = models.CustomerPrices{}
		}
		prod.CustomerPrices[customerID] = price
		u.CustomerPrices = prod.CustomerPrices.Clone()
	}
	if u.Empty() {
		return
	}

	if i, ok := p.updates[prod.ID]; ok {
		prev := &p.result.Updates[i]
		if u.Name != nil {
			prev.Name = u.Name
		}
		if u.Description != nil {
			prev.Description = u.Description
		}
		if u.CustomerPrices != nil {
			prev.CustomerPrices = u.CustomerPrices
		}
		return
	}
	p.updates[prod.ID] = len(p.result.Updates)
	p.result.Updates = append(p.result.Updates, u)
}

func (p *planner) mergeCreate(r Row, prod *models.Product) {
	if r.Product != "" {
		prod.Name = r.Product
	}
	if v := r.Variants(); v != "" {
		prod.Description = v
	}
	if customerID, price, ok := p.customerPrice(r); ok {
		if prod.CustomerPrices == nil {
			prod.CustomerPrices = models.CustomerPrices{}
		}
		prod.CustomerPrices[customerID] = price
	}
}

// customerPrice resolves the CLIENTE/PREÇO pair of a row. Unknown customers
// and invalid prices are recorded as row errors.
func (p *planner) customerPrice(r Row) (string, decimal.Decimal, bool) {
	if r.Customer == "" || r.Price == "" {
		return "", decimal.Zero, false
	}

	customer, ok := p.customers[strings.ToLower(r.Customer)]
	if !ok {
		p.warn(r.Number, "customer %q not found - price not updated", r.Customer)
		return "", decimal.Zero, false
	}

	price, err := ParsePrice(r.Price)
	if err != nil || !price.IsPositive() {
		p.warn(r.Number, "invalid price for customer %q (value: %s) - price not updated", r.Customer, r.Price)
		return "", decimal.Zero, false
	}

	p.result.Summary.CustomerPricesSet++
	return customer.ID, price, true
}
