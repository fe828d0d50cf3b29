package importer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"furniture-erp/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Legacy sheet column positions
const (
	legacyColCode     = 0
	legacyColProduct  = 4
	legacyColSize     = 5
	legacyColColor    = 6
	legacyColFabric   = 7
	legacyColCustomer = 8
	legacyColPrice    = 9
	legacyMinColumns  = 10
	legacyHeaderLines = 2
	legacyCodeHeader  = "CODIGO DO PRODUTO"
	legacyMarginValue = 40
	legacyMinStock    = 5
)

var (
	legacyCostRatio = decimal.RequireFromString("0.6")
	whitespace      = regexp.MustCompile(`\s`)
)

// LegacyRow is one variant line of the semicolon price sheet
type LegacyRow struct {
	Code     string
	Product  string
	Size     string
	Color    string
	Fabric   string
	Customer string
	Price    decimal.Decimal
}

// LegacyGroup holds every variant line of one product name
type LegacyGroup struct {
	Name     string
	Variants []LegacyRow
}

// ParseLegacyPrice strips "R$", whitespace and thousands dots and reads the
// comma as decimal separator. Unreadable values are zero.
func ParseLegacyPrice(s string) decimal.Decimal {
	s = strings.ReplaceAll(s, "R$", "")
	s = whitespace.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseLegacy reads the semicolon sheet. The first two lines are headers;
// short lines and lines without code or product are ignored.
func ParseLegacy(text string) []LegacyRow {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	rows := make([]LegacyRow, 0, len(lines))
	for i := legacyHeaderLines; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		cols := strings.Split(line, ";")
		if len(cols) < legacyMinColumns {
			continue
		}
		for j := range cols {
			cols[j] = strings.TrimSpace(cols[j])
		}
		code, product := cols[legacyColCode], cols[legacyColProduct]
		if code == "" || product == "" || code == legacyCodeHeader {
			continue
		}
		rows = append(rows, LegacyRow{
			Code:     code,
			Product:  product,
			Size:     cols[legacyColSize],
			Color:    cols[legacyColColor],
			Fabric:   cols[legacyColFabric],
			Customer: cols[legacyColCustomer],
			Price:    ParseLegacyPrice(cols[legacyColPrice]),
		})
	}
	return rows
}

// GroupLegacy groups rows by product name in first-seen order
func GroupLegacy(rows []LegacyRow) []LegacyGroup {
	index := make(map[string]int)
	var groups []LegacyGroup
	for _, r := range rows {
		i, ok := index[r.Product]
		if !ok {
			i = len(groups)
			index[r.Product] = i
			groups = append(groups, LegacyGroup{Name: r.Product})
		}
		groups[i].Variants = append(groups[i].Variants, r)
	}
	return groups
}

// LegacyCategory derives the category from keywords in the product name
func LegacyCategory(name string) string {
	upper := strings.ToUpper(name)
	switch {
	case strings.Contains(upper, "CAMA"), strings.Contains(upper, "3X1"), strings.Contains(upper, "BICAMA"):
		return models.CategoryBed
	case strings.Contains(upper, "COLCHAO"), strings.Contains(upper, "COLCHÃO"):
		return models.CategoryMattress
	}
	return models.CategoryAccessory
}

// LegacySKU builds "<initials>-<index>" with at most three initials
func LegacySKU(name string, index int) string {
	var initials strings.Builder
	for _, word := range strings.Split(name, " ") {
		if r, size := utf8.DecodeRuneInString(word); size > 0 {
			initials.WriteRune(r)
		}
	}
	prefix := []rune(strings.ToUpper(initials.String()))
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return fmt.Sprintf("%s-%04d", string(prefix), index)
}

// BuildLegacyProduct turns a product group into a catalog entry. resolve maps
// a customer name to the key used in the customer price map.
func BuildLegacyProduct(g LegacyGroup, index int, resolve func(name string) string) models.Product {
	var sizes, colors, fabrics []string
	seen := map[string]map[string]bool{"size": {}, "color": {}, "fabric": {}}
	add := func(kind, v string, into *[]string) {
		if v != "" && !seen[kind][v] {
			seen[kind][v] = true
			*into = append(*into, v)
		}
	}

	prices := models.CustomerPrices{}
	sum := decimal.Zero
	positive := 0
	for _, v := range g.Variants {
		add("size", v.Size, &sizes)
		add("color", v.Color, &colors)
		add("fabric", v.Fabric, &fabrics)

		if !v.Price.IsPositive() {
			continue
		}
		sum = sum.Add(v.Price)
		positive++
		if v.Customer != "" {
			key := resolve(v.Customer)
			if cur, ok := prices[key]; !ok || v.Price.LessThan(cur) {
				prices[key] = v.Price
			}
		}
	}

	base := decimal.Zero
	if positive > 0 {
		base = sum.Div(decimal.NewFromInt(int64(positive)))
	}

	one := decimal.NewFromInt(1)
	model := models.ProductModel{
		ID:            "model-" + uuid.New().String(),
		Name:          models.DefaultModelName,
		PriceModifier: one,
		MinimumStock:  legacyMinStock,
		IsActive:      true,
		Sizes:         make([]models.ModelOption, 0, len(sizes)),
		Colors:        make([]models.ModelOption, 0, len(colors)),
		Fabrics:       make([]models.ModelOption, 0, len(fabrics)),
	}
	for i, s := range sizes {
		model.Sizes = append(model.Sizes, models.ModelOption{ID: fmt.Sprintf("size-%d", i), Name: s, PriceModifier: one})
	}
	for i, c := range colors {
		model.Colors = append(model.Colors, models.ModelOption{ID: fmt.Sprintf("color-%d", i), Name: c, HexCode: "#000000", PriceModifier: one})
	}
	for i, f := range fabrics {
		model.Fabrics = append(model.Fabrics, models.ModelOption{ID: fmt.Sprintf("fabric-%d", i), Name: f, Type: "tecido", PriceModifier: one})
	}

	return models.Product{
		SKU:            LegacySKU(g.Name, index),
		Name:           g.Name,
		Category:       LegacyCategory(g.Name),
		Description:    fmt.Sprintf("Produto %s com múltiplas variações", g.Name),
		BasePrice:      base.Round(0),
		CostPrice:      base.Mul(legacyCostRatio).Round(0),
		Margin:         decimal.NewFromInt(legacyMarginValue),
		Status:         models.ProductStatusActive,
		Models:         models.ProductModels{model},
		Specifications: models.Specifications{},
		Images:         models.StringList{},
		CustomerPrices: prices,
	}
}
