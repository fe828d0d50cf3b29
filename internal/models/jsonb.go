package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Nested document fields are stored as JSONB columns and overwritten whole on
// every write.

type (
	OrderProducts    []OrderProduct
	OrderFragments   []OrderFragment
	ProductionStages []ProductionStage
	ProductModels    []ProductModel
	Specifications   []Specification
	StringList       []string
	CustomerPrices   map[string]decimal.Decimal
)

func marshalJSONB(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalJSONB(src interface{}, dst interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported JSONB source type %T", src)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}

// Value implements driver.Valuer
func (p OrderProducts) Value() (driver.Value, error) {
	if p == nil {
		p = OrderProducts{}
	}
	return marshalJSONB([]OrderProduct(p))
}

// Scan implements sql.Scanner
func (p *OrderProducts) Scan(src interface{}) error {
	return unmarshalJSONB(src, (*[]OrderProduct)(p))
}

// Value implements driver.Valuer
func (f OrderFragments) Value() (driver.Value, error) {
	if f == nil {
		f = OrderFragments{}
	}
	return marshalJSONB([]OrderFragment(f))
}

// Scan implements sql.Scanner
func (f *OrderFragments) Scan(src interface{}) error {
	return unmarshalJSONB(src, (*[]OrderFragment)(f))
}

// Value implements driver.Valuer
func (s ProductionStages) Value() (driver.Value, error) {
	if s == nil {
		s = ProductionStages{}
	}
	return marshalJSONB([]ProductionStage(s))
}

// Scan implements sql.Scanner
func (s *ProductionStages) Scan(src interface{}) error {
	return unmarshalJSONB(src, (*[]ProductionStage)(s))
}

// Value implements driver.Valuer
func (m ProductModels) Value() (driver.Value, error) {
	if m == nil {
		m = ProductModels{}
	}
	return marshalJSONB([]ProductModel(m))
}

// Scan implements sql.Scanner
func (m *ProductModels) Scan(src interface{}) error {
	return unmarshalJSONB(src, (*[]ProductModel)(m))
}

// Value implements driver.Valuer
func (s Specifications) Value() (driver.Value, error) {
	if s == nil {
		s = Specifications{}
	}
	return marshalJSONB([]Specification(s))
}

// Scan implements sql.Scanner
func (s *Specifications) Scan(src interface{}) error {
	return unmarshalJSONB(src, (*[]Specification)(s))
}

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return marshalJSONB([]string(l))
}

// Scan implements sql.Scanner
func (l *StringList) Scan(src interface{}) error {
	return unmarshalJSONB(src, (*[]string)(l))
}

// Value implements driver.Valuer
func (c CustomerPrices) Value() (driver.Value, error) {
	if c == nil {
		c = CustomerPrices{}
	}
	return marshalJSONB(map[string]decimal.Decimal(c))
}

// Scan implements sql.Scanner
func (c *CustomerPrices) Scan(src interface{}) error {
	return unmarshalJSONB(src, (*map[string]decimal.Decimal)(c))
}

// Clone returns an independent copy of the price map
func (c CustomerPrices) Clone() CustomerPrices {
	out := make(CustomerPrices, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
