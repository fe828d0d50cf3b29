// Package importer turns catalog spreadsheets into staged product creates and
// updates.
package importer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Template columns, as they appear after header normalisation
const (
	ColSKU      = "sku"
	ColProduct  = "produto"
	ColSize     = "tamanho"
	ColColor    = "cor"
	ColFabric   = "tecido"
	ColCustomer = "cliente"
	ColPrice    = "preco"
)

var requiredColumns = []string{ColSKU, ColProduct}

var (
	// ErrTooShort is returned when a file has no data rows
	ErrTooShort = errors.New("file must contain a header and at least one data row")
	// ErrMissingColumns is returned when SKU or PRODUTO is absent from the header
	ErrMissingColumns = errors.New("missing required columns")
)

// Row is one data line of a catalog file
type Row struct {
	Number   int    `json:"row"`
	SKU      string `json:"sku"`
	Product  string `json:"produto"`
	Size     string `json:"tamanho"`
	Color    string `json:"cor"`
	Fabric   string `json:"tecido"`
	Customer string `json:"cliente"`
	Price    string `json:"preco"`
}

// DetectDelimiter picks ';' when the header has more semicolons than tabs,
// otherwise tab.
func DetectDelimiter(header string) string {
	if strings.Count(header, ";") > strings.Count(header, "\t") {
		return ";"
	}
	return "\t"
}

// NormalizeHeader trims, lower-cases and strips accents, so "PREÇO" and
// "preco" name the same column.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, h)
	if err != nil {
		folded = h
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// DecodeText returns data as UTF-8. Files that are not valid UTF-8 are
// decoded as Windows-1252, the encoding spreadsheet tools export by default.
func DecodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	b, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), charmap.Windows1252.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("decode file: %w", err)
	}
	return string(b), nil
}

// Parse splits delimited text into rows
func Parse(text string) ([]Row, error) {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return nil, ErrTooShort
	}

	delimiter := DetectDelimiter(lines[0])
	records := make([][]string, len(lines))
	for i, line := range lines {
		records[i] = strings.Split(line, delimiter)
	}
	return ParseRecords(records)
}

// ParseRecords maps records (header first) onto rows. Missing cells are empty.
func ParseRecords(records [][]string) ([]Row, error) {
	if len(records) < 2 {
		return nil, ErrTooShort
	}

	index := make(map[string]int)
	for i, h := range records[0] {
		name := NormalizeHeader(h)
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	cell := func(values []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(values) {
			return ""
		}
		return strings.TrimSpace(values[i])
	}

	rows := make([]Row, 0, len(records)-1)
	for i, values := range records[1:] {
		rows = append(rows, Row{
			Number:   i + 2,
			SKU:      cell(values, ColSKU),
			Product:  cell(values, ColProduct),
			Size:     cell(values, ColSize),
			Color:    cell(values, ColColor),
			Fabric:   cell(values, ColFabric),
			Customer: cell(values, ColCustomer),
			Price:    cell(values, ColPrice),
		})
	}
	return rows, nil
}

// Variants joins the non-empty size, colour and fabric with " | "
func (r Row) Variants() string {
	parts := make([]string, 0, 3)
	for _, v := range []string{r.Size, r.Color, r.Fabric} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " | ")
}
