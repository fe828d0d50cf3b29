package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"furniture-erp/internal/importer"
	"furniture-erp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const catalogFile = "SKU\tPRODUTO\tTAMANHO\tCOR\tTECIDO\tCLIENTE\tPREÇO\n" +
	"CB-100\tCama Box Nova\t138\tMarrom\tSuede\tLoja Azul\t1250,00\n" +
	"NEW-1\tMesa de Cabeceira\t\t\t\tLoja Azul\t300\n" +
	"\tSem SKU\t\t\t\t\t\n" +
	"NEW-2\tPoltrona\t\tCinza\t\tDesconhecido\t10\n"

func seedImportCatalog(t *testing.T, e *testEnv) *models.Customer {
	t.Helper()
	c := seedCustomer(t, e, "Loja Azul", "0")
	seedProducts(t, e, "CB-100")
	return c
}

func TestImportPreview(t *testing.T) {
	e := newTestEnv()
	seedImportCatalog(t, e)

	res, err := e.imports.Preview(context.Background(), Upload{Filename: "catalogo.tsv", Content: []byte(catalogFile)})

	require.NoError(t, err)
	assert.Equal(t, PreviewSummary{Total: 4, Create: 2, Update: 1, Skip: 1}, res.Summary)
	assert.Equal(t, importer.ActionUpdate, res.Items[0].Action)
	assert.Equal(t, 2, res.Items[0].Number)

	_, ok := e.store.productBySKU("NEW-1")
	assert.False(t, ok, "preview must not write")
}

func TestImportExecute(t *testing.T) {
	e := newTestEnv()
	azul := seedImportCatalog(t, e)

	res, err := e.imports.Execute(context.Background(), Upload{Filename: "catalogo.tsv", Content: []byte(catalogFile)})

	require.NoError(t, err)
	assert.Equal(t, 4, res.Summary.TotalRows)
	assert.Equal(t, 2, res.Summary.Created)
	assert.Equal(t, 1, res.Summary.Updated)
	assert.Equal(t, 2, res.Summary.CustomerPricesSet)
	assert.Len(t, res.Errors, 2)
	assert.Empty(t, res.Failed)
	assert.Equal(t, "imports/mock_catalogo.tsv", res.ArchiveKey)
	assert.Contains(t, e.archive.Files(), res.ArchiveKey)
	assert.Equal(t, "https://mock-bucket.local/imports/mock_catalogo.tsv", res.ArchiveURL)

	updated, ok := e.store.productBySKU("CB-100")
	require.True(t, ok)
	assert.Equal(t, "Cama Box Nova", updated.Name)
	assertMoney(t, "1250", updated.CustomerPrices[azul.ID])

	created, ok := e.store.productBySKU("NEW-1")
	require.True(t, ok)
	assert.Equal(t, models.CategoryBed, created.Category)
	assertMoney(t, "300", created.CustomerPrices[azul.ID])

	require.Len(t, e.publisher.imports, 1)
	assert.Equal(t, models.ProductsImportedEvent{
		Created:           2,
		Updated:           1,
		Errors:            2,
		CustomerPricesSet: 2,
		ArchiveKey:        res.ArchiveKey,
	}, e.publisher.imports[0])
	assert.Equal(t, int64(2), e.cache.version)
}

func TestImportExecute_WithoutArchive(t *testing.T) {
	e := newTestEnv()
	e.imports = NewImportService(e.store, e.store, e.catalog, nil, e.publisher)

	res, err := e.imports.Execute(context.Background(), Upload{Filename: "catalogo.tsv", Content: []byte(catalogFile)})

	require.NoError(t, err)
	assert.Empty(t, res.ArchiveKey)
	assert.Equal(t, 3, res.Summary.Created)
}

func TestImportExecute_XLSX(t *testing.T) {
	e := newTestEnv()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"SKU", "PRODUTO", "COR"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"XL-1", "Cama Baú", "Bege"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	res, err := e.imports.Execute(context.Background(), Upload{Filename: "Catalogo Março.XLSX", Content: buf.Bytes()})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.Created)
	p, ok := e.store.productBySKU("XL-1")
	require.True(t, ok)
	assert.Equal(t, "Cama Baú", p.Name)
}

func TestImportRejectsUnreadableFiles(t *testing.T) {
	e := newTestEnv()

	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"header only", "SKU\tPRODUTO\n"},
		{"missing columns", "CODIGO\tNOME\nX\tY\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.imports.Execute(context.Background(), Upload{Filename: "x.csv", Content: []byte(tt.content)})
			assert.True(t, errors.Is(err, ErrValidation), err)
		})
	}
	assert.Empty(t, e.publisher.imports)
}

func TestImportTemplate(t *testing.T) {
	e := newTestEnv()

	rows, err := ParseUpload(Upload{Filename: "template.tsv", Content: []byte(e.imports.Template())})

	require.NoError(t, err)
	assert.NotEmpty(t, rows)
}

const legacyFile = `TABELA DE PRECOS;;;;;;;;;
CODIGO DO PRODUTO;;;;PRODUTO;TAMANHO;COR;TECIDO;CLIENTE;PRECO
100;;;;CAMA BOX CASAL;138;MARROM;SUEDE;LOJA AZUL;R$ 1.200,00
101;;;;CAMA BOX CASAL;158;MARROM;LINHO;LOJA AZUL;R$ 1.000,00
102;;;;CAMA BOX CASAL;138;PRETO;SUEDE;CASA VERDE;R$ 1.301,00
200;;;;COLCHÃO MOLAS;158;BRANCO;MALHA;;
300;;;;TRAVESSEIRO;50;BRANCO;;LOJA AZUL;0
`

func TestImportLegacy(t *testing.T) {
	e := newTestEnv()
	azul := seedCustomer(t, e, "Loja Azul", "0")
	require.NoError(t, e.store.CreateProduct(context.Background(), &models.Product{SKU: "TRV-1", Name: "TRAVESSEIRO"}))

	res, err := e.imports.ImportLegacy(context.Background(), []byte(legacyFile))

	require.NoError(t, err)
	assert.Equal(t, 5, res.Rows)
	assert.Equal(t, 3, res.Products)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Skipped)

	bed, ok := e.store.productBySKU("CBC-0001")
	require.True(t, ok)
	assert.Equal(t, models.CategoryBed, bed.Category)
	assertMoney(t, "1000", bed.CustomerPrices[azul.ID])
	assertMoney(t, "1301", bed.CustomerPrices["CASA VERDE"])

	mattress, ok := e.store.productBySKU("CM-0002")
	require.True(t, ok)
	assert.Equal(t, models.CategoryMattress, mattress.Category)

	require.Len(t, e.publisher.imports, 1)
	assert.Equal(t, 2, e.publisher.imports[0].Created)
}

func TestImportLegacy_SecondRunSkipsTakenSKUs(t *testing.T) {
	e := newTestEnv()
	_, err := e.imports.ImportLegacy(context.Background(), []byte(legacyFile))
	require.NoError(t, err)

	next := "TABELA DE PRECOS;;;;;;;;;\n" +
		"CODIGO DO PRODUTO;;;;PRODUTO;TAMANHO;COR;TECIDO;CLIENTE;PRECO\n" +
		"400;;;;CAMA BOX COMPACTA;88;CINZA;SUEDE;;R$ 800,00\n"

	res, err := e.imports.ImportLegacy(context.Background(), []byte(next))

	require.NoError(t, err)
	assert.Empty(t, res.Failed)
	assert.Equal(t, 1, res.Created)
	bed, ok := e.store.productBySKU("CBC-0002")
	require.True(t, ok)
	assert.Equal(t, "CAMA BOX COMPACTA", bed.Name)
}

func TestImportLegacy_NoRows(t *testing.T) {
	e := newTestEnv()

	_, err := e.imports.ImportLegacy(context.Background(), []byte(strings.Repeat("cabecalho;\n", 3)))

	assert.True(t, errors.Is(err, ErrValidation))
}
