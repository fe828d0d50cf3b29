package importer

import "strings"

// TemplateHeaders are the columns of the downloadable template
var TemplateHeaders = []string{"SKU", "PRODUTO", "TAMANHO", "COR", "TECIDO", "CLIENTE", "PREÇO"}

var templateRows = [][]string{
	{"BED-100-001", "Cama Box Casal", "138x188", "Marrom", "Suede", "Loja Exemplo", "1250,00"},
	{"MAT-200-001", "Colchão Molas Ensacadas", "158x198", "Branco", "Malha", "", ""},
}

// Template renders the tab-separated import template
func Template() string {
	var b strings.Builder
	b.WriteString(strings.Join(TemplateHeaders, "\t"))
	b.WriteString("\n")
	for _, r := range templateRows {
		b.WriteString(strings.Join(r, "\t"))
		b.WriteString("\n")
	}
	return b.String()
}
