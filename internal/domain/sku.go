package domain

import (
	"fmt"
	"strings"

	"github.com/ateliedecor/api/internal/platform/textutil"
)

// skuTableEntry maps a normalized name fragment to its fixed catalog code.
type skuTableEntry struct {
	Fragment string
	Code     string
}

// productCodeTable is scanned in order; the first entry whose fragment
// contains the normalized product name, or is contained by it, wins.
// More specific fragments must precede the families they extend
// ("PORTA COPO REDONDO" before "PORTA COPO"), otherwise overlapping
// names resolve to the wrong code.
var productCodeTable = []skuTableEntry{
	{Fragment: "PORTA COPO REDONDO", Code: "2002"},
	{Fragment: "PORTA COPO QUADRADO", Code: "2003"},
	{Fragment: "PORTA COPO", Code: "2001"},
	{Fragment: "PORTA GUARDANAPO", Code: "2010"},
	{Fragment: "PORTA RETRATO", Code: "2015"},
	{Fragment: "JOGO AMERICANO OVAL", Code: "2021"},
	{Fragment: "JOGO AMERICANO", Code: "2020"},
	{Fragment: "CAPA DE ALMOFADA", Code: "3001"},
	{Fragment: "ALMOFADA DECORATIVA", Code: "3002"},
	{Fragment: "MANTA PARA SOFA", Code: "3010"},
	{Fragment: "VASO CERAMICA GRANDE", Code: "4002"},
	{Fragment: "VASO CERAMICA", Code: "4001"},
	{Fragment: "VASO VIDRO", Code: "4005"},
	{Fragment: "BANDEJA ESPELHADA", Code: "5001"},
	{Fragment: "BANDEJA MADEIRA", Code: "5002"},
	{Fragment: "MESA DE CENTRO", Code: "6001"},
	{Fragment: "MESA LATERAL", Code: "6002"},
	{Fragment: "APARADOR", Code: "6010"},
	{Fragment: "LUMINARIA DE MESA", Code: "7001"},
	{Fragment: "LUMINARIA DE CHAO", Code: "7002"},
}

// colorCodeTable resolves by exact case-insensitive match only; substring
// containment would turn "AZUL MARINHO" into plain "AZUL".
var colorCodeTable = []skuTableEntry{
	{Fragment: "VERMELHO", Code: "10"},
	{Fragment: "AZUL", Code: "20"},
	{Fragment: "AZUL MARINHO", Code: "21"},
	{Fragment: "AZUL CLARO", Code: "22"},
	{Fragment: "VERDE", Code: "30"},
	{Fragment: "VERDE MUSGO", Code: "31"},
	{Fragment: "AMARELO", Code: "40"},
	{Fragment: "MOSTARDA", Code: "41"},
	{Fragment: "LARANJA", Code: "50"},
	{Fragment: "TERRACOTA", Code: "51"},
	{Fragment: "ROSA", Code: "60"},
	{Fragment: "ROSE", Code: "61"},
	{Fragment: "ROXO", Code: "70"},
	{Fragment: "LILAS", Code: "71"},
	{Fragment: "MARROM", Code: "80"},
	{Fragment: "BEGE", Code: "81"},
	{Fragment: "CARAMELO", Code: "82"},
	{Fragment: "PRETO", Code: "90"},
	{Fragment: "BRANCO", Code: "91"},
	{Fragment: "CINZA", Code: "92"},
	{Fragment: "OFF WHITE", Code: "93"},
	{Fragment: "DOURADO", Code: "100"},
	{Fragment: "PRATEADO", Code: "101"},
}

// GenerateSKU synthesizes the fixed-format code "<product>-<color>-UN" for a
// product/color name pair. Either lookup failing yields "", which callers
// treat as "SKU not yet determinable" rather than an error.
func GenerateSKU(productName, colorName string) string {
	productCode := ProductCode(productName)
	colorCode := ColorCode(colorName)
	if productCode == "" || colorCode == "" {
		return ""
	}
	return fmt.Sprintf("%s-%s-UN", productCode, colorCode)
}

// ProductExists reports whether the product name resolves to a catalog code.
func ProductExists(name string) bool {
	return ProductCode(name) != ""
}

// ProductCode resolves a product name against the ordered fragment table.
// The match is bidirectional: the name may contain the fragment or the
// fragment may contain the name. Returns "" when nothing matches.
func ProductCode(name string) string {
	normalized := normalizeSKUInput(name)
	if normalized == "" {
		return ""
	}
	for _, entry := range productCodeTable {
		if strings.Contains(normalized, entry.Fragment) || strings.Contains(entry.Fragment, normalized) {
			return entry.Code
		}
	}
	return ""
}

// ColorCode resolves a color name by exact case-insensitive match.
// Returns "" when the color is not in the table.
func ColorCode(name string) string {
	normalized := normalizeSKUInput(name)
	if normalized == "" {
		return ""
	}
	for _, entry := range colorCodeTable {
		if entry.Fragment == normalized {
			return entry.Code
		}
	}
	return ""
}

// normalizeSKUInput uppercases, collapses whitespace, and strips accents so
// "Vaso Cerâmica" and "VASO CERAMICA" hit the same table entry.
func normalizeSKUInput(value string) string {
	folded := textutil.FoldDiacritics(value)
	return strings.ToUpper(strings.Join(strings.Fields(folded), " "))
}
