package domain

import "strings"

// Category is one of the fixed spending/earning labels a transaction can carry.
// The set is closed: use Categories for iteration, never a map.
type Category string

const (
	CategoryFood          Category = "Food"
	CategoryTransport     Category = "Transport"
	CategoryHousing       Category = "Housing"
	CategoryUtilities     Category = "Utilities"
	CategoryEntertainment Category = "Entertainment"
	CategoryHealth        Category = "Health"
	CategoryShopping      Category = "Shopping"
	CategorySalary        Category = "Salary"
	CategoryInvestment    Category = "Investment"
	CategoryOther         Category = "Other"
)

// Categories is the canonical declaration order. Palette assignment and
// tie-breaking in aggregations follow this order.
var Categories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryHousing,
	CategoryUtilities,
	CategoryEntertainment,
	CategoryHealth,
	CategoryShopping,
	CategorySalary,
	CategoryInvestment,
	CategoryOther,
}

// Palette holds the display colors, indexed by canonical category position.
var Palette = []string{
	"#3b82f6",
	"#10b981",
	"#f59e0b",
	"#ef4444",
	"#8b5cf6",
	"#ec4899",
	"#6366f1",
	"#14b8a6",
	"#f97316",
	"#64748b",
}

var categoryLabels = map[Category]string{
	CategoryFood:          "Alimentação",
	CategoryTransport:     "Transporte",
	CategoryHousing:       "Habitação",
	CategoryUtilities:     "Utilidades",
	CategoryEntertainment: "Entretenimento",
	CategoryHealth:        "Saúde",
	CategoryShopping:      "Compras",
	CategorySalary:        "Salário",
	CategoryInvestment:    "Investimento",
	CategoryOther:         "Outros",
}

// Index returns the canonical position of c, or -1 if c is not a known category.
func (c Category) Index() int {
	for i, cat := range Categories {
		if cat == c {
			return i
		}
	}
	return -1
}

// Valid reports whether c belongs to the closed category set.
func (c Category) Valid() bool {
	return c.Index() >= 0
}

// Label returns the pt-BR display label.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Color returns the palette color bound to c's canonical position.
// Unknown categories get the color of Other.
func (c Category) Color() string {
	idx := c.Index()
	if idx < 0 {
		idx = CategoryOther.Index()
	}
	return Palette[idx%len(Palette)]
}

// ParseCategory matches s case-insensitively against the category names and
// their pt-BR labels.
func ParseCategory(s string) (Category, bool) {
	needle := strings.TrimSpace(s)
	if needle == "" {
		return "", false
	}
	for _, c := range Categories {
		if strings.EqualFold(needle, string(c)) || strings.EqualFold(needle, c.Label()) {
			return c, true
		}
	}
	return "", false
}

// MatchCategory is ParseCategory with a fallback to Other.
func MatchCategory(s string) Category {
	if c, ok := ParseCategory(s); ok {
		return c
	}
	return CategoryOther
}
