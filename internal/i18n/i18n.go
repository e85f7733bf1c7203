// Package i18n resolves spreadsheet header labels per locale.
package i18n

var labels = map[string]map[string]string{
	"en": {
		"column.date":     "Date",
		"column.merchant": "Merchant",
		"column.total":    "Total",
		"column.link":     "Receipt Link",
		"column.id":       "ID",
	},
	"es": {
		"column.date":     "Fecha",
		"column.merchant": "Comercio",
		"column.total":    "Total",
		"column.link":     "Enlace",
		"column.id":       "ID",
	},
	"it": {
		"column.date":     "Data",
		"column.merchant": "Esercente",
		"column.total":    "Totale",
		"column.link":     "Collegamento",
		"column.id":       "ID",
	},
}

// Translator returns a lookup function for the given locale. Unknown locales
// fall back to English; unknown keys come back unchanged so a missing entry
// is visible in the sheet instead of silently blank.
func Translator(locale string) func(key string) string {
	m, ok := labels[locale]
	if !ok {
		m = labels["en"]
	}
	return func(key string) string {
		if v, ok := m[key]; ok {
			return v
		}
		if v, ok := labels["en"][key]; ok {
			return v
		}
		return key
	}
}
