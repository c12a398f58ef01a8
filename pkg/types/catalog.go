package types

import "sort"

// Units reported by the portal.
const (
	UnitKilowattHour = "kWh"
	UnitPrice        = "CAD"
	UnitDays         = "days"
	UnitCelsius      = "°C"
)

// SensorType describes how a single portal field is displayed.
type SensorType struct {
	Name string `json:"name"`
	Unit string `json:"unit"`
	Icon string `json:"icon"`
}

// Catalog lists every field that can be monitored, keyed by field identifier.
// It must not be modified at runtime.
var Catalog = map[string]SensorType{
	"balance":                            {"Balance", UnitPrice, "mdi:square-inc-cash"},
	"period_total_bill":                  {"Current period bill", UnitPrice, "mdi:square-inc-cash"},
	"period_length":                      {"Current period length", UnitDays, "mdi:calendar-today"},
	"period_total_days":                  {"Total number of days in this period", UnitDays, "mdi:calendar-today"},
	"period_mean_daily_bill":             {"Period daily average bill", UnitPrice, "mdi:square-inc-cash"},
	"period_mean_daily_consumption":      {"Period daily average consumption", UnitKilowattHour, "mdi:flash"},
	"period_total_consumption":           {"Total Consumption", UnitKilowattHour, "mdi:flash"},
	"period_lower_price_consumption":     {"Period Lower price consumption", UnitKilowattHour, "mdi:flash"},
	"period_higher_price_consumption":    {"Period Higher price consumption", UnitKilowattHour, "mdi:flash"},
	"yesterday_total_consumption":        {"Yesterday total consumption", UnitKilowattHour, "mdi:flash"},
	"yesterday_lower_price_consumption":  {"Yesterday lower price consumption", UnitKilowattHour, "mdi:flash"},
	"yesterday_higher_price_consumption": {"Yesterday higher price consumption", UnitKilowattHour, "mdi:flash"},
	"yesterday_average_temperature":      {"Yesterday average temperature", UnitCelsius, "mdi:thermometer"},
	"period_average_temperature":         {"Period average temperature", UnitCelsius, "mdi:thermometer"},
}

// LookupSensorType returns the catalog entry for field.
func LookupSensorType(field string) (SensorType, bool) {
	st, ok := Catalog[field]
	return st, ok
}

// CatalogFields returns the catalog's field identifiers in sorted order.
func CatalogFields() []string {
	fields := make([]string, 0, len(Catalog))
	for f := range Catalog {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// FieldMapping pairs a catalog field identifier with the name the portal uses
// for it.
type FieldMapping struct {
	Field    string
	Provider string
}

// MonthlyMap translates the portal's current-period fields.
var MonthlyMap = []FieldMapping{
	{"period_total_bill", "montantFacturePeriode"},
	{"period_length", "nbJourLecturePeriode"},
	{"period_total_days", "nbJourPrevuPeriode"},
	{"period_mean_daily_bill", "moyenneDollarsJourPeriode"},
	{"period_mean_daily_consumption", "moyenneKwhJourPeriode"},
	{"period_total_consumption", "consoTotalPeriode"},
	{"period_lower_price_consumption", "consoRegPeriode"},
	{"period_higher_price_consumption", "consoHautPeriode"},
}

// DailyMap translates the portal's fields for yesterday.
var DailyMap = []FieldMapping{
	{"yesterday_total_consumption", "consoTotalQuot"},
	{"yesterday_lower_price_consumption", "consoRegQuot"},
	{"yesterday_higher_price_consumption", "consoHautQuot"},
}

// AccountMap translates the remaining portal fields: the account balance and
// the average temperatures reported alongside the consumption data.
var AccountMap = []FieldMapping{
	{"balance", "solde"},
	{"yesterday_average_temperature", "tempMoyenneQuot"},
	{"period_average_temperature", "tempMoyennePeriode"},
}

// TranslateFields maps raw portal values onto catalog field identifiers.
// Portal fields that no table knows about are dropped, as are mapped fields
// missing from raw.
func TranslateFields(raw map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(Catalog))
	for _, table := range [][]FieldMapping{MonthlyMap, DailyMap, AccountMap} {
		for _, m := range table {
			if v, ok := raw[m.Provider]; ok {
				out[m.Field] = v
			}
		}
	}
	return out
}
