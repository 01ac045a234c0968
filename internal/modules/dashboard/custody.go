// Package dashboard assembles the KPI dashboard: it loads the wealth feed,
// keeps the latest snapshot and per-chart brush selections, and turns them
// into chart geometry.
package dashboard

import (
	"github.com/simplainvest/wealthboard/internal/modules/charts"
	"github.com/simplainvest/wealthboard/internal/modules/series"
)

// Custody feed fields
const (
	FieldXPBrasil         = "XP BRASIL"
	FieldXPInternacional  = "XP INTERNACIONAL"
	FieldBTGBrasil        = "BTG BRASIL"
	FieldBTGInternacional = "BTG INTERNACIONAL"
	FieldAvenue           = "AVENUE"
	FieldCustodyTotal     = "CUSTODIA TOTAL"
	FieldCustodyBrokers   = "CUSTODIA CORRETORAS"
	FieldCustodyFixedFee  = "CUSTODIA FEE FIXO"
	FieldCustodyInactive  = "CUSTODIA INATIVA"
	FieldCustodyPartners  = "CUSTODIA PARCEIROS"
)

// Weekly feed fields
const (
	FieldWeek        = "Semana"
	FieldInflow      = "Captação"
	FieldAccumulated = "Acumulado Semana"
)

// CustodySnapshot is the latest custody record. Every figure is optional: a
// missing or unusable field is nil and listed in Missing.
type CustodySnapshot struct {
	Values  map[string]*float64 `json:"values"`
	Missing []string            `json:"missing,omitempty"`
}

var custodyFields = []string{
	FieldXPBrasil,
	FieldXPInternacional,
	FieldBTGBrasil,
	FieldBTGInternacional,
	FieldAvenue,
	FieldCustodyTotal,
	FieldCustodyBrokers,
	FieldCustodyFixedFee,
	FieldCustodyInactive,
	FieldCustodyPartners,
}

// ParseCustody reads the first record of the custody feed
func ParseCustody(records []series.RawRecord) (*CustodySnapshot, error) {
	if len(records) == 0 {
		return nil, series.ErrEmptySeries
	}

	rec := records[0]
	snap := &CustodySnapshot{Values: make(map[string]*float64, len(custodyFields))}
	for _, field := range custodyFields {
		v, err := rec.OptionalNumber(field)
		if err != nil {
			snap.Missing = append(snap.Missing, field)
		}
		snap.Values[field] = v
	}
	return snap, nil
}

// Get returns a figure, or nil when it is unavailable
func (c *CustodySnapshot) Get(field string) *float64 {
	if c == nil {
		return nil
	}
	return c.Values[field]
}

// brokerSlices is the donut layout: label, feed field and colour
var brokerSlices = []struct {
	label string
	field string
	color string
}{
	{"BTG Brasil", FieldBTGBrasil, "#fbbf24"},
	{"BTG Int", FieldBTGInternacional, "#3b82f6"},
	{"XP Int", FieldXPInternacional, "#10b981"},
	{"XP Brasil", FieldXPBrasil, "#ef4444"},
	{"Avenue", FieldAvenue, "#8b5cf6"},
}

// BrokerSlices returns the broker distribution; unavailable brokers are left
// out
func (c *CustodySnapshot) BrokerSlices() []charts.WeightedSlice {
	out := make([]charts.WeightedSlice, 0, len(brokerSlices))
	for _, b := range brokerSlices {
		v := c.Get(b.field)
		if v == nil {
			continue
		}
		out = append(out, charts.WeightedSlice{Label: b.label, Value: *v, Color: b.color})
	}
	return out
}

// KPI is one headline card
type KPI struct {
	Key       string   `json:"key"`
	Title     string   `json:"title"`
	Value     *float64 `json:"value"`
	Formatted string   `json:"formatted"`
	Available bool     `json:"available"`
}

var kpiCards = []struct {
	key   string
	title string
	field string
}{
	{"custody_total", "Custódia Total", FieldCustodyTotal},
	{"custody_brokers", "Custódia Corretoras", FieldCustodyBrokers},
	{"custody_fixed_fee", "Custódia Fee Fixo", FieldCustodyFixedFee},
	{"custody_inactive", "Custódia Inativa", FieldCustodyInactive},
	{"custody_partners", "Custódia Parceiros", FieldCustodyPartners},
}

// KPIs builds the headline cards. Cards whose figure is unavailable are
// returned with Available false.
func (c *CustodySnapshot) KPIs() []KPI {
	out := make([]KPI, len(kpiCards))
	for i, k := range kpiCards {
		v := c.Get(k.field)
		out[i] = KPI{Key: k.key, Title: k.title, Value: v}
		if v != nil {
			out[i].Formatted = CompactBRL(*v)
			out[i].Available = true
		}
	}
	return out
}
