package dashboard

import (
	"math"

	"github.com/Rhymond/go-money"

	"github.com/simplainvest/wealthboard/pkg/formulas"
)

var (
	brlTenths = money.NewFormatter(1, ",", ".", "R$", "$ 1")
	brlWhole  = money.NewFormatter(0, ",", ".", "R$", "$ 1")
)

var compactUnits = []struct {
	size   float64
	suffix string
}{
	{1e12, "tri"},
	{1e9, "bi"},
	{1e6, "mi"},
	{1e3, "mil"},
}

// CompactBRL renders an amount in reais with a magnitude suffix and at most
// one decimal, e.g. "R$ 1,5 bi" or "R$ 850 mi".
func CompactBRL(v float64) string {
	if !formulas.IsFinite(v) {
		return ""
	}

	scaled, suffix := v, ""
	for _, u := range compactUnits {
		if math.Abs(v) >= u.size {
			scaled, suffix = v/u.size, u.suffix
			break
		}
	}

	tenths := int64(math.Round(formulas.Round1(scaled) * 10))
	var s string
	if tenths%10 == 0 {
		s = brlWhole.Format(tenths / 10)
	} else {
		s = brlTenths.Format(tenths)
	}
	if suffix != "" {
		s += " " + suffix
	}
	return s
}

// FullBRL renders an amount in reais with cents
func FullBRL(v float64) string {
	if !formulas.IsFinite(v) {
		return ""
	}
	return money.New(int64(math.Round(v*100)), money.BRL).Display()
}
