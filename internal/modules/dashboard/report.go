package dashboard

import (
	"fmt"
	"sort"
	"strings"
)

// Markdown renders the dashboard as a plain report: KPI cards, broker
// distribution, inflow highlights, activity and funnel conversion.
func (v *DashboardView) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Dashboard Wealth\n\n")
	if v.RefreshedAt.IsZero() {
		b.WriteString("_Sem dados atualizados_\n\n")
	} else {
		fmt.Fprintf(&b, "_Atualizado em %s_\n\n", v.RefreshedAt.Format("02/01/2006 15:04"))
	}

	b.WriteString("## Indicadores\n\n| Indicador | Valor |\n|---|---:|\n")
	for _, k := range v.KPIs {
		fmt.Fprintf(&b, "| %s | %s |\n", k.Title, k.Formatted)
	}
	b.WriteString("\n")

	if v.Custody != nil {
		fmt.Fprintf(&b, "## %s\n\n| Corretora | Valor | %% |\n|---|---:|---:|\n", v.Custody.Title)
		for _, s := range v.Custody.Slices {
			fmt.Fprintf(&b, "| %s | %s | %.1f%% |\n", s.Label, s.FormattedValue, s.Percentage)
		}
		fmt.Fprintf(&b, "\nTotal: **%s**\n\n", v.Custody.TotalFormatted)
	}

	if v.Weekly != nil {
		fmt.Fprintf(&b, "## %s\n\n", v.Weekly.Title)
		fmt.Fprintf(&b, "- %s: **%s**\n", v.Weekly.LargestInflow.Label, v.Weekly.LargestInflow.Formatted)
		fmt.Fprintf(&b, "- %s: **%s**\n", v.Weekly.AnnualTotal.Label, v.Weekly.AnnualTotal.Formatted)
		fmt.Fprintf(&b, "- Semanas: %d de %d\n\n", v.Weekly.Range.Len(), v.Weekly.Length)
	}

	if v.Accumulated != nil {
		fmt.Fprintf(&b, "## %s\n\n", v.Accumulated.Title)
		fmt.Fprintf(&b, "- %s: **%s**\n", v.Accumulated.Current.Label, v.Accumulated.Current.Formatted)
		if v.Accumulated.Growth != nil {
			fmt.Fprintf(&b, "- Crescimento: %+.1f%%\n", *v.Accumulated.Growth)
		}
		b.WriteString("\n")
	}

	if v.Gauges != nil && len(v.Gauges.Gauges) > 0 {
		b.WriteString("## Atividade\n\n| Meta | Realizado | Alvo | % |\n|---|---:|---:|---:|\n")
		for _, g := range v.Gauges.Gauges {
			fmt.Fprintf(&b, "| %s | %.0f | %.0f | %.1f%% |\n", g.Label, g.Value, g.Max, g.Percentage)
		}
		b.WriteString("\n")
	}

	if v.Funnel != nil {
		fmt.Fprintf(&b, "## %s\n\n", v.Funnel.Title)
		for _, st := range v.Funnel.Funnel.Stages {
			line := fmt.Sprintf("%d. %s: %.0f", st.Index+1, st.Stage, st.Value)
			if st.ConversionRate != nil {
				line += fmt.Sprintf(" (%.1f%%)", *st.ConversionRate)
			}
			b.WriteString(line + "\n")
		}
		fmt.Fprintf(&b, "\nConversão geral: **%.1f%%** (%s)\n\n", v.Funnel.Summary.OverallConversion, v.Funnel.Summary.Performance)
	}

	if len(v.ChartErrors) > 0 || len(v.FeedErrors) > 0 {
		b.WriteString("## Avisos\n\n")
		for _, line := range sortedMessages(v.FeedErrors) {
			fmt.Fprintf(&b, "- feed %s\n", line)
		}
		for _, line := range sortedMessages(v.ChartErrors) {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}

	return b.String()
}

func sortedMessages(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k, msg := range m {
		out = append(out, k+": "+msg)
	}
	sort.Strings(out)
	return out
}
