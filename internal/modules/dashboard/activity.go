package dashboard

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/simplainvest/wealthboard/internal/modules/charts"
)

// Activity holds the commercial activity figures behind the gauges and the
// sales funnel. They do not come from the feed.
type Activity struct {
	Gauges []charts.GaugeSpec   `json:"gauges"`
	Funnel []charts.FunnelStage `json:"funnel"`
}

// DefaultActivity returns the built-in figures
func DefaultActivity() Activity {
	return Activity{
		Gauges: []charts.GaugeSpec{
			{Label: "Chamadas Realizadas", Value: 847, Max: 1000, Color: "#fbbf24"},
			{Label: "Reuniões Marcadas", Value: 234, Max: 300, Color: "#3b82f6"},
			{Label: "Reuniões Realizadas", Value: 189, Max: 250, Color: "#10b981"},
			{Label: "Contratos Assinados", Value: 67, Max: 100, Color: "#ef4444"},
		},
		Funnel: []charts.FunnelStage{
			{Stage: "Reuniões Marcadas", Value: 234, Color: "#3b82f6"},
			{Stage: "Reuniões Realizadas", Value: 189, Color: "#10b981"},
			{Stage: "Contratos Assinados", Value: 67, Color: "#ef4444"},
		},
	}
}

// LoadActivity reads activity figures from a JSON file. An empty path yields
// the defaults.
func LoadActivity(path string) (Activity, error) {
	if path == "" {
		return DefaultActivity(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Activity{}, fmt.Errorf("failed to read activity file: %w", err)
	}

	var a Activity
	if err := json.Unmarshal(data, &a); err != nil {
		return Activity{}, fmt.Errorf("failed to parse activity file %s: %w", path, err)
	}
	if len(a.Gauges) == 0 && len(a.Funnel) == 0 {
		return Activity{}, fmt.Errorf("activity file %s defines no gauges or funnel stages", path)
	}
	return a, nil
}
