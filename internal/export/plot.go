package export

import (
	"encoding/json"
	"io"
	"math"

	"github.com/guptarohit/asciigraph"
	"github.com/pkg/errors"

	"github.com/skanders/thermoflow/internal/netw"
)

// PlotData is the diagram-ready export of a solved network: connection
// states plus any series the components expose.
type PlotData struct {
	Case        string                          `json:"case,omitempty"`
	Mode        string                          `json:"mode"`
	Connections []ConnPoint                     `json:"connections"`
	Components  map[string]map[string][]float64 `json:"components,omitempty"`
	Residuals   []float64                       `json:"residuals,omitempty"`
}

// ConnPoint is one connection state in SI units.
type ConnPoint struct {
	Label string             `json:"label"`
	M     float64            `json:"m"`
	P     float64            `json:"p"`
	H     float64            `json:"h"`
	T     float64            `json:"T"`
	S     float64            `json:"s"`
	X     float64            `json:"x,omitempty"`
	Fluid map[string]float64 `json:"fluid"`
}

// CollectPlotData assembles the export structure from a solved network.
func CollectPlotData(caseName string, nw *netw.Network) PlotData {
	data := PlotData{
		Case:       caseName,
		Mode:       nw.Mode(),
		Components: map[string]map[string][]float64{},
	}
	if nw.Report != nil {
		data.Residuals = nw.Report.Residuals
	}
	for _, c := range nw.Conns() {
		pt := ConnPoint{
			Label: c.Label,
			M:     c.M.SI, P: c.P.SI, H: c.H.SI,
			T: c.T.SI, S: c.S.SI,
			Fluid: c.Fluid.Val,
		}
		if !math.IsNaN(c.X.SI) {
			pt.X = c.X.SI
		}
		data.Connections = append(data.Connections, pt)
	}
	for _, comp := range nw.Comps() {
		if pd, ok := comp.(netw.PlottingDatar); ok {
			data.Components[comp.Label()] = pd.PlottingData()
		}
	}
	return data
}

// WriteJSON writes the plot data as indented JSON.
func (d PlotData) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(d), "encoding plot data")
}

// ConvergencePlot renders the residual history as a terminal plot on a
// log10 scale.
func ConvergencePlot(residuals []float64, height int) string {
	if len(residuals) == 0 {
		return "no convergence data"
	}
	logs := make([]float64, len(residuals))
	for i, r := range residuals {
		if r <= 0 {
			r = 1e-16
		}
		logs[i] = math.Log10(r)
	}
	return asciigraph.Plot(logs,
		asciigraph.Height(height),
		asciigraph.Caption("log10 residual norm over iterations"))
}
