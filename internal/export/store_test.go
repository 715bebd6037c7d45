package export

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/skanders/thermoflow/internal/comps"
	"github.com/skanders/thermoflow/internal/netw"
)

func testNetwork(t *testing.T) *netw.Network {
	t.Helper()
	nw, err := netw.New([]string{"water"})
	if err != nil {
		t.Fatal(err)
	}
	src := comps.NewSource("src")
	vl := comps.NewValve("valve")
	snk := comps.NewSink("snk")
	c1 := netw.NewConnection(src, "out1", vl, "in1").WithLabel("feed")
	c2 := netw.NewConnection(vl, "out1", snk, "in1").WithLabel("drain")
	c1.M.SI, c1.P.SI, c1.H.SI = 1, 5e5, 1e5
	c2.M.SI, c2.P.SI, c2.H.SI = 1, 4e5, 1e5
	c1.Fluid.Val["water"] = 1
	c2.Fluid.Val["water"] = 1
	if err := nw.AddConns(c1, c2); err != nil {
		t.Fatal(err)
	}
	if err := nw.CheckTopology(); err != nil {
		t.Fatal(err)
	}
	return nw
}

func testReport() *netw.Report {
	return &netw.Report{
		Mode:       "design",
		Iterations: 4,
		Residuals:  []float64{1e2, 1e-1, 1e-4, 1e-7},
		Converged:  true,
		Progress:   true,
		SingularAt: -1,
		Elapsed:    25 * time.Millisecond,
		Backend:    "cpu",
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}

	nw := testNetwork(t)
	runID, err := store.Save("throttle", nw, testReport())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(runID, "throttle_") {
		t.Fatalf("unexpected run id %q", runID)
	}

	meta, err := store.Meta(runID)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Case != "throttle" || meta.Iterations != 4 || !meta.Converged {
		t.Fatalf("metadata mismatch: %+v", meta)
	}
	if math.Abs(meta.Residual-1e-7) > 1e-12 {
		t.Fatalf("residual = %g, want 1e-7", meta.Residual)
	}

	residuals, err := store.Convergence(runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(residuals) != 4 || math.Abs(residuals[0]-1e2) > 1e-6 {
		t.Fatalf("convergence history mismatch: %v", residuals)
	}

	metas, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 1 || metas[0].ID != runID {
		t.Fatalf("list mismatch: %+v", metas)
	}

	conns, err := store.Table(runID, "connections.csv")
	if err != nil {
		t.Fatal(err)
	}
	if len(conns) != 3 || conns[0][0] != "label" {
		t.Fatalf("connection table mismatch: %v", conns)
	}
	comps, err := store.Table(runID, "components.csv")
	if err != nil {
		t.Fatal(err)
	}
	if comps[0][0] != "component" {
		t.Fatalf("component table mismatch: %v", comps)
	}
}

func TestListEmptyStore(t *testing.T) {
	store := NewStore(t.TempDir() + "/missing")
	metas, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 0 {
		t.Fatalf("expected no runs, got %d", len(metas))
	}
}

func TestCollectPlotData(t *testing.T) {
	nw := testNetwork(t)
	data := CollectPlotData("throttle", nw)

	if len(data.Connections) != 2 {
		t.Fatalf("got %d connections, want 2", len(data.Connections))
	}
	if data.Connections[0].Label != "feed" {
		t.Fatalf("unexpected first connection %q", data.Connections[0].Label)
	}

	var buf bytes.Buffer
	if err := data.WriteJSON(&buf); err != nil {
		t.Fatal(err)
	}
	var back PlotData
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatal(err)
	}
	if back.Connections[1].P != 4e5 {
		t.Fatalf("pressure lost in export: %g", back.Connections[1].P)
	}
}

func TestConvergencePlot(t *testing.T) {
	out := ConvergencePlot([]float64{1, 1e-2, 1e-4}, 5)
	if !strings.Contains(out, "log10 residual") {
		t.Fatalf("missing caption in plot:\n%s", out)
	}
	if ConvergencePlot(nil, 5) != "no convergence data" {
		t.Fatal("empty input not handled")
	}
}
