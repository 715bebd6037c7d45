package netw_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skanders/thermoflow/internal/comps"
	"github.com/skanders/thermoflow/internal/compute"
	"github.com/skanders/thermoflow/internal/netw"
)

func quietOptions() netw.SolveOptions {
	opts := netw.DefaultSolveOptions()
	opts.IterInfo = false
	return opts
}

var _ = Describe("Solve", func() {
	Describe("a throttled water stream", func() {
		var (
			nw     *netw.Network
			c1, c2 *netw.Connection
		)

		BeforeEach(func() {
			var err error
			nw, err = netw.New([]string{"water"})
			Expect(err).NotTo(HaveOccurred())

			src := comps.NewSource("feed")
			vl := comps.NewValve("throttle")
			snk := comps.NewSink("drain")
			vl.Pr.Specify(0.8)

			c1 = netw.NewConnection(src, "out1", vl, "in1")
			c2 = netw.NewConnection(vl, "out1", snk, "in1")
			c1.SetM(1)
			c1.SetP(5)
			c1.SetT(25)
			c1.SetFluid(map[string]float64{"water": 1})
			Expect(nw.AddConns(c1, c2)).To(Succeed())
		})

		It("converges and drops the pressure at constant enthalpy", func() {
			Expect(nw.Solve("design", quietOptions())).To(Succeed())
			Expect(nw.Report.Converged).To(BeTrue())
			// the linear solve runs on the package-wide backend selection
			Expect(nw.Report.Backend).To(Equal(compute.GetBackend().Name()))

			Expect(c2.P.SI).To(BeNumerically("~", 4e5, 1))
			Expect(c2.H.SI).To(BeNumerically("~", c1.H.SI, 1))
			Expect(c2.M.SI).To(BeNumerically("~", 1, 1e-6))
		})

		It("reports results in display units", func() {
			Expect(nw.Solve("design", quietOptions())).To(Succeed())
			Expect(c2.P.Val).To(BeNumerically("~", 4, 1e-5))
			Expect(c1.T.Val).To(BeNumerically("~", 25, 1e-3))
		})
	})

	Describe("an air turbine", func() {
		var (
			nw     *netw.Network
			tb     *comps.Turbine
			c1, c2 *netw.Connection
		)

		BeforeEach(func() {
			var err error
			nw, err = netw.New([]string{"air"})
			Expect(err).NotTo(HaveOccurred())

			src := comps.NewSource("intake")
			tb = comps.NewTurbine("expander")
			snk := comps.NewSink("exhaust")
			tb.EtaS.Specify(0.9)

			c1 = netw.NewConnection(src, "out1", tb, "in1")
			c2 = netw.NewConnection(tb, "out1", snk, "in1")
			c1.SetM(10)
			c1.SetP(10)
			c1.SetT(500)
			c1.SetFluid(map[string]float64{"air": 1})
			c2.SetP(1)
			Expect(nw.AddConns(c1, c2)).To(Succeed())
		})

		It("extracts power and cools the stream", func() {
			Expect(nw.Solve("design", quietOptions())).To(Succeed())

			Expect(c2.H.SI).To(BeNumerically("<", c1.H.SI))
			Expect(c2.T.SI).To(BeNumerically("<", c1.T.SI))
			Expect(tb.EnergyFlow()).To(BeNumerically("<", 0))
			// result parameters are filled from the converged state
			Expect(tb.ResultParameters()["eta_s"]).To(BeNumerically("~", 0.9, 1e-3))
			Expect(tb.ResultParameters()["pr"]).To(BeNumerically("~", 0.1, 1e-6))
		})

		It("finds the mass flow from a bus power specification", func() {
			c1.M.Set = false

			bus := netw.NewBus("grid")
			bus.SetP(-2e6)
			bus.Add(tb, nil, "component")
			Expect(nw.AddBusses(bus)).To(Succeed())

			Expect(nw.Solve("design", quietOptions())).To(Succeed())
			Expect(bus.Total()).To(BeNumerically("~", -2e6, 1e2))
			Expect(c1.M.SI).To(BeNumerically(">", 0))
		})
	})

	Describe("a heated water stream", func() {
		It("matches the specified duty", func() {
			nw, err := netw.New([]string{"water"})
			Expect(err).NotTo(HaveOccurred())

			src := comps.NewSource("feed")
			ht := comps.NewSimpleHeatExchanger("heater")
			snk := comps.NewSink("drain")
			ht.Q.Specify(100e3)
			ht.Pr.Specify(1)

			c1 := netw.NewConnection(src, "out1", ht, "in1")
			c2 := netw.NewConnection(ht, "out1", snk, "in1")
			c1.SetM(1)
			c1.SetP(1)
			c1.SetT(25)
			c1.SetFluid(map[string]float64{"water": 1})
			Expect(nw.AddConns(c1, c2)).To(Succeed())

			Expect(nw.Solve("design", quietOptions())).To(Succeed())
			Expect(c2.H.SI - c1.H.SI).To(BeNumerically("~", 100e3, 10))
			// roughly Q / (m cp) for liquid water
			Expect(c2.T.SI - c1.T.SI).To(BeNumerically("~", 23.9, 0.5))
		})
	})

	Describe("a mixing node", func() {
		It("balances mass, composition and energy", func() {
			nw, err := netw.New([]string{"air", "CH4"})
			Expect(err).NotTo(HaveOccurred())

			s1 := comps.NewSource("air supply")
			s2 := comps.NewSource("fuel supply")
			mg := comps.NewMerge("mixer", 2)
			snk := comps.NewSink("burner")

			c1 := netw.NewConnection(s1, "out1", mg, "in1")
			c2 := netw.NewConnection(s2, "out1", mg, "in2")
			c3 := netw.NewConnection(mg, "out1", snk, "in1")
			c1.SetM(5)
			c1.SetP(1)
			c1.SetT(25)
			c1.SetFluid(map[string]float64{"air": 1, "CH4": 0})
			c2.SetM(0.25)
			c2.SetT(25)
			c2.SetFluid(map[string]float64{"air": 0, "CH4": 1})
			Expect(nw.AddConns(c1, c2, c3)).To(Succeed())

			opts := quietOptions()
			opts.MaxIter = 80
			Expect(nw.Solve("design", opts)).To(Succeed())

			Expect(c3.M.SI).To(BeNumerically("~", 5.25, 1e-4))
			Expect(c3.Fluid.Val["CH4"]).To(BeNumerically("~", 0.25/5.25, 1e-3))
			Expect(c2.P.SI).To(BeNumerically("~", c3.P.SI, 1))
		})
	})

	Describe("failure modes", func() {
		It("reports a singular jacobian for a linearly dependent system", func() {
			nw, err := netw.New([]string{"water"})
			Expect(err).NotTo(HaveOccurred())

			src := comps.NewSource("feed")
			vl := comps.NewValve("throttle")
			snk := comps.NewSink("drain")

			c1 := netw.NewConnection(src, "out1", vl, "in1")
			c2 := netw.NewConnection(vl, "out1", snk, "in1")
			// m referenced to itself through the valve leaves the system
			// linearly dependent
			c1.SetP(5)
			c1.SetT(25)
			c1.SetFluid(map[string]float64{"water": 1})
			Expect(c2.SetRef("m", c1, 1, 0)).To(Succeed())
			c2.SetP(4)
			Expect(nw.AddConns(c1, c2)).To(Succeed())

			err = nw.Solve("design", quietOptions())
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, netw.ErrSingularJacobian)).To(BeTrue())

			var solveErr *netw.SolveError
			Expect(errors.As(err, &solveErr)).To(BeTrue())
			Expect(nw.Report.SingularAt).To(BeNumerically(">=", 0))
		})
	})
})
