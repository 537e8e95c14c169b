package component_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/fmisim/internal/component"
	"github.com/san-kum/fmisim/internal/event"
	"github.com/san-kum/fmisim/internal/fmi"
)

// latch has two indicators read from the states. With cascade set,
// latching l0 mirrors the second indicator.
type latch struct {
	cascade bool
	chatter bool
	quit    bool
	period  float64
	ticks   int
}

func (m *latch) Describe() fmi.Description {
	return fmi.Description{
		Name: "latch", NumStates: 2, NumIndicators: 2,
		Start:    fmi.State{1, -1},
		Discrete: map[string]float64{"l0": 0, "l1": 0, "gain": 1, "flip": 0},
	}
}

func (m *latch) Derivatives(t float64, x fmi.State, d fmi.DiscreteView, dx fmi.State) {
	dx[0] = -d.Real("gain")
	dx[1] = 0
}

func (m *latch) Indicators(t float64, x fmi.State, d fmi.DiscreteView, z []float64) {
	z[0], z[1] = x[0], x[1]
	if m.cascade && d.Bool("l0") {
		z[1] = -x[1]
	}
	if m.chatter && d.Bool("flip") {
		z[0] = -z[0]
	}
}

func (m *latch) Update(ev *fmi.EventContext) error {
	if m.quit && ev.Initial {
		ev.Terminate("refused to start")
		return nil
	}
	if ev.TimeEvent {
		m.ticks++
	}
	if m.chatter && ev.Iteration > 0 && !ev.Initial {
		return ev.Discrete.SetBool("flip", !ev.Discrete.Bool("flip"))
	}
	if _, ok := ev.Crossed(0); ok {
		if err := ev.Discrete.SetBool("l0", true); err != nil {
			return err
		}
	}
	if _, ok := ev.Crossed(1); ok {
		return ev.Discrete.SetBool("l1", true)
	}
	return nil
}

func (m *latch) NextTimeEvent(t float64, d fmi.DiscreteView) (float64, bool) {
	if m.period <= 0 {
		return 0, false
	}
	return float64(m.ticks+1) * m.period, true
}

type logRecord struct {
	Severity fmi.Status
	Category string
	Instance string
	Message  string
}

func initialized(m fmi.Model, opts ...component.Option) *component.Component {
	c, err := component.New(m, "inst", opts...)
	Expect(err).NotTo(HaveOccurred())
	Expect(c.EnterInitializationMode()).To(Succeed())
	Expect(c.ExitInitializationMode()).To(Succeed())
	Expect(c.Mode()).To(Equal(fmi.ContinuousTimeMode))
	return c
}

var _ = Describe("Component", func() {
	var (
		model *latch
		comp  *component.Component
		logs  []logRecord
	)

	BeforeEach(func() {
		logs = nil
		model = &latch{}
		comp = initialized(model, component.WithLogger(fmi.LoggerFunc(func(sev fmi.Status, cat, inst, msg string) {
			logs = append(logs, logRecord{sev, cat, inst, msg})
		})))
	})

	Describe("lifecycle", func() {
		It("rejects event mode before initialization", func() {
			c, err := component.New(&latch{}, "fresh")
			Expect(err).NotTo(HaveOccurred())
			err = c.EnterEventMode()
			Expect(err).To(MatchError(fmi.ErrModeSequence))
			Expect(fmi.KindOf(err)).To(Equal(fmi.KindModeSequenceViolation))
			Expect(c.Mode()).To(Equal(fmi.Instantiated))

			Expect(c.EnterInitializationMode()).To(Succeed())
			Expect(c.EnterEventMode()).To(MatchError(fmi.ErrModeSequence))
			Expect(c.Mode()).To(Equal(fmi.InitializationMode))
		})

		It("leaves a terminated handle untouched on EnterEventMode", func() {
			Expect(comp.Terminate()).To(Succeed())
			before := comp.DiscreteSnapshot()
			states := comp.States()
			phase := comp.Phase()

			err := comp.EnterEventMode()
			Expect(err).To(MatchError(fmi.ErrModeSequence))
			Expect(fmi.StatusOf(err)).To(Equal(fmi.StatusError))
			Expect(comp.Mode()).To(Equal(fmi.Terminated))
			Expect(comp.DiscreteSnapshot()).To(Equal(before))
			Expect(comp.States()).To(Equal(states))
			Expect(comp.Phase()).To(Equal(phase))
		})

		It("wraps failures in a CallError", func() {
			Expect(comp.Terminate()).To(Succeed())
			err := comp.EnterEventMode()
			var callErr *fmi.CallError
			Expect(err).To(BeAssignableToTypeOf(callErr))
			callErr = err.(*fmi.CallError)
			Expect(callErr.Op).To(Equal("EnterEventMode"))
			Expect(callErr.Instance).To(Equal("inst"))
			Expect(callErr.Mode).To(Equal(fmi.Terminated))
		})

		It("keeps a termination request from initialization until reset", func() {
			_, stop := comp.TerminateRequested()
			Expect(stop).To(BeFalse())

			c := initialized(&latch{quit: true})
			reason, stop := c.TerminateRequested()
			Expect(stop).To(BeTrue())
			Expect(reason).To(Equal("refused to start"))

			Expect(c.Reset()).To(Succeed())
			_, stop = c.TerminateRequested()
			Expect(stop).To(BeFalse())
		})

		It("resets to start values", func() {
			Expect(comp.SetContinuousStates([]float64{-0.5, -1})).To(Succeed())
			Expect(comp.CompletedIntegratorStep()).To(BeTrue())
			Expect(comp.EnterEventMode()).To(Succeed())
			_, err := comp.UpdateDiscreteStates()
			Expect(err).NotTo(HaveOccurred())
			Expect(comp.Discrete().Bool("l0")).To(BeTrue())

			Expect(comp.Reset()).To(Succeed())
			Expect(comp.Mode()).To(Equal(fmi.Instantiated))
			Expect(comp.Discrete().Bool("l0")).To(BeFalse())
			Expect(comp.States()).To(Equal(fmi.State{1, -1}))
			Expect(comp.Episodes()).To(Equal(0))
		})

		It("reports step completion to the host", func() {
			var finished []string
			c := initialized(&latch{}, component.WithCallbacks(fmi.Callbacks{
				StepFinished: func(instance string, status fmi.Status) { finished = append(finished, instance+":"+status.String()) },
			}))
			_, err := c.CompletedIntegratorStep()
			Expect(err).NotTo(HaveOccurred())
			Expect(finished).To(Equal([]string{"inst:ok"}))
		})

		It("logs mode transitions with the instance name", func() {
			Expect(logs).NotTo(BeEmpty())
			for _, r := range logs {
				Expect(r.Instance).To(Equal("inst"))
			}
			Expect(logs).To(ContainElement(HaveField("Category", fmi.LogModes)))
		})
	})

	Describe("discrete variables", func() {
		It("are locked during continuous integration", func() {
			err := comp.SetReal("gain", 2)
			Expect(err).To(MatchError(fmi.ErrModeSequence))
			Expect(comp.Discrete().Real("gain")).To(Equal(1.0))
		})

		It("may change in event mode", func() {
			Expect(comp.EnterEventMode()).To(Succeed())
			Expect(comp.SetReal("gain", 2)).To(Succeed())
			Expect(comp.SetReal("unknown", 2)).To(MatchError(fmi.ErrUnknownVariable))
		})

		It("accepts start overrides at instantiation", func() {
			c, err := component.New(&latch{}, "x", component.WithDiscrete(map[string]float64{"gain": 3}))
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Discrete().Real("gain")).To(Equal(3.0))

			_, err = component.New(&latch{}, "x", component.WithDiscrete(map[string]float64{"nope": 3}))
			Expect(err).To(MatchError(fmi.ErrUnknownVariable))
		})
	})

	Describe("GetEventIndicators", func() {
		It("returns the same vector in event mode as in continuous time", func() {
			Expect(comp.SetContinuousStates([]float64{0.3, -2})).To(Succeed())
			ct := make([]float64, 2)
			Expect(comp.GetEventIndicators(ct)).To(Succeed())

			Expect(comp.EnterEventMode()).To(Succeed())
			em := make([]float64, 2)
			Expect(comp.GetEventIndicators(em)).To(Succeed())
			Expect(em).To(Equal(ct))
		})

		It("rejects every wrong buffer length without writing", func() {
			for _, n := range []int{0, 1, 3, 16} {
				buf := make([]float64, n)
				for i := range buf {
					buf[i] = 7
				}
				err := comp.GetEventIndicators(buf)
				Expect(err).To(MatchError(fmi.ErrInvalidLength))
				Expect(fmi.KindOf(err)).To(Equal(fmi.KindInvalidLength))
				for _, v := range buf {
					Expect(v).To(Equal(7.0))
				}
			}
		})
	})

	Describe("event iteration", func() {
		It("converges after one iteration for a single crossing", func() {
			Expect(comp.SetContinuousStates([]float64{-0.5, -1})).To(Succeed())
			enter, err := comp.CompletedIntegratorStep()
			Expect(err).NotTo(HaveOccurred())
			Expect(enter).To(BeTrue())

			Expect(comp.EnterEventMode()).To(Succeed())
			info, err := comp.UpdateDiscreteStates()
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Iterations).To(Equal(1))
			Expect(info.Indicators).To(Equal([]float64{-0.5, -1.0}))
			Expect(comp.Phase()).To(Equal(event.Converged))

			Expect(comp.LeaveEventMode()).To(Succeed())
			Expect(comp.Mode()).To(Equal(fmi.ContinuousTimeMode))
			Expect(comp.Accepted()).To(Equal([]float64{-0.5, -1.0}))
		})

		It("iterates twice for a cascading trigger", func() {
			c := initialized(&latch{cascade: true})
			Expect(c.SetContinuousStates([]float64{-0.5, 1})).To(Succeed())
			Expect(c.CompletedIntegratorStep()).To(BeTrue())
			Expect(c.EnterEventMode()).To(Succeed())

			info, err := c.UpdateDiscreteStates()
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Iterations).To(Equal(2))
			Expect(c.Discrete().Bool("l1")).To(BeTrue())
			Expect(c.LeaveEventMode()).To(Succeed())
		})

		It("converges in one iteration when nothing changes", func() {
			Expect(comp.EnterEventMode()).To(Succeed())
			info, err := comp.UpdateDiscreteStates()
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Iterations).To(Equal(1))

			info, err = comp.UpdateDiscreteStates()
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Iterations).To(Equal(1))
		})

		It("does not report a step event for unchanged signs", func() {
			Expect(comp.SetContinuousStates([]float64{1e-15, -1e-15})).To(Succeed())
			Expect(comp.CompletedIntegratorStep()).To(BeFalse())
		})

		It("refuses to leave event mode before convergence", func() {
			Expect(comp.EnterEventMode()).To(Succeed())
			Expect(comp.LeaveEventMode()).To(MatchError(fmi.ErrModeSequence))
			Expect(comp.Mode()).To(Equal(fmi.EventMode))
		})

		It("starts a new round when event mode is re-entered", func() {
			Expect(comp.EnterEventMode()).To(Succeed())
			_, err := comp.UpdateDiscreteStates()
			Expect(err).NotTo(HaveOccurred())
			Expect(comp.EnterEventMode()).To(Succeed())
			Expect(comp.Phase()).To(Equal(event.Idle))
			Expect(comp.LeaveEventMode()).To(MatchError(fmi.ErrModeSequence))
		})

		It("surfaces a non-convergent chain as fatal", func() {
			c := initialized(&latch{chatter: true}, component.WithMaxEventIterations(4))
			Expect(c.EnterEventMode()).To(Succeed())

			_, err := c.UpdateDiscreteStates()
			Expect(err).To(MatchError(fmi.ErrNonConvergent))
			Expect(fmi.StatusOf(err)).To(Equal(fmi.StatusFatal))
			Expect(c.Phase()).To(Equal(event.Failed))
			Expect(c.LeaveEventMode()).To(MatchError(fmi.ErrModeSequence))
			Expect(c.Terminate()).To(Succeed())
		})
	})

	Describe("time events", func() {
		It("schedules and reports time events", func() {
			m := &latch{period: 0.5}
			c := initialized(m)
			next, ok := c.NextTimeEvent()
			Expect(ok).To(BeTrue())
			Expect(next).To(Equal(0.5))

			Expect(c.SetTime(0.25)).To(Succeed())
			Expect(c.CompletedIntegratorStep()).To(BeFalse())

			Expect(c.SetTime(0.5)).To(Succeed())
			Expect(c.CompletedIntegratorStep()).To(BeTrue())
			Expect(c.EnterEventMode()).To(Succeed())
			info, err := c.UpdateDiscreteStates()
			Expect(err).NotTo(HaveOccurred())
			Expect(m.ticks).To(Equal(1))
			Expect(info.NextEventTimeDefined).To(BeTrue())
			Expect(info.NextEventTime).To(Equal(1.0))
		})
	})
})
