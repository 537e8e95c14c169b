package event

import (
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/fmisim/internal/fmi"
)

// relayModel reads both indicators straight from the state. When cascade
// is set, closing relay r0 mirrors indicator 1.
type relayModel struct {
	cascade bool
	updates int
}

func (m *relayModel) Describe() fmi.Description {
	return fmi.Description{
		Name: "relay", NumStates: 2, NumIndicators: 2,
		Start:    fmi.State{1, -1},
		Discrete: map[string]float64{"r0": 0, "r1": 0},
	}
}

func (m *relayModel) Derivatives(t float64, x fmi.State, d fmi.DiscreteView, dx fmi.State) {
	dx[0], dx[1] = -1, 0
}

func (m *relayModel) Indicators(t float64, x fmi.State, d fmi.DiscreteView, z []float64) {
	z[0] = x[0]
	z[1] = x[1]
	if m.cascade && d.Bool("r0") {
		z[1] = -x[1]
	}
}

func (m *relayModel) Update(ev *fmi.EventContext) error {
	m.updates++
	if _, ok := ev.Crossed(0); ok {
		if err := ev.Discrete.SetBool("r0", true); err != nil {
			return err
		}
	}
	if _, ok := ev.Crossed(1); ok {
		return ev.Discrete.SetBool("r1", true)
	}
	return nil
}

// chatterModel flips its own indicator on every update.
type chatterModel struct{}

func (chatterModel) Describe() fmi.Description {
	return fmi.Description{Name: "chatter", NumStates: 0, NumIndicators: 1, Discrete: map[string]float64{"s": 0}}
}
func (chatterModel) Derivatives(float64, fmi.State, fmi.DiscreteView, fmi.State) {}
func (chatterModel) Indicators(t float64, x fmi.State, d fmi.DiscreteView, z []float64) {
	z[0] = 1
	if d.Bool("s") {
		z[0] = -1
	}
}
func (chatterModel) Update(ev *fmi.EventContext) error {
	return ev.Discrete.SetBool("s", !ev.Discrete.Bool("s"))
}

func newDispatcher(t *testing.T, m fmi.Model, maxIter int) (*Dispatcher, *fmi.Discrete) {
	t.Helper()
	desc := m.Describe()
	d, err := NewDispatcher(NewEvaluator(m, desc.NumIndicators), m, maxIter)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	return d, fmi.NewDiscrete(desc.Discrete)
}

func TestSignBoundary(t *testing.T) {
	g := NewWithT(t)
	eps := 1e-12

	g.Expect(Crossings([]float64{eps}, []float64{-eps})).To(Equal([]fmi.Crossing{{Index: 0, Direction: fmi.Falling}}))
	g.Expect(Crossings([]float64{-eps}, []float64{eps})).To(Equal([]fmi.Crossing{{Index: 0, Direction: fmi.Rising}}))
	g.Expect(Crossings([]float64{eps}, []float64{eps / 2})).To(BeEmpty())
	g.Expect(Crossings([]float64{0}, []float64{0})).To(BeEmpty())
	g.Expect(Crossings([]float64{1}, []float64{0})).To(HaveLen(1))
	g.Expect(SignsEqual([]float64{1, -2}, []float64{3, -4})).To(BeTrue())
	g.Expect(SignsEqual([]float64{1}, []float64{1, 2})).To(BeFalse())
}

func TestEvaluatorInvalidLength(t *testing.T) {
	g := NewWithT(t)
	m := &relayModel{}
	ev := NewEvaluator(m, 2)
	disc := fmi.NewDiscrete(m.Describe().Discrete)
	state := fmi.ContinuousState{X: fmi.State{1, -1}}

	for _, n := range []int{0, 1, 3, 8} {
		buf := make([]float64, n)
		for i := range buf {
			buf[i] = 42
		}
		err := ev.Evaluate(state, disc, buf)
		g.Expect(err).To(MatchError(fmi.ErrInvalidLength))
		for _, v := range buf {
			g.Expect(v).To(Equal(42.0))
		}
	}
}

func TestEvaluatorPure(t *testing.T) {
	g := NewWithT(t)
	m := &relayModel{cascade: true}
	ev := NewEvaluator(m, 2)
	disc := fmi.NewDiscrete(m.Describe().Discrete)
	state := fmi.ContinuousState{Time: 0.5, X: fmi.State{0.25, 2}}
	before := disc.Snapshot()

	a := make([]float64, 2)
	b := make([]float64, 2)
	g.Expect(ev.Evaluate(state, disc, a)).To(Succeed())
	g.Expect(ev.Evaluate(state, disc, b)).To(Succeed())
	g.Expect(a).To(Equal(b))
	g.Expect(ev.Vector(state, disc)).To(Equal(a))
	g.Expect(disc.Snapshot()).To(Equal(before))
	g.Expect(state.X).To(Equal(fmi.State{0.25, 2}))
}

func TestDispatcherSingleCrossing(t *testing.T) {
	g := NewWithT(t)
	m := &relayModel{}
	d, disc := newDispatcher(t, m, DefaultMaxIterations)

	ep, err := d.Run(Trigger{
		State:    fmi.ContinuousState{Time: 1, X: fmi.State{-0.5, -1}},
		Previous: []float64{1.0, -1.0},
		Current:  []float64{-0.5, -1.0},
	}, disc)

	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(ep.Iterations).To(Equal(1))
	g.Expect(ep.Indicators).To(Equal([]float64{-0.5, -1.0}))
	g.Expect(ep.Crossings[0]).To(Equal([]fmi.Crossing{{Index: 0, Direction: fmi.Falling}}))
	g.Expect(disc.Bool("r0")).To(BeTrue())
	g.Expect(disc.Bool("r1")).To(BeFalse())
	g.Expect(d.Phase()).To(Equal(Converged))
	g.Expect(d.Trace()).To(Equal([]Phase{Idle, Updating, Evaluating, Converged}))
}

func TestDispatcherCascade(t *testing.T) {
	g := NewWithT(t)
	m := &relayModel{cascade: true}
	d, disc := newDispatcher(t, m, DefaultMaxIterations)

	ep, err := d.Run(Trigger{
		State:    fmi.ContinuousState{Time: 1, X: fmi.State{-0.5, 1}},
		Previous: []float64{1, 1},
		Current:  []float64{-0.5, 1},
	}, disc)

	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(ep.Iterations).To(Equal(2))
	g.Expect(ep.Crossings[1]).To(Equal([]fmi.Crossing{{Index: 1, Direction: fmi.Falling}}))
	g.Expect(disc.Bool("r1")).To(BeTrue())
	g.Expect(ep.Indicators).To(Equal([]float64{-0.5, -1}))
	g.Expect(d.Trace()).To(Equal([]Phase{Idle, Updating, Evaluating, Updating, Evaluating, Converged}))
}

func TestDispatcherIdempotent(t *testing.T) {
	g := NewWithT(t)
	m := &relayModel{cascade: true}
	d, disc := newDispatcher(t, m, DefaultMaxIterations)

	ep, err := d.Run(Trigger{
		State:     fmi.ContinuousState{X: fmi.State{1, -1}},
		Previous:  []float64{1, -1},
		Current:   []float64{1, -1},
		TimeEvent: true,
	}, disc)

	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(ep.Iterations).To(Equal(1))
	g.Expect(ep.Crossings[0]).To(BeEmpty())
	g.Expect(m.updates).To(Equal(1))
}

func TestDispatcherNonConvergent(t *testing.T) {
	g := NewWithT(t)
	d, disc := newDispatcher(t, chatterModel{}, 3)

	ep, err := d.Run(Trigger{Previous: []float64{1}, Current: []float64{1}}, disc)

	g.Expect(err).To(MatchError(fmi.ErrNonConvergent))
	g.Expect(fmi.StatusOf(err)).To(Equal(fmi.StatusFatal))
	g.Expect(ep.Iterations).To(Equal(3))
	g.Expect(d.Phase()).To(Equal(Failed))

	// A new episode restarts from Idle.
	d.Reset()
	g.Expect(d.Phase()).To(Equal(Idle))
}

func TestDispatcherRejectsBadTrigger(t *testing.T) {
	g := NewWithT(t)
	d, disc := newDispatcher(t, &relayModel{}, DefaultMaxIterations)

	_, err := d.Run(Trigger{Previous: []float64{1}, Current: []float64{1, 2}}, disc)
	g.Expect(err).To(MatchError(fmi.ErrInvalidLength))
}

func TestNewDispatcherBound(t *testing.T) {
	g := NewWithT(t)
	m := &relayModel{}
	_, err := NewDispatcher(NewEvaluator(m, 2), m, 0)
	g.Expect(err).To(HaveOccurred())
}
