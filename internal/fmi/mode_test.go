package fmi

import (
	"errors"
	"testing"
)

func TestTrackerLifecycle(t *testing.T) {
	tr := NewTracker()
	steps := []Mode{InitializationMode, ContinuousTimeMode, EventMode, EventMode, ContinuousTimeMode, Terminated}
	for _, m := range steps {
		if err := tr.Transition(m); err != nil {
			t.Fatalf("transition to %s: %v", m, err)
		}
	}
	if tr.Mode() != Terminated {
		t.Errorf("expected terminated, got %s", tr.Mode())
	}
	if got := len(tr.History()); got != len(steps) {
		t.Errorf("expected %d history entries, got %d", len(steps), got)
	}
}

func TestTrackerIllegalTransitions(t *testing.T) {
	tests := []struct {
		name string
		from []Mode
		to   Mode
	}{
		{"event from instantiated", nil, EventMode},
		{"event from initialization", []Mode{InitializationMode}, EventMode},
		{"continuous from instantiated", nil, ContinuousTimeMode},
		{"event from terminated", []Mode{InitializationMode, Terminated}, EventMode},
		{"initialization twice", []Mode{InitializationMode}, InitializationMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker()
			for _, m := range tt.from {
				if err := tr.Transition(m); err != nil {
					t.Fatalf("setup: %v", err)
				}
			}
			before := tr.Mode()
			err := tr.Transition(tt.to)
			if !errors.Is(err, ErrModeSequence) {
				t.Fatalf("expected ErrModeSequence, got %v", err)
			}
			if tr.Mode() != before {
				t.Errorf("mode changed from %s to %s", before, tr.Mode())
			}
		})
	}
}

func TestTrackerReset(t *testing.T) {
	tr := NewTracker()
	_ = tr.Transition(InitializationMode)
	_ = tr.Transition(Terminated)
	tr.Reset()
	if tr.Mode() != Instantiated {
		t.Errorf("expected instantiated after reset, got %s", tr.Mode())
	}
	if len(tr.History()) != 0 {
		t.Error("expected empty history after reset")
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want Status
		kind Kind
	}{
		{nil, StatusOK, KindNone},
		{ErrModeSequence, StatusError, KindModeSequenceViolation},
		{&CallError{Op: "x", Wrapped: ErrInvalidLength}, StatusError, KindInvalidLength},
		{&CallError{Op: "x", Wrapped: ErrNonConvergent}, StatusFatal, KindNonConvergentEventChain},
		{errors.New("boom"), StatusError, KindOther},
	}
	for _, tt := range tests {
		if got := StatusOf(tt.err); got != tt.want {
			t.Errorf("StatusOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
		if got := KindOf(tt.err); got != tt.kind {
			t.Errorf("KindOf(%v) = %s, want %s", tt.err, got, tt.kind)
		}
	}
}

func TestDiscreteLock(t *testing.T) {
	d := NewDiscrete(map[string]float64{"heater": 0})
	if err := d.SetBool("heater", true); err != nil {
		t.Fatalf("set while writable: %v", err)
	}
	d.SetWritable(false)
	if err := d.Set("heater", 0); !errors.Is(err, ErrModeSequence) {
		t.Errorf("expected ErrModeSequence while locked, got %v", err)
	}
	if !d.Bool("heater") {
		t.Error("locked write must not change the value")
	}
	d.SetWritable(true)
	if err := d.Set("missing", 1); !errors.Is(err, ErrUnknownVariable) {
		t.Errorf("expected ErrUnknownVariable, got %v", err)
	}
}

func TestEventContextReinitCopies(t *testing.T) {
	x := State{1, 2}
	ev := NewEventContext(0, x, NewDiscrete(nil), nil, false, 1)
	if ev.Reinitialized() != nil {
		t.Fatal("expected no reinit before Reinit")
	}
	ev.Reinit(1, 5)
	if x[1] != 2 {
		t.Error("host state was written")
	}
	if got := ev.Reinitialized(); got[1] != 5 || got[0] != 1 {
		t.Errorf("unexpected reinit state %v", got)
	}
}
