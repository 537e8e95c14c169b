package fmi

import (
	"fmt"
	"sort"
)

// DiscreteView is the read-only side of a discrete context.
type DiscreteView interface {
	Real(name string) float64
	Bool(name string) bool
	Int(name string) int
}

// Discrete holds the discrete variables and parameters of one instance.
// The set of names is fixed at construction.
type Discrete struct {
	values   map[string]float64
	writable bool
}

func NewDiscrete(initial map[string]float64) *Discrete {
	d := &Discrete{values: make(map[string]float64, len(initial)), writable: true}
	for k, v := range initial {
		d.values[k] = v
	}
	return d
}

func (d *Discrete) Real(name string) float64 { return d.values[name] }
func (d *Discrete) Bool(name string) bool    { return d.values[name] != 0 }
func (d *Discrete) Int(name string) int      { return int(d.values[name]) }

func (d *Discrete) Has(name string) bool {
	_, ok := d.values[name]
	return ok
}

func (d *Discrete) Writable() bool { return d.writable }

// SetWritable is called by the component on mode transitions.
func (d *Discrete) SetWritable(w bool) { d.writable = w }

func (d *Discrete) Set(name string, v float64) error {
	if !d.writable {
		return fmt.Errorf("%w: discrete %q is locked during continuous integration", ErrModeSequence, name)
	}
	if _, ok := d.values[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownVariable, name)
	}
	d.values[name] = v
	return nil
}

func (d *Discrete) SetBool(name string, b bool) error {
	if b {
		return d.Set(name, 1)
	}
	return d.Set(name, 0)
}

func (d *Discrete) SetInt(name string, n int) error {
	return d.Set(name, float64(n))
}

func (d *Discrete) Names() []string {
	names := make([]string, 0, len(d.values))
	for name := range d.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot copies the current values.
func (d *Discrete) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(d.values))
	for k, v := range d.values {
		out[k] = v
	}
	return out
}

// Restore overwrites every declared value present in snap, regardless of
// the lock. Used by reset.
func (d *Discrete) Restore(snap map[string]float64) {
	for k := range d.values {
		d.values[k] = snap[k]
	}
}
