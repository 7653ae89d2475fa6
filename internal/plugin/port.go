package plugin

import (
	"math"
	"sync/atomic"
)

// PortValue is the closed set of values a control port carries:
// FloatValue, IntValue or BoolValue.
type PortValue interface {
	isPortValue()
}

type FloatValue float32
type IntValue int
type BoolValue bool

func (FloatValue) isPortValue() {}
func (IntValue) isPortValue()   {}
func (BoolValue) isPortValue()  {}

// Float converts any port value to float32.
func Float(v PortValue) float32 {
	switch x := v.(type) {
	case FloatValue:
		return float32(x)
	case IntValue:
		return float32(x)
	case BoolValue:
		if x {
			return 1
		}
	}
	return 0
}

// Kind is the declared type of a port.
type Kind int

const (
	KindFloat Kind = iota
	KindInt
	KindBool
)

// Port is a named control value. Writes are single atomic stores, so any
// goroutine may set a port while the render path reads it.
type Port struct {
	Symbol  string
	Kind    Kind
	Default PortValue
	Min     float32
	Max     float32

	bits     atomic.Uint64
	onChange func(PortValue)
}

// FloatPort declares a float port clamped to [lo, hi].
func FloatPort(symbol string, def, lo, hi float32) *Port {
	p := &Port{Symbol: symbol, Kind: KindFloat, Default: FloatValue(def), Min: lo, Max: hi}
	p.store(FloatValue(def))
	return p
}

// IntPort declares an int port clamped to [lo, hi].
func IntPort(symbol string, def, lo, hi int) *Port {
	p := &Port{Symbol: symbol, Kind: KindInt, Default: IntValue(def), Min: float32(lo), Max: float32(hi)}
	p.store(IntValue(def))
	return p
}

// BoolPort declares a bool port.
func BoolPort(symbol string, def bool) *Port {
	p := &Port{Symbol: symbol, Kind: KindBool, Default: BoolValue(def), Max: 1}
	p.store(BoolValue(def))
	return p
}

// OnChange installs the callback that forwards accepted values to units.
// It runs on the caller's goroutine after the value is stored.
func (p *Port) OnChange(fn func(PortValue)) *Port {
	p.onChange = fn
	return p
}

// Set coerces v to the port's kind, clamps it and stores it.
func (p *Port) Set(v PortValue) {
	if v == nil {
		return
	}
	v = p.coerce(v)
	p.store(v)
	if p.onChange != nil {
		p.onChange(v)
	}
}

// Sync stores v like Set but does not notify. Used to mirror a value that
// was already applied elsewhere.
func (p *Port) Sync(v PortValue) {
	if v == nil {
		return
	}
	p.store(p.coerce(v))
}

// Value returns the current value.
func (p *Port) Value() PortValue {
	bits := p.bits.Load()
	switch p.Kind {
	case KindInt:
		return IntValue(int64(bits))
	case KindBool:
		return BoolValue(bits != 0)
	default:
		return FloatValue(math.Float32frombits(uint32(bits)))
	}
}

// Float returns the current value as float32.
func (p *Port) Float() float32 { return Float(p.Value()) }

// Reset restores the default.
func (p *Port) Reset() { p.Set(p.Default) }

func (p *Port) coerce(v PortValue) PortValue {
	switch p.Kind {
	case KindInt:
		var n int
		switch x := v.(type) {
		case IntValue:
			n = int(x)
		case FloatValue:
			n = int(math.Round(float64(x)))
		case BoolValue:
			if x {
				n = 1
			}
		}
		n = max(n, int(p.Min))
		n = min(n, int(p.Max))
		return IntValue(n)
	case KindBool:
		if b, ok := v.(BoolValue); ok {
			return b
		}
		return BoolValue(Float(v) != 0)
	default:
		f := Float(v)
		if f != f {
			f = p.Min
		}
		f = max(f, p.Min)
		f = min(f, p.Max)
		return FloatValue(f)
	}
}

func (p *Port) store(v PortValue) {
	switch x := v.(type) {
	case IntValue:
		p.bits.Store(uint64(int64(x)))
	case BoolValue:
		if x {
			p.bits.Store(1)
		} else {
			p.bits.Store(0)
		}
	case FloatValue:
		p.bits.Store(uint64(math.Float32bits(float32(x))))
	}
}
