package comps

import (
	"github.com/skanders/thermoflow/internal/netw"
)

// Source feeds mass flow into the network. It carries no equations; the
// outgoing connection holds all specifications.
type Source struct {
	base
}

// NewSource creates a source with one outlet "out1".
func NewSource(label string) *Source {
	return &Source{base{label: label}}
}

func (s *Source) TypeName() string  { return "source" }
func (s *Source) Inlets() []string  { return nil }
func (s *Source) Outlets() []string { return []string{"out1"} }

func (s *Source) Preprocess(*netw.Network) error { s.numEq = 0; return nil }
func (s *Source) Equations(*netw.System)         {}
func (s *Source) CalcParameters(*netw.Network)   {}

// Sink drains mass flow out of the network, the counterpart of Source.
type Sink struct {
	base
}

// NewSink creates a sink with one inlet "in1".
func NewSink(label string) *Sink {
	return &Sink{base{label: label}}
}

func (s *Sink) TypeName() string  { return "sink" }
func (s *Sink) Inlets() []string  { return []string{"in1"} }
func (s *Sink) Outlets() []string { return nil }

func (s *Sink) Preprocess(*netw.Network) error { s.numEq = 0; return nil }
func (s *Sink) Equations(*netw.System)         {}
func (s *Sink) CalcParameters(*netw.Network)   {}
