package nn

import (
	"log"

	"github.com/openfluke/capsnet/pods"
)

// RoutingObserver is notified after each agreement update of a routing pass.
// Observers only read the event; they cannot change the routing result.
type RoutingObserver interface {
	OnIteration(event RoutingEvent)
}

// ObserverFunc adapts a plain function to RoutingObserver.
type ObserverFunc func(event RoutingEvent)

func (f ObserverFunc) OnIteration(event RoutingEvent) { f(event) }

// RoutingEvent describes the tentative consensus of one routing iteration.
type RoutingEvent struct {
	Iteration     int       `json:"iteration"`       // 1-based update index
	PeakCoupling  float32   `json:"peak_coupling"`   // mean over (b, p) of max_c coupling
	MaxCoupling   float32   `json:"max_coupling"`    // largest single coupling coefficient
	MeanUpperNorm float32   `json:"mean_upper_norm"` // mean length of the tentative upper capsules
	MaxUpperNorm  float32   `json:"max_upper_norm"`
	UpperNorms    []float32 `json:"upper_norms,omitempty"` // (batch × C) lengths, row-major
}

func newRoutingEvent(iteration int, cons Consensus) RoutingEvent {
	event := RoutingEvent{Iteration: iteration}
	if cons.Coupling.Rank() == 3 {
		if peaks, err := pods.ReduceRows(cons.Coupling.Data, cons.Coupling.Dim(-1), pods.ReduceMax); err == nil {
			event.PeakCoupling = Mean(peaks)
			event.MaxCoupling = Max(peaks)
		}
	}
	if norms, err := SafeNorm(cons.Upper, false); err == nil {
		event.UpperNorms = norms.Data
		event.MeanUpperNorm = Mean(norms.Data)
		event.MaxUpperNorm = Max(norms.Data)
	}
	return event
}

// ConsoleObserver logs every routing iteration.
type ConsoleObserver struct {
	Verbose bool // also log the individual capsule lengths
}

func (o *ConsoleObserver) OnIteration(event RoutingEvent) {
	log.Printf("[ROUTE] iter %d: coupling peak=%.4f max=%.4f |v| avg=%.4f max=%.4f",
		event.Iteration, event.PeakCoupling, event.MaxCoupling,
		event.MeanUpperNorm, event.MaxUpperNorm)

	if o.Verbose && len(event.UpperNorms) <= 64 {
		log.Printf("        |v|: %v", event.UpperNorms)
	}
}

// ChannelObserver forwards events to a buffered channel without blocking.
type ChannelObserver struct {
	Events chan RoutingEvent
}

func NewChannelObserver(bufferSize int) *ChannelObserver {
	return &ChannelObserver{
		Events: make(chan RoutingEvent, bufferSize),
	}
}

func (o *ChannelObserver) OnIteration(event RoutingEvent) {
	select {
	case o.Events <- event:
	default:
		// Channel full, drop event to avoid stalling the forward pass
	}
}
