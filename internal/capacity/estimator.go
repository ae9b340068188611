// Package capacity sizes the culled-objects buffer from counter values read
// back asynchronously from the device.
//
// Each frame the estimator polls in-flight readbacks, latches the newest
// completed sample, and schedules a new copy of the counter into a free ring
// slot. Until the first sample lands it falls back to a heuristic and flags
// the estimate as not ready.
package capacity

import (
	"encoding/binary"

	"github.com/Faultbox/surface-atlas/internal/gpu"
)

// SlotState is the lifecycle of one readback slot.
type SlotState int

const (
	SlotIdle SlotState = iota
	SlotPending
	SlotReady
	SlotConsumed
)

func (s SlotState) String() string {
	switch s {
	case SlotIdle:
		return "idle"
	case SlotPending:
		return "pending"
	case SlotReady:
		return "ready"
	case SlotConsumed:
		return "consumed"
	}
	return "unknown"
}

const (
	// CounterBytes is the size of the counter read from the chunk buffer.
	CounterBytes = 4
	// Float4Bytes converts a counter measured in float4 elements to bytes.
	Float4Bytes = 16
	// Alignment of reported capacities.
	Alignment = 4096
)

// Options configures an Estimator.
type Options struct {
	// Slots is the size of the readback ring.
	Slots int
	// Latency is the number of frames a slot stays reserved after issue.
	Latency uint64
	// Timeout drops a pending readback that never completes, in frames.
	Timeout uint64
	// FallbackScale multiplies the fallback size when no sample exists.
	FallbackScale float32
}

// DefaultOptions mirrors a three-frame device queue.
func DefaultOptions() Options {
	return Options{
		Slots:         4,
		Latency:       3,
		Timeout:       64,
		FallbackScale: 1.3,
	}
}

type slot struct {
	state    SlotState
	frame    uint64
	readback gpu.Readback
	value    uint32
}

// Estimate is the capacity to use for the current frame.
type Estimate struct {
	Bytes int
	// Sample is the latched counter value in float4 elements, zero if none.
	Sample uint32
	// NotReady is set while no completed sample exists.
	NotReady bool
}

// Estimator tracks counter readbacks. It is not safe for concurrent use.
type Estimator struct {
	dev    gpu.Device
	opts   Options
	slots  []slot
	latest uint32
	issued  uint64
	dropped uint64
}

// New creates an estimator reading from dev.
func New(dev gpu.Device, opts Options) *Estimator {
	def := DefaultOptions()
	if opts.Slots <= 0 {
		opts.Slots = def.Slots
	}
	if opts.Timeout == 0 {
		opts.Timeout = def.Timeout
	}
	if opts.FallbackScale <= 0 {
		opts.FallbackScale = def.FallbackScale
	}
	return &Estimator{
		dev:   dev,
		opts:  opts,
		slots: make([]slot, opts.Slots),
	}
}

// Reset forgets every sample and releases in-flight readbacks.
func (e *Estimator) Reset() {
	for i := range e.slots {
		e.drop(&e.slots[i])
	}
	e.latest = 0
}

// drop returns s to idle, releasing a readback that is still in flight.
func (e *Estimator) drop(s *slot) {
	if s.readback != nil {
		s.readback.Release()
		e.dropped++
	}
	*s = slot{}
}

// Update polls completed readbacks, schedules a copy of the counter at
// offset 0 of counter, and returns the capacity for this frame.
// fallbackBytes is used when no sample has completed yet.
func (e *Estimator) Update(frame uint64, counter gpu.Buffer, fallbackBytes int) Estimate {
	e.collect(frame)
	e.schedule(frame, counter)
	return e.estimate(fallbackBytes)
}

func (e *Estimator) collect(frame uint64) {
	newest := -1
	for i := range e.slots {
		s := &e.slots[i]
		if s.state == SlotPending {
			if data, ok := s.readback.Poll(); ok && len(data) >= CounterBytes {
				s.value = binary.LittleEndian.Uint32(data)
				s.state = SlotReady
				s.readback.Release()
				s.readback = nil
			} else if frame-s.frame > e.opts.Timeout {
				e.drop(s)
				continue
			}
		}
		if s.state == SlotReady && (newest < 0 || s.frame > e.slots[newest].frame) {
			newest = i
		}
	}

	for i := range e.slots {
		s := &e.slots[i]
		if s.state != SlotReady {
			continue
		}
		if i == newest && s.value > 0 {
			e.latest = s.value
		}
		s.state = SlotConsumed
	}
}

func (e *Estimator) schedule(frame uint64, counter gpu.Buffer) {
	if counter == nil {
		return
	}
	for i := range e.slots {
		s := &e.slots[i]
		reusable := s.state == SlotIdle ||
			(s.state == SlotConsumed && frame-s.frame > e.opts.Latency)
		if !reusable {
			continue
		}
		rb, err := e.dev.Readback(counter, 0, CounterBytes)
		if err != nil {
			e.dropped++
			return
		}
		*s = slot{state: SlotPending, frame: frame, readback: rb}
		e.issued++
		return
	}
}

func (e *Estimator) estimate(fallbackBytes int) Estimate {
	if e.latest == 0 {
		return Estimate{
			Bytes:    AlignUp(int(float32(fallbackBytes) * e.opts.FallbackScale)),
			NotReady: true,
		}
	}
	return Estimate{
		Bytes:  AlignUp(int(e.latest) * Float4Bytes),
		Sample: e.latest,
	}
}

// Latest returns the latched counter sample in float4 elements.
func (e *Estimator) Latest() uint32 { return e.latest }

// Slots returns the state of every ring slot.
func (e *Estimator) Slots() []SlotState {
	states := make([]SlotState, len(e.slots))
	for i, s := range e.slots {
		states[i] = s.state
	}
	return states
}

// Stats returns the number of readbacks issued and the number that failed
// to issue, timed out or were abandoned by Reset.
func (e *Estimator) Stats() (issued, dropped uint64) {
	return e.issued, e.dropped
}

// AlignUp rounds n up to a multiple of Alignment, with a minimum of one page.
func AlignUp(n int) int {
	if n <= 0 {
		return Alignment
	}
	return (n + Alignment - 1) / Alignment * Alignment
}
