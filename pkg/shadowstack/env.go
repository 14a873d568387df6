package shadowstack

import (
	"fmt"
	"strings"
)

// Env is the environment link of one execution context. It holds the top
// of that context's shadow stack. An Env has exactly one writer, the
// context that owns it, and is not safe for concurrent use.
type Env struct {
	arena *Arena
	top   FrameRef
}

// NewEnv creates an environment link with its own record storage
func NewEnv() *Env {
	return &Env{arena: NewArena()}
}

// Arena returns the storage records of this context are allocated from
func (e *Env) Arena() *Arena {
	return e.arena
}

// Top returns the most recently pushed, not yet popped record
func (e *Env) Top() FrameRef {
	return e.top
}

// Push links ref on top of the stack. The record's previous field
// captures the old top before ref replaces it.
func (e *Env) Push(ref FrameRef) error {
	f, err := e.arena.Frame(ref)
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}
	f.Previous = e.top
	e.top = ref
	return nil
}

// Pop unlinks the top record, restoring the caller's record as top.
func (e *Env) Pop() error {
	if e.top.IsNil() {
		return fmt.Errorf("pop: %w", ErrEmptyStack)
	}
	f, err := e.arena.Frame(e.top)
	if err != nil {
		return fmt.Errorf("pop: %w", err)
	}
	e.top = f.Previous
	return nil
}

// Trace walks the stack from the top record to the outermost one.
func (e *Env) Trace() ([]Frame, error) {
	var frames []Frame
	for ref := e.top; !ref.IsNil(); {
		f, err := e.arena.Frame(ref)
		if err != nil {
			return frames, err
		}
		frames = append(frames, *f)
		// generations rule out cycles among live records, this bounds
		// the walk if the chain is ever corrupted
		if len(frames) > len(e.arena.slots) {
			return frames, fmt.Errorf("shadow stack cycle at %s", ref)
		}
		ref = f.Previous
	}
	return frames, nil
}

// RawFrame is one record as an external stack walker reads it from
// target memory.
type RawFrame struct {
	Address uint64
	Data    []byte
}

// Snapshot copies the records reachable from the top in their binary
// layout, innermost first.
func (e *Env) Snapshot() ([]RawFrame, error) {
	var raw []RawFrame
	for ref := e.top; !ref.IsNil(); {
		f, err := e.arena.Frame(ref)
		if err != nil {
			return raw, err
		}
		data, err := e.arena.Record(ref)
		if err != nil {
			return raw, err
		}
		raw = append(raw, RawFrame{Address: e.arena.Address(ref), Data: data})
		if len(raw) > len(e.arena.slots) {
			return raw, fmt.Errorf("shadow stack cycle at %s", ref)
		}
		ref = f.Previous
	}
	return raw, nil
}

// Depth returns the number of records reachable from the top
func (e *Env) Depth() int {
	frames, _ := e.Trace()
	return len(frames)
}

// Symbolizer maps a function address to a printable name.
type Symbolizer func(addr uint64) string

// StackElement is one line of a reconstructed stack trace.
type StackElement struct {
	Function string
	Address  uint64
	Line     int32
}

func (s StackElement) String() string {
	line := "unknown line"
	if s.Line != UnknownLine {
		line = fmt.Sprintf("line %d", s.Line)
	}
	return fmt.Sprintf("at %s (%#x, %s)", s.Function, s.Address, line)
}

// StackTrace is a source-level stack trace, innermost call first.
type StackTrace []StackElement

func (t StackTrace) String() string {
	var b strings.Builder
	for _, e := range t {
		b.WriteString("\t" + e.String() + "\n")
	}
	return b.String()
}

// StackTrace reconstructs a source-level trace from the shadow stack.
func (e *Env) StackTrace(sym Symbolizer) (StackTrace, error) {
	frames, err := e.Trace()
	trace := make(StackTrace, len(frames))
	for i, f := range frames {
		name := fmt.Sprintf("%#x", f.Function)
		if sym != nil {
			name = sym(f.Function)
		}
		trace[i] = StackElement{Function: name, Address: f.Function, Line: f.Line}
	}
	return trace, err
}
