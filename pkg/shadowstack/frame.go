package shadowstack

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrNilFrame     = errors.New("nil shadow frame")
	ErrStaleFrame   = errors.New("shadow frame outlived its activation")
	ErrEmptyStack   = errors.New("shadow stack is empty")
	ErrShortRecord  = errors.New("shadow frame record too short")
	ErrUnknownFrame = errors.New("address does not belong to the arena")
)

// FrameRef is a non-owning reference to a record in an Arena. The zero
// value is the null reference.
type FrameRef struct {
	index uint32 // slot index + 1
	gen   uint32
}

// Nil is the null frame reference
var Nil FrameRef

// IsNil reports whether the reference is null
func (r FrameRef) IsNil() bool {
	return r.index == 0
}

func (r FrameRef) String() string {
	if r.IsNil() {
		return "null"
	}
	return fmt.Sprintf("frame#%d.%d", r.index-1, r.gen)
}

// Frame is the decoded content of a shadow frame record.
type Frame struct {
	Previous FrameRef
	Function uint64
	Line     int32
}

type slot struct {
	frame Frame
	gen   uint32
	live  bool
}

// Arena owns the storage of shadow frame records. A record belongs to the
// activation that allocated it and is released when that activation ends;
// references to a released record fail with ErrStaleFrame. Slots are
// reused, so a stale reference never aliases a newer record.
type Arena struct {
	slots []slot
	free  []uint32
	base  uint64
}

// ArenaBase is the address of the first record slot.
const ArenaBase uint64 = 0x7f00_0000_0000

// NewArena creates an empty arena
func NewArena() *Arena {
	return &Arena{base: ArenaBase}
}

// Alloc reserves a record. Fields are left at their zero values, matching
// the uninitialized window between push and field initialization.
func (a *Arena) Alloc() FrameRef {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot{})
		idx = uint32(len(a.slots) - 1)
	}

	s := &a.slots[idx]
	s.gen++
	s.live = true
	s.frame = Frame{}

	return FrameRef{index: idx + 1, gen: s.gen}
}

// Release ends the owning activation's claim on the record.
func (a *Arena) Release(ref FrameRef) error {
	s, err := a.slot(ref)
	if err != nil {
		return err
	}
	s.live = false
	a.free = append(a.free, ref.index-1)
	return nil
}

// Frame returns the live record behind ref
func (a *Arena) Frame(ref FrameRef) (*Frame, error) {
	s, err := a.slot(ref)
	if err != nil {
		return nil, err
	}
	return &s.frame, nil
}

// Live returns the number of records not yet released
func (a *Arena) Live() int {
	return len(a.slots) - len(a.free)
}

// Address returns the record's address as generated code and stack
// walkers see it.
func (a *Arena) Address(ref FrameRef) uint64 {
	if ref.IsNil() {
		return 0
	}
	return a.base + uint64(ref.index-1)*uint64(Layout.Size)
}

// Record encodes the frame behind ref in the runtime's binary layout.
func (a *Arena) Record(ref FrameRef) ([]byte, error) {
	f, err := a.Frame(ref)
	if err != nil {
		return nil, err
	}
	return Record{
		Previous: a.Address(f.Previous),
		Function: f.Function,
		Line:     f.Line,
	}.MarshalBinary()
}

func (a *Arena) slot(ref FrameRef) (*slot, error) {
	if ref.IsNil() {
		return nil, ErrNilFrame
	}
	idx := int(ref.index - 1)
	if idx >= len(a.slots) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFrame, ref)
	}
	s := &a.slots[idx]
	if !s.live || s.gen != ref.gen {
		return nil, fmt.Errorf("%w: %s", ErrStaleFrame, ref)
	}
	return s, nil
}

// Record is the raw, address-based form of a shadow frame as laid out in
// memory.
type Record struct {
	Previous uint64
	Function uint64
	Line     int32
}

// MarshalBinary encodes the record in little-endian Layout order,
// including trailing padding.
func (r Record) MarshalBinary() ([]byte, error) {
	buf := make([]byte, Layout.Size)
	binary.LittleEndian.PutUint64(buf[Layout.Fields[FieldPrevious].Offset:], r.Previous)
	binary.LittleEndian.PutUint64(buf[Layout.Fields[FieldFunction].Offset:], r.Function)
	binary.LittleEndian.PutUint32(buf[Layout.Fields[FieldLine].Offset:], uint32(r.Line))
	return buf, nil
}

// UnmarshalBinary decodes a record produced by MarshalBinary or read from
// target memory.
func (r *Record) UnmarshalBinary(data []byte) error {
	if len(data) < Layout.Size {
		return fmt.Errorf("%w: %d bytes, need %d", ErrShortRecord, len(data), Layout.Size)
	}
	r.Previous = binary.LittleEndian.Uint64(data[Layout.Fields[FieldPrevious].Offset:])
	r.Function = binary.LittleEndian.Uint64(data[Layout.Fields[FieldFunction].Offset:])
	r.Line = int32(binary.LittleEndian.Uint32(data[Layout.Fields[FieldLine].Offset:]))
	return nil
}
