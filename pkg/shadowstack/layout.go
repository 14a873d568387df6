// Package shadowstack defines the shadow frame record shared between
// generated code and the runtime, and the per-context environment link
// that chains records into a shadow call stack.
//
// Record layout on 64-bit targets:
//
//	offset  size  field
//	0       8     previous         (pointer to caller's record, null for outermost)
//	8       8     functionAddress  (code address of the owning function)
//	16      4     lineNumber       (int32, -1 while unknown)
//	20      4     padding
//
// Generated code addresses the fields by index; stack walkers read the raw
// bytes. Both derive from Layout.
package shadowstack

import "fmt"

// FieldKind is the machine representation of a record field.
type FieldKind int

const (
	KindPointer FieldKind = iota
	KindInt32
)

// PointerSize is the target pointer width in bytes.
const PointerSize = 8

// Size returns the width of the kind in bytes
func (k FieldKind) Size() int {
	switch k {
	case KindPointer:
		return PointerSize
	case KindInt32:
		return 4
	}
	panic(fmt.Sprintf("shadowstack: unknown field kind %d", k))
}

func (k FieldKind) String() string {
	switch k {
	case KindPointer:
		return "pointer"
	case KindInt32:
		return "int32"
	}
	return "unknown"
}

// Field indices, in record order.
const (
	FieldPrevious = iota
	FieldFunction
	FieldLine
)

// UnknownLine is stored in the line field until line tracking updates it.
const UnknownLine int32 = -1

// Field describes one field of the record.
type Field struct {
	Name   string
	Kind   FieldKind
	Offset int
}

// Size returns the width of the field in bytes
func (f Field) Size() int {
	return f.Kind.Size()
}

// RecordLayout is the binary shape of a shadow frame record.
type RecordLayout struct {
	Fields []Field
	Size   int
	Align  int
}

// Layout is the record layout assumed by the push/pop primitives and by
// every stack walker.
var Layout = computeLayout([]Field{
	FieldPrevious: {Name: "previous", Kind: KindPointer},
	FieldFunction: {Name: "functionAddress", Kind: KindPointer},
	FieldLine:     {Name: "lineNumber", Kind: KindInt32},
})

// computeLayout assigns naturally aligned offsets and pads the record to
// its largest alignment.
func computeLayout(fields []Field) RecordLayout {
	offset, align := 0, 1
	for i := range fields {
		size := fields[i].Size()
		offset = alignUp(offset, size)
		fields[i].Offset = offset
		offset += size
		if size > align {
			align = size
		}
	}
	return RecordLayout{
		Fields: fields,
		Size:   alignUp(offset, align),
		Align:  align,
	}
}

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}
