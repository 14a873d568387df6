package interpreter

import (
	"fmt"

	"aotc/pkg/ir"
	"aotc/pkg/shadowstack"
)

func newCell(t ir.Type) *Cell {
	c := &Cell{}
	if st, ok := t.(*ir.StructType); ok {
		for _, f := range st.Fields {
			c.Fields = append(c.Fields, newCell(f))
		}
	}
	return c
}

func gep(base Value, field int) (Value, error) {
	switch base.Kind {
	case KindCell:
		if field < 0 || field >= len(base.Cell.Fields) {
			return Value{}, fmt.Errorf("%w: field %d of a %d-field cell", ErrBadPointer, field, len(base.Cell.Fields))
		}
		return cellPtr(base.Cell.Fields[field]), nil
	case KindFrame:
		if base.Field != WholeRecord || field < 0 || field >= len(shadowstack.Layout.Fields) {
			return Value{}, fmt.Errorf("%w: field %d of %s", ErrBadPointer, field, base)
		}
		return framePtr(base.Frame, field), nil
	}
	return Value{}, fmt.Errorf("%w: getelementptr on %s", ErrBadPointer, base.Kind)
}

func (t *thread) store(ptr, v Value) error {
	switch ptr.Kind {
	case KindCell:
		ptr.Cell.Val = v
		return nil
	case KindFrame:
		f, err := t.env.Arena().Frame(ptr.Frame)
		if err != nil {
			return err
		}
		switch ptr.Field {
		case shadowstack.FieldPrevious:
			switch {
			case v.IsNull():
				f.Previous = shadowstack.Nil
			case v.Kind == KindFrame && v.Field == WholeRecord:
				f.Previous = v.Frame
			default:
				return fmt.Errorf("%w: store %s into previous", ErrBadPointer, v.Kind)
			}
		case shadowstack.FieldFunction:
			switch v.Kind {
			case KindAddr:
				f.Function = v.Addr
			case KindFrame:
				f.Function = t.env.Arena().Address(v.Frame)
			default:
				return fmt.Errorf("%w: store %s into functionAddress", ErrBadPointer, v.Kind)
			}
		case shadowstack.FieldLine:
			if v.Kind != KindInt {
				return fmt.Errorf("store %s into lineNumber", v.Kind)
			}
			f.Line = int32(v.I64)
		default:
			return fmt.Errorf("%w: store of a whole shadow frame", ErrBadPointer)
		}
		return nil
	}
	return fmt.Errorf("%w: store through %s", ErrBadPointer, ptr)
}

func (t *thread) load(ptr Value) (Value, error) {
	switch ptr.Kind {
	case KindCell:
		return ptr.Cell.Val, nil
	case KindFrame:
		f, err := t.env.Arena().Frame(ptr.Frame)
		if err != nil {
			return Value{}, err
		}
		switch ptr.Field {
		case shadowstack.FieldPrevious:
			return framePtr(f.Previous, WholeRecord), nil
		case shadowstack.FieldFunction:
			return Addr(f.Function), nil
		case shadowstack.FieldLine:
			return Int(int64(f.Line)), nil
		}
		return Value{}, fmt.Errorf("%w: load of a whole shadow frame", ErrBadPointer)
	}
	return Value{}, fmt.Errorf("%w: load through %s", ErrBadPointer, ptr)
}
