package classvm

import "fmt"

// ValueKind tags the union stored in a Value.
type ValueKind uint8

const (
	VInvalid ValueKind = iota
	VInt
	VLong
	VFloat
	VDouble
	VRef
)

func (k ValueKind) String() string {
	switch k {
	case VInvalid:
		return "invalid"
	case VInt:
		return "int"
	case VLong:
		return "long"
	case VFloat:
		return "float"
	case VDouble:
		return "double"
	case VRef:
		return "ref"
	default:
		return "unknown"
	}
}

// ObjectRef is the minimal instance marker new/athrow deal in: a class
// name and nothing else, since object field storage is out of core
// scope. A nil *ObjectRef represents the Java null reference.
type ObjectRef struct {
	Class string
}

// Value is a single JVM operand-stack/local slot. Long and double occupy
// one Value rather than two half-slots; spec's data-model invariants
// explicitly allow this as long as load/store-by-index stays consistent,
// which thread.go's locals/operand layout guarantees.
type Value struct {
	Kind ValueKind
	I    int32
	L    int64
	F    float32
	D    float64
	Ref  *ObjectRef
}

func IntValue(i int32) Value    { return Value{Kind: VInt, I: i} }
func LongValue(l int64) Value   { return Value{Kind: VLong, L: l} }
func FloatValue(f float32) Value { return Value{Kind: VFloat, F: f} }
func DoubleValue(d float64) Value { return Value{Kind: VDouble, D: d} }
func RefValue(r *ObjectRef) Value { return Value{Kind: VRef, Ref: r} }
func NullValue() Value          { return Value{Kind: VRef, Ref: nil} }

// ZeroValue returns the default value for a field/local of the given
// descriptor's kind, used to populate static fields with no
// ConstantValue attribute and freshly allocated local slots.
func ZeroValue(desc string) (Value, error) {
	ft, err := ParseFieldDescriptor(desc)
	if err != nil {
		return Value{}, err
	}
	if ft.ArrayDim > 0 {
		return NullValue(), nil
	}
	switch ft.Base {
	case 'J':
		return LongValue(0), nil
	case 'F':
		return FloatValue(0), nil
	case 'D':
		return DoubleValue(0), nil
	case 'L':
		return NullValue(), nil
	default:
		// B, C, I, S, Z all occupy an int-typed slot.
		return IntValue(0), nil
	}
}

func (v Value) String() string {
	switch v.Kind {
	case VInvalid:
		return "invalid"
	case VInt:
		return fmt.Sprintf("int(%d)", v.I)
	case VLong:
		return fmt.Sprintf("long(%d)", v.L)
	case VFloat:
		return fmt.Sprintf("float(%g)", v.F)
	case VDouble:
		return fmt.Sprintf("double(%g)", v.D)
	case VRef:
		if v.Ref == nil {
			return "ref(null)"
		}
		return fmt.Sprintf("ref(%s)", v.Ref.Class)
	default:
		return "invalid"
	}
}
