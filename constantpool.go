package classvm

import "github.com/pkg/errors"

// ConstTag identifies the kind of a constant pool entry.
type ConstTag byte

const (
	ConstNone               ConstTag = 0
	ConstUtf8               ConstTag = 1
	ConstInteger            ConstTag = 3
	ConstFloat              ConstTag = 4
	ConstLong               ConstTag = 5
	ConstDouble             ConstTag = 6
	ConstClass              ConstTag = 7
	ConstString             ConstTag = 8
	ConstFieldref           ConstTag = 9
	ConstMethodref          ConstTag = 10
	ConstInterfaceMethodref ConstTag = 11
	ConstNameAndType        ConstTag = 12
)

// ConstEntry is a single constant pool slot. Only the fields relevant to
// Tag are meaningful; the rest are zero. Index 0 and the slot following
// a Long/Double entry are ConstNone per the pool's layout invariant.
type ConstEntry struct {
	Tag ConstTag

	Utf8    string
	Int32   int32
	Float32 float32
	Int64   int64
	Float64 float64

	// Class: NameIndex points at the Utf8 holding the internal class name.
	NameIndex int
	// String: points at the Utf8 holding the value.
	StringIndex int
	// Fieldref/Methodref/InterfaceMethodref.
	ClassIndex       int
	NameAndTypeIndex int
	// NameAndType.
	DescIndex int
}

// ConstantPool is the fully-parsed, 1-indexed constant pool of a class
// file. Entries[0] is always ConstNone; entries run through len-1.
type ConstantPool struct {
	Entries []ConstEntry
}

func (cp *ConstantPool) valid(idx int) bool {
	return idx > 0 && idx < len(cp.Entries)
}

// Get returns the raw entry at idx, failing if idx is 0, out of range, or
// lands on a Long/Double continuation slot.
func (cp *ConstantPool) Get(idx int) (*ConstEntry, error) {
	if !cp.valid(idx) {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "constant pool index %d out of range (len %d)", idx, len(cp.Entries))
	}
	e := &cp.Entries[idx]
	if e.Tag == ConstNone {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "constant pool index %d refers to an unusable slot", idx)
	}
	return e, nil
}

// GetUTF8 resolves idx to a Utf8 entry's string value.
func (cp *ConstantPool) GetUTF8(idx int) (string, error) {
	e, err := cp.Get(idx)
	if err != nil {
		return "", err
	}
	if e.Tag != ConstUtf8 {
		return "", errors.Wrapf(ErrMalformedClassFile, "constant pool index %d is not Utf8", idx)
	}
	return e.Utf8, nil
}

// GetClassName resolves a Class entry at idx to its internal name.
func (cp *ConstantPool) GetClassName(idx int) (string, error) {
	e, err := cp.Get(idx)
	if err != nil {
		return "", err
	}
	if e.Tag != ConstClass {
		return "", errors.Wrapf(ErrMalformedClassFile, "constant pool index %d is not Class", idx)
	}
	return cp.GetUTF8(e.NameIndex)
}

// GetNameAndType resolves a NameAndType entry at idx to its (name, descriptor) pair.
func (cp *ConstantPool) GetNameAndType(idx int) (name string, desc string, err error) {
	e, err := cp.Get(idx)
	if err != nil {
		return "", "", err
	}
	if e.Tag != ConstNameAndType {
		return "", "", errors.Wrapf(ErrMalformedClassFile, "constant pool index %d is not NameAndType", idx)
	}
	name, err = cp.GetUTF8(e.NameIndex)
	if err != nil {
		return "", "", err
	}
	desc, err = cp.GetUTF8(e.DescIndex)
	if err != nil {
		return "", "", err
	}
	return name, desc, nil
}

// MemberRef is the resolved (class, name, descriptor) triple shared by
// Fieldref/Methodref/InterfaceMethodref entries.
type MemberRef struct {
	ClassName string
	Name      string
	Desc      string
}

// GetMemberRef resolves a Fieldref/Methodref/InterfaceMethodref entry at
// idx, following Class -> Utf8 and NameAndType -> Utf8 chains.
func (cp *ConstantPool) GetMemberRef(idx int) (MemberRef, error) {
	e, err := cp.Get(idx)
	if err != nil {
		return MemberRef{}, err
	}
	switch e.Tag {
	case ConstFieldref, ConstMethodref, ConstInterfaceMethodref:
	default:
		return MemberRef{}, errors.Wrapf(ErrMalformedClassFile, "constant pool index %d is not a member reference", idx)
	}
	className, err := cp.GetClassName(e.ClassIndex)
	if err != nil {
		return MemberRef{}, err
	}
	name, desc, err := cp.GetNameAndType(e.NameAndTypeIndex)
	if err != nil {
		return MemberRef{}, err
	}
	return MemberRef{ClassName: className, Name: name, Desc: desc}, nil
}

// GetString resolves a String entry at idx to its Utf8 payload.
func (cp *ConstantPool) GetString(idx int) (string, error) {
	e, err := cp.Get(idx)
	if err != nil {
		return "", err
	}
	if e.Tag != ConstString {
		return "", errors.Wrapf(ErrMalformedClassFile, "constant pool index %d is not String", idx)
	}
	return cp.GetUTF8(e.StringIndex)
}

// GetLoadableValue resolves any of the ldc-family constant kinds
// (Integer, Float, Long, Double, String, Class) to a runtime Value.
func (cp *ConstantPool) GetLoadableValue(idx int) (Value, error) {
	e, err := cp.Get(idx)
	if err != nil {
		return Value{}, err
	}
	switch e.Tag {
	case ConstInteger:
		return IntValue(e.Int32), nil
	case ConstFloat:
		return FloatValue(e.Float32), nil
	case ConstLong:
		return LongValue(e.Int64), nil
	case ConstDouble:
		return DoubleValue(e.Float64), nil
	case ConstString:
		s, err := cp.GetUTF8(e.StringIndex)
		if err != nil {
			return Value{}, err
		}
		return RefValue(&ObjectRef{Class: "java/lang/String:" + s}), nil
	case ConstClass:
		name, err := cp.GetClassName(idx)
		if err != nil {
			return Value{}, err
		}
		return RefValue(&ObjectRef{Class: "java/lang/Class:" + name}), nil
	default:
		return Value{}, errors.Wrapf(ErrMalformedClassFile, "constant pool index %d is not loadable", idx)
	}
}
