package classvm

import (
	"math"

	"github.com/pkg/errors"
)

// Access flag bits, shared by classes, fields, and methods.
const (
	AccPublic    = 0x0001
	AccPrivate   = 0x0002
	AccProtected = 0x0004
	AccStatic    = 0x0008
	AccFinal     = 0x0010
	AccSuper     = 0x0020
	AccVolatile  = 0x0040
	AccTransient = 0x0040 // alias, meaningful only on fields
	AccInterface = 0x0200
	AccAbstract  = 0x0400
)

const classMagic = 0xCAFEBABE

// ExceptionTableEntry is one row of a Code attribute's exception table.
// CatchType == 0 means "catch everything" (used for finally blocks).
type ExceptionTableEntry struct {
	StartPC   int
	EndPC     int
	HandlerPC int
	CatchType int
}

// CodeAttr is a method's Code attribute: its bytecode and exception
// handlers. A method with no Code attribute (native or abstract) has a
// nil CodeAttr on its MethodInfo.
type CodeAttr struct {
	MaxStack       int
	MaxLocals      int
	Code           []byte
	ExceptionTable []ExceptionTableEntry
}

// FieldInfo is a parsed field_info structure, resolved against the
// owning class's constant pool.
type FieldInfo struct {
	AccessFlags int
	Name        string
	Desc        string
	// ConstantValue is non-nil when the field carries a ConstantValue
	// attribute, used to seed static field storage at class init.
	ConstantValue *Value
}

// MethodInfo is a parsed method_info structure.
type MethodInfo struct {
	AccessFlags int
	Name        string
	Desc        string
	Code        *CodeAttr
}

// ClassFile is the fully decoded contents of a .class file.
type ClassFile struct {
	MinorVersion int
	MajorVersion int
	ConstantPool *ConstantPool
	AccessFlags  int
	ThisClass    string
	SuperClass   string // "" for java/lang/Object itself
	Interfaces   []string
	Fields       []FieldInfo
	Methods      []MethodInfo
}

// cursor is a forward-only reader over a class file's bytes.
type cursor struct {
	data []byte
	pos  int
}

func (c *cursor) need(n int) error {
	if c.pos+n > len(c.data) {
		return errors.Wrapf(ErrMalformedClassFile, "unexpected end of class file at offset %d", c.pos)
	}
	return nil
}

func (c *cursor) u1() (int, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.data[c.pos]
	c.pos++
	return int(v), nil
}

func (c *cursor) u2() (int, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := int(c.data[c.pos])<<8 | int(c.data[c.pos+1])
	c.pos += 2
	return v, nil
}

func (c *cursor) u4() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := uint32(c.data[c.pos])<<24 | uint32(c.data[c.pos+1])<<16 | uint32(c.data[c.pos+2])<<8 | uint32(c.data[c.pos+3])
	c.pos += 4
	return v, nil
}

func (c *cursor) bytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// ParseClassFile decodes a complete .class file, returning an error that
// wraps ErrMalformedClassFile on any structural problem, including
// trailing bytes after the last declared attribute.
func ParseClassFile(data []byte) (*ClassFile, error) {
	c := &cursor{data: data}

	magic, err := c.u4()
	if err != nil {
		return nil, err
	}
	if magic != classMagic {
		return nil, errors.Wrapf(ErrMalformedClassFile, "bad magic 0x%08x", magic)
	}

	minor, err := c.u2()
	if err != nil {
		return nil, err
	}
	major, err := c.u2()
	if err != nil {
		return nil, err
	}

	cpCount, err := c.u2()
	if err != nil {
		return nil, err
	}
	cp, err := parseConstantPool(c, cpCount)
	if err != nil {
		return nil, err
	}

	accessFlags, err := c.u2()
	if err != nil {
		return nil, err
	}

	thisIdx, err := c.u2()
	if err != nil {
		return nil, err
	}
	thisClass, err := cp.GetClassName(thisIdx)
	if err != nil {
		return nil, err
	}

	superIdx, err := c.u2()
	if err != nil {
		return nil, err
	}
	var superClass string
	if superIdx != 0 {
		superClass, err = cp.GetClassName(superIdx)
		if err != nil {
			return nil, err
		}
	}

	ifaceCount, err := c.u2()
	if err != nil {
		return nil, err
	}
	interfaces := make([]string, 0, ifaceCount)
	for i := 0; i < ifaceCount; i++ {
		idx, err := c.u2()
		if err != nil {
			return nil, err
		}
		name, err := cp.GetClassName(idx)
		if err != nil {
			return nil, err
		}
		interfaces = append(interfaces, name)
	}

	fieldCount, err := c.u2()
	if err != nil {
		return nil, err
	}
	fields := make([]FieldInfo, 0, fieldCount)
	for i := 0; i < fieldCount; i++ {
		f, err := parseField(c, cp)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}

	methodCount, err := c.u2()
	if err != nil {
		return nil, err
	}
	methods := make([]MethodInfo, 0, methodCount)
	for i := 0; i < methodCount; i++ {
		m, err := parseMethod(c, cp)
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}

	// Class-level attributes (SourceFile, etc.) carry no core semantics
	// here; skip them by declared length.
	attrCount, err := c.u2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < attrCount; i++ {
		if _, _, err := parseRawAttribute(c, cp); err != nil {
			return nil, err
		}
	}

	if c.pos != len(c.data) {
		return nil, errors.Wrapf(ErrMalformedClassFile, "%d trailing bytes after class file", len(c.data)-c.pos)
	}

	return &ClassFile{
		MinorVersion: minor,
		MajorVersion: major,
		ConstantPool: cp,
		AccessFlags:  accessFlags,
		ThisClass:    thisClass,
		SuperClass:   superClass,
		Interfaces:   interfaces,
		Fields:       fields,
		Methods:      methods,
	}, nil
}

func parseConstantPool(c *cursor, cpCount int) (*ConstantPool, error) {
	cp := &ConstantPool{Entries: make([]ConstEntry, cpCount)}
	for i := 1; i < cpCount; i++ {
		tag, err := c.u1()
		if err != nil {
			return nil, err
		}
		switch ConstTag(tag) {
		case ConstUtf8:
			length, err := c.u2()
			if err != nil {
				return nil, err
			}
			b, err := c.bytes(length)
			if err != nil {
				return nil, err
			}
			cp.Entries[i] = ConstEntry{Tag: ConstUtf8, Utf8: string(b)}
		case ConstInteger:
			v, err := c.u4()
			if err != nil {
				return nil, err
			}
			cp.Entries[i] = ConstEntry{Tag: ConstInteger, Int32: int32(v)}
		case ConstFloat:
			v, err := c.u4()
			if err != nil {
				return nil, err
			}
			cp.Entries[i] = ConstEntry{Tag: ConstFloat, Float32: math.Float32frombits(v)}
		case ConstLong:
			hi, err := c.u4()
			if err != nil {
				return nil, err
			}
			lo, err := c.u4()
			if err != nil {
				return nil, err
			}
			cp.Entries[i] = ConstEntry{Tag: ConstLong, Int64: int64(uint64(hi)<<32 | uint64(lo))}
			i++ // second slot stays ConstNone, per the pool's layout invariant
		case ConstDouble:
			hi, err := c.u4()
			if err != nil {
				return nil, err
			}
			lo, err := c.u4()
			if err != nil {
				return nil, err
			}
			bits := uint64(hi)<<32 | uint64(lo)
			cp.Entries[i] = ConstEntry{Tag: ConstDouble, Float64: math.Float64frombits(bits)}
			i++ // second slot stays ConstNone
		case ConstClass:
			nameIdx, err := c.u2()
			if err != nil {
				return nil, err
			}
			cp.Entries[i] = ConstEntry{Tag: ConstClass, NameIndex: nameIdx}
		case ConstString:
			strIdx, err := c.u2()
			if err != nil {
				return nil, err
			}
			cp.Entries[i] = ConstEntry{Tag: ConstString, StringIndex: strIdx}
		case ConstFieldref, ConstMethodref, ConstInterfaceMethodref:
			classIdx, err := c.u2()
			if err != nil {
				return nil, err
			}
			ntIdx, err := c.u2()
			if err != nil {
				return nil, err
			}
			cp.Entries[i] = ConstEntry{Tag: ConstTag(tag), ClassIndex: classIdx, NameAndTypeIndex: ntIdx}
		case ConstNameAndType:
			nameIdx, err := c.u2()
			if err != nil {
				return nil, err
			}
			descIdx, err := c.u2()
			if err != nil {
				return nil, err
			}
			cp.Entries[i] = ConstEntry{Tag: ConstNameAndType, NameIndex: nameIdx, DescIndex: descIdx}
		default:
			return nil, errors.Wrapf(ErrMalformedClassFile, "unknown constant pool tag %d at index %d", tag, i)
		}
	}
	return cp, nil
}

func parseField(c *cursor, cp *ConstantPool) (FieldInfo, error) {
	accessFlags, err := c.u2()
	if err != nil {
		return FieldInfo{}, err
	}
	nameIdx, err := c.u2()
	if err != nil {
		return FieldInfo{}, err
	}
	name, err := cp.GetUTF8(nameIdx)
	if err != nil {
		return FieldInfo{}, err
	}
	descIdx, err := c.u2()
	if err != nil {
		return FieldInfo{}, err
	}
	desc, err := cp.GetUTF8(descIdx)
	if err != nil {
		return FieldInfo{}, err
	}

	field := FieldInfo{AccessFlags: accessFlags, Name: name, Desc: desc}

	attrCount, err := c.u2()
	if err != nil {
		return FieldInfo{}, err
	}
	for i := 0; i < attrCount; i++ {
		attrName, raw, err := parseRawAttribute(c, cp)
		if err != nil {
			return FieldInfo{}, err
		}
		if attrName == "ConstantValue" {
			if len(raw) != 2 {
				return FieldInfo{}, errors.Wrapf(ErrMalformedClassFile, "ConstantValue attribute has bad length")
			}
			idx := int(raw[0])<<8 | int(raw[1])
			v, err := cp.GetLoadableValue(idx)
			if err != nil {
				return FieldInfo{}, err
			}
			field.ConstantValue = &v
		}
	}
	return field, nil
}

func parseMethod(c *cursor, cp *ConstantPool) (MethodInfo, error) {
	accessFlags, err := c.u2()
	if err != nil {
		return MethodInfo{}, err
	}
	nameIdx, err := c.u2()
	if err != nil {
		return MethodInfo{}, err
	}
	name, err := cp.GetUTF8(nameIdx)
	if err != nil {
		return MethodInfo{}, err
	}
	descIdx, err := c.u2()
	if err != nil {
		return MethodInfo{}, err
	}
	desc, err := cp.GetUTF8(descIdx)
	if err != nil {
		return MethodInfo{}, err
	}

	method := MethodInfo{AccessFlags: accessFlags, Name: name, Desc: desc}

	attrCount, err := c.u2()
	if err != nil {
		return MethodInfo{}, err
	}
	for i := 0; i < attrCount; i++ {
		attrName, raw, err := parseRawAttributeOrCode(c, cp)
		if err != nil {
			return MethodInfo{}, err
		}
		if attrName == "Code" {
			code, err := parseCodeAttr(raw, cp)
			if err != nil {
				return MethodInfo{}, err
			}
			method.Code = code
		}
	}
	return method, nil
}

// parseRawAttribute reads one attribute_info (name, raw payload), leaving
// the cursor positioned after it.
func parseRawAttribute(c *cursor, cp *ConstantPool) (string, []byte, error) {
	nameIdx, err := c.u2()
	if err != nil {
		return "", nil, err
	}
	name, err := cp.GetUTF8(nameIdx)
	if err != nil {
		return "", nil, err
	}
	length, err := c.u4()
	if err != nil {
		return "", nil, err
	}
	raw, err := c.bytes(int(length))
	if err != nil {
		return "", nil, err
	}
	return name, raw, nil
}

// parseRawAttributeOrCode is parseRawAttribute under a name methods use
// too; Code attributes are large enough that callers decode raw
// separately rather than pre-parsing here.
func parseRawAttributeOrCode(c *cursor, cp *ConstantPool) (string, []byte, error) {
	return parseRawAttribute(c, cp)
}

func parseCodeAttr(raw []byte, cp *ConstantPool) (*CodeAttr, error) {
	c := &cursor{data: raw}
	maxStack, err := c.u2()
	if err != nil {
		return nil, err
	}
	maxLocals, err := c.u2()
	if err != nil {
		return nil, err
	}
	codeLength, err := c.u4()
	if err != nil {
		return nil, err
	}
	code, err := c.bytes(int(codeLength))
	if err != nil {
		return nil, err
	}

	excCount, err := c.u2()
	if err != nil {
		return nil, err
	}
	exc := make([]ExceptionTableEntry, 0, excCount)
	for i := 0; i < excCount; i++ {
		startPC, err := c.u2()
		if err != nil {
			return nil, err
		}
		endPC, err := c.u2()
		if err != nil {
			return nil, err
		}
		handlerPC, err := c.u2()
		if err != nil {
			return nil, err
		}
		catchType, err := c.u2()
		if err != nil {
			return nil, err
		}
		exc = append(exc, ExceptionTableEntry{StartPC: startPC, EndPC: endPC, HandlerPC: handlerPC, CatchType: catchType})
	}

	attrCount, err := c.u2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < attrCount; i++ {
		// LineNumberTable, LocalVariableTable, StackMapTable, etc. carry
		// no semantics this interpreter needs; skip by declared length.
		if _, _, err := parseRawAttribute(c, cp); err != nil {
			return nil, err
		}
	}

	return &CodeAttr{
		MaxStack:       maxStack,
		MaxLocals:      maxLocals,
		Code:           code,
		ExceptionTable: exc,
	}, nil
}
