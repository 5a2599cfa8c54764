package classvm

import "testing"

// The helpers below synthesize class-file byte arrays directly, since
// there are no .class fixtures in this repo: every interpreter-level
// test builds its own minimal program the same way a classfile_test.go
// round-trip test builds its own minimal class.

// cpBuilder accumulates constant pool entries and their encoded bytes,
// in order, handling index bookkeeping (the pool is 1-indexed, entry 0
// unused) and Utf8 interning.
type cpBuilder struct {
	raw  [][]byte
	utf8 map[string]int
}

func newCPBuilder() *cpBuilder {
	return &cpBuilder{raw: [][]byte{nil}, utf8: map[string]int{}}
}

func (b *cpBuilder) add(entry []byte) int {
	b.raw = append(b.raw, entry)
	return len(b.raw) - 1
}

func (b *cpBuilder) addUtf8(s string) int {
	if idx, ok := b.utf8[s]; ok {
		return idx
	}
	buf := []byte{byte(ConstUtf8), byte(len(s) >> 8), byte(len(s))}
	buf = append(buf, []byte(s)...)
	idx := b.add(buf)
	b.utf8[s] = idx
	return idx
}

func (b *cpBuilder) addClass(name string) int {
	n := b.addUtf8(name)
	return b.add([]byte{byte(ConstClass), byte(n >> 8), byte(n)})
}

func (b *cpBuilder) addNameAndType(name, desc string) int {
	n := b.addUtf8(name)
	d := b.addUtf8(desc)
	return b.add([]byte{byte(ConstNameAndType), byte(n >> 8), byte(n), byte(d >> 8), byte(d)})
}

func (b *cpBuilder) addMethodref(class, name, desc string) int {
	c := b.addClass(class)
	nt := b.addNameAndType(name, desc)
	return b.add([]byte{byte(ConstMethodref), byte(c >> 8), byte(c), byte(nt >> 8), byte(nt)})
}

func (b *cpBuilder) addFieldref(class, name, desc string) int {
	c := b.addClass(class)
	nt := b.addNameAndType(name, desc)
	return b.add([]byte{byte(ConstFieldref), byte(c >> 8), byte(c), byte(nt >> 8), byte(nt)})
}

func (b *cpBuilder) addInteger(v int32) int {
	return b.add([]byte{byte(ConstInteger), byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

// fieldSpec and methodSpec reference constant pool indices the caller
// has already interned with cpBuilder, so buildClass never mutates the
// pool while laying out the fields/methods/attributes tables.
type fieldSpec struct {
	access           int
	nameIdx, descIdx int
	constIdx         int // 0 means no ConstantValue attribute
}

type methodSpec struct {
	access               int
	nameIdx, descIdx     int
	maxStack, maxLocals  int
	code                 []byte
	exc                  []ExceptionTableEntry
}

func appendU2(out []byte, v int) []byte {
	return append(out, byte(v>>8), byte(v))
}

func appendU4(out []byte, v uint32) []byte {
	return append(out, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// buildClass assembles a full .class byte array from a pool the caller
// has already populated (including this/super class entries) and
// pre-interned field/method specs.
func buildClass(cp *cpBuilder, thisIdx, superIdx int, fields []fieldSpec, methods []methodSpec) []byte {
	var out []byte
	// Pre-intern the attribute names buildClass itself may need, since
	// the pool has to be fully settled before it is serialized below.
	constantValueIdx := cp.addUtf8("ConstantValue")
	codeIdx := cp.addUtf8("Code")

	out = appendU4(out, classMagic)
	out = appendU2(out, 0)  // minor
	out = appendU2(out, 52) // major

	out = appendU2(out, len(cp.raw))
	for _, e := range cp.raw[1:] {
		out = append(out, e...)
	}

	out = appendU2(out, AccPublic|AccSuper)
	out = appendU2(out, thisIdx)
	out = appendU2(out, superIdx)
	out = appendU2(out, 0) // interfaces

	out = appendU2(out, len(fields))
	for _, f := range fields {
		out = appendU2(out, f.access)
		out = appendU2(out, f.nameIdx)
		out = appendU2(out, f.descIdx)
		if f.constIdx != 0 {
			out = appendU2(out, 1)
			out = appendU2(out, constantValueIdx)
			out = appendU4(out, 2)
			out = appendU2(out, f.constIdx)
		} else {
			out = appendU2(out, 0)
		}
	}

	out = appendU2(out, len(methods))
	for _, m := range methods {
		out = appendU2(out, m.access)
		out = appendU2(out, m.nameIdx)
		out = appendU2(out, m.descIdx)
		out = appendU2(out, 1) // one attribute: Code
		out = appendU2(out, codeIdx)

		var code []byte
		code = appendU2(code, m.maxStack)
		code = appendU2(code, m.maxLocals)
		code = appendU4(code, uint32(len(m.code)))
		code = append(code, m.code...)
		code = appendU2(code, len(m.exc))
		for _, e := range m.exc {
			code = appendU2(code, e.StartPC)
			code = appendU2(code, e.EndPC)
			code = appendU2(code, e.HandlerPC)
			code = appendU2(code, e.CatchType)
		}
		code = appendU2(code, 0) // no nested attributes

		out = appendU4(out, uint32(len(code)))
		out = append(out, code...)
	}

	out = appendU2(out, 0) // no class attributes
	return out
}

func TestParseClassFileRoundTrip(t *testing.T) {
	cp := newCPBuilder()
	thisIdx := cp.addClass("Sample")
	superIdx := cp.addClass("java/lang/Object")
	mainName := cp.addUtf8("main")
	mainDesc := cp.addUtf8("()V")

	data := buildClass(cp, thisIdx, superIdx, nil, []methodSpec{
		{access: AccPublic | AccStatic, nameIdx: mainName, descIdx: mainDesc, maxStack: 1, maxLocals: 1, code: []byte{byte(OpReturn)}},
	})

	cf, err := ParseClassFile(data)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, cf.ThisClass == "Sample", "this class = %q", cf.ThisClass)
	assert(t, cf.SuperClass == "java/lang/Object", "super class = %q", cf.SuperClass)
	assert(t, len(cf.Methods) == 1, "expected 1 method, got %d", len(cf.Methods))
	assert(t, cf.Methods[0].Name == "main", "method name = %q", cf.Methods[0].Name)
	assert(t, cf.Methods[0].Code != nil, "expected a Code attribute")
	assert(t, len(cf.Methods[0].Code.Code) == 1, "expected 1 code byte")
}

func TestParseClassFileBadMagic(t *testing.T) {
	_, err := ParseClassFile([]byte{0, 0, 0, 0})
	assert(t, err != nil, "expected error for bad magic")
}

func TestParseClassFileTrailingBytes(t *testing.T) {
	cp := newCPBuilder()
	thisIdx := cp.addClass("Sample")
	superIdx := cp.addClass("java/lang/Object")
	data := buildClass(cp, thisIdx, superIdx, nil, nil)
	data = append(data, 0xff)
	_, err := ParseClassFile(data)
	assert(t, err != nil, "expected error for trailing bytes")
}

func TestParseClassFileConstantValueField(t *testing.T) {
	cp := newCPBuilder()
	thisIdx := cp.addClass("Sample")
	superIdx := cp.addClass("java/lang/Object")
	countName := cp.addUtf8("COUNT")
	countDesc := cp.addUtf8("I")
	countConst := cp.addInteger(7)

	data := buildClass(cp, thisIdx, superIdx, []fieldSpec{
		{access: AccStatic | AccPublic, nameIdx: countName, descIdx: countDesc, constIdx: countConst},
	}, nil)

	cf, err := ParseClassFile(data)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, len(cf.Fields) == 1, "expected 1 field")
	assert(t, cf.Fields[0].ConstantValue != nil, "expected a ConstantValue")
	assert(t, cf.Fields[0].ConstantValue.I == 7, "constant value = %d, want 7", cf.Fields[0].ConstantValue.I)
}
