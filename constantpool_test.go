package classvm

import "testing"

// buildSamplePool synthesizes a pool with a Methodref at index 1
// resolving through Class (idx 2, name "Foo" at Utf8 idx 3) and
// NameAndType (idx 4, name "bar" at Utf8 idx 5, desc "()I" at Utf8 idx 6).
func buildSamplePool() *ConstantPool {
	entries := make([]ConstEntry, 7)
	entries[1] = ConstEntry{Tag: ConstMethodref, ClassIndex: 2, NameAndTypeIndex: 4}
	entries[2] = ConstEntry{Tag: ConstClass, NameIndex: 3}
	entries[3] = ConstEntry{Tag: ConstUtf8, Utf8: "Foo"}
	entries[4] = ConstEntry{Tag: ConstNameAndType, NameIndex: 5, DescIndex: 6}
	entries[5] = ConstEntry{Tag: ConstUtf8, Utf8: "bar"}
	entries[6] = ConstEntry{Tag: ConstUtf8, Utf8: "()I"}
	return &ConstantPool{Entries: entries}
}

func TestGetMemberRef(t *testing.T) {
	cp := buildSamplePool()
	ref, err := cp.GetMemberRef(1)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, ref.ClassName == "Foo", "class name = %q, want Foo", ref.ClassName)
	assert(t, ref.Name == "bar", "name = %q, want bar", ref.Name)
	assert(t, ref.Desc == "()I", "desc = %q, want ()I", ref.Desc)
}

func TestGetIndexZeroRejected(t *testing.T) {
	cp := buildSamplePool()
	_, err := cp.Get(0)
	assert(t, err != nil, "expected error for index 0")
}

func TestLongDoubleSecondSlotIsNone(t *testing.T) {
	entries := make([]ConstEntry, 3)
	entries[1] = ConstEntry{Tag: ConstLong, Int64: 42}
	entries[2] = ConstEntry{Tag: ConstNone}
	cp := &ConstantPool{Entries: entries}

	v, err := cp.GetLoadableValue(1)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, v.Kind == VLong && v.L == 42, "value = %+v, want long(42)", v)

	_, err = cp.Get(2)
	assert(t, err != nil, "expected error resolving the slot after a Long entry")
}

func TestGetLoadableValueKinds(t *testing.T) {
	entries := make([]ConstEntry, 4)
	entries[1] = ConstEntry{Tag: ConstInteger, Int32: 7}
	entries[2] = ConstEntry{Tag: ConstFloat, Float32: 1.5}
	entries[3] = ConstEntry{Tag: ConstDouble, Float64: 2.5}
	cp := &ConstantPool{Entries: entries}

	v, err := cp.GetLoadableValue(1)
	assert(t, err == nil && v.Kind == VInt && v.I == 7, "int constant: %+v, %v", v, err)
	v, err = cp.GetLoadableValue(2)
	assert(t, err == nil && v.Kind == VFloat && v.F == 1.5, "float constant: %+v, %v", v, err)
	v, err = cp.GetLoadableValue(3)
	assert(t, err == nil && v.Kind == VDouble && v.D == 2.5, "double constant: %+v, %v", v, err)
}
