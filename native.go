package classvm

// NewNativeClass builds a runtime Class with no bytecode behind it.
// Native classes participate in the ordinary initialization state
// machine (registry.go) like any parsed class; they just declare no
// methods, so invoking one fails method resolution with
// ErrMethodNotFound (a method added later without Code fails with
// ErrUnsupportedOperation when invoked) -- native classes in this core exist only to
// seed static field state an embedder wants visible to loaded bytecode,
// not to run native method bodies.
func NewNativeClass(name, superName string) *Class {
	return newClass(name, superName, nil, nil, nil, true, nil)
}

// DefineStaticField declares a static field on a native class with an
// initial value, the native equivalent of a ConstantValue attribute.
// Call it while building the class, before it is registered with a
// Machine.
func (c *Class) DefineStaticField(name, desc string, initial Value) {
	c.Fields = append(c.Fields, FieldInfo{
		AccessFlags:   AccStatic | AccPublic,
		Name:          name,
		Desc:          desc,
		ConstantValue: &initial,
	})
	c.rebuildIndexes()
}

func (c *Class) rebuildIndexes() {
	c.methodIndex = make(map[string]*MethodInfo, len(c.Methods))
	for i := range c.Methods {
		c.methodIndex[memberKey(c.Methods[i].Name, c.Methods[i].Desc)] = &c.Methods[i]
	}
	c.fieldIndex = make(map[string]*FieldInfo, len(c.Fields))
	for i := range c.Fields {
		c.fieldIndex[memberKey(c.Fields[i].Name, c.Fields[i].Desc)] = &c.Fields[i]
	}
}
