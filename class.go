package classvm

import "github.com/pkg/errors"

// Class is the runtime representation of a loaded class, whether parsed
// from a .class file or constructed natively (Native == true, Pool == nil).
type Class struct {
	Name       string
	SuperName  string // "" only for java/lang/Object
	Interfaces []string
	Fields     []FieldInfo
	Methods    []MethodInfo
	Native     bool
	Pool       *ConstantPool // nil for natively constructed classes

	methodIndex map[string]*MethodInfo
	fieldIndex  map[string]*FieldInfo

	state   initState
	statics map[string]Value
}

// constantPool returns the class's constant pool, or an empty one for
// natively constructed classes that never had bytes to resolve against.
func (c *Class) constantPool() *ConstantPool {
	if c.Pool == nil {
		return &ConstantPool{Entries: make([]ConstEntry, 1)}
	}
	return c.Pool
}

// nameAt resolves a Class constant pool entry to its internal name,
// used by exception handler catch-type matching.
func (c *Class) nameAt(idx int) (string, error) {
	return c.constantPool().GetClassName(idx)
}

type initState int

const (
	stateUninitialized initState = iota
	stateInitializing
	stateInitialized
)

// memberKey is the lookup key used for both methods and fields: the
// name immediately followed by the descriptor, with no separator. Two
// distinct (name, desc) pairs never collide because every descriptor
// begins with '(' for methods or one of "[BCDFIJSZL" for fields, neither
// of which can appear as the trailing character set of a shorter valid
// name, so simple concatenation is an unambiguous key in practice for
// the well-formed identifiers a class file can contain.
func memberKey(name, desc string) string {
	return name + desc
}

func newClass(name, superName string, interfaces []string, fields []FieldInfo, methods []MethodInfo, native bool, pool *ConstantPool) *Class {
	cls := &Class{
		Name:        name,
		SuperName:   superName,
		Interfaces:  interfaces,
		Fields:      fields,
		Methods:     methods,
		Native:      native,
		Pool:        pool,
		methodIndex: make(map[string]*MethodInfo, len(methods)),
		fieldIndex:  make(map[string]*FieldInfo, len(fields)),
		statics:     make(map[string]Value),
	}
	for i := range cls.Methods {
		cls.methodIndex[memberKey(cls.Methods[i].Name, cls.Methods[i].Desc)] = &cls.Methods[i]
	}
	for i := range cls.Fields {
		cls.fieldIndex[memberKey(cls.Fields[i].Name, cls.Fields[i].Desc)] = &cls.Fields[i]
	}
	return cls
}

// newClassFromFile builds a runtime Class directly from a parsed
// ClassFile.
func newClassFromFile(cf *ClassFile) *Class {
	return newClass(cf.ThisClass, cf.SuperClass, cf.Interfaces, cf.Fields, cf.Methods, false, cf.ConstantPool)
}

// GetMethod looks up a method declared directly on this class (no
// superclass search; callers walk the super chain themselves).
func (c *Class) GetMethod(name, desc string) (*MethodInfo, bool) {
	m, ok := c.methodIndex[memberKey(name, desc)]
	return m, ok
}

// GetField looks up a field declared directly on this class.
func (c *Class) GetField(name, desc string) (*FieldInfo, bool) {
	f, ok := c.fieldIndex[memberKey(name, desc)]
	return f, ok
}

func (c *Class) getStatic(name, desc string) (Value, error) {
	v, ok := c.statics[memberKey(name, desc)]
	if !ok {
		return Value{}, errors.Wrapf(ErrFieldNotFound, "static field %s%s not found on %s", name, desc, c.Name)
	}
	return v, nil
}

func (c *Class) setStatic(name, desc string, v Value) {
	c.statics[memberKey(name, desc)] = v
}
