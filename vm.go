package classvm

import "github.com/pkg/errors"

// Tracer is the diagnostic hook the interpreter calls before executing
// each instruction. The core performs no I/O itself; cmd/classvm wires
// this to a logger.
type Tracer func(t *Thread, fr *Frame, instr Instruction)

// Machine is the embedder-facing entry point: a class registry plus a
// set of independently stepped threads.
type Machine struct {
	Registry *Registry
	Trace    Tracer
	threads  map[ThreadID]*Thread
}

// NewMachine returns an empty Machine with no classes loaded.
func NewMachine() *Machine {
	return &Machine{Registry: NewRegistry(), threads: make(map[ThreadID]*Thread)}
}

// LoadClass parses and registers a .class file's bytes.
func (m *Machine) LoadClass(data []byte) (*Class, error) {
	return m.Registry.LoadClass(data)
}

// LoadNativeClass registers a class built programmatically rather than
// parsed from bytes (see nativeboot.go).
func (m *Machine) LoadNativeClass(cls *Class) {
	m.Registry.LoadNativeClass(cls)
}

// GetClass returns a previously loaded class by internal name.
func (m *Machine) GetClass(name string) (*Class, error) {
	return m.Registry.GetClass(name)
}

// GetStatic triggers initialization of className if needed and returns
// the current value of one of its static fields.
func (m *Machine) GetStatic(className, name, desc string) (Value, error) {
	if err := m.Registry.EnsureInitialized(className); err != nil {
		return Value{}, err
	}
	cls, err := m.Registry.GetClass(className)
	if err != nil {
		return Value{}, err
	}
	owner, _, err := m.Registry.resolveField(cls, name, desc)
	if err != nil {
		return Value{}, err
	}
	return owner.getStatic(name, desc)
}

// Thread returns the thread registered under id, creating it with
// DefaultMaxSlots capacity on first use.
func (m *Machine) Thread(id ThreadID) *Thread {
	t, ok := m.threads[id]
	if !ok {
		t = NewThread(id, DefaultMaxSlots)
		m.threads[id] = t
	}
	return t
}

// InvokeStatic resolves className.methodName(methodDesc), pushes a new
// frame for it on the given thread seeded with args as its initial
// locals, and runs the thread to completion. It is also how an embedder
// selects a startup class: triggering static initialization as a side
// effect of the first invocation.
func (m *Machine) InvokeStatic(threadID ThreadID, className, methodName, methodDesc string, args []Value) (Value, bool, error) {
	if err := m.Registry.EnsureInitialized(className); err != nil {
		return Value{}, false, err
	}
	cls, err := m.Registry.GetClass(className)
	if err != nil {
		return Value{}, false, err
	}
	owner, method, err := m.Registry.resolveMethod(cls, methodName, methodDesc)
	if err != nil {
		return Value{}, false, err
	}
	if method.AccessFlags&AccStatic == 0 {
		return Value{}, false, errors.Wrapf(ErrMethodNotFound, "%s%s on %s is not static", methodName, methodDesc, className)
	}
	t := m.Thread(threadID)
	fr, err := t.PushFrame(owner, method)
	if err != nil {
		return Value{}, false, err
	}
	slot := 0
	for _, a := range args {
		if slot >= fr.Locals {
			break
		}
		if err := t.SetLocal(fr, slot, a); err != nil {
			return Value{}, false, err
		}
		slot++
		if a.Kind == VLong || a.Kind == VDouble {
			slot++ // long/double arguments take two local indices
		}
	}
	return m.Run(t)
}
