package classvm

import (
	"sync"

	"github.com/pkg/errors"
)

// Registry owns every loaded class, keyed by internal name, and drives
// the uninitialized -> initializing -> initialized state machine
// triggered by new/getstatic/putstatic, by every invoke opcode, by the
// embedder's GetStatic, and by explicit startup-class selection (see
// vm.go's InvokeStatic).
type Registry struct {
	mu      sync.Mutex
	classes map[string]*Class
}

func NewRegistry() *Registry {
	return &Registry{classes: make(map[string]*Class)}
}

// LoadClass parses class file bytes and registers the resulting class.
// A class loaded again under the same internal name replaces the prior
// definition, mirroring an embedder that reloads a recompiled class.
func (r *Registry) LoadClass(data []byte) (*Class, error) {
	cf, err := ParseClassFile(data)
	if err != nil {
		return nil, err
	}
	cls := newClassFromFile(cf)
	r.mu.Lock()
	r.classes[cls.Name] = cls
	r.mu.Unlock()
	return cls, nil
}

// LoadNativeClass registers a class constructed in Go rather than parsed
// from bytes (see native.go/nativeboot.go).
func (r *Registry) LoadNativeClass(cls *Class) {
	r.mu.Lock()
	r.classes[cls.Name] = cls
	r.mu.Unlock()
}

// GetClass returns the named class, failing with ErrClassNotFound if it
// has not been loaded.
func (r *Registry) GetClass(name string) (*Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cls, ok := r.classes[name]
	if !ok {
		return nil, errors.Wrapf(ErrClassNotFound, "class %s not loaded", name)
	}
	return cls, nil
}

// EnsureInitialized drives the class init state machine for name and
// its superclass chain. It populates static fields from ConstantValue
// or the descriptor's zero value; it never invokes <clinit>, matching
// the interpreter this repo is grounded on (see DESIGN.md, Open
// Question 2).
func (r *Registry) EnsureInitialized(name string) error {
	cls, err := r.GetClass(name)
	if err != nil {
		return err
	}
	return r.ensureInitialized(cls)
}

func (r *Registry) ensureInitialized(cls *Class) error {
	switch cls.state {
	case stateInitialized:
		return nil
	case stateInitializing:
		return errors.Wrapf(ErrCircularInit, "circular initialization involving %s", cls.Name)
	}
	cls.state = stateInitializing

	if cls.SuperName != "" {
		super, err := r.GetClass(cls.SuperName)
		if err != nil {
			return err
		}
		if err := r.ensureInitialized(super); err != nil {
			return err
		}
	}

	for _, f := range cls.Fields {
		if f.AccessFlags&AccStatic == 0 {
			continue
		}
		if f.ConstantValue != nil {
			cls.setStatic(f.Name, f.Desc, *f.ConstantValue)
			continue
		}
		zero, err := ZeroValue(f.Desc)
		if err != nil {
			return err
		}
		cls.setStatic(f.Name, f.Desc, zero)
	}

	cls.state = stateInitialized
	return nil
}

// resolveMethod walks cls and its superclass chain looking for a method
// with the given name and descriptor, as used by invokestatic and
// invokespecial's non-virtual dispatch.
func (r *Registry) resolveMethod(cls *Class, name, desc string) (*Class, *MethodInfo, error) {
	for c := cls; c != nil; {
		if m, ok := c.GetMethod(name, desc); ok {
			return c, m, nil
		}
		if c.SuperName == "" {
			break
		}
		next, err := r.GetClass(c.SuperName)
		if err != nil {
			return nil, nil, err
		}
		c = next
	}
	return nil, nil, errors.Wrapf(ErrMethodNotFound, "method %s%s not found on %s or its superclasses", name, desc, cls.Name)
}

// resolveField walks cls and its superclass chain looking for a field.
func (r *Registry) resolveField(cls *Class, name, desc string) (*Class, *FieldInfo, error) {
	for c := cls; c != nil; {
		if f, ok := c.GetField(name, desc); ok {
			return c, f, nil
		}
		if c.SuperName == "" {
			break
		}
		next, err := r.GetClass(c.SuperName)
		if err != nil {
			return nil, nil, err
		}
		c = next
	}
	return nil, nil, errors.Wrapf(ErrFieldNotFound, "field %s%s not found on %s or its superclasses", name, desc, cls.Name)
}
