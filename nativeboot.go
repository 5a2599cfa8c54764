package classvm

// BootstrapNatives returns the minimal set of native classes a loaded
// program can assume exist without ever being parsed from a .class
// file: java/lang/Object as the implicit root of every superclass
// chain, java/lang/System with a single static field so getstatic
// on java/lang/System.out resolves instead of failing class lookup, and
// java/io/PrintStream, the declared type of that field.
//
// A real standard library has hundreds of such classes; this core
// seeds only these three: the two that the interpreter's own resolution
// paths (the superclass walks of initialization and method resolution,
// and a getstatic on an unloaded well-known class) would otherwise
// dead-end on, plus the type of System.out.
func BootstrapNatives() []*Class {
	object := NewNativeClass("java/lang/Object", "")

	system := NewNativeClass("java/lang/System", "java/lang/Object")
	system.DefineStaticField("out", "Ljava/io/PrintStream;", NullValue())

	printStream := NewNativeClass("java/io/PrintStream", "java/lang/Object")

	return []*Class{object, system, printStream}
}

// LoadNativeBootstrap registers BootstrapNatives with m. Callers that
// load a program expecting java/lang/Object or java/lang/System to
// resolve should call this before loading any parsed class.
func (m *Machine) LoadNativeBootstrap() {
	for _, cls := range BootstrapNatives() {
		m.LoadNativeClass(cls)
	}
}
