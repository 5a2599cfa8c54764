package classvm

import (
	"errors"
	"testing"
)

func TestInterpEmptyStaticMain(t *testing.T) {
	cp := newCPBuilder()
	thisIdx := cp.addClass("Sample")
	superIdx := cp.addClass("java/lang/Object")
	mainName := cp.addUtf8("main")
	mainDesc := cp.addUtf8("()V")
	data := buildClass(cp, thisIdx, superIdx, nil, []methodSpec{
		{access: AccPublic | AccStatic, nameIdx: mainName, descIdx: mainDesc, maxStack: 0, maxLocals: 0, code: []byte{byte(OpReturn)}},
	})

	m := NewMachine()
	m.LoadNativeBootstrap()
	_, err := m.LoadClass(data)
	assert(t, err == nil, "unexpected error: %v", err)

	_, hasResult, err := m.InvokeStatic(0, "Sample", "main", "()V", nil)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, !hasResult, "expected no return value")
}

func TestInterpBipushIreturn(t *testing.T) {
	cp := newCPBuilder()
	thisIdx := cp.addClass("Sample")
	superIdx := cp.addClass("java/lang/Object")
	name := cp.addUtf8("answer")
	desc := cp.addUtf8("()I")
	code := []byte{byte(OpBipush), 42, byte(OpIreturn)}
	data := buildClass(cp, thisIdx, superIdx, nil, []methodSpec{
		{access: AccPublic | AccStatic, nameIdx: name, descIdx: desc, maxStack: 1, maxLocals: 0, code: code},
	})

	m := NewMachine()
	m.LoadNativeBootstrap()
	_, err := m.LoadClass(data)
	assert(t, err == nil, "unexpected error: %v", err)

	v, hasResult, err := m.InvokeStatic(0, "Sample", "answer", "()I", nil)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, hasResult, "expected a return value")
	assert(t, v.Kind == VInt && v.I == 42, "result = %+v, want int(42)", v)
}

func TestInterpIntegerAdd(t *testing.T) {
	cases := []struct {
		name string
		code []byte
		want int32
	}{
		{"twoPlusThree", []byte{byte(OpIconst2), byte(OpIconst3), byte(OpIadd), byte(OpIreturn)}, 5},
		{"minusOnePlusTwo", []byte{byte(OpIconstM1), byte(OpIconst2), byte(OpIadd), byte(OpIreturn)}, 1},
	}
	for _, c := range cases {
		cp := newCPBuilder()
		thisIdx := cp.addClass("Sample")
		superIdx := cp.addClass("java/lang/Object")
		name := cp.addUtf8(c.name)
		desc := cp.addUtf8("()I")
		data := buildClass(cp, thisIdx, superIdx, nil, []methodSpec{
			{access: AccPublic | AccStatic, nameIdx: name, descIdx: desc, maxStack: 2, maxLocals: 0, code: c.code},
		})

		m := NewMachine()
		m.LoadNativeBootstrap()
		_, err := m.LoadClass(data)
		assert(t, err == nil, "%s: unexpected error: %v", c.name, err)

		v, hasResult, err := m.InvokeStatic(0, "Sample", c.name, "()I", nil)
		assert(t, err == nil, "%s: unexpected error: %v", c.name, err)
		assert(t, hasResult, "%s: expected a return value", c.name)
		assert(t, v.I == c.want, "%s: result = %d, want %d", c.name, v.I, c.want)
	}
}

func TestInterpGetstaticTriggersInit(t *testing.T) {
	cp := newCPBuilder()
	thisIdx := cp.addClass("Sample")
	superIdx := cp.addClass("java/lang/Object")
	countName := cp.addUtf8("COUNT")
	countDesc := cp.addUtf8("I")
	countConst := cp.addInteger(7)
	fieldRef := cp.addFieldref("Sample", "COUNT", "I")
	methodName := cp.addUtf8("getCount")
	methodDesc := cp.addUtf8("()I")

	code := []byte{byte(OpGetstatic), byte(fieldRef >> 8), byte(fieldRef), byte(OpIreturn)}
	data := buildClass(cp, thisIdx, superIdx, []fieldSpec{
		{access: AccStatic | AccPublic, nameIdx: countName, descIdx: countDesc, constIdx: countConst},
	}, []methodSpec{
		{access: AccPublic | AccStatic, nameIdx: methodName, descIdx: methodDesc, maxStack: 1, maxLocals: 0, code: code},
	})

	m := NewMachine()
	m.LoadNativeBootstrap()
	cls, err := m.LoadClass(data)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, cls.state == stateUninitialized, "expected class to start uninitialized")

	v, hasResult, err := m.InvokeStatic(0, "Sample", "getCount", "()I", nil)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, hasResult, "expected a return value")
	assert(t, v.I == 7, "result = %d, want 7", v.I)
	assert(t, cls.state == stateInitialized, "expected class to be initialized after getstatic")
}

func TestInterpDivideByZeroCaught(t *testing.T) {
	cp := newCPBuilder()
	thisIdx := cp.addClass("Sample")
	superIdx := cp.addClass("java/lang/Object")
	name := cp.addUtf8("safeDivide")
	desc := cp.addUtf8("()I")

	// 0: iconst_1
	// 1: iconst_0
	// 2: idiv          -- throws ArithmeticException
	// 3: ireturn        (unreached on the happy path)
	// handler @4: pop the pushed exception ref, push -1, return
	code := []byte{
		byte(OpIconst1), byte(OpIconst0), byte(OpIdiv), byte(OpIreturn),
		byte(OpPop), byte(OpIconstM1), byte(OpIreturn),
	}
	exc := []ExceptionTableEntry{{StartPC: 0, EndPC: 3, HandlerPC: 4, CatchType: 0}}

	data := buildClass(cp, thisIdx, superIdx, nil, []methodSpec{
		{access: AccPublic | AccStatic, nameIdx: name, descIdx: desc, maxStack: 2, maxLocals: 0, code: code, exc: exc},
	})

	m := NewMachine()
	m.LoadNativeBootstrap()
	_, err := m.LoadClass(data)
	assert(t, err == nil, "unexpected error: %v", err)

	v, hasResult, err := m.InvokeStatic(0, "Sample", "safeDivide", "()I", nil)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, hasResult, "expected a return value")
	assert(t, v.I == -1, "result = %d, want -1 (handler ran)", v.I)
}

func TestInterpDivideByZeroUncaught(t *testing.T) {
	cp := newCPBuilder()
	thisIdx := cp.addClass("Sample")
	superIdx := cp.addClass("java/lang/Object")
	name := cp.addUtf8("divide")
	desc := cp.addUtf8("()I")
	code := []byte{byte(OpIconst1), byte(OpIconst0), byte(OpIdiv), byte(OpIreturn)}
	data := buildClass(cp, thisIdx, superIdx, nil, []methodSpec{
		{access: AccPublic | AccStatic, nameIdx: name, descIdx: desc, maxStack: 2, maxLocals: 0, code: code},
	})

	m := NewMachine()
	m.LoadNativeBootstrap()
	_, err := m.LoadClass(data)
	assert(t, err == nil, "unexpected error: %v", err)

	_, _, err = m.InvokeStatic(0, "Sample", "divide", "()I", nil)
	assert(t, err != nil, "expected an error")
	assert(t, errors.Is(err, ErrUncaughtException), "expected ErrUncaughtException, got %v", err)
}

func TestInterpStackOverflow(t *testing.T) {
	cp := newCPBuilder()
	thisIdx := cp.addClass("Sample")
	superIdx := cp.addClass("java/lang/Object")
	name := cp.addUtf8("loop")
	desc := cp.addUtf8("()V")
	selfRef := cp.addMethodref("Sample", "loop", "()V")

	code := []byte{
		byte(OpInvokestatic), byte(selfRef >> 8), byte(selfRef),
		byte(OpReturn),
	}
	data := buildClass(cp, thisIdx, superIdx, nil, []methodSpec{
		{access: AccPublic | AccStatic, nameIdx: name, descIdx: desc, maxStack: 0, maxLocals: 1, code: code},
	})

	m := NewMachine()
	m.LoadNativeBootstrap()
	_, err := m.LoadClass(data)
	assert(t, err == nil, "unexpected error: %v", err)

	_, _, err = m.InvokeStatic(0, "Sample", "loop", "()V", nil)
	assert(t, err != nil, "expected an error")
	assert(t, errors.Is(err, ErrStackOverflow), "expected ErrStackOverflow, got %v", err)
}
