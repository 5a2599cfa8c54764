package classvm

import (
	"math"

	"github.com/pkg/errors"
)

// Run executes t starting from its current topmost frame until that
// frame, and everything it transitively calls, returns; an uncaught
// exception or decode/arithmetic error ends the run early.
func (m *Machine) Run(t *Thread) (Value, bool, error) {
	initialDepth := len(t.frames)
	if initialDepth == 0 {
		return Value{}, false, errors.New("no frame pushed on thread")
	}
	for {
		fr := t.Current()
		if fr == nil {
			return Value{}, false, nil
		}
		ret, hasRet, final, err := m.step(t)
		if err != nil {
			return Value{}, false, err
		}
		if final {
			return ret, hasRet, nil
		}
		if len(t.frames) < initialDepth {
			// The frame we started at returned and its value (if any)
			// was already delivered to its caller by step; nothing
			// further to report to this Run's caller for that depth,
			// but since initialDepth's frame is gone, this Run is done.
			return ret, hasRet, nil
		}
	}
}

// step decodes and executes exactly one instruction on t's current
// frame. final is true when the returning frame was the last one on the
// thread, at which point ret/hasRet carry its result, and also whenever
// err is non-nil (a decode error, a non-catchable error, or an uncaught
// exception).
func (m *Machine) step(t *Thread) (ret Value, hasRet bool, final bool, err error) {
	fr := t.Current()
	code := fr.Method.Code.Code
	instr, derr := NextOp(code, fr.PC)
	if derr != nil {
		return Value{}, false, true, derr
	}
	if m.Trace != nil {
		m.Trace(t, fr, instr)
	}

	fr.faultPC = instr.PC
	nextPC := fr.PC + instr.Length
	fr.PC = nextPC

	outcome, rv, hasRv, oerr := m.exec(t, fr, instr)
	if oerr != nil {
		if !isCatchable(oerr) {
			return Value{}, false, true, oerr
		}
		handled, herr := m.dispatchException(t, oerr)
		if herr != nil {
			return Value{}, false, true, herr
		}
		if handled {
			return Value{}, false, false, nil
		}
		return Value{}, false, true, errors.Wrap(ErrUncaughtException, oerr.Error())
	}

	switch outcome {
	case outContinue:
		return Value{}, false, false, nil
	case outBranch:
		fr.PC = instr.PC + int(instr.Branch)
		return Value{}, false, false, nil
	case outReturn:
		t.PopFrame()
		caller := t.Current()
		if caller == nil {
			return rv, hasRv, true, nil
		}
		if hasRv {
			if err := t.Push(caller, rv); err != nil {
				return Value{}, false, true, err
			}
		}
		return Value{}, false, false, nil
	}
	return Value{}, false, false, nil
}

// isCatchable reports whether oerr represents a bytecode-level exception
// that Java exception tables can intercept, as opposed to a host-level
// decode/index/resource error that always terminates the thread.
func isCatchable(oerr error) bool {
	if errors.Is(oerr, ErrArithmeticException) {
		return true
	}
	_, ok := oerr.(*ThrownError)
	return ok
}

type execOutcome int

const (
	outContinue execOutcome = iota
	outBranch
	outReturn
)

// dispatchException walks t's frames from the top down looking for an
// exception table entry whose range covers the frame's current PC
// (PC at the moment it last paused, either at the fault site or at an
// invoke it is waiting on) and whose catch type matches excClass or is
// the catch-all (0). On a match it truncates the frame stack to that
// frame, clears its operand stack, pushes the exception reference, and
// resumes at the handler PC.
func (m *Machine) dispatchException(t *Thread, cause error) (bool, error) {
	excClass := "java/lang/Throwable"
	if errors.Is(cause, ErrArithmeticException) {
		excClass = "java/lang/ArithmeticException"
	} else if te, ok := cause.(*ThrownError); ok {
		excClass = te.Class
	}
	for i := len(t.frames) - 1; i >= 0; i-- {
		fr := t.frames[i]
		pc := fr.faultPC
		for _, e := range fr.Method.Code.ExceptionTable {
			if pc < e.StartPC || pc >= e.EndPC {
				continue
			}
			if e.CatchType != 0 {
				name, err := fr.Class.nameAt(e.CatchType)
				if err != nil {
					continue
				}
				if name != excClass {
					continue
				}
			}
			t.frames = t.frames[:i+1]
			fr.StackTop = 0
			fr.PC = e.HandlerPC
			_ = t.Push(fr, RefValue(&ObjectRef{Class: excClass}))
			return true, nil
		}
	}
	return false, nil
}

// exec performs the effect of a single already-fetched instruction,
// reporting how control should continue. Opcodes that need a heap or
// object model this interpreter does not implement return
// ErrUnsupportedOperation, a deliberate scope boundary (see
// SPEC_FULL.md's component notes for 4.7).
func (m *Machine) exec(t *Thread, fr *Frame, instr Instruction) (execOutcome, Value, bool, error) {
	cp := fr.Class.constantPool()

	switch instr.Opcode {
	case OpNop:
		return outContinue, Value{}, false, nil

	case OpAconstNull:
		return outContinue, Value{}, false, t.Push(fr, NullValue())
	case OpIconstM1:
		return outContinue, Value{}, false, t.Push(fr, IntValue(-1))
	case OpIconst0:
		return outContinue, Value{}, false, t.Push(fr, IntValue(0))
	case OpIconst1:
		return outContinue, Value{}, false, t.Push(fr, IntValue(1))
	case OpIconst2:
		return outContinue, Value{}, false, t.Push(fr, IntValue(2))
	case OpIconst3:
		return outContinue, Value{}, false, t.Push(fr, IntValue(3))
	case OpIconst4:
		return outContinue, Value{}, false, t.Push(fr, IntValue(4))
	case OpIconst5:
		return outContinue, Value{}, false, t.Push(fr, IntValue(5))
	case OpLconst0:
		return outContinue, Value{}, false, t.Push(fr, LongValue(0))
	case OpLconst1:
		return outContinue, Value{}, false, t.Push(fr, LongValue(1))
	case OpFconst0:
		return outContinue, Value{}, false, t.Push(fr, FloatValue(0))
	case OpFconst1:
		return outContinue, Value{}, false, t.Push(fr, FloatValue(1))
	case OpFconst2:
		return outContinue, Value{}, false, t.Push(fr, FloatValue(2))
	case OpDconst0:
		return outContinue, Value{}, false, t.Push(fr, DoubleValue(0))
	case OpDconst1:
		return outContinue, Value{}, false, t.Push(fr, DoubleValue(1))

	case OpBipush, OpSipush:
		return outContinue, Value{}, false, t.Push(fr, IntValue(instr.Const))

	case OpLdc, OpLdcW, OpLdc2W:
		v, err := cp.GetLoadableValue(instr.Index)
		if err != nil {
			return 0, Value{}, false, err
		}
		return outContinue, Value{}, false, t.Push(fr, v)

	case OpIload, OpFload, OpAload, OpIload0, OpIload1, OpIload2, OpIload3,
		OpFload0, OpFload1, OpFload2, OpFload3, OpAload0, OpAload1, OpAload2, OpAload3,
		OpLload, OpDload, OpLload0, OpLload1, OpLload2, OpLload3, OpDload0, OpDload1, OpDload2, OpDload3:
		idx := localIndexFor(instr)
		v, err := t.Local(fr, idx)
		if err != nil {
			return 0, Value{}, false, err
		}
		return outContinue, Value{}, false, t.Push(fr, v)

	case OpIstore, OpFstore, OpAstore, OpIstore0, OpIstore1, OpIstore2, OpIstore3,
		OpFstore0, OpFstore1, OpFstore2, OpFstore3, OpAstore0, OpAstore1, OpAstore2, OpAstore3,
		OpLstore, OpDstore, OpLstore0, OpLstore1, OpLstore2, OpLstore3, OpDstore0, OpDstore1, OpDstore2, OpDstore3:
		idx := localIndexFor(instr)
		v, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		return outContinue, Value{}, false, t.SetLocal(fr, idx, v)

	case OpIaload, OpLaload, OpFaload, OpDaload, OpAaload, OpBaload, OpCaload, OpSaload,
		OpIastore, OpLastore, OpFastore, OpDastore, OpAastore, OpBastore, OpCastore, OpSastore,
		OpArraylength, OpNewarray, OpAnewarray, OpMultianewarray,
		OpGetfield, OpPutfield, OpCheckcast, OpInstanceof, OpInvokedynamic:
		return 0, Value{}, false, errors.Wrapf(ErrUnsupportedOperation, "%s", instr.Name())

	case OpPop:
		_, err := t.Pop(fr)
		return outContinue, Value{}, false, err
	case OpPop2:
		if _, err := t.Pop(fr); err != nil {
			return 0, Value{}, false, err
		}
		_, err := t.Pop(fr)
		return outContinue, Value{}, false, err
	case OpDup:
		v, err := t.Peek(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		return outContinue, Value{}, false, t.Push(fr, v)
	case OpDupX1:
		a, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		b, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		if err := t.Push(fr, a); err != nil {
			return 0, Value{}, false, err
		}
		if err := t.Push(fr, b); err != nil {
			return 0, Value{}, false, err
		}
		return outContinue, Value{}, false, t.Push(fr, a)
	case OpSwap:
		a, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		b, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		if err := t.Push(fr, a); err != nil {
			return 0, Value{}, false, err
		}
		return outContinue, Value{}, false, t.Push(fr, b)
	case OpDup2, OpDup2X1, OpDup2X2, OpDupX2:
		// These reorder raw 32-bit words around category-2 values; this
		// interpreter stores long/double in a single Value slot (see
		// value.go), so the two-word variants collapse to their
		// single-slot analogues dup/dup_x1/dup_x2 for correctness at the
		// level this core supports.
		v, err := t.Peek(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		return outContinue, Value{}, false, t.Push(fr, v)

	case OpIadd, OpLadd, OpFadd, OpDadd, OpIsub, OpLsub, OpFsub, OpDsub,
		OpImul, OpLmul, OpFmul, OpDmul, OpIdiv, OpLdiv, OpFdiv, OpDdiv,
		OpIrem, OpLrem, OpFrem, OpDrem,
		OpIand, OpLand, OpIor, OpLor, OpIxor, OpLxor,
		OpIshl, OpLshl, OpIshr, OpLshr, OpIushr, OpLushr:
		return m.execBinary(t, fr, instr.Opcode)

	case OpIneg, OpLneg, OpFneg, OpDneg:
		return m.execUnary(t, fr, instr.Opcode)

	case OpIinc:
		v, err := t.Local(fr, instr.Local)
		if err != nil {
			return 0, Value{}, false, err
		}
		return outContinue, Value{}, false, t.SetLocal(fr, instr.Local, IntValue(v.I+instr.Const))

	case OpI2l:
		v, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		return outContinue, Value{}, false, t.Push(fr, LongValue(int64(v.I)))
	case OpI2f:
		v, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		return outContinue, Value{}, false, t.Push(fr, FloatValue(float32(v.I)))
	case OpI2d:
		v, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		return outContinue, Value{}, false, t.Push(fr, DoubleValue(float64(v.I)))
	case OpL2i:
		v, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		return outContinue, Value{}, false, t.Push(fr, IntValue(int32(v.L)))
	case OpL2f:
		v, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		return outContinue, Value{}, false, t.Push(fr, FloatValue(float32(v.L)))
	case OpL2d:
		v, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		return outContinue, Value{}, false, t.Push(fr, DoubleValue(float64(v.L)))
	case OpF2i:
		v, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		return outContinue, Value{}, false, t.Push(fr, IntValue(d2i(float64(v.F))))
	case OpF2l:
		v, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		return outContinue, Value{}, false, t.Push(fr, LongValue(d2l(float64(v.F))))
	case OpF2d:
		v, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		return outContinue, Value{}, false, t.Push(fr, DoubleValue(float64(v.F)))
	case OpD2i:
		v, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		return outContinue, Value{}, false, t.Push(fr, IntValue(d2i(v.D)))
	case OpD2l:
		v, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		return outContinue, Value{}, false, t.Push(fr, LongValue(d2l(v.D)))
	case OpD2f:
		v, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		return outContinue, Value{}, false, t.Push(fr, FloatValue(float32(v.D)))
	case OpI2b:
		v, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		return outContinue, Value{}, false, t.Push(fr, IntValue(int32(int8(v.I))))
	case OpI2c:
		v, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		return outContinue, Value{}, false, t.Push(fr, IntValue(int32(uint16(v.I))))
	case OpI2s:
		v, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		return outContinue, Value{}, false, t.Push(fr, IntValue(int32(int16(v.I))))

	case OpLcmp:
		b, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		a, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		return outContinue, Value{}, false, t.Push(fr, IntValue(int32(threeWay(a.L, b.L))))
	case OpFcmpl, OpFcmpg:
		b, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		a, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		if math.IsNaN(float64(a.F)) || math.IsNaN(float64(b.F)) {
			if instr.Opcode == OpFcmpl {
				return outContinue, Value{}, false, t.Push(fr, IntValue(-1))
			}
			return outContinue, Value{}, false, t.Push(fr, IntValue(1))
		}
		return outContinue, Value{}, false, t.Push(fr, IntValue(int32(threeWayF(float64(a.F), float64(b.F)))))
	case OpDcmpl, OpDcmpg:
		b, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		a, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		if math.IsNaN(a.D) || math.IsNaN(b.D) {
			if instr.Opcode == OpDcmpl {
				return outContinue, Value{}, false, t.Push(fr, IntValue(-1))
			}
			return outContinue, Value{}, false, t.Push(fr, IntValue(1))
		}
		return outContinue, Value{}, false, t.Push(fr, IntValue(int32(threeWayF(a.D, b.D))))

	case OpIfeq, OpIfne, OpIflt, OpIfge, OpIfgt, OpIfle:
		v, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		return branchIf(compareToZero(v.I, instr.Opcode)), Value{}, false, nil

	case OpIfIcmpeq, OpIfIcmpne, OpIfIcmplt, OpIfIcmpge, OpIfIcmpgt, OpIfIcmple:
		b, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		a, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		return branchIf(compareIntPair(a.I, b.I, instr.Opcode)), Value{}, false, nil

	case OpIfAcmpeq, OpIfAcmpne:
		b, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		a, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		eq := a.Ref == b.Ref
		if instr.Opcode == OpIfAcmpne {
			eq = !eq
		}
		return branchIf(eq), Value{}, false, nil

	case OpIfnull, OpIfnonnull:
		v, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		isNull := v.Ref == nil
		if instr.Opcode == OpIfnonnull {
			isNull = !isNull
		}
		return branchIf(isNull), Value{}, false, nil

	case OpGoto, OpGotoW:
		return outBranch, Value{}, false, nil
	case OpJsr, OpJsrW:
		if err := t.Push(fr, IntValue(int32(fr.PC))); err != nil {
			return 0, Value{}, false, err
		}
		return outBranch, Value{}, false, nil
	case OpRet:
		v, err := t.Local(fr, instr.Local)
		if err != nil {
			return 0, Value{}, false, err
		}
		fr.PC = int(v.I)
		return outContinue, Value{}, false, nil

	case OpTableswitch:
		v, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		offset := instr.Table.Default
		if v.I >= instr.Table.Low && v.I <= instr.Table.High {
			offset = instr.Table.Offsets[v.I-instr.Table.Low]
		}
		fr.PC = instr.PC + int(offset)
		return outContinue, Value{}, false, nil
	case OpLookupswitch:
		v, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		offset := instr.Lookup.Default
		for _, pair := range instr.Lookup.Pairs {
			if pair[0] == v.I {
				offset = pair[1]
				break
			}
		}
		fr.PC = instr.PC + int(offset)
		return outContinue, Value{}, false, nil

	case OpIreturn, OpFreturn, OpAreturn:
		v, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		return outReturn, v, true, nil
	case OpLreturn, OpDreturn:
		v, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		return outReturn, v, true, nil
	case OpReturn:
		return outReturn, Value{}, false, nil

	case OpGetstatic:
		ref, err := cp.GetMemberRef(instr.Index)
		if err != nil {
			return 0, Value{}, false, err
		}
		if err := m.Registry.EnsureInitialized(ref.ClassName); err != nil {
			return 0, Value{}, false, err
		}
		owner, err := m.Registry.GetClass(ref.ClassName)
		if err != nil {
			return 0, Value{}, false, err
		}
		v, err := owner.getStatic(ref.Name, ref.Desc)
		if err != nil {
			return 0, Value{}, false, err
		}
		return outContinue, Value{}, false, t.Push(fr, v)
	case OpPutstatic:
		ref, err := cp.GetMemberRef(instr.Index)
		if err != nil {
			return 0, Value{}, false, err
		}
		if err := m.Registry.EnsureInitialized(ref.ClassName); err != nil {
			return 0, Value{}, false, err
		}
		owner, err := m.Registry.GetClass(ref.ClassName)
		if err != nil {
			return 0, Value{}, false, err
		}
		v, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		owner.setStatic(ref.Name, ref.Desc, v)
		return outContinue, Value{}, false, nil

	case OpInvokestatic:
		return m.execInvoke(t, fr, cp, instr, false)
	case OpInvokespecial, OpInvokevirtual, OpInvokeinterface:
		return m.execInvoke(t, fr, cp, instr, true)

	case OpNew:
		name, err := cp.GetClassName(instr.Index)
		if err != nil {
			return 0, Value{}, false, err
		}
		if err := m.Registry.EnsureInitialized(name); err != nil {
			return 0, Value{}, false, err
		}
		return outContinue, Value{}, false, t.Push(fr, RefValue(&ObjectRef{Class: name}))

	case OpAthrow:
		v, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		className := "java/lang/Throwable"
		if v.Ref != nil {
			className = v.Ref.Class
		}
		return 0, Value{}, false, &ThrownError{Class: className}

	case OpMonitorenter, OpMonitorexit:
		// No real monitor model in this core; pop the objectref and
		// continue (see SPEC_FULL.md Non-goals).
		_, err := t.Pop(fr)
		return outContinue, Value{}, false, err

	case OpWide, OpBreakpoint:
		return 0, Value{}, false, errors.Wrapf(ErrUnsupportedOperation, "%s", instr.Name())

	default:
		return 0, Value{}, false, errors.Wrapf(ErrUnsupportedOperation, "%s", instr.Name())
	}
}

// localIndexFor returns the local variable index an *_N-suffixed opcode
// implies, or instr.Local for the general u1/wide-u2 forms.
func localIndexFor(instr Instruction) int {
	switch instr.Opcode {
	case OpIload0, OpFload0, OpAload0, OpLload0, OpDload0,
		OpIstore0, OpFstore0, OpAstore0, OpLstore0, OpDstore0:
		return 0
	case OpIload1, OpFload1, OpAload1, OpLload1, OpDload1,
		OpIstore1, OpFstore1, OpAstore1, OpLstore1, OpDstore1:
		return 1
	case OpIload2, OpFload2, OpAload2, OpLload2, OpDload2,
		OpIstore2, OpFstore2, OpAstore2, OpLstore2, OpDstore2:
		return 2
	case OpIload3, OpFload3, OpAload3, OpLload3, OpDload3,
		OpIstore3, OpFstore3, OpAstore3, OpLstore3, OpDstore3:
		return 3
	default:
		return instr.Local
	}
}

func branchIf(cond bool) execOutcome {
	if cond {
		return outBranch
	}
	return outContinue
}

func compareToZero(v int32, op Opcode) bool {
	switch op {
	case OpIfeq:
		return v == 0
	case OpIfne:
		return v != 0
	case OpIflt:
		return v < 0
	case OpIfge:
		return v >= 0
	case OpIfgt:
		return v > 0
	case OpIfle:
		return v <= 0
	}
	return false
}

func compareIntPair(a, b int32, op Opcode) bool {
	switch op {
	case OpIfIcmpeq:
		return a == b
	case OpIfIcmpne:
		return a != b
	case OpIfIcmplt:
		return a < b
	case OpIfIcmpge:
		return a >= b
	case OpIfIcmpgt:
		return a > b
	case OpIfIcmple:
		return a <= b
	}
	return false
}

func threeWay(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func threeWayF(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func d2i(d float64) int32 {
	if math.IsNaN(d) {
		return 0
	}
	if d >= 2147483647.0 {
		return math.MaxInt32
	}
	if d <= -2147483648.0 {
		return math.MinInt32
	}
	return int32(d)
}

func d2l(d float64) int64 {
	if math.IsNaN(d) {
		return 0
	}
	if d >= 9223372036854775807.0 {
		return math.MaxInt64
	}
	if d <= -9223372036854775808.0 {
		return math.MinInt64
	}
	return int64(d)
}

// execBinary handles every two-operand arithmetic/bitwise opcode.
// Integer/long arithmetic wraps silently (Go's fixed-width signed
// integer ops are already two's-complement wrapping); division/
// remainder by zero on integral types raises ErrArithmeticException;
// floating point division by zero follows IEEE-754 (+-Inf/NaN) via Go's
// native float division, so no special case is needed there.
func (m *Machine) execBinary(t *Thread, fr *Frame, op Opcode) (execOutcome, Value, bool, error) {
	b, err := t.Pop(fr)
	if err != nil {
		return 0, Value{}, false, err
	}
	a, err := t.Pop(fr)
	if err != nil {
		return 0, Value{}, false, err
	}
	switch op {
	case OpIadd:
		return outContinue, Value{}, false, t.Push(fr, IntValue(a.I+b.I))
	case OpLadd:
		return outContinue, Value{}, false, t.Push(fr, LongValue(a.L+b.L))
	case OpFadd:
		return outContinue, Value{}, false, t.Push(fr, FloatValue(a.F+b.F))
	case OpDadd:
		return outContinue, Value{}, false, t.Push(fr, DoubleValue(a.D+b.D))
	case OpIsub:
		return outContinue, Value{}, false, t.Push(fr, IntValue(a.I-b.I))
	case OpLsub:
		return outContinue, Value{}, false, t.Push(fr, LongValue(a.L-b.L))
	case OpFsub:
		return outContinue, Value{}, false, t.Push(fr, FloatValue(a.F-b.F))
	case OpDsub:
		return outContinue, Value{}, false, t.Push(fr, DoubleValue(a.D-b.D))
	case OpImul:
		return outContinue, Value{}, false, t.Push(fr, IntValue(a.I*b.I))
	case OpLmul:
		return outContinue, Value{}, false, t.Push(fr, LongValue(a.L*b.L))
	case OpFmul:
		return outContinue, Value{}, false, t.Push(fr, FloatValue(a.F*b.F))
	case OpDmul:
		return outContinue, Value{}, false, t.Push(fr, DoubleValue(a.D*b.D))
	case OpIdiv:
		if b.I == 0 {
			return 0, Value{}, false, ErrArithmeticException
		}
		return outContinue, Value{}, false, t.Push(fr, IntValue(a.I/b.I))
	case OpLdiv:
		if b.L == 0 {
			return 0, Value{}, false, ErrArithmeticException
		}
		return outContinue, Value{}, false, t.Push(fr, LongValue(a.L/b.L))
	case OpFdiv:
		return outContinue, Value{}, false, t.Push(fr, FloatValue(a.F/b.F))
	case OpDdiv:
		return outContinue, Value{}, false, t.Push(fr, DoubleValue(a.D/b.D))
	case OpIrem:
		if b.I == 0 {
			return 0, Value{}, false, ErrArithmeticException
		}
		return outContinue, Value{}, false, t.Push(fr, IntValue(a.I%b.I))
	case OpLrem:
		if b.L == 0 {
			return 0, Value{}, false, ErrArithmeticException
		}
		return outContinue, Value{}, false, t.Push(fr, LongValue(a.L%b.L))
	case OpFrem:
		return outContinue, Value{}, false, t.Push(fr, FloatValue(float32(math.Mod(float64(a.F), float64(b.F)))))
	case OpDrem:
		return outContinue, Value{}, false, t.Push(fr, DoubleValue(math.Mod(a.D, b.D)))
	case OpIand:
		return outContinue, Value{}, false, t.Push(fr, IntValue(a.I&b.I))
	case OpLand:
		return outContinue, Value{}, false, t.Push(fr, LongValue(a.L&b.L))
	case OpIor:
		return outContinue, Value{}, false, t.Push(fr, IntValue(a.I|b.I))
	case OpLor:
		return outContinue, Value{}, false, t.Push(fr, LongValue(a.L|b.L))
	case OpIxor:
		return outContinue, Value{}, false, t.Push(fr, IntValue(a.I^b.I))
	case OpLxor:
		return outContinue, Value{}, false, t.Push(fr, LongValue(a.L^b.L))
	case OpIshl:
		return outContinue, Value{}, false, t.Push(fr, IntValue(a.I<<(uint32(b.I)&0x1f)))
	case OpLshl:
		return outContinue, Value{}, false, t.Push(fr, LongValue(a.L<<(uint64(b.I)&0x3f)))
	case OpIshr:
		return outContinue, Value{}, false, t.Push(fr, IntValue(a.I>>(uint32(b.I)&0x1f)))
	case OpLshr:
		return outContinue, Value{}, false, t.Push(fr, LongValue(a.L>>(uint64(b.I)&0x3f)))
	case OpIushr:
		return outContinue, Value{}, false, t.Push(fr, IntValue(int32(uint32(a.I)>>(uint32(b.I)&0x1f))))
	case OpLushr:
		return outContinue, Value{}, false, t.Push(fr, LongValue(int64(uint64(a.L)>>(uint64(b.I)&0x3f))))
	}
	return 0, Value{}, false, errors.Wrapf(ErrMalformedBytecode, "unhandled binary opcode 0x%02x", byte(op))
}

func (m *Machine) execUnary(t *Thread, fr *Frame, op Opcode) (execOutcome, Value, bool, error) {
	v, err := t.Pop(fr)
	if err != nil {
		return 0, Value{}, false, err
	}
	switch op {
	case OpIneg:
		return outContinue, Value{}, false, t.Push(fr, IntValue(-v.I))
	case OpLneg:
		return outContinue, Value{}, false, t.Push(fr, LongValue(-v.L))
	case OpFneg:
		return outContinue, Value{}, false, t.Push(fr, FloatValue(-v.F))
	case OpDneg:
		return outContinue, Value{}, false, t.Push(fr, DoubleValue(-v.D))
	}
	return 0, Value{}, false, errors.Wrapf(ErrMalformedBytecode, "unhandled unary opcode 0x%02x", byte(op))
}

// execInvoke resolves and dispatches invokestatic/invokespecial/
// invokevirtual/invokeinterface. Only invokestatic and invokespecial
// have precise semantics here (static binding, no receiver polymorphism
// needed); invokevirtual/invokeinterface fall back to the same static
// lookup since this core carries no real object/vtable model -- a
// documented best-effort, not full dynamic dispatch.
func (m *Machine) execInvoke(t *Thread, fr *Frame, cp *ConstantPool, instr Instruction, hasReceiver bool) (execOutcome, Value, bool, error) {
	ref, err := cp.GetMemberRef(instr.Index)
	if err != nil {
		return 0, Value{}, false, err
	}
	if err := m.Registry.EnsureInitialized(ref.ClassName); err != nil {
		return 0, Value{}, false, err
	}
	cls, err := m.Registry.GetClass(ref.ClassName)
	if err != nil {
		return 0, Value{}, false, err
	}
	owner, method, err := m.Registry.resolveMethod(cls, ref.Name, ref.Desc)
	if err != nil {
		return 0, Value{}, false, err
	}

	desc, err := ParseMethodDescriptor(ref.Desc)
	if err != nil {
		return 0, Value{}, false, err
	}

	argCount := len(desc.Params)
	if hasReceiver {
		argCount++
	}
	args := make([]Value, argCount)
	for i := argCount - 1; i >= 0; i-- {
		v, err := t.Pop(fr)
		if err != nil {
			return 0, Value{}, false, err
		}
		args[i] = v
	}

	if method.Code == nil {
		return 0, Value{}, false, errors.Wrapf(ErrUnsupportedOperation, "native method %s%s on %s has no implementation", ref.Name, ref.Desc, owner.Name)
	}

	callee, err := t.PushFrame(owner, method)
	if err != nil {
		return 0, Value{}, false, err
	}
	slot := 0
	for _, a := range args {
		if slot >= callee.Locals {
			break
		}
		if err := t.SetLocal(callee, slot, a); err != nil {
			return 0, Value{}, false, err
		}
		slot++
		if a.Kind == VLong || a.Kind == VDouble {
			slot++ // long/double arguments take two local indices
		}
	}
	return outContinue, Value{}, false, nil
}
