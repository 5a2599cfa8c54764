package classvm

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Opcode is a single JVM bytecode instruction byte, 0x00-0xca.
type Opcode byte

// The full assigned opcode range. Mnemonics follow the JVM specification
// exactly so opcode.go reads as a direct transcription of the table, not
// an invention.
const (
	OpNop             Opcode = 0x00
	OpAconstNull      Opcode = 0x01
	OpIconstM1        Opcode = 0x02
	OpIconst0         Opcode = 0x03
	OpIconst1         Opcode = 0x04
	OpIconst2         Opcode = 0x05
	OpIconst3         Opcode = 0x06
	OpIconst4         Opcode = 0x07
	OpIconst5         Opcode = 0x08
	OpLconst0         Opcode = 0x09
	OpLconst1         Opcode = 0x0a
	OpFconst0         Opcode = 0x0b
	OpFconst1         Opcode = 0x0c
	OpFconst2         Opcode = 0x0d
	OpDconst0         Opcode = 0x0e
	OpDconst1         Opcode = 0x0f
	OpBipush          Opcode = 0x10
	OpSipush          Opcode = 0x11
	OpLdc             Opcode = 0x12
	OpLdcW            Opcode = 0x13
	OpLdc2W           Opcode = 0x14
	OpIload           Opcode = 0x15
	OpLload           Opcode = 0x16
	OpFload           Opcode = 0x17
	OpDload           Opcode = 0x18
	OpAload           Opcode = 0x19
	OpIload0          Opcode = 0x1a
	OpIload1          Opcode = 0x1b
	OpIload2          Opcode = 0x1c
	OpIload3          Opcode = 0x1d
	OpLload0          Opcode = 0x1e
	OpLload1          Opcode = 0x1f
	OpLload2          Opcode = 0x20
	OpLload3          Opcode = 0x21
	OpFload0          Opcode = 0x22
	OpFload1          Opcode = 0x23
	OpFload2          Opcode = 0x24
	OpFload3          Opcode = 0x25
	OpDload0          Opcode = 0x26
	OpDload1          Opcode = 0x27
	OpDload2          Opcode = 0x28
	OpDload3          Opcode = 0x29
	OpAload0          Opcode = 0x2a
	OpAload1          Opcode = 0x2b
	OpAload2          Opcode = 0x2c
	OpAload3          Opcode = 0x2d
	OpIaload          Opcode = 0x2e
	OpLaload          Opcode = 0x2f
	OpFaload          Opcode = 0x30
	OpDaload          Opcode = 0x31
	OpAaload          Opcode = 0x32
	OpBaload          Opcode = 0x33
	OpCaload          Opcode = 0x34
	OpSaload          Opcode = 0x35
	OpIstore          Opcode = 0x36
	OpLstore          Opcode = 0x37
	OpFstore          Opcode = 0x38
	OpDstore          Opcode = 0x39
	OpAstore          Opcode = 0x3a
	OpIstore0         Opcode = 0x3b
	OpIstore1         Opcode = 0x3c
	OpIstore2         Opcode = 0x3d
	OpIstore3         Opcode = 0x3e
	OpLstore0         Opcode = 0x3f
	OpLstore1         Opcode = 0x40
	OpLstore2         Opcode = 0x41
	OpLstore3         Opcode = 0x42
	OpFstore0         Opcode = 0x43
	OpFstore1         Opcode = 0x44
	OpFstore2         Opcode = 0x45
	OpFstore3         Opcode = 0x46
	OpDstore0         Opcode = 0x47
	OpDstore1         Opcode = 0x48
	OpDstore2         Opcode = 0x49
	OpDstore3         Opcode = 0x4a
	OpAstore0         Opcode = 0x4b
	OpAstore1         Opcode = 0x4c
	OpAstore2         Opcode = 0x4d
	OpAstore3         Opcode = 0x4e
	OpIastore         Opcode = 0x4f
	OpLastore         Opcode = 0x50
	OpFastore         Opcode = 0x51
	OpDastore         Opcode = 0x52
	OpAastore         Opcode = 0x53
	OpBastore         Opcode = 0x54
	OpCastore         Opcode = 0x55
	OpSastore         Opcode = 0x56
	OpPop             Opcode = 0x57
	OpPop2            Opcode = 0x58
	OpDup             Opcode = 0x59
	OpDupX1           Opcode = 0x5a
	OpDupX2           Opcode = 0x5b
	OpDup2            Opcode = 0x5c
	OpDup2X1          Opcode = 0x5d
	OpDup2X2          Opcode = 0x5e
	OpSwap            Opcode = 0x5f
	OpIadd            Opcode = 0x60
	OpLadd            Opcode = 0x61
	OpFadd            Opcode = 0x62
	OpDadd            Opcode = 0x63
	OpIsub            Opcode = 0x64
	OpLsub            Opcode = 0x65
	OpFsub            Opcode = 0x66
	OpDsub            Opcode = 0x67
	OpImul            Opcode = 0x68
	OpLmul            Opcode = 0x69
	OpFmul            Opcode = 0x6a
	OpDmul            Opcode = 0x6b
	OpIdiv            Opcode = 0x6c
	OpLdiv            Opcode = 0x6d
	OpFdiv            Opcode = 0x6e
	OpDdiv            Opcode = 0x6f
	OpIrem            Opcode = 0x70
	OpLrem            Opcode = 0x71
	OpFrem            Opcode = 0x72
	OpDrem            Opcode = 0x73
	OpIneg            Opcode = 0x74
	OpLneg            Opcode = 0x75
	OpFneg            Opcode = 0x76
	OpDneg            Opcode = 0x77
	OpIshl            Opcode = 0x78
	OpLshl            Opcode = 0x79
	OpIshr            Opcode = 0x7a
	OpLshr            Opcode = 0x7b
	OpIushr           Opcode = 0x7c
	OpLushr           Opcode = 0x7d
	OpIand            Opcode = 0x7e
	OpLand            Opcode = 0x7f
	OpIor             Opcode = 0x80
	OpLor             Opcode = 0x81
	OpIxor            Opcode = 0x82
	OpLxor            Opcode = 0x83
	OpIinc            Opcode = 0x84
	OpI2l             Opcode = 0x85
	OpI2f             Opcode = 0x86
	OpI2d             Opcode = 0x87
	OpL2i             Opcode = 0x88
	OpL2f             Opcode = 0x89
	OpL2d             Opcode = 0x8a
	OpF2i             Opcode = 0x8b
	OpF2l             Opcode = 0x8c
	OpF2d             Opcode = 0x8d
	OpD2i             Opcode = 0x8e
	OpD2l             Opcode = 0x8f
	OpD2f             Opcode = 0x90
	OpI2b             Opcode = 0x91
	OpI2c             Opcode = 0x92
	OpI2s             Opcode = 0x93
	OpLcmp            Opcode = 0x94
	OpFcmpl           Opcode = 0x95
	OpFcmpg           Opcode = 0x96
	OpDcmpl           Opcode = 0x97
	OpDcmpg           Opcode = 0x98
	OpIfeq            Opcode = 0x99
	OpIfne            Opcode = 0x9a
	OpIflt            Opcode = 0x9b
	OpIfge            Opcode = 0x9c
	OpIfgt            Opcode = 0x9d
	OpIfle            Opcode = 0x9e
	OpIfIcmpeq        Opcode = 0x9f
	OpIfIcmpne        Opcode = 0xa0
	OpIfIcmplt        Opcode = 0xa1
	OpIfIcmpge        Opcode = 0xa2
	OpIfIcmpgt        Opcode = 0xa3
	OpIfIcmple        Opcode = 0xa4
	OpIfAcmpeq        Opcode = 0xa5
	OpIfAcmpne        Opcode = 0xa6
	OpGoto            Opcode = 0xa7
	OpJsr             Opcode = 0xa8
	OpRet             Opcode = 0xa9
	OpTableswitch     Opcode = 0xaa
	OpLookupswitch    Opcode = 0xab
	OpIreturn         Opcode = 0xac
	OpLreturn         Opcode = 0xad
	OpFreturn         Opcode = 0xae
	OpDreturn         Opcode = 0xaf
	OpAreturn         Opcode = 0xb0
	OpReturn          Opcode = 0xb1
	OpGetstatic       Opcode = 0xb2
	OpPutstatic       Opcode = 0xb3
	OpGetfield        Opcode = 0xb4
	OpPutfield        Opcode = 0xb5
	OpInvokevirtual   Opcode = 0xb6
	OpInvokespecial   Opcode = 0xb7
	OpInvokestatic    Opcode = 0xb8
	OpInvokeinterface Opcode = 0xb9
	OpInvokedynamic   Opcode = 0xba
	OpNew             Opcode = 0xbb
	OpNewarray        Opcode = 0xbc
	OpAnewarray       Opcode = 0xbd
	OpArraylength     Opcode = 0xbe
	OpAthrow          Opcode = 0xbf
	OpCheckcast       Opcode = 0xc0
	OpInstanceof      Opcode = 0xc1
	OpMonitorenter    Opcode = 0xc2
	OpMonitorexit     Opcode = 0xc3
	OpWide            Opcode = 0xc4
	OpMultianewarray  Opcode = 0xc5
	OpIfnull          Opcode = 0xc6
	OpIfnonnull       Opcode = 0xc7
	OpGotoW           Opcode = 0xc8
	OpJsrW            Opcode = 0xc9
	OpBreakpoint      Opcode = 0xca
)

type opShape int

const (
	shapeNone opShape = iota
	shapeI1           // bipush: signed byte constant
	shapeI2           // sipush: signed short constant
	shapeU1Index      // ldc: u1 constant pool index
	shapeU2Index      // u2 constant pool index (ldc_w, getstatic, invokestatic, new, ...)
	shapeLocalU1      // u1 local variable index (iload, istore, ...), widened to u2 under wide
	shapeRet          // ret: same shape as shapeLocalU1
	shapeIinc         // u1 index + i1 const, widened to u2+i2 under wide
	shapeBranch2      // i2 branch offset
	shapeBranch4      // i4 branch offset
	shapeNewarray     // u1 array type code
	shapeInvokeIntf   // u2 index + u1 count + u1 zero
	shapeInvokeDyn    // u2 index + u1 zero + u1 zero
	shapeMultianew    // u2 index + u1 dims
	shapeTableswitch
	shapeLookupswitch
	shapeWidePrefix
)

type opDef struct {
	name  string
	shape opShape
}

var opTable = map[Opcode]opDef{
	OpNop: {"nop", shapeNone}, OpAconstNull: {"aconst_null", shapeNone},
	OpIconstM1: {"iconst_m1", shapeNone}, OpIconst0: {"iconst_0", shapeNone},
	OpIconst1: {"iconst_1", shapeNone}, OpIconst2: {"iconst_2", shapeNone},
	OpIconst3: {"iconst_3", shapeNone}, OpIconst4: {"iconst_4", shapeNone},
	OpIconst5: {"iconst_5", shapeNone}, OpLconst0: {"lconst_0", shapeNone},
	OpLconst1: {"lconst_1", shapeNone}, OpFconst0: {"fconst_0", shapeNone},
	OpFconst1: {"fconst_1", shapeNone}, OpFconst2: {"fconst_2", shapeNone},
	OpDconst0: {"dconst_0", shapeNone}, OpDconst1: {"dconst_1", shapeNone},
	OpBipush: {"bipush", shapeI1}, OpSipush: {"sipush", shapeI2},
	OpLdc: {"ldc", shapeU1Index}, OpLdcW: {"ldc_w", shapeU2Index},
	OpLdc2W: {"ldc2_w", shapeU2Index},
	OpIload:  {"iload", shapeLocalU1}, OpLload: {"lload", shapeLocalU1},
	OpFload:  {"fload", shapeLocalU1}, OpDload: {"dload", shapeLocalU1},
	OpAload:  {"aload", shapeLocalU1},
	OpIload0: {"iload_0", shapeNone}, OpIload1: {"iload_1", shapeNone},
	OpIload2: {"iload_2", shapeNone}, OpIload3: {"iload_3", shapeNone},
	OpLload0: {"lload_0", shapeNone}, OpLload1: {"lload_1", shapeNone},
	OpLload2: {"lload_2", shapeNone}, OpLload3: {"lload_3", shapeNone},
	OpFload0: {"fload_0", shapeNone}, OpFload1: {"fload_1", shapeNone},
	OpFload2: {"fload_2", shapeNone}, OpFload3: {"fload_3", shapeNone},
	OpDload0: {"dload_0", shapeNone}, OpDload1: {"dload_1", shapeNone},
	OpDload2: {"dload_2", shapeNone}, OpDload3: {"dload_3", shapeNone},
	OpAload0: {"aload_0", shapeNone}, OpAload1: {"aload_1", shapeNone},
	OpAload2: {"aload_2", shapeNone}, OpAload3: {"aload_3", shapeNone},
	OpIaload: {"iaload", shapeNone}, OpLaload: {"laload", shapeNone},
	OpFaload: {"faload", shapeNone}, OpDaload: {"daload", shapeNone},
	OpAaload: {"aaload", shapeNone}, OpBaload: {"baload", shapeNone},
	OpCaload: {"caload", shapeNone}, OpSaload: {"saload", shapeNone},
	OpIstore:  {"istore", shapeLocalU1}, OpLstore: {"lstore", shapeLocalU1},
	OpFstore:  {"fstore", shapeLocalU1}, OpDstore: {"dstore", shapeLocalU1},
	OpAstore:  {"astore", shapeLocalU1},
	OpIstore0: {"istore_0", shapeNone}, OpIstore1: {"istore_1", shapeNone},
	OpIstore2: {"istore_2", shapeNone}, OpIstore3: {"istore_3", shapeNone},
	OpLstore0: {"lstore_0", shapeNone}, OpLstore1: {"lstore_1", shapeNone},
	OpLstore2: {"lstore_2", shapeNone}, OpLstore3: {"lstore_3", shapeNone},
	OpFstore0: {"fstore_0", shapeNone}, OpFstore1: {"fstore_1", shapeNone},
	OpFstore2: {"fstore_2", shapeNone}, OpFstore3: {"fstore_3", shapeNone},
	OpDstore0: {"dstore_0", shapeNone}, OpDstore1: {"dstore_1", shapeNone},
	OpDstore2: {"dstore_2", shapeNone}, OpDstore3: {"dstore_3", shapeNone},
	OpAstore0: {"astore_0", shapeNone}, OpAstore1: {"astore_1", shapeNone},
	OpAstore2: {"astore_2", shapeNone}, OpAstore3: {"astore_3", shapeNone},
	OpIastore: {"iastore", shapeNone}, OpLastore: {"lastore", shapeNone},
	OpFastore: {"fastore", shapeNone}, OpDastore: {"dastore", shapeNone},
	OpAastore: {"aastore", shapeNone}, OpBastore: {"bastore", shapeNone},
	OpCastore: {"castore", shapeNone}, OpSastore: {"sastore", shapeNone},
	OpPop: {"pop", shapeNone}, OpPop2: {"pop2", shapeNone},
	OpDup: {"dup", shapeNone}, OpDupX1: {"dup_x1", shapeNone},
	OpDupX2: {"dup_x2", shapeNone}, OpDup2: {"dup2", shapeNone},
	OpDup2X1: {"dup2_x1", shapeNone}, OpDup2X2: {"dup2_x2", shapeNone},
	OpSwap: {"swap", shapeNone},
	OpIadd: {"iadd", shapeNone}, OpLadd: {"ladd", shapeNone},
	OpFadd: {"fadd", shapeNone}, OpDadd: {"dadd", shapeNone},
	OpIsub: {"isub", shapeNone}, OpLsub: {"lsub", shapeNone},
	OpFsub: {"fsub", shapeNone}, OpDsub: {"dsub", shapeNone},
	OpImul: {"imul", shapeNone}, OpLmul: {"lmul", shapeNone},
	OpFmul: {"fmul", shapeNone}, OpDmul: {"dmul", shapeNone},
	OpIdiv: {"idiv", shapeNone}, OpLdiv: {"ldiv", shapeNone},
	OpFdiv: {"fdiv", shapeNone}, OpDdiv: {"ddiv", shapeNone},
	OpIrem: {"irem", shapeNone}, OpLrem: {"lrem", shapeNone},
	OpFrem: {"frem", shapeNone}, OpDrem: {"drem", shapeNone},
	OpIneg: {"ineg", shapeNone}, OpLneg: {"lneg", shapeNone},
	OpFneg: {"fneg", shapeNone}, OpDneg: {"dneg", shapeNone},
	OpIshl: {"ishl", shapeNone}, OpLshl: {"lshl", shapeNone},
	OpIshr: {"ishr", shapeNone}, OpLshr: {"lshr", shapeNone},
	OpIushr: {"iushr", shapeNone}, OpLushr: {"lushr", shapeNone},
	OpIand: {"iand", shapeNone}, OpLand: {"land", shapeNone},
	OpIor: {"ior", shapeNone}, OpLor: {"lor", shapeNone},
	OpIxor: {"ixor", shapeNone}, OpLxor: {"lxor", shapeNone},
	OpIinc: {"iinc", shapeIinc},
	OpI2l:  {"i2l", shapeNone}, OpI2f: {"i2f", shapeNone}, OpI2d: {"i2d", shapeNone},
	OpL2i:  {"l2i", shapeNone}, OpL2f: {"l2f", shapeNone}, OpL2d: {"l2d", shapeNone},
	OpF2i:  {"f2i", shapeNone}, OpF2l: {"f2l", shapeNone}, OpF2d: {"f2d", shapeNone},
	OpD2i:  {"d2i", shapeNone}, OpD2l: {"d2l", shapeNone}, OpD2f: {"d2f", shapeNone},
	OpI2b:  {"i2b", shapeNone}, OpI2c: {"i2c", shapeNone}, OpI2s: {"i2s", shapeNone},
	OpLcmp: {"lcmp", shapeNone}, OpFcmpl: {"fcmpl", shapeNone},
	OpFcmpg: {"fcmpg", shapeNone}, OpDcmpl: {"dcmpl", shapeNone},
	OpDcmpg: {"dcmpg", shapeNone},
	OpIfeq: {"ifeq", shapeBranch2}, OpIfne: {"ifne", shapeBranch2},
	OpIflt: {"iflt", shapeBranch2}, OpIfge: {"ifge", shapeBranch2},
	OpIfgt: {"ifgt", shapeBranch2}, OpIfle: {"ifle", shapeBranch2},
	OpIfIcmpeq: {"if_icmpeq", shapeBranch2}, OpIfIcmpne: {"if_icmpne", shapeBranch2},
	OpIfIcmplt: {"if_icmplt", shapeBranch2}, OpIfIcmpge: {"if_icmpge", shapeBranch2},
	OpIfIcmpgt: {"if_icmpgt", shapeBranch2}, OpIfIcmple: {"if_icmple", shapeBranch2},
	OpIfAcmpeq: {"if_acmpeq", shapeBranch2}, OpIfAcmpne: {"if_acmpne", shapeBranch2},
	OpGoto: {"goto", shapeBranch2}, OpJsr: {"jsr", shapeBranch2},
	OpRet:  {"ret", shapeRet},
	OpTableswitch: {"tableswitch", shapeTableswitch},
	OpLookupswitch: {"lookupswitch", shapeLookupswitch},
	OpIreturn: {"ireturn", shapeNone}, OpLreturn: {"lreturn", shapeNone},
	OpFreturn: {"freturn", shapeNone}, OpDreturn: {"dreturn", shapeNone},
	OpAreturn: {"areturn", shapeNone}, OpReturn: {"return", shapeNone},
	OpGetstatic: {"getstatic", shapeU2Index}, OpPutstatic: {"putstatic", shapeU2Index},
	OpGetfield:  {"getfield", shapeU2Index}, OpPutfield: {"putfield", shapeU2Index},
	OpInvokevirtual: {"invokevirtual", shapeU2Index},
	OpInvokespecial: {"invokespecial", shapeU2Index},
	OpInvokestatic:  {"invokestatic", shapeU2Index},
	OpInvokeinterface: {"invokeinterface", shapeInvokeIntf},
	OpInvokedynamic:   {"invokedynamic", shapeInvokeDyn},
	OpNew: {"new", shapeU2Index}, OpNewarray: {"newarray", shapeNewarray},
	OpAnewarray: {"anewarray", shapeU2Index}, OpArraylength: {"arraylength", shapeNone},
	OpAthrow:    {"athrow", shapeNone},
	OpCheckcast: {"checkcast", shapeU2Index}, OpInstanceof: {"instanceof", shapeU2Index},
	OpMonitorenter: {"monitorenter", shapeNone}, OpMonitorexit: {"monitorexit", shapeNone},
	OpWide:          {"wide", shapeWidePrefix},
	OpMultianewarray: {"multianewarray", shapeMultianew},
	OpIfnull: {"ifnull", shapeBranch2}, OpIfnonnull: {"ifnonnull", shapeBranch2},
	OpGotoW: {"goto_w", shapeBranch4}, OpJsrW: {"jsr_w", shapeBranch4},
	OpBreakpoint: {"breakpoint", shapeNone},
}

// TableSwitchData is the decoded operand of a tableswitch instruction.
type TableSwitchData struct {
	Default int32
	Low     int32
	High    int32
	Offsets []int32
}

// LookupSwitchData is the decoded operand of a lookupswitch instruction.
type LookupSwitchData struct {
	Default int32
	Pairs    [][2]int32 // [match, offset]
}

// Instruction is one decoded bytecode instruction, addressed by the pc
// it starts at within its owning method's code array.
type Instruction struct {
	PC      int
	Opcode  Opcode
	Length  int
	Local   int   // local variable slot index
	Const   int32 // bipush/sipush/iinc immediate
	Index   int   // constant pool index, or newarray atype
	Branch  int32 // branch target offset, relative to PC
	Count   int   // invokeinterface arg count, multianewarray dims
	Table   *TableSwitchData
	Lookup  *LookupSwitchData
	Wide    bool
}

func (i Instruction) Name() string {
	if d, ok := opTable[i.Opcode]; ok {
		return d.name
	}
	return "unknown"
}

// NextOp decodes the single instruction starting at code[pc], returning
// it with its byte Length set. It is both the interpreter's fetch step and
// the diagnostic decoder exposed through the embedder API.
func NextOp(code []byte, pc int) (Instruction, error) {
	if pc < 0 || pc >= len(code) {
		return Instruction{}, errors.Wrapf(ErrIndexOutOfRange, "pc %d out of range for code length %d", pc, len(code))
	}
	op := Opcode(code[pc])
	def, ok := opTable[op]
	if !ok {
		return Instruction{}, errors.Wrapf(ErrMalformedBytecode, "unknown opcode 0x%02x at pc %d", code[pc], pc)
	}
	instr := Instruction{PC: pc, Opcode: op}

	need := func(n int) error {
		if pc+n > len(code) {
			return errors.Wrapf(ErrMalformedBytecode, "truncated operand for %s at pc %d", def.name, pc)
		}
		return nil
	}

	switch def.shape {
	case shapeNone:
		instr.Length = 1
	case shapeI1:
		if err := need(2); err != nil {
			return Instruction{}, err
		}
		instr.Const = int32(int8(code[pc+1]))
		instr.Length = 2
	case shapeI2:
		if err := need(3); err != nil {
			return Instruction{}, err
		}
		instr.Const = int32(int16(binary.BigEndian.Uint16(code[pc+1 : pc+3])))
		instr.Length = 3
	case shapeU1Index:
		if err := need(2); err != nil {
			return Instruction{}, err
		}
		instr.Index = int(code[pc+1])
		instr.Length = 2
	case shapeU2Index:
		if err := need(3); err != nil {
			return Instruction{}, err
		}
		instr.Index = int(binary.BigEndian.Uint16(code[pc+1 : pc+3]))
		instr.Length = 3
	case shapeLocalU1, shapeRet:
		if err := need(2); err != nil {
			return Instruction{}, err
		}
		instr.Local = int(code[pc+1])
		instr.Length = 2
	case shapeIinc:
		if err := need(3); err != nil {
			return Instruction{}, err
		}
		instr.Local = int(code[pc+1])
		instr.Const = int32(int8(code[pc+2]))
		instr.Length = 3
	case shapeBranch2:
		if err := need(3); err != nil {
			return Instruction{}, err
		}
		instr.Branch = int32(int16(binary.BigEndian.Uint16(code[pc+1 : pc+3])))
		instr.Length = 3
	case shapeBranch4:
		if err := need(5); err != nil {
			return Instruction{}, err
		}
		instr.Branch = int32(binary.BigEndian.Uint32(code[pc+1 : pc+5]))
		instr.Length = 5
	case shapeNewarray:
		if err := need(2); err != nil {
			return Instruction{}, err
		}
		instr.Index = int(code[pc+1])
		instr.Length = 2
	case shapeInvokeIntf:
		if err := need(5); err != nil {
			return Instruction{}, err
		}
		instr.Index = int(binary.BigEndian.Uint16(code[pc+1 : pc+3]))
		instr.Count = int(code[pc+3])
		// code[pc+4] is a reserved zero byte.
		instr.Length = 5
	case shapeInvokeDyn:
		if err := need(5); err != nil {
			return Instruction{}, err
		}
		instr.Index = int(binary.BigEndian.Uint16(code[pc+1 : pc+3]))
		instr.Length = 5
	case shapeMultianew:
		if err := need(4); err != nil {
			return Instruction{}, err
		}
		instr.Index = int(binary.BigEndian.Uint16(code[pc+1 : pc+3]))
		instr.Count = int(code[pc+3])
		instr.Length = 4
	case shapeTableswitch:
		ts, length, err := decodeTableswitch(code, pc)
		if err != nil {
			return Instruction{}, err
		}
		instr.Table = ts
		instr.Length = length
	case shapeLookupswitch:
		ls, length, err := decodeLookupswitch(code, pc)
		if err != nil {
			return Instruction{}, err
		}
		instr.Lookup = ls
		instr.Length = length
	case shapeWidePrefix:
		length, err := decodeWideInto(&instr, code, pc)
		if err != nil {
			return Instruction{}, err
		}
		instr.Wide = true
		instr.Length = length
	}

	return instr, nil
}

// paddingAfter returns how many zero-padding bytes follow pc+1 before the
// 4-byte-aligned table begins, measured from the start of the code array.
func paddingAfter(pc int) int {
	rem := (pc + 1) % 4
	if rem == 0 {
		return 0
	}
	return 4 - rem
}

func decodeTableswitch(code []byte, pc int) (*TableSwitchData, int, error) {
	pad := paddingAfter(pc)
	base := pc + 1 + pad
	if base+12 > len(code) {
		return nil, 0, errors.Wrapf(ErrMalformedBytecode, "truncated tableswitch at pc %d", pc)
	}
	def := int32(binary.BigEndian.Uint32(code[base : base+4]))
	low := int32(binary.BigEndian.Uint32(code[base+4 : base+8]))
	high := int32(binary.BigEndian.Uint32(code[base+8 : base+12]))
	if high < low {
		return nil, 0, errors.Wrapf(ErrMalformedBytecode, "tableswitch high < low at pc %d", pc)
	}
	n := int(high-low) + 1
	off := base + 12
	if off+n*4 > len(code) {
		return nil, 0, errors.Wrapf(ErrMalformedBytecode, "truncated tableswitch jump table at pc %d", pc)
	}
	offsets := make([]int32, n)
	for i := 0; i < n; i++ {
		offsets[i] = int32(binary.BigEndian.Uint32(code[off+i*4 : off+i*4+4]))
	}
	total := (off + n*4) - pc
	return &TableSwitchData{Default: def, Low: low, High: high, Offsets: offsets}, total, nil
}

func decodeLookupswitch(code []byte, pc int) (*LookupSwitchData, int, error) {
	pad := paddingAfter(pc)
	base := pc + 1 + pad
	if base+8 > len(code) {
		return nil, 0, errors.Wrapf(ErrMalformedBytecode, "truncated lookupswitch at pc %d", pc)
	}
	def := int32(binary.BigEndian.Uint32(code[base : base+4]))
	npairs := int32(binary.BigEndian.Uint32(code[base+4 : base+8]))
	if npairs < 0 {
		return nil, 0, errors.Wrapf(ErrMalformedBytecode, "negative npairs in lookupswitch at pc %d", pc)
	}
	off := base + 8
	if off+int(npairs)*8 > len(code) {
		return nil, 0, errors.Wrapf(ErrMalformedBytecode, "truncated lookupswitch pairs at pc %d", pc)
	}
	pairs := make([][2]int32, npairs)
	for i := 0; i < int(npairs); i++ {
		match := int32(binary.BigEndian.Uint32(code[off+i*8 : off+i*8+4]))
		offset := int32(binary.BigEndian.Uint32(code[off+i*8+4 : off+i*8+8]))
		pairs[i] = [2]int32{match, offset}
	}
	total := (off + int(npairs)*8) - pc
	return &LookupSwitchData{Default: def, Pairs: pairs}, total, nil
}

// decodeWideInto decodes the instruction following a wide (0xc4) prefix
// into instr, widening local-index operands to u2 and iinc's constant to
// i2, per the JVM specification's wide instruction.
func decodeWideInto(instr *Instruction, code []byte, pc int) (int, error) {
	if pc+1 >= len(code) {
		return 0, errors.Wrapf(ErrMalformedBytecode, "truncated wide prefix at pc %d", pc)
	}
	modified := Opcode(code[pc+1])
	def, ok := opTable[modified]
	if !ok {
		return 0, errors.Wrapf(ErrMalformedBytecode, "wide prefix modifies unknown opcode 0x%02x at pc %d", code[pc+1], pc)
	}
	instr.Opcode = modified
	switch def.shape {
	case shapeLocalU1, shapeRet:
		if pc+4 > len(code) {
			return 0, errors.Wrapf(ErrMalformedBytecode, "truncated wide local operand at pc %d", pc)
		}
		instr.Local = int(binary.BigEndian.Uint16(code[pc+2 : pc+4]))
		return 4, nil
	case shapeIinc:
		if pc+6 > len(code) {
			return 0, errors.Wrapf(ErrMalformedBytecode, "truncated wide iinc operand at pc %d", pc)
		}
		instr.Local = int(binary.BigEndian.Uint16(code[pc+2 : pc+4]))
		instr.Const = int32(int16(binary.BigEndian.Uint16(code[pc+4 : pc+6])))
		return 6, nil
	default:
		return 0, errors.Wrapf(ErrMalformedBytecode, "wide prefix on non-wideable opcode %s at pc %d", def.name, pc)
	}
}
