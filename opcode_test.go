package classvm

import (
	"errors"
	"testing"
)

func TestNextOpSingleByteOpcodes(t *testing.T) {
	for op, def := range opTable {
		if def.shape != shapeNone {
			continue
		}
		instr, err := NextOp([]byte{byte(op)}, 0)
		assert(t, err == nil, "NextOp(%s): unexpected error %v", def.name, err)
		assert(t, instr.Length == 1, "NextOp(%s): length = %d, want 1", def.name, instr.Length)
	}
}

func TestNextOpBipush(t *testing.T) {
	instr, err := NextOp([]byte{byte(OpBipush), 0x2A}, 0)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, instr.Opcode == OpBipush, "opcode = %v, want OpBipush", instr.Opcode)
	assert(t, instr.Const == 0x2A, "const = %d, want 42", instr.Const)
	assert(t, instr.Length == 2, "length = %d, want 2", instr.Length)
}

func TestNextOpInvokespecial(t *testing.T) {
	instr, err := NextOp([]byte{byte(OpInvokespecial), 0x00, 0x05}, 0)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, instr.Index == 5, "index = %d, want 5", instr.Index)
	assert(t, instr.Length == 3, "length = %d, want 3", instr.Length)
}

func TestNextOpUnknownOpcode(t *testing.T) {
	_, err := NextOp([]byte{0xfe}, 0)
	assert(t, err != nil, "expected error for unknown opcode")
	assert(t, errors.Is(err, ErrMalformedBytecode), "expected ErrMalformedBytecode, got %v", err)
}

func TestNextOpTruncatedOperand(t *testing.T) {
	_, err := NextOp([]byte{byte(OpSipush), 0x00}, 0)
	assert(t, err != nil, "expected error for truncated sipush operand")
	assert(t, errors.Is(err, ErrMalformedBytecode), "expected ErrMalformedBytecode, got %v", err)
}

// TestNextOpTableswitchAlignment builds a tableswitch at pc=1 so its
// operand area must be padded out to the next 4-byte boundary measured
// from the start of the code array, then checks the decoded length lands
// exactly on the end of the jump table.
func TestNextOpTableswitchAlignment(t *testing.T) {
	code := []byte{
		byte(OpNop),           // pc 0
		byte(OpTableswitch),   // pc 1
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, // padding + default/low/high/offsets
	}
	pad := paddingAfter(1)
	base := 1 + 1 + pad
	// default=100, low=0, high=1, offsets=[10,20]
	putI32(code, base, 100)
	putI32(code, base+4, 0)
	putI32(code, base+8, 1)
	putI32(code, base+12, 10)
	putI32(code, base+16, 20)

	instr, err := NextOp(code, 1)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, instr.Table != nil, "expected table data")
	assert(t, instr.Table.Default == 100, "default = %d, want 100", instr.Table.Default)
	assert(t, instr.Table.Low == 0 && instr.Table.High == 1, "low/high = %d/%d", instr.Table.Low, instr.Table.High)
	assert(t, len(instr.Table.Offsets) == 2, "offsets len = %d, want 2", len(instr.Table.Offsets))
	assert(t, instr.PC+instr.Length == base+20, "decoded length does not reach end of jump table")
}

func putI32(b []byte, at int, v int32) {
	b[at] = byte(v >> 24)
	b[at+1] = byte(v >> 16)
	b[at+2] = byte(v >> 8)
	b[at+3] = byte(v)
}
