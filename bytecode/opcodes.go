package bytecode

import "fmt"

// Opcode is a VM instruction.  Operands live in the A and B fields of Instr;
// the comment on each opcode names them.
type Opcode int32

const (
	Nop Opcode = iota

	RawText      // A: text index
	Print        // A: var index
	PrintExpr    // A: expr index, B: 1 to escape
	JumpIfFalse  // A: expr index, B: target
	Jump         // A: target
	Set          // A: assignment index
	BeginCapture // push an output buffer
	EndCapture   // A: assignment index; pop the buffer into the variable
	BeginFilter  // push an output buffer
	EndFilter    // A: chain index; pop the buffer, filter it, write it
	ForBegin     // A: loop index, B: target when there is nothing to iterate
	ForNext      // A: loop index, B: target once the iteration is over
	Call         // A: function index
	Include      // A: var index naming the template
	BuildURL     // A: url index
	Return

	EndOpcode
)

var opcodeNames = [...]string{
	Nop:          "nop",
	RawText:      "text",
	Print:        "print",
	PrintExpr:    "printexpr",
	JumpIfFalse:  "jmpf",
	Jump:         "jmp",
	Set:          "set",
	BeginCapture: "capture",
	EndCapture:   "endcapture",
	BeginFilter:  "filter",
	EndFilter:    "endfilter",
	ForBegin:     "for",
	ForNext:      "next",
	Call:         "call",
	Include:      "include",
	BuildURL:     "url",
	Return:       "ret",
}

func (op Opcode) String() string {
	if 0 <= op && op < EndOpcode {
		return opcodeNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", int32(op))
}

// target returns a pointer to the operand holding a jump target, or nil if the
// instruction does not jump.
func (in *Instr) target() *int {
	switch in.Op {
	case Jump:
		return &in.A
	case JumpIfFalse, ForBegin, ForNext:
		return &in.B
	}
	return nil
}

// Instr is a single instruction.
type Instr struct {
	Op   Opcode
	A, B int
}
