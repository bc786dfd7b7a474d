package llir

import (
	"fmt"
	"strings"

	"flintc/internal/llir/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Block defines a basic block: a straight-line sequence of instructions ended by exactly one terminator
// (branch, return or unreachable).
type Block struct {
	f            *Function
	id           int
	name         string
	instructions []Value
	term         Value
}

// ---------------------
// ----- Functions -----
// ---------------------

// Id returns the unique id of the block.
func (b *Block) Id() int { return b.id }

// Name returns the block's textual label reference.
func (b *Block) Name() string { return "%" + b.name }

// Function returns the function that owns the block.
func (b *Block) Function() *Function { return b.f }

// Terminated reports whether the block already carries a terminator instruction.
func (b *Block) Terminated() bool { return b.term != nil }

// Instructions returns the block's instructions in emission order.
func (b *Block) Instructions() []Value { return b.instructions }

// newInstr initialises the shared instruction state for an instruction emitted into b.
func (b *Block) newInstr(prefix string, typ *types.Type) instr {
	id := b.f.m.getId()
	return instr{
		b:       b,
		id:      id,
		name:    fmt.Sprintf("%s%d", prefix, id),
		typ:     typ,
		comment: -1,
	}
}

// append adds in to the block, panicking if the block is already terminated: the lowering pass always
// switches to a fresh block after emitting a terminator.
func (b *Block) append(in Value) {
	if b.term != nil {
		panic(fmt.Sprintf("llir: emitting %s into terminated block %s of %s",
			in.String(), b.Name(), b.f.Name()))
	}
	b.instructions = append(b.instructions, in)
}

// prepend inserts in at the front of the block, used by the pre-allocation pass when a late-discovered
// slot must still land in the entry block ahead of already-emitted code.
func (b *Block) prepend(in Value) {
	b.instructions = append([]Value{in}, b.instructions...)
}

// ------------------------------
// ----- Memory instructions -----
// ------------------------------

// CreateAlloca reserves a stack slot of typ in the owning function's frame.
func (b *Block) CreateAlloca(name string, typ *types.Type) *AllocaInst {
	in := &AllocaInst{
		instr:     b.newInstr("t", types.PointerTo(typ)),
		allocated: typ,
	}
	if name != "" {
		in.name = name
	}
	b.append(in)
	return in
}

// PrependAlloca is CreateAlloca at the front of the block, for slots discovered after body emission began.
func (b *Block) PrependAlloca(name string, typ *types.Type) *AllocaInst {
	in := &AllocaInst{
		instr:     b.newInstr("t", types.PointerTo(typ)),
		allocated: typ,
	}
	if name != "" {
		in.name = name
	}
	b.prepend(in)
	return in
}

// CreateLoad reads the value src points at.
func (b *Block) CreateLoad(src Value) *LoadInst {
	if !src.Type().IsPointer() {
		panic(fmt.Sprintf("llir: cannot load through non-pointer %s", src.Type().String()))
	}
	in := &LoadInst{
		instr: b.newInstr("t", src.Type().Elem()),
		src:   src,
	}
	b.append(in)
	return in
}

// CreateStore writes src through the pointer dst.
func (b *Block) CreateStore(src, dst Value) *StoreInst {
	if !dst.Type().IsPointer() {
		panic(fmt.Sprintf("llir: cannot store through non-pointer %s", dst.Type().String()))
	}
	in := &StoreInst{
		instr: b.newInstr("t", types.VoidType),
		src:   src,
		dst:   dst,
	}
	b.append(in)
	return in
}

// CreateGEP computes the address of the aggregate member reached from base by the constant index path.
// base must point at a struct, array or vector; the result points at the indexed member's type.
func (b *Block) CreateGEP(base Value, indices ...int) *GEPInst {
	t := base.Type()
	if !t.IsPointer() {
		panic(fmt.Sprintf("llir: getfield base is non-pointer %s", t.String()))
	}
	cur := t.Elem()
	for _, e1 := range indices {
		switch cur.Kind() {
		case types.Struct:
			fields := cur.Fields()
			if e1 < 0 || e1 >= len(fields) {
				panic(fmt.Sprintf("llir: getfield index %d out of range for %s", e1, cur.String()))
			}
			cur = fields[e1]
		case types.Array, types.Vector:
			cur = cur.Elem()
		default:
			panic(fmt.Sprintf("llir: getfield into non-aggregate %s", cur.String()))
		}
	}
	in := &GEPInst{
		instr:   b.newInstr("t", types.PointerTo(cur)),
		base:    base,
		indices: indices,
	}
	b.append(in)
	return in
}

// ----------------------------------
// ----- Arithmetic instructions -----
// ----------------------------------

// CreateBinOp emits the two-operand operation op over op1 and op2, which must share a type.
func (b *Block) CreateBinOp(op BinOp, op1, op2 Value) *BinOpInst {
	if !types.Equal(op1.Type(), op2.Type()) {
		panic(fmt.Sprintf("llir: %s operand type mismatch: %s vs %s",
			op.String(), op1.Type().String(), op2.Type().String()))
	}
	in := &BinOpInst{
		instr: b.newInstr("t", op1.Type()),
		op:    op,
		op1:   op1,
		op2:   op2,
	}
	b.append(in)
	return in
}

// CreateCmp emits a comparison of op1 and op2 under pred, yielding an i1.
func (b *Block) CreateCmp(pred Pred, op1, op2 Value) *CmpInst {
	in := &CmpInst{
		instr: b.newInstr("t", types.I1),
		pred:  pred,
		op1:   op1,
		op2:   op2,
	}
	b.append(in)
	return in
}

// CreateCast emits the conversion op of val to the type to.
func (b *Block) CreateCast(op CastOp, val Value, to *types.Type) *CastInst {
	in := &CastInst{
		instr: b.newInstr("t", to),
		op:    op,
		val:   val,
	}
	b.append(in)
	return in
}

// ---------------------------
// ----- Call instruction -----
// ---------------------------

// CreateCall emits a call to target with the given arguments. The target may be a placeholder declaration;
// resolution retargets the returned instruction via SetTarget.
func (b *Block) CreateCall(target *Function, args ...Value) *CallInst {
	in := &CallInst{
		instr:  b.newInstr("t", target.typ),
		target: target,
		args:   args,
	}
	b.append(in)
	return in
}

// ---------------------------
// ----- Terminators ---------
// ---------------------------

// CreateBr terminates the block with an unconditional branch to dst.
func (b *Block) CreateBr(dst *Block) *BranchInst {
	in := &BranchInst{
		instr: b.newInstr("t", types.VoidType),
		next:  dst,
	}
	b.append(in)
	b.term = in
	return in
}

// CreateCondBr terminates the block branching on cond: thn when true, els when false.
func (b *Block) CreateCondBr(cond Value, thn, els *Block) *BranchInst {
	if cond.Type() != types.I1 {
		panic(fmt.Sprintf("llir: branch condition must be i1, got %s", cond.Type().String()))
	}
	in := &BranchInst{
		instr: b.newInstr("t", types.VoidType),
		cond:  cond,
		next:  thn,
		els:   els,
	}
	b.append(in)
	b.term = in
	return in
}

// CreateRet terminates the block returning val, or void when val is nil.
func (b *Block) CreateRet(val Value) *RetInst {
	in := &RetInst{
		instr: b.newInstr("t", types.VoidType),
		val:   val,
	}
	b.append(in)
	b.term = in
	return in
}

// CreateUnreachable terminates a block control can never fall out of.
func (b *Block) CreateUnreachable() *UnreachableInst {
	in := &UnreachableInst{instr: b.newInstr("t", types.VoidType)}
	b.append(in)
	b.term = in
	return in
}

// ---------------------------
// ----- Constants -----------
// ---------------------------

// CreateConstInt returns an integer immediate of typ with the given decimal spelling. Constants are pure
// operands; they are not appended to the instruction list.
func (b *Block) CreateConstInt(typ *types.Type, val string) *ConstantInt {
	return &ConstantInt{id: b.f.m.getId(), typ: typ, val: val}
}

// CreateConstIntV is CreateConstInt for a native integer value.
func (b *Block) CreateConstIntV(typ *types.Type, val int64) *ConstantInt {
	return &ConstantInt{id: b.f.m.getId(), typ: typ, val: fmt.Sprintf("%d", val)}
}

// CreateConstFloat returns a floating point immediate of typ with the given spelling.
func (b *Block) CreateConstFloat(typ *types.Type, val string) *ConstantFloat {
	return &ConstantFloat{id: b.f.m.getId(), typ: typ, val: val}
}

// CreateZero returns the zero initializer of typ.
func (b *Block) CreateZero(typ *types.Type) *ZeroValue {
	return &ZeroValue{id: b.f.m.getId(), typ: typ}
}

// String returns the textual LLIR representation of the block, label line included.
func (b *Block) String() string {
	sb := strings.Builder{}
	sb.WriteString(b.name)
	sb.WriteString(":\n")
	for _, e1 := range b.instructions {
		sb.WriteRune('\t')
		sb.WriteString(e1.String())
		sb.WriteRune('\n')
	}
	if b.term == nil {
		sb.WriteString(fmt.Sprintf("\t; error: block %s of %s is not terminated\n", b.Name(), b.f.Name()))
	}
	return sb.String()
}

// CreateExtract reads field index out of the struct value agg.
func (b *Block) CreateExtract(agg Value, index int) *ExtractInst {
	if !agg.Type().IsStruct() {
		panic(fmt.Sprintf("llir: extract from non-struct %s", agg.Type().String()))
	}
	fields := agg.Type().Fields()
	if index < 0 || index >= len(fields) {
		panic(fmt.Sprintf("llir: extract index %d out of range for %s", index, agg.Type().String()))
	}
	in := &ExtractInst{
		instr: b.newInstr("t", fields[index]),
		agg:   agg,
		index: index,
	}
	b.append(in)
	return in
}
