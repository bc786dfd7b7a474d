// Package llir implements the compiler's low-level intermediate representation: a module of functions made
// of basic blocks of instructions, plus globals, string literals and named struct types. The lowering pass
// builds LLIR with the Create* methods on Block and Module; Module.String renders the textual listing the
// --emit-ir flag writes out.
package llir

import (
	"fmt"
	"strconv"
	"strings"

	"flintc/internal/llir/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Value is any LLIR entity usable as an instruction operand: instructions that produce a result,
// constants, parameters, globals and functions.
type Value interface {
	Id() int             // Unique identifier within the owning module.
	Name() string        // Textual operand reference, e.g. "%t12", "42" or "@main".
	Type() *types.Type   // Result data type of the value.
	String() string      // Full textual LLIR representation.
}

// instr carries the state shared by every instruction: owning block, id, result name, result type and an
// optional comment metadata reference.
type instr struct {
	b       *Block
	id      int
	name    string
	typ     *types.Type
	comment int
}

// Id returns the module-unique id of the instruction.
func (in *instr) Id() int { return in.id }

// Name returns the instruction's virtual register reference.
func (in *instr) Name() string { return "%" + in.name }

// Type returns the result type of the instruction.
func (in *instr) Type() *types.Type { return in.typ }

// SetComment attaches the comment metadata id returned by Module.AddComment to the instruction.
func (in *instr) SetComment(id int) { in.comment = id }

// commentRef renders the trailing metadata reference, or the empty string when no comment is attached.
func (in *instr) commentRef() string {
	if in.comment < 0 {
		return ""
	}
	return fmt.Sprintf(" !c%d", in.comment)
}

// ---------------------
// ----- Constants -----
// ---------------------

// ConstantInt is an integer immediate.
type ConstantInt struct {
	id  int
	typ *types.Type
	val string // decimal spelling, preserved exactly as the front end produced it
}

// Id returns the unique id of the constant.
func (c *ConstantInt) Id() int { return c.id }

// Name returns the immediate's spelling, used directly as an operand.
func (c *ConstantInt) Name() string { return c.val }

// Type returns the constant's integer type.
func (c *ConstantInt) Type() *types.Type { return c.typ }

// String returns the typed spelling of the constant.
func (c *ConstantInt) String() string { return c.typ.String() + " " + c.val }

// Int64 parses the constant back into a native integer, for the backends that fold immediates.
func (c *ConstantInt) Int64() int64 {
	v, _ := strconv.ParseInt(c.val, 10, 64)
	return v
}

// ConstantFloat is a floating point immediate.
type ConstantFloat struct {
	id  int
	typ *types.Type
	val string
}

// Id returns the unique id of the constant.
func (c *ConstantFloat) Id() int { return c.id }

// Name returns the immediate's spelling.
func (c *ConstantFloat) Name() string { return c.val }

// Type returns the constant's float type.
func (c *ConstantFloat) Type() *types.Type { return c.typ }

// String returns the typed spelling of the constant.
func (c *ConstantFloat) String() string { return c.typ.String() + " " + c.val }

// ZeroValue is the zero initializer of an arbitrary type, used for zero-initialized declarations and for
// the untouched value fields of a thrown return struct.
type ZeroValue struct {
	id  int
	typ *types.Type
}

// Id returns the unique id of the zero value.
func (z *ZeroValue) Id() int { return z.id }

// Name returns the textual spelling of the zero initializer.
func (z *ZeroValue) Name() string { return "zero" }

// Type returns the zeroed type.
func (z *ZeroValue) Type() *types.Type { return z.typ }

// String returns the typed spelling of the zero value.
func (z *ZeroValue) String() string { return z.typ.String() + " zero" }

// ----------------------------
// ----- Operation enums ------
// ----------------------------

// BinOp enumerates the two-operand arithmetic and bitwise operations.
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Rem
	Shl
	Shr
	And
	Or
	Xor
)

var binOpNames = [...]string{"add", "sub", "mul", "div", "rem", "shl", "shr", "and", "or", "xor"}

// String returns the mnemonic of the operation.
func (op BinOp) String() string { return binOpNames[op] }

// Pred enumerates comparison predicates.
type Pred int

const (
	Eq Pred = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

var predNames = [...]string{"eq", "ne", "lt", "le", "gt", "ge"}

// String returns the mnemonic of the predicate.
func (p Pred) String() string { return predNames[p] }

// CastOp enumerates the value conversions the lowering emits.
type CastOp int

const (
	Trunc CastOp = iota
	ZExt
	SExt
	FPTrunc
	FPExt
	SIToFP
	UIToFP
	FPToSI
	FPToUI
	Bitcast
	PtrToInt
	IntToPtr
)

var castOpNames = [...]string{
	"trunc", "zext", "sext", "fptrunc", "fpext", "sitofp", "uitofp", "fptosi", "fptoui", "bitcast",
	"ptrtoint", "inttoptr",
}

// String returns the mnemonic of the conversion.
func (op CastOp) String() string { return castOpNames[op] }

// ----------------------------
// ----- Instructions ---------
// ----------------------------

// AllocaInst reserves one stack slot in the owning function's frame. The pre-allocation pass emits every
// AllocaInst of a function into its entry block before any other instruction.
type AllocaInst struct {
	instr
	allocated *types.Type
}

// Allocated returns the type of the slot, as opposed to Type which is the pointer to it.
func (in *AllocaInst) Allocated() *types.Type { return in.allocated }

// String returns the textual LLIR representation of the allocation.
func (in *AllocaInst) String() string {
	return fmt.Sprintf("%s = alloca %s%s", in.Name(), in.allocated.String(), in.commentRef())
}

// LoadInst reads the value a pointer refers to.
type LoadInst struct {
	instr
	src Value
}

// Src returns the pointer operand.
func (in *LoadInst) Src() Value { return in.src }

// String returns the textual LLIR representation of the load.
func (in *LoadInst) String() string {
	return fmt.Sprintf("%s = load %s, %s %s%s",
		in.Name(), in.typ.String(), in.src.Type().String(), in.src.Name(), in.commentRef())
}

// StoreInst writes a value through a pointer.
type StoreInst struct {
	instr
	src Value
	dst Value
}

// Src returns the stored value.
func (in *StoreInst) Src() Value { return in.src }

// Dst returns the pointer operand.
func (in *StoreInst) Dst() Value { return in.dst }

// String returns the textual LLIR representation of the store.
func (in *StoreInst) String() string {
	return fmt.Sprintf("store %s %s, %s %s%s",
		in.src.Type().String(), in.src.Name(), in.dst.Type().String(), in.dst.Name(), in.commentRef())
}

// GEPInst computes the address of a struct field or array element without touching memory.
type GEPInst struct {
	instr
	base    Value
	indices []int
}

// Base returns the aggregate pointer operand.
func (in *GEPInst) Base() Value { return in.base }

// Indices returns the constant index path into the aggregate.
func (in *GEPInst) Indices() []int { return in.indices }

// String returns the textual LLIR representation of the address computation.
func (in *GEPInst) String() string {
	sb := strings.Builder{}
	for _, e1 := range in.indices {
		sb.WriteString(", ")
		sb.WriteString(strconv.Itoa(e1))
	}
	return fmt.Sprintf("%s = getfield %s %s%s%s",
		in.Name(), in.base.Type().String(), in.base.Name(), sb.String(), in.commentRef())
}

// BinOpInst is a two-operand arithmetic or bitwise operation.
type BinOpInst struct {
	instr
	op  BinOp
	op1 Value
	op2 Value
}

// Op returns the operation mnemonic tag.
func (in *BinOpInst) Op() BinOp { return in.op }

// Operand1 returns the left operand.
func (in *BinOpInst) Operand1() Value { return in.op1 }

// Operand2 returns the right operand.
func (in *BinOpInst) Operand2() Value { return in.op2 }

// String returns the textual LLIR representation of the operation.
func (in *BinOpInst) String() string {
	return fmt.Sprintf("%s = %s %s %s, %s%s",
		in.Name(), in.op.String(), in.typ.String(), in.op1.Name(), in.op2.Name(), in.commentRef())
}

// CmpInst compares two operands, yielding an i1.
type CmpInst struct {
	instr
	pred Pred
	op1  Value
	op2  Value
}

// Predicate returns the comparison predicate.
func (in *CmpInst) Predicate() Pred { return in.pred }

// Operand1 returns the left operand.
func (in *CmpInst) Operand1() Value { return in.op1 }

// Operand2 returns the right operand.
func (in *CmpInst) Operand2() Value { return in.op2 }

// String returns the textual LLIR representation of the comparison.
func (in *CmpInst) String() string {
	return fmt.Sprintf("%s = cmp %s %s %s, %s%s",
		in.Name(), in.pred.String(), in.op1.Type().String(), in.op1.Name(), in.op2.Name(), in.commentRef())
}

// CastInst converts a value between data types.
type CastInst struct {
	instr
	op  CastOp
	val Value
}

// Op returns the conversion mnemonic tag.
func (in *CastInst) Op() CastOp { return in.op }

// Operand returns the converted value.
func (in *CastInst) Operand() Value { return in.val }

// String returns the textual LLIR representation of the conversion.
func (in *CastInst) String() string {
	return fmt.Sprintf("%s = %s %s %s to %s%s",
		in.Name(), in.op.String(), in.val.Type().String(), in.val.Name(), in.typ.String(), in.commentRef())
}

// CallInst transfers control to a target function. The target starts out as a placeholder for calls whose
// callee has not been generated yet; the intra-file and program-level resolution phases retarget it via
// SetTarget, which is the whole unresolved-call protocol.
type CallInst struct {
	instr
	target *Function
	args   []Value
}

// Target returns the function currently referenced by the call site.
func (in *CallInst) Target() *Function { return in.target }

// SetTarget redirects the call site at target, used by the intra-file and program-level resolution phases.
func (in *CallInst) SetTarget(target *Function) {
	in.target = target
	in.typ = target.typ
}

// Arguments returns the argument operands.
func (in *CallInst) Arguments() []Value { return in.args }

// String returns the textual LLIR representation of the call.
func (in *CallInst) String() string {
	sb := strings.Builder{}
	for i1, e1 := range in.args {
		sb.WriteString(e1.Type().String())
		sb.WriteRune(' ')
		sb.WriteString(e1.Name())
		if i1 < len(in.args)-1 {
			sb.WriteString(", ")
		}
	}
	if in.typ == types.VoidType {
		return fmt.Sprintf("call %s %s(%s)%s", in.typ.String(), in.target.Name(), sb.String(), in.commentRef())
	}
	return fmt.Sprintf("%s = call %s %s(%s)%s",
		in.Name(), in.typ.String(), in.target.Name(), sb.String(), in.commentRef())
}

// BranchInst terminates a block: unconditionally when cond is nil, otherwise branching on an i1 condition.
type BranchInst struct {
	instr
	cond Value
	next *Block
	els  *Block
}

// Condition returns the i1 condition, or nil for an unconditional branch.
func (in *BranchInst) Condition() Value { return in.cond }

// Next returns the taken (or sole) successor block.
func (in *BranchInst) Next() *Block { return in.next }

// Else returns the fall-through successor of a conditional branch, or nil.
func (in *BranchInst) Else() *Block { return in.els }

// String returns the textual LLIR representation of the branch.
func (in *BranchInst) String() string {
	if in.cond == nil {
		return fmt.Sprintf("br %s%s", in.next.Name(), in.commentRef())
	}
	return fmt.Sprintf("br i1 %s, %s, %s%s",
		in.cond.Name(), in.next.Name(), in.els.Name(), in.commentRef())
}

// RetInst terminates a block by returning val (nil for a void function) to the caller.
type RetInst struct {
	instr
	val Value
}

// Operand returns the returned value, or nil.
func (in *RetInst) Operand() Value { return in.val }

// String returns the textual LLIR representation of the return.
func (in *RetInst) String() string {
	if in.val == nil {
		return "ret void" + in.commentRef()
	}
	return fmt.Sprintf("ret %s %s%s", in.val.Type().String(), in.val.Name(), in.commentRef())
}

// UnreachableInst terminates a block that control flow can never reach, emitted after fatal runtime traps.
type UnreachableInst struct {
	instr
}

// String returns the textual LLIR representation of the terminator.
func (in *UnreachableInst) String() string { return "unreachable" + in.commentRef() }

// ExtractInst reads one field out of a struct value without going through memory, used to test the error
// code of a helper call's return struct.
type ExtractInst struct {
	instr
	agg   Value
	index int
}

// Aggregate returns the struct operand.
func (in *ExtractInst) Aggregate() Value { return in.agg }

// Index returns the extracted field index.
func (in *ExtractInst) Index() int { return in.index }

// String returns the textual LLIR representation of the extraction.
func (in *ExtractInst) String() string {
	return fmt.Sprintf("%s = extract %s %s, %d%s",
		in.Name(), in.agg.Type().String(), in.agg.Name(), in.index, in.commentRef())
}
