package llir

import (
	"fmt"
	"strings"

	"flintc/internal/llir/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Function defines an LLIR function: its signature and, for definitions, the basic blocks of its body.
// decl marks body-less functions: extern C symbols and the forward-declaration placeholders the
// unresolved-call protocol retargets.
type Function struct {
	m        *Module
	id       int
	name     string
	typ      *types.Type // Return type.
	params   []*Param
	blocks   []*Block
	variadic bool
	decl     bool
	mangleID int // Per-file forward-declaration id, 0 when the function never needed one.
}

// Param defines one formal parameter of a Function.
type Param struct {
	f    *Function
	id   int
	name string
	typ  *types.Type
}

// ---------------------
// ----- Functions -----
// ---------------------

// Id returns the unique id of the function.
func (f *Function) Id() int { return f.id }

// Name returns the function's textual operand reference.
func (f *Function) Name() string { return "@" + f.name }

// BareName returns the function's name without the operand sigil, as stored in the module's function map.
func (f *Function) BareName() string { return f.name }

// Type returns the function's return type.
func (f *Function) Type() *types.Type { return f.typ }

// IsDecl reports whether the function is a body-less declaration.
func (f *Function) IsDecl() bool { return f.decl }

// SetMangleID records the per-file forward-declaration id assigned during the forward-declaration sweep.
func (f *Function) SetMangleID(id int) { f.mangleID = id }

// MangleID returns the per-file forward-declaration id, or 0.
func (f *Function) MangleID() int { return f.mangleID }

// Module returns the module that owns the function.
func (f *Function) Module() *Module { return f.m }

// CreateParam appends a formal parameter to the function.
func (f *Function) CreateParam(name string, typ *types.Type) *Param {
	if f.GetParam(name) != nil {
		panic(fmt.Sprintf("llir: duplicate parameter %s in function %s", name, f.name))
	}
	p := &Param{
		f:    f,
		id:   f.m.getId(),
		name: name,
		typ:  typ,
	}
	f.params = append(f.params, p)
	return p
}

// GetParam returns the named parameter of the function, or nil.
func (f *Function) GetParam(name string) *Param {
	for _, e1 := range f.params {
		if e1.name == name {
			return e1
		}
	}
	return nil
}

// Params returns the function's parameters in declaration order.
func (f *Function) Params() []*Param { return f.params }

// CreateBlock appends a new empty basic block to the function. The first block created is the entry block,
// where the pre-allocation pass places every stack slot. A label name already used in the function gets
// the block id appended, so repeated lowering shapes keep unambiguous labels.
func (f *Function) CreateBlock(name string) *Block {
	b := &Block{
		f:            f,
		id:           f.m.getId(),
		name:         name,
		instructions: make([]Value, 0, 16),
	}
	if b.name == "" {
		b.name = fmt.Sprintf("b%d", b.id)
	} else {
		for _, e1 := range f.blocks {
			if e1.name == b.name {
				b.name = fmt.Sprintf("%s.%d", b.name, b.id)
				break
			}
		}
	}
	f.blocks = append(f.blocks, b)
	f.decl = false
	return b
}

// Blocks returns the function's basic blocks in creation order.
func (f *Function) Blocks() []*Block { return f.blocks }

// EntryBlock returns the function's entry block, or nil for declarations.
func (f *Function) EntryBlock() *Block {
	if len(f.blocks) == 0 {
		return nil
	}
	return f.blocks[0]
}

// rebaseComments shifts every instruction's comment metadata id by base, applied when the function's
// original module is absorbed into the program module whose comment table already holds base entries.
func (f *Function) rebaseComments(base int) {
	if base == 0 {
		return
	}
	for _, b := range f.blocks {
		for _, e1 := range b.instructions {
			if ic, ok := e1.(interface {
				shiftComment(int)
			}); ok {
				ic.shiftComment(base)
			}
		}
	}
}

// shiftComment implements comment rebasing for every instruction via the embedded instr.
func (in *instr) shiftComment(base int) {
	if in.comment >= 0 {
		in.comment += base
	}
}

// SignatureKey returns the (name, lowered signature) key identifying the function during cross-file call
// resolution, so that two files re-using a name with different signatures never collide.
func (f *Function) SignatureKey() string {
	sb := strings.Builder{}
	sb.WriteString(f.name)
	sb.WriteRune('/')
	for i1, e1 := range f.params {
		sb.WriteString(e1.typ.String())
		if i1 < len(f.params)-1 {
			sb.WriteRune(',')
		}
	}
	sb.WriteString("->")
	sb.WriteString(f.typ.String())
	return sb.String()
}

// String returns the textual LLIR representation of the function.
func (f *Function) String() string {
	sb := strings.Builder{}
	if f.decl {
		sb.WriteString("declare ")
	} else {
		sb.WriteString("define ")
	}
	sb.WriteString(f.typ.String())
	sb.WriteRune(' ')
	sb.WriteString(f.Name())
	sb.WriteRune('(')
	for i1, e1 := range f.params {
		sb.WriteString(e1.String())
		if i1 < len(f.params)-1 {
			sb.WriteString(", ")
		}
	}
	if f.variadic {
		if len(f.params) > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("...")
	}
	sb.WriteRune(')')
	if f.decl {
		return sb.String()
	}
	sb.WriteString(" {\n")
	for _, e1 := range f.blocks {
		sb.WriteString(e1.String())
	}
	sb.WriteString("}\n")
	return sb.String()
}

// ---------------------
// ----- Parameter -----
// ---------------------

// Id returns the unique id of the parameter.
func (p *Param) Id() int { return p.id }

// Name returns the parameter's textual operand reference.
func (p *Param) Name() string { return "%" + p.name }

// Type returns the parameter's data type.
func (p *Param) Type() *types.Type { return p.typ }

// String returns the textual LLIR representation of the parameter in a signature.
func (p *Param) String() string {
	return fmt.Sprintf("%s %s", p.typ.String(), p.Name())
}
