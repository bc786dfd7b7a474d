package llir

import (
	"fmt"

	"flintc/internal/llir/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Global is a module-level variable: either a zero-initialised data slot or an interned string literal
// with inline byte data.
type Global struct {
	m        *Module
	id       int
	name     string
	typ      *types.Type
	isString bool
	str      string
}

// ---------------------
// ----- Functions -----
// ---------------------

// Id returns the unique id of the global.
func (g *Global) Id() int { return g.id }

// Name returns the global's textual operand reference.
func (g *Global) Name() string { return "@" + g.name }

// Type returns the type of the value a reference to the global points at. Globals are memory objects, so
// operand positions see a pointer.
func (g *Global) Type() *types.Type { return types.PointerTo(g.typ) }

// Str returns the literal content of a string global, or the empty string for data globals.
func (g *Global) Str() string { return g.str }

// Len returns the byte length of a string global's content, excluding the trailing NUL.
func (g *Global) Len() int { return len(g.str) }

// String returns the textual LLIR representation of the global definition.
func (g *Global) String() string {
	if g.isString {
		return fmt.Sprintf("%s = constant %s c%q", g.Name(), g.typ.String(), g.str+"\x00")
	}
	return fmt.Sprintf("%s = global %s zero", g.Name(), g.typ.String())
}
