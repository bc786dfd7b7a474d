package builtins

import (
	"flintc/internal/llir"
	lt "flintc/internal/llir/types"
	"flintc/internal/types"
)

// The built-in error sets raised by the compiler-emitted library. Every lowered function returns a struct
// whose first field is a 32-bit error code; these are the codes the helpers store there.

// ---------------------
// ----- Constants -----
// ---------------------

// Built-in error set and member names.
const (
	ErrIO       = "ErrIO"
	ErrFS       = "ErrFS"
	ErrEnv      = "ErrEnv"
	ErrOverflow = "ErrOverflow"
	ErrAssert   = "ErrAssert"
)

// AssertFailedID is the fixed error code of ErrAssert.Failed. It is the one built-in error with a
// hand-picked id: the produced program's process exit code on a failed assertion.
const AssertFailedID = 10

// BuiltinErrorSets lists every built-in error set with its ordered members, in the form the semantic
// resolver registers them under before user code is checked.
var BuiltinErrorSets = map[string][]string{
	ErrIO:       {"NotFound", "NotReadable", "NotWritable", "UnexpectedEOF"},
	ErrFS:       {"TooLarge", "InvalidPath"},
	ErrEnv:      {"VarNotFound", "InvalidName", "InvalidValue"},
	ErrOverflow: {"AddOverflow", "SubOverflow", "MulOverflow", "DivByZero"},
	ErrAssert:   {"Failed"},
}

// ---------------------
// ----- Functions -----
// ---------------------

// ErrorID derives the stable 32-bit error code of a set member. Ids hash the qualified member name so that
// catch-site dispatch, which compares codes for equality, can tell members of one set apart. ErrAssert's
// sole member keeps its fixed process-exit-code id.
func ErrorID(set, member string) int32 {
	if set == ErrAssert {
		return AssertFailedID
	}
	return int32(types.HashName(set + "." + member))
}

// SetID derives the stable 32-bit id of the set itself, used as an ErrorSet type's identity.
func SetID(set string) int32 {
	return int32(types.HashName(set))
}

// errConst materialises the error code of set.member as an i32 immediate.
func errConst(b *llir.Block, set, member string) llir.Value {
	return b.CreateConstIntV(lt.I32, int64(ErrorID(set, member)))
}
