package llir

import (
	"fmt"
	"strings"
	"sync"

	"flintc/internal/llir/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Module defines one unit of generated LLIR: named struct types, globals, string literals, extern
// declarations and function definitions. The driver produces one Module per source file and accumulates
// them into a single program Module before the program-level call fix-up runs.
type Module struct {
	Name       string
	structs    []*types.Type        // Named struct types in definition order.
	structMap  map[string]*types.Type
	globals    []*Global            // Global variables and string literals.
	functions  []*Function          // Function definitions and declarations, in creation order.
	funcMap    map[string]*Function
	comments   []string             // Comment metadata table, referenced by instructions as !c<N>.
	seq        int                  // Sequence number for assigning unique identifiers to every child.
	sync.Mutex                      // Synchronises access during parallel generation.
}

// ---------------------
// ----- Constants -----
// ---------------------

// labelStringPrefix names anonymous string literal globals.
const labelStringPrefix = ".str"

// ---------------------
// ----- Functions -----
// ---------------------

// CreateModule creates a new empty module with the given name.
func CreateModule(name string) *Module {
	if name == "" {
		name = "llir module"
	}
	return &Module{
		Name:      name,
		structMap: make(map[string]*types.Type, 16),
		funcMap:   make(map[string]*Function, 16),
		globals:   make([]*Global, 0, 16),
		functions: make([]*Function, 0, 16),
	}
}

// getId returns a module-unique sequence number.
func (m *Module) getId() int {
	m.Lock()
	defer m.Unlock()
	res := m.seq
	m.seq++
	return res
}

// DefineStruct registers a named struct type with the module so that its field list is printed in the
// module header. Registering the same name twice returns the first registration.
func (m *Module) DefineStruct(name string, fields ...*types.Type) *types.Type {
	m.Lock()
	defer m.Unlock()
	if t, ok := m.structMap[name]; ok {
		return t
	}
	t := types.StructOf(name, fields...)
	m.structMap[name] = t
	m.structs = append(m.structs, t)
	return t
}

// GetStruct returns the named struct type registered with the module, or nil.
func (m *Module) GetStruct(name string) *types.Type {
	m.Lock()
	defer m.Unlock()
	return m.structMap[name]
}

// CreateGlobal creates a zero-initialised global variable of typ.
func (m *Module) CreateGlobal(name string, typ *types.Type) *Global {
	m.Lock()
	defer m.Unlock()
	g := &Global{
		m:   m,
		id:  m.seq,
		typ: typ,
	}
	m.seq++
	if name != "" {
		g.name = name
	} else {
		g.name = fmt.Sprintf("g%d", g.id)
	}
	m.globals = append(m.globals, g)
	return g
}

// CreateString interns a string literal into the module's global data and returns the global holding its
// bytes. The returned value's type is a pointer to an array of u8 including the trailing NUL.
func (m *Module) CreateString(s string) *Global {
	m.Lock()
	defer m.Unlock()
	for _, e1 := range m.globals {
		if e1.isString && e1.str == s {
			return e1
		}
	}
	g := &Global{
		m:        m,
		id:       m.seq,
		typ:      types.ArrayOf(types.U8, len(s)+1),
		isString: true,
		str:      s,
	}
	m.seq++
	g.name = fmt.Sprintf("%s%d", labelStringPrefix, len(m.globals))
	m.globals = append(m.globals, g)
	return g
}

// CreateFunction creates an empty function definition with the given return type and registers it with the
// module. Parameters are added with Function.CreateParam and the body with Function.CreateBlock.
func (m *Module) CreateFunction(name string, rtyp *types.Type) *Function {
	m.Lock()
	defer m.Unlock()
	f := &Function{
		m:      m,
		id:     m.seq,
		name:   name,
		typ:    rtyp,
		params: make([]*Param, 0, 8),
		blocks: make([]*Block, 0, 8),
	}
	m.seq++
	if f.name == "" {
		f.name = fmt.Sprintf("func%d", f.id)
	}
	m.functions = append(m.functions, f)
	m.funcMap[f.name] = f
	return f
}

// DeclareFunction creates (or returns the existing) body-less function declaration, used both for extern C
// symbols the compiler-emitted library wraps and for forward declarations during per-file generation.
func (m *Module) DeclareFunction(name string, rtyp *types.Type, params []*types.Type, variadic bool) *Function {
	m.Lock()
	if f, ok := m.funcMap[name]; ok {
		m.Unlock()
		return f
	}
	m.Unlock()
	f := m.CreateFunction(name, rtyp)
	f.decl = true
	f.variadic = variadic
	for i1, e1 := range params {
		f.CreateParam(fmt.Sprintf("a%d", i1), e1)
	}
	return f
}

// Functions returns the module's functions in creation order.
func (m *Module) Functions() []*Function {
	m.Lock()
	defer m.Unlock()
	res := make([]*Function, len(m.functions))
	copy(res, m.functions)
	return res
}

// GetFunction returns the named function of the module, or nil when no function carries the name.
func (m *Module) GetFunction(name string) *Function {
	m.Lock()
	defer m.Unlock()
	return m.funcMap[name]
}

// RemoveFunction detaches the named function from the module, used when a resolved placeholder declaration
// is no longer referenced.
func (m *Module) RemoveFunction(name string) {
	m.Lock()
	defer m.Unlock()
	if _, ok := m.funcMap[name]; !ok {
		return
	}
	delete(m.funcMap, name)
	for i1, e1 := range m.functions {
		if e1.name == name {
			m.functions = append(m.functions[:i1], m.functions[i1+1:]...)
			return
		}
	}
}

// Globals returns the module's globals and string literals.
func (m *Module) Globals() []*Global {
	m.Lock()
	defer m.Unlock()
	res := make([]*Global, len(m.globals))
	copy(res, m.globals)
	return res
}

// AddComment stores a comment in the module's metadata table and returns its id, to be attached to an
// instruction via SetComment and rendered back by ResolveIRComments.
func (m *Module) AddComment(text string) int {
	m.Lock()
	defer m.Unlock()
	m.comments = append(m.comments, text)
	return len(m.comments) - 1
}

// Comment returns the comment text stored under id, or the empty string.
func (m *Module) Comment(id int) string {
	m.Lock()
	defer m.Unlock()
	if id < 0 || id >= len(m.comments) {
		return ""
	}
	return m.comments[id]
}

// Absorb moves every struct definition, global and function of other into m, leaving other empty. The
// driver uses it to accumulate per-file modules into the single program module before program-level call
// resolution runs.
func (m *Module) Absorb(other *Module) {
	other.Lock()
	structs, globals, funcs, comments := other.structs, other.globals, other.functions, other.comments
	other.structs, other.globals, other.functions = nil, nil, nil
	other.structMap, other.funcMap = map[string]*types.Type{}, map[string]*Function{}
	other.Unlock()

	m.Lock()
	defer m.Unlock()
	for _, e1 := range structs {
		if _, ok := m.structMap[e1.Name()]; !ok {
			m.structMap[e1.Name()] = e1
			m.structs = append(m.structs, e1)
		}
	}
	base := len(m.comments)
	m.comments = append(m.comments, comments...)
	for _, e1 := range globals {
		e1.m = m
		m.globals = append(m.globals, e1)
	}
	for _, e1 := range funcs {
		e1.m = m
		e1.rebaseComments(base)
		if _, ok := m.funcMap[e1.name]; ok {
			// Keep both definitions reachable; cross-file duplicates are told apart by their
			// (name, signature) key during program-level resolution.
			m.functions = append(m.functions, e1)
			continue
		}
		m.funcMap[e1.name] = e1
		m.functions = append(m.functions, e1)
	}
}

// String returns the textual LLIR listing of the module: struct definitions, globals, declarations, then
// function bodies.
func (m *Module) String() string {
	m.Lock()
	defer m.Unlock()
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("module %q\n\n", m.Name))

	for _, e1 := range m.structs {
		sb.WriteString(fmt.Sprintf("%%%s = type %s\n", e1.Name(), e1.Definition()))
	}
	if len(m.structs) > 0 {
		sb.WriteRune('\n')
	}

	for _, e1 := range m.globals {
		sb.WriteString(e1.String())
		sb.WriteRune('\n')
	}
	if len(m.globals) > 0 {
		sb.WriteRune('\n')
	}

	for _, e1 := range m.functions {
		if !e1.decl {
			continue
		}
		sb.WriteString(e1.String())
		sb.WriteRune('\n')
	}
	for _, e1 := range m.functions {
		if e1.decl {
			continue
		}
		sb.WriteString(e1.String())
		sb.WriteRune('\n')
	}
	return sb.String()
}
