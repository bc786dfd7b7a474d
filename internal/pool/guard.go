package pool

import "sync"

// Token identifies one logical call chain for the purposes of SingleExecutorGuard. Go exposes no portable
// way to read "the current goroutine's id", so instead of a thread id (as the original uses) a Token is an
// explicit identity the caller allocates once and threads down through any recursive calls it makes into
// the guarded section, the same way a context.Context is conventionally threaded through a call chain.
// It carries one byte so that every NewToken result has its own address: pointers to distinct zero-size
// values may compare equal.
type Token struct{ _ byte }

// NewToken allocates a fresh Token for one top-level entry into a guarded section.
func NewToken() *Token { return &Token{} }

// SingleExecutorGuard enforces that a critical section is held by at most one logical call chain at a
// time, while still permitting that same call chain to re-enter it recursively (by passing the same
// Token). Generation uses it on the per-program tables that are written only during the serial
// forward-declaration and program-level fix-up phases (forward declarations and mangle ids, the error-set
// and data registries, program-level call resolution), to catch a caller that writes them from a parallel
// phase instead. The type memo and the cross-file unresolved-call table, which parallel file tasks extend,
// are serialised by mutexes rather than by this guard.
type SingleExecutorGuard struct {
	mu    sync.Mutex
	owner *Token
	depth int
}

// guardPanicMsg is the fatal-assertion message raised on detected concurrent access, mirroring the
// original's `assert(false && "Concurrent access from different threads detected!")`.
const guardPanicMsg = "pool: concurrent access to single-executor section detected"

// Enter marks entry into the guarded section under tok. debug gates the check entirely, the same way the
// original compiles the guard out in a release build; when debug is false Enter is a no-op. The returned
// function must be called to mark exit, typically via defer.
func (g *SingleExecutorGuard) Enter(debug bool, tok *Token) func() {
	if !debug {
		return func() {}
	}
	g.mu.Lock()
	if g.depth == 0 {
		g.owner = tok
	} else if g.owner != tok {
		g.mu.Unlock()
		panic(guardPanicMsg)
	}
	g.depth++
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		g.depth--
		if g.depth == 0 {
			g.owner = nil
		}
		g.mu.Unlock()
	}
}
