package compiler

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// SymbolKind says how a name maps onto memory.
type SymbolKind int

const (
	SymbolScalar   SymbolKind = iota // one cell
	SymbolArray                      // Size contiguous cells from Address
	SymbolConstant                   // no cell; Address is the compile-time pointer value
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolArray:
		return "array"
	case SymbolConstant:
		return "const pointer"
	}
	return "scalar"
}

type Symbol struct {
	Name    string
	Kind    SymbolKind
	Address int
	Size    int
	Pointer bool
}

// SymbolTable maps declared names to storage. Declarations are flat: a name
// is visible program-wide once declared, and the first declaration wins.
type SymbolTable struct {
	symbols map[string]Symbol
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{symbols: make(map[string]Symbol)}
}

// Define records sym unless its name is taken. It reports whether sym was added.
func (s *SymbolTable) Define(sym Symbol) bool {
	if _, ok := s.symbols[sym.Name]; ok {
		return false
	}
	s.symbols[sym.Name] = sym
	return true
}

// Lookup returns the symbol and whether it was found.
func (s *SymbolTable) Lookup(name string) (Symbol, bool) {
	sym, ok := s.symbols[name]
	return sym, ok
}

// Symbols returns every symbol ordered by address, then name.
func (s *SymbolTable) Symbols() []Symbol {
	out := make([]Symbol, 0, len(s.symbols))
	for _, sym := range s.symbols {
		out = append(out, sym)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Address != out[j].Address {
			return out[i].Address < out[j].Address
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// String returns a deterministically ordered dump of the table.
func (s *SymbolTable) String() string {
	if len(s.symbols) == 0 {
		return "Symbols: (empty)\n"
	}
	var sb strings.Builder
	sb.WriteString("Symbols:\n")
	for _, sym := range s.Symbols() {
		fmt.Fprintf(&sb, "  %-20s  Address: %d (Size: %d, Kind: %s)\n", sym.Name, sym.Address, sym.Size, sym.Kind)
	}
	return sb.String()
}

// ErrMemoryExhausted is returned when a program needs more cells than the
// target memory has.
var ErrMemoryExhausted = errors.New("memory exhausted")

// arena hands out memory cells. Named storage grows a cursor and is never
// released; temporaries form a stack above the cursor and must be released
// in reverse order. Addresses reserved by constant pointers are skipped for
// scalars and temporaries.
type arena struct {
	reserved map[int]bool
	cursor   int
	temps    []int
	high     int // one past the highest cell handed out
	limit    int // 0 means unbounded
}

func newArena(limit int) *arena {
	return &arena{reserved: make(map[int]bool), limit: limit}
}

func (a *arena) reserve(addr int) { a.reserved[addr] = true }

func (a *arena) free(from int) int {
	for a.reserved[from] {
		from++
	}
	return from
}

func (a *arena) claim(addr, size int) (int, error) {
	if end := addr + size; end > a.high {
		a.high = end
	}
	if a.limit > 0 && addr+size > a.limit {
		return 0, fmt.Errorf("%w: cell %d needed, memory has %d", ErrMemoryExhausted, addr+size-1, a.limit)
	}
	return addr, nil
}

// declare allocates permanent storage for a scalar.
func (a *arena) declare() (int, error) {
	if len(a.temps) > 0 {
		panic(fmt.Sprintf("declare with %d live temporaries", len(a.temps)))
	}
	addr := a.free(a.cursor)
	a.cursor = addr + 1
	return a.claim(addr, 1)
}

// declareArray allocates n contiguous cells at the cursor. Arrays may cover
// reserved addresses; a constant pointer into an array is a deliberate alias.
func (a *arena) declareArray(n int) (int, error) {
	if len(a.temps) > 0 {
		panic(fmt.Sprintf("declare with %d live temporaries", len(a.temps)))
	}
	base := a.cursor
	a.cursor += n
	return a.claim(base, n)
}

// temp pushes a temporary cell.
func (a *arena) temp() (int, error) {
	from := a.cursor
	if n := len(a.temps); n > 0 {
		from = a.temps[n-1] + 1
	}
	addr := a.free(from)
	a.temps = append(a.temps, addr)
	return a.claim(addr, 1)
}

// release pops the temporary at addr, which must be the most recent one.
func (a *arena) release(addr int) {
	n := len(a.temps)
	if n == 0 || a.temps[n-1] != addr {
		panic(fmt.Sprintf("temporary %d released out of order (live: %v)", addr, a.temps))
	}
	a.temps = a.temps[:n-1]
}

// mark returns a checkpoint for releaseTo.
func (a *arena) mark() int { return len(a.temps) }

// releaseTo pops every temporary pushed since the checkpoint m.
func (a *arena) releaseTo(m int) {
	if m > len(a.temps) {
		panic(fmt.Sprintf("checkpoint %d above stack depth %d", m, len(a.temps)))
	}
	a.temps = a.temps[:m]
}
