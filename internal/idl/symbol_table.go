package idl

// SymbolTable is an ordered map with unique names. Declaration order is
// preserved for iteration; lookups go through an index. It backs the
// struct and enum registries as well as per-definition field, value and
// attribute collections.
type SymbolTable[T any] struct {
	dict map[string]T
	vec  []symbolEntry[T]
}

type symbolEntry[T any] struct {
	name string
	def  T
}

// Add inserts a definition under name. It reports true when the name
// already exists, in which case the table is unchanged.
func (st *SymbolTable[T]) Add(name string, def T) bool {
	if _, ok := st.dict[name]; ok {
		return true
	}
	if st.dict == nil {
		st.dict = make(map[string]T)
	}
	st.dict[name] = def
	st.vec = append(st.vec, symbolEntry[T]{name: name, def: def})
	return false
}

// Lookup returns the definition registered under name, or the zero
// value when absent.
func (st *SymbolTable[T]) Lookup(name string) (T, bool) {
	def, ok := st.dict[name]
	return def, ok
}

// Len returns the number of definitions.
func (st *SymbolTable[T]) Len() int { return len(st.vec) }

// At returns the i-th definition in declaration order.
func (st *SymbolTable[T]) At(i int) T { return st.vec[i].def }

// NameAt returns the i-th name in declaration order.
func (st *SymbolTable[T]) NameAt(i int) string { return st.vec[i].name }

// MoveToBack moves the named entry to the end of the declaration
// order. Used when a predeclared struct is finally defined, so the
// registry reads in definition order.
func (st *SymbolTable[T]) MoveToBack(name string) {
	for i, e := range st.vec {
		if e.name == name {
			st.vec = append(append(st.vec[:i:i], st.vec[i+1:]...), e)
			return
		}
	}
}
