package interp

// Env is a lexically scoped binding environment. Each block, function call,
// tool body, and match arm gets its own environment linked to its parent.
// Only closures keep an environment alive past scope exit.
type Env struct {
	vars   map[string]Value
	parent *Env
}

// NewEnv returns a fresh root environment.
func NewEnv() *Env {
	return &Env{vars: make(map[string]Value)}
}

// Child returns a new environment parented at e.
func (e *Env) Child() *Env {
	return &Env{vars: make(map[string]Value), parent: e}
}

// Define binds a name in this scope, shadowing any outer binding.
func (e *Env) Define(name string, v Value) {
	e.vars[name] = v
}

// Get resolves a name through the parent chain.
func (e *Env) Get(name string) (Value, bool) {
	for scope := e; scope != nil; scope = scope.parent {
		if v, ok := scope.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Assign rebinds the nearest existing binding for name, reporting whether one
// was found.
func (e *Env) Assign(name string, v Value) bool {
	for scope := e; scope != nil; scope = scope.parent {
		if _, ok := scope.vars[name]; ok {
			scope.vars[name] = v
			return true
		}
	}
	return false
}
