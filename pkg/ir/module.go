package ir

import (
	"sort"
	"strings"
	"sync"
)

// Module is a compilation unit: named types, external declarations and
// function definitions.
type Module struct {
	Functions []*Function

	mu           sync.Mutex
	types        map[string]NamedType
	declarations map[string]*FunctionRef
}

// NewModule creates an empty module
func NewModule() *Module {
	return &Module{
		types:        make(map[string]NamedType),
		declarations: make(map[string]*FunctionRef),
	}
}

// AddFunction appends a function definition
func (m *Module) AddFunction(fn *Function) {
	m.Functions = append(m.Functions, fn)
}

// Function returns the defined function with the given name
func (m *Module) Function(name string) *Function {
	for _, fn := range m.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// AddType declares a named type. Adding the same name twice keeps the
// first declaration. Safe for concurrent use.
func (m *Module) AddType(t NamedType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.types == nil {
		m.types = make(map[string]NamedType)
	}
	name := strings.TrimPrefix(t.String(), "%")
	if _, exists := m.types[name]; !exists {
		m.types[name] = t
	}
}

// Type returns a declared named type
func (m *Module) Type(name string) (NamedType, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.types[name]
	return t, ok
}

// Declare records an external function the module calls. Declaring the
// same symbol twice keeps the first declaration. Safe for concurrent use.
func (m *Module) Declare(ref *FunctionRef) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.declarations == nil {
		m.declarations = make(map[string]*FunctionRef)
	}
	if _, exists := m.declarations[ref.Name]; !exists {
		m.declarations[ref.Name] = ref
	}
}

// Declaration returns a declared external function
func (m *Module) Declaration(name string) (*FunctionRef, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref, ok := m.declarations[name]
	return ref, ok
}

// String renders the module as textual IR. Types and declarations are
// sorted by name so output is stable.
func (m *Module) String() string {
	m.mu.Lock()
	typeNames := make([]string, 0, len(m.types))
	for name := range m.types {
		typeNames = append(typeNames, name)
	}
	declNames := make([]string, 0, len(m.declarations))
	for name := range m.declarations {
		declNames = append(declNames, name)
	}
	sort.Strings(typeNames)
	sort.Strings(declNames)

	var b strings.Builder
	for _, name := range typeNames {
		t := m.types[name]
		b.WriteString(t.String() + " = type " + t.Definition() + "\n")
	}
	if len(typeNames) > 0 {
		b.WriteString("\n")
	}
	for _, name := range declNames {
		ref := m.declarations[name]
		params := make([]string, len(ref.Typ.Params))
		for i, p := range ref.Typ.Params {
			params[i] = p.String()
		}
		b.WriteString("declare " + ref.Typ.Ret.String() + " " + ref.Ref() + "(" + strings.Join(params, ", ") + ")\n")
	}
	if len(declNames) > 0 {
		b.WriteString("\n")
	}
	m.mu.Unlock()

	for i, fn := range m.Functions {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fn.String())
	}

	return b.String()
}
