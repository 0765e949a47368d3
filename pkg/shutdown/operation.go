package shutdown

import "fmt"

// Operation is a unit of cleanup run by the shutdown hook.
// Operations are identified by value; use pointer types.
type Operation interface {
	Run() error
}

// FuncOperation adapts a function to Operation.
// Each call to Func returns a distinct operation.
type FuncOperation struct {
	name string
	fn   func() error
}

// Func wraps fn as a named Operation.
func Func(name string, fn func() error) *FuncOperation {
	return &FuncOperation{name: name, fn: fn}
}

// Run calls the wrapped function.
func (f *FuncOperation) Run() error {
	if f.fn == nil {
		return nil
	}
	return f.fn()
}

func (f *FuncOperation) String() string {
	return f.name
}

func describe(op Operation) string {
	if s, ok := op.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", op)
}
