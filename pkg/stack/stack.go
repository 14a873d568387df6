package stack

// Stack is a LIFO of T.
type Stack[T any] struct {
	a []T
}

// New creates a stack holding elm, last element on top
func New[T any](elm ...T) *Stack[T] {
	s := &Stack[T]{a: make([]T, 0, len(elm))}
	s.a = append(s.a, elm...)
	return s
}

// Push adds an element to the top of the stack
func (s *Stack[T]) Push(elm T) {
	s.a = append(s.a, elm)
}

// Pop removes and returns the top element. ok is false on an empty stack.
func (s *Stack[T]) Pop() (elm T, ok bool) {
	if len(s.a) == 0 {
		return elm, false
	}
	elm = s.a[len(s.a)-1]
	var zero T
	s.a[len(s.a)-1] = zero
	s.a = s.a[:len(s.a)-1]
	return elm, true
}

// Peek returns the top element without removing it
func (s *Stack[T]) Peek() (elm T, ok bool) {
	if len(s.a) == 0 {
		return elm, false
	}
	return s.a[len(s.a)-1], true
}

// Size returns the number of elements
func (s *Stack[T]) Size() int {
	return len(s.a)
}

// Array returns the elements bottom to top
func (s *Stack[T]) Array() []T {
	return s.a
}
