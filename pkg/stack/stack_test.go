package stack_test

import (
	"testing"

	"aotc/pkg/stack"
)

func TestStack(t *testing.T) {
	s := stack.New(1, 2)
	s.Push(3)

	if s.Size() != 3 {
		t.Fatalf("expected size 3, got %d", s.Size())
	}
	if top, ok := s.Peek(); !ok || top != 3 {
		t.Errorf("peek: expected 3, got %d", top)
	}

	for _, expected := range []int{3, 2, 1} {
		v, ok := s.Pop()
		if !ok || v != expected {
			t.Errorf("pop: expected %d, got %d (ok=%v)", expected, v, ok)
		}
	}

	if _, ok := s.Pop(); ok {
		t.Errorf("pop on an empty stack succeeded")
	}
	if _, ok := s.Peek(); ok {
		t.Errorf("peek on an empty stack succeeded")
	}
}

func TestArray(t *testing.T) {
	s := stack.New[string]()
	s.Push("a")
	s.Push("b")

	arr := s.Array()
	if len(arr) != 2 || arr[0] != "a" || arr[1] != "b" {
		t.Errorf("expected [a b], got %v", arr)
	}
}
