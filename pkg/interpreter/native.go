package interpreter

import (
	"fmt"
	"strings"
)

// nativePrint writes its non-environment arguments on one line.
func nativePrint(it *Interpreter, args []Value) (Value, error) {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if a.Kind == KindEnv {
			continue
		}
		parts = append(parts, a.String())
	}
	_, err := fmt.Fprintln(it.Output(), strings.Join(parts, " "))
	return Value{}, err
}
