// Package interpreters assembles the standard Step interpreters.
package interpreters

import (
	"github.com/diffindiffs/didbase/core"
	"github.com/diffindiffs/didbase/interpreters/goja"
	"github.com/diffindiffs/didbase/interpreters/noop"
)

// Standard returns the interpreters by name: "goja" (also
// "ecmascript") and "noop".
func Standard() map[string]core.Interpreter {
	is := make(map[string]core.Interpreter)

	js := goja.NewInterpreter()
	is["goja"] = js
	is["ecmascript"] = js

	is["noop"] = noop.NewInterpreter()

	return is
}
