//go:build !statsview
// +build !statsview

package statsview

import (
	"fmt"
	"io"
)

// Address is empty when stats support is not compiled in.
const Address = ""

// Launch explains how to get the real thing.
func Launch(output io.Writer) {
	fmt.Fprintln(output, "stats support not built in; rebuild with -tags statsview")
}

// Available reports whether stats support was compiled in.
func Available() bool {
	return false
}
