//go:build statsview
// +build statsview

package statsview

import (
	"fmt"
	"io"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

const (
	// Address is where the stats server listens when built in.
	Address = "localhost:18444"

	chartPath = "/debug/statsview"
)

// Launch starts the stats server in its own goroutine and tells the
// user where to find it.
func Launch(output io.Writer) {
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(Address))
		statsview.New().Start()
	}()

	fmt.Fprintf(output, "runtime stats at http://%s%s\n", Address, chartPath)
}

// Available reports whether stats support was compiled in.
func Available() bool {
	return true
}
