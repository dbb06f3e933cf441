// Package statsview is an optional package built only when the statsview
// build constraint is present.
//
// It runs a local HTTP server with live runtime statistics, provided by
// github.com/go-echarts/statsview. After launch the charts are at:
//
//	localhost:18444/debug/statsview
//
// and standard Go pprof endpoints at:
//
//	localhost:18444/debug/pprof/
package statsview
