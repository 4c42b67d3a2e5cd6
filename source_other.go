//go:build !unix && !windows

package memarena

// NewOSSource falls back to the Go heap on platforms without a native
// reservation API.
func NewOSSource() BlockSource {
	return NewHeapSource(0)
}
