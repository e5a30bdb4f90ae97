//go:build !windows

package monetdbe

import (
	"github.com/ebitengine/purego"
)

// loadLibrary loads libmonetdbe on Unix-like systems
func loadLibrary(libPath string) (uintptr, error) {
	return purego.Dlopen(libPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
}

func closeLibrary(lib uintptr) error {
	return purego.Dlclose(lib)
}
