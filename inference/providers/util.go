package providers

import (
	"os"
	"runtime"

	"github.com/pkg/errors"
)

// SharedLibraryEnv overrides the ONNX Runtime shared library location.
const SharedLibraryEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// GetSharedLibPath returns the path to the shared library for the current platform.
//
// The SharedLibraryEnv environment variable takes precedence over the
// platform defaults.
//
// Returns:
//   - string: The path to the shared library.
//   - error: If the platform has no default.
func GetSharedLibPath() (string, error) {
	if path := os.Getenv(SharedLibraryEnv); path != "" {
		return path, nil
	}
	switch runtime.GOOS {
	case "windows":
		if runtime.GOARCH == "amd64" {
			return "./third_party/onnxruntime.dll", nil
		}
	case "darwin":
		return "./third_party/libonnxruntime.dylib", nil
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so", nil
		}
		return "./third_party/onnxruntime.so", nil
	}
	return "", errors.Errorf("no onnxruntime library known for %s/%s", runtime.GOOS, runtime.GOARCH)
}
