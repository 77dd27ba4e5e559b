// Package onnx - ONNX Runtime backed inference engine.
package onnx

import (
	"sync"

	"github.com/nvr-ai/go-objdetect/inference/providers"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

var envMu sync.Mutex

// InitializeEnvironment loads the ONNX Runtime shared library once per
// process. An empty libraryPath falls back to providers.GetSharedLibPath.
// Later calls are no-ops; a failed call may be retried.
func InitializeEnvironment(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}

	if libraryPath == "" {
		path, err := providers.GetSharedLibPath()
		if err != nil {
			return err
		}
		libraryPath = path
	}

	ort.SetSharedLibraryPath(libraryPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrapf(err, "initialize onnxruntime from %s", libraryPath)
	}
	return nil
}

// DestroyEnvironment unloads the runtime. Sessions must be closed first.
func DestroyEnvironment() error {
	envMu.Lock()
	defer envMu.Unlock()

	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}
