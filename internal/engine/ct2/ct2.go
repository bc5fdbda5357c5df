//go:build ctranslate2 && cgo

// Package ct2 runs CTranslate2 models in process through a small C shim.
//
// Build with -tags ctranslate2 and libctranslate2 on the linker path.
// A Translator holds loaded model weights and is not safe for concurrent
// use; callers serialise access. A running translation cannot be
// interrupted: ctx is only checked before each example.
package ct2

/*
#cgo CXXFLAGS: -std=c++17
#cgo LDFLAGS: -lctranslate2 -lstdc++
#include <stdlib.h>
#include "ct2_wrapper.h"
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"github.com/valpere/metaltran/internal/engine"
)

var _ engine.Engine = (*Translator)(nil)

type Translator struct {
	handle C.ct2_translator_t
}

// New loads the CTranslate2 model directory at modelPath on device
// ("cpu", "cuda" or "auto").
func New(modelPath, device string) (*Translator, error) {
	if device == "" {
		device = "cpu"
	}

	cPath := C.CString(modelPath)
	defer C.free(unsafe.Pointer(cPath))
	cDevice := C.CString(device)
	defer C.free(unsafe.Pointer(cDevice))

	var cErr *C.char
	h := C.ct2_translator_new(cPath, cDevice, &cErr)
	if h == nil {
		return nil, fmt.Errorf("ct2: load %q: %s", modelPath, takeError(cErr))
	}

	t := &Translator{handle: h}
	runtime.SetFinalizer(t, (*Translator).Close)
	return t, nil
}

func (t *Translator) Name() string {
	return "ct2"
}

func (t *Translator) TranslateBatch(ctx context.Context, source [][]string, targetPrefix [][]string, opts engine.Options) ([]engine.Result, error) {
	if t.handle == nil {
		return nil, errors.New("ct2: translator is closed")
	}
	if len(targetPrefix) != len(source) {
		return nil, fmt.Errorf("ct2: %d target prefixes for %d examples", len(targetPrefix), len(source))
	}

	results := make([]engine.Result, 0, len(source))
	for i := range source {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := t.translateOne(source[i], targetPrefix[i], opts)
		if err != nil {
			return nil, err
		}
		results = append(results, engine.Result{Output: out})
	}
	return results, nil
}

func (t *Translator) translateOne(source, prefix []string, opts engine.Options) ([]string, error) {
	cSource, freeSource := cStrings(source)
	defer freeSource()
	cPrefix, freePrefix := cStrings(prefix)
	defer freePrefix()

	var (
		cOut **C.char
		cErr *C.char
	)
	n := C.ct2_translate(t.handle,
		cSource, C.int(len(source)),
		cPrefix, C.int(len(prefix)),
		C.int(opts.BeamSize), C.int(opts.MaxInputLength), C.int(opts.MaxDecodingLength),
		&cOut, &cErr)
	if n < 0 {
		return nil, fmt.Errorf("ct2: translate: %s", takeError(cErr))
	}
	defer C.ct2_free_tokens(cOut, n)

	ptrs := unsafe.Slice(cOut, int(n))
	out := make([]string, int(n))
	for i, p := range ptrs {
		out[i] = C.GoString(p)
	}
	return out, nil
}

// Close releases the model. It is safe to call more than once.
func (t *Translator) Close() error {
	if t.handle != nil {
		C.ct2_translator_free(t.handle)
		t.handle = nil
	}
	return nil
}

// cStrings copies ss into a C array. The returned func frees everything.
func cStrings(ss []string) (**C.char, func()) {
	if len(ss) == 0 {
		return nil, func() {}
	}
	arr := (**C.char)(C.malloc(C.size_t(len(ss)) * C.size_t(unsafe.Sizeof(uintptr(0)))))
	ptrs := unsafe.Slice(arr, len(ss))
	for i, s := range ss {
		ptrs[i] = C.CString(s)
	}
	return arr, func() {
		for _, p := range ptrs {
			C.free(unsafe.Pointer(p))
		}
		C.free(unsafe.Pointer(arr))
	}
}

func takeError(cErr *C.char) string {
	if cErr == nil {
		return "unknown error"
	}
	defer C.ct2_free_string(cErr)
	return C.GoString(cErr)
}
