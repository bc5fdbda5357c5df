//go:build cgo

/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command libmetaltran builds the C shared library:
//
//	go build -buildmode=c-shared -o libmetaltran.so ./cmd/libmetaltran
//
// Engine settings other than the model (engine, engine_url, device, ...) are
// read from METALTRAN_* environment variables and the optional config file,
// as for the CLI.
package main

/*
#include <stdint.h>
#include <stdlib.h>
*/
import "C"

import (
	"context"
	"runtime/cgo"
	"sync"
	"unsafe"

	"github.com/valpere/metaltran/internal/config"
	"github.com/valpere/metaltran/internal/translator"
)

type handle struct {
	tr *translator.Translator

	mu      sync.Mutex
	lastErr string
}

func (h *handle) setErr(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		h.lastErr = ""
		return
	}
	h.lastErr = err.Error()
}

// Errors from create_metal_translate and free_metal_translate have no
// handle to live on.
var (
	createMu  sync.Mutex
	createErr string
)

func setCreateErr(err error) {
	createMu.Lock()
	defer createMu.Unlock()
	createErr = err.Error()
}

func lookup(h C.uintptr_t) (*handle, bool) {
	return lookupHandle(uintptr(h))
}

// lookupHandle resolves a handle returned by create_metal_translate. A zero,
// unknown or already freed handle reports false.
func lookupHandle(h uintptr) (mt *handle, ok bool) {
	if h == 0 {
		return nil, false
	}
	// cgo.Handle.Value panics on a handle that is not live.
	defer func() {
		if recover() != nil {
			mt, ok = nil, false
		}
	}()
	mt, ok = cgo.Handle(h).Value().(*handle)
	return mt, ok
}

//export create_metal_translate
func create_metal_translate(modelPath, modelFamily *C.char, maxTokens C.int) C.uintptr_t {
	v, err := config.NewViper("")
	if err != nil {
		setCreateErr(err)
		return 0
	}
	cfg, err := config.Load(v)
	if err != nil {
		setCreateErr(err)
		return 0
	}
	cfg.ModelPath = C.GoString(modelPath)
	cfg.Family = C.GoString(modelFamily)
	cfg.MaxTokens = int(maxTokens)

	tr, err := translator.Open(cfg)
	if err != nil {
		setCreateErr(err)
		return 0
	}
	return C.uintptr_t(cgo.NewHandle(&handle{tr: tr}))
}

// translate returns a malloc'd string the caller releases with
// free_translated_string, or NULL on failure. An empty input gives "".
//
//export translate
func translate(h C.uintptr_t, source, sourceCode, targetCode *C.char) *C.char {
	mt, ok := lookup(h)
	if !ok {
		return nil
	}
	out, err := mt.tr.Translate(context.Background(), C.GoString(source), C.GoString(sourceCode), C.GoString(targetCode))
	mt.setErr(err)
	if err != nil {
		return nil
	}
	return C.CString(out)
}

// metal_translate_last_error describes the last failure on h, or of
// create_metal_translate and free_metal_translate when h is 0. The result is NULL when there was no
// failure and must be released with free_translated_string otherwise.
//
//export metal_translate_last_error
func metal_translate_last_error(h C.uintptr_t) *C.char {
	var msg string
	if h == 0 {
		createMu.Lock()
		msg = createErr
		createMu.Unlock()
	} else if mt, ok := lookup(h); ok {
		mt.mu.Lock()
		msg = mt.lastErr
		mt.mu.Unlock()
	}
	if msg == "" {
		return nil
	}
	return C.CString(msg)
}

//export free_translated_string
func free_translated_string(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

// free_metal_translate releases h. Freeing a handle twice is a no-op. A
// failure to shut the engine down is reported by
// metal_translate_last_error(0).
//
//export free_metal_translate
func free_metal_translate(h C.uintptr_t) {
	freeHandle(uintptr(h))
}

var freeMu sync.Mutex

func freeHandle(h uintptr) {
	freeMu.Lock()
	defer freeMu.Unlock()

	mt, ok := lookupHandle(h)
	if !ok {
		return
	}
	cgo.Handle(h).Delete()
	if err := mt.tr.Close(); err != nil {
		setCreateErr(err)
	}
}

func main() {}
