//go:build openpose && cgo

// Package cgolib binds the shared pointer entry points of the native
// OpenPose shim through cgo. Importing it installs the shim as the
// process-wide default library.
//
// Build with -tags openpose and the shim on the linker path.
package cgolib

/*
#cgo LDFLAGS: -lOpenPoseDotNetNative
#include <stdint.h>

#define OP_SHARED_PTR(stem)                                                      \
	extern void* std_shared_ptr_op_##stem##_new(void* p);                        \
	extern void  std_shared_ptr_op_##stem##_delete(void* p);                     \
	extern void* std_shared_ptr_op_##stem##_get(void* p);                        \
	static uintptr_t go_##stem##_new(uintptr_t p) {                              \
		return (uintptr_t)std_shared_ptr_op_##stem##_new((void*)p);              \
	}                                                                            \
	static void go_##stem##_delete(uintptr_t p) {                                \
		std_shared_ptr_op_##stem##_delete((void*)p);                             \
	}                                                                            \
	static uintptr_t go_##stem##_get(uintptr_t p) {                              \
		return (uintptr_t)std_shared_ptr_op_##stem##_get((void*)p);              \
	}

OP_SHARED_PTR(PoseExtractorCaffe)
OP_SHARED_PTR(Producer)
OP_SHARED_PTR(DatumProducerOfDatum)
OP_SHARED_PTR(WDatumProducerOfDatum)
OP_SHARED_PTR(Gui)
OP_SHARED_PTR(WGui)
OP_SHARED_PTR(UserWorkerOfDefault)
OP_SHARED_PTR(UserWorkerOfCustom)
*/
import "C"

import (
	"github.com/wippyai/openpose-go/errors"
	"github.com/wippyai/openpose-go/native"
)

const libraryName = "OpenPoseDotNetNative"

type entry struct {
	newFn    func(C.uintptr_t) C.uintptr_t
	deleteFn func(C.uintptr_t)
	getFn    func(C.uintptr_t) C.uintptr_t
}

var entries = map[string]entry{
	"PoseExtractorCaffe": {
		func(p C.uintptr_t) C.uintptr_t { return C.go_PoseExtractorCaffe_new(p) },
		func(p C.uintptr_t) { C.go_PoseExtractorCaffe_delete(p) },
		func(p C.uintptr_t) C.uintptr_t { return C.go_PoseExtractorCaffe_get(p) },
	},
	"Producer": {
		func(p C.uintptr_t) C.uintptr_t { return C.go_Producer_new(p) },
		func(p C.uintptr_t) { C.go_Producer_delete(p) },
		func(p C.uintptr_t) C.uintptr_t { return C.go_Producer_get(p) },
	},
	"DatumProducerOfDatum": {
		func(p C.uintptr_t) C.uintptr_t { return C.go_DatumProducerOfDatum_new(p) },
		func(p C.uintptr_t) { C.go_DatumProducerOfDatum_delete(p) },
		func(p C.uintptr_t) C.uintptr_t { return C.go_DatumProducerOfDatum_get(p) },
	},
	"WDatumProducerOfDatum": {
		func(p C.uintptr_t) C.uintptr_t { return C.go_WDatumProducerOfDatum_new(p) },
		func(p C.uintptr_t) { C.go_WDatumProducerOfDatum_delete(p) },
		func(p C.uintptr_t) C.uintptr_t { return C.go_WDatumProducerOfDatum_get(p) },
	},
	"Gui": {
		func(p C.uintptr_t) C.uintptr_t { return C.go_Gui_new(p) },
		func(p C.uintptr_t) { C.go_Gui_delete(p) },
		func(p C.uintptr_t) C.uintptr_t { return C.go_Gui_get(p) },
	},
	"WGui": {
		func(p C.uintptr_t) C.uintptr_t { return C.go_WGui_new(p) },
		func(p C.uintptr_t) { C.go_WGui_delete(p) },
		func(p C.uintptr_t) C.uintptr_t { return C.go_WGui_get(p) },
	},
	"UserWorkerOfDefault": {
		func(p C.uintptr_t) C.uintptr_t { return C.go_UserWorkerOfDefault_new(p) },
		func(p C.uintptr_t) { C.go_UserWorkerOfDefault_delete(p) },
		func(p C.uintptr_t) C.uintptr_t { return C.go_UserWorkerOfDefault_get(p) },
	},
	"UserWorkerOfCustom": {
		func(p C.uintptr_t) C.uintptr_t { return C.go_UserWorkerOfCustom_new(p) },
		func(p C.uintptr_t) { C.go_UserWorkerOfCustom_delete(p) },
		func(p C.uintptr_t) C.uintptr_t { return C.go_UserWorkerOfCustom_get(p) },
	},
}

// Library exposes the shim's shared pointer entry points. Object
// constructors are not part of it.
type Library struct{}

// Name implements native.Library.
func (Library) Name() string {
	return libraryName
}

// Lookup implements native.Library.
func (Library) Lookup(symbol string) (native.Func, error) {
	for stem, e := range entries {
		switch symbol {
		case native.SharedNew(stem):
			return func(args ...uint64) (uint64, error) {
				if len(args) != 1 {
					return 0, errors.InvalidInput(errors.PhaseNative, symbol+": expected 1 argument")
				}
				return uint64(e.newFn(C.uintptr_t(args[0]))), nil
			}, nil
		case native.SharedDelete(stem):
			return func(args ...uint64) (uint64, error) {
				if len(args) != 1 || args[0] == 0 {
					return 0, errors.InvalidHandle(errors.PhaseNative, symbol, 0)
				}
				e.deleteFn(C.uintptr_t(args[0]))
				return 0, nil
			}, nil
		case native.SharedGet(stem):
			return func(args ...uint64) (uint64, error) {
				if len(args) != 1 || args[0] == 0 {
					return 0, errors.InvalidHandle(errors.PhaseNative, symbol, 0)
				}
				return uint64(e.getFn(C.uintptr_t(args[0]))), nil
			}, nil
		}
	}
	return nil, errors.MissingSymbol(libraryName, symbol)
}

func init() {
	native.SetDefault(Library{})
}
