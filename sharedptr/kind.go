package sharedptr

import (
	"reflect"

	openpose "github.com/wippyai/openpose-go"
	"github.com/wippyai/openpose-go/native"
)

// Kind identifies the concrete native type a shared pointer holds.
type Kind uint8

const (
	KindPoseExtractorCaffe Kind = iota
	KindProducer
	KindDatumProducer
	KindWDatumProducer
	KindGui
	KindWGui
	KindUserWorkerOfDefault
	KindUserWorkerOfCustom

	kindCount
)

type kindInfo struct {
	name string
	stem string
	typ  reflect.Type
	view func(native.Ptr) openpose.Object
}

var kinds = [kindCount]kindInfo{
	KindPoseExtractorCaffe: {
		name: "PoseExtractorCaffe",
		stem: openpose.StemPoseExtractorCaffe,
		typ:  reflect.TypeFor[*openpose.PoseExtractorCaffe](),
		view: func(p native.Ptr) openpose.Object { return openpose.PoseExtractorCaffeView(p) },
	},
	KindProducer: {
		name: "Producer",
		stem: openpose.StemProducer,
		typ:  reflect.TypeFor[*openpose.Producer](),
		view: func(p native.Ptr) openpose.Object { return openpose.ProducerView(p) },
	},
	KindDatumProducer: {
		name: "DatumProducer",
		stem: openpose.StemDatumProducer,
		typ:  reflect.TypeFor[*openpose.DatumProducer](),
		view: func(p native.Ptr) openpose.Object { return openpose.DatumProducerView(p) },
	},
	KindWDatumProducer: {
		name: "WDatumProducer",
		stem: openpose.StemWDatumProducer,
		typ:  reflect.TypeFor[*openpose.WDatumProducer](),
		view: func(p native.Ptr) openpose.Object { return openpose.WDatumProducerView(p) },
	},
	KindGui: {
		name: "Gui",
		stem: openpose.StemGui,
		typ:  reflect.TypeFor[*openpose.Gui](),
		view: func(p native.Ptr) openpose.Object { return openpose.GuiView(p) },
	},
	KindWGui: {
		name: "WGui",
		stem: openpose.StemWGui,
		typ:  reflect.TypeFor[*openpose.WGui](),
		view: func(p native.Ptr) openpose.Object { return openpose.WGuiView(p) },
	},
	KindUserWorkerOfDefault: {
		name: "UserWorkerOfDefault",
		stem: openpose.StemUserWorkerOfDefault,
		typ:  reflect.TypeFor[*openpose.UserWorker[*openpose.Datum]](),
		view: func(p native.Ptr) openpose.Object { return openpose.UserWorkerView[*openpose.Datum](p) },
	},
	KindUserWorkerOfCustom: {
		name: "UserWorkerOfCustom",
		stem: openpose.StemUserWorkerOfCustom,
		typ:  reflect.TypeFor[*openpose.UserWorker[*openpose.CustomDatum]](),
		view: func(p native.Ptr) openpose.Object { return openpose.UserWorkerView[*openpose.CustomDatum](p) },
	},
}

// subtypeKinds are consulted, in order, when a type has no exact entry.
var subtypeKinds = [...]Kind{
	KindUserWorkerOfDefault,
	KindUserWorkerOfCustom,
}

// Kinds returns every registered kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, kindCount)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// Valid reports whether k is a registered kind.
func (k Kind) Valid() bool {
	return k < kindCount
}

func (k Kind) String() string {
	if !k.Valid() {
		return "Kind(invalid)"
	}
	return kinds[k].name
}

// Stem returns the native symbol stem of k.
func (k Kind) Stem() string {
	if !k.Valid() {
		return ""
	}
	return kinds[k].stem
}

// Type returns the Go type registered for k.
func (k Kind) Type() reflect.Type {
	if !k.Valid() {
		return nil
	}
	return kinds[k].typ
}

// Symbols returns the shared pointer entry points k requires.
func (k Kind) Symbols() []string {
	if !k.Valid() {
		return nil
	}
	stem := kinds[k].stem
	return []string{native.SharedNew(stem), native.SharedDelete(stem), native.SharedGet(stem)}
}
