package openpose

import (
	"github.com/wippyai/openpose-go/native"
)

// Native symbol stems of the wrappable types.
const (
	StemPoseExtractorCaffe  = "PoseExtractorCaffe"
	StemProducer            = "Producer"
	StemDatumProducer       = "DatumProducerOfDatum"
	StemWDatumProducer      = "WDatumProducerOfDatum"
	StemGui                 = "Gui"
	StemWGui                = "WGui"
	StemUserWorkerOfDefault = "UserWorkerOfDefault"
	StemUserWorkerOfCustom  = "UserWorkerOfCustom"

	StemDatum       = "Datum"
	StemCustomDatum = "CustomDatum"
)

// PoseExtractorCaffe is the Caffe-backed pose extraction network.
type PoseExtractorCaffe struct{ Base }

// NewPoseExtractorCaffe allocates an owned PoseExtractorCaffe.
func NewPoseExtractorCaffe(lib native.Library) (*PoseExtractorCaffe, error) {
	b, err := newOwned(lib, StemPoseExtractorCaffe)
	if err != nil {
		return nil, err
	}
	return &PoseExtractorCaffe{Base: b}, nil
}

// PoseExtractorCaffeView returns a non-owning view of p.
func PoseExtractorCaffeView(p native.Ptr) *PoseExtractorCaffe {
	return &PoseExtractorCaffe{Base: newView(StemPoseExtractorCaffe, p)}
}

// Producer is a frame source: camera, video, image directory or stream.
type Producer struct{ Base }

// NewProducer allocates an owned Producer.
func NewProducer(lib native.Library) (*Producer, error) {
	b, err := newOwned(lib, StemProducer)
	if err != nil {
		return nil, err
	}
	return &Producer{Base: b}, nil
}

// ProducerView returns a non-owning view of p.
func ProducerView(p native.Ptr) *Producer {
	return &Producer{Base: newView(StemProducer, p)}
}

// DatumProducer turns frames of a Producer into Datum batches.
type DatumProducer struct{ Base }

// NewDatumProducer allocates an owned DatumProducer.
func NewDatumProducer(lib native.Library) (*DatumProducer, error) {
	b, err := newOwned(lib, StemDatumProducer)
	if err != nil {
		return nil, err
	}
	return &DatumProducer{Base: b}, nil
}

// DatumProducerView returns a non-owning view of p.
func DatumProducerView(p native.Ptr) *DatumProducer {
	return &DatumProducer{Base: newView(StemDatumProducer, p)}
}

// WDatumProducer is the pipeline stage running a DatumProducer.
type WDatumProducer struct{ Base }

// NewWDatumProducer allocates an owned WDatumProducer.
func NewWDatumProducer(lib native.Library) (*WDatumProducer, error) {
	b, err := newOwned(lib, StemWDatumProducer)
	if err != nil {
		return nil, err
	}
	return &WDatumProducer{Base: b}, nil
}

// WDatumProducerView returns a non-owning view of p.
func WDatumProducerView(p native.Ptr) *WDatumProducer {
	return &WDatumProducer{Base: newView(StemWDatumProducer, p)}
}

// Gui is the native display window.
type Gui struct{ Base }

// NewGui allocates an owned Gui.
func NewGui(lib native.Library) (*Gui, error) {
	b, err := newOwned(lib, StemGui)
	if err != nil {
		return nil, err
	}
	return &Gui{Base: b}, nil
}

// GuiView returns a non-owning view of p.
func GuiView(p native.Ptr) *Gui {
	return &Gui{Base: newView(StemGui, p)}
}

// WGui is the pipeline stage driving a Gui.
type WGui struct{ Base }

// NewWGui allocates an owned WGui.
func NewWGui(lib native.Library) (*WGui, error) {
	b, err := newOwned(lib, StemWGui)
	if err != nil {
		return nil, err
	}
	return &WGui{Base: b}, nil
}

// WGuiView returns a non-owning view of p.
func WGuiView(p native.Ptr) *WGui {
	return &WGui{Base: newView(StemWGui, p)}
}

// Datum is the default pipeline payload. It is an Object but cannot be
// held by a shared pointer.
type Datum struct{ Base }

// NewDatum allocates an owned Datum.
func NewDatum(lib native.Library) (*Datum, error) {
	b, err := newOwned(lib, StemDatum)
	if err != nil {
		return nil, err
	}
	return &Datum{Base: b}, nil
}

// CustomDatum is the extended pipeline payload.
type CustomDatum struct{ Base }

// NewCustomDatum allocates an owned CustomDatum.
func NewCustomDatum(lib native.Library) (*CustomDatum, error) {
	b, err := newOwned(lib, StemCustomDatum)
	if err != nil {
		return nil, err
	}
	return &CustomDatum{Base: b}, nil
}
