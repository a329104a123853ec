package openpose

import (
	"github.com/wippyai/openpose-go/native"
)

// Payload is the closed set of datum types a worker can process.
type Payload interface {
	*Datum | *CustomDatum
}

// Worker is implemented by workers processing payload D.
// Exactly one registered type implements each instantiation.
type Worker[D Payload] interface {
	Object
	accepts(D)
}

// UserWorker is a user-defined pipeline stage over payload D.
//
// Go types extending a worker embed it:
//
//	type Tracker struct {
//	    *openpose.UserWorker[*openpose.Datum]
//	}
type UserWorker[D Payload] struct{ Base }

// WorkerStem returns the native stem of UserWorker[D].
func WorkerStem[D Payload]() string {
	var zero D
	if _, ok := any(zero).(*CustomDatum); ok {
		return StemUserWorkerOfCustom
	}
	return StemUserWorkerOfDefault
}

// NewUserWorker allocates an owned UserWorker.
func NewUserWorker[D Payload](lib native.Library) (*UserWorker[D], error) {
	b, err := newOwned(lib, WorkerStem[D]())
	if err != nil {
		return nil, err
	}
	return &UserWorker[D]{Base: b}, nil
}

// UserWorkerView returns a non-owning view of p.
func UserWorkerView[D Payload](p native.Ptr) *UserWorker[D] {
	return &UserWorker[D]{Base: newView(WorkerStem[D](), p)}
}

func (*UserWorker[D]) accepts(D) {}
