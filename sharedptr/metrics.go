package sharedptr

import (
	stderrors "errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	sharedCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "openpose",
		Subsystem: "shared_ptr",
		Name:      "created_total",
		Help:      "Shared pointer wrappers created, by kind and construction mode.",
	}, []string{"kind", "mode"})

	sharedReleased = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "openpose",
		Subsystem: "shared_ptr",
		Name:      "released_total",
		Help:      "Native shared pointers released, by kind and release path.",
	}, []string{"kind", "via"})

	sharedReleaseErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "openpose",
		Subsystem: "shared_ptr",
		Name:      "release_errors_total",
		Help:      "Native shared pointer releases that reported an error.",
	}, []string{"kind"})

	viewsIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "openpose",
		Subsystem: "shared_ptr",
		Name:      "views_total",
		Help:      "Non-owning views returned by Get.",
	}, []string{"kind"})

	sharedLive = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "openpose",
		Subsystem: "shared_ptr",
		Name:      "live",
		Help:      "Wrappers holding a native shared pointer that has not been released.",
	}, []string{"kind"})
)

const (
	modeOwning   = "owning"
	modeAttached = "attached"

	viaClose   = "close"
	viaCleanup = "cleanup"
)

// Collectors returns the package's metric collectors.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		sharedCreated,
		sharedReleased,
		sharedReleaseErrors,
		viewsIssued,
		sharedLive,
	}
}

// RegisterMetrics registers the package's collectors with reg.
// Collectors already registered with reg are skipped.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if stderrors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}
