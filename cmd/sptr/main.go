package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/openpose-go/native"
	"github.com/wippyai/openpose-go/native/wasmlib"
	"github.com/wippyai/openpose-go/sharedptr"
)

func main() {
	var (
		list        = flag.Bool("list", false, "List registered kinds and their native symbols and exit")
		check       = flag.Bool("check", false, "Resolve every kind against the default native library and exit")
		kindName    = flag.String("kind", "Producer", "Kind to exercise (name or native stem)")
		gets        = flag.Int("gets", 3, "Number of Get calls per holder")
		useWasm     = flag.Bool("wasm", false, "Route native calls through a wazero host module")
		verbose     = flag.Bool("v", false, "Verbose logging")
		metrics     = flag.Bool("metrics", false, "Print shared pointer metrics after the scenario")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *verbose {
		log, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer log.Sync()
		sharedptr.SetLogger(log.Named("sharedptr"))
		wasmlib.SetLogger(log.Named("wasmlib"))
	}

	if *list {
		printKinds()
		return
	}

	if *check {
		if err := checkDefault(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	kind, err := parseKind(*kindName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			if err := runInteractive(kind, *useWasm); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}
		fmt.Fprintln(os.Stderr, "stdout is not a terminal, running the scripted scenario")
	}

	reg := prometheus.NewRegistry()
	if err := sharedptr.RegisterMetrics(reg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(kind, *gets, *useWasm); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *metrics {
		if err := printMetrics(reg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

func printKinds() {
	for _, k := range sharedptr.Kinds() {
		fmt.Printf("%-20s %-22s %s\n", k, k.Stem(), k.Type())
		for _, sym := range k.Symbols() {
			fmt.Printf("  %s\n", sym)
		}
	}
}

func checkDefault() error {
	r, err := sharedptr.Default()
	if err != nil {
		return err
	}
	if err := r.Preload(); err != nil {
		return err
	}
	lib, _ := native.Default()
	fmt.Printf("%s: all %d kinds resolved\n", lib.Name(), len(sharedptr.Kinds()))
	return nil
}

// run wraps one object, hands copies to emulated native code, reads through
// every holder and releases them, checking the heap afterwards.
func run(kind sharedptr.Kind, gets int, useWasm bool) error {
	ctx := context.Background()

	s, err := newSession(ctx, kind, useWasm)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer s.close(ctx)

	fmt.Printf("Kind: %s (%s)\n", kind, kind.Stem())
	fmt.Printf("Library: %s\n", s.lib.Name())

	if err := s.wrap(); err != nil {
		return fmt.Errorf("wrap: %w", err)
	}
	fmt.Printf("Wrapped object %s\n", s.raw)

	if err := s.attach(); err != nil {
		return fmt.Errorf("attach: %w", err)
	}

	for _, h := range append([]holder{s.owner}, s.attached...) {
		mode := "attached"
		if h.IsOwning() {
			mode = "owning"
		}
		handle, _ := h.Handle()
		for i := 0; i < gets; i++ {
			p, err := h.view()
			if err != nil {
				return fmt.Errorf("get: %w", err)
			}
			if p != s.raw {
				return fmt.Errorf("get through %s returned %s, want %s", handle, p, s.raw)
			}
		}
		fmt.Printf("  %-8s %s: %d views of %s\n", mode, handle, gets, s.raw)
	}

	if err := s.releaseOwner(); err != nil {
		return fmt.Errorf("release owner: %w", err)
	}
	if !s.heap.IsLive(s.raw) {
		return fmt.Errorf("object %s released while still attached", s.raw)
	}
	if err := s.releaseAttached(); err != nil {
		return fmt.Errorf("release attached: %w", err)
	}

	fmt.Printf("\nNative events:\n")
	for _, e := range s.events {
		fmt.Printf("  %s\n", e)
	}

	if v := s.heap.Violations(); len(v) > 0 {
		return fmt.Errorf("%d heap violations, first: %w", len(v), v[0])
	}
	if n := s.heap.Live(); n != 0 {
		return fmt.Errorf("%d allocations leaked", n)
	}
	fmt.Printf("\nHeap clean: every allocation released exactly once\n")
	return nil
}

func printMetrics(reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	fmt.Printf("\nMetrics:\n")
	for _, f := range families {
		for _, m := range f.GetMetric() {
			var labels []string
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			value := m.GetCounter().GetValue()
			if g := m.GetGauge(); g != nil {
				value = g.GetValue()
			}
			fmt.Printf("  %s{%s} %g\n", f.GetName(), strings.Join(labels, ","), value)
		}
	}
	return nil
}
