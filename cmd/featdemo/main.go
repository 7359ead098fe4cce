// Command featdemo drives a featcache store with concurrent mutators and a
// render loop, printing per-frame statistics.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f64"

	"github.com/gogpu/featcache"
	"github.com/gogpu/featcache/display"
)

func main() {
	var (
		objects  = flag.Int("objects", 200, "number of display objects")
		mutators = flag.Int("mutators", 4, "number of mutator goroutines")
		frames   = flag.Int("frames", 60, "frames to render before exiting")
		config   = flag.String("config", "", "TOML store configuration file")
		dump     = flag.String("dump", "", "write the final frame to this file as a msgpack snapshot")
		verbose  = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if *verbose {
		featcache.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	opts := []featcache.Option{featcache.WithMaterializers(display.Materializers())}
	if *config != "" {
		cfg, err := featcache.LoadConfig(*config)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		opts = append(opts, cfg.Options()...)
	}
	win := newWindow()
	opts = append(opts, featcache.WithWindowProvider(win))

	s := featcache.NewStore(opts...)
	defer s.Close()

	sc := populate(s, *objects)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for i := range *mutators {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sc.mutate(ctx, s, uint64(i))
		}()
	}

	r := &renderer{uploaded: make(map[featcache.FeatureID]uint64)}
	for frame := 1; frame <= *frames; frame++ {
		select {
		case <-win.redraw:
		case <-time.After(time.Second):
		}
		drawn, uploads := r.frame(s)
		st := s.Stats()
		log.Printf("frame %3d: %4d features, %4d uploads, %4d live, %4d ids, %d dispatches",
			frame, drawn, uploads, st.Live, st.Reserved, st.Dispatches)
	}
	cancel()
	wg.Wait()

	if *dump != "" {
		if err := writeDump(s, *dump); err != nil {
			log.Fatalf("Failed to dump: %v", err)
		}
	}

	st := s.Stats()
	log.Printf("done: %d inserts, %d deletes, %d queries, %d teardowns, %d recompute failures",
		st.Inserts, st.Deletes, st.Queries, st.Teardowns, st.RecomputeFailures)
}

// window is a headless gpucontext.WindowProvider whose redraw requests wake
// the render loop.
type window struct {
	gpucontext.NullWindowProvider
	redraw chan struct{}
}

func newWindow() *window {
	return &window{
		NullWindowProvider: gpucontext.NullWindowProvider{W: 1280, H: 720, SF: 1},
		redraw:             make(chan struct{}, 1),
	}
}

func (w *window) RequestRedraw() {
	select {
	case w.redraw <- struct{}{}:
	default:
	}
}

// renderer uploads a feature only when its (ID, Version) pair is new.
type renderer struct {
	uploaded map[featcache.FeatureID]uint64
}

func (r *renderer) frame(s *featcache.Store) (drawn, uploads int) {
	c := s.Query(featcache.Filter{})
	defer c.Close()

	seen := make(map[featcache.FeatureID]bool, len(r.uploaded))
	for c.Next() {
		f := c.Feature()
		drawn++
		seen[f.ID] = true
		if r.uploaded[f.ID] != f.Version {
			r.uploaded[f.ID] = f.Version
			uploads++
		}
	}
	for id := range r.uploaded {
		if !seen[id] {
			delete(r.uploaded, id)
		}
	}
	return drawn, uploads
}

type scene struct {
	pins  []*display.Placemark
	paths []*display.Path
}

func populate(s *featcache.Store, n int) *scene {
	rng := rand.New(rand.NewPCG(1, 1))
	sc := &scene{}
	for i := range n {
		p := f64.Vec3{rng.Float64()*360 - 180, rng.Float64()*170 - 85, 0}
		if i%3 == 2 {
			path := display.NewPath([]f64.Vec3{p, {p[0] + 1, p[1] + 1, 0}, {p[0] + 2, p[1], 0}})
			sc.paths = append(sc.paths, path)
			s.Insert(path)
			continue
		}
		pin := display.NewPlacemark(p)
		pin.SetLabel("Waypoint")
		sc.pins = append(sc.pins, pin)
		s.Insert(pin)
	}
	return sc
}

func (sc *scene) mutate(ctx context.Context, s *featcache.Store, seed uint64) {
	rng := rand.New(rand.NewPCG(seed, 2))
	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}

		switch op := rng.IntN(10); {
		case op < 5 && len(sc.pins) > 0:
			pin := sc.pins[rng.IntN(len(sc.pins))]
			p := pin.Position()
			pin.SetPosition(f64.Vec3{p[0] + rng.NormFloat64()*0.01, p[1] + rng.NormFloat64()*0.01, p[2]})
		case op < 8 && len(sc.paths) > 0:
			path := sc.paths[rng.IntN(len(sc.paths))]
			st := path.Style()
			st.Stroke = gputypes.Color{R: rng.Float64(), G: rng.Float64(), B: rng.Float64(), A: 1}
			path.SetStyle(st)
		case op == 8 && len(sc.pins) > 0:
			pin := sc.pins[rng.IntN(len(sc.pins))]
			pin.SetVisible(!pin.Visible())
		case len(sc.paths) > 0:
			path := sc.paths[rng.IntN(len(sc.paths))]
			if !s.Delete(path) {
				s.Insert(path)
			}
		}
	}
}

func writeDump(s *featcache.Store, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	n, err := s.Dump(f, featcache.Filter{})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	log.Printf("Snapshot of %d features saved to %s", n, path)
	return nil
}
