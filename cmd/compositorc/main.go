// Command compositorc compiles a compositor script against a device
// profile and prints the operations the chain would execute.
//
// Usage:
//
//	compositorc -script bloom.compositor [-caps mobile.toml] [-chain Bloom,Tone] [-output frame.png]
//
// With -output one frame of a flat test scene is rendered through the chain
// on the soft backend and written as PNG.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/compositor"
)

func main() {
	var cfg config
	flag.StringVar(&cfg.script, "script", "", "compositor script to load (required)")
	flag.StringVar(&cfg.caps, "caps", "", "TOML device capability profile")
	flag.StringVar(&cfg.chain, "chain", "", "comma separated compositors to chain, default all in script order")
	flag.StringVar(&cfg.scheme, "scheme", "", "technique scheme to prefer")
	flag.IntVar(&cfg.width, "width", 256, "viewport width")
	flag.IntVar(&cfg.height, "height", 256, "viewport height")
	flag.StringVar(&cfg.output, "output", "", "render one frame and save it as PNG")
	flag.StringVar(&cfg.backend, "backend", "soft", "render backend: soft or halrs")
	flag.BoolVar(&cfg.format, "format", false, "print the parsed script in canonical form")
	verbose := flag.Bool("v", false, "log compile diagnostics to stderr")
	flag.Parse()

	if cfg.script == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *verbose {
		compositor.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	if err := run(cfg, os.Stdout); err != nil {
		log.Fatalf("compositorc: %v", err)
	}
}
