package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagResolution = flag.Int("resolution", 0, "Atlas resolution in texels")
	flagDistance   = flag.Float64("distance", 0, "Object draw distance")
	flagFrames     = flag.Int("frames", 0, "Number of frames to simulate")
	flagObjects    = flag.Int("objects", -1, "Number of generated objects")
	flagSeed       = flag.Uint64("seed", 0, "Scene generation seed")
	flagTrace      = flag.String("trace", "", "Write compressed frame stats to this path")
	flagObserve    = flag.String("observe", "", "Serve live frame stats on this address")
	flagHistory    = flag.String("history", "", "Append the run report to this SQLite file")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagResolution > 0 {
		cfg.Atlas.Resolution = *flagResolution
	}
	if *flagDistance > 0 {
		cfg.Atlas.Distance = float32(*flagDistance)
	}
	if *flagFrames > 0 {
		cfg.Bench.Frames = *flagFrames
	}
	if *flagObjects >= 0 {
		cfg.Scene.Count = *flagObjects
	}
	if *flagSeed != 0 {
		cfg.Scene.Seed = *flagSeed
	}
	if *flagTrace != "" {
		cfg.Trace.Path = *flagTrace
	}
	if *flagObserve != "" {
		cfg.Observer.Addr = *flagObserve
	}
	if *flagHistory != "" {
		cfg.Bench.History = *flagHistory
	}
}
