// Package main is the entry point for the audiod daemon.
// audiod decodes, mixes and analyzes audio on behalf of local clients, which
// talk to it over a unix socket or the D-Bus session bus.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/austinkregel/local-media/audiod/internal/audio"
	"github.com/austinkregel/local-media/audiod/internal/bus"
	"github.com/austinkregel/local-media/audiod/internal/config"
	"github.com/austinkregel/local-media/audiod/internal/engine"
	"github.com/austinkregel/local-media/audiod/internal/ipc"
	"github.com/austinkregel/local-media/audiod/internal/source"
	"github.com/austinkregel/local-media/audiod/internal/types"
)

// Version is set at build time via ldflags
var Version = "dev"

// Config holds command line options
type Config struct {
	SocketPath string
	ConfigDir  string
	Verbose    bool

	// One-shot mode
	File    string
	Op      string
	Quality string
	Play    bool
	Volume  float64

	// Library path edits applied to the config file before exiting
	AddLibrary    string
	RemoveLibrary string
}

var ops = map[string]string{
	"process":  engine.TypeProcessAudio,
	"analyze":  engine.TypeAnalyzeAudio,
	"features": engine.TypeExtractFeatures,
}

func main() {
	cfg := parseFlags()

	if cfg.Verbose {
		log.Printf("audiod version %s starting...", Version)
	}

	// Create context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	var err error
	switch {
	case cfg.AddLibrary != "" || cfg.RemoveLibrary != "":
		err = editLibraries(cfg)
	case cfg.File != "":
		err = runOnce(ctx, cfg)
	default:
		err = run(ctx, cfg)
	}
	if err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func parseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.SocketPath, "socket", "", "IPC socket path (default: auto-generated based on UID)")
	flag.StringVar(&cfg.ConfigDir, "config", "", "Configuration directory (default: ~/.config/audiod)")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Enable verbose logging")
	flag.StringVar(&cfg.File, "file", "", "Process a single file and print the result instead of running the daemon")
	flag.StringVar(&cfg.Op, "op", "features", "One-shot operation: process, analyze or features")
	flag.StringVar(&cfg.Quality, "quality", "", "Mixing quality for -op process (low, medium, high, lossless, adaptive)")
	flag.BoolVar(&cfg.Play, "play", false, "Play the mixed audio after -op process")
	flag.Float64Var(&cfg.Volume, "volume", 1.0, "Playback volume for -play (0.0 - 1.0)")
	flag.StringVar(&cfg.AddLibrary, "add-library", "", "Add a library directory to the config and exit")
	flag.StringVar(&cfg.RemoveLibrary, "remove-library", "", "Remove a library directory from the config and exit")
	flag.Parse()

	if cfg.ConfigDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to get home directory: %v", err)
		}
		cfg.ConfigDir = filepath.Join(homeDir, ".config", "audiod")
	}

	if cfg.SocketPath == "" {
		cfg.SocketPath = fmt.Sprintf("/tmp/audiod-%d.sock", os.Getuid())
	}

	return cfg
}

func loadManager(dir string) (*config.Manager, error) {
	configMgr := config.NewManager(dir)
	if err := configMgr.Load(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log.Printf("[CONFIG] Loaded %s", configMgr.GetPath())
	return configMgr, nil
}

func loadConfig(dir string) (*config.Config, error) {
	configMgr, err := loadManager(dir)
	if err != nil {
		return nil, err
	}
	return configMgr.Get(), nil
}

// editLibraries applies -add-library and -remove-library. A running daemon
// picks the change up on restart.
func editLibraries(cfg *Config) error {
	configMgr, err := loadManager(cfg.ConfigDir)
	if err != nil {
		return err
	}

	if cfg.AddLibrary != "" {
		path, err := filepath.Abs(cfg.AddLibrary)
		if err != nil {
			return fmt.Errorf("invalid library path %s: %w", cfg.AddLibrary, err)
		}
		if err := configMgr.AddLibraryPath(path); err != nil {
			return err
		}
		log.Printf("[CONFIG] Added library %s", path)
	}
	if cfg.RemoveLibrary != "" {
		path, err := filepath.Abs(cfg.RemoveLibrary)
		if err != nil {
			return fmt.Errorf("invalid library path %s: %w", cfg.RemoveLibrary, err)
		}
		if err := configMgr.RemoveLibraryPath(path); err != nil {
			return err
		}
		log.Printf("[CONFIG] Removed library %s", path)
	}

	for _, p := range configMgr.Get().LibraryPaths {
		fmt.Println(p)
	}
	return nil
}

func newDecoder(daemonCfg *config.Config) *audio.Decoder {
	return audio.NewDecoder(audio.DecoderConfig{
		FFmpegFallback: daemonCfg.Decoder.FFmpegFallback,
		SampleRate:     daemonCfg.Decoder.SampleRate,
	})
}

func run(ctx context.Context, cfg *Config) error {
	daemonCfg, err := loadConfig(cfg.ConfigDir)
	if err != nil {
		return err
	}

	decoder := newDecoder(daemonCfg)
	resolver := source.NewResolver(source.Config{
		LibraryPaths: daemonCfg.LibraryPaths,
		MaxBytes:     daemonCfg.Source.MaxFetchBytes,
		HTTPTimeout:  daemonCfg.HTTPTimeout(),
		AllowRemote:  daemonCfg.Source.AllowRemote,
	})
	params := daemonCfg.Params()

	pool, err := engine.NewPool(engine.PoolConfig{
		Workers:        daemonCfg.Engine.Workers,
		QueueSize:      daemonCfg.Engine.QueueSize,
		RequestTimeout: daemonCfg.RequestTimeout(),
		NewHandler: func() (engine.Handler, error) {
			return engine.NewEngine(engine.Config{Decoder: decoder, Resolver: resolver, Params: params})
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize engine pool: %w", err)
	}
	pool.Start()
	defer pool.Stop()

	router := ipc.NewRouter(pool, cfg.Verbose)

	if daemonCfg.Transport.DBus {
		engineBus, err := bus.New(ctx, router)
		if err != nil {
			log.Printf("[DBUS] Warning: failed to export engine: %v", err)
			log.Printf("[DBUS] Continuing with the socket transport only")
		} else {
			defer engineBus.Close()
		}
	}

	server := ipc.NewServer(cfg.SocketPath, router, daemonCfg.Engine.MaxRequestBytes)

	log.Printf("Starting IPC server on %s", cfg.SocketPath)
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("IPC server error: %w", err)
	}

	return nil
}

// runOnce handles a single file with an in-process engine and prints the
// response as JSON
func runOnce(ctx context.Context, cfg *Config) error {
	reqType, ok := ops[cfg.Op]
	if !ok {
		return fmt.Errorf("unknown -op %q (want process, analyze or features)", cfg.Op)
	}

	daemonCfg, err := loadConfig(cfg.ConfigDir)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(cfg.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", cfg.File, err)
	}

	eng, err := engine.NewEngine(engine.Config{Decoder: newDecoder(daemonCfg), Params: daemonCfg.Params()})
	if err != nil {
		return err
	}

	handleCtx := ctx
	if timeout := daemonCfg.RequestTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		handleCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result := eng.Handle(handleCtx, engine.Request{
		ID:   filepath.Base(cfg.File),
		Type: reqType,
		Payload: engine.Payload{
			AudioBytes: data,
			Quality:    cfg.Quality,
			TrackID:    filepath.Base(cfg.File),
		},
	})

	resp, err := ipc.NewResponse(result)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	if result.Type == engine.TypeError {
		return fmt.Errorf("%s: %s", result.Code, result.Error)
	}

	if processed, ok := result.Data.(*types.ProcessedAudio); ok && cfg.Play {
		return play(ctx, processed, cfg.Volume)
	}
	return nil
}

func play(ctx context.Context, processed *types.ProcessedAudio, volume float64) error {
	preview, err := audio.NewPreview(processed.SampleRate)
	if err != nil {
		return fmt.Errorf("failed to initialize audio output: %w", err)
	}
	defer preview.Close()
	preview.SetVolume(volume)

	log.Printf("[AUDIO] Playing %.1fs of mixed audio at %d Hz (volume %.2f)",
		processed.Duration, preview.SampleRate(), preview.GetVolume())
	if err := preview.Play(ctx, processed); err != nil && ctx.Err() == nil {
		return fmt.Errorf("playback failed: %w", err)
	}
	return nil
}
