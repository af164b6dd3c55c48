package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/quasilyte/modplay"
	"github.com/quasilyte/modplay/modfile"
)

// This CLI tool plays the specified module using Ebitengine or oto,
// exports it to a WAV file or prints the scanner results.

func main() {
	var args arguments
	flag.StringVar(&args.configFile, "config", "", "a YAML file with the player settings")
	flag.StringVar(&args.output, "o", "", "export the song to a WAV file instead of playing it")
	flag.StringVar(&args.backend, "backend", "ebiten", "audio backend: ebiten or oto")
	flag.BoolVar(&args.info, "info", false, "print the module info and its sequences, then exit")
	flag.BoolVar(&args.verbose, "v", false, "enable debug logging")
	flag.StringVar(&args.mode, "mode", "auto", "player mode: auto, mod, protracker, st3, ft2, it, ...")
	flag.StringVar(&args.interpolation, "interp", "linear", "interpolation: nearest, linear or spline")
	flag.IntVar(&args.sampleRate, "rate", 44100, "output sample rate")
	flag.IntVar(&args.amplify, "amp", 1, "amplification factor in [0, 3]")
	flag.IntVar(&args.mix, "mix", 70, "stereo separation in [-100, 100]")
	flag.IntVar(&args.voices, "voices", 128, "the number of the mixer voices")
	flag.IntVar(&args.sequence, "seq", 0, "the sequence (subsong) to play")
	flag.BoolVar(&args.loop, "loop", false, "loop the song forever")
	flag.BoolVar(&args.vblank, "vblank", false, "force the VBlank timing")
	flag.BoolVar(&args.noFilter, "nofilter", false, "disable the resonant filter")
	flag.DurationVar(&args.maxTime, "time", 10*time.Minute, "the WAV export duration limit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: modplay [flags] path/to/music.{xm,mod,yaml}\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if len(flag.Args()) < 1 {
		flag.Usage()
		os.Exit(2)
	}
	args.filename = flag.Args()[0]

	if err := run(&args); err != nil {
		fmt.Fprintf(os.Stderr, "modplay: %v\n", err)
		os.Exit(1)
	}
}

type arguments struct {
	filename   string
	configFile string
	output     string
	backend    string
	info       bool
	verbose    bool

	mode          string
	interpolation string
	sampleRate    int
	amplify       int
	mix           int
	voices        int
	sequence      int
	loop          bool
	vblank        bool
	noFilter      bool
	maxTime       time.Duration
}

func run(args *arguments) error {
	level := slog.LevelInfo
	if args.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if args.configFile != "" {
		if err := loadConfigFile(args); err != nil {
			return err
		}
	}

	config, err := args.sessionConfig()
	if err != nil {
		return err
	}
	config.Logger = logger

	mod, err := loadModule(args.filename)
	if err != nil {
		return err
	}
	logger.Debug("module loaded", "name", mod.Name, "type", mod.Type, "channels", mod.NumChannels)

	session, err := modplay.NewSession(mod, config)
	if err != nil {
		return fmt.Errorf("prepare %s: %w", args.filename, err)
	}

	if args.info {
		printInfo(session)
		return nil
	}

	format := modplay.Format(0)
	if err := session.Start(config.SampleRate, format); err != nil {
		return err
	}
	defer session.End()
	if args.sequence != 0 {
		if err := session.SetSequence(args.sequence); err != nil {
			return err
		}
	}

	if args.output != "" {
		return exportWAV(session, args.output, args.maxTime, logger)
	}

	stream := modplay.NewStream(session)
	stream.SetLooping(args.loop)

	switch args.backend {
	case "ebiten":
		return playEbiten(stream, args.filename, config.SampleRate)
	case "oto":
		return playOto(stream, config.SampleRate, logger)
	default:
		return fmt.Errorf("unknown backend %q", args.backend)
	}
}

func (args *arguments) sessionConfig() (modplay.SessionConfig, error) {
	mode, err := modplay.ParseMode(args.mode)
	if err != nil {
		return modplay.SessionConfig{}, err
	}
	interp, err := modplay.ParseInterpolation(args.interpolation)
	if err != nil {
		return modplay.SessionConfig{}, err
	}
	config := modplay.SessionConfig{
		SampleRate:    args.sampleRate,
		Interpolation: interp,
		Amplify:       args.amplify,
		Mix:           args.mix,
		Voices:        args.voices,
		Mode:          mode,
		DisableFilter: args.noFilter,
	}
	if args.vblank {
		config.Flags |= modplay.FlagVBlank
	}
	return config, nil
}

func loadModule(filename string) (*modfile.Module, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read module: %w", err)
	}

	var mod *modfile.Module
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xm":
		mod, err = modfile.ParseXM(data)
	case ".mod":
		mod, err = modfile.ParseMOD(data)
	case ".yaml", ".yml":
		mod, err = modfile.ParseYAML(data)
	default:
		// Try the formats with a magic string first.
		mod, err = modfile.ParseXM(data)
		if err != nil {
			mod, err = modfile.ParseMOD(data)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return mod, nil
}

func printInfo(session *modplay.Session) {
	info := session.ModuleInfo()
	fmt.Printf("name:      %s\n", info.Name)
	fmt.Printf("type:      %s\n", info.Type)
	fmt.Printf("dialect:   %s\n", info.Dialect)
	fmt.Printf("channels:  %d\n", info.NumChannels)
	fmt.Printf("orders:    %d\n", info.NumOrders)
	fmt.Printf("memory:    %d KiB\n", info.MemoryUsage/1024)
	for i, seq := range info.Sequences {
		fmt.Printf("sequence %d: entry=%d duration=%s\n", i, seq.EntryPoint, seq.Duration.Round(time.Millisecond))
	}
}
