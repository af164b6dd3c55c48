package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML config file layout.
// The command-line flags override the file values.
//
//	mode: st3
//	interpolation: spline
//	mix: 50
//	loop: true
type fileConfig struct {
	Backend       *string        `yaml:"backend"`
	Mode          *string        `yaml:"mode"`
	Interpolation *string        `yaml:"interpolation"`
	SampleRate    *int           `yaml:"sample_rate"`
	Amplify       *int           `yaml:"amplify"`
	Mix           *int           `yaml:"mix"`
	Voices        *int           `yaml:"voices"`
	Sequence      *int           `yaml:"sequence"`
	Loop          *bool          `yaml:"loop"`
	VBlank        *bool          `yaml:"vblank"`
	NoFilter      *bool          `yaml:"no_filter"`
	MaxTime       *time.Duration `yaml:"max_time"`
}

func loadConfigFile(args *arguments) error {
	data, err := os.ReadFile(args.configFile)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var c fileConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("decode config %s: %w", args.configFile, err)
	}

	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		explicit[f.Name] = true
	})

	setValue(explicit, "backend", &args.backend, c.Backend)
	setValue(explicit, "mode", &args.mode, c.Mode)
	setValue(explicit, "interp", &args.interpolation, c.Interpolation)
	setValue(explicit, "rate", &args.sampleRate, c.SampleRate)
	setValue(explicit, "amp", &args.amplify, c.Amplify)
	setValue(explicit, "mix", &args.mix, c.Mix)
	setValue(explicit, "voices", &args.voices, c.Voices)
	setValue(explicit, "seq", &args.sequence, c.Sequence)
	setValue(explicit, "loop", &args.loop, c.Loop)
	setValue(explicit, "vblank", &args.vblank, c.VBlank)
	setValue(explicit, "nofilter", &args.noFilter, c.NoFilter)
	setValue(explicit, "time", &args.maxTime, c.MaxTime)
	return nil
}

func setValue[T any](explicit map[string]bool, name string, dst *T, v *T) {
	if v == nil || explicit[name] {
		return
	}
	*dst = *v
}
