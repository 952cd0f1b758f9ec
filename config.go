// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package poa

import (
	"errors"
	"fmt"
	"io"

	"github.com/arvados/lightning-poa/graph"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config describes a batch. The yaml form covers everything except
// the runtime handles (Device, Stream, Metrics), which are set in
// code.
type Config struct {
	MaxWindows         int           `yaml:"max_windows" validate:"gte=1"`
	MaxSequenceSize    int           `yaml:"max_sequence_size" validate:"gte=1"`
	MaxSequencesPerPoa int           `yaml:"max_sequences_per_poa" validate:"gte=1"`
	BandedAlignment    bool          `yaml:"banded_alignment"`
	BandWidth          int           `yaml:"band_width" validate:"gte=0,required_if=BandedAlignment true"`
	Outputs            []string      `yaml:"outputs" validate:"min=1,dive,oneof=consensus msa"`
	Alphabet           string        `yaml:"alphabet" validate:"required,printascii"`
	Scoring            ScoringConfig `yaml:"scoring"`

	// Device defaults to DefaultDevice().
	Device *Device `yaml:"-" validate:"-"`
	// Stream, if nil, runs GeneratePoa in the caller's goroutine.
	Stream  *Stream  `yaml:"-" validate:"-"`
	Metrics *Metrics `yaml:"-" validate:"-"`
}

type ScoringConfig struct {
	Match    int16 `yaml:"match" validate:"gt=0"`
	Mismatch int16 `yaml:"mismatch" validate:"lte=0"`
	Gap      int16 `yaml:"gap" validate:"lt=0"`
}

func (sc ScoringConfig) scoring() graph.Scoring {
	return graph.Scoring{Match: sc.Match, Mismatch: sc.Mismatch, Gap: sc.Gap}
}

func DefaultConfig() Config {
	return Config{
		MaxWindows:         100,
		MaxSequenceSize:    1024,
		MaxSequencesPerPoa: 100,
		BandWidth:          256,
		Outputs:            []string{"consensus"},
		Alphabet:           "ACGT",
		Scoring: ScoringConfig{
			Match:    graph.DefaultMatch,
			Mismatch: graph.DefaultMismatch,
			Gap:      graph.DefaultGap,
		},
	}
}

// LoadConfig reads a yaml config. Fields missing from the input keep
// their DefaultConfig values; unknown fields are an error.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg Config) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	return nil
}

func (cfg Config) outputMask() OutputType {
	var mask OutputType
	for _, out := range cfg.Outputs {
		switch out {
		case "consensus":
			mask |= OutputConsensus
		case "msa":
			mask |= OutputMSA
		}
	}
	return mask
}
