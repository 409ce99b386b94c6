package main

import (
	"github.com/BurntSushi/toml"
	"github.com/celer/vkres/descriptor"
	"github.com/cockroachdb/errors"
)

// Descriptor kinds used by the simulated material layout.
const (
	kindUniform descriptor.Kind = iota + 1
	kindSampler
)

type workload struct {
	// Rounds is the number of scene loads to replay.
	Rounds int `toml:"rounds"`
	// Materials loaded per round.
	Materials int `toml:"materials"`
	// TexturesPerMaterial is also the number of sampler descriptors each
	// material set binds.
	TexturesPerMaterial int `toml:"textures_per_material"`
	TextureBytes        int `toml:"texture_bytes"`
	UniformBytes        int `toml:"uniform_bytes"`
	// KeepEvery keeps every Nth material of a round alive through the next
	// one, as streaming would. Zero releases everything each round.
	KeepEvery        int             `toml:"keep_every"`
	BacklogThreshold int             `toml:"backlog_threshold"`
	Descriptors      descriptorPools `toml:"descriptors"`
}

type descriptorPools struct {
	InitialSets    uint32  `toml:"initial_sets"`
	MaxSetsPerPool uint32  `toml:"max_sets_per_pool"`
	GrowthFactor   float64 `toml:"growth_factor"`
	UniformsPerSet float32 `toml:"uniforms_per_set"`
	SamplersPerSet float32 `toml:"samplers_per_set"`
}

func defaultWorkload() workload {
	return workload{
		Rounds:              4,
		Materials:           120,
		TexturesPerMaterial: 3,
		TextureBytes:        1 << 20,
		UniformBytes:        256,
		KeepEvery:           4,
		BacklogThreshold:    100,
		Descriptors: descriptorPools{
			InitialSets:    10,
			MaxSetsPerPool: descriptor.DefaultMaxSetsPerPool,
			GrowthFactor:   descriptor.DefaultGrowthFactor,
			UniformsPerSet: 1,
			SamplersPerSet: 3,
		},
	}
}

func loadWorkload(path string) (workload, error) {
	w := defaultWorkload()
	md, err := toml.DecodeFile(path, &w)
	if err != nil {
		return workload{}, errors.Wrapf(err, "reading workload %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return workload{}, errors.Newf("workload %s: unknown key %q", path, undecoded[0].String())
	}
	return w, nil
}

func (w workload) validate() error {
	switch {
	case w.Rounds <= 0:
		return errors.Newf("rounds must be positive, got %d", w.Rounds)
	case w.Materials <= 0:
		return errors.Newf("materials must be positive, got %d", w.Materials)
	case w.TexturesPerMaterial < 0:
		return errors.Newf("textures_per_material must not be negative, got %d", w.TexturesPerMaterial)
	case w.KeepEvery < 0:
		return errors.Newf("keep_every must not be negative, got %d", w.KeepEvery)
	case w.Descriptors.InitialSets == 0:
		return errors.New("descriptors.initial_sets must be positive")
	}
	return nil
}

func (w workload) ratios() []descriptor.Ratio {
	return []descriptor.Ratio{
		{Kind: kindUniform, PerSet: w.Descriptors.UniformsPerSet},
		{Kind: kindSampler, PerSet: w.Descriptors.SamplersPerSet},
	}
}

func (w workload) layout() descriptor.HostLayout {
	return descriptor.HostLayout{
		{Kind: kindUniform, Count: 1},
		{Kind: kindSampler, Count: uint32(w.TexturesPerMaterial)},
	}
}
