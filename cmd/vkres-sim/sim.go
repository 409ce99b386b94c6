package main

import (
	"fmt"
	"io"

	"github.com/celer/vkres/arena"
	"github.com/celer/vkres/descriptor"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// budget tracks the bytes held by live simulated resources.
type budget struct {
	live, peak int64
}

func (b *budget) add(n int) {
	b.live += int64(n)
	if b.live > b.peak {
		b.peak = b.live
	}
}

// hostImage stands in for an image's memory.
type hostImage struct {
	size   int
	budget *budget
}

func (i hostImage) Release() {
	if i.budget != nil {
		i.budget.add(-i.size)
	}
}

// hostTexture owns its image the way a vkres texture does.
type hostTexture struct {
	image *arena.Owner[hostImage]
}

func (t hostTexture) Release() {
	t.image.Release()
}

type hostBuffer struct {
	size   int
	budget *budget
}

func (b hostBuffer) Release() {
	if b.budget != nil {
		b.budget.add(-b.size)
	}
}

type material struct {
	name     string
	textures []*arena.Owner[hostTexture]
	uniform  *arena.Owner[hostBuffer]
	set      descriptor.HostSet
}

func (m *material) release() {
	for _, t := range m.textures {
		t.Release()
	}
	m.uniform.Release()
}

type simulator struct {
	w   workload
	log *zap.Logger

	budget   budget
	images   *arena.Arena[hostImage]
	textures *arena.Arena[hostTexture]
	buffers  *arena.Arena[hostBuffer]
	backend  *descriptor.HostBackend
	sets     *descriptor.Allocator[descriptor.HostLayout, descriptor.HostSet]
}

func newSimulator(w workload, log *zap.Logger) (*simulator, error) {
	opts := []arena.Option{arena.WithLogger(log), arena.WithBacklogThreshold(w.BacklogThreshold)}
	s := &simulator{
		w:        w,
		log:      log,
		images:   arena.New[hostImage]("image", opts...),
		textures: arena.New[hostTexture]("texture", opts...),
		buffers:  arena.New[hostBuffer]("buffer", opts...),
		backend:  &descriptor.HostBackend{},
	}
	s.sets = descriptor.NewAllocator[descriptor.HostLayout, descriptor.HostSet](s.backend, descriptor.Config{
		MaxSetsPerPool: w.Descriptors.MaxSetsPerPool,
		GrowthFactor:   w.Descriptors.GrowthFactor,
		Logger:         log,
	})
	if err := s.sets.Init(w.Descriptors.InitialSets, w.ratios()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *simulator) loadTexture(name string) (*arena.Owner[hostTexture], error) {
	return s.textures.Create(name, func(arena.Handle) (hostTexture, error) {
		img, err := s.images.Create(name, func(arena.Handle) (hostImage, error) {
			s.budget.add(s.w.TextureBytes)
			return hostImage{size: s.w.TextureBytes, budget: &s.budget}, nil
		})
		if err != nil {
			return hostTexture{}, err
		}
		return hostTexture{image: img}, nil
	})
}

func (s *simulator) loadMaterial(name string) (*material, error) {
	m := &material{name: name}
	for i := 0; i < s.w.TexturesPerMaterial; i++ {
		t, err := s.loadTexture(fmt.Sprintf("%s/tex%d", name, i))
		if err != nil {
			m.release()
			return nil, err
		}
		m.textures = append(m.textures, t)
	}

	u, err := s.buffers.Create(name+"/ubo", func(arena.Handle) (hostBuffer, error) {
		s.budget.add(s.w.UniformBytes)
		return hostBuffer{size: s.w.UniformBytes, budget: &s.budget}, nil
	})
	if err != nil {
		m.release()
		return nil, err
	}
	m.uniform = u
	return m, nil
}

// run replays every round, writing one report line per round to out, and
// fails if anything outlives the workload.
func (s *simulator) run(out io.Writer) error {
	var carried []*material
	layout := s.w.layout()

	for round := 0; round < s.w.Rounds; round++ {
		// sets from the previous round are retired in bulk
		if err := s.sets.ClearPools(); err != nil {
			return err
		}

		fresh := make([]*material, 0, s.w.Materials)
		for i := 0; i < s.w.Materials; i++ {
			m, err := s.loadMaterial(fmt.Sprintf("r%d/m%d", round, i))
			if err != nil {
				return errors.Wrapf(err, "round %d", round)
			}
			fresh = append(fresh, m)
		}

		live := append(carried, fresh...)
		for _, m := range live {
			set, err := s.sets.Allocate(layout)
			if err != nil {
				return errors.Wrapf(err, "allocating set for %s", m.name)
			}
			m.set = set
		}

		fmt.Fprintf(out, "round %d: %s %s %s %s, %d bytes live, %d descriptor pools\n",
			round, s.images.Stats(), s.textures.Stats(), s.buffers.Stats(), s.sets.Stats(),
			s.budget.live, s.backend.Live())
		s.log.Debug("round complete",
			zap.Int("round", round),
			zap.Int("materials", len(live)),
			zap.Int64("bytes", s.budget.live))

		for _, m := range carried {
			m.release()
		}
		carried = nil
		last := round+1 == s.w.Rounds
		for i, m := range fresh {
			if !last && s.w.KeepEvery > 0 && i%s.w.KeepEvery == 0 {
				carried = append(carried, m)
				continue
			}
			m.release()
		}
	}

	s.sets.DestroyPools()
	leaked := s.textures.DestroyAll() + s.images.DestroyAll() + s.buffers.DestroyAll()
	fmt.Fprintf(out, "done: peak %d bytes, %d descriptor pools created\n", s.budget.peak, s.backend.Created())
	if leaked > 0 || s.budget.live != 0 {
		return errors.Newf("%d resources leaked, %d bytes still live", leaked, s.budget.live)
	}
	return nil
}
