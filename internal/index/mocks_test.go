package index

import (
	"context"
	"fmt"
)

// stubEngine returns fixed vectors per text, defaulting to the zero
// vector for unknown inputs.
type stubEngine struct {
	dim     int
	vectors map[string][]float32
}

func newStubEngine(dim int) *stubEngine {
	return &stubEngine{dim: dim, vectors: make(map[string][]float32)}
}

func (s *stubEngine) set(text string, vec ...float32) {
	if len(vec) != s.dim {
		panic(fmt.Sprintf("stub vector for %q has dim %d, want %d", text, len(vec), s.dim))
	}
	s.vectors[text] = vec
}

func (s *stubEngine) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return make([]float32, s.dim), nil
}

func (s *stubEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEngine) Dimensions() int { return s.dim }
func (s *stubEngine) Name() string    { return "stub" }

// failingEngine always errors, for batch-failure atomicity tests.
type failingEngine struct{}

func (failingEngine) Embed(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("embedding backend down")
}

func (failingEngine) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, fmt.Errorf("embedding backend down")
}

func (failingEngine) Dimensions() int { return 4 }
func (failingEngine) Name() string    { return "failing" }
