package markov

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	table := learnWords(t, SingleLetter{}, "cat")

	// The lowest draw always takes the first destination in order.
	output, err := table.Generate(WithSource(fixedSource{}))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if output != "cat" {
		t.Errorf("Generate() got = %q, want %q", output, "cat")
	}
}

func TestGenerateDraws(t *testing.T) {
	// Learned transitions out of 'a': r (1), t (2). The draw covers [0, 3].
	table := learnWords(t, SingleLetter{}, "cat", "cat", "car")

	testCases := []struct {
		name     string
		source   Source
		expected string
	}{
		{name: "Lowest draw takes first destination", source: fixedSource{offset: 0}, expected: "car"},
		{name: "Draw equal to first weight still takes it", source: fixedSource{offset: 1}, expected: "car"},
		{name: "Draw past first weight moves on", source: fixedSource{offset: 2}, expected: "cat"},
		{name: "Highest draw takes last destination", source: lastSource{}, expected: "cat"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			output, err := table.Generate(WithSource(tc.source))
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			if output != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, output)
			}
		})
	}
}

func TestGenerateMultiLetterStates(t *testing.T) {
	table := learnWords(t, FixedWidth{Width: 3}, "horse")
	output, err := table.Generate(WithSource(fixedSource{}))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if output != "horse" {
		t.Errorf("Generate() got = %q, want %q", output, "horse")
	}
}

func TestGenerateEmptyTable(t *testing.T) {
	_, err := NewTable().Generate()
	if !errors.Is(err, ErrDeadEnd) {
		t.Fatalf("expected ErrDeadEnd, got %v", err)
	}
}

func TestGenerateDeadEnd(t *testing.T) {
	table := NewTable()
	table.AddLink(Blank, "q")

	_, err := table.Generate(WithSource(fixedSource{}))
	if !errors.Is(err, ErrDeadEnd) {
		t.Fatalf("expected ErrDeadEnd, got %v", err)
	}
	if !strings.Contains(err.Error(), `"q"`) {
		t.Errorf("expected error to name the dead-end state, got %q", err.Error())
	}
}

func TestGenerateStepLimit(t *testing.T) {
	// a loops on itself forever and never reaches Blank.
	table := NewTable()
	table.AddLink(Blank, "a")
	table.AddLink("a", "a")

	_, err := table.Generate(WithSource(fixedSource{}), WithMaxSteps(10))
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("expected ErrStepLimit, got %v", err)
	}

	_, err = table.Generate(WithSource(fixedSource{}))
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("expected ErrStepLimit with the default limit, got %v", err)
	}
}

func TestGenerateStepLimitCountsEndMarker(t *testing.T) {
	table := learnWords(t, SingleLetter{}, "cat")

	// c, a, t and the final Blank are four steps.
	if _, err := table.Generate(WithSource(fixedSource{}), WithMaxSteps(4)); err != nil {
		t.Errorf("expected 4 steps to be enough, got %v", err)
	}
	if _, err := table.Generate(WithSource(fixedSource{}), WithMaxSteps(3)); !errors.Is(err, ErrStepLimit) {
		t.Errorf("expected ErrStepLimit with 3 steps, got %v", err)
	}
	if _, err := table.Generate(WithSource(fixedSource{}), WithMaxSteps(0)); err != nil {
		t.Errorf("expected no limit with 0 steps, got %v", err)
	}
}

func TestGenerateN(t *testing.T) {
	table := learnWords(t, SingleLetter{}, "cat", "dog", "bird")
	src := rand.New(rand.NewPCG(1, 2))

	words, err := table.GenerateN(20, WithSource(src))
	if err != nil {
		t.Fatalf("GenerateN failed: %v", err)
	}
	if len(words) != 20 {
		t.Fatalf("expected 20 words, got %d", len(words))
	}
	for _, w := range words {
		if w == "" {
			t.Error("generated an empty word")
		}
		if strings.Contains(w, Blank) {
			t.Errorf("generated word %q contains the end marker", w)
		}
	}

	if _, err := table.GenerateN(-1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for a negative count, got %v", err)
	}
}

func TestGenerateNStopsAtFirstError(t *testing.T) {
	words, err := NewTable().GenerateN(3)
	if !errors.Is(err, ErrDeadEnd) {
		t.Fatalf("expected ErrDeadEnd, got %v", err)
	}
	if len(words) != 0 {
		t.Errorf("expected no words, got %q", words)
	}
}

func BenchmarkGenerate(b *testing.B) {
	corpus := strings.Fields(createBenchmarkCorpus())

	for _, name := range SplitterNames() {
		s, _ := ParseSplitter(name)
		table := learnWords(b, s, corpus...)
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				w, err := table.Generate(WithMaxSteps(0))
				b.SetBytes(int64(len(w)))
				if err != nil {
					b.Fatalf("Generate() failed: %v", err)
				}
			}
		})
	}
}
