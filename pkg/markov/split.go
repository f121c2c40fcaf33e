package markov

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// Vowels is the character class treated as vowels by the regex splitters.
	Vowels = "aeiou"
	// Consonants is the character class treated as consonants by the regex splitters.
	Consonants = "bcdfghjklmnpqrstvwxyz"
)

// Splitter identifiers accepted by ParseSplitter.
const (
	SplitSingleLetter = "1letter"
	SplitTwoLetter    = "2letter"
	SplitThreeLetter  = "3letter"
	SplitConsonants   = "consonants"
	SplitCVC          = "cvc"
)

// Splitter turns a single lowercase word into an ordered sequence of states.
// The set of splitters is closed: SingleLetter, FixedWidth and RegexSplit are
// the only implementations.
type Splitter interface {
	// Name returns the identifier ParseSplitter accepts for this splitter.
	Name() string
	// Split returns the states of word in order. It returns ErrEmptyWord for
	// an empty word and never returns an empty slice otherwise.
	Split(word string) ([]string, error)

	isSplitter()
}

// SplitterNames lists every identifier accepted by ParseSplitter.
func SplitterNames() []string {
	return []string{SplitSingleLetter, SplitTwoLetter, SplitThreeLetter, SplitConsonants, SplitCVC}
}

// ParseSplitter returns the splitter registered under id. Unknown identifiers
// fail with ErrInvalidConfiguration.
func ParseSplitter(id string) (Splitter, error) {
	switch id {
	case SplitSingleLetter:
		return SingleLetter{}, nil
	case SplitTwoLetter:
		return FixedWidth{Width: 2}, nil
	case SplitThreeLetter:
		return FixedWidth{Width: 3}, nil
	case SplitConsonants:
		return ConsonantSplit(), nil
	case SplitCVC:
		return CVCSplit(), nil
	}
	return nil, fmt.Errorf("%w: unknown split %q, valid splits are: %s",
		ErrInvalidConfiguration, id, strings.Join(SplitterNames(), ", "))
}

// SingleLetter makes every character its own state.
type SingleLetter struct{}

func (SingleLetter) isSplitter() {}

// Name returns "1letter".
func (SingleLetter) Name() string { return SplitSingleLetter }

// Split returns one state per character of word.
func (SingleLetter) Split(word string) ([]string, error) {
	if word == "" {
		return nil, ErrEmptyWord
	}
	states := make([]string, 0, len(word))
	for _, r := range word {
		states = append(states, string(r))
	}
	return states, nil
}

// FixedWidth groups characters into states of Width characters. The last state
// is shorter when the word length is not a multiple of Width.
type FixedWidth struct {
	Width int
}

// NewFixedWidth returns a FixedWidth splitter. Only widths 2 and 3 are supported.
func NewFixedWidth(width int) (FixedWidth, error) {
	if width != 2 && width != 3 {
		return FixedWidth{}, fmt.Errorf("%w: unsupported fixed width %d, valid widths are: 2, 3",
			ErrInvalidConfiguration, width)
	}
	return FixedWidth{Width: width}, nil
}

func (FixedWidth) isSplitter() {}

// Name returns "2letter" or "3letter".
func (f FixedWidth) Name() string {
	return fmt.Sprintf("%dletter", f.Width)
}

// Split returns word in chunks of f.Width characters.
func (f FixedWidth) Split(word string) ([]string, error) {
	if f.Width < 1 {
		return nil, fmt.Errorf("%w: fixed width must be positive, got %d", ErrInvalidConfiguration, f.Width)
	}
	if word == "" {
		return nil, ErrEmptyWord
	}
	runes := []rune(word)
	states := make([]string, 0, (len(runes)+f.Width-1)/f.Width)
	for i := 0; i < len(runes); i += f.Width {
		end := min(i+f.Width, len(runes))
		states = append(states, string(runes[i:end]))
	}
	return states, nil
}

// RegexSplit splits a word around the matches of a pattern with one capturing
// group. Both the captured text and the text between matches become states;
// empty fragments are dropped.
type RegexSplit struct {
	name string
	re   *regexp.Regexp
}

// ConsonantSplit splits a word into runs of vowels each closed by one consonant.
func ConsonantSplit() RegexSplit {
	return newRegexSplit(SplitConsonants, "([%s]*[%s]{1})", Vowels, Consonants)
}

// CVCSplit splits a word into consonant, vowel-run, consonant syllables.
func CVCSplit() RegexSplit {
	return newRegexSplit(SplitCVC, "([%[2]s][%[1]s]*[%[2]s])", Vowels, Consonants)
}

func newRegexSplit(name, format, vowels, consonants string) RegexSplit {
	return RegexSplit{
		name: name,
		re:   regexp.MustCompile(fmt.Sprintf(format, vowels, consonants)),
	}
}

func (RegexSplit) isSplitter() {}

// Name returns "consonants" or "cvc".
func (s RegexSplit) Name() string { return s.name }

// Pattern returns the regular expression the splitter uses.
func (s RegexSplit) Pattern() string {
	if s.re == nil {
		return ""
	}
	return s.re.String()
}

// Split returns the fragments of word around and including each match.
func (s RegexSplit) Split(word string) ([]string, error) {
	if s.re == nil {
		return nil, fmt.Errorf("%w: regex splitter has no pattern", ErrInvalidConfiguration)
	}
	if word == "" {
		return nil, ErrEmptyWord
	}

	var states []string
	keep := func(fragment string) {
		if fragment != "" {
			states = append(states, fragment)
		}
	}

	prev := 0
	for _, m := range s.re.FindAllStringSubmatchIndex(word, -1) {
		keep(word[prev:m[0]])
		if len(m) >= 4 && m[2] >= 0 {
			keep(word[m[2]:m[3]])
		}
		prev = m[1]
	}
	keep(word[prev:])

	return states, nil
}
