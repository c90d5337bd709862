package scriptstore

import (
	"crypto/rand"
	"fmt"
	"io"
	"strconv"
	"time"
)

const (
	base36Alphabet     = "0123456789abcdefghijklmnopqrstuvwxyz"
	defaultSuffixLen   = 9
	minSuffixLen       = 8
	base36RejectCutoff = 252 // largest multiple of 36 that fits in a byte
)

// IDGenerator assigns identifiers to new scripts.
type IDGenerator interface {
	NewID(now time.Time) (string, error)
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func(now time.Time) (string, error)

// NewID implements IDGenerator.
func (f IDGeneratorFunc) NewID(now time.Time) (string, error) { return f(now) }

// DefaultIDGenerator builds ids from the creation millisecond followed by a
// random base-36 suffix. Uniqueness is probabilistic.
type DefaultIDGenerator struct {
	suffixLen int
	random    io.Reader
}

// IDOption mutates DefaultIDGenerator construction.
type IDOption func(*DefaultIDGenerator)

// WithSuffixLength sets the number of random characters (minimum 8).
func WithSuffixLength(n int) IDOption {
	return func(g *DefaultIDGenerator) {
		if n < minSuffixLen {
			n = minSuffixLen
		}
		g.suffixLen = n
	}
}

// WithRandomSource replaces crypto/rand (tests).
func WithRandomSource(r io.Reader) IDOption {
	return func(g *DefaultIDGenerator) {
		g.random = r
	}
}

// NewDefaultIDGenerator constructs the default generator.
func NewDefaultIDGenerator(opts ...IDOption) *DefaultIDGenerator {
	g := &DefaultIDGenerator{
		suffixLen: defaultSuffixLen,
		random:    rand.Reader,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewID returns e.g. "1760875200123k3j9x0q2m".
func (g *DefaultIDGenerator) NewID(now time.Time) (string, error) {
	suffix, err := randomBase36(g.random, g.suffixLen)
	if err != nil {
		return "", fmt.Errorf("random id suffix: %w", err)
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + suffix, nil
}

func randomBase36(r io.Reader, n int) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, c := range buf {
			if c >= base36RejectCutoff {
				continue
			}
			out = append(out, base36Alphabet[c%36])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
