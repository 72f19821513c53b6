// Package drill generates practice material: random character groups for
// Koch-style copy practice and contest-shaped callsigns for pileup runs.
// Generation is seeded and deterministic so a drill can be replayed; scoring
// the operator's copy is left to the client.
package drill

import (
	"math/rand"
	"strings"

	"cwtrainer/strutil"
)

const (
	letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits  = "0123456789"
)

// commonPrefixes shapes generated callsigns after real contest activity.
var commonPrefixes = []string{
	"K", "W", "N", "AA", "KB", "WB", "VE", "VA", "G", "M", "GM",
	"DL", "DJ", "F", "EA", "I", "IK", "OH", "SM", "LA", "OZ", "PA",
	"ON", "HB9", "OE", "OK", "SP", "YU", "S5", "9A", "UA", "RA",
	"JA", "JH", "VK", "ZL", "PY", "LU", "CE", "XE", "ZS", "5B",
}

// Generator produces drill text from a seeded random source.
type Generator struct {
	rnd *rand.Rand
}

// New constructs a generator. The same seed always yields the same drills.
func New(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Groups returns count space-separated groups of size characters drawn from
// charset. An empty charset falls back to the full letter set.
func (g *Generator) Groups(charset string, size, count int) string {
	charset = strutil.NormalizeUpper(charset)
	if charset == "" {
		charset = letters
	}
	if size <= 0 {
		size = 5
	}
	if count <= 0 {
		count = 1
	}
	var b strings.Builder
	for i := 0; i < count; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		for j := 0; j < size; j++ {
			b.WriteByte(charset[g.rnd.Intn(len(charset))])
		}
	}
	return b.String()
}

// Callsign returns one contest-shaped callsign: a real-world prefix, a
// single digit, and a one-to-three letter suffix.
func (g *Generator) Callsign() string {
	var b strings.Builder
	prefix := commonPrefixes[g.rnd.Intn(len(commonPrefixes))]
	b.WriteString(prefix)
	// Prefixes ending in a digit (HB9, S5, 9A, 5B) already carry their
	// separator digit.
	last := prefix[len(prefix)-1]
	if last < '0' || last > '9' {
		b.WriteByte(digits[g.rnd.Intn(len(digits))])
	}
	suffix := 1 + g.rnd.Intn(3)
	for i := 0; i < suffix; i++ {
		b.WriteByte(letters[g.rnd.Intn(len(letters))])
	}
	return b.String()
}

// Callsigns returns count space-separated callsigns.
func (g *Generator) Callsigns(count int) string {
	if count <= 0 {
		count = 1
	}
	calls := make([]string, count)
	for i := range calls {
		calls[i] = g.Callsign()
	}
	return strings.Join(calls, " ")
}
