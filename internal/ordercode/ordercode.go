// Package ordercode mints short human-readable order codes of the shape
// PREFIX-TTTTT-RRRR: a base-36 minute-of-epoch fragment and a base-36 random
// fragment, both fixed width. Codes are collision-resistant, not unique; the
// order store's unique constraint is the authority, and submission retries
// on conflict.
package ordercode

import (
	"crypto/rand"
	"encoding/binary"
	"log"
	mathrand "math/rand"
	"strconv"
	"strings"
	"time"
)

const (
	timeWidth = 5
	randWidth = 4
)

// randSpace is 36^randWidth, the number of distinct random fragments.
const randSpace = 36 * 36 * 36 * 36

// Generator produces order codes with a fixed prefix.
type Generator struct {
	prefix string
	now    func() time.Time
	read   func([]byte) (int, error)
}

// New creates a Generator. The prefix is uppercased.
func New(prefix string) *Generator {
	return &Generator{
		prefix: strings.ToUpper(prefix),
		now:    time.Now,
		read:   rand.Read,
	}
}

// Next returns a fresh code. The time fragment is the current epoch minute,
// so codes rotate every minute while staying short; the random fragment comes
// from crypto/rand, with math/rand as a fallback if the strong source fails.
func (g *Generator) Next() string {
	minute := g.now().UTC().Unix() / 60
	return g.prefix + "-" + pad36(minute, timeWidth) + "-" + pad36(int64(g.randomFragment()), randWidth)
}

func (g *Generator) randomFragment() uint32 {
	var buf [4]byte
	if _, err := g.read(buf[:]); err != nil {
		log.Printf("ERROR: order code: crypto/rand unavailable, falling back: %v", err)
		return mathrand.Uint32() % randSpace
	}
	return binary.BigEndian.Uint32(buf[:]) % randSpace
}

// pad36 renders v in base 36, uppercased and left-padded with zeros to the
// given width. Values wider than width keep their full length.
func pad36(v int64, width int) string {
	s := strings.ToUpper(strconv.FormatInt(v, 36))
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
