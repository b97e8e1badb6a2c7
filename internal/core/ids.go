package core

import (
	"fmt"
	"strconv"
	"sync"
)

// Key prefixes for generated identifiers.
const (
	PrefixItem        = "ITEM"
	PrefixSupplier    = "SUP"
	PrefixUser        = "USR"
	PrefixOrder       = "PO"
	PrefixRequisition = "PR"
	PrefixSale        = "SALE"
	PrefixLog         = "LOG"
)

// SequentialKey formats prefix with count+1 zero-padded to three digits and
// keeps incrementing while taken reports the candidate as used.
func SequentialKey(prefix string, count int, taken func(string) bool) string {
	for n := count + 1; ; n++ {
		key := fmt.Sprintf("%s%03d", prefix, n)
		if !taken(key) {
			return key
		}
	}
}

type tokenState struct {
	last int64
	seq  int
}

// idGenerator mints time-based keys. Two keys requested within the same
// millisecond are told apart by a sequence suffix, and a clock that steps back
// never produces a token below the last one issued.
type idGenerator struct {
	mu     sync.Mutex
	clock  Clock
	states map[string]*tokenState
}

func newIDGenerator(clock Clock) *idGenerator {
	return &idGenerator{clock: clock, states: make(map[string]*tokenState)}
}

func (g *idGenerator) timeKey(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.states[prefix]
	if !ok {
		st = &tokenState{}
		g.states[prefix] = st
	}
	ms := g.clock.Now().UnixMilli()
	if ms > st.last {
		st.last = ms
		st.seq = 0
		return prefix + strconv.FormatInt(ms, 10)
	}
	st.seq++
	return prefix + strconv.FormatInt(st.last, 10) + "-" + strconv.Itoa(st.seq)
}
