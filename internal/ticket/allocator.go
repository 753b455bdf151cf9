// Package ticket draws unique raffle ticket codes from the unassigned
// part of the pool. The sampler itself holds no locks; callers run it
// inside whatever exclusion their storage backend provides.
package ticket

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrPoolExhausted is returned when the attempt budget runs out before
// enough free codes were found. The caller treats it as sold out and
// commits nothing.
var ErrPoolExhausted = errors.New("ticket pool exhausted")

// maxAttemptsPerTicket bounds rejection sampling so a nearly full pool
// cannot spin forever.
const maxAttemptsPerTicket = 3000

// ExistsFunc reports whether a code is already assigned in the
// authoritative store.
type ExistsFunc func(code string) (bool, error)

// Format renders a ticket number as its 5-digit zero-padded code.
func Format(n int) string {
	return fmt.Sprintf("%05d", n)
}

// Draw picks count distinct codes uniformly from [1, totalTickets],
// skipping codes already taken in storage or earlier in this batch.
// On any probe error the batch is abandoned.
func Draw(count, totalTickets int, taken ExistsFunc) ([]string, error) {
	codes := make([]string, 0, count)
	picked := make(map[string]struct{}, count)

	for attempts := 0; len(codes) < count; attempts++ {
		if attempts >= count*maxAttemptsPerTicket {
			return nil, ErrPoolExhausted
		}

		code := Format(rand.Intn(totalTickets) + 1)
		if _, ok := picked[code]; ok {
			continue
		}

		exists, err := taken(code)
		if err != nil {
			return nil, fmt.Errorf("ticket.Draw -> taken(%s) -> %w", code, err)
		}
		if exists {
			continue
		}

		picked[code] = struct{}{}
		codes = append(codes, code)
	}

	return codes, nil
}
