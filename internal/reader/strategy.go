package reader

import (
	"fmt"
	"strings"
	"time"

	"codeberg.org/mutker/waysensor/internal/errors"
)

// Kind selects how a Reader reuses parsed metrics between reads.
type Kind int

const (
	KindNone Kind = iota
	KindBasic
	KindAggressive
	KindMemoryMapped
)

const defaultMaxAge = 500 * time.Millisecond

var kindNames = map[Kind]string{
	KindNone:         "none",
	KindBasic:        "basic",
	KindAggressive:   "aggressive",
	KindMemoryMapped: "mmap",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// Strategy is the caching policy of a Reader. MaxAge applies to Basic and
// Aggressive. ChangeThreshold is accepted for Aggressive but not consulted
// yet; Aggressive currently behaves exactly like Basic.
type Strategy struct {
	Kind            Kind
	MaxAge          time.Duration
	ChangeThreshold float64
}

// None re-reads and re-parses the file on every call.
func None() Strategy {
	return Strategy{Kind: KindNone}
}

// Basic serves the last parse while it is younger than maxAge.
func Basic(maxAge time.Duration) Strategy {
	return Strategy{Kind: KindBasic, MaxAge: maxAge}
}

// Aggressive is Basic plus a change threshold for future invalidation rules.
func Aggressive(maxAge time.Duration, changeThreshold float64) Strategy {
	return Strategy{Kind: KindAggressive, MaxAge: maxAge, ChangeThreshold: changeThreshold}
}

// MemoryMapped keeps the file mapped and re-parses the mapped bytes on every call.
func MemoryMapped() Strategy {
	return Strategy{Kind: KindMemoryMapped}
}

// Default is Basic with a 500ms max age.
func Default() Strategy {
	return Basic(defaultMaxAge)
}

// ParseStrategy builds a Strategy from its configured name. A zero maxAge
// falls back to the default.
func ParseStrategy(name string, maxAge time.Duration, changeThreshold float64) (Strategy, error) {
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none", "off":
		return None(), nil
	case "", "basic":
		return Basic(maxAge), nil
	case "aggressive":
		return Aggressive(maxAge, changeThreshold), nil
	case "mmap", "memory-mapped", "memorymapped":
		return MemoryMapped(), nil
	default:
		return Strategy{}, errors.New().WithData(errors.ErrInvalidConfig,
			fmt.Sprintf("unknown cache strategy %q", name))
	}
}

func (s Strategy) String() string {
	switch s.Kind {
	case KindBasic:
		return fmt.Sprintf("basic(%s)", s.MaxAge)
	case KindAggressive:
		return fmt.Sprintf("aggressive(%s, %g)", s.MaxAge, s.ChangeThreshold)
	default:
		return s.Kind.String()
	}
}

func (s Strategy) caches() bool {
	return s.Kind == KindBasic || s.Kind == KindAggressive
}
