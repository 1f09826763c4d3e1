package strategy

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/okian/dilemma/internal/domain/model"
)

// Builtin strategy identifiers.
const (
	AlwaysCooperate     = "always_cooperate"
	AlwaysDefect        = "always_defect"
	TitForTat           = "tit_for_tat"
	SuspiciousTitForTat = "suspicious_tit_for_tat"
	TitForTwoTats       = "tit_for_two_tats"
	Grudger             = "grudger"
	Pavlov              = "pavlov"
	Random              = "random"
)

// Registry resolves players by FunctionName against registered strategies.
// Registered strategies must be stateless: one value is shared by every
// match the player takes part in.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// Builtins returns a registry preloaded with the classic strategies.
func Builtins() *Registry {
	r := NewRegistry()
	for name, s := range map[string]Strategy{
		AlwaysCooperate:     Func(func(model.History) model.Choice { return model.Cooperate }),
		AlwaysDefect:        Func(func(model.History) model.Choice { return model.Defect }),
		TitForTat:           Func(titForTat(model.Cooperate)),
		SuspiciousTitForTat: Func(titForTat(model.Defect)),
		TitForTwoTats:       Func(titForTwoTats),
		Grudger:             Func(grudger),
		Pavlov:              Func(pavlov),
		Random:              Func(random),
	} {
		_ = r.Register(name, s)
	}
	return r
}

// Register adds s under name. Names are unique.
func (r *Registry) Register(name string, s Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.strategies[name]; ok {
		return fmt.Errorf("%s: %w", name, ErrDuplicateName)
	}
	r.strategies[name] = s
	return nil
}

// Names lists the registered identifiers in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.strategies))
	for n := range r.strategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve implements Resolver.
func (r *Registry) Resolve(_ context.Context, p model.Player) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[p.FunctionName]
	if !ok {
		return nil, ErrUnknownStrategy
	}
	return s, nil
}

func titForTat(opening model.Choice) func(model.History) model.Choice {
	return func(h model.History) model.Choice {
		if len(h) == 0 {
			return opening
		}
		return h[len(h)-1].Opponent
	}
}

func titForTwoTats(h model.History) model.Choice {
	n := len(h)
	if n >= 2 && h[n-1].Opponent == model.Defect && h[n-2].Opponent == model.Defect {
		return model.Defect
	}
	return model.Cooperate
}

func grudger(h model.History) model.Choice {
	for _, m := range h {
		if m.Opponent == model.Defect {
			return model.Defect
		}
	}
	return model.Cooperate
}

// pavlov is win-stay, lose-shift.
func pavlov(h model.History) model.Choice {
	if len(h) == 0 {
		return model.Cooperate
	}
	last := h[len(h)-1]
	if last.Own == last.Opponent {
		return model.Cooperate
	}
	return model.Defect
}

func random(model.History) model.Choice {
	if rand.IntN(2) == 0 {
		return model.Cooperate
	}
	return model.Defect
}
