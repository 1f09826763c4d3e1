// Package strategy defines the decision contract players compete with and
// the resolvers that turn a stored player record into a callable strategy.
package strategy

import (
	"context"
	"fmt"

	"github.com/okian/dilemma/internal/domain/model"
)

// Strategy decides the next move given the caller's own history.
// Implementations may be untrusted: callers must tolerate panics, invalid
// choices and calls that never return.
type Strategy interface {
	Decide(history model.History) model.Choice
}

// Func adapts a plain function to Strategy.
type Func func(history model.History) model.Choice

// Decide calls f.
func (f Func) Decide(history model.History) model.Choice { return f(history) }

// Resolver turns a player's stored function identifier into a Strategy.
type Resolver interface {
	// Resolve returns ErrUnknownStrategy when the resolver does not handle
	// the player, so that resolvers can be chained.
	Resolve(ctx context.Context, p model.Player) (Strategy, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, p model.Player) (Strategy, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, p model.Player) (Strategy, error) {
	return f(ctx, p)
}

type chain []Resolver

// Chain tries each resolver in order and returns the first strategy found.
// Only ErrUnknownStrategy moves on to the next resolver; any other error
// stops resolution.
func Chain(resolvers ...Resolver) Resolver {
	return chain(resolvers)
}

func (c chain) Resolve(ctx context.Context, p model.Player) (Strategy, error) {
	for _, r := range c {
		s, err := r.Resolve(ctx, p)
		if err == nil {
			return s, nil
		}
		if !isUnknown(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("player %s (%s): %w", p.ID, p.FunctionName, ErrUnknownStrategy)
}
