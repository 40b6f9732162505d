// Package oracle turns incorrect guesses into hint text.
package oracle

import (
	"context"

	"github.com/pkazmier/guessquest/internal/catalog"
)

// Oracle produces a hint for an incorrect guess. Implementations may hit
// the network and should honor ctx deadlines; failure is non-fatal to the
// caller, which substitutes a fallback message.
type Oracle interface {
	Hint(ctx context.Context, guess string, def catalog.GameDefinition) (string, error)
}

// Func adapts a closure to the Oracle interface.
type Func func(ctx context.Context, guess string, def catalog.GameDefinition) (string, error)

func (f Func) Hint(ctx context.Context, guess string, def catalog.GameDefinition) (string, error) {
	return f(ctx, guess, def)
}

// Static returns an oracle that always answers with text. Used when no
// hint backend is configured.
func Static(text string) Oracle {
	return Func(func(context.Context, string, catalog.GameDefinition) (string, error) {
		return text, nil
	})
}
