// internal/catalog/catalog.go
//
// Static game-definition catalog for the guessing game.
// Responsibilities:
//   - Hold the immutable set of playable games (id → definition).
//   - Load definitions from a JSON file, or fall back to the built-in set.
//   - Normalize the legacy "999 attempts" convention into the explicit
//     unlimited sentinel.
//
// The catalog is loaded once at startup and never mutated; Lookup and List
// are safe for concurrent use without locking.

package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// UnlimitedAttempts is the MaxAttempts sentinel for games without an attempt
// cap. Any non-positive value is treated as unlimited.
const UnlimitedAttempts = 0

// legacyUnlimited is how older game files spelled "no limit".
const legacyUnlimited = 999

// HintConfig drives the answer oracle for one game.
type HintConfig struct {
	// SystemPrompt frames the oracle as the game host for this answer.
	SystemPrompt string `json:"systemPrompt"`
	// MaxWords bounds hint verbosity; 0 means the oracle's default.
	MaxWords int `json:"maxWords,omitempty"`
}

// GameDefinition describes one playable game. Immutable after load.
type GameDefinition struct {
	ID              string     `json:"id"`
	DisplayName     string     `json:"name"`
	CanonicalAnswer string     `json:"answer"`
	MaxAttempts     int        `json:"maxAttempts"`
	Hint            HintConfig `json:"hint"`
}

// Unlimited reports whether the game has no attempt cap.
func (d GameDefinition) Unlimited() bool { return d.MaxAttempts <= UnlimitedAttempts }

// Catalog is a read-only map of game id to definition.
type Catalog struct {
	games map[string]GameDefinition
}

var ErrNotFound = errors.New("game not found")

// New builds a catalog from a slice of definitions, validating each entry.
func New(defs []GameDefinition) (*Catalog, error) {
	games := make(map[string]GameDefinition, len(defs))
	for _, d := range defs {
		if strings.TrimSpace(d.ID) == "" {
			return nil, errors.New("catalog: game with empty id")
		}
		if strings.TrimSpace(d.CanonicalAnswer) == "" {
			return nil, fmt.Errorf("catalog: game %q has no answer", d.ID)
		}
		if _, dup := games[d.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate game id %q", d.ID)
		}
		if d.DisplayName == "" {
			d.DisplayName = d.ID
		}
		if d.MaxAttempts >= legacyUnlimited || d.MaxAttempts < 0 {
			d.MaxAttempts = UnlimitedAttempts
		}
		games[d.ID] = d
	}
	if len(games) == 0 {
		return nil, errors.New("catalog: no games defined")
	}
	return &Catalog{games: games}, nil
}

// Load reads game definitions from a JSON file (an array of GameDefinition).
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var defs []GameDefinition
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	return New(defs)
}

// Lookup returns the definition for id, or ErrNotFound.
func (c *Catalog) Lookup(id string) (GameDefinition, error) {
	d, ok := c.games[id]
	if !ok {
		return GameDefinition{}, ErrNotFound
	}
	return d, nil
}

// List returns all definitions ordered by id.
func (c *Catalog) List() []GameDefinition {
	out := make([]GameDefinition, 0, len(c.games))
	for _, d := range c.games {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Builtin returns the stock game set so the server runs with zero config.
func Builtin() *Catalog {
	c, err := New([]GameDefinition{
		{
			ID:              "animal",
			DisplayName:     "Mystery Animal",
			CanonicalAnswer: "panda",
			MaxAttempts:     UnlimitedAttempts,
			Hint:            HintConfig{SystemPrompt: hostPrompt("animal", "panda")},
		},
		{
			ID:              "fruit",
			DisplayName:     "Mystery Fruit",
			CanonicalAnswer: "dragon fruit",
			MaxAttempts:     UnlimitedAttempts,
			Hint:            HintConfig{SystemPrompt: hostPrompt("fruit", "dragon fruit")},
		},
		{
			ID:              "object",
			DisplayName:     "Everyday Object",
			CanonicalAnswer: "umbrella",
			MaxAttempts:     10,
			Hint:            HintConfig{SystemPrompt: hostPrompt("everyday object", "umbrella")},
		},
		{
			ID:              "place",
			DisplayName:     "Famous Place",
			CanonicalAnswer: "great wall",
			MaxAttempts:     10,
			Hint:            HintConfig{SystemPrompt: hostPrompt("famous place", "great wall")},
		},
	})
	if err != nil {
		// Builtin definitions are compile-time constants; this cannot happen.
		panic(err)
	}
	return c
}

// hostPrompt renders the game-host system prompt for a category/answer pair.
func hostPrompt(category, answer string) string {
	return fmt.Sprintf(`You are the host of a guessing game. The player is trying to guess a %s you are thinking of. The %s is: %s.

Rules:
1. The player asks about features of the hidden %s, or guesses outright.
2. Answer "yes" or "no", or give a short descriptive hint (under 20 words).
3. Never say the answer itself.
4. Be helpful but indirect; keep the mystery alive.

Wait for the player's next question and reply with a single hint.`, category, category, answer, category)
}
