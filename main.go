package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pkazmier/guessquest/internal/catalog"
	"github.com/pkazmier/guessquest/internal/httpserver"
	"github.com/pkazmier/guessquest/internal/oracle"
	"github.com/pkazmier/guessquest/internal/session"
	"github.com/pkazmier/guessquest/internal/store"
)

// reaperInterval is how often expired sessions are swept. Reads filter by
// expiry themselves, so this only bounds how long dead records linger.
const reaperInterval = 5 * time.Minute

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	cat := loadCatalog()
	ttl := getDuration("SESSION_TTL", time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	st := openStore(ctx)

	mgr := session.New(session.Config{
		Store:         st,
		Catalog:       cat,
		Oracle:        buildOracle(),
		TTL:           ttl,
		OracleTimeout: getDuration("ORACLE_TIMEOUT", 10*time.Second),
	})

	srv := httpserver.New(mgr, cat)
	port := getEnv("PORT", "8000")
	log.Info().Str("port", port).Dur("sessionTTL", ttl).Msg("starting guessquest server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// loadCatalog reads GAMES_FILE when set, otherwise serves the builtin set.
func loadCatalog() *catalog.Catalog {
	path := os.Getenv("GAMES_FILE")
	if path == "" {
		log.Info().Msg("no GAMES_FILE set, using builtin games")
		return catalog.Builtin()
	}
	cat, err := catalog.Load(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("failed to load game catalog")
	}
	log.Info().Str("path", path).Int("games", len(cat.List())).Msg("game catalog loaded")
	return cat
}

// openStore selects the session backend from STORE ("memory" or "sqlite")
// and starts its expiry reaper.
func openStore(ctx context.Context) store.Store {
	switch backend := getEnv("STORE", "memory"); backend {
	case "sqlite":
		db, err := store.NewSQLite(getEnv("SQLITE_PATH", "./data/sessions.db"))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open sqlite session store")
		}
		db.StartReaper(ctx, reaperInterval)
		log.Info().Str("backend", backend).Msg("session store ready")
		return db
	case "memory":
		mem := store.NewMemory()
		mem.StartReaper(ctx, reaperInterval)
		log.Info().Str("backend", backend).Msg("session store ready")
		return mem
	default:
		log.Fatal().Str("backend", backend).Msg("unknown STORE backend")
		return nil
	}
}

// buildOracle wires the chat hint client, or a static notice when no API
// key is configured (the game still works, it just gives no real hints).
func buildOracle() oracle.Oracle {
	key := os.Getenv("ORACLE_API_KEY")
	if key == "" {
		log.Warn().Msg("ORACLE_API_KEY not set, hints are disabled")
		return oracle.Static("No hints available right now. Keep guessing!")
	}
	return oracle.NewChatClient(
		key,
		getEnv("ORACLE_BASE_URL", "https://api.openai.com/v1"),
		getEnv("ORACLE_MODEL", "gpt-4o-mini"),
		getDuration("ORACLE_TIMEOUT", 10*time.Second),
	)
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("bad duration, using default")
		return def
	}
	return d
}
