// Package config binds the daemon's recognized environment variables
// into a typed Config, loading a .env file first if one is present.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every environment variable the daemon recognizes, with
// documented defaults.
type Config struct {
	StorePath           string
	ModelPath           string
	VocabPath           string
	DaemonSocket        string
	MaxWaitSeconds      int
	HotCapacity         int
	WarmCapacity        int
	DecayIntervalMS     int64
	CheckpointIntervalMS int64
	PruneThreshold      float64
	SkipBM25            bool
}

// Defaults returns a Config with the engine's documented defaults, before
// any environment override is applied.
func Defaults() Config {
	return Config{
		StorePath:            "./memory.store",
		MaxWaitSeconds:       30,
		HotCapacity:          10_000,
		WarmCapacity:         100_000,
		DecayIntervalMS:      3_600_000, // 1 hour
		CheckpointIntervalMS: 300_000,   // 5 minutes
		PruneThreshold:       0.1,
		SkipBM25:             false,
	}
}

// Load reads an optional .env file (ignored if absent), then overlays
// recognized environment variables onto the documented defaults.
func Load() Config {
	_ = godotenv.Load() // .env is optional; absence is not an error

	c := Defaults()
	if v := os.Getenv("STORE_PATH"); v != "" {
		c.StorePath = v
	}
	if v := os.Getenv("MODEL_PATH"); v != "" {
		c.ModelPath = v
	}
	if v := os.Getenv("VOCAB_PATH"); v != "" {
		c.VocabPath = v
	}
	if v := os.Getenv("DAEMON_SOCKET"); v != "" {
		c.DaemonSocket = v
	}
	if v, ok := envInt("MAX_WAIT_SECONDS"); ok {
		c.MaxWaitSeconds = v
	}
	if v, ok := envInt("HOT_CAPACITY"); ok {
		c.HotCapacity = v
	}
	if v, ok := envInt("WARM_CAPACITY"); ok {
		c.WarmCapacity = v
	}
	if v, ok := envInt64("DECAY_INTERVAL_MS"); ok {
		c.DecayIntervalMS = v
	}
	if v, ok := envInt64("CHECKPOINT_INTERVAL_MS"); ok {
		c.CheckpointIntervalMS = v
	}
	if v, ok := envFloat("PRUNE_THRESHOLD"); ok {
		c.PruneThreshold = v
	}
	if v, ok := envBool("SKIP_BM25"); ok {
		c.SkipBM25 = v
	}
	return c
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envInt64(key string) (int64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func envBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
