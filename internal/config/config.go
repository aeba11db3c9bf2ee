// Package config holds the process configuration, built once at startup from
// the environment and passed by reference. Nothing reads the environment
// after FromEnv returns.
package config

import (
    "os"
    "strconv"
    "time"
)

// Config carries every tunable of the server and the verification pipeline.
type Config struct {
    Port    string
    DataDir string

    // IECBaseURL is the root of the electoral-commission verification API.
    IECBaseURL string

    // IECWorkers bounds concurrent verification calls per batch.
    IECWorkers int

    // IECTimeout bounds a single verification call.
    IECTimeout time.Duration

    // VDMatchWindow is the station-name window for the voting-district
    // fuzzy fallback.
    VDMatchWindow int
}

// FromEnv builds the configuration with defaults for anything unset.
func FromEnv() *Config {
    return &Config{
        Port:          envString("PORT", "8080"),
        DataDir:       envString("DATA_DIR", "./pb_data"),
        IECBaseURL:    envString("IEC_BASE_URL", "https://api.elections.org.za"),
        IECWorkers:    envInt("IEC_WORKERS", 15),
        IECTimeout:    time.Duration(envInt("IEC_TIMEOUT_SECONDS", 30)) * time.Second,
        VDMatchWindow: envInt("VD_MATCH_WINDOW", 15),
    }
}

func envString(key, fallback string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return fallback
}

func envInt(key string, fallback int) int {
    v := os.Getenv(key)
    if v == "" {
        return fallback
    }
    n, err := strconv.Atoi(v)
    if err != nil || n <= 0 {
        return fallback
    }
    return n
}
