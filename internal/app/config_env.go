package app

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// ApplyEnvOverrides overrides cfg fields with environment variables when the
// corresponding variables are set. It runs after ApplyFileConfig and before
// flag parsing, giving flags > env > file > defaults.
func ApplyEnvOverrides(cfg *Config) {
    if cfg == nil { return }

    if v := os.Getenv("GOINGEST_URL"); v != "" { cfg.URL = v }
    if v := os.Getenv("GOINGEST_FILE"); v != "" { cfg.InputFile = v }
    if v := os.Getenv("GOINGEST_SELECTOR"); v != "" { cfg.Selector = v }
    if v := os.Getenv("GOINGEST_MODE"); v != "" { cfg.Mode = v }
    if v := os.Getenv("GOINGEST_HEAD_MARKER"); v != "" { cfg.HeadMarker = v }
    if v, ok := os.LookupEnv("GOINGEST_TAIL_MARKER"); ok { cfg.TailMarker = v }
    if v, ok := os.LookupEnv("GOINGEST_PLACEHOLDER"); ok {
        cfg.Placeholder = v
        cfg.UsePlaceholder = true
    }

    if v := os.Getenv("GOINGEST_DRIVER"); v != "" { cfg.Driver = v }
    if v := os.Getenv("GOINGEST_DSN"); v != "" { cfg.DSN = v }
    if v := os.Getenv("GOINGEST_ENCODING"); v != "" { cfg.Encoding = v }

    if v := os.Getenv("HTTP_USER_AGENT"); v != "" { cfg.UserAgent = v }
    if v := os.Getenv("CACHE_DIR"); v != "" { cfg.CacheDir = v }

    setDuration := func(dst *time.Duration, envKey string) {
        if s := strings.TrimSpace(os.Getenv(envKey)); s != "" {
            if d, err := time.ParseDuration(s); err == nil {
                *dst = d
            }
        }
    }
    setDuration(&cfg.CacheMaxAge, "CACHE_MAX_AGE")
    setDuration(&cfg.Timeout, "HTTP_TIMEOUT")

    if s := strings.TrimSpace(os.Getenv("GOINGEST_WORKERS")); s != "" {
        if n, err := strconv.Atoi(s); err == nil && n > 0 {
            cfg.Workers = n
        }
    }

    // Booleans override when env present and truthy/falsey
    setBool := func(dst *bool, envKey string) {
        if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
            switch s {
            case "1", "true", "yes", "on":
                *dst = true
            case "0", "false", "no", "off":
                *dst = false
            }
        }
    }
    setBool(&cfg.Verbose, "VERBOSE")
    setBool(&cfg.CacheClear, "CACHE_CLEAR")
    setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
    setBool(&cfg.DropEmpty, "GOINGEST_DROP_EMPTY")
}
