package config

import (
	"fmt"
	"net/url"
	"time"
)

// MaxStageTimeout bounds how long a single stage run may take
const MaxStageTimeout = 6 * time.Hour

// ValidateTimeout requires 0 < d <= MaxStageTimeout.
func ValidateTimeout(d time.Duration, name string) error {
	switch {
	case d <= 0:
		return fmt.Errorf("%s timeout must be positive, got %s", name, d)
	case d > MaxStageTimeout:
		return fmt.Errorf("%s timeout %s exceeds %s", name, d, MaxStageTimeout)
	}
	return nil
}

// MinLockTTL keeps the lock renewal interval, a third of the TTL, at one
// second or more
const MinLockTTL = 3 * time.Second

// ValidateLockTTL requires a job lock TTL of at least MinLockTTL.
func ValidateLockTTL(ttl time.Duration) error {
	if ttl < MinLockTTL {
		return fmt.Errorf("redis lock TTL %s is below %s", ttl, MinLockTTL)
	}
	return nil
}

// ValidateURL requires an absolute http or https URL with a host.
func ValidateURL(raw, name string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s URL: %w", name, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s URL %q must be an absolute http(s) URL", name, raw)
	}
	return nil
}

// ValidateThreshold requires a cosine similarity threshold in [0, 1].
func ValidateThreshold(threshold float64, name string) error {
	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("%s threshold must be within [0, 1], got %v", name, threshold)
	}
	return nil
}
