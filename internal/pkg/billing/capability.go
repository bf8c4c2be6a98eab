package billing

import "strings"

// Capability tells callers whether live processor calls are possible.
type Capability struct {
	Configured bool
}

// ResolveCapability treats a key as usable when it looks like a real secret
// key and is not a placeholder from a sample environment file.
func ResolveCapability(secretKey string) Capability {
	key := strings.TrimSpace(secretKey)
	return Capability{
		Configured: strings.HasPrefix(key, "sk_") && !strings.Contains(key, "dummy"),
	}
}
