package env

import (
	"os"
	"strings"
)

// Prefix namespaces every harness variable.
const Prefix = "HNCHECK_"

// LoadSystemEnv returns the variables starting with prefix, keyed without it.
func LoadSystemEnv(prefix string) map[string]string {
	result := make(map[string]string)
	for _, e := range os.Environ() {
		key, value, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}
		if prefix == "" {
			result[key] = value
		} else if len(key) > len(prefix) && strings.HasPrefix(key, prefix) {
			result[key[len(prefix):]] = value
		}
	}
	return result
}

// Lookup returns the first non-empty value among keys.
func Lookup(keys ...string) (string, bool) {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v, true
		}
	}
	return "", false
}
