package redis

const (
	// KeyPrefix namespaces every key written by pitwall
	KeyPrefix = "pitwall:"
	// KeyPrefixFingerprint is the prefix for last-broadcast fingerprints
	KeyPrefixFingerprint = KeyPrefix + "fingerprint:"
)

// FingerprintKey returns the Redis key for a relay dedup key (ex: "live:9158")
func FingerprintKey(key string) string {
	return KeyPrefixFingerprint + key
}
