package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// hashKey builds a stage-prefixed cache key: <stage>:<sha256(hash|opts)>.
// The content hash and the serialized options are hashed together, so any
// option that changes a stage's output changes its key.
func hashKey(stage, contentHash string, opts any) string {
	encoded, _ := json.Marshal(opts)
	sum := sha256.Sum256(append([]byte(contentHash+"|"), encoded...))
	return stage + ":" + hex.EncodeToString(sum[:])
}

// Hash returns the hex SHA-256 of data. Used both for content addressing
// of inputs and for mapping keys to cache file names.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
