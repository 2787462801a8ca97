package badger

import (
	"encoding/binary"

	"github.com/poiesic/occusearch/core"
)

// Key prefixes for different data types
const (
	vectorRecordPrefix = "vecrec"
)

// makeModelPrefix generates the key prefix shared by all vectors of a model.
// Format: prefix:modelHash
func makeModelPrefix(modelID string) []byte {
	prefix := vectorRecordPrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+8) // 8 bytes for model hash
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(core.IDFromContent(modelID)))
	return buf
}

// makeVectorKey generates the key for the vector of title under modelID.
// Format: prefix:modelHash:vectorKey
func makeVectorKey(modelID, title string) []byte {
	modelPrefix := makeModelPrefix(modelID)
	buf := make([]byte, len(modelPrefix)+8) // 8 bytes for vector key
	offset := copy(buf, modelPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(core.VectorKey(modelID, title)))
	return buf
}
