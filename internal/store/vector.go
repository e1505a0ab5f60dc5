package store

import (
	"encoding/binary"
	"fmt"
	"math"
)

const float32Size = 4

// encodeVector packs v as little-endian float32 values, dimension×4 bytes.
func encodeVector(v []float32) ([]byte, error) {
	blob := make([]byte, len(v)*float32Size)
	for i, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return nil, fmt.Errorf("encode vector: invalid value at index %d", i)
		}
		binary.LittleEndian.PutUint32(blob[i*float32Size:], math.Float32bits(x))
	}
	return blob, nil
}

// decodeVector unpacks a blob written by encodeVector.
func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%float32Size != 0 {
		return nil, fmt.Errorf("decode vector: blob length %d is not a multiple of %d", len(blob), float32Size)
	}
	v := make([]float32, len(blob)/float32Size)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*float32Size:]))
	}
	return v, nil
}
