package main

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/orneryd/annlite/annerr"
)

// readFvecs reads the classic .fvecs layout used by ann-benchmarks
// corpora (SIFT1M, GIST1M and similar): a repeating {dim int32, dim
// float32 elements} record with no outer count or header. Every
// record in a file must share the same dim.
func readFvecs(path string) ([][]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, annerr.Wrap("annbench.readFvecs", annerr.KindReadData, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var vectors [][]float32
	dim := -1
	for {
		var dimBuf [4]byte
		if _, err := io.ReadFull(r, dimBuf[:]); err != nil {
			if err == io.EOF {
				break
			}
			return nil, 0, annerr.Wrap("annbench.readFvecs", annerr.KindReadData, err)
		}
		d := int(binary.LittleEndian.Uint32(dimBuf[:]))
		if dim == -1 {
			dim = d
		} else if d != dim {
			return nil, 0, annerr.New("annbench.readFvecs", annerr.KindInvalidFormat)
		}
		raw := make([]byte, d*4)
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, 0, annerr.Wrap("annbench.readFvecs", annerr.KindReadData, err)
		}
		vec := make([]float32, d)
		for i := range vec {
			vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
		vectors = append(vectors, vec)
	}
	if dim == -1 {
		return nil, 0, annerr.New("annbench.readFvecs", annerr.KindInvalidFormat)
	}
	return vectors, dim, nil
}

// encodeFP32 packs a []float32 into annlite's little-endian FP32 wire
// encoding (metric.FP32's ElementSize layout).
func encodeFP32(vec []float32) []byte {
	out := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}
