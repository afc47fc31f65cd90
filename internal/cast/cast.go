// Package cast implements the type cast matrix: given an input type,
// an output type, and whether a scale factor applies, it looks up a
// function that converts a contiguous run of input-typed bytes into
// output-typed bytes, scaling by an output-typed scalar if requested.
//
// Reading is explicit bit-level decode/encode (no unsafe pointer
// reinterpretation), the same style cwdecoder's internal/audio
// package uses for its non-zero-copy path (bytesToFloat32).
package cast

import (
	"encoding/binary"
	"math"

	"github.com/mmlabs-mindmaze/eegdev-go/plugin"
)

// Func converts src (a run of in-typed values) into dst (the
// matching run of out-typed values), optionally multiplying by
// scale. len(src) must be a positive multiple of the input type's
// size; dst must be at least as long as the corresponding output
// run.
type Func func(dst, src []byte, scale plugin.Value)

var order = binary.LittleEndian

func readVal(dt plugin.DataType, b []byte) float64 {
	switch dt {
	case plugin.Int32:
		return float64(int32(order.Uint32(b)))
	case plugin.Float32:
		return float64(math.Float32frombits(order.Uint32(b)))
	default: // Float64
		return math.Float64frombits(order.Uint64(b))
	}
}

func writeVal(dt plugin.DataType, b []byte, v float64) {
	switch dt {
	case plugin.Int32:
		// Truncation toward zero, matching C's float->int conversion.
		order.PutUint32(b, uint32(int32(v)))
	case plugin.Float32:
		order.PutUint32(b, math.Float32bits(float32(v)))
	default: // Float64
		order.PutUint64(b, math.Float64bits(v))
	}
}

func identity(dst, src []byte, _ plugin.Value) {
	copy(dst, src)
}

func convert(in, out plugin.DataType, scaled bool) Func {
	inSize, outSize := in.Size(), out.Size()
	return func(dst, src []byte, scale plugin.Value) {
		n := len(src) / inSize
		sc := scale.Float64(out)
		for i := 0; i < n; i++ {
			v := readVal(in, src[i*inSize:])
			if scaled {
				v *= sc
			}
			writeVal(out, dst[i*outSize:], v)
		}
	}
}

var table [3][3][2]Func

func init() {
	types := []plugin.DataType{plugin.Int32, plugin.Float32, plugin.Float64}
	for _, in := range types {
		for _, out := range types {
			table[in][out][0] = convert(in, out, false)
			table[in][out][1] = convert(in, out, true)
		}
		table[in][in][0] = identity
	}
}

// Lookup returns the conversion function for the given input type,
// output type, and whether a scale factor should be applied. Returns
// nil if either type is not one of {Int32, Float32, Float64}.
func Lookup(in, out plugin.DataType, scaled bool) Func {
	if !in.Valid() || !out.Valid() {
		return nil
	}
	idx := 0
	if scaled {
		idx = 1
	}
	return table[in][out][idx]
}
