package cast

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/mmlabs-mindmaze/eegdev-go/plugin"
)

func putF32(b []byte, v float32) {
	order.PutUint32(b, math.Float32bits(v))
}

func putI32(b []byte, v int32) {
	order.PutUint32(b, uint32(v))
}

func TestLookupIdentityOnSameType(t *testing.T) {
	fn := Lookup(plugin.Float32, plugin.Float32, false)
	src := make([]byte, 8)
	putF32(src[0:], 1.5)
	putF32(src[4:], -2.5)

	dst := make([]byte, 8)
	fn(dst, src, plugin.Value{})

	if string(dst) != string(src) {
		t.Fatalf("identity cast changed bytes: got %v want %v", dst, src)
	}
}

func TestLookupUnknownType(t *testing.T) {
	if Lookup(plugin.DataType(99), plugin.Float32, false) != nil {
		t.Fatal("Lookup with invalid input type should return nil")
	}
}

func TestConvertInt32ToFloat32Scaled(t *testing.T) {
	fn := Lookup(plugin.Int32, plugin.Float32, true)

	src := make([]byte, 4)
	putI32(src, 100)

	dst := make([]byte, 4)
	scale := plugin.ValueOf(plugin.Float32, 0.5)
	fn(dst, src, scale)

	got := math.Float32frombits(binary.LittleEndian.Uint32(dst))
	if got != 50 {
		t.Fatalf("got %v, want 50", got)
	}
}

func TestConvertFloat64ToInt32Truncates(t *testing.T) {
	fn := Lookup(plugin.Float64, plugin.Int32, false)

	src := make([]byte, 8)
	order.PutUint64(src, math.Float64bits(3.9))

	dst := make([]byte, 4)
	fn(dst, src, plugin.Value{})

	got := int32(order.Uint32(dst))
	if got != 3 {
		t.Fatalf("got %d, want 3 (truncation toward zero)", got)
	}
}

func TestConvertRunOfValues(t *testing.T) {
	fn := Lookup(plugin.Int32, plugin.Float64, false)

	src := make([]byte, 12)
	putI32(src[0:], 1)
	putI32(src[4:], 2)
	putI32(src[8:], 3)

	dst := make([]byte, 24)
	fn(dst, src, plugin.Value{})

	for i, want := range []float64{1, 2, 3} {
		got := math.Float64frombits(order.Uint64(dst[i*8:]))
		if got != want {
			t.Errorf("value %d: got %v, want %v", i, got, want)
		}
	}
}
