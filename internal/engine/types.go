package engine

import (
	"github.com/mmlabs-mindmaze/eegdev-go/internal/cast"
	"github.com/mmlabs-mindmaze/eegdev-go/plugin"
)

// castKey identifies which matrix entry an inputBufferGroup's castFn
// was looked up from, so two groups can be compared for coalescing
// without comparing func values directly.
type castKey struct {
	typeIn, typeOut plugin.DataType
	scaled          bool
}

// order is the acquisition order the state machine (§4.4) tracks.
// Only the consumer API sets start/stop; only the ingest pipeline
// clears it back to none.
type order int

const (
	orderNone order = iota
	orderStart
	orderStop
)

// inputBufferGroup is one coalesced input->ringbuffer cast
// instruction (spec's "Input-buffer group").
type inputBufferGroup struct {
	inOffset   int
	inLen      int
	buffOffset int
	inTsize    int
	buffTsize  int
	scale      plugin.Value
	castFn     cast.Func
	castKey    castKey
}

// arrayConfig is one ringbuffer->caller-array copy instruction.
type arrayConfig struct {
	length     int
	arrayIndex int
	arrOffset  int
	buffOffset int
}

// BufferSeconds is the compiled-in ring buffer capacity, in seconds
// of sampling at the device's frequency (spec §4.3).
const BufferSeconds = 10
