// Package plugin defines the ABI between the acquisition core and a
// device plugin: the data types, capability structures, and the
// CoreInterface callback surface a plugin uses to push samples,
// report errors, and advertise its channel map.
//
// A device plugin never touches the core's internals directly. It
// receives a DeviceModule at Open time and talks back to the core
// exclusively through the DeviceModule's CoreInterface.
package plugin

import "errors"

// ABIVersion is the plugin ABI version this package implements. A
// loader refuses to use a plugin whose Descriptor.ABIVersion differs.
const ABIVersion = 5

// DataType enumerates the three data types the core casts between.
type DataType int

const (
	Int32 DataType = iota
	Float32
	Float64
	numDataType
)

// Size returns the byte size of one value of the type, or 0 if dt is
// not one of the three recognized types.
func (dt DataType) Size() int {
	switch dt {
	case Int32:
		return 4
	case Float32:
		return 4
	case Float64:
		return 8
	default:
		return 0
	}
}

func (dt DataType) Valid() bool {
	return dt >= Int32 && dt < numDataType
}

func (dt DataType) String() string {
	switch dt {
	case Int32:
		return "int32"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return "invalid"
	}
}

// Value holds one of {int32, float32, float64}. Which field is
// active is determined by an accompanying DataType tag carried
// alongside it (e.g. SignalInfo.MinMaxType). Used for scale factors,
// channel min/max, and plugin-supplied default values.
type Value struct {
	I32 int32
	F32 float32
	F64 float64
}

// Float64 returns the value coerced to float64 according to tag.
func (v Value) Float64(tag DataType) float64 {
	switch tag {
	case Int32:
		return float64(v.I32)
	case Float32:
		return float64(v.F32)
	default:
		return v.F64
	}
}

// ValueOf builds a Value from a float64, written into the field
// matching tag so later reads through that same tag round-trip.
func ValueOf(tag DataType, f float64) Value {
	switch tag {
	case Int32:
		return Value{I32: int32(f)}
	case Float32:
		return Value{F32: float32(f)}
	default:
		return Value{F64: f}
	}
}

// CapCode selects which capability GetCap returns.
type CapCode int

const (
	CapSamplingFreq CapCode = iota
	CapTypeList
	CapDeviceType
	CapDeviceID
)

// FieldCode selects a channel_info query field.
type FieldCode int

const (
	FieldLabel FieldCode = iota
	FieldIsInt
	FieldMinMaxI32
	FieldMinMaxF32
	FieldMinMaxF64
	FieldUnit
	FieldTransducer
	FieldPrefiltering
	numFieldCode
)

func (f FieldCode) Valid() bool { return f >= FieldLabel && f < numFieldCode }

// NocpFlags is a bitset of "no copy" flags: which parts of a
// SystemCap are owned by the plugin for the device's lifetime and
// therefore need not be copied into the core.
type NocpFlags int

const (
	NocpChmap NocpFlags = 1 << iota
	NocpDeviceType
	NocpDeviceID
	NocpChLabel
)

// Error taxonomy shared by the consumer API and the plugin side of
// the contract (spec section 7). A plugin reports one of these
// through CoreInterface.ReportError; the consumer API returns one of
// these from any call that fails.
var (
	ErrInvalidArgument = errors.New("eegdev: invalid argument")
	ErrBadState        = errors.New("eegdev: bad state")
	ErrNoDevice        = errors.New("eegdev: no such device")
	ErrBusy            = errors.New("eegdev: device busy")
	ErrIOFailure       = errors.New("eegdev: i/o failure")
	ErrNoSpace         = errors.New("eegdev: ring buffer full")
	ErrNotImplemented  = errors.New("eegdev: not implemented")
)
