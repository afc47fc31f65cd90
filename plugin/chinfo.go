package plugin

// SignalInfo is per-channel immutable metadata as delivered by the
// device: its wire data type, min/max (typed by MinMaxType), unit,
// transducer, prefiltering string, whether the channel is inherently
// integer-valued, and whether a scale factor must be applied before
// the value is meaningful.
type SignalInfo struct {
	DataType      DataType
	IsInt         bool
	Scaled        bool // true if Scale must be applied (the original's "bsc")
	Scale         float64
	MinMaxType    DataType
	Min, Max      Value
	Unit          string
	Transducer    string
	Prefiltering  string
}

// ChInfo describes one channel in a plugin's channel map: an
// optional label (default is "<sensor-name>:<index>", computed by
// the core, not the plugin), the sensor type, and the channel's
// signal metadata. SignalInfo may be nil, in which case the
// enclosing BlockMapping's DefaultInfo is used.
type ChInfo struct {
	Label  string
	SType  int
	Signal *SignalInfo
}

// BlockMapping is a contiguous run of ChInfo, optionally followed by
// NumSkipped "skipped" channels of SkippedSType with no label and no
// per-channel info (they all share DefaultInfo). Plugins with a
// uniform channel layout can express it as a single BlockMapping.
type BlockMapping struct {
	Channels     []ChInfo
	NumSkipped   int
	SkippedSType int
	DefaultInfo  *SignalInfo
}

// SystemCap is the capability set a plugin reports to the core via
// CoreInterface.SetCap during Open.
type SystemCap struct {
	SamplingFreq float64
	DeviceType   string
	DeviceID     string
	Mappings     []BlockMapping
	Flags        NocpFlags
}

// GrpConf is one caller-requested channel group, compiled by the
// channel splitter (or the plugin's own SetChannelGroups) into
// SelectedChannels.
type GrpConf struct {
	SensorType int
	Index      int // starting index within SensorType
	NumCh      int
	ArrayIndex int
	ArrOffset  int // byte offset into that array
	DataType   DataType
}

// SelectedChannels is one compiled slice: a contiguous run of device
// bytes mapping into one caller array, at one requested output type.
type SelectedChannels struct {
	InOffset   int // byte offset within one input sample
	InLen      int // byte length of the run, in input-type units
	TypeIn     DataType
	TypeOut    DataType
	Scale      Value
	Scaled     bool
	ArrayIndex int
	ArrOffset  int
}

// OptName is one (name, default value) pair a plugin declares as a
// supported option. The loader collects effective values in
// declaration order and hands them to Open as an optv slice;
// CoreInterface.Getopt scans that slice by name.
type OptName struct {
	Name     string
	DefValue string
}
