package plugin

// CoreInterface is the callback table the core hands to every
// device plugin. A plugin never reaches into the core's internals;
// it only calls back through this interface.
type CoreInterface interface {
	// UpdateRingbuffer pushes a block of raw input bytes into the
	// core's ingest pipeline. The block may start and end at any
	// byte offset; it need not align to an input-sample boundary.
	UpdateRingbuffer(in []byte) error

	// AllocInputGroups reserves n SelectedChannels slots for a
	// custom SetChannelGroups implementation to populate and
	// return. Plugins using the core's default channel splitter
	// never call this directly.
	AllocInputGroups(n int) []SelectedChannels

	// ReportError latches the first error reported since the last
	// Start and wakes any consumer blocked in GetData.
	ReportError(err error)

	// GetStype resolves (and if necessary registers) a sensor type
	// name into the process-wide small-integer id.
	GetStype(name string) int

	// SetInputSamlen declares the byte size of one input sample as
	// delivered to UpdateRingbuffer. Must be called during Open,
	// before the first UpdateRingbuffer call.
	SetInputSamlen(n int)

	// SetCap declares the plugin's channel map and sampling
	// frequency. Must be called during Open.
	SetCap(cap SystemCap) error

	// GetConfMapping looks up a configuration value by name from
	// the (out-of-scope) configuration collaborator. Returns
	// ("", false) if unset.
	GetConfMapping(name string) (string, bool)

	// Getopt scans optv (built by the loader in declaration order
	// of the plugin's SupportedOpts) for name and returns its
	// value, or defValue if not present.
	Getopt(name, defValue string, optv []string) string
}

// DeviceModule is what the core passes to every plugin entry point.
// State is the plugin's own per-device payload: the plugin sets it
// during Open and type-asserts it back out in every later call. The
// core never inspects State.
type DeviceModule struct {
	Core  CoreInterface
	State any
}

// Descriptor is the static information a plugin exports, equivalent
// to the original library's eegdev_plugin_info symbol. Open and
// Close are mandatory; the rest have no-op or core-provided
// defaults when left nil.
type Descriptor struct {
	ABIVersion int

	// Open is called by the core when a caller opens this device.
	// The plugin must call DeviceModule.Core.SetCap and
	// Core.SetInputSamlen before returning.
	Open func(mod *DeviceModule, optv []string) error

	Close func(mod *DeviceModule) error

	// SetChannelGroups is optional; when nil the core's default
	// channel splitter is used. A plugin implementing it must call
	// Core.AllocInputGroups and populate the returned slice before
	// returning.
	SetChannelGroups func(mod *DeviceModule, groups []GrpConf) ([]SelectedChannels, error)

	// StartAcq/StopAcq are optional; nil means no-op.
	StartAcq func(mod *DeviceModule) error
	StopAcq  func(mod *DeviceModule) error

	// FillChInfo is optional; when nil the core's default filler
	// (label + the channel map's own SignalInfo) is used.
	FillChInfo func(mod *DeviceModule, stype int, index int, info *ChInfo, sig *SignalInfo)

	SupportedOpts []OptName
}
