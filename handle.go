// Package eegdev is a device-agnostic biosignal acquisition core: a
// consumer opens a device by name, declares what it wants to read in
// which arrays, and streams samples out of a producer-filled ring
// buffer. Device drivers are ordinary Go packages that call Register
// with a plugin.Descriptor; see the plugin subpackage for the ABI
// they implement against.
package eegdev

import (
	"fmt"
	"strings"

	"github.com/mmlabs-mindmaze/eegdev-go/internal/engine"
	"github.com/mmlabs-mindmaze/eegdev-go/internal/options"
	"github.com/mmlabs-mindmaze/eegdev-go/internal/sensortype"
	"github.com/mmlabs-mindmaze/eegdev-go/plugin"
)

// Handle is an open device. The zero value is not usable; obtain one
// from Open.
type Handle struct {
	dev *engine.Device
}

// Open resolves devspec against the driver registry and opens it.
// devspec is "driver" or "driver:args"; "any" tries every registered
// driver, in ascending priority order, and returns the first one that
// opens successfully. GetConfMapping lookups from the opened device
// are served by confLookup, which may be nil.
func Open(devspec string, confLookup func(name string) (string, bool)) (*Handle, error) {
	names := []string{devspec}
	args := ""
	if name, rest, ok := strings.Cut(devspec, ":"); ok {
		names, args = []string{name}, rest
	}
	if devspec == "any" {
		names = defaultDriverOrder()
		if len(names) == 0 {
			return nil, fmt.Errorf("eegdev: %w: no driver registered", plugin.ErrNoDevice)
		}
	}

	var lastErr error
	for _, name := range names {
		open, ok := lookupOpener(name)
		if !ok {
			lastErr = fmt.Errorf("eegdev: %w: no driver named %q", plugin.ErrNotImplemented, name)
			continue
		}

		descriptor, err := open(args)
		if err != nil {
			lastErr = err
			continue
		}
		if descriptor.ABIVersion != plugin.ABIVersion {
			lastErr = fmt.Errorf("eegdev: %w: driver %q built for ABI %d, core is %d",
				plugin.ErrNotImplemented, name, descriptor.ABIVersion, plugin.ABIVersion)
			continue
		}

		dev := engine.New(descriptor, confLookup)
		if descriptor.Open == nil {
			lastErr = fmt.Errorf("eegdev: %w: driver %q has no Open", plugin.ErrNotImplemented, name)
			continue
		}

		optv := options.Build(descriptor.SupportedOpts, confLookup)
		if err := descriptor.Open(dev.Module(), optv); err != nil {
			lastErr = err
			continue
		}

		return &Handle{dev: dev}, nil
	}

	if lastErr == nil {
		lastErr = plugin.ErrNoDevice
	}
	return nil, lastErr
}

// Close releases the device, stopping acquisition first if needed.
func (h *Handle) Close() error {
	return h.dev.Close()
}

// GetCap returns a capability value, as selected by code.
func (h *Handle) GetCap(code plugin.CapCode) (any, error) {
	switch code {
	case plugin.CapSamplingFreq:
		return h.dev.SamplingFreq(), nil
	case plugin.CapTypeList:
		return h.dev.ProvidedStypes(), nil
	case plugin.CapDeviceType:
		return h.dev.DeviceType(), nil
	case plugin.CapDeviceID:
		return h.dev.DeviceID(), nil
	default:
		return nil, plugin.ErrInvalidArgument
	}
}

// GetNumCh returns the number of channels of the given sensor type.
func (h *Handle) GetNumCh(stype int) int {
	return h.dev.NumCh(stype)
}

// ChannelInfo returns the resolved channel info for the index-th
// channel of sensor type stype.
func (h *Handle) ChannelInfo(stype, index int) (plugin.ChInfo, error) {
	return h.dev.ChInfo(stype, index)
}

// AcqSetup declares the caller's channel groups and output array
// layout ahead of Start. narr is the number of output arrays; strides
// is the per-sample byte stride of each array; groups describes which
// channels land where.
func (h *Handle) AcqSetup(narr int, strides []int, groups []plugin.GrpConf) error {
	return h.dev.AcqSetup(narr, strides, groups)
}

// Start begins acquisition.
func (h *Handle) Start() error { return h.dev.Start() }

// Stop ends acquisition.
func (h *Handle) Stop() error { return h.dev.Stop() }

// GetData blocks until ns samples are available (or the device
// stops, or errors) and copies them into arrays, returning the number
// of samples actually copied.
func (h *Handle) GetData(ns int, arrays [][]byte) (int, error) {
	return h.dev.GetData(ns, arrays)
}

// GetAvailable returns the number of unread buffered samples.
func (h *Handle) GetAvailable() (int, error) {
	return h.dev.GetAvailable()
}

// SensorType resolves a sensor type name to its process-wide id,
// registering it if this is the first time it has been seen.
func SensorType(name string) int { return sensortype.TypeOf(name) }

// SensorName returns the name registered for id.
func SensorName(id int) (string, error) { return sensortype.Name(id) }
