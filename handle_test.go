package eegdev

import (
	"testing"

	"github.com/mmlabs-mindmaze/eegdev-go/plugin"
)

func fakeDescriptor(openErr error) *plugin.Descriptor {
	return &plugin.Descriptor{
		ABIVersion: plugin.ABIVersion,
		Open: func(mod *plugin.DeviceModule, optv []string) error {
			if openErr != nil {
				return openErr
			}
			mod.Core.SetInputSamlen(4)
			return mod.Core.SetCap(plugin.SystemCap{
				SamplingFreq: 1,
				DeviceType:   "fake",
				Mappings: []plugin.BlockMapping{{
					Channels: []plugin.ChInfo{{SType: 0, Signal: &plugin.SignalInfo{DataType: plugin.Int32}}},
				}},
			})
		},
		Close: func(mod *plugin.DeviceModule) error { return nil },
	}
}

func registerFake(t *testing.T, name string, priority int, openErr error) {
	t.Helper()
	Register(name, priority, func(args string) (*plugin.Descriptor, error) {
		return fakeDescriptor(openErr), nil
	})
	t.Cleanup(func() {
		registryMu.Lock()
		delete(registry, name)
		delete(priorities, name)
		for i, n := range defaultOrder {
			if n == name {
				defaultOrder = append(defaultOrder[:i], defaultOrder[i+1:]...)
				break
			}
		}
		registryMu.Unlock()
	})
}

func TestOpenByName(t *testing.T) {
	registerFake(t, "fakedev1", 0, nil)

	h, err := Open("fakedev1", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()

	freq, err := h.GetCap(plugin.CapSamplingFreq)
	if err != nil {
		t.Fatalf("GetCap: %v", err)
	}
	if freq.(float64) != 1 {
		t.Errorf("got freq %v, want 1", freq)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("no-such-driver-xyz", nil); err == nil {
		t.Fatal("expected an error for an unregistered driver")
	}
}

func TestOpenAnyTriesInPriorityOrder(t *testing.T) {
	registerFake(t, "fakedev-lo", 10, plugin.ErrIOFailure)
	registerFake(t, "fakedev-hi", 0, nil)

	h, err := Open("any", nil)
	if err != nil {
		t.Fatalf("Open(any): %v", err)
	}
	defer h.Close()

	typ, err := h.GetCap(plugin.CapDeviceType)
	if err != nil {
		t.Fatalf("GetCap: %v", err)
	}
	if typ.(string) != "fake" {
		t.Errorf("got %v, want the successfully opened driver", typ)
	}
}

func TestOpenPropagatesPluginError(t *testing.T) {
	registerFake(t, "fakedev-bad", 0, plugin.ErrIOFailure)

	if _, err := Open("fakedev-bad", nil); err != plugin.ErrIOFailure {
		t.Errorf("got %v, want ErrIOFailure", err)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	registerFake(t, "fakedev-dup", 0, nil)

	defer func() {
		if recover() == nil {
			t.Fatal("expected Register to panic on duplicate name")
		}
	}()
	Register("fakedev-dup", 0, func(string) (*plugin.Descriptor, error) { return nil, nil })
}

func TestSensorTypeRoundtrip(t *testing.T) {
	id := SensorType("eeg")
	name, err := SensorName(id)
	if err != nil {
		t.Fatalf("SensorName: %v", err)
	}
	if name != "eeg" {
		t.Errorf("got %q, want %q", name, "eeg")
	}
}
