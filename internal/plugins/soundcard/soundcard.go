// Package soundcard is a reference device driver backed by a real
// audio input device through malgo: it reports one eeg-typed channel
// per capture channel and feeds raw interleaved float32 frames from
// the audio callback straight into UpdateRingbuffer. It exists to
// show the core driving an actual hardware producer instead of a
// synthetic one.
package soundcard

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/mmlabs-mindmaze/eegdev-go"
	"github.com/mmlabs-mindmaze/eegdev-go/plugin"
)

func init() {
	eegdev.Register("soundcard", 10, func(args string) (*plugin.Descriptor, error) {
		return &plugin.Descriptor{
			ABIVersion: plugin.ABIVersion,
			Open:       open,
			Close:      closeDevice,
			SupportedOpts: []plugin.OptName{
				{Name: "samplerate", DefValue: "48000"},
				{Name: "channels", DefValue: "1"},
			},
		}, nil
	})
}

var signalInfo = plugin.SignalInfo{
	DataType:   plugin.Float32,
	MinMaxType: plugin.Float32,
	Min:        plugin.ValueOf(plugin.Float32, -1.0),
	Max:        plugin.ValueOf(plugin.Float32, 1.0),
	Unit:       "V",
	Transducer: "Sound card line/mic input",
}

type device struct {
	mu  sync.Mutex
	ctx *malgo.AllocatedContext
	dev *malgo.Device
}

func open(mod *plugin.DeviceModule, optv []string) error {
	sampleRate, err := strconv.Atoi(mod.Core.Getopt("samplerate", "48000", optv))
	if err != nil || sampleRate <= 0 {
		return plugin.ErrInvalidArgument
	}
	numCh, err := strconv.Atoi(mod.Core.Getopt("channels", "1", optv))
	if err != nil || numCh <= 0 {
		return plugin.ErrInvalidArgument
	}

	eegType := mod.Core.GetStype("eeg")
	chmap := make([]plugin.ChInfo, numCh)
	for i := range chmap {
		chmap[i] = plugin.ChInfo{SType: eegType, Signal: &signalInfo}
	}

	if err := mod.Core.SetCap(plugin.SystemCap{
		SamplingFreq: float64(sampleRate),
		DeviceType:   "Sound card capture",
		DeviceID:     "default",
		Mappings:     []plugin.BlockMapping{{Channels: chmap}},
	}); err != nil {
		return err
	}
	mod.Core.SetInputSamlen(numCh * 4)

	actx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("soundcard: init audio context: %w", plugin.ErrIOFailure)
	}

	dev := &device{ctx: actx}
	mod.State = dev

	deviceConfig := malgo.DeviceConfig{
		DeviceType: malgo.Capture,
		SampleRate: uint32(sampleRate),
		Capture: malgo.SubConfig{
			Format:   malgo.FormatF32,
			Channels: uint32(numCh),
		},
	}

	onRecvFrames := func(outputSamples, inputSamples []byte, frameCount uint32) {
		if len(inputSamples) == 0 {
			return
		}
		if err := mod.Core.UpdateRingbuffer(inputSamples); err != nil {
			mod.Core.ReportError(err)
		}
	}

	mdev, err := malgo.InitDevice(actx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onRecvFrames})
	if err != nil {
		actx.Uninit()
		actx.Free()
		return fmt.Errorf("soundcard: init device: %w", plugin.ErrIOFailure)
	}
	dev.dev = mdev

	if err := mdev.Start(); err != nil {
		mdev.Uninit()
		actx.Uninit()
		actx.Free()
		return fmt.Errorf("soundcard: start device: %w", plugin.ErrIOFailure)
	}

	return nil
}

func closeDevice(mod *plugin.DeviceModule) error {
	dev := mod.State.(*device)
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if dev.dev != nil {
		dev.dev.Stop()
		dev.dev.Uninit()
		dev.dev = nil
	}
	if dev.ctx != nil {
		dev.ctx.Uninit()
		dev.ctx.Free()
		dev.ctx = nil
	}
	return nil
}
