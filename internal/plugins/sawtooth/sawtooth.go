// Package sawtooth is a reference device driver: it generates a
// deterministic sawtooth waveform on eight eeg channels plus a
// periodic trigger pulse, with no hardware dependency. It exists to
// exercise the acquisition core end to end, the same way the
// original library ships a sawtooth example plugin to document the
// plugin ABI.
package sawtooth

import (
	"context"
	"encoding/binary"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/mmlabs-mindmaze/eegdev-go"
	"github.com/mmlabs-mindmaze/eegdev-go/internal/recovery"
	"github.com/mmlabs-mindmaze/eegdev-go/plugin"
)

const (
	numEEGCh  = 8
	numTrigCh = 1
	numCh     = numEEGCh + numTrigCh
	sawFreq   = 50  // period of the sawtooth, in samples
	nsPerPush = 2   // samples per UpdateRingbuffer call
	bytesI32  = 4
)

func init() {
	eegdev.Register("sawtooth", 100, func(args string) (*plugin.Descriptor, error) {
		return &plugin.Descriptor{
			ABIVersion:    plugin.ABIVersion,
			Open:          open,
			Close:         closeDevice,
			SupportedOpts: []plugin.OptName{{Name: "samplingrate", DefValue: "256"}},
		}, nil
	})
}

var eegSignal = plugin.SignalInfo{
	DataType:   plugin.Int32,
	Scaled:     true,
	Scale:      1.0 / 8192.0,
	MinMaxType: plugin.Float64,
	Min:        plugin.ValueOf(plugin.Float64, -262144.0),
	Max:        plugin.ValueOf(plugin.Float64, 262143.96875),
	Unit:       "uV",
	Transducer: "Fake electrode",
}

var trigSignal = plugin.SignalInfo{
	DataType:   plugin.Int32,
	IsInt:      true,
	MinMaxType: plugin.Int32,
	Min:        plugin.ValueOf(plugin.Int32, math.MinInt32),
	Max:        plugin.ValueOf(plugin.Int32, math.MaxInt32),
	Unit:       "Boolean",
	Transducer: "Trigger",
}

type device struct {
	fs     int
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func open(mod *plugin.DeviceModule, optv []string) error {
	fsStr := mod.Core.Getopt("samplingrate", "256", optv)
	fs, err := strconv.Atoi(fsStr)
	if err != nil || fs <= 0 {
		return plugin.ErrInvalidArgument
	}

	eegType := mod.Core.GetStype("eeg")
	trigType := mod.Core.GetStype("trigger")

	chmap := make([]plugin.ChInfo, 0, numCh)
	for i := 0; i < numEEGCh; i++ {
		chmap = append(chmap, plugin.ChInfo{SType: eegType, Signal: &eegSignal})
	}
	for i := 0; i < numTrigCh; i++ {
		chmap = append(chmap, plugin.ChInfo{SType: trigType, Signal: &trigSignal})
	}

	err = mod.Core.SetCap(plugin.SystemCap{
		SamplingFreq: float64(fs),
		DeviceType:   "Sawtooth function generator",
		DeviceID:     "N/A",
		Mappings:     []plugin.BlockMapping{{Channels: chmap}},
		Flags:        plugin.NocpDeviceType | plugin.NocpDeviceID,
	})
	if err != nil {
		return err
	}
	mod.Core.SetInputSamlen(numCh * bytesI32)

	ctx, cancel := context.WithCancel(context.Background())
	dev := &device{fs: fs, cancel: cancel}
	mod.State = dev

	dev.wg.Add(1)
	go dev.acquireLoop(ctx, mod)

	return nil
}

func (d *device) acquireLoop(ctx context.Context, mod *plugin.DeviceModule) {
	defer d.wg.Done()
	defer recovery.HandlePanicFunc(d.cancel)

	period := nsPerPush * time.Second / time.Duration(d.fs)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	buf := make([]byte, nsPerPush*numCh*bytesI32)
	var isample int64

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for s := 0; s < nsPerPush; s++ {
			writeSample(buf[s*numCh*bytesI32:], isample)
			isample++
		}

		if err := mod.Core.UpdateRingbuffer(buf); err != nil {
			mod.Core.ReportError(err)
			return
		}
	}
}

func writeSample(b []byte, isample int64) {
	phase := isample % sawFreq
	for i := 0; i < numEEGCh; i++ {
		v := int32(i+1) * int32(phase-sawFreq/2)
		binary.LittleEndian.PutUint32(b[i*bytesI32:], uint32(v))
	}
	for i := 0; i < numTrigCh; i++ {
		var v int32
		if phase == 0 {
			v = 0xAA << i
		}
		binary.LittleEndian.PutUint32(b[(numEEGCh+i)*bytesI32:], uint32(v))
	}
}

func closeDevice(mod *plugin.DeviceModule) error {
	dev := mod.State.(*device)
	dev.cancel()
	dev.wg.Wait()
	return nil
}
