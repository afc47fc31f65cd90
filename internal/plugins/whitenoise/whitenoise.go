// Package whitenoise is a second reference driver: uniform random
// noise on a configurable number of eeg channels, float32 throughout
// (no scaling), used by tests and the demo CLI to exercise a
// differently-typed channel map than the sawtooth driver.
package whitenoise

import (
	"context"
	"encoding/binary"
	"math"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/mmlabs-mindmaze/eegdev-go"
	"github.com/mmlabs-mindmaze/eegdev-go/internal/recovery"
	"github.com/mmlabs-mindmaze/eegdev-go/plugin"
)

const bytesF32 = 4

func init() {
	eegdev.Register("whitenoise", 200, func(args string) (*plugin.Descriptor, error) {
		return &plugin.Descriptor{
			ABIVersion: plugin.ABIVersion,
			Open:       open,
			Close:      closeDevice,
			SupportedOpts: []plugin.OptName{
				{Name: "samplingrate", DefValue: "512"},
				{Name: "numch", DefValue: "32"},
			},
		}, nil
	})
}

var eegSignal = plugin.SignalInfo{
	DataType:   plugin.Float32,
	MinMaxType: plugin.Float32,
	Min:        plugin.ValueOf(plugin.Float32, -1.0),
	Max:        plugin.ValueOf(plugin.Float32, 1.0),
	Unit:       "uV",
	Transducer: "Pseudo-random source",
}

type device struct {
	fs     int
	numCh  int
	cancel context.CancelFunc
	wg     sync.WaitGroup
	rng    *rand.Rand
}

func open(mod *plugin.DeviceModule, optv []string) error {
	fs, err := strconv.Atoi(mod.Core.Getopt("samplingrate", "512", optv))
	if err != nil || fs <= 0 {
		return plugin.ErrInvalidArgument
	}
	numCh, err := strconv.Atoi(mod.Core.Getopt("numch", "32", optv))
	if err != nil || numCh <= 0 {
		return plugin.ErrInvalidArgument
	}

	eegType := mod.Core.GetStype("eeg")
	chmap := make([]plugin.ChInfo, numCh)
	for i := range chmap {
		chmap[i] = plugin.ChInfo{SType: eegType, Signal: &eegSignal}
	}

	if err := mod.Core.SetCap(plugin.SystemCap{
		SamplingFreq: float64(fs),
		DeviceType:   "White noise generator",
		DeviceID:     "N/A",
		Mappings:     []plugin.BlockMapping{{Channels: chmap}},
		Flags:        plugin.NocpDeviceType | plugin.NocpDeviceID,
	}); err != nil {
		return err
	}
	mod.Core.SetInputSamlen(numCh * bytesF32)

	ctx, cancel := context.WithCancel(context.Background())
	dev := &device{fs: fs, numCh: numCh, cancel: cancel, rng: rand.New(rand.NewSource(1))}
	mod.State = dev

	dev.wg.Add(1)
	go dev.acquireLoop(ctx, mod)
	return nil
}

func (d *device) acquireLoop(ctx context.Context, mod *plugin.DeviceModule) {
	defer d.wg.Done()
	defer recovery.HandlePanicFunc(d.cancel)

	ticker := time.NewTicker(time.Second / time.Duration(d.fs))
	defer ticker.Stop()

	buf := make([]byte, d.numCh*bytesF32)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for i := 0; i < d.numCh; i++ {
			v := float32(2*d.rng.Float64() - 1)
			binary.LittleEndian.PutUint32(buf[i*bytesF32:], math.Float32bits(v))
		}

		if err := mod.Core.UpdateRingbuffer(buf); err != nil {
			mod.Core.ReportError(err)
			return
		}
	}
}

func closeDevice(mod *plugin.DeviceModule) error {
	dev := mod.State.(*device)
	dev.cancel()
	dev.wg.Wait()
	return nil
}
