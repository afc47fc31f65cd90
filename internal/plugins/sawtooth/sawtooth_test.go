package sawtooth

import (
	"testing"
	"time"

	"github.com/mmlabs-mindmaze/eegdev-go"
	"github.com/mmlabs-mindmaze/eegdev-go/plugin"
)

// fastConfig overrides samplingrate to something high enough that a
// handful of samples arrive within a test's patience.
func fastConfig(name string) (string, bool) {
	if name == "samplingrate" {
		return "100000", true
	}
	return "", false
}

func TestSawtoothEndToEnd(t *testing.T) {
	h, err := eegdev.Open("sawtooth", fastConfig)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()

	eegID := eegdev.SensorType("eeg")
	trigID := eegdev.SensorType("trigger")

	if n := h.GetNumCh(eegID); n != numEEGCh {
		t.Fatalf("GetNumCh(eeg) = %d, want %d", n, numEEGCh)
	}
	if n := h.GetNumCh(trigID); n != numTrigCh {
		t.Fatalf("GetNumCh(trigger) = %d, want %d", n, numTrigCh)
	}

	info, err := h.ChannelInfo(eegID, 0)
	if err != nil {
		t.Fatalf("ChannelInfo: %v", err)
	}
	if info.Label != "eeg:0" {
		t.Errorf("Label = %q, want %q", info.Label, "eeg:0")
	}

	stride := numCh * 4
	err = h.AcqSetup(1, []int{stride}, []plugin.GrpConf{
		{SensorType: eegID, NumCh: numEEGCh, DataType: plugin.Float32, ArrOffset: 0},
		{SensorType: trigID, NumCh: numTrigCh, DataType: plugin.Int32, ArrOffset: numEEGCh * 4},
	})
	if err != nil {
		t.Fatalf("AcqSetup: %v", err)
	}

	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	arr := make([]byte, 5*stride)
	done := make(chan struct{})
	var n int
	var getErr error
	go func() {
		n, getErr = h.GetData(5, [][]byte{arr})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("GetData did not return in time")
	}

	if getErr != nil {
		t.Fatalf("GetData: %v", getErr)
	}
	if n != 5 {
		t.Fatalf("GetData returned %d samples, want 5", n)
	}

	if err := h.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
