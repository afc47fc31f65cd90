//go:build integration

package soundcard

import (
	"testing"
	"time"

	"github.com/mmlabs-mindmaze/eegdev-go"
	"github.com/mmlabs-mindmaze/eegdev-go/plugin"
)

// These tests require a real capture device and are skipped by
// default. Run with: go test -tags=integration ./internal/plugins/soundcard

func TestSoundcardCapturesRealAudio_Integration(t *testing.T) {
	h, err := eegdev.Open("soundcard", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()

	eegID := eegdev.SensorType("eeg")
	if err := h.AcqSetup(1, []int{4}, []plugin.GrpConf{
		{SensorType: eegID, NumCh: 1, DataType: plugin.Float32},
	}); err != nil {
		t.Fatalf("AcqSetup: %v", err)
	}

	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer h.Stop()

	arr := make([]byte, 4)
	done := make(chan struct{})
	go func() {
		h.GetData(1, [][]byte{arr})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("no audio frame captured within 5s")
	}
}
