package main

import (
	"github.com/mmlabs-mindmaze/eegdev-go/cmd"
	"github.com/mmlabs-mindmaze/eegdev-go/internal/recovery"

	_ "github.com/mmlabs-mindmaze/eegdev-go/internal/plugins/sawtooth"
	_ "github.com/mmlabs-mindmaze/eegdev-go/internal/plugins/soundcard"
	_ "github.com/mmlabs-mindmaze/eegdev-go/internal/plugins/whitenoise"
)

func main() {
	defer recovery.HandlePanic()
	cmd.Execute()
}
