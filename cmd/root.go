// cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmlabs-mindmaze/eegdev-go"
	"github.com/mmlabs-mindmaze/eegdev-go/internal/config"
	"github.com/mmlabs-mindmaze/eegdev-go/plugin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "eegdev-acquire",
	Short: "Stream biosignal samples from a device plugin",
	Long:  `Opens a device driver, sets up the requested channel groups, and streams raw samples to stdout or a file.`,
	RunE:  runAcquire,
}

// groupStride returns the per-sample byte stride a group contributes to
// its output array.
func groupStride(g config.GroupConfig) (int, error) {
	dt, err := dataTypeOf(g.DataType)
	if err != nil {
		return 0, err
	}
	return g.NumCh * dt.Size(), nil
}

func dataTypeOf(name string) (plugin.DataType, error) {
	switch name {
	case "int32":
		return plugin.Int32, nil
	case "float32":
		return plugin.Float32, nil
	case "float64":
		return plugin.Float64, nil
	default:
		return 0, fmt.Errorf("unknown data_type %q", name)
	}
}

// buildGroups translates the configured channel groups into the
// plugin.GrpConf slice AcqSetup expects, one output array per group.
func buildGroups(groups []config.GroupConfig) ([]int, []plugin.GrpConf, error) {
	strides := make([]int, len(groups))
	grpConf := make([]plugin.GrpConf, len(groups))

	for i, g := range groups {
		dt, err := dataTypeOf(g.DataType)
		if err != nil {
			return nil, nil, err
		}
		stride, err := groupStride(g)
		if err != nil {
			return nil, nil, err
		}
		strides[i] = stride
		grpConf[i] = plugin.GrpConf{
			SensorType: eegdev.SensorType(g.SensorType),
			Index:      g.Index,
			NumCh:      g.NumCh,
			ArrayIndex: i,
			ArrOffset:  0,
			DataType:   dt,
		}
	}
	return strides, grpConf, nil
}

// runAcquire is the main entry point that wires config, device, and
// streaming output together.
func runAcquire(_ *cobra.Command, _ []string) error {
	settings, err := config.Get()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if settings.Debug {
		fmt.Printf("Config: device=%s groups=%d output=%q\n",
			settings.Device, len(settings.Groups), settings.OutputFile)
	}

	var out io.Writer = os.Stdout
	if settings.OutputFile != "" {
		f, err := os.Create(settings.OutputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "error closing output file: %v\n", err)
			}
		}()
		out = f
	}

	h, err := eegdev.Open(settings.Device, settings.OptionLookup())
	if err != nil {
		return fmt.Errorf("open device %q: %w", settings.Device, err)
	}
	defer func() {
		if err := h.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "error closing device: %v\n", err)
		}
	}()

	if settings.Debug {
		fmt.Printf("Device type: %v, sampling freq: %v\n",
			must(h.GetCap(plugin.CapDeviceType)), must(h.GetCap(plugin.CapSamplingFreq)))
	}

	strides, grpConf, err := buildGroups(settings.Groups)
	if err != nil {
		return fmt.Errorf("build channel groups: %w", err)
	}
	if err := h.AcqSetup(len(settings.Groups), strides, grpConf); err != nil {
		return fmt.Errorf("acq setup: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		fmt.Printf("\nReceived signal %v, shutting down...\n", sig)
		cancel()
	}()

	fmt.Println("Starting acquisition... Press Ctrl+C to stop.")
	if err := h.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	const chunkSamples = 64
	arrays := make([][]byte, len(strides))
	for i, stride := range strides {
		arrays[i] = make([]byte, stride*chunkSamples)
	}

	done := make(chan error, 1)
	go func() {
		for {
			n, err := h.GetData(chunkSamples, arrays)
			for _, arr := range arrays {
				stride := len(arr) / chunkSamples
				if _, werr := out.Write(arr[:n*stride]); werr != nil {
					done <- werr
					return
				}
			}
			if err != nil {
				done <- err
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-done:
		if err != nil && settings.Debug {
			fmt.Printf("streaming stopped: %v\n", err)
		}
	}

	if err := h.Stop(); err != nil && err != plugin.ErrBadState {
		fmt.Fprintf(os.Stderr, "error stopping acquisition: %v\n", err)
	}

	fmt.Println("Acquisition stopped.")
	return nil
}

func must(v any, err error) any {
	if err != nil {
		return err
	}
	return v
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "execution error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("device", "d", "", "device spec, e.g. sawtooth or sawtooth:args (overrides config)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output file (empty for stdout)")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "enable debug output")

	cobra.CheckErr(viper.BindPFlag("device", rootCmd.PersistentFlags().Lookup("device")))
	cobra.CheckErr(viper.BindPFlag("output_file", rootCmd.PersistentFlags().Lookup("output")))
	cobra.CheckErr(viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")))
}

func initConfig() {
	if err := config.Init(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
}
