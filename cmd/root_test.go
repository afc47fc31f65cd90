package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"

	"github.com/mmlabs-mindmaze/eegdev-go/internal/config"
	_ "github.com/mmlabs-mindmaze/eegdev-go/internal/plugins/sawtooth"
)

func resetViperForTest() {
	viper.Reset()
}

func TestRootCmd_HasExpectedFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()

	tests := []struct {
		name      string
		shorthand string
	}{
		{"device", "d"},
		{"output", "o"},
		{"debug", "D"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := flags.Lookup(tt.name)
			if flag == nil {
				t.Errorf("flag %q not found", tt.name)
				return
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("flag %q shorthand = %q, want %q", tt.name, flag.Shorthand, tt.shorthand)
			}
		})
	}
}

func TestRootCmd_Properties(t *testing.T) {
	if rootCmd.Use != "eegdev-acquire" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "eegdev-acquire")
	}
	if rootCmd.Short == "" {
		t.Error("rootCmd.Short is empty")
	}
	if rootCmd.Long == "" {
		t.Error("rootCmd.Long is empty")
	}
}

func TestRootCmd_HelpOutput(t *testing.T) {
	resetViperForTest()

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"--help"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() with --help error = %v", err)
	}

	output := buf.String()
	if !bytes.Contains([]byte(output), []byte("eegdev-acquire")) {
		t.Errorf("help output should contain 'eegdev-acquire'")
	}
	if !bytes.Contains([]byte(output), []byte("--device")) {
		t.Errorf("help output should contain '--device'")
	}
}

func TestInitConfig(t *testing.T) {
	resetViperForTest()

	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	configDir := filepath.Join(tmpDir, ".config", config.AppName)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(config.DefaultConfig), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	initConfig()

	if viper.GetString("device") != "sawtooth" {
		t.Errorf("viper.GetString(device) = %q, want %q", viper.GetString("device"), "sawtooth")
	}
}

func TestBuildGroups(t *testing.T) {
	groups := []config.GroupConfig{
		{SensorType: "eeg", NumCh: 2, DataType: "float32"},
		{SensorType: "trigger", NumCh: 1, DataType: "int32"},
	}

	strides, grpConf, err := buildGroups(groups)
	if err != nil {
		t.Fatalf("buildGroups() error = %v", err)
	}
	if len(strides) != 2 || strides[0] != 8 || strides[1] != 4 {
		t.Errorf("strides = %v, want [8 4]", strides)
	}
	if len(grpConf) != 2 || grpConf[0].ArrayIndex != 0 || grpConf[1].ArrayIndex != 1 {
		t.Errorf("grpConf array indices not assigned per-group: %+v", grpConf)
	}
}

func TestBuildGroups_UnknownDataType(t *testing.T) {
	groups := []config.GroupConfig{
		{SensorType: "eeg", NumCh: 1, DataType: "bogus"},
	}

	if _, _, err := buildGroups(groups); err == nil {
		t.Error("buildGroups() should error on unknown data_type")
	}
}
