package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFlags(t *testing.T) {
	c := newCLI()
	cmd := c.command()

	err := cmd.ParseFlags([]string{
		"--elements", "128",
		"--multiple", "3",
		"--addend", "2.5",
		"--enable=false",
		"--runs", "2",
		"--device", "1",
		"--log-level", "warn",
	})
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	c.cfgFile = writeConfig(t, "")

	cfg, err := c.loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.Kernel.Elements != 128 {
		t.Errorf("Expected 128 elements, got %d", cfg.Kernel.Elements)
	}
	if cfg.Push.Multiple != 3 || cfg.Push.Addend != 2.5 {
		t.Errorf("Unexpected push constants: %+v", cfg.Push)
	}
	if cfg.Push.Enable {
		t.Error("Expected --enable=false to clear push.enable")
	}
	if cfg.Runs != 2 || cfg.Device.Index != 1 || cfg.Logging.Level != "warn" {
		t.Errorf("Unexpected config: %+v", cfg)
	}
}

func TestLoadConfigFileUnderFlags(t *testing.T) {
	c := newCLI()
	cmd := c.command()

	if err := cmd.ParseFlags([]string{"--multiple", "5"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	c.cfgFile = writeConfig(t, `
kernel:
  elements: 256
push:
  multiple: 2
  enable: false
`)

	cfg, err := c.loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Kernel.Elements != 256 {
		t.Errorf("Expected elements from file, got %d", cfg.Kernel.Elements)
	}
	if cfg.Push.Multiple != 5 {
		t.Errorf("Expected flag to override file multiple, got %d", cfg.Push.Multiple)
	}
	if cfg.Push.Enable {
		t.Error("Expected enable=false from file")
	}
}

func TestLoadConfigEnableFlagOverridesFile(t *testing.T) {
	c := newCLI()
	cmd := c.command()

	if err := cmd.ParseFlags([]string{"--enable"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	c.cfgFile = writeConfig(t, "push:\n  enable: false\n")

	cfg, err := c.loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if !cfg.Push.Enable {
		t.Error("Expected --enable to override enable=false from file")
	}
	if !c.v.GetBool("push.enable") {
		t.Error("Expected push.enable to be set in viper")
	}
}

func TestLoadConfigEnableFromFile(t *testing.T) {
	c := newCLI()
	cmd := c.command()

	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	c.cfgFile = writeConfig(t, "push:\n  enable: false\n")

	cfg, err := c.loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Push.Enable {
		t.Error("Expected unset --enable to leave the file value")
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	c := newCLI()
	cmd := c.command()

	if err := cmd.ParseFlags([]string{"--addend", "-1"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	c.cfgFile = writeConfig(t, "")

	if _, err := c.loadConfig(cmd); err == nil {
		t.Fatal("Expected error for negative addend")
	}

	c = newCLI()
	cmd = c.command()
	if err := cmd.ParseFlags([]string{"--addend", "4294967296"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	c.cfgFile = writeConfig(t, "")

	if _, err := c.loadConfig(cmd); err == nil {
		t.Fatal("Expected error for addend of 2^32")
	}
}

func TestDevicesCommandRegistered(t *testing.T) {
	cmd := newRootCmd()
	sub, _, err := cmd.Find([]string{"devices"})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if sub.Name() != "devices" {
		t.Errorf("Expected devices command, got %s", sub.Name())
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  console: false\n"+body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}
