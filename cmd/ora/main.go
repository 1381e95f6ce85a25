package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/r9s-ai/open-resource-api/internal/config"
	"github.com/r9s-ai/open-resource-api/internal/server"
	"github.com/r9s-ai/open-resource-api/internal/version"
	"github.com/r9s-ai/open-resource-api/pkg/registry"
)

func main() {
	var cfgPath string
	var signalCmd string
	var testConfig bool
	var showVersion bool
	flag.StringVar(&cfgPath, "config", "ora.yaml", "path to config yaml")
	flag.StringVar(&cfgPath, "c", "ora.yaml", "path to config yaml (alias of --config)")
	flag.StringVar(&signalCmd, "s", "", "send signal to a running ora (supported: reload)")
	flag.BoolVar(&testConfig, "t", false, "test config and type files, then exit")
	flag.BoolVar(&showVersion, "V", false, "show version information")
	flag.Parse()

	if showVersion {
		fmt.Println(version.Get())
		return
	}

	if s := strings.ToLower(strings.TrimSpace(signalCmd)); s != "" {
		if s != "reload" {
			_, _ = fmt.Fprintln(os.Stderr, "unsupported -s value: "+s+" (supported: reload)")
			os.Exit(2)
		}
		if err := sendReloadSignal(cfgPath); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		return
	}

	if testConfig {
		// `ora -t ./ora.yaml`
		if flag.NArg() == 1 && strings.TrimSpace(flag.Arg(0)) != "" {
			cfgPath = strings.TrimSpace(flag.Arg(0))
		}
		if err := runConfigTest(cfgPath); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, "error: "+err.Error())
			os.Exit(1)
		}
		fmt.Println("configuration ok")
		return
	}

	if err := server.Run(cfgPath); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func runConfigTest(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	fmt.Println("ok: config")

	res, err := registry.ValidateTypesDir(cfg.Registry.Dir)
	if err != nil {
		return fmt.Errorf("types: %w", err)
	}
	fmt.Printf("ok: types loaded=%d\n", len(res.LoadedTypes))
	return nil
}

func sendReloadSignal(cfgPath string) error {
	pidFile, err := pidFileFromConfig(cfgPath)
	if err != nil {
		return err
	}
	// #nosec G304 -- pid file path comes from trusted config/env.
	b, err := os.ReadFile(pidFile)
	if err != nil {
		return fmt.Errorf("read pid file %q: %w", pidFile, err)
	}
	pidStr := strings.TrimSpace(string(b))
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return fmt.Errorf("invalid pid in %q: %q", pidFile, pidStr)
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process pid=%d: %w", pid, err)
	}
	if err := p.Signal(syscall.SIGHUP); err != nil {
		return fmt.Errorf("send SIGHUP pid=%d: %w", pid, err)
	}
	return nil
}

// pidFileFromConfig reads only server.pid_file, so a config that fails full
// validation can still be signalled.
func pidFileFromConfig(cfgPath string) (string, error) {
	if v := strings.TrimSpace(os.Getenv("ORA_PID_FILE")); v != "" {
		return v, nil
	}
	path := strings.TrimSpace(cfgPath)
	if path == "" {
		return config.DefaultPidFile, nil
	}
	// #nosec G304 -- config path comes from trusted flag.
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read config %q: %w", path, err)
	}
	var partial struct {
		Server struct {
			PidFile string `yaml:"pid_file"`
		} `yaml:"server"`
	}
	if err := yaml.Unmarshal(b, &partial); err != nil {
		return "", fmt.Errorf("parse config %q: %w", path, err)
	}
	if v := strings.TrimSpace(partial.Server.PidFile); v != "" {
		return v, nil
	}
	return config.DefaultPidFile, nil
}
