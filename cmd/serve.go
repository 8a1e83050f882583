package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/AliTumkaya-new/CarbonCAM/internal/cli"
	"github.com/AliTumkaya-new/CarbonCAM/internal/config"
	"github.com/AliTumkaya-new/CarbonCAM/internal/server"

	"github.com/spf13/cobra"
)

type serverRuntimeState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	DB        string    `json:"db"`
}

var (
	flagServeAddr    string
	flagServeDetach  bool
	flagServePIDFile string
	flagServeLogFile string
	flagServeNoWatch bool
	flagServeChild   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: "Run the HTTP API: calculations, cost estimates, batch files, stored\n" +
		"history, Prometheus metrics and a live event stream.",
	RunE: runServe,
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server process and API status",
	RunE:  runServeStatus,
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running server",
	RunE:  runServeStop,
}

func init() {
	defaultPID := filepath.Join(config.DataDir(), "carboncamd.pid")
	defaultLog := filepath.Join(config.DataDir(), "carboncamd.log")

	serveCmd.PersistentFlags().StringVar(&flagServeAddr, "addr", "", "HTTP listen address (default from config)")
	serveCmd.PersistentFlags().StringVar(&flagServePIDFile, "pid-file", defaultPID, "PID file path")
	serveCmd.PersistentFlags().StringVar(&flagServeLogFile, "log-file", defaultLog, "Log file path for detached mode")

	serveCmd.Flags().BoolVar(&flagServeDetach, "detach", false, "Run the server as a background process")
	serveCmd.Flags().BoolVar(&flagServeNoWatch, "no-watch", false, "Do not reload the config file on change")
	serveCmd.Flags().BoolVar(&flagServeChild, "child", false, "Internal: mark detached child process")
	_ = serveCmd.Flags().MarkHidden("child")

	serveCmd.AddCommand(serveStatusCmd)
	serveCmd.AddCommand(serveStopCmd)
	rootCmd.AddCommand(serveCmd)
}

func serveAddr() string {
	if flagServeAddr != "" {
		return flagServeAddr
	}
	return appCfg.Server.Addr
}

func runServe(_ *cobra.Command, _ []string) error {
	if flagServeDetach && flagServeChild {
		return errors.New("invalid server launch mode")
	}
	if flagServeDetach {
		return startServerDetached()
	}
	return runServerForeground()
}

func startServerDetached() error {
	if err := ensureServerNotRunning(flagServePIDFile); err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	args := filterDetachArg(os.Args[1:])
	args = append(args, "--child")

	if err := os.MkdirAll(filepath.Dir(flagServePIDFile), 0o750); err != nil {
		return fmt.Errorf("create server directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(flagServeLogFile), 0o750); err != nil {
		return fmt.Errorf("create server log directory: %w", err)
	}

	//nolint:gosec // log path is configured by the local user
	logf, err := os.OpenFile(flagServeLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open server log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	cmd := exec.Command(exe, args...) //nolint:gosec // exe/args come from current process invocation
	cmd.Stdout = logf
	cmd.Stderr = logf
	cmd.Stdin = nil
	cmd.Env = os.Environ()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start detached server: %w", err)
	}

	fmt.Printf("  Started server (pid %d)\n", cmd.Process.Pid)
	fmt.Printf("  PID file: %s\n", flagServePIDFile)
	fmt.Printf("  API: http://%s/v1/status\n", serveAddr())
	fmt.Printf("  Log: %s\n", flagServeLogFile)
	return nil
}

func runServerForeground() error {
	if err := ensureServerNotRunning(flagServePIDFile); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(flagServePIDFile), 0o750); err != nil {
		return fmt.Errorf("create server directory: %w", err)
	}

	// The server logs at the configured level, not the CLI's quieter default.
	logger := newLogger(os.Stderr, appCfg.Log, true)
	slog.SetDefault(logger)

	st, err := openStore()
	if err != nil {
		return err
	}
	var srvStore server.Store
	if st != nil {
		defer st.Close()
		srvStore = st
	}
	calc, err := newCalculator(st)
	if err != nil {
		return err
	}

	pid := os.Getpid()
	if err := writePID(flagServePIDFile, pid); err != nil {
		return err
	}
	defer func() { _ = os.Remove(flagServePIDFile) }()

	addr := serveAddr()
	state := serverRuntimeState{
		PID:       pid,
		Addr:      addr,
		StartedAt: time.Now(),
		DB:        config.DBPath(appCfg),
	}
	if flagNoStore {
		state.DB = ""
	}
	_ = writeState(statePath(flagServePIDFile), state)
	defer func() { _ = os.Remove(statePath(flagServePIDFile)) }()

	scfg := server.ConfigFrom(appCfg)
	scfg.Addr = addr
	srv := server.New(scfg, calc, srvStore, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if !flagServeNoWatch {
		path := flagConfig
		if path == "" {
			path = config.Path()
		}
		go func() {
			err := config.Watch(ctx, path, logger, func(cfg config.Config) {
				_ = srv.Reload(applyFlags(cfg))
			})
			if err != nil {
				logger.Warn("config watch disabled", "path", path, "err", err)
			}
		}()
	}

	fmt.Printf("  carboncam API listening on http://%s\n", addr)
	fmt.Printf("  Stop with: carboncam serve stop --pid-file %s\n", flagServePIDFile)

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runServeStatus(_ *cobra.Command, _ []string) error {
	pid, err := readPID(flagServePIDFile)
	if err != nil {
		fmt.Printf("  Server: not running (pid file not found)\n")
		return nil
	}
	if !processAlive(pid) {
		fmt.Printf("  Server: stale pid file (pid %d not alive)\n", pid)
		return nil
	}

	addr := serveAddr()
	if st, err := readState(statePath(flagServePIDFile)); err == nil && st.Addr != "" {
		addr = st.Addr
	}

	fmt.Printf("  Server PID: %d\n", pid)
	fmt.Printf("  Address: http://%s\n", addr)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/v1/status") //nolint:noctx // short status probe
	if err != nil {
		fmt.Printf("  API status: unreachable (%v)\n", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("  API status: HTTP %d\n", resp.StatusCode)
		return nil
	}

	var st server.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		fmt.Printf("  API status: malformed response (%v)\n", err)
		return nil
	}
	if structured() {
		return encode(st)
	}

	fmt.Printf("  Uptime: %s\n", cli.FormatDuration(st.UptimeSec))
	if st.StoreDriver != "" {
		fmt.Printf("  Store: %s\n", st.StoreDriver)
	} else {
		fmt.Printf("  Store: disabled\n")
	}
	fmt.Printf("  Catalog: %d machines, %d materials\n", st.Machines, st.Materials)
	fmt.Printf("  Tariff: %s (%s/%s)\n", st.TariffType, st.Region, st.Currency)
	fmt.Printf("  Calculations served: %d\n", st.Summary.Calculations)
	fmt.Printf("  Energy: %s  Carbon: %s\n", cli.FormatKWh(st.Summary.TotalEnergyKWh), cli.FormatCarbon(st.Summary.TotalCarbonKg))
	if st.ConfigReloads > 0 {
		fmt.Printf("  Config reloads: %d (last %s)\n", st.ConfigReloads, st.LastReloadAt.Local().Format(time.RFC3339))
	}
	if st.LastError != "" {
		fmt.Printf("  Last error: %s\n", st.LastError)
	}
	return nil
}

func runServeStop(_ *cobra.Command, _ []string) error {
	pid, err := readPID(flagServePIDFile)
	if err != nil {
		return errors.New("server is not running")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find server process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal server process: %w", err)
	}

	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			_ = os.Remove(flagServePIDFile)
			_ = os.Remove(statePath(flagServePIDFile))
			fmt.Printf("  Stopped server (pid %d)\n", pid)
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}
	return fmt.Errorf("server (pid %d) did not exit in time", pid)
}

func filterDetachArg(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}

func ensureServerNotRunning(pidFile string) error {
	pid, err := readPID(pidFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if processAlive(pid) {
		return fmt.Errorf("server already running (pid %d)", pid)
	}
	_ = os.Remove(pidFile)
	_ = os.Remove(statePath(pidFile))
	return nil
}

func writePID(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o600)
}

func readPID(path string) (int, error) {
	//nolint:gosec // pid path is configured by the local user
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s", path)
	}
	return pid, nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func statePath(pidFile string) string {
	return pidFile + ".json"
}

func writeState(path string, st serverRuntimeState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func readState(path string) (serverRuntimeState, error) {
	var st serverRuntimeState
	//nolint:gosec // state path is configured by the local user
	data, err := os.ReadFile(path)
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, err
	}
	return st, nil
}
