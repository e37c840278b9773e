package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/felixgeelhaar/outreach/internal/config"
)

// cmdConsole manages the console daemon
func cmdConsole(args []string) error {
	if len(args) < 1 {
		fmt.Println(`Console commands:

  outreach console start    Start the console daemon
  outreach console stop     Stop the console daemon
  outreach console status   Show console daemon status
  outreach console logs     View console daemon logs`)
		return nil
	}

	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	addr := consoleAddr(cfg)

	switch args[0] {
	case "start":
		return cmdConsoleStart(addr)
	case "stop":
		return cmdConsoleStop(addr)
	case "status":
		return cmdConsoleStatus(addr)
	case "logs":
		return cmdConsoleLogs()
	default:
		return fmt.Errorf("unknown console command: %s", args[0])
	}
}

func consoleAddr(cfg *config.LocalConfig) string {
	return "http://" + cfg.Console.Addr()
}

// cmdConsoleStart starts the daemon in the background
func cmdConsoleStart(addr string) error {
	if isRunning(addr) {
		fmt.Println("✓ Console is already running")
		return nil
	}

	outreachDir, err := config.EnsureOutreachDir()
	if err != nil {
		return fmt.Errorf("setup outreach directory: %w", err)
	}

	daemonPath, err := findDaemonBinary()
	if err != nil {
		return fmt.Errorf("find daemon binary: %w", err)
	}

	cmd := exec.Command(daemonPath)
	cmd.Dir = outreachDir
	cmd.Stdout = nil
	cmd.Stderr = nil

	// Detach from parent process (platform-specific)
	configureDaemonProcess(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	fmt.Print("Starting console...")
	for i := 0; i < 30; i++ {
		time.Sleep(100 * time.Millisecond)
		if isRunning(addr) {
			fmt.Println(" ✓")
			fmt.Printf("Console running at %s/admin/login\n", addr)
			return nil
		}
		fmt.Print(".")
	}

	fmt.Println(" ✗")
	return fmt.Errorf("console failed to start (check logs with 'outreach console logs')")
}

// cmdConsoleStop stops the daemon
func cmdConsoleStop(addr string) error {
	if !isRunning(addr) {
		fmt.Println("Console is not running")
		return nil
	}

	outreachDir, err := config.OutreachDir()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(filepath.Join(outreachDir, pidFile))
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("parse PID: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process: %w", err)
	}

	fmt.Print("Stopping console...")
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("send signal: %w", err)
	}

	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		if !isRunning(addr) {
			fmt.Println(" ✓")
			return nil
		}
		fmt.Print(".")
	}

	fmt.Println(" ✗")
	return fmt.Errorf("console did not stop gracefully")
}

// cmdConsoleStatus shows what the running console sees
func cmdConsoleStatus(addr string) error {
	if !isRunning(addr) {
		fmt.Println("Status: stopped")
		return nil
	}

	resp, err := http.Get(addr + "/v1/session")
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}
	defer resp.Body.Close()

	var status struct {
		Version   string `json:"version"`
		Uptime    string `json:"uptime"`
		Persisted bool   `json:"persisted"`
		InSync    bool   `json:"in_sync"`
		Decision  string `json:"decision"`
		State     struct {
			User *struct {
				Name  string `json:"name"`
				Email string `json:"email"`
			} `json:"user"`
			IsAuthenticated bool   `json:"isAuthenticated"`
			Error           string `json:"error"`
		} `json:"state"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("parse status: %w", err)
	}

	user := "not logged in"
	if status.State.User != nil {
		user = fmt.Sprintf("%s <%s>", status.State.User.Name, status.State.User.Email)
	}

	fmt.Printf("Status:    running\n")
	fmt.Printf("Version:   %s\n", status.Version)
	fmt.Printf("Uptime:    %s\n", status.Uptime)
	fmt.Printf("User:      %s\n", user)
	fmt.Printf("Access:    %s\n", status.Decision)
	fmt.Printf("In sync:   %t\n", status.InSync)
	if status.State.Error != "" {
		fmt.Printf("Error:     %s\n", status.State.Error)
	}
	fmt.Printf("Address:   %s\n", addr)

	return nil
}

// cmdConsoleLogs shows the tail of the daemon log
func cmdConsoleLogs() error {
	outreachDir, err := config.OutreachDir()
	if err != nil {
		return err
	}

	logPath := filepath.Join(outreachDir, "logs", "outreachd.log")

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Println("No log file found. Start the console first.")
		return nil
	}

	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	return tailLog(os.Stdout, file, 4096)
}

// tailLog copies the complete lines within the last window bytes of file
func tailLog(w io.Writer, file *os.File, window int64) error {
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat log file: %w", err)
	}
	offset := info.Size() - window
	if offset < 0 {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReader(file)
	// Skip partial first line if we seeked
	if offset > 0 {
		_, _ = reader.ReadString('\n')
	}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		fmt.Fprintln(w, scanner.Text())
	}
	return scanner.Err()
}

// isRunning checks the console health endpoint
func isRunning(addr string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(addr + "/v1/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// findDaemonBinary locates the outreachd binary
func findDaemonBinary() (string, error) {
	if path, err := exec.LookPath("outreachd"); err == nil {
		return path, nil
	}

	// Check relative to this binary
	self, err := os.Executable()
	if err == nil {
		path := filepath.Join(filepath.Dir(self), "outreachd")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	locations := []string{
		"/usr/local/bin/outreachd",
		"./outreachd",
		"./cmd/outreachd/outreachd",
	}

	for _, path := range locations {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("outreachd binary not found (build with 'go build ./cmd/outreachd')")
}
