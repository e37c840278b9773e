package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/felixgeelhaar/outreach/internal/app"
	"github.com/felixgeelhaar/outreach/internal/config"
	"github.com/felixgeelhaar/outreach/internal/guard"
)

// Version is set at build time via ldflags
var Version = "dev"

const pidFile = "outreachd.pid"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "login":
		err = cmdLogin(ctx, os.Args[2:])
	case "logout":
		err = cmdLogout(ctx)
	case "register":
		err = cmdRegister(ctx)
	case "profile":
		err = cmdProfile(ctx, os.Args[2:])
	case "password":
		err = cmdPassword(ctx)
	case "status":
		err = cmdStatus()
	case "admins":
		err = cmdAdmins(ctx)
	case "videos":
		err = cmdVideos(ctx, os.Args[2:])
	case "donations":
		err = cmdDonations(ctx, os.Args[2:])
	case "donate":
		err = cmdDonate(ctx, os.Args[2:])
	case "console":
		err = cmdConsole(os.Args[2:])
	case "config":
		err = cmdConfig()
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("outreach %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Outreach - Admin console for the nonprofit outreach platform

Usage:
  outreach <command> [arguments]

Session Commands:
  login [email]     Log in as an admin
  logout            End the current session
  register          Create an admin account
  status            Show session and console status

Account Commands:
  profile           Show your profile
  profile edit      Edit your profile
  password          Change your password
  admins            List admin accounts

Content Commands:
  videos list       List videos (--page, --limit, --category, --search)
  videos show <id>  Show a video
  videos upload     Upload a video file (--title, --description, --category)
  videos delete     Delete a video
  videos url <id>   Print the stream URL for a video

Donation Commands:
  donations         List donations (--page, --limit, --status)
  donations stats   Show donation totals
  donations show    Show a donation
  donate            Start a donation (--amount, --name, --email, --type)

Console Commands:
  console start     Start the console daemon
  console stop      Stop the console daemon
  console status    Show console daemon status
  console logs      View console daemon logs

Other:
  config            Show current configuration
  help              Show this help message
  version           Show version information

Examples:
  outreach login admin@example.org
  outreach videos list --category medical
  outreach donate --amount 25 --name "Ada" --email ada@example.org
  outreach console start`)
}

// cliLogger logs to stderr at warn unless OUTREACH_DEBUG is set
func cliLogger() *slog.Logger {
	level := slog.LevelWarn
	if config.Debug() {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openApp loads configuration and restores the persisted session
func openApp() (*app.App, error) {
	dir, err := config.EnsureOutreachDir()
	if err != nil {
		return nil, fmt.Errorf("setup outreach directory: %w", err)
	}

	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := cliLogger()
	slog.SetDefault(logger)

	a, err := app.Open(cfg, dir, logger)
	if err != nil {
		return nil, err
	}
	a.Container.InitializeAuth()
	return a, nil
}

// requireSession applies the route guard to a protected command
func requireSession(a *app.App) error {
	err := guard.New(a.Container, a.Store, slog.Default()).Check()
	if errors.Is(err, guard.ErrNotAuthenticated) {
		return fmt.Errorf("%w (run 'outreach login' first)", err)
	}
	return err
}

// prompter reads answers from stdin
type prompter struct {
	reader *bufio.Reader
}

func newPrompter() *prompter {
	return &prompter{reader: bufio.NewReader(os.Stdin)}
}

// ask prints label and returns the trimmed answer, or def when empty
func (p *prompter) ask(label, def string) (string, error) {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, err := p.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}

// secret reads a value without trimming inner spaces
func (p *prompter) secret(label string) (string, error) {
	fmt.Printf("%s: ", label)
	line, err := p.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
