// Command sbcat is an interactive client for framed command sockets.
// Each stdin line is sent as one frame; every received frame is printed
// as "command<TAB>payload".
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/causeless8t/SocketBase/config"
	"github.com/causeless8t/SocketBase/internal/retry"
	"github.com/causeless8t/SocketBase/neterr"
	"github.com/causeless8t/SocketBase/socket"
	"github.com/causeless8t/SocketBase/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X main.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "sbcat: %v\n", err)
		os.Exit(1)
	}
}

// execute parses args and runs one client session.
func execute(ctx context.Context, args []string) error {
	cfg := config.New()
	fs := flag.NewFlagSet("sbcat", flag.ContinueOnError)

	// ── connection ───────────────────────────────────────────────
	udp := fs.BoolP("udp", "u", false, "UDP mode")
	localPort := fs.IntP("local-port", "p", 0, "Local source port (0 = ephemeral)")
	timeoutSec := fs.IntP("timeout", "w", 0, "I/O timeout in seconds (0 = none)")
	retryConnect := fs.BoolP("retry", "r", false, "Retry the initial connect with backoff")

	// ── framing ──────────────────────────────────────────────────
	command := fs.Int32P("command", "c", 1, "Command id for frames sent from stdin")
	hexDump := fs.Bool("hex", false, "Print received payloads as hex")

	// ── configuration ────────────────────────────────────────────
	configFile := fs.String("config", "", "YAML config file")
	linger := fs.Duration("linger", 500*time.Millisecond, "How long to keep receiving after stdin closes")
	stats := fs.Bool("stats", false, "Print connection metrics on exit")

	// ── output ───────────────────────────────────────────────────
	verbose := fs.CountP("verbose", "v", "Increase verbosity (repeatable)")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}
	if showHelp || len(args) == 0 {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Printf("sbcat %s\n", version)
		return nil
	}

	// ── layer the configuration sources ──────────────────────────
	if *configFile != "" {
		if err := config.LoadFile(cfg, *configFile); err != nil {
			return err
		}
	}
	config.LoadFromEnv(cfg)
	if fs.Changed("udp") {
		cfg.UDP = *udp
	}
	if fs.Changed("local-port") {
		cfg.LocalPort = *localPort
	}
	if fs.Changed("timeout") {
		cfg.IOTimeout = time.Duration(*timeoutSec) * time.Second
	}
	if fs.Changed("verbose") {
		cfg.Verbose = *verbose
	}

	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}
	if err := cfg.ValidateEndpoint(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	return run(ctx, cfg, runOptions{
		command: *command,
		hexDump: *hexDump,
		retry:   *retryConnect,
		linger:  *linger,
		stats:   *stats,
	})
}

type runOptions struct {
	command int32
	hexDump bool
	retry   bool
	linger  time.Duration
	stats   bool
}

func run(ctx context.Context, cfg *config.Config, opts runOptions) error {
	logger := util.NewLogger(cfg.Verbose)
	sock := socket.New(cfg, logger)

	connected := make(chan struct{}, 4)
	disconnected := make(chan struct{}, 4)
	sock.OnConnected(func() { connected <- struct{}{} })
	sock.OnDisconnected(func() {
		select {
		case disconnected <- struct{}{}:
		default:
		}
	})
	sock.OnPacket(func(p socket.Packet) { printPacket(p, opts.hexDump) })
	// The library already reports transport errors on the logger; the
	// event hook is only interesting at high verbosity.
	sock.OnSocketError(func(se *neterr.SocketError) {
		logger.Verbose("socket error event: unusable=%v", se.Unusable)
	})

	proto := socket.ProtoTCP
	if cfg.UDP {
		proto = socket.ProtoUDP
	}

	if err := connect(ctx, sock, cfg, proto, connected, opts.retry, logger); err != nil {
		return err
	}
	defer sock.Stop()

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		logger.Info("connected to %s, type lines to send as command %d (Ctrl-D to finish)",
			util.FormatAddr(cfg.Host, cfg.Port), opts.command)
	}

	// Stdin feeds the socket from its own goroutine; the main
	// goroutine waits for whichever ends the session first.
	stdinDone := make(chan struct{})
	go func() {
		defer close(stdinDone)
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if !sock.SendMessage(opts.command, scanner.Bytes()) {
				logger.Warn("frame rejected, connection is down")
				return
			}
		}
		if err := scanner.Err(); err != nil {
			logger.Error("stdin: %v", err)
		}
	}()

	var sessionErr error
	select {
	case <-ctx.Done():
		logger.Verbose("interrupted")
	case <-disconnected:
		sessionErr = fmt.Errorf("connection closed")
	case <-stdinDone:
		// Give in-flight frames and their replies a moment to land.
		select {
		case <-time.After(opts.linger):
		case <-disconnected:
			sessionErr = fmt.Errorf("connection closed")
		case <-ctx.Done():
		}
	}

	sock.Stop()
	if opts.stats {
		fmt.Fprintln(os.Stderr, sock.MetricsJSON())
	}
	return sessionErr
}

// connect establishes the session, optionally retrying with backoff.
// The socket layer never retries on its own, so resilience against a
// slow-starting server lives here in the tool.
func connect(ctx context.Context, sock *socket.CommandSocket, cfg *config.Config, proto socket.Protocol, connected <-chan struct{}, withRetry bool, logger *util.Logger) error {
	attemptOnce := func(attempt int) error {
		if attempt > 1 {
			logger.Info("retrying connect (attempt %d)", attempt)
		}
		if err := sock.Connect(cfg.Host, cfg.Port, proto); err != nil {
			if !neterr.IsRetryable(err) {
				return retry.Permanent(err)
			}
			return err
		}
		if !awaitConnected(ctx, sock, connected, dialWait(cfg)) {
			sock.Stop()
			drainSignals(connected)
			return fmt.Errorf("connect to %s did not complete", util.FormatAddr(cfg.Host, cfg.Port))
		}
		return nil
	}

	if withRetry {
		return retry.ConnectBackoff().Do(ctx, attemptOnce)
	}
	return attemptOnce(1)
}

// awaitConnected waits for the connected notification.  A refused dial
// settles the socket back to disconnected long before the wait bound
// expires; polling for that keeps retry attempts snappy.
func awaitConnected(ctx context.Context, sock *socket.CommandSocket, connected <-chan struct{}, wait time.Duration) bool {
	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-connected:
			return true
		case <-tick.C:
			if sock.IsConnected() || sock.Connecting() {
				continue
			}
			// The attempt settled; take the token if one raced in.
			select {
			case <-connected:
				return true
			default:
				return false
			}
		case <-deadline.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

// drainSignals clears tokens left by a lifecycle that connected after
// the tool stopped waiting for it, so the next attempt starts clean.
func drainSignals(ch <-chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

// dialWait bounds how long the tool waits for the asynchronous connect
// to settle.  Resolution and dialing each run under the I/O timeout,
// so the bound leaves room for both plus scheduling slack.
func dialWait(cfg *config.Config) time.Duration {
	if cfg.IOTimeout <= 0 {
		return 30 * time.Second
	}
	return 2*cfg.IOTimeout + time.Second
}

func printPacket(p socket.Packet, hexDump bool) {
	if hexDump {
		fmt.Printf("%d\t%s\n", p.Command, util.HexPreview(p.Payload, len(p.Payload)))
		return
	}
	fmt.Printf("%d\t%s\n", p.Command, p.Payload)
}

// ── helpers ──────────────────────────────────────────────────────────

func parsePositional(cfg *config.Config, remaining []string) error {
	if len(remaining) < 1 {
		return fmt.Errorf("hostname required (use --help for usage)")
	}
	if len(remaining) < 2 {
		return fmt.Errorf("port required")
	}
	if len(remaining) > 2 {
		return fmt.Errorf("too many arguments")
	}

	cfg.Host = remaining[0]
	port, err := parsePort(remaining[1])
	if err != nil {
		return err
	}
	cfg.Port = port
	return nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %q: must be a number in 1-65535", s)
	}
	return port, nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `sbcat – framed socket client v%s

Sends each stdin line as a command frame and prints received frames.

Usage:
  sbcat [options] <host> <port>               Connect over TCP
  sbcat -u [options] <host> <port>            Connect over UDP

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Environment:
  SOCKETBASE_* variables override config file values; flags override both.

Examples:
  sbcat game.example.com 7100                 Interactive TCP session
  sbcat -u -c 12 telemetry.example.com 9200   UDP frames under command 12
  echo "ping" | sbcat -r --stats host 7100    Pipe one frame, retry connect
  sbcat --config client.yaml host 7100        Tuneables from YAML
`)
}
