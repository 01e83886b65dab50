// Command sbecho is a test peer for framed socket clients: it listens
// on one port and echoes every byte straight back, so a client sees
// its own frames return unchanged.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	flag "github.com/spf13/pflag"

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
		fmt.Fprintf(os.Stderr, "sbecho: %v\n", err)
		os.Exit(1)
	}
}

func execute(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sbecho", flag.ContinueOnError)

	udp := fs.BoolP("udp", "u", false, "UDP mode")
	port := fs.IntP("port", "p", 0, "Port to listen on")
	verbose := fs.CountP("verbose", "v", "Increase verbosity (repeatable)")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	if err := fs.Parse(args); err != nil {
		return err
	}
	if showHelp || len(args) == 0 {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Printf("sbecho %s\n", version)
		return nil
	}
	if *port < 1 || *port > 65535 {
		return fmt.Errorf("a listen port is required (-p 1-65535)")
	}

	logger := util.NewLogger(*verbose + 1) // a server should say what it is doing
	addr := util.FormatAddr("", *port)

	if *udp {
		return runUDP(ctx, addr, logger)
	}
	return runTCP(ctx, addr, logger)
}

// runTCP echoes on every accepted connection until the context ends.
func runTCP(ctx context.Context, addr string, logger *util.Logger) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	logger.Info("listening on %s (tcp)", ln.Addr())

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			wg.Wait()
			if ctx.Err() != nil {
				logger.Info("shutting down")
				return nil
			}
			return err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()

			stop := context.AfterFunc(ctx, func() { conn.Close() })
			defer stop()

			logger.Verbose("%s connected", conn.RemoteAddr())
			n, _ := io.Copy(conn, conn)
			logger.Info("%s: echoed %d bytes", conn.RemoteAddr(), n)
		}()
	}
}

// runUDP echoes every datagram back to its sender.
func runUDP(ctx context.Context, addr string, logger *util.Logger) error {
	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, "udp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		pc.Close()
	}()

	logger.Info("listening on %s (udp)", pc.LocalAddr())

	buf := make([]byte, 65535)
	for {
		n, raddr, err := pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("shutting down")
				return nil
			}
			return err
		}
		if _, err := pc.WriteTo(buf[:n], raddr); err != nil {
			logger.Warn("write to %s: %v", raddr, err)
			continue
		}
		logger.Verbose("%s: echoed %d bytes", raddr, n)
	}
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `sbecho – echo server for framed socket clients v%s

Usage:
  sbecho -p <port> [options]                  Echo over TCP
  sbecho -u -p <port> [options]               Echo over UDP

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  sbecho -p 7100                              TCP echo on port 7100
  sbecho -u -p 9200 -v                        UDP echo, chatty
  sbcat localhost 7100                        Talk to it
`)
}
