package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/horizon/internal/diagclient"
	"github.com/GriffinCanCode/horizon/internal/infrastructure/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("horizonctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", envOr("HORIZON_DIAG_URL", "http://127.0.0.1:8090"), "Diagnostics server URL")
	timeout := fs.Duration("timeout", 5*time.Second, "Per-request timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: horizonctl [flags] health|status|metrics|watch")
		return 2
	}

	c, err := diagclient.New(*addr, diagclient.WithTimeout(*timeout))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "health":
		err = c.Health(ctx)
		if err == nil {
			fmt.Fprintln(stdout, "ok")
		}
	case "status":
		var st *server.StatusResponse
		if st, err = c.Status(ctx); err == nil {
			err = printJSON(stdout, st, true)
		}
	case "metrics":
		var text string
		if text, err = c.Metrics(ctx); err == nil {
			_, err = io.WriteString(stdout, text)
		}
	case "watch":
		wfs := flag.NewFlagSet("watch", flag.ContinueOnError)
		wfs.SetOutput(stderr)
		n := wfs.Int("n", 0, "Stop after n frames (0 = until interrupted)")
		if err := wfs.Parse(rest); err != nil {
			return 2
		}
		err = c.Watch(ctx, *n, func(st *server.StatusResponse) error {
			return printJSON(stdout, st, false)
		})
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		return 2
	}

	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func printJSON(w io.Writer, v any, indent bool) error {
	var (
		data []byte
		err  error
	)
	if indent {
		data, err = sonic.MarshalIndent(v, "", "  ")
	} else {
		data, err = sonic.Marshal(v)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
