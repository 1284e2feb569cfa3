// Command vismatch enrolls reference images and recognizes a query image.
//
//	vismatch enroll-and-query [flags] <reference>... <query>
//	vismatch features [flags] <image>
//
// Reference images get ids 0, 1, 2, ... in argument order. Supported formats
// are PNG, JPEG, GIF, BMP, TIFF and WebP.
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
)

var errUsage = errors.New("usage")

type globalFlags struct {
	ConfigPath string
	JSON       bool
	Metrics    bool
	DiagDir    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "vismatch: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stderr)
		return errUsage
	}

	cmd, rest := args[0], args[1:]

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var g globalFlags
	fs.StringVar(&g.ConfigPath, "config", "", "YAML configuration file")
	fs.BoolVar(&g.JSON, "json", false, "print results as JSON")
	fs.BoolVar(&g.Metrics, "metrics", false, "export OpenTelemetry metrics to stderr on exit")
	fs.StringVar(&g.DiagDir, "diag", "", "write enrolled refsets to this directory")

	if err := fs.Parse(rest); err != nil {
		return errUsage
	}

	switch cmd {
	case "enroll-and-query":
		if fs.NArg() < 2 {
			usage(stderr)
			return errUsage
		}
		return enrollAndQuery(ctx, g, fs.Args(), stdout, stderr)
	case "features":
		if fs.NArg() != 1 {
			usage(stderr)
			return errUsage
		}
		return features(ctx, g, fs.Arg(0), stdout, stderr)
	case "help", "-h", "--help":
		usage(stdout)
		return nil
	default:
		usage(stderr)
		return errUsage
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `Usage:
  vismatch enroll-and-query [flags] <reference>... <query>
  vismatch features [flags] <image>

Flags:
  -config string   YAML configuration file (VISMATCH_* env vars override it)
  -json            print results as JSON
  -metrics         export OpenTelemetry metrics to stderr on exit
  -diag string     write enrolled refsets to this directory
`)
}
