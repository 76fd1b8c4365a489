package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/mastercactapus/xytable/command"
	"github.com/mastercactapus/xytable/coord"
	"github.com/mastercactapus/xytable/machine"
	"github.com/mastercactapus/xytable/machine/mach4"
	"github.com/mastercactapus/xytable/monitor"
	"github.com/mastercactapus/xytable/session"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Str("app", "xytable").Logger()

	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Err(err).Msg("load .env")
	}

	cfg, err := parseArgs(os.Args[1:], os.Getenv)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("configure")
	}

	errFile, err := os.OpenFile(cfg.ErrorLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.ErrorLog).Msg("open error log")
	}
	defer errFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = run(ctx, cfg, logger, newErrorRecord(errFile))
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("session ended")
		os.Exit(1)
	}
	logger.Info().Msg("session ended")
}

// newErrorRecord returns the logger backing the persistent error record.
func newErrorRecord(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: "[01-02-06 03:04:05 PM]",
	}).With().Timestamp().Logger()
}

// connect opens the controller link, offering to launch the controller GUI
// once the link is ready to be dialed.
func connect(ctx context.Context, cfg session.Config, in *bufio.Reader, logger, errs zerolog.Logger) (machine.Adapter, error) {
	if cfg.SerialPort != "" {
		if promptLaunch(in, os.Stdout) {
			launch(cfg.Launch, errs)
		}
		logger.Info().Str("port", cfg.SerialPort).Int("baud", cfg.Baud).Msg("opening serial port")
		return mach4.OpenSerial(cfg.SerialPort, cfg.Baud, cfg.ConnOptions())
	}

	l, err := mach4.Listen(cfg.Listen, cfg.ConnOptions())
	if err != nil {
		return nil, err
	}
	defer l.Close()
	logger.Info().Str("addr", l.Addr().String()).Msg("listening")

	if promptLaunch(in, os.Stdout) {
		n := launch(cfg.Launch, errs)
		logger.Info().Int("started", n).Msg("launch")
	}

	c, err := l.Accept(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info().Msg("controller connected")
	return c, nil
}

func run(ctx context.Context, cfg session.Config, logger, errs zerolog.Logger) error {
	in := bufio.NewReader(os.Stdin)

	adapter, err := connect(ctx, cfg, in, logger, errs)
	if err != nil {
		return err
	}
	defer adapter.Close()

	displays := session.Displays{session.NewConsole(os.Stdout)}
	var plotter command.Plotter = command.PlotFunc(func(name string, pts []coord.Point) error {
		var b coord.Bounds
		for _, p := range pts {
			b.Extend(p)
		}
		_, err := fmt.Fprintf(os.Stdout, "%s: X[%g, %g] Y[%g, %g]\n", name, b.Min.X, b.Max.X, b.Min.Y, b.Max.Y)
		return err
	})

	if cfg.Monitor != "" {
		mon := monitor.NewServer(cfg.DataDir, logger)
		defer mon.Close()
		srv := &http.Server{Addr: cfg.Monitor, Handler: mon}
		go func() {
			logger.Info().Str("addr", cfg.Monitor).Msg("serving monitor")
			err := srv.ListenAndServe()
			if err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("monitor")
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(sctx)
		}()
		displays = append(displays, mon)
		plotter = mon
	}

	e := &session.Engine{
		Adapter:     adapter,
		Interpreter: cfg.NewInterpreter(plotter),
		State:       cfg.NewState(),
		Display:     displays,
		Input:       in,
		Errors:      errs,
		Strict:      cfg.StrictTelemetry,
	}

	errc := make(chan error, 1)
	go func() { errc <- e.Run(ctx) }()

	// operator input cannot be interrupted, so don't wait on the engine
	// once canceled
	select {
	case err = <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
