// Package printer delivers formatted lines to a receipt printer or, when no
// printer is available, to the console.
package printer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/tickets/internal/config"
)

// Sink receives printable output. A job is a sequence of WriteLine calls
// followed by Cut and Flush.
type Sink interface {
	WriteLine(line string) error
	Cut() error
	Flush() error
	Name() string
}

// ConsoleSink writes lines to w. Cut prints a dashed rule of Width columns.
type ConsoleSink struct {
	mu    sync.Mutex
	w     io.Writer
	Width int
}

// NewConsoleSink builds a console sink. A nil writer selects stdout.
func NewConsoleSink(w io.Writer, width int) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleSink{w: w, Width: width}
}

func (c *ConsoleSink) WriteLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.w, line)
	return err
}

func (c *ConsoleSink) Cut() error {
	return c.WriteLine(strings.Repeat("-", c.Width))
}

func (c *ConsoleSink) Flush() error { return nil }

func (c *ConsoleSink) Name() string { return "console" }

// ESC/POS control sequences.
var (
	escInit = []byte{0x1b, 0x40}
	// GS V 66 0: feed to the cutter and partial cut.
	escCut = []byte{0x1d, 0x56, 0x42, 0x00}
)

// Opener returns a writable connection to the printer device.
type Opener func() (io.WriteCloser, error)

// EscPosSink sends raw ESC/POS bytes to a printer device. The device is
// opened on the first write of a job and closed by Flush, which hands the
// job to the printer.
type EscPosSink struct {
	mu     sync.Mutex
	open   Opener
	device string
	conn   io.WriteCloser
	buf    *bufio.Writer
}

// NewEscPosSink builds a sink for device, which is either a filesystem path
// (e.g. /dev/usb/lp0) or tcp://host:port for network printers.
func NewEscPosSink(device string) *EscPosSink {
	return &EscPosSink{open: DeviceOpener(device), device: device}
}

// NewEscPosSinkWithOpener builds a sink over a custom opener.
func NewEscPosSinkWithOpener(name string, open Opener) *EscPosSink {
	return &EscPosSink{open: open, device: name}
}

// DeviceOpener resolves a device string into an Opener.
func DeviceOpener(device string) Opener {
	if addr, ok := strings.CutPrefix(device, "tcp://"); ok {
		return func() (io.WriteCloser, error) {
			return net.DialTimeout("tcp", addr, 5*time.Second)
		}
	}
	return func() (io.WriteCloser, error) {
		return os.OpenFile(device, os.O_WRONLY|os.O_APPEND, 0)
	}
}

func (e *EscPosSink) ensureOpen() error {
	if e.conn != nil {
		return nil
	}
	conn, err := e.open()
	if err != nil {
		return fmt.Errorf("open printer %s: %w", e.device, err)
	}
	e.conn = conn
	e.buf = bufio.NewWriter(conn)
	if _, err := e.buf.Write(escInit); err != nil {
		e.reset()
		return fmt.Errorf("init printer: %w", err)
	}
	return nil
}

func (e *EscPosSink) write(p []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureOpen(); err != nil {
		return err
	}
	if _, err := e.buf.Write(p); err != nil {
		e.reset()
		return fmt.Errorf("write printer: %w", err)
	}
	return nil
}

func (e *EscPosSink) WriteLine(line string) error {
	return e.write([]byte(line + "\n"))
}

func (e *EscPosSink) Cut() error {
	return e.write(escCut)
}

// Flush sends buffered bytes and closes the device. Flushing with no open
// job is a no-op.
func (e *EscPosSink) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn == nil {
		return nil
	}
	err := e.buf.Flush()
	if cerr := e.conn.Close(); err == nil {
		err = cerr
	}
	e.conn, e.buf = nil, nil
	if err != nil {
		return fmt.Errorf("flush printer: %w", err)
	}
	return nil
}

func (e *EscPosSink) Name() string { return "escpos:" + e.device }

func (e *EscPosSink) reset() {
	if e.conn != nil {
		_ = e.conn.Close()
	}
	e.conn, e.buf = nil, nil
}

// FallbackSink writes to Primary until it fails. The current job is
// recorded so that a failure at any point, including Flush, replays the
// whole job to Fallback; the rest of the job then goes straight to
// Fallback. Flush ends the job and re-arms Primary. OnFailure, if set, is
// called for every primary failure.
type FallbackSink struct {
	Primary   Sink
	Fallback  Sink
	Logger    *zap.Logger
	OnFailure func(op string, err error)

	mu       sync.Mutex
	degraded bool
	job      []jobEntry
}

// jobEntry is one recorded line, or a cut when cut is set.
type jobEntry struct {
	line string
	cut  bool
}

func (f *FallbackSink) WriteLine(line string) error {
	return f.do("write", jobEntry{line: line}, func(s Sink) error { return s.WriteLine(line) })
}

func (f *FallbackSink) Cut() error {
	return f.do("cut", jobEntry{cut: true}, Sink.Cut)
}

func (f *FallbackSink) do(op string, entry jobEntry, apply func(Sink) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.job = append(f.job, entry)
	if f.degraded {
		return apply(f.Fallback)
	}
	if err := apply(f.Primary); err != nil {
		f.failed(op, err)
		return f.replay()
	}
	return nil
}

func (f *FallbackSink) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var replayErr error
	if err := f.Primary.Flush(); err != nil && !f.degraded {
		f.failed("flush", err)
		replayErr = f.replay()
	}
	f.degraded = false
	f.job = nil
	return errors.Join(replayErr, f.Fallback.Flush())
}

func (f *FallbackSink) Name() string { return f.Primary.Name() }

// replay sends every recorded entry of the current job to Fallback. Must be
// called with mu held.
func (f *FallbackSink) replay() error {
	var errs []error
	for _, e := range f.job {
		if e.cut {
			errs = append(errs, f.Fallback.Cut())
			continue
		}
		errs = append(errs, f.Fallback.WriteLine(e.line))
	}
	return errors.Join(errs...)
}

// failed must be called with mu held.
func (f *FallbackSink) failed(op string, err error) {
	f.degraded = true
	if f.Logger != nil {
		f.Logger.Error("printer "+op+" failed",
			zap.String("sink", f.Primary.Name()),
			zap.Error(err))
	}
	if f.OnFailure != nil {
		f.OnFailure(op, err)
	}
}

// New selects the sink once at startup: the console when printing is
// disabled or no device is configured, otherwise the ESC/POS device with
// the console as fallback.
func New(cfg config.PrinterConfig, logger *zap.Logger, console *ConsoleSink) Sink {
	if console == nil {
		console = NewConsoleSink(nil, cfg.Columns)
	}
	if cfg.Disabled {
		logger.Info("NO_PRINTER enabled, console output only")
		return console
	}
	if strings.TrimSpace(cfg.Device) == "" {
		logger.Warn("no printer device configured, console output only", zap.String("printer", cfg.Name))
		return console
	}
	logger.Info("printer initialised", zap.String("printer", cfg.Name), zap.String("device", cfg.Device))
	return &FallbackSink{
		Primary:  NewEscPosSink(cfg.Device),
		Fallback: console,
		Logger:   logger,
	}
}
