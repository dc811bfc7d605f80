package telemetry

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"

	"go.bug.st/serial"
)

// PortOptions are the line settings of the robot serial link.
type PortOptions struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

// Normalize validates the options and fills in 115200 8N1 for unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o
	if opts.BaudRate <= 0 {
		opts.BaudRate = 115200
	}
	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}
	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	switch p := strings.ToUpper(strings.TrimSpace(opts.Parity)); p {
	case "", "N", "NONE":
		opts.Parity = "N"
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}
	return opts, nil
}

// SerialMode converts the options for serial.Open.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{BaudRate: opts.BaudRate, DataBits: opts.DataBits}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	} else {
		mode.StopBits = serial.OneStopBit
	}
	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	default:
		mode.Parity = serial.NoParity
	}
	return mode, nil
}

// SerialBridge relays a MemoryTable over a line-oriented serial link.
// Each line is "key=value" where value is a number, "true" or "false".
type SerialBridge struct {
	port  io.ReadWriteCloser
	table *MemoryTable

	writeMu sync.Mutex
	closeOnce sync.Once
}

// OpenSerial opens the serial device at path and bridges it to table.
func OpenSerial(path string, opts PortOptions, table *MemoryTable) (*SerialBridge, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	return NewSerialBridge(port, table), nil
}

// NewSerialBridge bridges an already open port.
func NewSerialBridge(port io.ReadWriteCloser, table *MemoryTable) *SerialBridge {
	return &SerialBridge{port: port, table: table}
}

// ParseLine decodes one "key=value" line.
func ParseLine(line string) (Value, error) {
	key, raw, ok := strings.Cut(strings.TrimSpace(line), "=")
	key = strings.TrimSpace(key)
	raw = strings.TrimSpace(raw)
	if !ok || key == "" {
		return Value{}, fmt.Errorf("expected key=value, got %q", line)
	}
	switch strings.ToLower(raw) {
	case "true":
		return BoolValue(key, true), nil
	case "false":
		return BoolValue(key, false), nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Value{}, fmt.Errorf("bad value for %s: %w", key, err)
	}
	return NumberValue(key, n), nil
}

// FormatLine encodes v as a newline terminated "key=value" line.
func FormatLine(v Value) string {
	if v.Bool != nil {
		return v.Key + "=" + strconv.FormatBool(*v.Bool) + "\n"
	}
	return v.Key + "=" + strconv.FormatFloat(*v.Number, 'f', -1, 64) + "\n"
}

func (b *SerialBridge) send(v Value) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_, err := io.WriteString(b.port, FormatLine(v))
	return err
}

// Run relays updates until ctx is cancelled or the port fails.
func (b *SerialBridge) Run(ctx context.Context) error {
	id, updates := b.table.Subscribe()
	defer b.table.Unsubscribe(id)

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(b.port)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		err := scanner.Err()
		if err == nil {
			err = io.EOF
		}
		readErr <- err
	}()

	for _, v := range b.table.Snapshot() {
		if err := b.send(v); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			b.Close()
			return ctx.Err()
		case err := <-readErr:
			return fmt.Errorf("serial read failed: %w", err)
		case line := <-lines:
			if strings.TrimSpace(line) == "" {
				continue
			}
			v, err := ParseLine(line)
			if err != nil {
				log.Printf("[telemetry] serial: %v", err)
				continue
			}
			b.table.Set(v, id)
		case v := <-updates:
			if err := b.send(v); err != nil {
				return fmt.Errorf("serial write failed: %w", err)
			}
		}
	}
}

// Close closes the underlying port.
func (b *SerialBridge) Close() error {
	var err error
	b.closeOnce.Do(func() { err = b.port.Close() })
	return err
}
