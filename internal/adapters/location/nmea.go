package location

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	"go.bug.st/serial"

	"github.com/okian/jacktrack/internal/domain/model"
	"github.com/okian/jacktrack/pkg/logger"
)

// uereM approximates user equivalent range error in meters; accuracy is
// HDOP times this value.
const uereM = 5.0

// Opener opens the GPS byte stream.
type Opener func(port string, baud int) (io.ReadCloser, error)

// NMEASource reads NMEA 0183 sentences from a GPS receiver on a serial port
// and emits a fix for every valid RMC or GGA sentence.
type NMEASource struct {
	port   string
	baud   int
	open   Opener
	logger logger.Logger
	now    func() time.Time
}

// NMEAOption configures an NMEASource.
type NMEAOption func(*NMEASource)

// WithOpener replaces the serial port opener.
func WithOpener(o Opener) NMEAOption {
	return func(s *NMEASource) {
		if o != nil {
			s.open = o
		}
	}
}

// WithNMEALogger sets a custom logger.
func WithNMEALogger(l logger.Logger) NMEAOption {
	return func(s *NMEASource) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewNMEASource creates a source reading port at baud.
func NewNMEASource(port string, baud int, opts ...NMEAOption) *NMEASource {
	s := &NMEASource{
		port:   port,
		baud:   baud,
		open:   openSerial,
		logger: logger.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func openSerial(port string, baud int) (io.ReadCloser, error) {
	p, err := serial.Open(port, &serial.Mode{BaudRate: baud})
	if err != nil {
		var pe *serial.PortError
		if errors.As(err, &pe) && pe.Code() == serial.PermissionDenied {
			return nil, fmt.Errorf("%s: %w", port, ErrPermissionDenied)
		}
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%s: %w", port, ErrPermissionDenied)
		}
		return nil, fmt.Errorf("open %s: %w", port, err)
	}
	return p, nil
}

// Ports lists serial ports that may carry a GPS receiver.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

// Stream opens the port and emits fixes until ctx is done or the port
// reaches EOF.
func (s *NMEASource) Stream(ctx context.Context) (<-chan model.Fix, error) {
	rc, err := s.open(s.port, s.baud)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "gps port opened", logger.String("port", s.port), logger.Int("baud", s.baud))

	out := make(chan model.Fix)
	go func() {
		<-ctx.Done()
		_ = rc.Close()
	}()
	go func() {
		defer close(out)
		sc := bufio.NewScanner(rc)
		for sc.Scan() {
			fix, ok, err := ParseSentence(sc.Text(), s.now())
			if err != nil {
				s.logger.Debug(ctx, "nmea sentence skipped", logger.Error(err))
				continue
			}
			if !ok {
				continue
			}
			select {
			case out <- fix:
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil && ctx.Err() == nil {
			s.logger.Warn(ctx, "gps read failed", logger.Error(err))
		}
	}()
	return out, nil
}

// ParseSentence decodes one NMEA line. ok is false for sentences that
// carry no usable position (other types, void RMC, GGA without a fix).
func ParseSentence(line string, at time.Time) (model.Fix, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return model.Fix{}, false, nil
	}
	sentence, err := nmea.Parse(line)
	if err != nil {
		return model.Fix{}, false, fmt.Errorf("parse nmea: %w", err)
	}
	switch v := sentence.(type) {
	case nmea.RMC:
		if v.Validity != nmea.ValidRMC {
			return model.Fix{}, false, nil
		}
		return model.Fix{
			Position: model.Coordinate{Latitude: v.Latitude, Longitude: v.Longitude},
			At:       at,
		}, true, nil
	case nmea.GGA:
		if v.FixQuality == nmea.Invalid {
			return model.Fix{}, false, nil
		}
		return model.Fix{
			Position:  model.Coordinate{Latitude: v.Latitude, Longitude: v.Longitude},
			AccuracyM: v.HDOP * uereM,
			At:        at,
		}, true, nil
	default:
		return model.Fix{}, false, nil
	}
}
