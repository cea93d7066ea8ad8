package gnss

import (
	"bufio"
	"io"
	"log"

	"go.bug.st/serial"

	"github.com/rapid-timing/rapid/internal/eventbus"
	"github.com/rapid-timing/rapid/internal/session"
	"github.com/rapid-timing/rapid/internal/units"
)

// Port is the minimal interface SerialSource needs from a serial port,
// matching serialmux's SerialPorter abstraction so a fake can stand in
// for the real go.bug.st/serial.Port during tests.
type Port interface {
	io.ReadWriteCloser
}

// DefaultBaudRate is the baud rate most NMEA-speaking GNSS receivers use.
const DefaultBaudRate = 4800

// OpenSerialPort opens a real serial port for NMEA ingestion.
func OpenSerialPort(path string, baudRate int) (Port, error) {
	return serial.Open(path, &serial.Mode{BaudRate: baudRate})
}

// SerialSource reads NMEA sentences line by line from a Port, merges
// consecutive GGA/RMC sentences describing the same fix, and publishes a
// GnssPosition event once both a position and a velocity are known.
type SerialSource struct {
	port Port

	havePosition bool
	lastPosition session.Position
	haveVelocity bool
	lastVelocity float64
}

// NewSerialSource wraps an already-open port.
func NewSerialSource(port Port) *SerialSource {
	return &SerialSource{port: port}
}

func (s *SerialSource) apply(fix NMEAFix) (session.Fix, bool) {
	if fix.HasPosition {
		s.lastPosition = session.Position{Latitude: fix.Latitude, Longitude: fix.Longitude}
		s.havePosition = true
	}
	if fix.HasVelocity {
		s.lastVelocity = units.ConvertToMPS(fix.VelocityKnots, units.KNOTS)
		s.haveVelocity = true
	}
	if !s.havePosition || !s.haveVelocity {
		return session.Fix{}, false
	}
	var clock session.ClockTime
	var date session.Date
	if fix.HasTime {
		clock = session.ClockTimeFromTime(fix.Time)
		date = session.DateFromTime(fix.Time)
	}
	return session.NewFix(s.lastPosition.Latitude, s.lastPosition.Longitude, s.lastVelocity, clock, date), true
}

// Run reads lines from the port until it returns an error (including the
// port being closed by the caller on context cancellation) and publishes
// a GnssPosition event for every merged fix.
func (s *SerialSource) Run(mctx *eventbus.ModuleCtx) {
	scanner := bufio.NewScanner(s.port)
	for scanner.Scan() {
		parsed, ok := ParseSentence(scanner.Text())
		if !ok {
			continue
		}
		if fix, ok := s.apply(parsed); ok {
			mctx.Bus.Publish(eventbus.GnssPosition(fix))
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("gnss: serial source stopped: %v", err)
	}
}
