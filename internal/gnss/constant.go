package gnss

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/rapid-timing/rapid/internal/eventbus"
	"github.com/rapid-timing/rapid/internal/session"
)

// PositionInterval is the tick period between published fixes, matching
// the original constant source's 100ms cadence.
const PositionInterval = 100 * time.Millisecond

// ConstantSource replays a fixed polyline of positions at a constant
// velocity, looping back to the start once the last point is reached.
// It exists for bench-testing the timing pipeline without a live
// receiver attached.
type ConstantSource struct {
	points   []session.Position
	velocity float64
	interval time.Duration

	current int
	traveled float64
}

// NewConstantSource builds a source that will replay positions along the
// given polyline at the given velocity (meters per second). At least two
// points are required so a direction of travel exists.
func NewConstantSource(points []session.Position, velocityMPS float64) (*ConstantSource, error) {
	if len(points) < 2 {
		return nil, errors.New("gnss: constant source needs at least two points")
	}
	return &ConstantSource{points: points, velocity: velocityMPS, interval: PositionInterval}, nil
}

// LoadPolylineCSV reads a fake-GNSS track log: one "longitude,latitude"
// pair per line, no header, matching the CSV fake generator's format.
func LoadPolylineCSV(path string) ([]session.Position, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gnss: open track csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	var points []session.Position
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gnss: parse track csv: %w", err)
		}
		lon, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, fmt.Errorf("gnss: parse longitude %q: %w", record[0], err)
		}
		lat, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("gnss: parse latitude %q: %w", record[1], err)
		}
		points = append(points, session.Position{Latitude: lat, Longitude: lon})
	}
	if len(points) < 2 {
		return nil, errors.New("gnss: track csv needs at least two points")
	}
	return points, nil
}

// currentPosition interpolates along the segment [current, current+1] by
// the distance traveled so far on that segment.
func (c *ConstantSource) currentPosition() session.Position {
	from := c.points[c.current]
	to := c.points[(c.current+1)%len(c.points)]
	segment := segmentLength(from, to)
	if segment == 0 {
		return from
	}
	frac := c.traveled / segment
	if frac > 1 {
		frac = 1
	}
	return session.Position{
		Latitude:  from.Latitude + (to.Latitude-from.Latitude)*frac,
		Longitude: from.Longitude + (to.Longitude-from.Longitude)*frac,
	}
}

func segmentLength(a, b session.Position) float64 {
	const degToRad = 0.01745
	midLat := (a.Latitude + b.Latitude) / 2 * degToRad
	dx := 111300 * math.Cos(midLat) * (a.Longitude - b.Longitude)
	dy := 111300 * (a.Latitude - b.Latitude)
	return math.Sqrt(dx*dx + dy*dy)
}

func (c *ConstantSource) advance() {
	from := c.points[c.current]
	to := c.points[(c.current+1)%len(c.points)]
	segment := segmentLength(from, to)
	step := c.velocity * c.interval.Seconds()
	c.traveled += step
	if c.traveled >= segment {
		c.traveled -= segment
		c.current = (c.current + 1) % len(c.points)
	}
}

// Run publishes GnssPosition events at PositionInterval cadence until the context
// is cancelled.
func (c *ConstantSource) Run(ctx context.Context, mctx *eventbus.ModuleCtx) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			pos := c.currentPosition()
			fix := session.NewFix(pos.Latitude, pos.Longitude, c.velocity,
				session.ClockTimeFromTime(now), session.DateFromTime(now))
			mctx.Bus.Publish(eventbus.GnssPosition(fix))
			c.advance()
		}
	}
}
