package gnss

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/rapid-timing/rapid/internal/eventbus"
	"github.com/rapid-timing/rapid/internal/session"
)

// gpsdWatchCommand enables streaming TPV/SKY reports on a gpsd connection.
const gpsdWatchCommand = `?WATCH={"enable":true,"json":true}` + "\n"

// gpsdTPV is the subset of gpsd's "TPV" (time-position-velocity) report
// this client understands.
type gpsdTPV struct {
	Class string   `json:"class"`
	Mode  int      `json:"mode"`
	Time  string   `json:"time"`
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
	Speed *float64 `json:"speed"`
}

// gpsdSatellite is one entry of a "SKY" report's satellite list.
type gpsdSatellite struct {
	Used bool `json:"used"`
}

// gpsdSKY is the subset of gpsd's "SKY" (satellite) report this client
// understands.
type gpsdSKY struct {
	Class      string          `json:"class"`
	Satellites []gpsdSatellite `json:"satellites"`
}

// GPSDSource streams positions from a gpsd daemon's TCP/JSON protocol.
type GPSDSource struct {
	address string

	mode             int
	satellitesInView int
}

// NewGPSDSource targets a gpsd instance listening at address
// ("host:port").
func NewGPSDSource(address string) *GPSDSource {
	return &GPSDSource{address: address}
}

func (g *GPSDSource) modeStatus() string {
	switch g.mode {
	case 2:
		return "2d_fix"
	case 3:
		return "3d_fix"
	default:
		return "no_fix"
	}
}

// Run connects to gpsd, enables streaming, and publishes GnssPosition and
// GnssInformation events for every report received until the connection
// closes or the context is cancelled.
func (g *GPSDSource) Run(ctx context.Context, mctx *eventbus.ModuleCtx) error {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", g.address)
	if err != nil {
		return fmt.Errorf("gnss: dial gpsd: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	if _, err := conn.Write([]byte(gpsdWatchCommand)); err != nil {
		return fmt.Errorf("gnss: enable gpsd watch: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Bytes()
		var probe struct {
			Class string `json:"class"`
		}
		if err := json.Unmarshal(line, &probe); err != nil {
			continue
		}
		switch probe.Class {
		case "TPV":
			var tpv gpsdTPV
			if err := json.Unmarshal(line, &tpv); err != nil {
				continue
			}
			g.mode = tpv.Mode
			g.handleTPV(mctx, tpv)
		case "SKY":
			var sky gpsdSKY
			if err := json.Unmarshal(line, &sky); err != nil {
				continue
			}
			g.satellitesInView = countUsed(sky.Satellites)
			g.publishInformation(mctx)
		}
	}
	return scanner.Err()
}

func (g *GPSDSource) handleTPV(mctx *eventbus.ModuleCtx, tpv gpsdTPV) {
	if tpv.Lat == nil || tpv.Lon == nil || tpv.Speed == nil {
		return
	}
	var clock session.ClockTime
	var date session.Date
	if t, err := time.Parse(time.RFC3339, tpv.Time); err == nil {
		clock = session.ClockTimeFromTime(t)
		date = session.DateFromTime(t)
	}
	fix := session.NewFix(*tpv.Lat, *tpv.Lon, *tpv.Speed, clock, date)
	mctx.Bus.Publish(eventbus.GnssPosition(fix))
	g.publishInformation(mctx)
}

func (g *GPSDSource) publishInformation(mctx *eventbus.ModuleCtx) {
	mctx.Bus.Publish(eventbus.GnssInformation(eventbus.Information{
		SatellitesInView: g.satellitesInView,
		FixQuality:       g.modeStatus(),
	}))
}

func countUsed(sats []gpsdSatellite) int {
	n := 0
	for _, s := range sats {
		if s.Used {
			n++
		}
	}
	return n
}
