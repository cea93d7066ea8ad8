package gnss

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/rapid-timing/rapid/internal/eventbus"
)

// PCAPSource replays NMEA sentences carried as UDP payloads in a recorded
// packet capture, for regression-testing the timing pipeline against a
// real session without a receiver attached. Packets are replayed with
// their original relative timing.
type PCAPSource struct {
	reader *pcapgo.Reader
}

// NewPCAPSource reads a pcap capture from r for replay. The caller is responsible
// for arranging to close the underlying io.Reader if it needs explicit
// cleanup.
func NewPCAPSource(r *bufio.Reader) (*PCAPSource, error) {
	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("gnss: open pcap: %w", err)
	}
	return &PCAPSource{reader: reader}, nil
}

// Run replays every UDP packet in the capture, parsing its payload as
// NMEA sentences and publishing merged fixes, pacing playback to match
// the capture's original inter-packet timing. It returns when the
// capture is exhausted or the context is cancelled.
func (p *PCAPSource) Run(ctx context.Context, mctx *eventbus.ModuleCtx) error {
	source := &SerialSource{}
	var lastCaptured time.Time
	for {
		data, ci, err := p.reader.ReadPacketData()
		if err != nil {
			return err
		}
		if !lastCaptured.IsZero() {
			gap := ci.Timestamp.Sub(lastCaptured)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(gap):
			}
		}
		lastCaptured = ci.Timestamp

		payload := udpPayload(data)
		if payload == nil {
			continue
		}
		scanner := bufio.NewScanner(bytes.NewReader(payload))
		for scanner.Scan() {
			parsed, ok := ParseSentence(scanner.Text())
			if !ok {
				continue
			}
			if fix, ok := source.apply(parsed); ok {
				mctx.Bus.Publish(eventbus.GnssPosition(fix))
			}
		}
	}
}

func udpPayload(data []byte) []byte {
	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.NoCopy)
	udpLayer := packet.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return nil
	}
	udp, ok := udpLayer.(*layers.UDP)
	if !ok {
		return nil
	}
	return udp.Payload
}
