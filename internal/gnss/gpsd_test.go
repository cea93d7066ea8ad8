package gnss_test

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapid-timing/rapid/internal/eventbus"
	"github.com/rapid-timing/rapid/internal/gnss"
	"github.com/rapid-timing/rapid/internal/session"
)

func TestGPSDSourcePublishesPositionAndInformation(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		reader := bufio.NewReader(conn)
		_, _ = reader.ReadString('\n') // the ?WATCH command
		conn.Write([]byte(`{"class":"TPV","mode":3,"time":"2026-08-01T12:00:00.000Z","lat":48.1,"lon":11.5,"speed":12.3}` + "\n"))
		conn.Write([]byte(`{"class":"SKY","satellites":[{"used":true},{"used":false},{"used":true}]}` + "\n"))
	}()

	bus := eventbus.New()
	sub := bus.Subscribe()
	source := gnss.NewGPSDSource(listener.Addr().String())

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go source.Run(runCtx, bus.Context())

	ctx, c2 := context.WithTimeout(context.Background(), time.Second)
	defer c2()

	e, _, err := sub.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, eventbus.KindGnssPosition, e.Kind)
	fix, ok := eventbus.Payload[session.Fix](e)
	require.True(t, ok)
	assert.InDelta(t, 48.1, fix.Latitude(), 1e-9)
	assert.InDelta(t, 12.3, fix.Velocity(), 1e-9)

	e, _, err = sub.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, eventbus.KindGnssInformation, e.Kind)
	info, ok := eventbus.Payload[eventbus.Information](e)
	require.True(t, ok)
	assert.Equal(t, "3d_fix", info.FixQuality)

	e, _, err = sub.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, eventbus.KindGnssInformation, e.Kind)
	info, ok = eventbus.Payload[eventbus.Information](e)
	require.True(t, ok)
	assert.Equal(t, 2, info.SatellitesInView)

	<-serverDone
}
