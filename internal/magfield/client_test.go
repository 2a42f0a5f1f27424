package magfield

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModelServer accepts a single connection and answers each request line
// with the next canned response line.
func fakeModelServer(t *testing.T, responses []string, requests chan<- modelRequest) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		sc := bufio.NewScanner(conn)
		for _, resp := range responses {
			if !sc.Scan() {
				return
			}
			var req modelRequest
			if err := json.Unmarshal(sc.Bytes(), &req); err == nil && requests != nil {
				requests <- req
			}
			if _, err := conn.Write(append([]byte(resp), '\n')); err != nil {
				return
			}
		}
	}()

	return ln.Addr().String()
}

func testClient(t *testing.T, addr string) *Client {
	t.Helper()
	c, err := NewClient(ClientOptions{
		Addr:        addr,
		Variant:     VariantT96,
		CoordSystem: 3,
		DialTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClientFindFootpoint(t *testing.T) {
	requests := make(chan modelRequest, 1)
	addr := fakeModelServer(t, []string{
		`{"ok":true,"xfoot":[99.9,64.8,-147.7]}`,
	}, requests)

	c := testClient(t, addr)

	pos := Position{X1: 7.5, X2: 3.0, X3: 2.0, Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	drivers := DriverParameters{Pdyn: 2.0}

	fp, err := c.FindFootpoint(context.Background(), pos, drivers, 100, North)
	require.NoError(t, err)
	assert.Equal(t, &Footpoint{AltKm: 99.9, LatDeg: 64.8, LonDeg: -147.7}, fp)
	assert.True(t, fp.Valid())

	req := <-requests
	assert.Equal(t, "find_foot_point", req.Op)
	assert.Equal(t, 7, req.Kext)
	assert.Equal(t, 3, req.Sysaxes)
	assert.Equal(t, "2024-01-01T00:00:00", req.DateTime)
	assert.Equal(t, 100.0, req.StopAlt)
	assert.Equal(t, 1, req.HemiFlag)
	// The wire map must use the variant's exact key names.
	assert.Equal(t, map[string]float64{"Pdyn": 2.0, "Dst": 0, "ByIMF": 0, "BzIMF": 0}, req.MagInput)
}

func TestClientFindFootpointModelError(t *testing.T) {
	addr := fakeModelServer(t, []string{
		`{"ok":false,"error":"field line did not reach stop altitude"}`,
	}, nil)

	c := testClient(t, addr)

	_, err := c.FindFootpoint(context.Background(), Position{X1: 12}, DriverParameters{}, 100, South)
	require.Error(t, err)

	var merr *ModelError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "find_foot_point", merr.Op)
}

func TestClientTraceFieldLine(t *testing.T) {
	addr := fakeModelServer(t, []string{
		`{"ok":true,"posit":[[7.5,3.0,2.0],[7.0,2.8,1.5],[6.2,2.5,0.9]],"nposit":3,"lm":8.4,"blocal_min":12.5}`,
	}, nil)

	c := testClient(t, addr)

	tr, err := c.TraceFieldLine(context.Background(), Position{X1: 7.5, X2: 3, X3: 2}, DriverParameters{Pdyn: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, tr.NumPoints())
	assert.Equal(t, Point{X: 7.5, Y: 3.0, Z: 2.0}, tr.Points[0])
	assert.Equal(t, 8.4, tr.LShell)
	assert.Equal(t, 12.5, tr.BMin)
}

func TestClientReusesConnection(t *testing.T) {
	addr := fakeModelServer(t, []string{
		`{"ok":true,"xfoot":[100,60,10]}`,
		`{"ok":true,"xfoot":[100,-60,10]}`,
	}, nil)

	c := testClient(t, addr)
	ctx := context.Background()

	_, err := c.FindFootpoint(ctx, Position{X1: 5}, DriverParameters{}, 100, North)
	require.NoError(t, err)
	_, err = c.FindFootpoint(ctx, Position{X1: 5}, DriverParameters{}, 100, South)
	require.NoError(t, err)
}

func TestClientDialFailure(t *testing.T) {
	// Grab a port and close it so nothing is listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := testClient(t, addr)
	_, err = c.FindFootpoint(context.Background(), Position{}, DriverParameters{}, 100, North)
	assert.Error(t, err)
}

func TestNewClientRejectsBadOptions(t *testing.T) {
	_, err := NewClient(ClientOptions{Addr: "", Variant: VariantT96})
	assert.Error(t, err)

	_, err = NewClient(ClientOptions{Addr: "localhost:1", Variant: Variant(42)})
	assert.Error(t, err)
}
