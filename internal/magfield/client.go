package magfield

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"
)

// ModelError is a failure reported by the model server itself, as opposed to
// a transport failure reaching it. The classifier treats both the same way
// (absorbed per hemisphere), but logs distinguish them.
type ModelError struct {
	Op  string
	Msg string
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model %s: %s", e.Op, e.Msg)
}

// ClientOptions configure the connection to the model server. Variant and
// CoordSystem are fixed for the lifetime of the client and stamped onto
// every request; the server never has to guess which field model a caller
// meant.
type ClientOptions struct {
	Addr        string        // host:port of the model server
	Variant     Variant       // external-field model selector
	CoordSystem int           // input coordinate system selector (3 = GSM)
	Verbose     bool          // ask the server for verbose diagnostics
	DialTimeout time.Duration // timeout for establishing the connection
}

// Client is a long-lived handle to the external model server. The protocol
// is one JSON object per line in each direction, one request in flight at a
// time. The connection is dialed lazily on first use and redialed after any
// transport error.
type Client struct {
	opts ClientOptions

	mu   sync.Mutex
	conn net.Conn
	r    *bufio.Reader
}

// NewClient validates the options and returns an unconnected client.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("model server address must not be empty")
	}
	if _, err := ParseVariant(int(opts.Variant)); err != nil {
		return nil, err
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 10 * time.Second
	}
	return &Client{opts: opts}, nil
}

// Variant returns the external-field variant the client was built with.
func (c *Client) Variant() Variant { return c.opts.Variant }

// Close tears down the connection if one is open.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.r = nil
	return err
}

type modelRequest struct {
	Op       string             `json:"op"`
	Kext     int                `json:"kext"`
	Sysaxes  int                `json:"sysaxes"`
	Verbose  bool               `json:"verbose,omitempty"`
	X1       float64            `json:"x1"`
	X2       float64            `json:"x2"`
	X3       float64            `json:"x3"`
	DateTime string             `json:"datetime"`
	MagInput map[string]float64 `json:"maginput,omitempty"`
	StopAlt  float64            `json:"stop_alt_km,omitempty"`
	HemiFlag int                `json:"hemi_flag,omitempty"`
}

type modelResponse struct {
	OK        bool         `json:"ok"`
	Error     string       `json:"error,omitempty"`
	XFoot     []float64    `json:"xfoot,omitempty"` // [alt_km, lat_deg, lon_deg]
	Posit     [][3]float64 `json:"posit,omitempty"`
	NPosit    int          `json:"nposit,omitempty"`
	LShell    float64      `json:"lm,omitempty"`
	BlocalMin float64      `json:"blocal_min,omitempty"`
}

// FindFootpoint asks the model server for the ionospheric footpoint of the
// field line through pos, traced toward hemi down to stopAltKm. A server-side
// failure comes back as a *ModelError; a sentinel-laden footpoint comes back
// as a non-nil Footpoint that fails Valid.
func (c *Client) FindFootpoint(ctx context.Context, pos Position, drivers DriverParameters, stopAltKm float64, hemi Hemisphere) (*Footpoint, error) {
	maginput, err := c.opts.Variant.Encode(drivers)
	if err != nil {
		return nil, err
	}

	req := c.newRequest("find_foot_point", pos, maginput)
	req.StopAlt = stopAltKm
	req.HemiFlag = int(hemi)

	resp, err := c.call(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.XFoot) != 3 {
		return nil, fmt.Errorf("model find_foot_point: expected 3 footpoint coordinates, got %d", len(resp.XFoot))
	}
	return &Footpoint{
		AltKm:  resp.XFoot[0],
		LatDeg: resp.XFoot[1],
		LonDeg: resp.XFoot[2],
	}, nil
}

// TraceFieldLine asks the model server for the full field line through pos.
func (c *Client) TraceFieldLine(ctx context.Context, pos Position, drivers DriverParameters) (*Trace, error) {
	maginput, err := c.opts.Variant.Encode(drivers)
	if err != nil {
		return nil, err
	}

	resp, err := c.call(ctx, c.newRequest("trace_field_line", pos, maginput))
	if err != nil {
		return nil, err
	}

	n := resp.NPosit
	if n <= 0 || n > len(resp.Posit) {
		n = len(resp.Posit)
	}
	points := make([]Point, n)
	for i := 0; i < n; i++ {
		points[i] = Point{X: resp.Posit[i][0], Y: resp.Posit[i][1], Z: resp.Posit[i][2]}
	}
	return &Trace{
		Points: points,
		LShell: resp.LShell,
		BMin:   resp.BlocalMin,
	}, nil
}

func (c *Client) newRequest(op string, pos Position, maginput map[string]float64) modelRequest {
	return modelRequest{
		Op:       op,
		Kext:     int(c.opts.Variant),
		Sysaxes:  c.opts.CoordSystem,
		Verbose:  c.opts.Verbose,
		X1:       pos.X1,
		X2:       pos.X2,
		X3:       pos.X3,
		DateTime: pos.ISOTime(),
		MagInput: maginput,
	}
}

// call sends one request line and reads one response line. The connection is
// serialized under the mutex: the server answers strictly in order, so
// interleaving requests would cross-wire responses.
func (c *Client) call(ctx context.Context, req modelRequest) (*modelResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConn(ctx); err != nil {
		return nil, err
	}

	// An individual model call has no timeout of its own; only a deadline
	// supplied by the caller's context bounds it.
	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetDeadline(deadline); err != nil {
			c.dropConn()
			return nil, fmt.Errorf("model set deadline: %w", err)
		}
	} else if err := c.conn.SetDeadline(time.Time{}); err != nil {
		c.dropConn()
		return nil, fmt.Errorf("model set deadline: %w", err)
	}

	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("model encode %s: %w", req.Op, err)
	}
	b = append(b, '\n')
	if _, err := c.conn.Write(b); err != nil {
		c.dropConn()
		return nil, fmt.Errorf("model write %s: %w", req.Op, err)
	}

	line, err := c.r.ReadBytes('\n')
	if err != nil {
		c.dropConn()
		return nil, fmt.Errorf("model read %s: %w", req.Op, err)
	}

	var resp modelResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		c.dropConn()
		return nil, fmt.Errorf("model decode %s: %w", req.Op, err)
	}
	if !resp.OK {
		return nil, &ModelError{Op: req.Op, Msg: resp.Error}
	}
	return &resp, nil
}

func (c *Client) ensureConn(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	d := net.Dialer{Timeout: c.opts.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.opts.Addr)
	if err != nil {
		return fmt.Errorf("model connect %s: %w", c.opts.Addr, err)
	}
	c.conn = conn
	c.r = bufio.NewReader(conn)
	return nil
}

// dropConn closes the connection after a transport error so the next call
// redials instead of reading a desynchronized stream.
func (c *Client) dropConn() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = nil
	c.r = nil
}
