package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Airtrack.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RecordStart begins a capture session on the given device. An empty device
// ID lets the daemon pick one.
func (c *Client) RecordStart(deviceID string) (*RecordStartResponse, error) {
	var resp RecordStartResponse
	req := RecordStartRequest{DeviceID: deviceID}
	if err := c.client.Call("Airtrack.RecordStart", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RecordPause suspends the running session.
func (c *Client) RecordPause() (*RecordPauseResponse, error) {
	var resp RecordPauseResponse
	if err := c.client.Call("Airtrack.RecordPause", RecordPauseRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RecordResume continues a paused session.
func (c *Client) RecordResume() (*RecordResumeResponse, error) {
	var resp RecordResumeResponse
	if err := c.client.Call("Airtrack.RecordResume", RecordResumeRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RecordStop finalizes the running session.
func (c *Client) RecordStop() (*RecordStopResponse, error) {
	var resp RecordStopResponse
	if err := c.client.Call("Airtrack.RecordStop", RecordStopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RecordReset discards candidate audio.
func (c *Client) RecordReset() (*RecordResetResponse, error) {
	var resp RecordResetResponse
	if err := c.client.Call("Airtrack.RecordReset", RecordResetRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RecordTrim applies or clears the trim range on candidate audio.
func (c *Client) RecordTrim(req RecordTrimRequest) (*RecordTrimResponse, error) {
	var resp RecordTrimResponse
	if err := c.client.Call("Airtrack.RecordTrim", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RecordSave uploads the candidate as a take. BreakID zero saves a
// standalone recording.
func (c *Client) RecordSave(breakID int64) (*RecordSaveResponse, error) {
	var resp RecordSaveResponse
	req := RecordSaveRequest{BreakID: breakID}
	if err := c.client.Call("Airtrack.RecordSave", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TakeList returns takes for a break.
func (c *Client) TakeList(breakID int64) (*TakeListResponse, error) {
	var resp TakeListResponse
	req := TakeListRequest{BreakID: breakID}
	if err := c.client.Call("Airtrack.TakeList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TakeSelect moves the break selection to a take.
func (c *Client) TakeSelect(takeID int64) (*TakeSelectResponse, error) {
	var resp TakeSelectResponse
	req := TakeSelectRequest{TakeID: takeID}
	if err := c.client.Call("Airtrack.TakeSelect", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TakeDelete removes a take.
func (c *Client) TakeDelete(takeID int64) (*TakeDeleteResponse, error) {
	var resp TakeDeleteResponse
	req := TakeDeleteRequest{TakeID: takeID}
	if err := c.client.Call("Airtrack.TakeDelete", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Publish pushes a take to the playout system.
func (c *Client) Publish(takeID int64) (*PublishResponse, error) {
	var resp PublishResponse
	req := PublishRequest{TakeID: takeID}
	if err := c.client.Call("Airtrack.Publish", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeviceList enumerates capture devices.
func (c *Client) DeviceList() (*DeviceListResponse, error) {
	var resp DeviceListResponse
	if err := c.client.Call("Airtrack.DeviceList", DeviceListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadList returns staged recordings optionally filtered by statuses.
func (c *Client) UploadList(statuses []string) (*UploadListResponse, error) {
	var resp UploadListResponse
	req := UploadListRequest{Statuses: statuses}
	if err := c.client.Call("Airtrack.UploadList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadRetry retries failed staged recordings.
func (c *Client) UploadRetry(ids []string) (*UploadRetryResponse, error) {
	var resp UploadRetryResponse
	req := UploadRetryRequest{IDs: ids}
	if err := c.client.Call("Airtrack.UploadRetry", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PresenceReconnect forces an immediate presence reconnect attempt.
func (c *Client) PresenceReconnect() (*PresenceReconnectResponse, error) {
	var resp PresenceReconnectResponse
	if err := c.client.Call("Airtrack.PresenceReconnect", PresenceReconnectRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
