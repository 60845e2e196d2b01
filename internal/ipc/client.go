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
	if err := c.client.Call("Quill.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChannelList returns summaries for every live channel.
func (c *Client) ChannelList() (*ChannelListResponse, error) {
	var resp ChannelListResponse
	if err := c.client.Call("Quill.ChannelList", ChannelListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChannelDescribe returns roster and sequence heads for one channel.
func (c *Client) ChannelDescribe(id string) (*ChannelDescribeResponse, error) {
	var resp ChannelDescribeResponse
	if err := c.client.Call("Quill.ChannelDescribe", ChannelDescribeRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EvictParticipant kicks a participant from a channel.
func (c *Client) EvictParticipant(channelID, participantID string) (*EvictParticipantResponse, error) {
	var resp EvictParticipantResponse
	req := EvictParticipantRequest{ChannelID: channelID, ParticipantID: participantID}
	if err := c.client.Call("Quill.EvictParticipant", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RecentEvents returns journal entries, newest first.
func (c *Client) RecentEvents(channelID string, limit int) (*RecentEventsResponse, error) {
	var resp RecentEventsResponse
	req := RecentEventsRequest{ChannelID: channelID, Limit: limit}
	if err := c.client.Call("Quill.RecentEvents", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Quill.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
