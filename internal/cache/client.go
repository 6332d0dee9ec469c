package cache

import (
	"encoding/json"
	"errors"
	"net"
	"strings"
	"time"
)

// Client implements Storage over a Unix socket.
type Client struct {
	socketPath string
}

func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

func (c *Client) roundTrip(req Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if err := json.NewEncoder(conn).Encode(&req); err != nil {
		return nil, err
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, remoteError(resp.Error)
	}
	return &resp, nil
}

func (c *Client) Match(partition, key string) (*Entry, error) {
	resp, err := c.roundTrip(Request{Op: OpMatch, Partition: partition, Key: key})
	if err != nil {
		return nil, err
	}
	return resp.Entry, nil
}

func (c *Client) Put(partition, key string, e *Entry) error {
	_, err := c.roundTrip(Request{Op: OpPut, Partition: partition, Key: key, Entry: e})
	return err
}

func (c *Client) PutAll(partition string, entries map[string]*Entry) error {
	_, err := c.roundTrip(Request{Op: OpPutAll, Partition: partition, Entries: entries})
	return err
}

func (c *Client) Keys(partition string) ([]string, error) {
	resp, err := c.roundTrip(Request{Op: OpKeys, Partition: partition})
	if err != nil {
		return nil, err
	}
	return resp.Keys, nil
}

func (c *Client) Partitions() ([]string, error) {
	resp, err := c.roundTrip(Request{Op: OpPartitions})
	if err != nil {
		return nil, err
	}
	return resp.Partitions, nil
}

func (c *Client) DeletePartition(name string) (bool, error) {
	resp, err := c.roundTrip(Request{Op: OpDeletePartition, Partition: name})
	if err != nil {
		return false, err
	}
	return resp.Existed, nil
}

// remoteError maps daemon error strings back onto the package sentinels.
func remoteError(msg string) error {
	switch {
	case msg == ErrNotFound.Error():
		return ErrNotFound
	case strings.HasPrefix(msg, ErrNotCacheable.Error()):
		return &wrappedError{msg: msg, base: ErrNotCacheable}
	}
	return errors.New(msg)
}

type wrappedError struct {
	msg  string
	base error
}

func (e *wrappedError) Error() string { return e.msg }
func (e *wrappedError) Unwrap() error { return e.base }
