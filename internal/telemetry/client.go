package telemetry

import (
	"context"
	"fmt"
	"log"

	"github.com/gorilla/websocket"
)

// DefaultPort is the port the robot serves telemetry on.
const DefaultPort = 5810

// RobotAddress returns the mDNS host name of a team's robot controller.
func RobotAddress(team int) string {
	return fmt.Sprintf("roborio-%d-frc.local", team)
}

// RobotURL returns the telemetry websocket URL for a team's robot.
func RobotURL(team int) string {
	return fmt.Sprintf("ws://%s:%d%s", RobotAddress(team), DefaultPort, Path)
}

// Client mirrors a remote Hub into a local MemoryTable.
type Client struct {
	conn  *websocket.Conn
	table *MemoryTable
	url   string
}

// Dial connects to the hub at url.
func Dial(ctx context.Context, url string, table *MemoryTable) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	return &Client{conn: conn, table: table, url: url}, nil
}

// Run exchanges updates until ctx is cancelled or the connection drops.
// Remote values are written into the local table; local changes are sent
// to the hub.
func (c *Client) Run(ctx context.Context) error {
	id, updates := c.table.Subscribe()
	defer c.table.Unsubscribe(id)

	readErr := make(chan error, 1)
	go func() {
		for {
			var v Value
			if err := c.conn.ReadJSON(&v); err != nil {
				readErr <- err
				return
			}
			if !c.table.Set(v, id) {
				log.Printf("[telemetry] ignoring malformed update from %s", c.url)
			}
		}
	}()

	// push what we already have so the hub starts in sync
	for _, v := range c.table.Snapshot() {
		if err := c.conn.WriteJSON(v); err != nil {
			c.conn.Close()
			return fmt.Errorf("failed to send snapshot: %w", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			c.conn.Close()
			return ctx.Err()
		case err := <-readErr:
			c.conn.Close()
			return fmt.Errorf("connection to %s lost: %w", c.url, err)
		case v := <-updates:
			if err := c.conn.WriteJSON(v); err != nil {
				c.conn.Close()
				return fmt.Errorf("failed to send %s: %w", v.Key, err)
			}
		}
	}
}

// Close drops the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
