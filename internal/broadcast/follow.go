package broadcast

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"claudewatch/internal/types"
)

// Follow connects to another claudewatch's /ws stream and hands every
// envelope to emit until ctx is done or the server closes the stream.
// A normal close returns nil.
func Follow(ctx context.Context, url string, emit func(types.Envelope)) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", url, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var env types.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read from %s: %w", url, err)
		}
		emit(env)
	}
}
