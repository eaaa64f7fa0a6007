package bot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// DefaultRequestTimeout covers a full search at the default depth.
const DefaultRequestTimeout = 10 * time.Second

// Client asks a remote Bot for moves.
type Client struct {
	nc      *nats.Conn
	subject string
	Timeout time.Duration
}

func NewClient(nc *nats.Conn, subject string) *Client {
	return &Client{nc: nc, subject: subject, Timeout: DefaultRequestTimeout}
}

// RequestMove sends a position to the bot and waits for its move. A reply
// carrying an error is returned as an error.
func (c *Client) RequestMove(fen string, moves []string) (*MoveResponse, error) {
	data, err := json.Marshal(&MoveRequest{FEN: fen, Moves: moves})
	if err != nil {
		return nil, err
	}
	msg, err := c.nc.Request(c.subject, data, c.Timeout)
	if err != nil {
		log.Err(err).AnErr("conn-err", c.nc.LastError()).Str("subject", c.subject).
			Msg("bot-request-failed")
		return nil, err
	}
	log.Debug().Bytes("reply", msg.Data).Msg("bot-reply")

	var resp MoveResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return nil, fmt.Errorf("decoding bot reply: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("bot returned: %s", resp.Error)
	}
	return &resp, nil
}
