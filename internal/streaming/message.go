package streaming

import (
	"encoding/json"
	"errors"

	"walletops/internal/domain"
)

type MessageType string

const (
	MessageTypeTransaction MessageType = "transaction"
)

// Message is the stream envelope for one normalized transaction.
type Message struct {
	Type        MessageType                  `json:"type"`
	Chain       string                       `json:"chain"`
	Wallet      string                       `json:"wallet"`
	TraceID     string                       `json:"trace_id,omitempty"`
	Transaction domain.NormalizedTransaction `json:"transaction"`
}

func Encode(msg Message) ([]byte, error) {
	if msg.Type == "" {
		return nil, errors.New("message type is required")
	}
	if msg.Chain == "" {
		return nil, errors.New("chain is required")
	}
	if msg.Wallet == "" {
		return nil, errors.New("wallet is required")
	}
	return json.Marshal(msg)
}

func Decode(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	if msg.Type == "" {
		return Message{}, errors.New("message type is missing")
	}
	if msg.Chain == "" {
		return Message{}, errors.New("chain is missing")
	}
	if msg.Wallet == "" {
		return Message{}, errors.New("wallet is missing")
	}
	return msg, nil
}
