package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// RawTransaction is one crawled transaction with its decoded contract logs.
type RawTransaction struct {
	TxHash        string        `json:"tx_hash"`
	BlockHeight   uint64        `json:"block_height"`
	BlockSignedAt string        `json:"block_signed_at"`
	LogEvents     []RawLogEvent `json:"log_events"`
}

// RawLogEvent is a single log entry as produced by the crawler.
type RawLogEvent struct {
	TxHash        string      `json:"tx_hash"`
	SenderAddress string      `json:"sender_address"`
	LogOffset     uint64      `json:"log_offset"`
	Decoded       *DecodedLog `json:"decoded"`
	RawLogTopics  []string    `json:"raw_log_topics"`
}

// DecodedLog carries the ABI-decoded name and positional params of a log.
type DecodedLog struct {
	Name      string         `json:"name"`
	Signature string         `json:"signature,omitempty"`
	Params    []DecodedParam `json:"params"`
}

// DecodedParam is one positional event parameter. Value is kept raw because the
// crawler emits strings, numbers and booleans depending on the ABI type.
type DecodedParam struct {
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Indexed bool            `json:"indexed"`
	Decoded bool            `json:"decoded"`
	Value   json.RawMessage `json:"value"`
}

// SignedAt parses BlockSignedAt.
func (t RawTransaction) SignedAt() (time.Time, error) {
	if t.BlockSignedAt == "" {
		return time.Time{}, fmt.Errorf("block_signed_at is empty")
	}
	ts, err := time.Parse(time.RFC3339, t.BlockSignedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse block_signed_at: %w", err)
	}
	return ts.UTC(), nil
}

// EventName returns the decoded name or "" when the log could not be decoded.
func (e RawLogEvent) EventName() string {
	if e.Decoded == nil {
		return ""
	}
	return e.Decoded.Name
}

// Topic0 returns the first raw topic or "".
func (e RawLogEvent) Topic0() string {
	if len(e.RawLogTopics) == 0 {
		return ""
	}
	return e.RawLogTopics[0]
}
