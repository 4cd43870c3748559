package scanner

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// rawRecord is one line of a conversation log before its payload shape is known.
type rawRecord struct {
	Type      string          `json:"type"`
	IsMeta    bool            `json:"isMeta"`
	Timestamp string          `json:"timestamp"`
	Message   json.RawMessage `json:"message"`
	Content   json.RawMessage `json:"content"`
}

// messageEnvelope is the object form of a record's message field.
type messageEnvelope struct {
	ID      string          `json:"id"`
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
	Usage   *usage          `json:"usage"`
}

type usage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// payload is the text-bearing part of a record. Exactly one of the
// concrete types below is produced for every decoded record.
type payload interface {
	isPayload()
}

// stringMessage is a record whose message, or message.content, is a plain string.
type stringMessage struct {
	text string
}

// blockContent is a record whose message.content is an array of typed blocks.
type blockContent struct {
	blocks []contentBlock
}

// topLevelContent is a record that carries content next to, not inside, message.
type topLevelContent struct {
	text string
}

// unrecognized is any other shape. It contributes nothing.
type unrecognized struct{}

func (stringMessage) isPayload()   {}
func (blockContent) isPayload()    {}
func (topLevelContent) isPayload() {}
func (unrecognized) isPayload()    {}

// record is a decoded log line.
type record struct {
	kind      string
	isMeta    bool
	timestamp time.Time
	message   *messageEnvelope
	payload   payload
}

// userAuthored reports whether the record was written by the end user.
func (r *record) userAuthored() bool {
	if r.isMeta {
		return false
	}
	return r.kind == "user" || (r.message != nil && r.message.Role == "user")
}

// text returns the user-visible text of the payload. Only "text" blocks
// count, so tool results yield "".
func (r *record) text() string {
	switch p := r.payload.(type) {
	case stringMessage:
		return p.text
	case blockContent:
		return blocksText(p.blocks)
	case topLevelContent:
		return p.text
	default:
		return ""
	}
}

// decodeRecord parses one log line. It returns false for malformed lines.
func decodeRecord(line []byte) (*record, bool) {
	var raw rawRecord
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, false
	}

	r := &record{
		kind:    raw.Type,
		isMeta:  raw.IsMeta,
		payload: unrecognized{},
	}
	if raw.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp); err == nil {
			r.timestamp = ts
		}
	}

	msg := bytes.TrimSpace(raw.Message)
	switch {
	case len(msg) > 0 && msg[0] == '"':
		var s string
		if json.Unmarshal(msg, &s) == nil {
			r.payload = stringMessage{text: s}
		}
		return r, true
	case len(msg) > 0 && msg[0] == '{':
		var env messageEnvelope
		if err := json.Unmarshal(msg, &env); err == nil {
			r.message = &env
			if p, ok := decodeContent(env.Content, false); ok {
				r.payload = p
				return r, true
			}
		}
	}

	if p, ok := decodeContent(raw.Content, true); ok {
		r.payload = p
	}
	return r, true
}

// decodeContent classifies a content field, either a string or an array
// of blocks. topLevel selects the topLevelContent variant.
func decodeContent(data json.RawMessage, topLevel bool) (payload, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, false
	}

	switch data[0] {
	case '"':
		var s string
		if json.Unmarshal(data, &s) != nil {
			return nil, false
		}
		if topLevel {
			return topLevelContent{text: s}, true
		}
		return stringMessage{text: s}, true
	case '[':
		var blocks []contentBlock
		if json.Unmarshal(data, &blocks) != nil {
			return nil, false
		}
		if topLevel {
			return topLevelContent{text: blocksText(blocks)}, true
		}
		return blockContent{blocks: blocks}, true
	}
	return nil, false
}

func blocksText(blocks []contentBlock) string {
	var parts []string
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}
