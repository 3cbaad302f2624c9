package api

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rickgao/ledgerwatch/internal/model"
)

// Millis is a millisecond timestamp that decodes from either a JSON
// number or a decimal string; the ledger API emits both depending on the
// node version.
type Millis int64

func (m *Millis) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("parse timestamp %s: %w", s, err)
		}
		s = str
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parse timestamp %s: %w", string(data), err)
	}
	*m = Millis(v)
	return nil
}

// ToEvent converts a wire event to the internal model, deriving the
// composite event ID.
func (e APIEvent) ToEvent() model.Event {
	return model.Event{
		ID:          model.EventID(e.TxRef, e.Seq),
		TxRef:       e.TxRef,
		Seq:         e.Seq,
		TimestampMs: int64(e.TimestampMs),
		Type:        e.Type,
		Payload:     e.Payload,
	}
}
