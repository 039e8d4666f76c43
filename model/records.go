package model

import (
	"github.com/rs/zerolog"

	"agentui/chat"
)

// newRecord classifies raw and flags unclassifiable senders in the log.
func newRecord(raw chat.RawMessage, id chat.Identity, log zerolog.Logger) chat.MessageRecord {
	rec := chat.NewRecord(raw, id)
	if rec.Uncertain {
		log.Warn().
			Str("rule", chat.RuleNoMatch).
			Str("message_id", raw.ID).
			Str("sender", string(raw.Sender)).
			Str("user_id", raw.UserID).
			Msg("message sender could not be classified")
	}
	if rec.Content.IsEmpty() {
		log.Debug().Str("message_id", raw.ID).Msg("message has no renderable content")
	}
	return rec
}

// recordsFrom classifies a history page in server order.
func recordsFrom(raws []chat.RawMessage, id chat.Identity, log zerolog.Logger) []chat.MessageRecord {
	records := make([]chat.MessageRecord, len(raws))
	for i, raw := range raws {
		records[i] = newRecord(raw, id, log)
	}
	return records
}
