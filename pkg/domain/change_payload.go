package domain

import json "github.com/goccy/go-json"

// ChangePayload holds a JSON snapshot of a document on one side of a change.
// The zero value means "no snapshot", which is how creates record Before.
type ChangePayload struct {
	defined bool
	raw     json.RawMessage
}

// NewChangePayload snapshots doc. Encoding failures produce an undefined
// payload; a change record is diagnostic data and never blocks a write.
func NewChangePayload(doc IncidentDocument) ChangePayload {
	raw, err := json.Marshal(doc)
	if err != nil {
		return ChangePayload{}
	}
	return ChangePayload{defined: true, raw: raw}
}

// Defined reports whether a snapshot was captured.
func (p ChangePayload) Defined() bool {
	return p.defined
}

// Raw returns a copy of the snapshot bytes, nil when undefined.
func (p ChangePayload) Raw() json.RawMessage {
	if !p.defined {
		return nil
	}
	out := make(json.RawMessage, len(p.raw))
	copy(out, p.raw)
	return out
}

// Decode rebuilds the document captured in the payload.
func (p ChangePayload) Decode() (IncidentDocument, bool) {
	if !p.defined {
		return IncidentDocument{}, false
	}
	var doc IncidentDocument
	if err := json.Unmarshal(p.raw, &doc); err != nil {
		return IncidentDocument{}, false
	}
	return doc, true
}

// ChangePayloadFromRaw wraps previously captured snapshot bytes. Empty input
// yields an undefined payload.
func ChangePayloadFromRaw(raw []byte) ChangePayload {
	if len(raw) == 0 {
		return ChangePayload{}
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return ChangePayload{defined: true, raw: out}
}
