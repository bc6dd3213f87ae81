package sqlite

import (
	"errors"

	"nfirscore/pkg/domain"
)

var errUndecodable = errors.New("payload is not a valid incident document")

func decodeDocument(payload []byte) (domain.IncidentDocument, error) {
	doc, ok := domain.ChangePayloadFromRaw(payload).Decode()
	if !ok {
		return domain.IncidentDocument{}, errUndecodable
	}
	return doc, nil
}

func payloadFromRaw(raw []byte) domain.ChangePayload {
	return domain.ChangePayloadFromRaw(raw)
}

// nullableRaw maps an undefined payload to SQL NULL.
func nullableRaw(p domain.ChangePayload) any {
	if !p.Defined() {
		return nil
	}
	return []byte(p.Raw())
}
