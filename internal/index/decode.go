package index

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// The index service responds with MessagePack regardless of the content type
// it advertises. Records are positional, not keyed: field meaning is
// determined by index. Records may grow trailing fields across service
// versions, so decoding validates minimum arity and ignores the rest.
const (
	// search record: [score, id, metadata, filter, ...]
	searchRecordMinFields = 2
	searchScoreField      = 0
	searchIDField         = 1

	// vector/get record: [id, metadata, filter, vector, ...]
	vectorRecordMinFields = 4
	vectorField           = 3
)

// decodeSearchBody decodes a search response body into hits,
// preserving the service's order.
func decodeSearchBody(body []byte) ([]Hit, error) {
	var records [][]msgpack.RawMessage
	if err := msgpack.Unmarshal(body, &records); err != nil {
		return nil, newDecodeError("decode search response", err, body)
	}

	hits := make([]Hit, 0, len(records))
	for i, rec := range records {
		hit, err := decodeHit(rec)
		if err != nil {
			return nil, newDecodeError(fmt.Sprintf("search record %d", i), err, body)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func decodeHit(rec []msgpack.RawMessage) (Hit, error) {
	if len(rec) < searchRecordMinFields {
		return Hit{}, fmt.Errorf("record has %d fields, need at least %d", len(rec), searchRecordMinFields)
	}

	var h Hit
	if err := msgpack.Unmarshal(rec[searchScoreField], &h.Score); err != nil {
		return Hit{}, fmt.Errorf("score field: %w", err)
	}
	if err := msgpack.Unmarshal(rec[searchIDField], &h.ID); err != nil {
		return Hit{}, fmt.Errorf("id field: %w", err)
	}
	return h, nil
}

// decodeVectorBody decodes a vector/get response body into the stored vector.
// An absent vector field is reported as a zero-length vector, which the
// caller treats as not found.
func decodeVectorBody(body []byte) ([]float32, error) {
	var rec []msgpack.RawMessage
	if err := msgpack.Unmarshal(body, &rec); err != nil {
		return nil, newDecodeError("decode vector response", err, body)
	}
	if len(rec) < vectorRecordMinFields {
		return nil, newDecodeError("decode vector response",
			fmt.Errorf("record has %d fields, need at least %d", len(rec), vectorRecordMinFields), body)
	}

	var vec []float32
	if err := msgpack.Unmarshal(rec[vectorField], &vec); err != nil {
		return nil, newDecodeError("decode vector response",
			fmt.Errorf("vector field: %w", err), body)
	}
	return vec, nil
}
