package store

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// encode/decode wrap msgpack so every record written to badger carries a
// one-byte format version ahead of the payload. A version bump here is the
// hook a future migration would use to fall back to the previous decoder.
const formatVersion = byte(1)

func encodeValue(v any) ([]byte, error) {
	body, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("store: encode failed: %w", err)
	}
	out := make([]byte, 0, len(body)+1)
	out = append(out, formatVersion)
	out = append(out, body...)
	return out, nil
}

func decodeValue(data []byte, v any) error {
	if len(data) < 1 {
		return fmt.Errorf("store: decode failed: empty record")
	}
	if data[0] != formatVersion {
		return fmt.Errorf("store: decode failed: unsupported format version %d", data[0])
	}
	if err := msgpack.Unmarshal(data[1:], v); err != nil {
		return fmt.Errorf("store: decode failed: %w", err)
	}
	return nil
}

func encodeNode(n *Node) ([]byte, error) { return encodeValue(n) }
func decodeNode(data []byte) (*Node, error) {
	var n Node
	if err := decodeValue(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func encodeEdge(e *Edge) ([]byte, error) { return encodeValue(e) }
func decodeEdge(data []byte) (*Edge, error) {
	var e Edge
	if err := decodeValue(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func encodeEntity(e *Entity) ([]byte, error) { return encodeValue(e) }
func decodeEntity(data []byte) (*Entity, error) {
	var e Entity
	if err := decodeValue(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func encodeVersion(v *NodeVersion) ([]byte, error) { return encodeValue(v) }
func decodeVersion(data []byte) (*NodeVersion, error) {
	var v NodeVersion
	if err := decodeValue(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func encodeSearchLog(r *SearchLogRecord) ([]byte, error) { return encodeValue(r) }
func decodeSearchLog(data []byte) (*SearchLogRecord, error) {
	var r SearchLogRecord
	if err := decodeValue(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
