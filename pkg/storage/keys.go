package storage

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// Key layout. A single flat keyspace is used so BadgerDB's prefix
// iterators can serve every range query the engine needs; prefixes are
// one ASCII byte, ids are the 16 raw bytes of a UUID (fixed width, so the
// parsers find fields by offset even though those bytes may include 0x00),
// and a 0x00 separator is used around variable-length type/name strings
// since UUID strings and the reserved type constants never contain a NUL
// byte.
const (
	prefixVertex     = 'v' // v + id                      -> type string
	prefixVertexType = 't' // t + type + 0x00 + id         -> (empty)
	prefixVertexProp = 'p' // p + id + 0x00 + name          -> raw JSON value
	prefixEdge       = 'e' // e + from + to + 0x00 + type   -> (empty)
	prefixEdgeIn     = 'i' // i + to + from + 0x00 + type   -> (empty)
	prefixEdgeProp   = 'q' // q + from + to + 0x00 + type + 0x00 + name -> raw JSON value
)

func vertexKey(id uuid.UUID) []byte {
	b := make([]byte, 0, 17)
	b = append(b, prefixVertex)
	b = append(b, id[:]...)
	return b
}

func vertexTypeKey(typ string, id uuid.UUID) []byte {
	b := make([]byte, 0, 1+len(typ)+1+16)
	b = append(b, prefixVertexType)
	b = append(b, []byte(typ)...)
	b = append(b, 0x00)
	b = append(b, id[:]...)
	return b
}

func vertexTypePrefix(typ string) []byte {
	b := make([]byte, 0, 1+len(typ)+1)
	b = append(b, prefixVertexType)
	b = append(b, []byte(typ)...)
	b = append(b, 0x00)
	return b
}

func vertexPropKey(id uuid.UUID, name string) []byte {
	b := make([]byte, 0, 1+16+1+len(name))
	b = append(b, prefixVertexProp)
	b = append(b, id[:]...)
	b = append(b, 0x00)
	b = append(b, []byte(name)...)
	return b
}

func edgeKey(from, to uuid.UUID, typ string) []byte {
	b := make([]byte, 0, 1+16+16+1+len(typ))
	b = append(b, prefixEdge)
	b = append(b, from[:]...)
	b = append(b, to[:]...)
	b = append(b, 0x00)
	b = append(b, []byte(typ)...)
	return b
}

func edgeOutboundPrefix(from uuid.UUID) []byte {
	b := make([]byte, 0, 1+16)
	b = append(b, prefixEdge)
	b = append(b, from[:]...)
	return b
}

func edgeInboundKey(from, to uuid.UUID, typ string) []byte {
	b := make([]byte, 0, 1+16+16+1+len(typ))
	b = append(b, prefixEdgeIn)
	b = append(b, to[:]...)
	b = append(b, from[:]...)
	b = append(b, 0x00)
	b = append(b, []byte(typ)...)
	return b
}

func edgeInboundPrefix(to uuid.UUID) []byte {
	b := make([]byte, 0, 1+16)
	b = append(b, prefixEdgeIn)
	b = append(b, to[:]...)
	return b
}

func edgePropKey(key EdgeKey, name string) []byte {
	b := make([]byte, 0, 1+16+16+1+len(key.Type)+1+len(name))
	b = append(b, prefixEdgeProp)
	b = append(b, key.From[:]...)
	b = append(b, key.To[:]...)
	b = append(b, 0x00)
	b = append(b, []byte(key.Type)...)
	b = append(b, 0x00)
	b = append(b, []byte(name)...)
	return b
}

// parseEdgeOutboundKey extracts (to, type) from a key produced by
// edgeKey(from, ...), given the from id the prefix scan was rooted at.
func parseEdgeOutboundKey(key []byte, from uuid.UUID) (EdgeKey, error) {
	rest := key[1+16:]
	if len(rest) < 16+1 {
		return EdgeKey{}, fmt.Errorf("storage: malformed outbound edge key")
	}
	var to uuid.UUID
	copy(to[:], rest[:16])
	sep := bytes.IndexByte(rest[16:], 0x00)
	if sep != 0 {
		return EdgeKey{}, fmt.Errorf("storage: malformed outbound edge key")
	}
	typ := string(rest[16+1:])
	return EdgeKey{From: from, To: to, Type: typ}, nil
}

// parseEdgeInboundKey extracts (from, type) from a key produced by
// edgeInboundKey(..., to, ...), given the to id the prefix scan was
// rooted at.
func parseEdgeInboundKey(key []byte, to uuid.UUID) (EdgeKey, error) {
	rest := key[1+16:]
	if len(rest) < 16+1 {
		return EdgeKey{}, fmt.Errorf("storage: malformed inbound edge key")
	}
	var from uuid.UUID
	copy(from[:], rest[:16])
	sep := bytes.IndexByte(rest[16:], 0x00)
	if sep != 0 {
		return EdgeKey{}, fmt.Errorf("storage: malformed inbound edge key")
	}
	typ := string(rest[16+1:])
	return EdgeKey{From: from, To: to, Type: typ}, nil
}
