package graph

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/chazu/dfmcheck/pkg/kernel"
)

// NodeID is a content-addressed node identifier derived from the path that
// created the node.
type NodeID string

// ZeroID is the empty identifier.
const ZeroID NodeID = ""

// NewNodeID hashes path into a NodeID. The same path always yields the same
// ID.
func NewNodeID(path string) NodeID {
	sum := sha256.Sum256([]byte(path))
	return NodeID(hex.EncodeToString(sum[:]))
}

// IsZero reports whether id is unset.
func (id NodeID) IsZero() bool { return id == ZeroID }

// Short returns the first 8 hex digits, for messages.
func (id NodeID) Short() string {
	if len(id) <= 8 {
		return string(id)
	}
	return string(id[:8])
}

// Vec3 is the kernel vector, in mm.
type Vec3 = kernel.Vec3
