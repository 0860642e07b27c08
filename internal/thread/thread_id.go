// Package thread defines the identifiers of execution units. An engine
// thread is pinned to a core; cores are grouped per NUMA node, so a global
// thread ID is the composition of its group (node) and its local ordinal
// within the node.
package thread

// GroupID identifies a NUMA node. At most 256 nodes.
type GroupID uint8

// LocalOrdinal identifies a core within one node. NOT unique across nodes.
type LocalOrdinal uint8

// ID is the globally unique identifier of a thread (core): group in the
// high byte, local ordinal in the low byte.
type ID uint16

const (
	MaxGroupID      GroupID      = 0xFF
	MaxLocalOrdinal LocalOrdinal = 0xFF
)

// Compose builds a global thread ID from a node and a local ordinal.
// With 2 nodes of 8 cores: thread 0 = node 0 core 0, thread 256 = node 1
// core 0, and so on.
func Compose(node GroupID, ordinal LocalOrdinal) ID {
	return ID(node)<<8 | ID(ordinal)
}

// Group extracts the NUMA node from a global thread ID.
func (id ID) Group() GroupID {
	return GroupID(id >> 8)
}

// Ordinal extracts the node-local ordinal from a global thread ID.
func (id ID) Ordinal() LocalOrdinal {
	return LocalOrdinal(id & 0xFF)
}
