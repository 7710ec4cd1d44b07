// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package consensus

// BlockOrigin is the provenance of a block.
type BlockOrigin uint8

const (
	// BlockOriginGenesis is the genesis block built into the client.
	BlockOriginGenesis BlockOrigin = iota
	// BlockOriginNetworkInitialSync is a block received during initial sync.
	BlockOriginNetworkInitialSync
	// BlockOriginNetworkBroadcast is a block received as part of normal
	// operation, for example a block announcement.
	BlockOriginNetworkBroadcast
	// BlockOriginConsensusBroadcast is a block received by a consensus
	// protocol broadcast.
	BlockOriginConsensusBroadcast
	// BlockOriginOwn is a block authored by this node.
	BlockOriginOwn
	// BlockOriginFile is a block imported from a file.
	BlockOriginFile
)

func (o BlockOrigin) String() string {
	switch o {
	case BlockOriginGenesis:
		return "genesis"
	case BlockOriginNetworkInitialSync:
		return "network initial sync"
	case BlockOriginNetworkBroadcast:
		return "network broadcast"
	case BlockOriginConsensusBroadcast:
		return "consensus broadcast"
	case BlockOriginOwn:
		return "own"
	case BlockOriginFile:
		return "file"
	default:
		return "unknown"
	}
}

// IsNetwork returns true if blocks of this origin come from peers,
// so that their failures can be attributed to the sending peer.
func (o BlockOrigin) IsNetwork() bool {
	switch o {
	case BlockOriginNetworkInitialSync,
		BlockOriginNetworkBroadcast,
		BlockOriginConsensusBroadcast:
		return true
	default:
		return false
	}
}
