package snapshot

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/cascade/internal/core/ports"
)

// NodeID is the unique identifier for the index store Graft node.
const NodeID graft.ID = "adapter.index_store"

func init() {
	graft.Register(graft.Node[ports.IndexStore]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.IndexStore, error) {
			return NewStore(), nil
		},
	})
}
