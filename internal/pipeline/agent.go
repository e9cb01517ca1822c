package pipeline

import (
	"context"

	"github.com/mohammad-safakhou/slidegen/internal/agentclient"
	"github.com/mohammad-safakhou/slidegen/internal/schema"
)

// AgentClient is the subset of the remote agent client (C1) the
// pipeline drives. It is satisfied by *agentclient.Client; tests supply
// fakes.
type AgentClient interface {
	CreateResponse(ctx context.Context, body agentclient.ResponseRequest) (schema.Envelope, error)
}

// Agents resolves the five canonical agents' remote ids, when
// provisioning reconciled them. A missing id means the call falls back
// to inlined instructions and tools.
type Agents interface {
	AgentID(name string) (string, bool)
	FileResearchAvailable() bool
	VectorStoreID() string
}
