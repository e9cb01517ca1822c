package pipeline

import (
	"context"
	"encoding/json"

	"github.com/mohammad-safakhou/slidegen/internal/agentclient"
	"github.com/mohammad-safakhou/slidegen/internal/job"
	"github.com/mohammad-safakhou/slidegen/internal/schema"
)

// fakeAgents satisfies Agents with a fixed, fully-reconciled id set.
type fakeAgents struct {
	ids           map[string]string
	fileResearch  bool
	vectorStoreID string
}

func (f fakeAgents) AgentID(name string) (string, bool) {
	id, ok := f.ids[name]
	return id, ok
}

func (f fakeAgents) FileResearchAvailable() bool { return f.fileResearch }

func (f fakeAgents) VectorStoreID() string { return f.vectorStoreID }

// scriptedClient replays a fixed sequence of responses per call, keyed
// by how many times CreateResponse has been invoked, and records every
// request body it saw.
type scriptedClient struct {
	responses []func(req agentclient.ResponseRequest) (schema.Envelope, error)
	calls     []agentclient.ResponseRequest
	n         int
}

func (c *scriptedClient) CreateResponse(_ context.Context, req agentclient.ResponseRequest) (schema.Envelope, error) {
	c.calls = append(c.calls, req)
	if c.n >= len(c.responses) {
		return schema.Envelope{}, nil
	}
	fn := c.responses[c.n]
	c.n++
	return fn(req)
}

func jsonEnvelope(v any) schema.Envelope {
	raw, _ := json.Marshal(v)
	return schema.Envelope{OutputText: string(raw)}
}

func textEnvelope(s string) schema.Envelope {
	return schema.Envelope{OutputText: s}
}

// fakeRenderer returns a fixed PNG payload, or an error if configured.
type fakeRenderer struct {
	png []byte
	err error
}

func (f fakeRenderer) Render(context.Context, string, job.Aspect) ([]byte, error) {
	return f.png, f.err
}

// fakeReadiness is already-fired by default.
type fakeReadiness struct{ err error }

func (f fakeReadiness) Wait(context.Context) error { return f.err }
