package provision

import "sync"

// Context is the process-wide provisioning state: readable by all tasks
// once Readiness fires; before that, only the supervisor writes it.
type Context struct {
	Readiness *Readiness

	mu            sync.RWMutex
	vectorStoreID string
	agentIDs      map[string]string
	fileResearch  bool
}

// NewContext returns an unprovisioned Context.
func NewContext() *Context {
	return &Context{Readiness: NewReadiness(), agentIDs: map[string]string{}}
}

func (c *Context) setVectorStoreID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vectorStoreID = id
	c.fileResearch = id != ""
}

func (c *Context) setAgentIDs(m map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agentIDs = m
}

// VectorStoreID returns the reconciled vector store id, or "" if file
// research is unavailable.
func (c *Context) VectorStoreID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vectorStoreID
}

// FileResearchAvailable reports whether file research has a vector
// store to search.
func (c *Context) FileResearchAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fileResearch
}

// AgentID returns the remote id of the named canonical agent, if it was
// successfully reconciled.
func (c *Context) AgentID(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.agentIDs[name]
	return id, ok
}
