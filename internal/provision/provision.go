// Package provision runs the boot-time reconciliation of the remote
// vector store and canonical agent set, then publishes readiness to the
// rest of the process.
package provision

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mohammad-safakhou/slidegen/internal/agentclient"
	"github.com/mohammad-safakhou/slidegen/internal/statestore"
)

const (
	vectorStoreStateKey   = "vectorStoreId"
	vectorStoreName       = "seed-data"
	vectorStoreReadyWait  = 2 * time.Minute
	seedExistingReadyWait = 30 * time.Second
)

var seedExtensions = map[string]bool{".md": true, ".pdf": true, ".txt": true}

// Supervisor owns the one-time reconciliation run (C2).
type Supervisor struct {
	client      *agentclient.Client
	state       statestore.Store
	seedDataDir string
	modelName   string
	logger      *log.Logger
}

// New builds a Supervisor.
func New(client *agentclient.Client, state statestore.Store, seedDataDir, modelName string, logger *log.Logger) *Supervisor {
	if logger == nil {
		logger = log.Default()
	}
	return &Supervisor{client: client, state: state, seedDataDir: seedDataDir, modelName: modelName, logger: logger}
}

// Run executes the reconciliation once and fires pc's readiness latch
// unconditionally on return, even if individual steps failed.
func (s *Supervisor) Run(ctx context.Context, pc *Context) {
	defer pc.Readiness.Fire()

	vectorStoreID := s.reconcileVectorStore(ctx)
	pc.setVectorStoreID(vectorStoreID)

	agentIDs := s.reconcileAgents(ctx, vectorStoreID)
	pc.setAgentIDs(agentIDs)
}

func (s *Supervisor) reconcileVectorStore(ctx context.Context) string {
	if existing, ok, err := s.state.Get(ctx, vectorStoreStateKey); err == nil && ok && existing != "" {
		if err := s.client.WaitVectorStoreReady(ctx, existing, seedExistingReadyWait); err != nil {
			s.logger.Printf("provision: existing vector store %s not ready: %v", existing, err)
			return ""
		}
		return existing
	}

	files, err := s.findSeedFiles()
	if err != nil {
		s.logger.Printf("provision: scan seed dir %s: %v", s.seedDataDir, err)
		return ""
	}
	if len(files) == 0 {
		s.logger.Printf("provision: no seed files found in %s; file research unavailable", s.seedDataDir)
		return ""
	}

	var fileIDs []string
	for _, f := range files {
		id, err := s.client.UploadFile(ctx, f)
		if err != nil {
			s.logger.Printf("provision: upload seed file %s: %v", f, err)
			continue
		}
		fileIDs = append(fileIDs, id)
	}
	if len(fileIDs) == 0 {
		s.logger.Printf("provision: no seed file uploaded successfully; file research unavailable")
		return ""
	}

	vsID, err := s.client.CreateVectorStore(ctx, vectorStoreName, fileIDs)
	if err != nil {
		s.logger.Printf("provision: create vector store: %v", err)
		return ""
	}
	if err := s.client.WaitVectorStoreReady(ctx, vsID, vectorStoreReadyWait); err != nil {
		s.logger.Printf("provision: vector store %s did not become ready: %v", vsID, err)
		return ""
	}
	if err := s.state.Set(ctx, vectorStoreStateKey, vsID); err != nil {
		s.logger.Printf("provision: persist vector store id: %v", err)
	}
	return vsID
}

func (s *Supervisor) findSeedFiles() ([]string, error) {
	entries, err := os.ReadDir(s.seedDataDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if seedExtensions[ext] {
			out = append(out, filepath.Join(s.seedDataDir, e.Name()))
		}
	}
	return out, nil
}

func (s *Supervisor) reconcileAgents(ctx context.Context, vectorStoreID string) map[string]string {
	existing, err := s.client.ListAgentsByName(ctx)
	if err != nil {
		s.logger.Printf("provision: list agents: %v", err)
		existing = map[string]string{}
	}

	out := map[string]string{}
	for _, name := range canonicalAgentNames {
		if name == "file-research" && vectorStoreID == "" {
			continue
		}
		def := buildDefinition(name, s.modelName, vectorStoreID)

		if id, ok := existing[strings.ToLower(name)]; ok {
			if err := s.client.UpdateAgent(ctx, id, def); err != nil {
				s.logger.Printf("provision: update agent %s: %v", name, err)
				continue
			}
			out[name] = id
			continue
		}

		id, err := s.client.CreateAgent(ctx, def)
		if err != nil {
			s.logger.Printf("provision: create agent %s: %v", name, err)
			continue
		}
		out[name] = id
	}
	return out
}
