// Package agentclient is the authenticated HTTP client for the remote
// model/agent service: idempotent agent list/create/update, file
// upload, vector-store create/poll, and `responses` invocation, all
// behind a jittered retry policy.
package agentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mohammad-safakhou/slidegen/internal/schema"
)

// Config describes everything the client needs to reach the remote
// service. ProjectEndpoint and ModelDeploymentName are required; the
// rest carry the defaults documented for their environment variables.
type Config struct {
	ProjectEndpoint     string
	APIVersion          string
	ModelDeploymentName string
	Timeout             time.Duration
	Credential          CredentialProvider
}

// Client is the remote agent client (C1).
type Client struct {
	http                *http.Client
	baseEndpoint        string
	apiVersion          string
	modelDeploymentName string
	cred                *cachedCredential
}

// New builds a Client from cfg. A nil cfg.Credential defaults to an
// empty static token, which is only useful against an endpoint that
// does not enforce auth (e.g. a local test double).
func New(cfg Config) *Client {
	cred := cfg.Credential
	if cred == nil {
		cred = StaticCredentialProvider{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 600 * time.Second
	}
	return &Client{
		http:                &http.Client{Timeout: timeout},
		baseEndpoint:        cfg.ProjectEndpoint,
		apiVersion:          cfg.APIVersion,
		modelDeploymentName: cfg.ModelDeploymentName,
		cred:                newCachedCredential(cred),
	}
}

// ModelDeploymentName exposes the configured deployment identifier, for
// callers building request bodies.
func (c *Client) ModelDeploymentName() string { return c.modelDeploymentName }

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	tok, err := c.cred.Token(ctx)
	if err != nil {
		return fmt.Errorf("obtain bearer token: %w", err)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, relPath string, body any, out any) error {
	u, err := buildURL(c.baseEndpoint, relPath, c.apiVersion)
	if err != nil {
		return err
	}
	var raw []byte
	if body != nil {
		raw, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}
	newReq := func() (*http.Request, error) {
		var reader io.Reader
		if raw != nil {
			reader = bytes.NewReader(raw)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, reader)
		if err != nil {
			return nil, err
		}
		if raw != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if err := c.authorize(ctx, req); err != nil {
			return nil, err
		}
		return req, nil
	}
	_, respBody, err := doWithRetry(ctx, c.http, newReq)
	if err != nil {
		return err
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// --- responses ---

// InputContentPart is one piece of a user/system message: text or an
// inline image (data URL or remote URL).
type InputContentPart struct {
	Type     string `json:"type"` // "input_text" | "input_image"
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// InputMessage is one entry of a `responses` request's `input` array.
type InputMessage struct {
	Role    string              `json:"role"`
	Content []InputContentPart `json:"content"`
}

// ToolSpec names a tool available to the model for this call.
type ToolSpec struct {
	Type           string   `json:"type"`
	VectorStoreIDs []string `json:"vector_store_ids,omitempty"`
}

// ResponseFormatSchema pins the model's output to a named JSON Schema.
type ResponseFormatSchema struct {
	Type   string          `json:"type"` // "json_schema"
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
	Strict bool            `json:"strict"`
}

// ResponseTextFormat is the `text.format` envelope some `responses`
// APIs expect around ResponseFormatSchema.
type ResponseTextFormat struct {
	Format ResponseFormatSchema `json:"format"`
}

// ResponseRequest is the body of a `responses` call. AssistantID, when
// set, targets a provisioned agent; its instructions, model, and tools
// are used. Model/Instructions/Tools are otherwise inlined so a call can
// proceed even when provisioning left an agent unreconciled.
type ResponseRequest struct {
	AssistantID  string              `json:"assistant_id,omitempty"`
	Model        string              `json:"model"`
	Input        []InputMessage      `json:"input"`
	Instructions string              `json:"instructions,omitempty"`
	Tools        []ToolSpec          `json:"tools,omitempty"`
	Text         *ResponseTextFormat `json:"text,omitempty"`
}

// CreateResponse invokes the `responses` endpoint and decodes the
// dual-envelope reply.
func (c *Client) CreateResponse(ctx context.Context, body ResponseRequest) (schema.Envelope, error) {
	var env schema.Envelope
	if err := c.doJSON(ctx, http.MethodPost, "openai/responses", body, &env); err != nil {
		return schema.Envelope{}, err
	}
	return env, nil
}

// --- agents ---

// AgentDefinition is the remote configuration bundled under a name.
type AgentDefinition struct {
	Name         string     `json:"name"`
	Model        string     `json:"model"`
	Instructions string     `json:"instructions"`
	Tools        []ToolSpec `json:"tools"`
}

type agentListEnvelope struct {
	Data []agentListItem `json:"data"`
}

type agentListItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Definition *struct {
		Name string `json:"name"`
	} `json:"definition"`
}

// ListAgentsByName lists existing agents and returns a case-insensitive
// name→id map. The response may be an envelope with a `data` array or a
// bare array; items missing either an id or a resolvable name (from
// `name` or the nested `definition.name`) are skipped.
func (c *Client) ListAgentsByName(ctx context.Context) (map[string]string, error) {
	u, err := buildURL(c.baseEndpoint, "openai/assistants", c.apiVersion)
	if err != nil {
		return nil, err
	}
	newReq := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		if err := c.authorize(ctx, req); err != nil {
			return nil, err
		}
		return req, nil
	}
	_, respBody, err := doWithRetry(ctx, c.http, newReq)
	if err != nil {
		return nil, err
	}

	var items []agentListItem
	var env agentListEnvelope
	if err := json.Unmarshal(respBody, &env); err == nil && env.Data != nil {
		items = env.Data
	} else if err := json.Unmarshal(respBody, &items); err != nil {
		return nil, fmt.Errorf("decode agent list: %w", err)
	}

	out := make(map[string]string, len(items))
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		name := it.Name
		if name == "" && it.Definition != nil {
			name = it.Definition.Name
		}
		if name == "" {
			continue
		}
		out[strings.ToLower(name)] = it.ID
	}
	return out, nil
}

type agentIDResponse struct {
	ID string `json:"id"`
}

// CreateAgent creates a new agent from def and returns its id.
func (c *Client) CreateAgent(ctx context.Context, def AgentDefinition) (string, error) {
	var resp agentIDResponse
	if err := c.doJSON(ctx, http.MethodPost, "openai/assistants", def, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// UpdateAgent overwrites the definition of an existing agent by id.
func (c *Client) UpdateAgent(ctx context.Context, id string, def AgentDefinition) error {
	return c.doJSON(ctx, http.MethodPost, "openai/assistants/"+id, def, nil)
}

// --- files & vector stores ---

type fileIDResponse struct {
	ID string `json:"id"`
}

// UploadFile uploads the file at path and returns its remote id.
func (c *Client) UploadFile(ctx context.Context, path string) (string, error) {
	u, err := buildURL(c.baseEndpoint, "openai/files", c.apiVersion)
	if err != nil {
		return "", err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file %s: %w", path, err)
	}
	name := filepath.Base(path)

	newReq := func() (*http.Request, error) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		if err := w.WriteField("purpose", "assistants"); err != nil {
			return nil, err
		}
		part, err := w.CreateFormFile("file", name)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(raw); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &buf)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		if err := c.authorize(ctx, req); err != nil {
			return nil, err
		}
		return req, nil
	}

	_, respBody, err := doWithRetry(ctx, c.http, newReq)
	if err != nil {
		return "", err
	}
	var resp fileIDResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	return resp.ID, nil
}

type createVectorStoreRequest struct {
	Name    string   `json:"name"`
	FileIDs []string `json:"file_ids"`
}

type vectorStoreResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CreateVectorStore creates a vector store named name over fileIDs and
// returns its id.
func (c *Client) CreateVectorStore(ctx context.Context, name string, fileIDs []string) (string, error) {
	var resp vectorStoreResponse
	req := createVectorStoreRequest{Name: name, FileIDs: fileIDs}
	if err := c.doJSON(ctx, http.MethodPost, "openai/vector_stores", req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// WaitVectorStoreReady polls the vector store's status every two
// seconds until it reports "completed" or timeout elapses.
func (c *Client) WaitVectorStoreReady(ctx context.Context, id string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		var resp vectorStoreResponse
		if err := c.doJSON(ctx, http.MethodGet, "openai/vector_stores/"+id, nil, &resp); err != nil {
			return err
		}
		if resp.Status == "completed" {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("vector store %s not ready after %s (last status %q)", id, timeout, resp.Status)
		}
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
