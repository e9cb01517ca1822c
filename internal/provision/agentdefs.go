package provision

import "github.com/mohammad-safakhou/slidegen/internal/agentclient"

// canonicalAgentNames enumerates the five agents the supervisor keeps in
// sync, in reconciliation order. file-research is conditional on a
// vector store existing.
var canonicalAgentNames = []string{"planner", "web-research", "file-research", "html-generator", "validator"}

// canonicalInstructions holds the fixed system instructions for each
// canonical agent.
var canonicalInstructions = map[string]string{
	"planner": "You are the planning stage of a single-slide generator. Given a " +
		"user prompt and optional reference image, produce exactly one slide " +
		"outline: a title of at most 80 characters and 3 to 6 bullets. Also " +
		"propose up to 8 web search queries and up to 24 constraints the final " +
		"slide must satisfy. Respond only with the structured JSON the schema " +
		"requires.",
	"web-research": "You are the web research stage. Use the web_search_preview tool " +
		"to investigate the given queries and return findings with citations " +
		"(title, url, supporting quote). Respond only with the structured JSON " +
		"the schema requires.",
	"file-research": "You are the file research stage. Use the file_search tool over " +
		"the configured vector store to find supporting snippets for the given " +
		"prompt and keywords, returning citations (file id, filename, snippet). " +
		"Respond only with the structured JSON the schema requires.",
	"html-generator": "You are the HTML generation stage. Produce a single self-" +
		"contained HTML document with exactly one <section class=\"slide\"> " +
		"element sized to the given canvas, using the outline and research " +
		"provided. Do not include <script> tags. Respond with the HTML only, " +
		"no markdown fences.",
	"validator": "You are the validation stage. Inspect the given HTML slide " +
		"against the aspect constraints and report whether it is acceptable, " +
		"listing concrete issues and, if not acceptable, a prompt appendix that " +
		"would fix them. Respond only with the structured JSON the schema " +
		"requires.",
}

// InstructionsFor returns the canonical system instructions for a
// canonical agent name. Callers that issue a response request without a
// provisioned assistant id (because provisioning hasn't reached that
// agent yet) inline this text instead, so the call still carries the
// same behavior the provisioned assistant would.
func InstructionsFor(name string) string {
	return canonicalInstructions[name]
}

// ToolsFor returns the canonical tool set for a canonical agent name,
// binding file-research to vectorStoreID when present. Mirrors the tool
// wiring buildDefinition uses when provisioning the remote assistant.
func ToolsFor(name, vectorStoreID string) []agentclient.ToolSpec {
	switch name {
	case "web-research":
		return []agentclient.ToolSpec{{Type: "web_search_preview"}}
	case "file-research":
		if vectorStoreID != "" {
			return []agentclient.ToolSpec{{Type: "file_search", VectorStoreIDs: []string{vectorStoreID}}}
		}
	}
	return []agentclient.ToolSpec{}
}

// buildDefinition returns the canonical remote definition for name,
// binding file-research to vectorStoreID when present.
func buildDefinition(name, model, vectorStoreID string) agentclient.AgentDefinition {
	return agentclient.AgentDefinition{
		Name:         name,
		Model:        model,
		Instructions: InstructionsFor(name),
		Tools:        ToolsFor(name, vectorStoreID),
	}
}
