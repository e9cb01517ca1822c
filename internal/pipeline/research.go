package pipeline

import (
	"context"
	"strings"

	"github.com/mohammad-safakhou/slidegen/internal/agentclient"
	"github.com/mohammad-safakhou/slidegen/internal/provision"
	"github.com/mohammad-safakhou/slidegen/internal/schema"
)

const maxFileKeywords = 12

// WebResearch invokes the web research stage with a deduplicated query
// list. Failure degrades to an empty, best-effort result.
func WebResearch(ctx context.Context, client AgentClient, agents Agents, modelName string, queries []string) WebResearchOutput {
	doc, err := schema.Document(schema.KindWebResearch)
	if err != nil {
		return WebResearchOutput{}
	}
	deduped := dedupCapCaseInsensitive(queries, maxQueries)
	text := "Research these queries using web search:\n- " + strings.Join(deduped, "\n- ")

	req := agentclient.ResponseRequest{
		Model: modelName,
		Input: []agentclient.InputMessage{BuildUserInput(text, "")},
		Tools: provision.ToolsFor("web-research", ""),
		Text: &agentclient.ResponseTextFormat{Format: agentclient.ResponseFormatSchema{
			Type: "json_schema", Name: "web_research_output", Schema: []byte(doc), Strict: true,
		}},
	}
	if id, ok := agents.AgentID("web-research"); ok {
		req.AssistantID = id
	} else {
		req.Instructions = provision.InstructionsFor("web-research")
	}

	env, err := client.CreateResponse(ctx, req)
	if err != nil {
		return WebResearchOutput{}
	}
	out, err := schema.ParseJSONFromOutputText[WebResearchOutput](env, "web_research")
	if err != nil {
		return WebResearchOutput{}
	}
	return out
}

// FileResearch invokes the file research stage against the configured
// vector store, with up to 12 deduplicated keywords drawn from the
// planner's constraints and outline titles. Skipped entirely (and
// degrades to an empty result) when no vector store is available.
func FileResearch(ctx context.Context, client AgentClient, agents Agents, modelName, effectivePrompt string, keywords []string) FileResearchOutput {
	if !agents.FileResearchAvailable() {
		return FileResearchOutput{}
	}
	doc, err := schema.Document(schema.KindFileResearch)
	if err != nil {
		return FileResearchOutput{}
	}
	deduped := dedupCapCaseInsensitive(keywords, maxFileKeywords)
	text := effectivePrompt
	if len(deduped) > 0 {
		text += "\n\nKeywords: " + strings.Join(deduped, ", ")
	}

	req := agentclient.ResponseRequest{
		Model: modelName,
		Input: []agentclient.InputMessage{BuildUserInput(text, "")},
		Tools: provision.ToolsFor("file-research", agents.VectorStoreID()),
		Text: &agentclient.ResponseTextFormat{Format: agentclient.ResponseFormatSchema{
			Type: "json_schema", Name: "file_research_output", Schema: []byte(doc), Strict: true,
		}},
	}
	if id, ok := agents.AgentID("file-research"); ok {
		req.AssistantID = id
	} else {
		req.Instructions = provision.InstructionsFor("file-research")
	}

	env, err := client.CreateResponse(ctx, req)
	if err != nil {
		return FileResearchOutput{}
	}
	out, err := schema.ParseJSONFromOutputText[FileResearchOutput](env, "file_research")
	if err != nil {
		return FileResearchOutput{}
	}
	return out
}

// FileResearchKeywords builds the keyword list from the union of key
// constraints and outline titles, ready for FileResearch.
func FileResearchKeywords(plan PlannerOutput) []string {
	keywords := append([]string{}, plan.KeyConstraints...)
	for _, s := range plan.Outline {
		keywords = append(keywords, s.Title)
	}
	return dedupCapCaseInsensitive(keywords, maxFileKeywords)
}
