package pipeline

import (
	"context"
	"strings"

	"github.com/mohammad-safakhou/slidegen/internal/agentclient"
	"github.com/mohammad-safakhou/slidegen/internal/provision"
	"github.com/mohammad-safakhou/slidegen/internal/schema"
)

const (
	maxBullets  = 6
	minBullets  = 3
	maxQueries  = 8
	maxKeyConst = 24
	maxTitle    = 80
)

var defaultBullets = []string{"Overview", "Key points", "Summary"}

// Plan invokes the planner stage and normalizes its output. On any
// failure the planner is treated as best-effort: a local fallback
// outline is synthesized and the pipeline continues.
func Plan(ctx context.Context, client AgentClient, agents Agents, modelName, effectivePrompt, rawPrompt, imageDataURL string) PlannerOutput {
	doc, err := schema.Document(schema.KindPlanner)
	if err != nil {
		return fallbackPlan(rawPrompt)
	}

	req := agentclient.ResponseRequest{
		Model: modelName,
		Input: []agentclient.InputMessage{BuildUserInput(effectivePrompt, imageDataURL)},
		Text: &agentclient.ResponseTextFormat{Format: agentclient.ResponseFormatSchema{
			Type: "json_schema", Name: "planner_output", Schema: []byte(doc), Strict: true,
		}},
	}
	if id, ok := agents.AgentID("planner"); ok {
		req.AssistantID = id
	} else {
		req.Instructions = provision.InstructionsFor("planner")
		req.Tools = provision.ToolsFor("planner", agents.VectorStoreID())
	}

	env, err := client.CreateResponse(ctx, req)
	if err != nil {
		return fallbackPlan(rawPrompt)
	}

	out, err := schema.ParseJSONFromOutputText[PlannerOutput](env, "planner")
	if err != nil {
		return fallbackPlan(rawPrompt)
	}
	return normalizePlan(out, rawPrompt)
}

func fallbackPlan(rawPrompt string) PlannerOutput {
	return normalizePlan(PlannerOutput{}, rawPrompt)
}

// normalizePlan applies the spec's outline synthesis and bound-clamping
// rules regardless of whether the planner ran successfully.
func normalizePlan(out PlannerOutput, rawPrompt string) PlannerOutput {
	if len(out.Outline) == 0 || (strings.TrimSpace(out.Outline[0].Title) == "" && len(out.Outline[0].Bullets) == 0) {
		out.Outline = []OutlineSlide{synthesizeOutline(rawPrompt)}
	}
	slide := out.Outline[0]
	slide.Title = clampTitle(slide.Title, rawPrompt)
	slide.Bullets = normalizeBullets(slide.Bullets)
	out.Outline = []OutlineSlide{slide}
	out.SlideCount = 1

	out.SearchQueries = dedupCapCaseInsensitive(out.SearchQueries, maxQueries)
	out.KeyConstraints = dedupCapCaseInsensitive(out.KeyConstraints, maxKeyConst)
	return out
}

func synthesizeOutline(rawPrompt string) OutlineSlide {
	title := firstLine(rawPrompt)
	return OutlineSlide{Title: clampTitle(title, rawPrompt), Bullets: append([]string{}, defaultBullets...)}
}

func clampTitle(title, fallbackSource string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = firstLine(fallbackSource)
	}
	r := []rune(title)
	if len(r) > maxTitle {
		title = string(r[:maxTitle])
	}
	return title
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func normalizeBullets(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, b := range in {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		key := strings.ToLower(b)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, b)
		if len(out) == maxKeyConst {
			break
		}
	}
	for _, d := range defaultBullets {
		if len(out) >= minBullets {
			break
		}
		key := strings.ToLower(d)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	if len(out) > maxBullets {
		out = out[:maxBullets]
	}
	return out
}

func dedupCapCaseInsensitive(in []string, limit int) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out
}
