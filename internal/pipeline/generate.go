package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/slidegen/internal/agentclient"
	"github.com/mohammad-safakhou/slidegen/internal/job"
	"github.com/mohammad-safakhou/slidegen/internal/provision"
	"github.com/mohammad-safakhou/slidegen/internal/schema"
)

const maxAttempts = 3
const maxIssuesInFailure = 8

// FixLoopFailure is the error returned when all attempts of the
// generate-validate loop are exhausted without a valid slide.
type FixLoopFailure struct {
	Message string
}

func (e *FixLoopFailure) Error() string { return e.Message }

// generateHTML invokes the html-generator agent for one attempt.
func generateHTML(ctx context.Context, client AgentClient, agents Agents, modelName string, plan PlannerOutput, web WebResearchOutput, file FileResearchOutput, effectivePrompt, imageDataURL string, aspect job.Aspect, fixAppendix string) (string, error) {
	canvas := job.CanvasFor(aspect)
	researchJSON, _ := json.Marshal(struct {
		Web  WebResearchOutput  `json:"webResearch"`
		File FileResearchOutput `json:"fileResearch"`
	}{web, file})
	outlineJSON, _ := json.Marshal(plan.Outline)

	text := fmt.Sprintf(
		"%s\n\nOutline:\n%s\n\nResearch:\n%s\n\nCanvas: %dx%d px, safe margin %dpx.",
		effectivePrompt, outlineJSON, researchJSON, canvas.WidthPx, canvas.HeightPx, canvas.SafeMarginPx,
	)
	if fixAppendix != "" {
		text += "\n\n" + fixAppendix
	}

	req := agentclient.ResponseRequest{
		Model: modelName,
		Input: []agentclient.InputMessage{BuildUserInput(text, imageDataURL)},
	}
	if id, ok := agents.AgentID("html-generator"); ok {
		req.AssistantID = id
	} else {
		req.Instructions = provision.InstructionsFor("html-generator")
		req.Tools = provision.ToolsFor("html-generator", agents.VectorStoreID())
	}

	env, err := client.CreateResponse(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generate html: %w", err)
	}
	html := schema.StripCodeFences(schema.ExtractOutputText(env))
	return strings.TrimSpace(html), nil
}

// validateHTML invokes the validator agent for one attempt.
func validateHTML(ctx context.Context, client AgentClient, agents Agents, modelName, html string, aspect job.Aspect) (ValidatorOutput, error) {
	doc, err := schema.Document(schema.KindValidator)
	if err != nil {
		return ValidatorOutput{}, fmt.Errorf("load validator schema: %w", err)
	}
	canvas := job.CanvasFor(aspect)
	text := fmt.Sprintf(
		"Validate this slide for a %dx%d canvas with a %dpx safe margin:\n\n%s",
		canvas.WidthPx, canvas.HeightPx, canvas.SafeMarginPx, html,
	)

	req := agentclient.ResponseRequest{
		Model: modelName,
		Input: []agentclient.InputMessage{BuildUserInput(text, "")},
		Text: &agentclient.ResponseTextFormat{Format: agentclient.ResponseFormatSchema{
			Type: "json_schema", Name: "validator_output", Schema: []byte(doc), Strict: true,
		}},
	}
	if id, ok := agents.AgentID("validator"); ok {
		req.AssistantID = id
	} else {
		req.Instructions = provision.InstructionsFor("validator")
		req.Tools = provision.ToolsFor("validator", agents.VectorStoreID())
	}

	env, err := client.CreateResponse(ctx, req)
	if err != nil {
		return ValidatorOutput{}, fmt.Errorf("validate html: %w", err)
	}
	return schema.ParseJSONFromOutputText[ValidatorOutput](env, "validator")
}

// RunFixLoop drives the bounded generate-validate fix loop (at most
// three attempts: one initial generation plus up to two fixes). onStep
// is called with "Generate HTML" before each generation attempt and
// "Validate" before each validation attempt, to record the observable
// step transition. saveHTML persists each attempt's output as
// result.html before validation runs, so a diagnostic artifact exists
// on disk even if every attempt is ultimately rejected.
func RunFixLoop(
	ctx context.Context,
	client AgentClient,
	agents Agents,
	modelName string,
	plan PlannerOutput,
	web WebResearchOutput,
	file FileResearchOutput,
	effectivePrompt, imageDataURL string,
	aspect job.Aspect,
	onStep func(job.Step),
	saveHTML func(string) error,
) (string, error) {
	var fixAppendix string

	for attempt := 0; attempt < maxAttempts; attempt++ {
		onStep(job.StepGenerateHTML)
		html, err := generateHTML(ctx, client, agents, modelName, plan, web, file, effectivePrompt, imageDataURL, aspect, fixAppendix)
		if err != nil {
			return "", err
		}
		if err := saveHTML(html); err != nil {
			return "", fmt.Errorf("persist html artifact: %w", err)
		}

		onStep(job.StepValidate)
		verdict, err := validateHTML(ctx, client, agents, modelName, html, aspect)
		if err != nil {
			return "", err
		}

		slideCount := schema.CountSlideSections(html)
		slideCountOK := slideCount == 1

		if verdict.OK && slideCountOK {
			return html, nil
		}

		slideCountIssue := ""
		if !slideCountOK {
			slideCountIssue = fmt.Sprintf("Expected exactly 1 <section class=\"slide\"> element, found %d.", slideCount)
		}

		if attempt == maxAttempts-1 {
			return "", &FixLoopFailure{Message: finalFailureMessage(slideCountIssue, verdict.Issues)}
		}

		fixAppendix = nextFixAppendix(slideCountIssue, verdict)
	}
	// unreachable
	return "", &FixLoopFailure{Message: "fix loop exhausted"}
}

func finalFailureMessage(slideCountIssue string, issues []string) string {
	all := issues
	if slideCountIssue != "" {
		all = append([]string{slideCountIssue}, issues...)
	}
	if len(all) > maxIssuesInFailure {
		all = all[:maxIssuesInFailure]
	}
	return strings.Join(all, "; ")
}

func nextFixAppendix(slideCountIssue string, verdict ValidatorOutput) string {
	appendix := verdict.FixedPromptAppendix
	if appendix == "" {
		appendix = synthesizeFixAppendix(verdict.Issues)
	}
	if slideCountIssue != "" {
		appendix = strings.TrimRight(appendix, "\n") + "\n" + slideCountIssue
	}
	return appendix
}

func synthesizeFixAppendix(issues []string) string {
	if len(issues) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Fix these issues:\n")
	for _, issue := range issues {
		b.WriteString("- ")
		b.WriteString(issue)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
