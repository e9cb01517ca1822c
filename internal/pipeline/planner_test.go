package pipeline

import (
	"context"
	"testing"

	"github.com/mohammad-safakhou/slidegen/internal/agentclient"
	"github.com/mohammad-safakhou/slidegen/internal/schema"
)

func TestPlanNormalizesValidOutput(t *testing.T) {
	client := &scriptedClient{responses: []func(agentclient.ResponseRequest) (schema.Envelope, error){
		func(agentclient.ResponseRequest) (schema.Envelope, error) {
			return jsonEnvelope(PlannerOutput{
				SlideCount:     1,
				Outline:        []OutlineSlide{{Title: "Q3 Results", Bullets: []string{"a", "b", "c", "a"}}},
				SearchQueries:  []string{"q1", "Q1"},
				KeyConstraints: []string{"short"},
			}), nil
		},
	}}
	out := Plan(context.Background(), client, fakeAgents{}, "gpt-test", "effective", "Q3 Results\nmore", "")
	if len(out.Outline) != 1 {
		t.Fatalf("expected exactly 1 outline slide, got %d", len(out.Outline))
	}
	if len(out.Outline[0].Bullets) != 3 {
		t.Fatalf("expected deduped bullets, got %v", out.Outline[0].Bullets)
	}
	if len(out.SearchQueries) != 1 {
		t.Fatalf("expected case-insensitive deduped queries, got %v", out.SearchQueries)
	}
}

func TestPlanFallsBackOnFailure(t *testing.T) {
	client := &scriptedClient{responses: []func(agentclient.ResponseRequest) (schema.Envelope, error){
		func(agentclient.ResponseRequest) (schema.Envelope, error) {
			return schema.Envelope{}, errFake
		},
	}}
	out := Plan(context.Background(), client, fakeAgents{}, "gpt-test", "effective", "My Great Prompt\nsecond line", "")
	if len(out.Outline) != 1 {
		t.Fatalf("expected fallback outline, got %+v", out)
	}
	if out.Outline[0].Title != "My Great Prompt" {
		t.Fatalf("expected title derived from first line, got %q", out.Outline[0].Title)
	}
	if len(out.Outline[0].Bullets) < minBullets {
		t.Fatalf("expected at least %d default bullets, got %v", minBullets, out.Outline[0].Bullets)
	}
}

func TestPlanPadsSparseBullets(t *testing.T) {
	client := &scriptedClient{responses: []func(agentclient.ResponseRequest) (schema.Envelope, error){
		func(agentclient.ResponseRequest) (schema.Envelope, error) {
			return jsonEnvelope(PlannerOutput{
				Outline: []OutlineSlide{{Title: "T", Bullets: []string{"only one"}}},
			}), nil
		},
	}}
	out := Plan(context.Background(), client, fakeAgents{}, "gpt-test", "effective", "prompt", "")
	if len(out.Outline[0].Bullets) < minBullets {
		t.Fatalf("expected padding to at least %d bullets, got %v", minBullets, out.Outline[0].Bullets)
	}
}

func TestPlanInlinesInstructionsWhenAgentUnprovisioned(t *testing.T) {
	client := &scriptedClient{responses: []func(agentclient.ResponseRequest) (schema.Envelope, error){
		func(agentclient.ResponseRequest) (schema.Envelope, error) {
			return jsonEnvelope(PlannerOutput{}), nil
		},
	}}
	Plan(context.Background(), client, fakeAgents{}, "gpt-test", "effective", "prompt", "")
	if len(client.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(client.calls))
	}
	if client.calls[0].Instructions == "" {
		t.Fatal("expected inlined instructions when planner agent id is unresolved")
	}
}

func TestPlanUsesAssistantIDWhenProvisioned(t *testing.T) {
	client := &scriptedClient{responses: []func(agentclient.ResponseRequest) (schema.Envelope, error){
		func(agentclient.ResponseRequest) (schema.Envelope, error) {
			return jsonEnvelope(PlannerOutput{}), nil
		},
	}}
	Plan(context.Background(), client, fakeAgents{ids: map[string]string{"planner": "agent-1"}}, "gpt-test", "effective", "prompt", "")
	if client.calls[0].AssistantID != "agent-1" {
		t.Fatalf("expected assistant id to be used, got %+v", client.calls[0])
	}
	if client.calls[0].Instructions != "" {
		t.Fatalf("expected no inlined instructions when assistant id resolved, got %q", client.calls[0].Instructions)
	}
}

var errFake = &fakeErr{"boom"}

type fakeErr struct{ msg string }

func (e *fakeErr) Error() string { return e.msg }
