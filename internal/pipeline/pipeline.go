package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mohammad-safakhou/slidegen/internal/job"
	"github.com/mohammad-safakhou/slidegen/internal/render"
)

var pipelineTracer trace.Tracer = otel.Tracer("slidegen/internal/pipeline")

// Readiness is the subset of the provisioning latch the pipeline waits
// on before running.
type Readiness interface {
	Wait(ctx context.Context) error
}

// Orchestrator is the pipeline orchestrator (C6): the multi-agent state
// machine driving a single job from Plan through rendering.
type Orchestrator struct {
	store     *job.Store
	client    AgentClient
	agents    Agents
	renderer  render.Renderer
	readiness Readiness
	modelName string
	logger    *log.Logger
}

// New builds an Orchestrator.
func New(store *job.Store, client AgentClient, agents Agents, renderer render.Renderer, readiness Readiness, modelName string, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		store:     store,
		client:    client,
		agents:    agents,
		renderer:  renderer,
		readiness: readiness,
		modelName: modelName,
		logger:    logger,
	}
}

// Run executes the full pipeline for jobID: await readiness, plan,
// research, the generate-validate fix loop, render, and the terminal
// state update. Errors returned here are exactly the ones C5 (the
// worker) must translate into a failed job; planner/research failures
// never reach this return.
func (o *Orchestrator) Run(ctx context.Context, jobID string) error {
	ctx, span := pipelineTracer.Start(ctx, "pipeline.run", trace.WithAttributes(attribute.String("job.id", jobID)))
	defer span.End()

	if err := o.readiness.Wait(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("await provisioning readiness: %w", err)
	}

	input, err := o.store.GetInput(jobID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("load job input: %w", err)
	}

	setStep := func(step job.Step) {
		_, _ = o.store.Update(jobID, func(s *job.State) { s.Step = step })
	}

	setStep(job.StepPlan)
	effectivePrompt := ComposeEffectivePrompt(input.Prompt, input.Aspect)
	plan := Plan(ctx, o.client, o.agents, o.modelName, effectivePrompt, input.Prompt, input.ImageDataURL)

	var web WebResearchOutput
	var file FileResearchOutput
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		file = FileResearch(ctx, o.client, o.agents, o.modelName, effectivePrompt, FileResearchKeywords(plan))
	}()

	setStep(job.StepResearchWeb)
	web = WebResearch(ctx, o.client, o.agents, o.modelName, plan.SearchQueries)

	setStep(job.StepResearchFile)
	wg.Wait()

	o.mergeSources(jobID, web, file)

	saveHTML := func(html string) error { return o.store.SaveHTML(jobID, html) }
	html, err := RunFixLoop(ctx, o.client, o.agents, o.modelName, plan, web, file, effectivePrompt, input.ImageDataURL, input.Aspect, setStep, saveHTML)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	png, err := o.renderer.Render(ctx, html, input.Aspect)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("render preview: %w", err)
	}
	if err := o.store.SavePreviewPNG(jobID, png); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("persist preview artifact: %w", err)
	}

	_, err = o.store.Update(jobID, func(s *job.State) {
		s.Status = job.StatusSucceeded
		s.Step = ""
		s.Error = ""
	})
	return err
}

func (o *Orchestrator) mergeSources(jobID string, web WebResearchOutput, file FileResearchOutput) {
	_, _ = o.store.Update(jobID, func(s *job.State) {
		for _, c := range web.Citations {
			s.Sources.URLs.Add(c.URL)
		}
		for _, c := range file.Citations {
			s.Sources.Files.Add(c.Filename)
		}
	})
}
