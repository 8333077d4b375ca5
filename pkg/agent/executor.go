package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harun/aphelion/internal/tracing"
	"github.com/harun/aphelion/pkg/checkpoint"
	"github.com/harun/aphelion/pkg/gateway"
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// Executor runs one unit of work: search, conditionally execute, conditionally checkpoint
type Executor struct {
	gateway      Gateway
	scheduler    *checkpoint.Scheduler
	recordPolicy checkpoint.RecordPolicy
	sessionID    string
	query        string
	toolName     string
	toolParams   map[string]interface{}
	summary      string
	now          Clock
	newID        func() (string, error)
	logger       zerolog.Logger
}

// ExecutorConfig holds executor configuration
type ExecutorConfig struct {
	Gateway      Gateway
	Scheduler    *checkpoint.Scheduler
	RecordPolicy checkpoint.RecordPolicy
	SessionID    string
	Query        string
	ToolName     string
	ToolParams   map[string]interface{}
	Summary      string // Optional, derived from Query when empty
	Clock        Clock
	Logger       zerolog.Logger
}

// NewExecutor creates a new cycle executor
func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if cfg.Gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if cfg.Scheduler == nil {
		return nil, errors.New("checkpoint scheduler is required")
	}
	if cfg.Query == "" {
		return nil, errors.New("search query is required")
	}
	if cfg.ToolName == "" {
		return nil, errors.New("tool name is required")
	}

	policy := cfg.RecordPolicy
	if policy == "" {
		policy = checkpoint.RecordOnSuccess
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	summary := cfg.Summary
	if summary == "" {
		summary = fmt.Sprintf("Processed %s research", cfg.Query)
	}
	params := make(map[string]interface{}, len(cfg.ToolParams))
	for k, v := range cfg.ToolParams {
		params[k] = v
	}

	return &Executor{
		gateway:      cfg.Gateway,
		scheduler:    cfg.Scheduler,
		recordPolicy: policy,
		sessionID:    cfg.SessionID,
		query:        cfg.Query,
		toolName:     cfg.ToolName,
		toolParams:   params,
		summary:      summary,
		now:          clock,
		newID:        func() (string, error) { return gonanoid.New() },
		logger:       cfg.Logger,
	}, nil
}

// Scheduler returns the checkpoint scheduler owned by this executor
func (e *Executor) Scheduler() *checkpoint.Scheduler {
	return e.scheduler
}

// RunCycle runs one cycle. Collaborator failures are returned as *CycleError;
// the checkpoint time only moves as the last action of the checkpoint branch.
func (e *Executor) RunCycle(ctx context.Context) (result CycleResult, err error) {
	start := e.now()
	cycleID := e.cycleID()
	result = CycleResult{
		CycleID:   cycleID,
		SessionID: e.sessionID,
		StartedAt: start,
	}

	ctx = tracing.WithSessionID(tracing.WithCycleID(ctx, cycleID), e.sessionID)
	ctx, span := tracing.StartSpan(ctx, "agent.cycle",
		attribute.String("agent.cycle_id", cycleID),
		attribute.String("agent.session_id", e.sessionID),
		attribute.String("agent.query", e.query),
	)
	defer func() {
		span.SetAttributes(
			attribute.Int("agent.tools_found", result.ToolsFound),
			attribute.Bool("agent.tool_executed", result.ToolExecuted),
			attribute.Bool("agent.checkpointed", result.Checkpointed),
		)
		tracing.EndSpan(span, err)
	}()

	logger := tracing.LoggerFromContext(ctx, e.logger)
	logger.Info().Msg("Starting agent cycle")

	// 1. Search for relevant tools
	search, err := e.searchTools(ctx)
	if err != nil {
		return e.finish(result, &CycleError{Step: StepSearch, Err: err})
	}
	if search != nil {
		result.ToolsFound = len(search.Tools)
	}
	logger.Debug().
		Str("query", e.query).
		Int("tools_found", result.ToolsFound).
		Msg("Tool search completed")

	// 2. Run the designated tool when anything was found
	var toolResult map[string]interface{}
	if search.HasTools() {
		toolResult, err = e.runTool(ctx)
		if err != nil {
			return e.finish(result, &CycleError{Step: StepExecute, Err: err})
		}
		result.ToolExecuted = true
		logger.Debug().Str("tool", e.toolName).Msg("Tool executed")
	}

	// 3. Checkpoint memory if due
	if e.scheduler.Due(e.now()) {
		result.CheckpointDue = true
		content := map[string]interface{}{
			"search_results": toolResult,
			"timestamp":      e.now().Format(time.RFC3339),
			"session_id":     e.sessionID,
			"query":          e.query,
			"tool":           e.toolName,
			"tools_found":    result.ToolsFound,
		}

		saveErr := e.saveMemory(ctx, content)
		if e.recordPolicy.ShouldRecord(saveErr) {
			state := e.scheduler.Record(e.now())
			logger.Info().
				Time("last_checkpoint", state.LastCheckpoint).
				Bool("saved", saveErr == nil).
				Msg("Memory checkpoint recorded")
		}
		if saveErr != nil {
			return e.finish(result, &CycleError{Step: StepCheckpoint, Err: saveErr})
		}
		result.Checkpointed = true
	} else {
		logger.Debug().
			Time("next_checkpoint", e.scheduler.NextDue()).
			Msg("Memory checkpoint not due")
	}

	result, _ = e.finish(result, nil)
	logger.Info().
		Dur("duration", result.Duration).
		Msg("Agent cycle completed successfully")
	return result, nil
}

// cycleID falls back to a UUID when the nanoid source fails
func (e *Executor) cycleID() string {
	id, err := e.newID()
	if err == nil && id != "" {
		return id
	}
	fallback := uuid.NewString()
	e.logger.Warn().
		Err(err).
		Str("cycle_id", fallback).
		Msg("Failed to generate cycle ID, using UUID")
	return fallback
}

func (e *Executor) searchTools(ctx context.Context) (result *gateway.SearchResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "gateway.search_tools", attribute.String("gateway.query", e.query))
	defer func() { tracing.EndSpan(span, err) }()
	return e.gateway.SearchTools(ctx, e.query)
}

func (e *Executor) runTool(ctx context.Context) (result map[string]interface{}, err error) {
	ctx, span := tracing.StartSpan(ctx, "gateway.run_tool", attribute.String("gateway.tool", e.toolName))
	defer func() { tracing.EndSpan(span, err) }()
	return e.gateway.RunTool(ctx, e.toolName, e.toolParams)
}

func (e *Executor) saveMemory(ctx context.Context, content map[string]interface{}) (err error) {
	ctx, span := tracing.StartSpan(ctx, "gateway.save_memory")
	defer func() { tracing.EndSpan(span, err) }()
	return e.gateway.SaveMemory(ctx, e.summary, content)
}

func (e *Executor) finish(result CycleResult, err error) (CycleResult, error) {
	result.Duration = e.now().Sub(result.StartedAt)
	if err != nil {
		result.Err = err
		return result, err
	}
	return result, nil
}
