package claude

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/agentorch/llm"
	"github.com/BaSui01/agentorch/providers"
	"github.com/BaSui01/agentorch/types"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

// ClaudeProvider 基于 anthropic-sdk-go 实现 llm.Provider。
// 1. Agent 的 system prompt 单独传递
// 2. 用户消息为 "Context: <json>\n\nTask: <prompt>"
// 3. 流式输出中工具调用在 content_block_stop 时才完整，此时发出 RawTool
// 4. SDK 内部重试默认关闭，重试由任务执行器统一负责
type ClaudeProvider struct {
	cfg    providers.ClaudeConfig
	client anthropic.Client
	logger *zap.Logger
}

// NewClaudeProvider 创建 Claude Provider。
func NewClaudeProvider(cfg providers.ClaudeConfig, logger *zap.Logger) *ClaudeProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second // Claude 响应可能较慢
	}

	opts := []option.RequestOption{
		option.WithMaxRetries(cfg.SDKRetries),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &ClaudeProvider{
		cfg:    cfg,
		client: anthropic.NewClient(opts...),
		logger: logger.With(zap.String("component", "claude_provider")),
	}
}

func (p *ClaudeProvider) Name() string { return "claude" }

// Invoke 同步调用 Messages API。
func (p *ClaudeProvider) Invoke(ctx context.Context, req *llm.Request) (*llm.Completion, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	start := time.Now()
	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		mapped := p.mapError(err)
		p.logger.Debug("claude request failed",
			zap.String("agent", req.Agent.Name),
			zap.String("code", string(mapped.Code)),
			zap.Bool("retryable", mapped.Retryable),
			zap.Error(err))
		return nil, mapped
	}
	p.logger.Debug("claude request completed",
		zap.String("agent", req.Agent.Name),
		zap.String("model", string(msg.Model)),
		zap.Duration("latency", time.Since(start)))
	return toCompletion(msg), nil
}

// InvokeStreaming 打开流式调用。连接错误通过 RawError 事件上报。
func (p *ClaudeProvider) InvokeStreaming(ctx context.Context, req *llm.Request) (<-chan llm.RawEvent, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return nil, err
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	out := make(chan llm.RawEvent)

	go func() {
		defer close(out)
		defer stream.Close()

		send := func(ev llm.RawEvent) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var acc anthropic.Message
		for stream.Next() {
			event := stream.Current()
			if err := acc.Accumulate(event); err != nil {
				send(llm.RawEvent{Type: llm.RawError, Err: types.NewProviderError(p.Name(), false, err)})
				return
			}

			switch ev := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
					if !send(llm.RawEvent{Type: llm.RawText, Text: delta.Text}) {
						return
					}
				}
			case anthropic.ContentBlockStopEvent:
				// 工具输入通过 input_json_delta 累积，到 stop 时才完整
				idx := int(ev.Index)
				if idx < 0 || idx >= len(acc.Content) || acc.Content[idx].Type != "tool_use" {
					continue
				}
				block := acc.Content[idx]
				tool := &types.ToolInvocation{ID: block.ID, Name: block.Name, Input: normalizeInput(block.Input)}
				if !send(llm.RawEvent{Type: llm.RawTool, Tool: tool}) {
					return
				}
			case anthropic.MessageStopEvent:
				send(llm.RawEvent{
					Type:       llm.RawDone,
					Usage:      usageOf(acc.Usage),
					StopReason: string(acc.StopReason),
				})
				return
			}
		}
		if err := stream.Err(); err != nil {
			send(llm.RawEvent{Type: llm.RawError, Err: p.mapError(err)})
		}
	}()

	return out, nil
}

func (p *ClaudeProvider) buildParams(req *llm.Request) (anthropic.MessageNewParams, error) {
	agent := req.Agent
	maxTokens := agent.MaxTokens
	if maxTokens <= 0 {
		// Claude 要求必须提供 max_tokens
		maxTokens = types.DefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(providers.ChooseModel(agent, p.cfg.Model)),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(agent.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserMessage())),
		},
	}
	if agent.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: agent.SystemPrompt}}
	}

	tools, err := convertToClaudeTools(agent.Tools)
	if err != nil {
		return params, types.NewValidationError("agent %s: %v", agent.Name, err)
	}
	params.Tools = tools
	return params, nil
}

type toolInputSchema struct {
	Properties any      `json:"properties"`
	Required   []string `json:"required"`
}

// convertToClaudeTools 将工具声明转换为 SDK 参数
func convertToClaudeTools(tools []types.ToolSchema) ([]anthropic.ToolUnionParam, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		schema := toolInputSchema{Properties: map[string]any{}}
		if len(t.InputSchema) > 0 {
			if err := json.Unmarshal(t.InputSchema, &schema); err != nil {
				return nil, fmt.Errorf("tool %s: invalid input schema: %w", t.Name, err)
			}
			if schema.Properties == nil {
				schema.Properties = map[string]any{}
			}
		}
		tool := &anthropic.ToolParam{
			Name: t.Name,
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: schema.Properties,
				Required:   schema.Required,
			},
		}
		if t.Description != "" {
			tool.Description = anthropic.String(t.Description)
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: tool})
	}
	return out, nil
}

func toCompletion(msg *anthropic.Message) *llm.Completion {
	var text strings.Builder
	var uses []types.ToolInvocation
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(v.Text)
		case anthropic.ToolUseBlock:
			uses = append(uses, types.ToolInvocation{ID: v.ID, Name: v.Name, Input: normalizeInput(v.Input)})
		}
	}
	return &llm.Completion{
		Text:       text.String(),
		ToolUses:   uses,
		Usage:      usageOf(msg.Usage),
		StopReason: string(msg.StopReason),
		Model:      string(msg.Model),
	}
}

func usageOf(u anthropic.Usage) types.TokenUsage {
	return types.TokenUsage{InputTokens: int(u.InputTokens), OutputTokens: int(u.OutputTokens)}
}

func normalizeInput(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("{}")
	}
	return append(json.RawMessage(nil), raw...)
}

// mapError 将 SDK 错误映射为统一错误，未知错误交给 llm.ClassifyError
func (p *ClaudeProvider) mapError(err error) *types.Error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return mapClaudeError(apiErr.StatusCode, err, p.Name())
	}
	return llm.ClassifyError(p.Name(), err)
}

func mapClaudeError(status int, cause error, provider string) *types.Error {
	// Claude 错误码映射
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		529: // Claude 特有的过载状态码
		return types.NewProviderError(provider, true, cause)
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return types.NewProviderError(provider, false, cause)
	default:
		return types.NewProviderError(provider, status >= 500, cause)
	}
}
