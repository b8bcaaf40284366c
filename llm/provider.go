package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/BaSui01/agentorch/types"
)

// Request 是一次模型调用的完整输入：Agent 配置 + 渲染后的 prompt + 合并后的 context。
type Request struct {
	Agent   types.AgentConfig `json:"agent"`
	Prompt  string            `json:"prompt"`
	Context map[string]any    `json:"context,omitempty"`
}

// NewRequest 构造请求，context 为空时不附加 Context 段落。
func NewRequest(agent types.AgentConfig, prompt string, ctx map[string]any) *Request {
	return &Request{Agent: agent, Prompt: prompt, Context: ctx}
}

// UserMessage 返回发送给模型的用户消息。
// 非空 context 以缩进 JSON 形式放在任务之前："Context: {...}\n\nTask: <prompt>"。
func (r *Request) UserMessage() string {
	if len(r.Context) == 0 {
		return r.Prompt
	}
	raw, err := json.MarshalIndent(r.Context, "", "  ")
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", r.Context))
	}
	return "Context: " + string(raw) + "\n\nTask: " + r.Prompt
}

// Cacheable 带工具声明的请求可能触发外部副作用，不参与缓存。
func (r *Request) Cacheable() bool {
	return len(r.Agent.Tools) == 0
}

// Completion 是同步调用的结果。
type Completion struct {
	Text       string                 `json:"text"`
	ToolUses   []types.ToolInvocation `json:"tool_uses,omitempty"`
	Usage      types.TokenUsage       `json:"usage"`
	StopReason string                 `json:"stop_reason,omitempty"`
	Model      string                 `json:"model,omitempty"`
}

// RawEventType 流式原始事件类型。
type RawEventType string

const (
	RawText  RawEventType = "text"
	RawTool  RawEventType = "tool"
	RawDone  RawEventType = "done"
	RawError RawEventType = "error"
)

// RawEvent 是 Provider 流式输出的一个原始事件。
// Provider 必须在 RawDone 或 RawError 之后关闭 channel。
type RawEvent struct {
	Type       RawEventType          `json:"type"`
	Text       string                `json:"text,omitempty"`
	Tool       *types.ToolInvocation `json:"tool,omitempty"`
	Usage      types.TokenUsage      `json:"usage,omitempty"`
	StopReason string                `json:"stop_reason,omitempty"`
	Err        error                 `json:"-"`
}

// Provider 模型提供者接口。
type Provider interface {
	// Name 返回 Provider 名称，用于日志与错误归因。
	Name() string

	// Invoke 同步调用模型。
	Invoke(ctx context.Context, req *Request) (*Completion, error)

	// InvokeStreaming 打开一个流式调用。ctx 取消后 Provider 必须释放连接并关闭 channel。
	InvokeStreaming(ctx context.Context, req *Request) (<-chan RawEvent, error)
}

// ClassifyError 将任意错误归类为 TimeoutError / Cancelled / ProviderError。
// 已经是 *types.Error 的错误原样返回。
func ClassifyError(provider string, err error) *types.Error {
	if err == nil {
		return nil
	}
	if e, ok := types.AsError(err); ok {
		return e
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return types.NewTimeoutError("model invocation timed out").WithProvider(provider).WithCause(err)
	case errors.Is(err, context.Canceled):
		return types.NewCancelledError(err).WithProvider(provider)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.NewTimeoutError("model connection timed out").WithProvider(provider).WithCause(err)
	}
	// 未知错误多为网络抖动，按可重试处理
	return types.NewProviderError(provider, true, err)
}
