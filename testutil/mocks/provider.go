// MockProvider 的模型提供者测试模拟实现。
//
// 支持固定响应、按 Agent 响应、流式输出、延迟与错误注入场景。
package mocks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BaSui01/agentorch/llm"
	"github.com/BaSui01/agentorch/types"
)

// --- MockProvider 结构 ---

// MockProvider 是 llm.Provider 的模拟实现
type MockProvider struct {
	mu sync.RWMutex

	// 响应配置
	response     string
	byAgent      map[string]string
	errByAgent   map[string]error
	streamEvents []llm.RawEvent
	toolUses     []types.ToolInvocation
	err          error
	usage        types.TokenUsage

	// 调用记录
	calls          []MockProviderCall
	completionFunc func(ctx context.Context, req *llm.Request) (*llm.Completion, error)
	streamFunc     func(ctx context.Context, req *llm.Request) (<-chan llm.RawEvent, error)

	// 行为控制
	delay     time.Duration
	failTimes int // 前 N 次调用失败
	callCount int

	inflight    atomic.Int32
	maxInflight atomic.Int32
	streams     atomic.Int32
}

// MockProviderCall 记录单次调用
type MockProviderCall struct {
	Request  *llm.Request
	Started  time.Time
	Finished time.Time
	Error    error
}

// --- 构造函数和 Builder 方法 ---

// NewMockProvider 创建新的 MockProvider
func NewMockProvider() *MockProvider {
	return &MockProvider{
		response:   "Mock response",
		byAgent:    make(map[string]string),
		errByAgent: make(map[string]error),
		usage:      types.TokenUsage{InputTokens: 10, OutputTokens: 20},
	}
}

// WithResponse 设置固定响应内容
func (m *MockProvider) WithResponse(response string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
	return m
}

// WithAgentResponse 为指定 Agent 设置响应
func (m *MockProvider) WithAgentResponse(agent, response string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byAgent[agent] = response
	return m
}

// WithAgentError 让指定 Agent 的调用始终失败
func (m *MockProvider) WithAgentError(agent string, err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errByAgent[agent] = err
	return m
}

// WithError 设置返回错误
func (m *MockProvider) WithError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithFailTimes 前 n 次调用返回 err，之后正常响应
func (m *MockProvider) WithFailTimes(n int, err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failTimes = n
	m.err = err
	return m
}

// WithStreamEvents 设置流式原始事件；未以 RawDone/RawError 结尾时通道直接关闭
func (m *MockProvider) WithStreamEvents(events ...llm.RawEvent) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamEvents = events
	return m
}

// WithToolUses 设置工具调用响应
func (m *MockProvider) WithToolUses(uses ...types.ToolInvocation) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toolUses = uses
	return m
}

// WithTokenUsage 设置 Token 使用量
func (m *MockProvider) WithTokenUsage(input, output int) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage = types.TokenUsage{InputTokens: input, OutputTokens: output}
	return m
}

// WithDelay 设置响应延迟
func (m *MockProvider) WithDelay(d time.Duration) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithCompletionFunc 设置自定义 Invoke 函数
func (m *MockProvider) WithCompletionFunc(fn func(ctx context.Context, req *llm.Request) (*llm.Completion, error)) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completionFunc = fn
	return m
}

// WithStreamFunc 设置自定义 InvokeStreaming 函数
func (m *MockProvider) WithStreamFunc(fn func(ctx context.Context, req *llm.Request) (<-chan llm.RawEvent, error)) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamFunc = fn
	return m
}

// --- Provider 接口实现 ---

// Name 返回 Provider 名称
func (m *MockProvider) Name() string {
	return string(types.ProviderMock)
}

// Invoke 生成响应
func (m *MockProvider) Invoke(ctx context.Context, req *llm.Request) (*llm.Completion, error) {
	cur := m.inflight.Add(1)
	defer m.inflight.Add(-1)
	for {
		prev := m.maxInflight.Load()
		if cur <= prev || m.maxInflight.CompareAndSwap(prev, cur) {
			break
		}
	}

	call := MockProviderCall{Request: req, Started: time.Now()}

	m.mu.Lock()
	m.callCount++
	n := m.callCount
	delay := m.delay
	fn := m.completionFunc
	err := m.err
	if m.failTimes > 0 && n > m.failTimes {
		err = nil
	}
	if agentErr, ok := m.errByAgent[req.Agent.Name]; ok {
		err = agentErr
	}
	text, ok := m.byAgent[req.Agent.Name]
	if !ok {
		text = m.response
	}
	completion := &llm.Completion{
		Text:       text,
		ToolUses:   append([]types.ToolInvocation(nil), m.toolUses...),
		Usage:      m.usage,
		StopReason: "end_turn",
		Model:      req.Agent.Model,
	}
	m.mu.Unlock()

	record := func(err error) {
		call.Finished = time.Now()
		call.Error = err
		m.mu.Lock()
		m.calls = append(m.calls, call)
		m.mu.Unlock()
	}

	if delay > 0 {
		select {
		case <-ctx.Done():
			record(ctx.Err())
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if fn != nil {
		c, ferr := fn(ctx, req)
		record(ferr)
		return c, ferr
	}
	if err != nil {
		record(err)
		return nil, err
	}
	record(nil)
	return completion, nil
}

// InvokeStreaming 流式生成响应
func (m *MockProvider) InvokeStreaming(ctx context.Context, req *llm.Request) (<-chan llm.RawEvent, error) {
	m.streams.Add(1)

	m.mu.Lock()
	m.callCount++
	m.calls = append(m.calls, MockProviderCall{Request: req, Started: time.Now()})
	fn := m.streamFunc
	err := m.err
	delay := m.delay
	events := append([]llm.RawEvent(nil), m.streamEvents...)
	if len(events) == 0 {
		events = []llm.RawEvent{
			{Type: llm.RawText, Text: m.response},
			{Type: llm.RawDone, Usage: m.usage, StopReason: "end_turn"},
		}
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	ch := make(chan llm.RawEvent)
	go func() {
		defer close(ch)
		for _, ev := range events {
			if delay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(delay):
				}
			}
			select {
			case <-ctx.Done():
				return
			case ch <- ev:
			}
		}
	}()
	return ch, nil
}

// --- 查询方法 ---

// Calls 返回调用记录副本
func (m *MockProvider) Calls() []MockProviderCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]MockProviderCall(nil), m.calls...)
}

// CallCount 返回调用次数
func (m *MockProvider) CallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.callCount
}

// CallsFor 返回指定 Agent 的调用记录
func (m *MockProvider) CallsFor(agent string) []MockProviderCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []MockProviderCall
	for _, c := range m.calls {
		if c.Request.Agent.Name == agent {
			out = append(out, c)
		}
	}
	return out
}

// MaxInflight 返回观测到的最大并发调用数
func (m *MockProvider) MaxInflight() int {
	return int(m.maxInflight.Load())
}

// StreamCount 返回流式调用次数
func (m *MockProvider) StreamCount() int {
	return int(m.streams.Load())
}

// Reset 清空调用记录
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.callCount = 0
	m.maxInflight.Store(0)
	m.streams.Store(0)
}

// ErrMockProvider 通用的模拟失败
var ErrMockProvider = errors.New("mock provider failure")
