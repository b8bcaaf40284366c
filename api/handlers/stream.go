package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/BaSui01/agentorch/llm/streaming"
	"github.com/BaSui01/agentorch/orchestrator"
	"github.com/BaSui01/agentorch/types"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// wsReadTimeout 等待 WebSocket 客户端发送首条请求的时间
const wsReadTimeout = 10 * time.Second

// =============================================================================
// 🌊 Stream Handler
// =============================================================================

// Frame types on the wire. start 和 complete 由传输层补充，其余来自会话事件。
const (
	FrameStart    = "start"
	FrameContent  = "content"
	FrameTool     = "tool"
	FrameEnd      = "end"
	FrameComplete = "complete"
	FrameError    = "error"
)

// StreamFrame 是 SSE 与 WebSocket 共用的帧格式
type StreamFrame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// StreamErrorData error 帧的数据
type StreamErrorData struct {
	Code      types.ErrorCode `json:"code,omitempty"`
	Message   string          `json:"message"`
	Retryable bool            `json:"retryable,omitempty"`
}

// StreamHandler 以 SSE 或 WebSocket 推送单 Agent 的流式执行
type StreamHandler struct {
	orch           *orchestrator.Orchestrator
	originPatterns []string
	logger         *zap.Logger
}

// StreamHandlerOption 配置 StreamHandler
type StreamHandlerOption func(*StreamHandler)

// WithOriginPatterns 设置 WebSocket 允许的跨域 Origin（websocket.AcceptOptions.OriginPatterns）
func WithOriginPatterns(patterns ...string) StreamHandlerOption {
	return func(h *StreamHandler) { h.originPatterns = patterns }
}

// NewStreamHandler 创建流式处理器
func NewStreamHandler(orch *orchestrator.Orchestrator, logger *zap.Logger, opts ...StreamHandlerOption) *StreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &StreamHandler{
		orch:   orch,
		logger: logger.With(zap.String("handler", "stream")),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleSSE 处理 POST /api/v1/agents/stream。
// 校验失败与未知 Agent 在写出 SSE 头之前以 JSON 错误返回。
// @Summary 流式执行 Agent (SSE)
// @Tags Agent
// @Accept json
// @Produce text/event-stream
// @Param request body AgentExecuteRequest true "执行请求"
// @Success 200 {string} string "SSE 帧流"
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /api/v1/agents/stream [post]
func (h *StreamHandler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	var req AgentExecuteRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if !h.precheck(w, req) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteErrorMessage(w, http.StatusInternalServerError, types.ErrInternalError, "streaming not supported", h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	send := func(_ context.Context, f StreamFrame) error {
		data, err := json.Marshal(f)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	h.pump(r.Context(), req, send)
}

// HandleWebSocket 处理 GET /api/v1/agents/stream/ws。
// 客户端先发送一条 AgentExecuteRequest JSON，随后服务端逐帧推送并正常关闭。
// @Summary 流式执行 Agent (WebSocket)
// @Tags Agent
// @Router /api/v1/agents/stream/ws [get]
func (h *StreamHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	readCtx, cancel := context.WithTimeout(r.Context(), wsReadTimeout)
	_, data, err := conn.Read(readCtx)
	cancel()
	if err != nil {
		h.logger.Debug("websocket read request failed", zap.Error(err))
		conn.Close(websocket.StatusPolicyViolation, "expected a request message")
		return
	}

	send := func(ctx context.Context, f StreamFrame) error {
		body, err := json.Marshal(f)
		if err != nil {
			return err
		}
		return conn.Write(ctx, websocket.MessageText, body)
	}

	var req AgentExecuteRequest
	if err := json.Unmarshal(data, &req); err != nil {
		_ = send(r.Context(), errorFrame(types.NewValidationError("invalid JSON request").WithCause(err)))
		conn.Close(websocket.StatusUnsupportedData, "invalid request")
		return
	}
	if err := h.validate(req); err != nil {
		_ = send(r.Context(), errorFrame(err))
		conn.Close(websocket.StatusPolicyViolation, string(err.Code))
		return
	}

	// CloseRead 在客户端断开时取消 ctx，从而取消会话
	ctx := conn.CloseRead(r.Context())
	h.pump(ctx, req, send)
	conn.Close(websocket.StatusNormalClosure, "")
}

// pump 依次发送 start、会话事件与 complete/error 帧
func (h *StreamHandler) pump(ctx context.Context, req AgentExecuteRequest, send func(context.Context, StreamFrame) error) {
	logger := h.logger.With(zap.String("agent", req.AgentName))

	if err := send(ctx, StreamFrame{Type: FrameStart, Data: map[string]string{
		"agentName": req.AgentName,
		"prompt":    req.Prompt,
	}}); err != nil {
		logger.Debug("client gone before start", zap.Error(err))
		return
	}

	session := h.orch.StreamAgentExecution(ctx, req.AgentName, req.Prompt, req.Context)
	defer session.Cancel()

	for {
		ev, ok := session.Next(ctx)
		if !ok {
			break
		}
		if err := send(ctx, eventFrame(ev)); err != nil {
			logger.Debug("client gone mid-stream", zap.Error(err))
			return
		}
		if ev.Kind == streaming.EventError {
			return
		}
	}

	if ctx.Err() != nil {
		return
	}
	if err := session.Err(); err != nil {
		_ = send(ctx, errorFrame(err))
		return
	}
	_ = send(ctx, StreamFrame{Type: FrameComplete, Data: map[string]time.Time{"timestamp": time.Now()}})
}

// precheck 写出 JSON 错误并返回 false
func (h *StreamHandler) precheck(w http.ResponseWriter, req AgentExecuteRequest) bool {
	if err := h.validate(req); err != nil {
		WriteError(w, err, h.logger)
		return false
	}
	return true
}

func (h *StreamHandler) validate(req AgentExecuteRequest) *types.Error {
	if err := req.Validate(); err != nil {
		e, _ := types.AsError(err)
		return e
	}
	if _, err := h.orch.Agents().Lookup(req.AgentName); err != nil {
		if e, ok := types.AsError(err); ok {
			return e
		}
		return types.NewError(types.ErrInternalError, "agent lookup failed").WithCause(err)
	}
	return nil
}

func eventFrame(ev streaming.Event) StreamFrame {
	switch ev.Kind {
	case streaming.EventContent:
		return StreamFrame{Type: FrameContent, Data: map[string]string{"text": ev.Text}}
	case streaming.EventTool:
		return StreamFrame{Type: FrameTool, Data: ev.Tool}
	case streaming.EventEnd:
		return StreamFrame{Type: FrameEnd, Data: map[string]any{
			"usage":        ev.Usage,
			"finishReason": ev.FinishReason,
		}}
	default:
		err := ev.Err
		if err == nil {
			err = types.NewError(types.ErrInternalError, "stream failed")
		}
		return errorFrame(err)
	}
}

func errorFrame(err *types.Error) StreamFrame {
	return StreamFrame{Type: FrameError, Data: StreamErrorData{
		Code:      err.Code,
		Message:   err.Message,
		Retryable: err.Retryable,
	}}
}
