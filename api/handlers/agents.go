package handlers

import (
	"net/http"
	"strings"

	"github.com/BaSui01/agentorch/orchestrator"
	"github.com/BaSui01/agentorch/types"
	"github.com/BaSui01/agentorch/workflow"
	"go.uber.org/zap"
)

// =============================================================================
// 🤖 Agent Handler
// =============================================================================

// AgentHandler 单 Agent 执行与目录查询
type AgentHandler struct {
	orch   *orchestrator.Orchestrator
	logger *zap.Logger
}

// AgentInfo API 返回的 Agent 信息
type AgentInfo struct {
	Name         string           `json:"name"`
	Description  string           `json:"description,omitempty"`
	Provider     types.ProviderID `json:"provider"`
	Model        string           `json:"model,omitempty"`
	Capabilities []string         `json:"capabilities,omitempty"`
	Tools        []string         `json:"tools,omitempty"`
}

// AgentExecuteRequest 单 Agent 执行请求
type AgentExecuteRequest struct {
	AgentName string         `json:"agentName"`
	Prompt    string         `json:"prompt"`
	Context   map[string]any `json:"context,omitempty"`
}

// Validate 检查必填字段
func (r AgentExecuteRequest) Validate() error {
	if strings.TrimSpace(r.AgentName) == "" || strings.TrimSpace(r.Prompt) == "" {
		return types.NewValidationError("agentName and prompt are required")
	}
	return nil
}

// AgentExecuteResponse 单 Agent 执行响应；Success 反映 Agent 本身是否成功
type AgentExecuteResponse struct {
	Success bool                `json:"success"`
	Result  workflow.TaskResult `json:"result"`
}

// NewAgentHandler 创建 Agent 处理器
func NewAgentHandler(orch *orchestrator.Orchestrator, logger *zap.Logger) *AgentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentHandler{
		orch:   orch,
		logger: logger.With(zap.String("handler", "agents")),
	}
}

// HandleListAgents 列出 Agent，支持 ?capability=、?provider=、?task= 过滤
// @Summary 列出 Agent
// @Tags Agent
// @Produce json
// @Param capability query string false "能力标签"
// @Param provider query string false "模型提供方"
// @Param task query string false "任务类型（返回推荐 Agent）"
// @Success 200 {object} Response{data=[]AgentInfo}
// @Router /api/v1/agents [get]
func (h *AgentHandler) HandleListAgents(w http.ResponseWriter, r *http.Request) {
	reg := h.orch.Agents()
	q := r.URL.Query()

	var configs []types.AgentConfig
	switch {
	case q.Get("task") != "":
		configs = reg.Recommend(q.Get("task"))
	case q.Get("capability") != "":
		configs = reg.FilterByCapability(q.Get("capability"))
	case q.Get("provider") != "":
		configs = reg.FilterByProvider(types.ProviderID(q.Get("provider")))
	default:
		configs = reg.List()
	}

	infos := make([]AgentInfo, 0, len(configs))
	for _, cfg := range configs {
		infos = append(infos, toAgentInfo(cfg))
	}
	WriteSuccess(w, infos)
}

// HandleGetAgent 返回单个 Agent，路径参数 {name}
// @Summary 查询 Agent
// @Tags Agent
// @Produce json
// @Param name path string true "Agent 名称"
// @Success 200 {object} Response{data=AgentInfo}
// @Failure 404 {object} Response
// @Router /api/v1/agents/{name} [get]
func (h *AgentHandler) HandleGetAgent(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.orch.Agents().Lookup(r.PathValue("name"))
	if err != nil {
		WriteAnyError(w, err, h.logger)
		return
	}
	WriteSuccess(w, toAgentInfo(cfg))
}

// HandleCapabilities 列出所有能力标签
// @Summary 能力标签
// @Tags Agent
// @Produce json
// @Success 200 {object} Response{data=[]string}
// @Router /api/v1/agents/capabilities [get]
func (h *AgentHandler) HandleCapabilities(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, h.orch.Agents().Capabilities())
}

// HandleExecute 同步执行单个 Agent。Agent 自身失败以 200 + success=false 返回
// @Summary 执行 Agent
// @Tags Agent
// @Accept json
// @Produce json
// @Param request body AgentExecuteRequest true "执行请求"
// @Success 200 {object} Response{data=AgentExecuteResponse}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /api/v1/agents/execute [post]
func (h *AgentHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req AgentExecuteRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if err := req.Validate(); err != nil {
		WriteAnyError(w, err, h.logger)
		return
	}

	res, err := h.orch.ExecuteAgent(r.Context(), req.AgentName, req.Prompt, req.Context)
	if err != nil {
		WriteAnyError(w, err, h.logger)
		return
	}
	if !res.Success {
		h.logger.Info("agent execution failed",
			zap.String("agent", req.AgentName),
			zap.String("kind", string(res.ErrorKind())),
			zap.Int("attempts", res.Attempts),
		)
	}
	WriteSuccess(w, AgentExecuteResponse{Success: res.Success, Result: res})
}

func toAgentInfo(cfg types.AgentConfig) AgentInfo {
	info := AgentInfo{
		Name:         cfg.Name,
		Description:  cfg.Description,
		Provider:     cfg.Provider,
		Model:        cfg.Model,
		Capabilities: cfg.Capabilities,
	}
	for _, t := range cfg.Tools {
		info.Tools = append(info.Tools, t.Name)
	}
	return info
}
