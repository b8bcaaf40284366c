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
// 🔀 Workflow Handler
// =============================================================================

// WorkflowHandler 工作流执行与库查询
type WorkflowHandler struct {
	orch   *orchestrator.Orchestrator
	logger *zap.Logger
}

// WorkflowInfo 工作流库条目
type WorkflowInfo struct {
	Type              string   `json:"type"`
	Description       string   `json:"description,omitempty"`
	TaskCount         int      `json:"taskCount"`
	RequiredVariables []string `json:"requiredVariables"`
}

// WorkflowListResponse 工作流库列表
type WorkflowListResponse struct {
	Workflows  []WorkflowInfo `json:"workflows"`
	TotalCount int            `json:"totalCount"`
}

// WorkflowExecuteRequest 工作流执行请求。WorkflowType 引用库中模板，
// Template 提交临时模板，二者取其一。
type WorkflowExecuteRequest struct {
	WorkflowType string             `json:"workflowType,omitempty"`
	Template     *workflow.Template `json:"template,omitempty"`
	Variables    workflow.Variables `json:"variables,omitempty"`
}

// Validate 检查二选一约束
func (r WorkflowExecuteRequest) Validate() error {
	hasType := strings.TrimSpace(r.WorkflowType) != ""
	switch {
	case !hasType && r.Template == nil:
		return types.NewValidationError("workflowType is required")
	case hasType && r.Template != nil:
		return types.NewValidationError("workflowType and template are mutually exclusive")
	}
	return nil
}

// WorkflowExecuteResponse 工作流执行响应
type WorkflowExecuteResponse struct {
	Success bool             `json:"success"`
	Result  *workflow.Result `json:"result"`
}

// NewWorkflowHandler 创建工作流处理器
func NewWorkflowHandler(orch *orchestrator.Orchestrator, logger *zap.Logger) *WorkflowHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkflowHandler{
		orch:   orch,
		logger: logger.With(zap.String("handler", "workflows")),
	}
}

// HandleList 列出工作流库
// @Summary 工作流库
// @Tags Workflow
// @Produce json
// @Success 200 {object} Response{data=WorkflowListResponse}
// @Router /api/v1/workflows [get]
func (h *WorkflowHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	templates := h.orch.Library().List()
	out := WorkflowListResponse{
		Workflows:  make([]WorkflowInfo, 0, len(templates)),
		TotalCount: len(templates),
	}
	for _, t := range templates {
		required := t.RequiredVariables()
		if required == nil {
			required = []string{}
		}
		out.Workflows = append(out.Workflows, WorkflowInfo{
			Type:              t.Name,
			Description:       t.Description,
			TaskCount:         len(t.Tasks),
			RequiredVariables: required,
		})
	}
	WriteSuccess(w, out)
}

// HandleActive 列出运行中的工作流
// @Summary 运行中的工作流
// @Tags Workflow
// @Produce json
// @Success 200 {object} Response{data=[]metrics.ActiveWorkflow}
// @Router /api/v1/workflows/active [get]
func (h *WorkflowHandler) HandleActive(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, h.orch.ListWorkflows())
}

// HandleExecute 执行工作流。任务失败体现在结果中；结构错误返回 400，未知工作流返回 404
// @Summary 执行工作流
// @Tags Workflow
// @Accept json
// @Produce json
// @Param request body WorkflowExecuteRequest true "执行请求"
// @Success 200 {object} Response{data=WorkflowExecuteResponse}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /api/v1/workflows/execute [post]
func (h *WorkflowHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req WorkflowExecuteRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if err := req.Validate(); err != nil {
		WriteAnyError(w, err, h.logger)
		return
	}

	var (
		res *workflow.Result
		err error
	)
	if req.Template != nil {
		res, err = h.orch.ExecuteWorkflow(r.Context(), *req.Template, req.Variables)
	} else {
		res, err = h.orch.ExecuteWorkflowByName(r.Context(), req.WorkflowType, req.Variables)
	}
	if err != nil {
		WriteAnyError(w, err, h.logger)
		return
	}

	h.logger.Info("workflow executed",
		zap.String("workflow", res.WorkflowName),
		zap.String("execution_id", res.ExecutionID),
		zap.String("state", string(res.State)),
		zap.Int64("duration_ms", res.TotalDurationMs),
	)
	WriteSuccess(w, WorkflowExecuteResponse{Success: res.Success, Result: res})
}
