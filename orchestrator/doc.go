// Copyright (c) AgentOrch Authors.
// Licensed under the MIT License.

/*
Package orchestrator 是工作流编排的统一入口。

# 概述

Orchestrator 持有 Agent 注册表与工作流库的原子快照，组合 workflow.Executor、
workflow.Scheduler 与 streaming.Streamer，对外提供单 Agent 执行、模板工作流执行、
流式执行和运行指标查询。库文件热重载通过 ReloadLibraries 原子替换快照，
已在运行的工作流不受影响。

# 核心方法

  - ExecuteAgent           — 执行单个 Agent，失败以 TaskResult 返回
  - ExecuteWorkflow        — 执行内联模板
  - ExecuteWorkflowByName  — 按名称执行库中的模板
  - StreamAgentExecution   — 返回按序产出事件的流式会话
  - ListWorkflows          — 当前运行中的工作流
  - ExportWorkflowMetrics  — 汇总指标快照
*/
package orchestrator
