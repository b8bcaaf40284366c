// Copyright (c) AgentOrch Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 AgentOrch HTTP API 的请求处理器实现。

# 概述

handlers 包把编排器的能力暴露为 HTTP 端点：单 Agent 同步执行、
SSE/WebSocket 流式执行、工作流执行与库查询、账本指标以及健康检查。
所有 Handler 均遵循标准 net/http 接口，路由使用 Go 1.22 ServeMux 模式。

# 核心类型

  - AgentHandler     — Agent 目录（能力、提供方、任务推荐过滤）与同步执行
  - StreamHandler    — 流式执行，SSE 与 WebSocket 共用 start/content/tool/end/complete/error 帧
  - WorkflowHandler  — 工作流库列表、按名称或临时模板执行、运行中工作流
  - MetricsHandler   — 账本快照与展示用派生字段
  - HealthHandler    — /health、/healthz、/ready、/version
  - Response         — 统一 JSON 响应结构（success + data + error + timestamp）

# 错误约定

校验、未知 Agent/工作流与结构错误以 4xx 返回；Agent 或任务本身的失败
属于执行结果，以 200 返回并在结果中标记 success=false。
流式端点在写出 SSE 头之前完成校验，之后的失败只能以 error 帧报告。
*/
package handlers
