// Copyright (c) AgentOrch Authors.
// Licensed under the MIT License.

/*
Package types 提供编排器的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 agent、workflow、llm、
orchestrator、api 等上层模块提供统一的类型契约。

# 核心类型

  - AgentConfig   — Agent 配置（provider、system prompt、温度、工具、能力标签）
  - ToolSchema    — 工具定义（name + description + JSON Schema input）
  - TokenUsage    — 输入/输出 Token 统计
  - Error         — 统一错误（ErrorCode + HTTPStatus + Retryable + Cause）

# 错误分类

VALIDATION_ERROR、NOT_FOUND（携带可用名称列表）、PROVIDER_ERROR、
TIMEOUT_ERROR、SKIPPED_DEPENDENCY_FAILURE、CANCELLED。
*/
package types
