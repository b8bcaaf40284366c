// Copyright (c) AgentOrch Authors.
// Licensed under the MIT License.

/*
Package main 提供 AgentOrch 服务端程序入口。

# 概述

cmd/agentorch 是多 Agent 工作流编排服务的可执行入口，提供 HTTP API、
SSE / WebSocket 流式执行、健康检查和版本查询等子命令。程序支持 YAML
配置文件与 .env 加载、结构化日志（zap）、Prometheus 指标、OpenTelemetry
追踪以及 Agent / 工作流库文件热重载。

# 核心类型

  - Server      — 组装编排器、API 与 Metrics 双端口，负责运行与资源释放
  - Middleware  — HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 子命令：serve（启动服务）、version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、OTelTracing、
    RequestLogger（含 HTTP 指标）、CORS、RateLimiter（基于 IP）
  - 库文件热重载：LibraryWatcher 监听变更，校验通过后原子替换快照
  - Metrics 服务器：独立端口暴露 /metrics（Prometheus）
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
