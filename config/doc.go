// Copyright (c) AgentOrch Authors.
// Licensed under the MIT License.

// Package config 提供 AgentOrch 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → AGENTORCH_ 环境变量 的顺序加载，
// .env 文件通过 LoadDotEnv 预先注入环境。LibraryWatcher 监听
// Agent 与工作流库文件，变更后触发重载回调。
package config
