// Copyright (c) AgentOrch Authors.
// Licensed under the MIT License.

/*
Package workflow 提供工作流模板、变量注入、任务执行与依赖调度。

# 概述

工作流是一组绑定 Agent 的任务模板，任务之间通过 DependsOn 声明依赖。
Scheduler 先用 Kahn 拓扑排序校验依赖图（未知引用、自依赖、环均返回
ValidationError），再以有界并发按依赖顺序驱动 Executor 执行各任务。

# 核心接口与类型

  - Template / TaskSpec   — 工作流模板与任务定义
  - Library               — 只读的模板集合，从 YAML 加载
  - Graph                 — 以任务下标为节点的依赖图（arena + index）
  - Executor              — 单任务执行：解析 Agent、注入变量、超时与重试
  - Scheduler             — 依赖调度、失败传播、取消与账本上报
  - TaskResult / Result   — 任务与工作流结果

# 变量注入

Inject 单次从左到右扫描模板，将 {{key}} 替换为变量值；缺失的变量保留
占位符原文。依赖任务的输出以 {{dependencies.<taskId>}} 暴露给后续任务。
MergeContext 合并任务 context 与变量，任务级条目优先。

# 失败策略

任务失败不会中断工作流：依赖它的任务（传递地）被记录为
SKIPPED_DEPENDENCY_FAILURE 且从不启动，无关任务照常执行。
工作流状态 Pending -> Running -> {Succeeded, PartiallyFailed, Failed}。
*/
package workflow
