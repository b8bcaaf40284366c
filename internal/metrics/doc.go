// 版权所有 2024 AgentOrch Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供工作流账本与基于 Prometheus 的指标采集能力。

# 概述

Ledger 是进程级的工作流执行记录：追加由互斥锁串行化，聚合视图
通过 atomic.Pointer 发布，Snapshot 读取无需加锁。Collector 通过
promauto 注册 Prometheus 指标，并作为 Ledger 的 WorkflowSink 与
执行器的 TaskObserver 接入。

# 核心类型

  - Ledger：记录工作流摘要、活跃工作流与单 Agent 执行计数。
  - Snapshot：总工作流数、成功率、平均耗时、平均任务数。
  - Collector：HTTP、任务、Token、工作流与流式会话指标。

# 主要能力

  - 同一 ExecutionID 只记录一次，空账本成功率为 0。
  - 活跃工作流按开始时间列出，附带已完成任务数。
  - HTTP 状态码归类为 2xx/3xx/4xx/5xx。
*/
package metrics
