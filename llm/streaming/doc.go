// 版权所有 2024 AgentOrch Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 streaming 将单个 Agent 调用驱动为惰性产生、带背压、可取消的事件序列。

# 概述

Streamer.Stream 只准备会话；第一次调用 Session.Next 时才打开 Provider
流式调用。生产者 goroutine 通过无缓冲通道逐个交付事件，消费者不取
下一个事件时生产者挂起，因此不会超前缓冲。

# 事件

  - content：增量文本，按 Provider 产生顺序交付。
  - tool：工具调用通知，位于其之前的 content 之后。
  - end：正常结束，携带 Token 用量与结束原因，恰好一次。
  - error：终止错误（Agent 不存在、Provider 失败、会话超时）。

# 取消

Session.Cancel 或 Next 的 ctx 结束后，会话立即停止转发、取消 Provider
上下文，之后 Next 始终返回 false，不会再交付任何事件（包括 end）。
*/
package streaming
