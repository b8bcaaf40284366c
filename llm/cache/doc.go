// 版权所有 2024 AgentOrch Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供模型补全的两级缓存：进程内过期 LRU 作为 L1，Redis 作为可选 L2。

# 概述

同一 Agent、同一 prompt 与 context 的重复调用可以直接复用补全结果。
缓存键由 provider、model、system prompt、采样参数与最终用户消息的
SHA-256 前缀构成。带工具声明的请求可能触发外部副作用，不参与缓存。

# 核心类型

  - CompletionCache：Get / Set / Len
  - Key：请求到缓存键的映射
  - Dial：按 RedisConfig 建立并校验 Redis 连接
*/
package cache
