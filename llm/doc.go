// 版权所有 2024 AgentOrch Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 定义编排器与模型服务之间的契约。

# 概述

核心接口是 [Provider]：Invoke 同步返回 [Completion]，InvokeStreaming 返回
[RawEvent] channel（文本增量、工具调用、结束/错误）。编排器把它当作一次
有延迟、可能失败、可以取消的远程调用。

# 子包

  - retry：指数退避 + 抖动的重试器，Task Executor 是唯一的重试点
  - cache：LRU + Redis 两级补全缓存（仅缓存不带工具的请求）
  - tokenizer：基于 tiktoken 的 Token 估算，用于 Provider 未返回 usage 的情况
  - streaming：流式会话，带背压与取消语义

# 错误分类

[ClassifyError] 将超时映射为 TIMEOUT_ERROR、调用方取消映射为 CANCELLED，
其余映射为 PROVIDER_ERROR。
*/
package llm
