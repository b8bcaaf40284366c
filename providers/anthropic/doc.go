// Copyright (c) AgentOrch Authors.
// Licensed under the MIT License.

/*
Package claude 基于 anthropic-sdk-go 实现 llm.Provider。

同步调用走 Messages.New，流式调用走 Messages.NewStreaming，
流式事件被转换为 llm.RawEvent（text / tool / done / error）。
HTTP 状态码映射到统一的 ProviderError：429、5xx 与 529 可重试，
400、401、403、404 不可重试。
*/
package claude
