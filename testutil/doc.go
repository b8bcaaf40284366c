// Copyright 2026 AgentOrch Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 AgentOrch 测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 异步断言: AssertEventuallyTrue / WaitFor / WaitForChannel
  - 数据工具: MustJSON / MustParseJSON
  - 流式辅助: CollectRawEvents / SendRawEvents，用于 Provider 流式输出测试

# 子包

  - testutil/mocks: MockProvider，支持 Builder 模式、按 Agent 响应、
    延迟与错误注入，并记录调用时间与最大并发数
  - testutil/fixtures: 测试数据工厂，提供预置 Agent 配置与工具定义

# 使用示例

	ctx := testutil.TestContext(t)
	provider := mocks.NewMockProvider().WithResponse("hello")
	completion, err := provider.Invoke(ctx, llm.NewRequest(fixtures.DefaultAgentConfig(), "hi", nil))
	require.NoError(t, err)
*/
package testutil
