// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 PlanFlow 测试的共享工具和辅助函数。

# 概述

testutil 包为各包的单元测试提供统一的辅助能力，避免重复实现
相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 结果断言: AssertResultsEqual / AssertAspect / AssertJSONEqual
  - 异步断言: AssertEventuallyTrue / WaitFor / WaitForChannel

# 子包

  - testutil/mocks: MockResultStore（store.ResultStore），支持错误注入
    与调用计数
  - testutil/fixtures: 预置分配结果（TimedResult、FailedResult、
    PhasedResult）、任务与黑板

# 使用示例

	ctx := testutil.TestContext(t)
	s := mocks.NewMockResultStore()
	board := fixtures.BoardWith(fixtures.Task("load", fixtures.TimedResult(0, 10, 5)))
*/
package testutil
