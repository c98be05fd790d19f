// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 agentmarket 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertResultIDs / AssertJSONEqual
  - 数据工具: ResultIDs / MustParseJSON / WaitFor

# 子包

  - testutil/mocks: MockRecordStore，支持错误注入与调用计数
  - testutil/fixtures: 确定性的目录记录样例

# 使用示例

	ctx := testutil.TestContext(t)
	store := mocks.NewMockRecordStore(fixtures.Records()...).WithQueryError(errBoom)
	svc := discovery.NewSearchService(store, nil, zap.NewNop())
	results, _ := svc.Search(ctx, discovery.NewSearchQuery("nlp"))
	testutil.AssertResultIDs(t, nil, results)
*/
package testutil
