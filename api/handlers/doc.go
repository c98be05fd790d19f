// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package handlers 提供 AgentMarket HTTP API 的请求处理器实现。

# 概述

handlers 包把检索门面（discovery.SearchService）暴露为 REST 端点，
并提供健康检查以及统一的响应/错误处理。所有 Handler 均遵循标准
net/http 接口，路由使用 Go 1.22 ServeMux 的方法与路径参数模式。

# 核心类型

  - AgentHandler    : 检索、按能力排行、性价比排行、单条查询、Agent Card、逐级放宽
  - HealthHandler   : 服务健康检查（/health, /healthz, /ready, /version）
  - Response        : 统一 JSON 响应结构（success + data + error + timestamp + request_id）
  - ErrorInfo       : 结构化错误信息，含 code、message、retryable 标记
  - ResponseWriter  : 包装 http.ResponseWriter 以捕获状态码与字节数
  - HealthCheck     : 可插拔健康检查接口，PingCheck 适配任意 ping 函数

# 错误映射

ToAPIError 把检索层哨兵错误映射为 API 错误码：

  - discovery.ErrInvalidQuery     → 400 INVALID_REQUEST
  - discovery.ErrNotFound         → 404 NOT_FOUND
  - discovery.ErrStoreUnavailable → 503 SERVICE_UNAVAILABLE
  - 其他                          → 500 INTERNAL_ERROR
*/
package handlers
