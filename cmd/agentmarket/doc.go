// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package main 提供 AgentMarket 检索服务的程序入口。

# 概述

cmd/agentmarket 把检索门面、记录存储和 HTTP API 装配成一个可执行程序，
提供 serve、seed、migrate、health、version 子命令。配置按
默认值 → YAML → AGENTMARKET_* 环境变量 的顺序加载，日志使用 zap。

# 核心类型

  - Server      : 主服务器，管理 API 与 Metrics 双端口、配置监听及优雅关闭
  - Middleware  : HTTP 中间件函数签名 func(http.Handler) http.Handler
  - storeBundle : 已打开的记录存储及其就绪检查与关闭函数

# 主要能力

  - 存储后端：memory、sql（GORM + 版本化迁移）、mongo，可选 Redis 读穿缓存
  - 中间件链：Recovery、RequestID、SecurityHeaders、RequestLogger、
    OTelTracing、MetricsMiddleware、CORS、RateLimiter、JWTAuth、APIKeyAuth
  - 配置监听：文件变更时热更新日志级别
  - Metrics 服务器：独立端口暴露 /metrics（Prometheus）
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
