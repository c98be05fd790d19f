// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 AgentMarket 各层共享的结构化错误类型。

# 概述

types 不依赖任何内部包。HTTP 层把检索服务返回的哨兵错误翻译为
Error，再由统一响应信封输出 code 与 message。

# 核心类型

  - ErrorCode: 错误码枚举，HTTPStatus 给出默认 HTTP 状态码
  - Error    : 含错误码、消息、HTTP 状态码、Retryable 标记与 cause 的错误

# 主要能力

  - 链式构造：NewError(...).WithCause(...).WithRetryable(...)
  - 错误提取：AsError / GetErrorCode / IsRetryable，均沿 errors.As 链查找
*/
package types
