// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖 HTTP、检索、
缓存与数据库四个维度。

# 概述

Collector 通过 promauto.With 注册到指定的 Registerer，所有指标按
namespace 隔离。测试中可传入独立的 prometheus.Registry，避免重复注册。

# 核心类型

  - Collector：指标收集器，同时实现 discovery.SearchObserver、
    discovery.BroadeningObserver 与 cachestore.HitRecorder，
    可直接挂到检索服务与缓存层上。

# 主要能力

  - HTTP 指标：请求总数、请求耗时、响应体大小，
    按 method/path/status 分组，状态码归类为 2xx/3xx/4xx/5xx。
  - 检索指标：各检索操作的次数、耗时与结果数，被吸收的存储错误计数，
    以及放宽步骤计数。
  - 缓存指标：命中与未命中计数，按 cache_type（record/query）分组。
  - 数据库指标：打开/空闲连接数 Gauge，按 database 分组。
*/
package metrics
