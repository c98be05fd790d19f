// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package config 提供 AgentMarket 的配置管理功能。

配置按 默认值 → YAML 文件 → 环境变量 的顺序叠加，环境变量键由
前缀与各级 env 标签拼接而成，例如 AGENTMARKET_SEARCH_BROADENING_PRICE_FACTOR。

Watcher 轮询配置文件，防抖后重新加载并校验，仅在校验通过时
通知订阅者。服务进程用它在运行时调整日志级别。
*/
package config
