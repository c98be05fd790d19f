// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供 HTTP/HTTPS 服务器生命周期管理，支持非阻塞启动、
优雅关闭与上下文驱动的停机。

# 核心类型

  - Manager：持有 http.Server、net.Listener 与异步错误通道，
    提供 Start/Shutdown/Wait 等生命周期方法。API 服务与指标
    服务各用一个 Manager。
  - Config：监听地址、读写超时、空闲超时、最大请求头大小、
    优雅关闭超时与可选的 TLS 证书。

# 主要能力

  - 非阻塞启动：Start 在后台 goroutine 中运行服务；配置证书后
    使用 tlsutil 的加固配置以 HTTPS 监听。
  - 优雅关闭：Shutdown 在配置的超时内完成请求排空与连接释放。
  - 停机等待：Wait 在上下文取消（通常来自信号）或服务异常退出时
    触发关闭。
  - 地址查询：ListenAddr 返回实际绑定地址，便于 ":0" 场景。
*/
package server
