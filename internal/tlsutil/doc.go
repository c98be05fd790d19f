// Package tlsutil 为 HTTPS 监听与健康探测客户端提供统一的 TLS 配置。
package tlsutil
