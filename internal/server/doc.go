// Copyright (c) AgentOrch Authors.
// Licensed under the MIT License.

/*
包 server 提供 HTTP 服务器生命周期管理。

Manager 封装 net/http.Server：Start 非阻塞启动，Run 阻塞直到
context 结束后优雅关闭，适合与 errgroup 组合同时运行 API 服务与
Prometheus 指标服务。Errors() 暴露异步服务错误。流式接口需要长连接，
默认不设置写超时。
*/
package server
