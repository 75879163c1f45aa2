// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供 planflow run 使用的运维 HTTP 服务。

# 概述

Manager 封装 net/http.Server 的监听、服务、关闭与错误传播。
NewHandler 构造两个只读路由：

  - GET /metrics：Prometheus 指标，来源于 HandlerOptions.Gatherer
  - GET /health：依次执行注册的健康检查，全部通过返回 200，
    否则返回 503 并在 JSON 中给出失败原因

# 主要能力

  - 非阻塞启动：Start 在后台 goroutine 中运行服务
  - 优雅关闭：Shutdown 在配置的超时内排空请求，重复调用为空操作
  - 错误传播：Errors() 返回异步错误通道
  - 请求指标：配置 Collector 后记录每个请求的状态与耗时
*/
package server
