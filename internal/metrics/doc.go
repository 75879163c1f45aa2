// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的规划引擎指标采集能力，覆盖
规划周期、工作流聚合、约束、组合任务、结果存储与 HTTP 六个维度。

# 概述

Collector 通过 promauto.With 将全部指标注册到调用方提供的
Registerer，测试中可为每个用例创建独立的 prometheus.Registry。
所有指标按 namespace 隔离。

# 主要能力

  - 规划周期：周期总数（按 agent_id/status）与周期耗时
  - 聚合：按 aggregator/outcome（changed、unchanged、pending）计数
  - 约束：最近一次周期的违反数与待定数 Gauge
  - 组合任务：结果分发次数与级联移除的任务数
  - 结果存储：按 driver/operation 的操作计数与耗时，数据库连接池 Gauge
  - HTTP：/metrics 与 /health 的请求计数与耗时
*/
package metrics
