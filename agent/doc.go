// Copyright 2024 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package agent 驱动规划 agent 的周期：在黑板上重新聚合工作流、
回写变化的聚合结果、收集被违反的约束，并把组合任务的结果分发给父任务。

# 概述

Planner 属于一个 agent，持有该 agent 注册的工作流与组合任务。每次
Cycle 会：

  - 对每个工作流调用 AggregateAllocationResults，聚合结果引用变化时
    写入父任务并在黑板上发布变更，同时持久化到 store.ResultStore
  - 为每个被违反的约束给出满足约束所需的值与被约束任务的偏好值
  - 对每个组合任务计算分发表，持久化发生变化的父任务份额

存储失败不会中断周期，所有失败合并为周期返回的错误。

# 运行器

Runner 为每个 Planner 启动一个 goroutine（errgroup），按间隔执行周期，
并用 rate.Limiter 限制每个 agent 的周期频率。间隔、限流、聚合策略与
级联模式可以通过 config.Reloader 热更新。

# 可观测性

周期以 "planner.cycle" span 记录到 OpenTelemetry，指标通过
internal/metrics.Collector 上报到 Prometheus。
*/
package agent
