// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 PlanFlow 规划 agent 的命令行入口。

# 概述

cmd/planflow 基于 cobra 组织子命令，负责加载 YAML 配置、初始化 zap 日志、
OpenTelemetry、结果存储与 Prometheus 指标，然后运行规划周期。

# 子命令

  - run：加载 planner.workflows 中的工作流定义，恢复持久化的聚合结果，
    按配置的间隔运行规划周期，直到收到 SIGINT/SIGTERM
  - check -f plan.yaml：在空黑板上构建工作流定义并打印聚合结果与
    被违反的约束，存在违反时退出码为 1
  - migrate：通过 internal/migration 管理 sql 结果存储的表结构
  - version：显示版本信息

# 运行时

  - Metrics 服务器：metrics.listen_addr 上暴露 /metrics 与 /health
  - 配置热重载：config.Reloader 监听配置文件，更新周期间隔、限流、
    聚合策略与级联模式
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
