// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package workflow 提供任务分解后的工作流容器、约束检查与结果聚合。

# 概述

一个被分解的任务对应一个 Workflow：它持有有序的子任务集合与约束集合，
在规划周期中把子任务的分配结果汇总为父任务的结果，并检测约束违反。
子任务通过 task.Board 按 ID 解析，Workflow 不持有任务指针。

# 核心接口与类型

  - Workflow          - 子任务与约束容器，容器操作由互斥锁保护
  - Constraint        - 两个可度量事件之间的顺序/偏移关系
  - ConstraintEvent   - TaskEvent（任务结果中的某个 aspect）或
    AbsoluteEvent（绝对值）
  - Aggregator        - Calculate(workflow, index, previous) 聚合策略接口
  - DefaultAggregator - 按 aspect 类型合并的默认策略
  - VectorAggregator  - 基于稀疏向量、按资产分组的策略
  - NoopAggregator    - 占位策略，总是返回 nil
  - Definition        - 工作流的 JSON / YAML 声明式描述

# 约束语义

令 diff = constrained - constraining + offset：

  - Before（LessThan）     diff > 0 时违反
  - After（GreaterThan）   diff < 0 时违反
  - Coincident（EqualTo）  diff != 0 时违反

约束方的值未知时约束不适用；被约束方的值未知时视为待定（违反）。
两端 aspect 必须相同或同为时间型，在 AddConstraint 时校验。

# 聚合语义

任一子任务尚无结果时聚合返回 nil；与上一次结果相比没有变化时
原样返回上一次的结果引用，调用方可以据此跳过重新发布。
*/
package workflow
