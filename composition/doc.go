// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package composition 提供多父任务组合与结果分配。

# 概述

Composition 是工作流分解的逆操作：多个父任务被合并为一个组合任务，
组合任务得到分配结果后，由 Distributor 拆分回各个父任务。

# 核心类型

  - Composition        - 组合簿记，持有组合任务与 Aggregation 列表
  - Aggregation        - 父任务与其结果份额，发布在 Board 上
  - Distributor        - Distribute(parents, aggregate) 分配策略接口
  - DefaultDistributor - cost 与 quantity 平均拆分，其余原样复制

# 生命周期

Aggregation 从 Board 上移除时：

  - propagating=true  原子标记保证级联只执行一次，撤销全部兄弟
    Aggregation 与组合任务，即使每次移除都会重入同一个回调
  - propagating=false 只裁剪该 Aggregation 与组合任务中对应的父任务，
    父任务列表为空时撤销组合任务

父任务从 Board 上移除等同于撤销其 Aggregation。
*/
package composition
