// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package task 提供规划核心与外部任务层之间的窄接口。

# 概述

聚合、分配与约束检查只通过 Task 接口读取任务：标识、当前分配结果、
父任务列表与偏好值。任务之间通过 ID 互相引用，由 Board 统一解析，
不持有彼此的指针。

# 核心类型

  - ID         - 基于 uuid 的不透明标识
  - Task       - ID / CurrentResult / ParentIDs / PreferredValue
  - BaseTask   - 并发安全的默认实现
  - Board      - 内存版黑板：Publish / PublishChange / Remove，
    变更事件在释放锁之后同步分发，订阅者可以重入
  - ScoreTable - 任务标识到分配结果的平行数组索引，
    每个聚合周期重新构建，支持按标识或按位置查找
*/
package task
