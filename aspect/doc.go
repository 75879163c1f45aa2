// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package aspect 提供分配结果的度量维度模型。

# 概述

一个 Aspect 是分配结果的一个可度量维度（开始时间、结束时间、成本、
风险、数量等）。Vector 是若干 (Kind, Value) 的有序集合，描述一次
分配尝试的结果。

# 核心类型

  - Kind   - 维度枚举，核心集合固定编号，可通过 RegisterKind 扩展
  - Value  - 单个度量值；TypedQuantity 额外携带资产标识 Asset
  - Vector - 不可变的有序集合，同一 Kind 只出现一次
    （TypedQuantity 按资产区分）

# 约束

  - 值不能为 NaN，构造时立即失败
  - 重复 Kind 在构造时被拒绝
  - Kind 以名称序列化（MarshalText / UnmarshalText）
*/
package aspect
