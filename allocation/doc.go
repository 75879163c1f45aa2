// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package allocation 提供分配结果（AllocationResult）的值模型。

# 概述

Result 是一次分配尝试结果的不可变快照：成功标志、置信度、一个汇总
向量（rollup），以及可选的分阶段向量序列和辅助查询应答。构造后不可
修改，所有访问器返回副本，可并发读取。

# 核心类型

  - Result    - 分配结果；New / NewPhased / NewFromArrays 构造，Merge 合并
  - AuxQuery  - 固定范围的辅助查询枚举（失败原因、港口、来源单位等）
  - Document  - 带版本号的序列化文档，JSON / YAML 双格式

# 主要能力

  - Value / IsDefined：按维度取值，未定义维度返回 UNDEFINED_ASPECT 错误；
    最近一次查找被记忆，重复查找 O(1)
  - Merge：成功标志取或，维度并集（主结果优先），置信度按维度数加权平均，
    结果永远不是分阶段的
  - Equal：深度结构比较，包含阶段顺序
  - Encode / Decode：版本化编解码，保留阶段顺序与辅助查询稀疏性
*/
package allocation
