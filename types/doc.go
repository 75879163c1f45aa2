// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 planflow 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 aspect、allocation、
workflow、composition 等上层模块提供统一的错误契约与 Context 传播。

# 核心类型

  - Error / ErrorCode - 结构化错误体系，区分构造错误、未定义值错误
    与存储错误；Error.Is 按错误码匹配，可直接配合 errors.Is 使用
  - WithAgentID / WithCycleID - 规划周期内的 Context 传播

# 错误分类

  - 构造错误：INVALID_ASPECT_VALUE、DUPLICATE_ASPECT、LENGTH_MISMATCH、
    AUX_QUERY_RANGE、INCOMPATIBLE_ASPECTS、INVALID_ARGUMENT
  - 未定义值错误：UNDEFINED_ASPECT
  - 查找与存储错误：NOT_FOUND、CODEC_VERSION、STORE_CLOSED、STORE_FAILURE

尚不可计算的情况（子任务尚无结果、零个父任务）不是错误，
由调用方通过 nil 结果识别并在下一周期重试。
*/
package types
