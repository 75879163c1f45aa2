// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package store 持久化分配结果，供规划周期在重启后恢复工作流与组合任务的
最近一次聚合结果。

# 概述

ResultStore 以 Record 为单位保存 *allocation.Result。结果在各后端统一
编码为 allocation.Document JSON，因此任何后端写入的结果都可以被其他后端
读取并与原结果 Equal。

# 后端

  - MemoryStore：进程内存储，支持 TTL，适合测试与单机运行
  - RedisStore：基于 internal/cache.Manager，值为 JSON 信封，
    键索引保存在 Redis 集合中，读取 Keys 时清理过期条目
  - SQLStore：基于 GORM 与 internal/database.PoolManager，
    表结构与 internal/migration 中的 allocation_results 一致
  - MongoStore：基于 mongo-driver v2，文档以结果键作为 _id

Open 根据 config.Config 的 store.driver 选择后端。

# 错误语义

  - ErrNotFound：记录不存在（错误码 NOT_FOUND）
  - ErrClosed：存储已关闭（错误码 STORE_CLOSED）
  - 其他后端错误统一包装为 STORE_FAILURE 并保留原始错误
*/
package store
