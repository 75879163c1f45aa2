// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供基于 Redis 的连接管理，供 Redis 结果存储使用。

# 概述

本包封装 go-redis 客户端。Manager 负责连接生命周期管理，
包括初始化 Ping、后台健康检查与优雅关闭。

# 核心类型

  - Manager：持有 Redis 客户端，提供 Get/Set/Delete/Exists 键值操作、
    GetJSON/SetJSON 便捷序列化，以及 AddMembers/RemoveMembers/Members
    集合索引操作。
  - Config：地址、密码、数据库编号、默认 TTL、连接池与健康检查间隔。

# 错误语义

  - ErrCacheMiss：键不存在，配合 IsCacheMiss 判断
  - ErrClosed：管理器关闭后的任何操作
*/
package cache
