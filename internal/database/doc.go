// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供 SQL 结果存储使用的 GORM 连接与连接池管理。

# 概述

Open 根据驱动名选择 GORM 方言并建立连接；PoolManager 在其上
配置连接池参数、运行后台健康检查，并提供带重试的事务执行。

# 支持的驱动

  - postgres：gorm.io/driver/postgres
  - mysql：gorm.io/driver/mysql
  - sqlite：github.com/glebarez/sqlite，纯 Go 实现，默认驱动
  - sqlite3：gorm.io/driver/sqlite，需要 cgo

# 核心类型

  - PoolManager：连接池管理器，提供 DB/Ping/Stats/Close 与
    WithTransaction/WithTransactionRetry
  - PoolConfig：最大空闲/打开连接数、连接生命周期与健康检查间隔

# 重试策略

死锁、序列化失败、连接中断、锁超时以及 SQLite 的 database is locked
被视为可重试错误，按指数退避重试。
*/
package database
