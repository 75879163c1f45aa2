// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 migration 管理 SQL 结果存储（allocation_results 表）的 Schema，
支持 PostgreSQL、MySQL 与 SQLite，基于 golang-migrate 实现。

# 概述

各方言的迁移文件通过 embed.FS 内嵌在二进制中，由 iofs 源驱动
交给 golang-migrate 执行。迁移日志经 zap 输出。

# 核心类型

  - Migrator：Up/Down/DownAll/Steps/Goto/Force/Version/Status/Info/Close
  - DefaultMigrator：基于 golang-migrate 的默认实现
  - Config：方言、连接 URL、版本表名、锁超时与日志
  - CLI：planflow migrate 子命令的终端输出层

# 工厂函数

NewMigratorFromConfig / NewMigratorFromDatabaseConfig 从
config.DatabaseConfig 构造迁移器；NewMigratorFromURL 接受原始 URL。
*/
package migration
