// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 migration 管理 agent 目录的 SQL Schema，支持 PostgreSQL、
MySQL 与 SQLite，基于 golang-migrate 实现。

# 概述

各方言的迁移文件以 embed.FS 内嵌在二进制中（migrations/<dialect>），
创建 agent_records 与 agent_capabilities 两张表及其排序索引。
sqlstore 依赖的列名与索引名与这里保持一致。

# 核心类型

  - Migrator / DefaultMigrator：Up/Down/DownAll/Steps/Goto/Force/
    Version/Status/Info/Close。
  - Config：方言、连接 URL 或已打开的 *sql.DB、版本表名。
    传入 DB 时迁移器不负责关闭连接。
  - CLI：`agentmarket migrate <command>` 的终端输出层。

# 创建方式

  - NewMigratorForPool：复用 database.PoolManager 的连接。
  - NewMigratorFromURL：按方言自行打开连接。
*/
package migration
