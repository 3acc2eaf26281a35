// Copyright 2026 ADOS Authors
// Use of this source code is governed by the project license.

/*
包 migration 管理 ADOS 运行历史库的 Schema 迁移，基于 golang-migrate，
支持 PostgreSQL、MySQL 与 SQLite 三种方言。

# 概述

迁移脚本按方言分目录，经 embed.FS 编译进二进制，部署时无需携带
SQL 文件。当前 Schema 覆盖 runs（任务分解运行记录）与
validation_reports（注册表校验报告）两张表及其 created_at 索引。

# 核心类型

  - Migrator: 迁移器接口，Up / Down / DownAll / Steps / Goto / Force /
    Version / Status / Info / Close
  - DefaultMigrator: 默认实现，封装 golang-migrate 实例与数据库连接
  - Config: 数据库类型、连接 URL 与迁移表名
  - CLI: 终端交互层，ados migrate 子命令直接复用

# 使用

	m, err := migration.NewMigratorFromDatabaseConfig(cfg.Database)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(ctx); err != nil {
		return err
	}

SQLite 方言经由 mattn/go-sqlite3 驱动（migrate 的 sqlite3 数据库驱动
注册），需要 CGO；运行历史库自身的 gorm 访问走纯 Go 的 glebarez 驱动，
两者注册名不同（sqlite3 / sqlite），可共存于同一二进制。
*/
package migration
