// Copyright 2026 ADOS Authors
// Use of this source code is governed by the project license.

/*
包 database 提供 ADOS 的运行历史库：基于 GORM 的连接池管理
与任务分解运行、注册表校验报告的持久化。

# 概述

每次 `ados run` 产生一条 Run 记录（计划 ID、任务、复杂度、优先级、
子任务数、Crew 执行顺序），每次注册表校验产生一条 ValidationReport
（通过与否、错误代码、执行顺序、耗时）。PoolManager 封装 GORM 与
database/sql 的连接池配置，后台健康检查定时探活。

# 核心类型

  - Run / ValidationReport：运行历史数据模型，表结构由
    internal/migration 的嵌入式 SQL 迁移维护。
  - RunStore：历史记录存储，RecordRun / RecordValidation 写入，
    RecentRuns / RecentValidations / LastValidation 查询。
  - PoolManager：连接池管理器，提供 DB()、Ping()、Stats()、
    WithTransaction / WithTransactionRetry 与生命周期方法。

# 驱动

Open 按配置选择驱动：sqlite（glebarez 纯 Go 实现，默认）、
mysql、postgres。连接串由 config.DatabaseConfig.DSN() 给出。
*/
package database
