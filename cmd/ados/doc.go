// Copyright 2026 ADOS Authors
// Use of this source code is governed by the project license.

/*
Package main 提供 ADOS 命令行程序入口。

# 概述

cmd/ados 是 Crew 编排系统的可执行入口，覆盖工作区初始化、注册表校验、
任务拆解、能力查询、系统状态与数据库迁移等子命令。程序支持 YAML 配置
文件加载、结构化日志（zap）、Prometheus 指标采集与 OpenTelemetry 追踪。

# 主要能力

  - 子命令: init（工作区供给/检查）、validate（注册表校验并输出执行顺序）、
    run（任务拆解并落库）、agent（有效能力查询）、status（系统状态，
    支持 --detailed 与 --json）、migrate（数据库迁移）、version、help
  - 配置加载: NewLoader().WithConfigPath().Load()，默认值、文件、环境变量三层
  - 日志: 按 LogConfig 构建 zap，console/json 编码可选
  - 迁移: -direction up|down|status|version|info，-steps、-all、-goto、-force
  - 构建注入: Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
