// Copyright 2026 ADOS Authors
// Use of this source code is governed by the project license.

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖注册表、
依赖图校验、能力解析、热重载、Crew 记忆、任务拆解与运行历史库。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离，
支持多维度 label 分组，便于 Grafana 等工具进行可视化与告警。

# 核心类型

  - Collector: 指标收集器，持有 Counter、Histogram、Gauge 等
    Prometheus 向量指标，按业务域分组管理。

# 主要能力

  - 注册表指标: 装载次数（按 status 分组）、校验次数（按 outcome
    分组，失败时为小写错误码）、校验耗时 Histogram。
  - 能力解析指标: 解析次数，按 status 分组。
  - 热重载指标: 重载次数，按 result/source 分组。
  - 记忆指标: 操作计数（按 operation/status 分组）、
    每个 Crew 的记忆体积 Gauge。
  - 任务拆解指标: 拆解次数（按 complexity 分组）、
    每个计划的子任务数 Histogram。
  - 运行历史库指标: 查询计数（按 operation/status 分组）、
    活跃/空闲连接数 Gauge。
*/
package metrics
