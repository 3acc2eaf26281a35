// Copyright 2026 ADOS Authors
// Use of this source code is governed by the project license.

// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为 ADOS 提供集中式的 TracerProvider 和 MeterProvider 配置。
// 当遥测功能禁用时，使用 noop 实现，不连接任何外部服务；
// orchestrator 通过 Tracer() 为各编排阶段创建 span。
package telemetry
