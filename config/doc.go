// Copyright 2026 ADOS Authors
// Use of this source code is governed by the project license.

// Package config 提供 ADOS 的系统配置与注册表热重载。
//
// 包含系统配置加载（默认值 → YAML → 环境变量）、配置文件监听与
// 注册表整体热重载：装载 → 校验 → 原子替换，校验失败旧注册表保持
// 生效，并留有带校验和的版本快照历史支持回滚。
package config
