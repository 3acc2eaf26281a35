// Copyright 2026 ADOS Authors
// Use of this source code is governed by the project license.

/*
Package types 提供 ADOS 系统的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 registry、depgraph、
capability、orchestrator 等上层模块提供统一的类型契约。跨包共享的
错误码、上下文传播与 Token 计数接口均定义于此，以避免循环依赖。

# 核心类型

  - Error / ErrorCode：结构化错误体系，携带违规标识符（环检测时为完整环路径）
  - TokenCounter：最小 Token 计数接口（CountTokens(string) int）

# 主要能力

  - Context 传播：WithTraceID / WithRunID 及对应提取函数
  - 错误工具链：GetErrorCode / IsCode / IsRetryable / ErrorIDs
  - 校验错误码：MALFORMED_CONFIG、DUPLICATE_IDENTIFIER、UNKNOWN_CREW_REFERENCE、
    ORPHAN_AGENT_CREW、CYCLIC_DEPENDENCY、UNKNOWN_AGENT
*/
package types
