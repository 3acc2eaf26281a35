// Copyright 2026 ADOS Authors
// Use of this source code is governed by the project license.

/*
# 概述

包 capability 解析 agent 的有效能力集：给定 agent 标识符与已校验的
注册表，合并所属 crew 声明的工具/知识域与 agent 自身的工具。

# 合并语义

工具合并按裸名称（命名空间点号后的段）做分层覆盖：先放入 crew 条目，
再放入 agent 条目，同名时 agent 覆盖 crew。无同名冲突时结果就是两个
集合的并集。知识域直接取 crew 声明。

# 确定性

输出的工具与知识域均按字典序排序，集合语义与声明顺序无关。
未知 agent 标识符报 UNKNOWN_AGENT。
*/
package capability
