// Copyright 2026 ADOS Authors
// Use of this source code is governed by the project license.

/*
# 概述

包 registry 提供 ADOS 的 Crew/Agent 注册表：从 YAML 配置加载声明式
Crew 与 Agent 记录，构建为不可变的标识符索引注册表。

加载阶段只做结构校验（必填字段、列表非空、工具引用语法、标识符唯一），
引用完整性与依赖环检测由 depgraph 包负责，能力解析由 capability 包负责，
严格遵循 Loader → Validator → Matcher 的流水线。

# 核心类型

  - Crew / Agent / Workspace：声明式配置记录，来源于 crews.yaml 与 agents.yaml
  - Registry：不可变注册表（crew-id → Crew，agent-id → Agent），读取返回深拷贝
  - ToolRef：工具引用（namespace.name 或裸 name），仅做语法检查
  - Loader / YAMLLoader：配置加载器，重复的 YAML 映射键报 DUPLICATE_IDENTIFIER

# 典型用法

	loader := registry.NewYAMLLoader()
	reg, err := loader.LoadDir("./config")

	crew, ok := reg.Crew("backend")
	agents := reg.AgentsInCrew("backend")

# 设计约束

  - Registry 构建后不可变；配置变更通过整体重建（config.ReloadManager）完成
  - 加载两次同一配置产生结构相等的 Registry
  - Workspace 路径仅作为透明字符串携带，加载阶段不访问文件系统
*/
package registry
