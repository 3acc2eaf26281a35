// Copyright 2026 ADOS Authors
// Use of this source code is governed by the project license.

/*
包 memory 提供 ADOS 的 Crew 记忆协调器与多后端持久化存储。

# 概述

每个 Crew 拥有一条只追加的记忆流（entries），用于跨任务传递上下文；
协调器在其上叠加体积上限（超限时最老条目先被截断）与会话级环形缓冲。
存储后端可插拔，从开发测试到分布式生产平滑切换。

# 核心类型

  - Entry：单条记忆，含 ID（uuid）、时间戳、内容
  - Store：存储抽象，Append / Entries / Replace / Crews / Ping / Close
  - Coordinator：记忆协调器，负责最近条目格式化读取、体积截断、
    会话环形缓冲与 token 占用统计

# 后端实现

  - Memory: 内存实现，适合开发与测试，重启后数据丢失。
  - File: 每个 Crew 一个 JSON 文件，临时文件 + rename 原子写入，
    适合单节点部署。
  - Redis: 基于 Redis List 与 Pipeline 的实现，适合分布式部署。

# 使用方式

通过工厂函数按配置创建存储，再包装为协调器：

	store, err := memory.NewStore(memory.DefaultStoreConfig())
	coord := memory.NewCoordinator(store)

	coord.Append(ctx, "backend", "implemented /users endpoint")
	recent, _ := coord.Recent(ctx, "backend")

Recent 返回最近 10 条，格式为 "[时间戳] 内容"，按写入顺序排列。
token 统计使用 cl100k_base 编码，供上层做 LLM 上下文预算。
*/
package memory
