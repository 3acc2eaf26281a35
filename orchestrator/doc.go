// Copyright 2026 ADOS Authors
// Use of this source code is governed by the project license.

/*
包 orchestrator 提供 ADOS 的系统门面，把各子系统装配成一条流水线：

	装载注册表 → 校验依赖图 → 工作区供给 + Crew 记忆 + 运行历史库

# 生命周期

  - New: 轻量构造，只装配配置、日志、指标与装载器
  - Initialize: 装载并校验注册表；工作区、记忆与运行历史库
    并行初始化，任何阶段失败都在派发任何任务之前返回结构化错误
  - Reload: 整体重建注册表，校验失败时旧注册表保持生效
  - Shutdown: 停止热重载、关闭存储、刷新日志

# 任务入口

Run 把任务交给 decomposer 拆解，持久化运行记录，并把每个子任务
写入对应 Crew 的记忆流。实际的 Crew 执行不在本系统范围内，
产出的是计划与登记，供下游执行框架消费。

# 典型用法

	cfg := config.MustLoad("ados.yaml")
	orch, err := orchestrator.New(cfg, orchestrator.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := orch.Initialize(ctx); err != nil {
		return err
	}
	defer orch.Shutdown(ctx)

	plan, err := orch.Run(ctx, "implement user authentication with jwt")

启用 cfg.Reload.Enabled 后，crews.yaml 与 agents.yaml 的文件变更
会触发自动重载；访问器在替换期间始终看到一致的注册表快照。
*/
package orchestrator
