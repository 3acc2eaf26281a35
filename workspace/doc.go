// Copyright 2026 ADOS Authors
// Use of this source code is governed by the project license.

/*
包 workspace 提供 ADOS 通信工作区的检查与初始化。

工作区是 Crew 之间的文件通信层：根目录下的四个种子文件
（todo.md / activeContext.md / progress.md / techContext.md）
是跨 Crew 的公共频道，每个 Crew 另有自己的运行目录与知识库子目录。

# 两种模式

  - Check：只读检查，报告缺失项，不做任何写入
  - Provision：创建缺失的目录与种子文件；force 模式下重写种子文件

	p := workspace.NewProvisioner("./workspace")
	report, err := p.Provision(ctx, reg.CrewIDs(), false)

Report.Ready 表示工作区是否完整；Report.Err 把全部缺失项折叠为
一条 WORKSPACE_NOT_READY 错误，供调用方上抛。
*/
package workspace
