// Copyright 2026 ADOS Authors
// Use of this source code is governed by the project license.

/*
# 概述

包 depgraph 校验 Crew 依赖图并产出确定性的执行顺序。

输入为已构建的 registry.Registry，输出为拓扑排序的 crew 标识符序列
（叶子优先：被依赖者先于依赖者），或携带违规标识符的类型化错误。

# 校验内容

  - 引用完整性：agent.crew 必须指向已声明的 Crew（ORPHAN_AGENT_CREW）
  - 依赖引用：crew.dependencies 不得指向未声明的 Crew（UNKNOWN_CREW_REFERENCE）
  - 无环性：三色 DFS 检测依赖环，错误携带完整环路径（CYCLIC_DEPENDENCY）

# 确定性

互不依赖的 Crew 按标识符升序排列，同一注册表任意次校验产出完全一致
的顺序。校验是原子的：出现任何错误都不产出顺序。

# 典型用法

	order, err := depgraph.Validate(reg)
	if err != nil {
		// types.GetErrorCode(err) 区分错误类别，
		// types.ErrorIDs(err) 给出违规标识符（环检测时为完整环路径）。
	}
*/
package depgraph
