// Copyright 2026 ADOS Authors
// Use of this source code is governed by the project license.

/*
包 decomposer 将自然语言任务拆解为按 Crew 执行顺序排列的子任务计划。

# 概述

拆解过程完全基于关键词表与已校验的注册表执行顺序，不调用模型：

 1. 复杂度分析：按关键词与命中 Crew 数量给出
    simple / medium / complex / epic 档位与工时估计
 2. Crew 匹配：七个标准 Crew 使用固定关键词表，
    注册表里的自定义 Crew 按自身名字匹配
 3. 顺序解析：匹配结果按注册表校验给出的执行顺序排列，
    orchestrator 存在时始终参与协调
 4. 子任务生成：每个 Crew 一条模板化子任务，
    按 MoSCoW（must / should / could / wont）赋优先级

# 使用

	d := decomposer.New(order, decomposer.WithLogger(logger))
	plan, err := d.Decompose("implement user authentication with jwt")
	if err != nil {
		return err
	}
	for _, st := range plan.Subtasks {
		fmt.Println(st.Crew, st.Description)
	}

Route 将单条描述路由到得分最高的 Crew，无命中时交给 orchestrator。
*/
package decomposer
