package depgraph

import "sort"

// Graph 是 crew 依赖有向图。边 from→to 表示 "from 依赖 to"，
// 即 to 必须先于 from 出现在执行顺序中。
type Graph struct {
	nodes map[string]struct{}
	edges map[string][]string // from -> declared dependency targets
}

// NewGraph 创建空依赖图。
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]struct{}),
		edges: make(map[string][]string),
	}
}

// AddNode 注册一个节点，重复注册是无害的。
func (g *Graph) AddNode(id string) {
	g.nodes[id] = struct{}{}
}

// AddEdge 记录 from 对 to 的依赖，保留声明顺序。
func (g *Graph) AddEdge(from, to string) {
	g.edges[from] = append(g.edges[from], to)
}

// HasNode 报告节点是否已注册。
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Nodes 返回按标识符升序排列的全部节点。
func (g *Graph) Nodes() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Edges 返回节点声明的依赖目标（声明顺序）。
func (g *Graph) Edges(from string) []string {
	return g.edges[from]
}

// Len 返回节点数。
func (g *Graph) Len() int {
	return len(g.nodes)
}

// 三色 DFS 状态。
const (
	colorWhite = iota // 未访问
	colorGray         // 访问中（在当前递归栈上）
	colorBlack        // 已完成
)

// findCycle 在图中查找依赖环。返回环上全部成员（沿依赖方向、从环的
// 入口节点起），无环时返回 nil。起始节点与回边定位均按升序遍历，
// 因此同一张图的结果是确定的。
func (g *Graph) findCycle() []string {
	color := make(map[string]int, len(g.nodes))
	stack := make([]string, 0, len(g.nodes))

	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = colorGray
		stack = append(stack, id)

		for _, dep := range g.edges[id] {
			switch color[dep] {
			case colorGray:
				// 回边：环是栈上从 dep 开始的后缀。
				for i := range stack {
					if stack[i] == dep {
						cycle := make([]string, len(stack)-i)
						copy(cycle, stack[i:])
						return cycle
					}
				}
			case colorWhite:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = colorBlack
		return nil
	}

	for _, id := range g.Nodes() {
		if color[id] == colorWhite {
			if cycle := visit(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// topoOrder 返回叶子优先的拓扑顺序：每个依赖严格先于其依赖者，
// 就绪集合内部按标识符升序弹出。仅允许在无环图上调用。
func (g *Graph) topoOrder() []string {
	pending := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string, len(g.nodes))
	for id := range g.nodes {
		pending[id] = len(g.edges[id])
		for _, dep := range g.edges[id] {
			dependents[dep] = append(dependents[dep], id)
		}
	}

	ready := make([]string, 0, len(g.nodes))
	for id, n := range pending {
		if n == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		released := false
		for _, dep := range dependents[id] {
			pending[dep]--
			if pending[dep] == 0 {
				ready = append(ready, dep)
				released = true
			}
		}
		if released {
			sort.Strings(ready)
		}
	}
	return order
}
