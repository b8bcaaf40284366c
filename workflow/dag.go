package workflow

import (
	"sort"
	"strconv"
	"strings"

	"github.com/BaSui01/agentorch/types"
)

// Graph is the validated dependency graph of a template. Tasks are
// addressed by their index in the template; edges are index lists.
type Graph struct {
	ids        []string
	deps       [][]int // deps[i]: tasks i waits on
	dependents [][]int // dependents[i]: tasks waiting on i
	order      []int   // a topological order
}

// BuildGraph resolves DependsOn entries and rejects empty workflows,
// duplicate IDs, unknown or self references, and cycles.
func BuildGraph(tmpl Template) (*Graph, error) {
	n := len(tmpl.Tasks)
	if n == 0 {
		return nil, types.NewValidationError("workflow %q has no tasks", tmpl.Name)
	}

	g := &Graph{
		ids:        make([]string, n),
		deps:       make([][]int, n),
		dependents: make([][]int, n),
	}
	index := make(map[string]int, n)
	for i := range tmpl.Tasks {
		id := tmpl.TaskID(i)
		if _, dup := index[id]; dup {
			return nil, types.NewValidationError("duplicate task id %q", id)
		}
		if strings.TrimSpace(tmpl.Tasks[i].AgentName) == "" {
			return nil, types.NewValidationError("task %q has no agent", id)
		}
		index[id] = i
		g.ids[i] = id
	}

	for i, task := range tmpl.Tasks {
		seen := make(map[int]struct{}, len(task.DependsOn))
		for _, ref := range task.DependsOn {
			j, ok := resolveRef(ref, index, n)
			if !ok {
				return nil, types.NewValidationError("task %q depends on unknown task %q", g.ids[i], ref)
			}
			if j == i {
				return nil, types.NewValidationError("task %q depends on itself", g.ids[i])
			}
			if _, dup := seen[j]; dup {
				continue
			}
			seen[j] = struct{}{}
			g.deps[i] = append(g.deps[i], j)
			g.dependents[j] = append(g.dependents[j], i)
		}
	}

	order, err := g.topoSort()
	if err != nil {
		return nil, err
	}
	g.order = order
	return g, nil
}

// resolveRef matches a dependency by task ID first, then by index.
func resolveRef(ref string, index map[string]int, n int) (int, bool) {
	ref = strings.TrimSpace(ref)
	if i, ok := index[ref]; ok {
		return i, true
	}
	if i, err := strconv.Atoi(ref); err == nil && i >= 0 && i < n {
		return i, true
	}
	return 0, false
}

// topoSort runs Kahn's algorithm; leftover nodes form at least one cycle.
func (g *Graph) topoSort() ([]int, error) {
	n := len(g.ids)
	indegree := make([]int, n)
	for i := range g.deps {
		indegree[i] = len(g.deps[i])
	}

	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]int, 0, n)
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, i)
		for _, d := range g.dependents[i] {
			indegree[d]--
			if indegree[d] == 0 {
				queue = append(queue, d)
			}
		}
	}

	if len(order) < n {
		var cyclic []string
		for i := 0; i < n; i++ {
			if indegree[i] > 0 {
				cyclic = append(cyclic, g.ids[i])
			}
		}
		sort.Strings(cyclic)
		return nil, types.NewValidationError("cycle detected among tasks: %s", strings.Join(cyclic, ", "))
	}
	return order, nil
}

// Len returns the number of tasks.
func (g *Graph) Len() int { return len(g.ids) }

// ID returns the task ID at index i.
func (g *Graph) ID(i int) string { return g.ids[i] }

// Deps returns the indices task i depends on.
func (g *Graph) Deps(i int) []int { return g.deps[i] }

// Dependents returns the indices that depend on task i.
func (g *Graph) Dependents(i int) []int { return g.dependents[i] }

// Order returns a topological order of task indices.
func (g *Graph) Order() []int { return append([]int(nil), g.order...) }

// Roots returns tasks with no dependencies, in template order.
func (g *Graph) Roots() []int {
	var roots []int
	for i := range g.deps {
		if len(g.deps[i]) == 0 {
			roots = append(roots, i)
		}
	}
	return roots
}

// Descendants returns every task that transitively depends on task i, in
// ascending index order.
func (g *Graph) Descendants(i int) []int {
	visited := make([]bool, len(g.ids))
	stack := append([]int(nil), g.dependents[i]...)
	for len(stack) > 0 {
		j := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[j] {
			continue
		}
		visited[j] = true
		stack = append(stack, g.dependents[j]...)
	}
	var out []int
	for j, v := range visited {
		if v {
			out = append(out, j)
		}
	}
	return out
}
