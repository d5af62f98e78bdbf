package scheduler

import (
	"context"
	"sort"
	"time"

	"github.com/plusplusoneplusplus/taskgraph/internal/graph"
)

// resourceLink ties a task to a resource through REQUIRES or CAN_USE.
type resourceLink struct {
	task     string
	resource string
	relType  string
}

func (s *Scheduler) fetchResources(ctx context.Context) (map[string]*Resource, []resourceLink, error) {
	res, err := s.exec.Execute(ctx, QueryResources, nil)
	if err != nil {
		return nil, nil, graph.WrapOperationError("fetch resources", err)
	}
	resources := make(map[string]*Resource, len(res.Records))
	for _, rec := range res.Records {
		props, _ := rec["properties"].(map[string]any)
		r := &Resource{ID: rec.StringValue("id")}
		if r.ID == "" {
			continue
		}
		if v, ok := floatProp(props, "cpu_cores"); ok {
			r.CPUCores = v
		}
		if v, ok := floatProp(props, "memory_gb"); ok {
			r.MemoryGB = v
		}
		if st, ok := props["status"].(string); ok {
			r.Status = st
		}
		resources[r.ID] = r
	}

	linksRes, err := s.exec.Execute(ctx, QueryResourceLinks, nil)
	if err != nil {
		return nil, nil, graph.WrapOperationError("fetch resource links", err)
	}
	links := make([]resourceLink, 0, len(linksRes.Records))
	for _, rec := range linksRes.Records {
		links = append(links, resourceLink{
			task:     rec.StringValue("task"),
			resource: rec.StringValue("resource"),
			relType:  rec.StringValue("type"),
		})
	}
	return resources, links, nil
}

// ResourceConflict reports two concurrently pending tasks whose summed
// demand exceeds a shared resource's capacity.
type ResourceConflict struct {
	ResourceID string  `json:"resource_id"`
	TaskA      string  `json:"task_a"`
	TaskB      string  `json:"task_b"`
	CPUNeeded  float64 `json:"cpu_needed"`
	CPULimit   float64 `json:"cpu_limit"`
	MemNeeded  float64 `json:"mem_needed"`
	MemLimit   float64 `json:"mem_limit"`
}

// CheckResourceConflicts pairwise-joins pending tasks sharing a REQUIRES or
// CAN_USE edge to the same resource; a conflict is reported when the pair's
// summed cpu or memory exceeds that resource's capacity.
func (s *Scheduler) CheckResourceConflicts(ctx context.Context) ([]ResourceConflict, error) {
	snap, err := s.fetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	resources, links, err := s.fetchResources(ctx)
	if err != nil {
		return nil, err
	}
	return resourceConflicts(snap, resources, links), nil
}

func resourceConflicts(snap *snapshot, resources map[string]*Resource, links []resourceLink) []ResourceConflict {
	byResource := make(map[string][]string)
	seenLink := make(map[[2]string]bool)
	for _, l := range links {
		task, ok := snap.tasks[l.task]
		if !ok || task.Status != StatusPending {
			continue
		}
		key := [2]string{l.task, l.resource}
		if seenLink[key] {
			continue
		}
		seenLink[key] = true
		byResource[l.resource] = append(byResource[l.resource], l.task)
	}

	resourceIDs := make([]string, 0, len(byResource))
	for id := range byResource {
		resourceIDs = append(resourceIDs, id)
	}
	sort.Strings(resourceIDs)

	var conflicts []ResourceConflict
	for _, rid := range resourceIDs {
		res, ok := resources[rid]
		if !ok {
			continue
		}
		tasks := byResource[rid]
		sort.Strings(tasks)
		for i := 0; i < len(tasks); i++ {
			for j := i + 1; j < len(tasks); j++ {
				a, b := snap.tasks[tasks[i]], snap.tasks[tasks[j]]
				cpu := a.CPUCores + b.CPUCores
				mem := a.MemoryGB + b.MemoryGB
				if cpu > res.CPUCores || mem > res.MemoryGB {
					conflicts = append(conflicts, ResourceConflict{
						ResourceID: rid,
						TaskA:      a.ID,
						TaskB:      b.ID,
						CPUNeeded:  cpu,
						CPULimit:   res.CPUCores,
						MemNeeded:  mem,
						MemLimit:   res.MemoryGB,
					})
				}
			}
		}
	}
	return conflicts
}

// ParallelExecutionGroups partitions the ready tasks into groups whose
// members can run concurrently: greedy coloring over the resource-conflict
// adjacency. Every ready task lands in exactly one group; a task conflicting
// with everything still gets its own singleton group so progress is
// guaranteed.
func (s *Scheduler) ParallelExecutionGroups(ctx context.Context) ([][]string, error) {
	snap, err := s.fetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	resources, links, err := s.fetchResources(ctx)
	if err != nil {
		return nil, err
	}
	ready := readyTasks(snap)
	conflicts := resourceConflicts(snap, resources, links)
	return parallelGroups(ready, conflicts), nil
}

func parallelGroups(ready []*Task, conflicts []ResourceConflict) [][]string {
	conflicting := make(map[[2]string]bool, len(conflicts)*2)
	for _, c := range conflicts {
		conflicting[[2]string{c.TaskA, c.TaskB}] = true
		conflicting[[2]string{c.TaskB, c.TaskA}] = true
	}

	remaining := make([]string, 0, len(ready))
	for _, t := range ready {
		remaining = append(remaining, t.ID)
	}

	var groups [][]string
	for len(remaining) > 0 {
		var group, next []string
		for _, id := range remaining {
			ok := true
			for _, member := range group {
				if conflicting[[2]string{id, member}] {
					ok = false
					break
				}
			}
			if ok {
				group = append(group, id)
			} else {
				next = append(next, id)
			}
		}
		groups = append(groups, group)
		remaining = next
	}
	return groups
}

// Assignment maps one scheduled task onto the resource that will host it.
type Assignment struct {
	TaskID     string `json:"task_id"`
	ResourceID string `json:"resource_id"`
}

// ResourceSchedule is the outcome of a best-effort bin-packing pass.
type ResourceSchedule struct {
	Assignments []Assignment `json:"assignments"`
	Unscheduled []string     `json:"unscheduled"`
}

// ScheduleWithResources greedily packs ready tasks onto resources with
// sufficient capacity, smallest demand first; a resource is consumed whole
// once assigned. Tasks that fit nowhere are left unscheduled, not failed.
// A positive timeWindow also leaves behind tasks whose estimated duration
// exceeds it; zero means no time bound. The capacity view is advisory and
// computed fresh per call: there is no reservation, so overlapping calls
// can both believe a resource is free. Pass nil available to use the
// Resource nodes currently in the graph.
func (s *Scheduler) ScheduleWithResources(ctx context.Context, available []*Resource, timeWindow time.Duration) (*ResourceSchedule, error) {
	snap, err := s.fetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if available == nil {
		resources, _, err := s.fetchResources(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(resources))
		for id := range resources {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if r := resources[id]; r.Status != "offline" {
				available = append(available, r)
			}
		}
	}
	return packTasks(readyTasks(snap), available, timeWindow), nil
}

func packTasks(ready []*Task, available []*Resource, timeWindow time.Duration) *ResourceSchedule {
	// Smallest-demand-first gives small tasks the small resources, keeping
	// big resources for tasks nothing else fits.
	tasks := append([]*Task(nil), ready...)
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].CPUCores != tasks[j].CPUCores {
			return tasks[i].CPUCores < tasks[j].CPUCores
		}
		if tasks[i].MemoryGB != tasks[j].MemoryGB {
			return tasks[i].MemoryGB < tasks[j].MemoryGB
		}
		return tasks[i].ID < tasks[j].ID
	})

	allocated := make(map[string]bool, len(available))
	schedule := &ResourceSchedule{}
	for _, task := range tasks {
		// Tasks that cannot finish inside the window never consume a
		// resource; estimated durations are seconds.
		if timeWindow > 0 && task.EstimatedDuration > timeWindow.Seconds() {
			schedule.Unscheduled = append(schedule.Unscheduled, task.ID)
			continue
		}
		assigned := false
		for _, res := range available {
			if allocated[res.ID] {
				continue
			}
			if task.CPUCores <= res.CPUCores && task.MemoryGB <= res.MemoryGB {
				allocated[res.ID] = true
				schedule.Assignments = append(schedule.Assignments, Assignment{
					TaskID:     task.ID,
					ResourceID: res.ID,
				})
				assigned = true
				break
			}
		}
		if !assigned {
			schedule.Unscheduled = append(schedule.Unscheduled, task.ID)
		}
	}
	return schedule
}
