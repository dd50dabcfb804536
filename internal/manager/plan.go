package manager

import (
	"strconv"

	"github.com/jutt313/code-xi/internal/api"
	"github.com/jutt313/code-xi/internal/discovery"
)

func defaultPhases() []api.Phase {
	return []api.Phase{
		{Name: "Discovery & Planning", Tasks: []api.Task{}},
		{Name: "Development", Tasks: []api.Task{}},
		{Name: "Deployment", Tasks: []api.Task{}},
	}
}

// developmentPhase returns the plan's Development phase, creating it if the
// plan came in without one.
func developmentPhase(plan *api.ProjectPlan) *api.Phase {
	for i := range plan.Phases {
		if plan.Phases[i].Name == "Development" {
			return &plan.Phases[i]
		}
	}
	plan.Phases = append(plan.Phases, api.Phase{Name: "Development"})
	return &plan.Phases[len(plan.Phases)-1]
}

// normalizeRoles rewrites any unregistered agent role in the plan to the
// full-stack fallback. Plans arriving from the oracle are the only source of
// unvalidated roles.
func normalizeRoles(plan *api.ProjectPlan) {
	for pi := range plan.Phases {
		for ti := range plan.Phases[pi].Tasks {
			if !api.ValidRole(plan.Phases[pi].Tasks[ti].Agent) {
				plan.Phases[pi].Tasks[ti].Agent = api.RoleFullStack
			}
		}
	}
}

// nextTaskID picks the first TASK_N id not already present in the plan.
func nextTaskID(plan *api.ProjectPlan) string {
	n := 1
	for {
		id := "TASK_" + strconv.Itoa(n)
		if plan.FindTask(id) == nil {
			return id
		}
		n++
	}
}

// PlanFromRequirements seeds the initial task graph: one pending task per
// requirement, no dependencies, owned by the requirement's first eligible
// role, all grouped under the Development phase.
func PlanFromRequirements(projectName, description string, reqs []discovery.Requirement) *api.ProjectPlan {
	plan := &api.ProjectPlan{
		ProjectName: projectName,
		Description: description,
		Phases:      defaultPhases(),
	}
	dev := developmentPhase(plan)
	for i, req := range reqs {
		agent := api.RoleFullStack
		if len(req.Agents) > 0 {
			agent = req.Agents[0]
		}
		dev.Tasks = append(dev.Tasks, api.Task{
			TaskID:       "TASK_" + strconv.Itoa(i+1),
			Description:  req.Description,
			Agent:        agent,
			Dependencies: []string{},
			Status:       string(api.TaskPending),
		})
	}
	return plan
}
