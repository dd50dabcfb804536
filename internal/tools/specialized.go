package tools

import (
	"context"
	"fmt"
	"strings"
)

// commandTool builds a capability that shells out a fixed argv, with an
// optional extra argument appended when the named parameter is supplied.
func commandTool(runner CommandRunner, root, name string, argv []string, extraParam string) Tool {
	params := []string{}
	if extraParam != "" {
		params = append(params, extraParam)
	}
	return Tool{
		Name:   name,
		Params: params,
		Run: func(ctx context.Context, args map[string]string) (string, error) {
			cmd := argv
			if extraParam != "" {
				if v := args[extraParam]; v != "" {
					cmd = append(append([]string{}, argv...), v)
				}
			}
			out, code, err := runCapture(ctx, runner, root, cmd)
			if err != nil || code != 0 {
				return "", &ExecutionError{
					Tool: name,
					Err:  fmt.Errorf("exit %d: %v: %s", code, err, strings.TrimSpace(out)),
				}
			}
			return out, nil
		},
	}
}

// RegisterSpecialized adds the per-role capabilities on top of the
// foundational set. QA gets runTests and lintCode, Security runAudit, DevOps
// buildImage, SolutionsArchitect architectureDiagram, Documentation
// projectStructure, Performance runBenchmark.
func RegisterSpecialized(r *Registry, runner CommandRunner, root string) {
	r.Register(commandTool(runner, root, "runTests", []string{"npm", "test", "--silent"}, "target"))
	r.Register(commandTool(runner, root, "lintCode", []string{"npx", "eslint", "."}, "target"))
	r.Register(commandTool(runner, root, "runAudit", []string{"npm", "audit", "--json"}, ""))
	r.Register(commandTool(runner, root, "buildImage", []string{"docker", "build", "."}, "tag"))
	r.Register(commandTool(runner, root, "runBenchmark", []string{"npx", "autocannon", "http://localhost:3000"}, "url"))

	// text-producing capabilities that need no subprocess
	r.Register(Tool{
		Name:   "projectStructure",
		Params: []string{"path"},
		Run: func(ctx context.Context, args map[string]string) (string, error) {
			start := root
			if p := args["path"]; p != "" {
				var err error
				start, err = resolve(root, p)
				if err != nil {
					return "", &ExecutionError{Tool: "projectStructure", Err: err}
				}
			}
			return listTree(start)
		},
	})
	r.Register(Tool{
		Name:     "architectureDiagram",
		Params:   []string{"components"},
		Required: []string{"components"},
		Run: func(ctx context.Context, args map[string]string) (string, error) {
			parts := strings.Split(args["components"], ",")
			var b strings.Builder
			b.WriteString("graph TD\n")
			for i := 0; i < len(parts)-1; i++ {
				from := strings.TrimSpace(parts[i])
				to := strings.TrimSpace(parts[i+1])
				fmt.Fprintf(&b, "  %s --> %s\n", from, to)
			}
			return b.String(), nil
		},
	})
}
