package api

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestValidateTaskID(t *testing.T) {
	for _, id := range []string{"TASK_1", "T1", "deploy-step.2", "a"} {
		if err := ValidateTaskID(id); err != nil {
			t.Errorf("%q should be valid: %v", id, err)
		}
	}
	invalid := []string{
		"",
		"../etc/passwd",
		"task id",
		"task/1",
		strings.Repeat("x", 65),
	}
	for _, id := range invalid {
		if err := ValidateTaskID(id); !errors.Is(err, ErrInvalidTaskID) {
			t.Errorf("%q should be invalid, got %v", id, err)
		}
	}
}

func TestFindTaskAcrossPhases(t *testing.T) {
	plan := &ProjectPlan{Phases: []Phase{
		{Name: "Development", Tasks: []Task{{TaskID: "TASK_1"}}},
		{Name: "Deployment", Tasks: []Task{{TaskID: "TASK_2"}}},
	}}
	if plan.FindTask("TASK_2") == nil {
		t.Fatalf("task in later phase not found")
	}
	if plan.FindTask("TASK_9") != nil {
		t.Fatalf("unexpected match")
	}
	var nilPlan *ProjectPlan
	if nilPlan.FindTask("TASK_1") != nil {
		t.Fatalf("nil plan must not match")
	}
}

func TestValidRole(t *testing.T) {
	if !ValidRole(RoleQA) {
		t.Fatalf("registered role rejected")
	}
	if ValidRole("IntergalacticAgent") {
		t.Fatalf("unknown role accepted")
	}
}

func TestEncodeFaultRoundTrip(t *testing.T) {
	raw := EncodeFault(FaultToolExecution, "command exited 2", "runTests")
	var env FaultEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Type != FaultToolExecution || env.Error != "command exited 2" || env.Details != "runTests" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestFaultUnwrap(t *testing.T) {
	inner := errors.New("boom")
	f := &Fault{Type: FaultTaskExecution, Err: inner}
	if !errors.Is(f, inner) {
		t.Fatalf("fault must unwrap to its cause")
	}
	if !strings.Contains(f.Error(), "boom") {
		t.Fatalf("error text lost: %q", f.Error())
	}
}
