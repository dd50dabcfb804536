package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/jutt313/code-xi/internal/api"
	"github.com/jutt313/code-xi/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "new":
		newProject(os.Args[2:])
	case "msg":
		msg(os.Args[2:])
	case "status":
		status(os.Args[2:])
	case "tasks":
		tasks(os.Args[2:])
	case "version":
		fmt.Printf("codexi %s (%s)\n", version.Version, version.Commit)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	_, _ = fmt.Fprintln(os.Stderr, "usage:")
	_, _ = fmt.Fprintln(os.Stderr, "  codexi new --name <name> --prompt <idea> [--mode <mode>] [--description <text>]")
	_, _ = fmt.Fprintln(os.Stderr, "  codexi msg <project-id> <prompt>")
	_, _ = fmt.Fprintln(os.Stderr, "  codexi status <project-id>")
	_, _ = fmt.Fprintln(os.Stderr, "  codexi tasks <project-id>")
	_, _ = fmt.Fprintln(os.Stderr, "  codexi version")
}

func baseURL() string {
	return fmt.Sprintf("http://%s:%d", api.DefaultHost, api.DefaultPort)
}

func newProject(args []string) {
	fs := flag.NewFlagSet("new", flag.ExitOnError)
	var name, prompt, mode, description string
	fs.StringVar(&name, "name", "", "project name")
	fs.StringVar(&prompt, "prompt", "", "initial project idea")
	fs.StringVar(&mode, "mode", "standard", "execution mode")
	fs.StringVar(&description, "description", "", "project description")
	_ = fs.Parse(args)

	if name == "" || prompt == "" {
		fs.Usage()
		os.Exit(2)
	}

	req := api.CreateProjectRequest{Name: name, InitialPrompt: prompt, Mode: mode, Description: description}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(&req); err != nil {
		fatal(err)
	}
	post("/v1/projects", &buf)
}

func msg(args []string) {
	if len(args) != 2 {
		usage()
		os.Exit(2)
	}
	req := api.MessageRequest{Prompt: args[1]}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(&req); err != nil {
		fatal(err)
	}
	post("/v1/projects/"+args[0]+"/messages", &buf)
}

func status(args []string) {
	if len(args) != 1 {
		usage()
		os.Exit(2)
	}
	get("/v1/projects/" + args[0])
}

func tasks(args []string) {
	if len(args) != 1 {
		usage()
		os.Exit(2)
	}
	get("/v1/projects/" + args[0] + "/tasks")
}

func post(path string, body io.Reader) {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Post(baseURL()+path, "application/json", body)
	if err != nil {
		fatal(err)
	}
	printResponse(resp)
}

func get(path string) {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(baseURL() + path)
	if err != nil {
		fatal(err)
	}
	printResponse(resp)
}

func printResponse(resp *http.Response) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fatal(err)
	}
	if resp.StatusCode >= 400 {
		fatal(fmt.Errorf("request failed: %s: %s", resp.Status, string(body)))
	}
	fmt.Println(string(body))
}

func fatal(err error) {
	_, _ = fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
