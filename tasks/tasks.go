// Package tasks runs a list of module invocations read from a YAML file, in order.
//
// A task file looks like:
//
//	# nas.yaml
//	- name: Turn on SSH
//	  service:
//	    name: ssh
//	    state: started
//	    enabled: true
//	- hostname:
//	    name: nas1
package tasks

import (
	"context"
	"fmt"
	"io"
	"os"

	"tnctl/modules"
	"tnctl/state"
	"tnctl/types"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Task struct {
	Name   string
	Module string
	Params map[string]any
}

// Title is the task name, or the module name for unnamed tasks
func (t Task) Title() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Module
}

type Outcome struct {
	Task   Task          `json:"-"`
	Title  string        `json:"task"`
	Result *types.Result `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

func LoadFile(path string) ([]Task, error) {
	data, err := os.ReadFile(path)

	if err != nil {
		return nil, err
	}

	tasks, err := Parse(data)

	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return tasks, nil
}

func Parse(data []byte) ([]Task, error) {
	var entries []map[string]any

	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	tasks := make([]Task, 0, len(entries))

	for i, ent := range entries {
		var t Task

		for k, v := range ent {
			if k == "name" {
				name, ok := v.(string)

				if !ok {
					return nil, fmt.Errorf("task %d: name must be a string", i+1)
				}

				t.Name = name
				continue
			}

			if _, ok := modules.Get(k); !ok {
				return nil, fmt.Errorf("task %d: unknown module %q", i+1, k)
			}

			if t.Module != "" {
				return nil, fmt.Errorf("task %d: more than one module (%s, %s)", i+1, t.Module, k)
			}

			t.Module = k

			switch p := v.(type) {
			case nil:
				t.Params = map[string]any{}
			case map[string]any:
				t.Params = p
			default:
				return nil, fmt.Errorf("task %d: parameters of %s must be a mapping", i+1, k)
			}
		}

		if t.Module == "" {
			return nil, fmt.Errorf("task %d: no module given", i+1)
		}

		tasks = append(tasks, t)
	}

	return tasks, nil
}

// Apply runs tasks in order and stops at the first one that fails. The outcomes of every task
// that ran are returned, including the failed one. Progress goes to progress, if not nil.
func Apply(ctx context.Context, env *modules.Env, tasks []Task, progress io.Writer) ([]Outcome, error) {
	if progress == nil {
		progress = io.Discard
	}

	bar := progressbar.NewOptions(
		len(tasks),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetWidth(30),
	)

	outcomes := make([]Outcome, 0, len(tasks))

	for i, t := range tasks {
		bar.Describe(t.Title())

		res, err := modules.Run(ctx, env, t.Module, t.Params)

		o := Outcome{Task: t, Title: t.Title(), Result: res}

		if err != nil {
			o.Error = err.Error()
			outcomes = append(outcomes, o)

			bar.Exit()

			state.Logger.Errorw("task failed", zap.Int("task", i+1), zap.String("module", t.Module), zap.Error(err))

			return outcomes, fmt.Errorf("task %d (%s): %w", i+1, t.Title(), err)
		}

		outcomes = append(outcomes, o)
		bar.Add(1)
	}

	bar.Finish()

	return outcomes, nil
}

// Changed counts the outcomes that changed something
func Changed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Result != nil && o.Result.Changed {
			n++
		}
	}
	return n
}
