package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/healthops/pkg/healthops/agent"
	"github.com/randalmurphal/healthops/pkg/healthops/state"
)

// scenarioFile is a scripted batch run. Each query runs on its own thread
// unless the batch sets shared_thread.
type scenarioFile struct {
	Batches []scenarioBatch `yaml:"batches"`
}

type scenarioBatch struct {
	Name         string          `yaml:"name"`
	SharedThread bool            `yaml:"shared_thread"`
	Queries      []scenarioQuery `yaml:"queries"`
}

type scenarioQuery struct {
	Input  string         `yaml:"input"`
	Expect state.TaskType `yaml:"expect"`
}

func loadScenarios(path string) (scenarioFile, error) {
	var f scenarioFile
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("read scenarios: %w", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse scenarios: %w", err)
	}
	for _, b := range f.Batches {
		for _, q := range b.Queries {
			if q.Expect != "" && !q.Expect.Valid() {
				return f, fmt.Errorf("batch %q: unknown expected category %q", b.Name, q.Expect)
			}
		}
	}
	return f, nil
}

func newScenariosCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios <file.yaml>",
		Short: "Run scripted query batches and check their routing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loadScenarios(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(cmd, v)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			var passed, failed, errored int
			for _, b := range f.Batches {
				fmt.Fprintf(out, "== %s\n", b.Name)
				threadID := ""
				for _, q := range b.Queries {
					resp, err := a.agent.Process(cmd.Context(), agent.Request{ThreadID: threadID, Input: q.Input})
					if err != nil {
						errored++
						fmt.Fprintf(out, "ERROR %q: %v\n", q.Input, err)
						continue
					}
					if b.SharedThread {
						threadID = resp.ThreadID
					}

					verdict := "----"
					switch {
					case q.Expect == "":
					case q.Expect == resp.Task:
						verdict = "PASS"
						passed++
					default:
						verdict = "FAIL"
						failed++
					}
					fmt.Fprintf(out, "%s %-22s %-8s %q\n", verdict, resp.Task, resp.Priority, q.Input)
					if verdict == "FAIL" {
						fmt.Fprintf(out, "     expected %s\n", q.Expect)
					}
				}
			}

			fmt.Fprintf(out, "\n%d passed, %d failed, %d errors\n", passed, failed, errored)
			if failed > 0 || errored > 0 {
				return fmt.Errorf("%d of %d checked queries did not pass", failed+errored, passed+failed+errored)
			}
			return nil
		},
	}
}
