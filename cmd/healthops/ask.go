package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/healthops/pkg/healthops/agent"
	"github.com/randalmurphal/healthops/pkg/healthops/state"
)

func newAskCmd(v *viper.Viper) *cobra.Command {
	var (
		threadID    string
		contextArgs []string
		metricsPath string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "ask [question...]",
		Short: "Ask a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqContext, err := parseContext(contextArgs)
			if err != nil {
				return err
			}
			var patch *state.MetricsPatch
			if metricsPath != "" {
				if patch, err = loadMetricsPatch(metricsPath); err != nil {
					return err
				}
			}

			a, err := openApp(cmd, v)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.agent.Process(cmd.Context(), agent.Request{
				ThreadID: threadID,
				Input:    strings.Join(args, " "),
				Context:  reqContext,
				Metrics:  patch,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			return writeResponse(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVar(&threadID, "thread", "", "conversation thread id (empty starts a new thread)")
	cmd.Flags().StringArrayVar(&contextArgs, "context", nil, "request context as key=value (repeatable)")
	cmd.Flags().StringVar(&metricsPath, "metrics", "", "YAML file with metric updates")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the response as JSON")
	return cmd
}

// parseContext turns key=value pairs into a request context map.
func parseContext(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --context %q: want key=value", pair)
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}

// loadMetricsPatch reads a metrics update from YAML. Keys follow the
// snake_case metric names, e.g.
//
//	patient_flow:
//	  occupied_beds: 470
func loadMetricsPatch(path string) (*state.MetricsPatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metrics: %w", err)
	}
	var patch state.MetricsPatch
	if err := yaml.Unmarshal(data, &patch); err != nil {
		return nil, fmt.Errorf("parse metrics: %w", err)
	}
	return &patch, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeResponse(w io.Writer, resp *agent.Response) error {
	_, err := fmt.Fprintf(w, "[%s | %s | thread %s]\n%s\n",
		resp.Task, resp.Priority, resp.ThreadID, resp.Response)
	return err
}
