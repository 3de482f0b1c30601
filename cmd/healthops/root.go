package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/randalmurphal/healthops/pkg/flowgraph/llm"
	"github.com/randalmurphal/healthops/pkg/healthops/agent"
	"github.com/randalmurphal/healthops/pkg/healthops/conversation"
	"github.com/randalmurphal/healthops/pkg/healthops/settings"
	"github.com/randalmurphal/healthops/pkg/healthops/workflow"
)

const envPrefix = "HEALTHOPS"

// Flag names that map onto settings keys.
var settingFlags = map[string]string{
	"model":      settings.KeyModelName,
	"store":      settings.KeyStoreBackend,
	"store-dsn":  settings.KeyStoreDSN,
	"log-level":  settings.KeyLogLevel,
	"log-format": settings.KeyLogFormat,
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

func newRootCmd() *cobra.Command {
	v := newViper()

	rootCmd := &cobra.Command{
		Use:           "healthops",
		Short:         "Healthcare operations assistant",
		Long:          "healthops answers questions about patient flow, resources, quality and staffing, keeping a conversation per thread.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (yaml, json or toml)")
	flags.String("model", "", "model name")
	flags.String("store", "", "conversation store: memory, sqlite or postgres")
	flags.String("store-dsn", "", "store location (sqlite path or postgres dsn)")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-format", "", "log format: text or json")
	flags.Bool("mock", false, "use the offline model client")

	_ = v.BindPFlag("config", flags.Lookup("config"))
	_ = v.BindPFlag("mock", flags.Lookup("mock"))
	for flag, key := range settingFlags {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newAskCmd(v),
		newChatCmd(v),
		newHistoryCmd(v),
		newResetCmd(v),
		newThreadsCmd(v),
		newScenariosCmd(v),
	)
	return rootCmd
}

// overrides collects the settings that were set explicitly by flag or
// HEALTHOPS_* environment variable.
func overrides(v *viper.Viper) map[string]any {
	out := map[string]any{}
	keys := []string{
		settings.KeyOpenAIAPIKey,
		settings.KeyOpenAIBaseURL,
		settings.KeyModelName,
		settings.KeyStoreBackend,
		settings.KeyStoreDSN,
		settings.KeyLogLevel,
		settings.KeyLogFormat,
	}
	for _, key := range keys {
		if v.IsSet(key) && v.GetString(key) != "" {
			out[key] = v.GetString(key)
		}
	}
	for _, key := range []string{settings.KeyMetrics, settings.KeyTracing} {
		if v.IsSet(key) {
			out[key] = v.GetBool(key)
		}
	}
	return out
}

type app struct {
	agent    *agent.Agent
	settings settings.Settings
	logger   *slog.Logger
}

// openApp resolves settings and wires the agent. The caller must Close it.
func openApp(cmd *cobra.Command, v *viper.Viper) (*app, error) {
	s, err := settings.Load(v.GetString("config"), overrides(v))
	if err != nil {
		return nil, err
	}
	mock := v.GetBool("mock")
	if err := s.Validate(!mock); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	logger, err := s.Logger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	var base llm.Client
	if mock {
		base = offlineClient()
	} else {
		openai, err := s.OpenAIClient()
		if err != nil {
			return nil, fmt.Errorf("create model client: %w", err)
		}
		base = openai
	}

	wf, err := workflow.New(
		workflow.WithNodeOptions(s.NodeOptions()),
		workflow.WithLogger(logger),
		workflow.WithMetrics(s.MetricsEnabled),
		workflow.WithTracing(s.TracingEnabled),
	)
	if err != nil {
		return nil, err
	}

	st, err := s.OpenStore()
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a, err := agent.New(s.ModelClient(base, logger),
		agent.WithWorkflow(wf),
		agent.WithRegistry(conversation.NewRegistry(st)),
		agent.WithLogger(logger),
	)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return &app{agent: a, settings: s, logger: logger}, nil
}

func (a *app) Close() error {
	return a.agent.Close()
}
