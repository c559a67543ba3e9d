package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"workerd/internal/backend"
	"workerd/internal/config"
	"workerd/internal/device"
	"workerd/internal/logging"
)

type rootOptions struct {
	logLevel      string
	logFormat     string
	forceCPU      bool
	disableNative bool
}

func (o *rootOptions) logger() zerolog.Logger {
	return logging.New(o.logLevel, o.logFormat, nil)
}

func (o *rootOptions) probe(log zerolog.Logger) *device.Probe {
	det := device.NewSystemDetector(device.Options{ForceCPU: o.forceCPU, DisableNative: o.disableNative})
	return device.NewProbe(det, log)
}

// buildRootCmd constructs the command tree. Command output goes to out.
func buildRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "workerd",
		Short:         "Inference worker manager",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", envOr("WORKERD_LOG_LEVEL", config.DefaultLogLevel), "Log level: debug|info|warn|error|off")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", envOr("WORKERD_LOG_FORMAT", config.DefaultLogFormat), "Log format: console|json")
	root.PersistentFlags().BoolVar(&opts.forceCPU, "force-cpu", false, "Ignore any detected accelerator")
	root.PersistentFlags().BoolVar(&opts.disableNative, "disable-native", false, "Ignore platform-native runtimes")

	probeCmd := &cobra.Command{
		Use:     "probe",
		Short:   "Print detected device capabilities as JSON",
		Example: "  workerd probe --force-cpu",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			caps := opts.probe(opts.logger()).Capabilities()
			return printJSON(cmd.OutOrStdout(), caps)
		},
	}

	var (
		reqBackend string
		reqType    string
		reqProfile string
	)
	resolveCmd := &cobra.Command{
		Use:     "resolve",
		Short:   "Show which backend a request would resolve to on this device",
		Example: "  workerd resolve --backend gpu_vendor --type depth\n  workerd resolve --profile performance",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := backend.ParseBackend(reqBackend)
			if err != nil {
				return err
			}
			p, err := backend.ParseProfile(reqProfile)
			if err != nil {
				return err
			}
			cfg := backend.DefaultConfig()
			cfg.Backend = b
			cfg.Profile = p
			cfg.ModelType = backend.ParseModelType(reqType)
			log := opts.logger()
			res := backend.NewResolver(opts.probe(log), log).Resolve(b, cfg)
			return printJSON(cmd.OutOrStdout(), resolveOutput{
				Requested: res.Requested,
				Backend:   res.Backend,
				Degraded:  res.Degraded,
				Reason:    res.Reason,
			})
		},
	}
	resolveCmd.Flags().StringVar(&reqBackend, "backend", "auto", "Requested backend")
	resolveCmd.Flags().StringVar(&reqType, "type", "generic", "Model type")
	resolveCmd.Flags().StringVar(&reqProfile, "profile", "balanced", "Performance profile: quality|balanced|performance|memory_efficient")

	root.AddCommand(probeCmd, resolveCmd, buildServeCmd(opts))
	return root
}

type resolveOutput struct {
	Requested backend.Backend `json:"requested"`
	Backend   backend.Backend `json:"backend"`
	Degraded  bool            `json:"degraded"`
	Reason    string          `json:"reason,omitempty"`
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// splitCSV splits a comma-separated list, dropping empty items.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
