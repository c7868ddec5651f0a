// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/config"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/metric"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/orchestrator"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/log"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/resulthandler"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/sources"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/util"

	// Every engine kind registers itself on import; the CLI links all of
	// them so a run file can name any of postgres/mysql/sqlite/duckdb/
	// clickhouse/bigquery as source_conn or target_conn.
	_ "github.com/GoogleCloudPlatform/data-validation-engine/internal/sources/bigquery"
	_ "github.com/GoogleCloudPlatform/data-validation-engine/internal/sources/clickhouse"
	_ "github.com/GoogleCloudPlatform/data-validation-engine/internal/sources/duckdb"
	_ "github.com/GoogleCloudPlatform/data-validation-engine/internal/sources/mysql"
	_ "github.com/GoogleCloudPlatform/data-validation-engine/internal/sources/postgres"
	_ "github.com/GoogleCloudPlatform/data-validation-engine/internal/sources/sqlite"
)

var (
	// versionString indicates the version of this library.
	//go:embed version.txt
	versionString string
	// metadataString indicates additional build or distribution metadata.
	metadataString string
)

func init() {
	versionString = semanticVersion()
}

// semanticVersion returns the version of the CLI including a compile-time metadata.
func semanticVersion() string {
	v := strings.TrimSpace(versionString)
	if metadataString != "" {
		v += "+" + metadataString
	}
	return v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := NewCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// Command represents an invocation of the CLI.
type Command struct {
	*cobra.Command

	configPath    string
	logLevel      string
	loggingFormat string
	format        string

	logger    log.Logger
	outStream io.Writer
	errStream io.Writer
}

// Option configures a Command at construction, letting tests redirect its
// output streams without touching the process-wide os.Stdout/os.Stderr.
type Option func(*Command)

// WithStreams overrides the Command's output and error streams.
func WithStreams(out, errOut io.Writer) Option {
	return func(c *Command) {
		c.outStream = out
		c.errStream = errOut
	}
}

// NewCommand returns a Command object representing an invocation of the CLI.
func NewCommand(opts ...Option) *Command {
	out := os.Stdout
	errOut := os.Stderr

	baseCmd := &cobra.Command{
		Use:           "validate",
		Version:       versionString,
		SilenceErrors: true,
	}
	cmd := &Command{
		Command:   baseCmd,
		outStream: out,
		errStream: errOut,
	}

	for _, o := range opts {
		o(cmd)
	}

	baseCmd.SetOut(cmd.outStream)
	baseCmd.SetErr(cmd.errStream)

	flags := cmd.Flags()
	flags.StringVar(&cmd.configPath, "config", "validation.yaml", "Path to the run's configuration file.")
	flags.StringVar(&cmd.logLevel, "log-level", "INFO", "Specify the minimum level logged. Allowed: 'DEBUG', 'INFO', 'WARN', 'ERROR'.")
	flags.StringVar(&cmd.loggingFormat, "logging-format", "standard", "Specify logging format to use. Allowed: 'standard' or 'json'.")
	flags.StringVar(&cmd.format, "format", "", "Override the configured result handler's output format: 'table', 'text', 'json', or 'csv'.")

	cmd.RunE = func(*cobra.Command, []string) error { return run(cmd) }

	return cmd
}

// runFile is the on-disk shape of --config: a set of named, kind-tagged
// source connections plus the validation to run against two of them.
type runFile struct {
	Sources    map[string]map[string]any `yaml:"sources"`
	Validation config.Configuration      `yaml:"validation"`
}

// parseRunFile decodes raw into a runFile, strict-decoding each source block
// through the Engine Registry the same way the teacher's UnmarshalYAMLSourceConfig
// decodes a tool's source block.
func parseRunFile(ctx context.Context, raw []byte) (config.Configuration, map[string]sources.SourceConfig, error) {
	var rf runFile
	if err := yaml.Unmarshal(raw, &rf); err != nil {
		return config.Configuration{}, nil, fmt.Errorf("unable to parse config: %w", err)
	}

	sourceConfigs := make(map[string]sources.SourceConfig, len(rf.Sources))
	for name, block := range rf.Sources {
		kind, ok := block["kind"].(string)
		if !ok {
			return config.Configuration{}, nil, fmt.Errorf("source %q: missing 'kind' field or it is not a string", name)
		}
		dec, err := util.NewStrictDecoder(block)
		if err != nil {
			return config.Configuration{}, nil, fmt.Errorf("source %q: %w", name, err)
		}
		sc, err := sources.DecodeConfig(ctx, kind, name, dec)
		if err != nil {
			return config.Configuration{}, nil, err
		}
		if logger, lerr := util.LoggerFromContext(ctx); lerr == nil {
			logger.Debug(fmt.Sprintf("decoded source %q as kind %q", name, kind))
		}
		sourceConfigs[name] = sc
	}

	return rf.Validation, sourceConfigs, nil
}

func run(cmd *Command) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	switch strings.ToLower(cmd.loggingFormat) {
	case "json":
		logger, err := log.NewStructuredLogger(cmd.outStream, cmd.errStream, cmd.logLevel)
		if err != nil {
			return fmt.Errorf("unable to initialize logger: %w", err)
		}
		cmd.logger = logger
	case "standard":
		logger, err := log.NewStdLogger(cmd.outStream, cmd.errStream, cmd.logLevel)
		if err != nil {
			return fmt.Errorf("unable to initialize logger: %w", err)
		}
		cmd.logger = logger
	default:
		return fmt.Errorf("logging format invalid")
	}
	ctx = util.WithLogger(ctx, cmd.logger)

	raw, err := os.ReadFile(cmd.configPath)
	if err != nil {
		errMsg := fmt.Errorf("unable to read config file at %q: %w", cmd.configPath, err)
		cmd.logger.Error(errMsg.Error())
		return errMsg
	}

	vcfg, sourceConfigs, err := parseRunFile(ctx, raw)
	if err != nil {
		errMsg := fmt.Errorf("unable to parse config file at %q: %w", cmd.configPath, err)
		cmd.logger.Error(errMsg.Error())
		return errMsg
	}
	if cmd.format != "" {
		vcfg.Format = cmd.format
	}

	if _, ok := sourceConfigs[vcfg.SourceConn]; !ok {
		errMsg := fmt.Errorf("validation.source_conn %q is not declared under sources", vcfg.SourceConn)
		cmd.logger.Error(errMsg.Error())
		return errMsg
	}
	if _, ok := sourceConfigs[vcfg.TargetConn]; !ok {
		errMsg := fmt.Errorf("validation.target_conn %q is not declared under sources", vcfg.TargetConn)
		cmd.logger.Error(errMsg.Error())
		return errMsg
	}

	engines := make(map[string]sources.Engine, len(sourceConfigs))
	for name, sc := range sourceConfigs {
		engine, err := sc.Initialize(ctx, nil)
		if err != nil {
			errMsg := fmt.Errorf("unable to connect source %q: %w", name, err)
			cmd.logger.Error(errMsg.Error())
			return errMsg
		}
		defer engine.Close()
		engines[name] = engine
	}

	orch := orchestrator.New(vcfg, nil, cmd.logger)
	var report []metric.Metric
	err = util.TimedCall(ctx, fmt.Sprintf("validation run %s", orch.RunID()), func() error {
		var runErr error
		report, runErr = orch.Execute(ctx, engines[vcfg.SourceConn], engines[vcfg.TargetConn])
		return runErr
	})
	if err != nil {
		errMsg := fmt.Errorf("validation run %s failed: %w", orch.RunID(), err)
		cmd.logger.Error(errMsg.Error())
		return errMsg
	}

	handlerCfg := vcfg.ResultHandler
	if handlerCfg.Kind == "" {
		handlerCfg.Kind = formatToHandlerKind(vcfg.Format)
	}
	handler, err := resulthandler.New(handlerCfg, cmd.outStream, engines)
	if err != nil {
		errMsg := fmt.Errorf("unable to build result handler: %w", err)
		cmd.logger.Error(errMsg.Error())
		return errMsg
	}
	if err := handler.Handle(ctx, report); err != nil {
		errMsg := fmt.Errorf("unable to hand off report: %w", err)
		cmd.logger.Error(errMsg.Error())
		return errMsg
	}

	return nil
}

// formatToHandlerKind maps the --format flag's vocabulary onto a
// result_handler.type, for a run file that only set format.
func formatToHandlerKind(format string) string {
	switch format {
	case "text":
		return "text"
	case "json":
		return "json"
	case "csv":
		return "csv"
	default:
		return "stdout-table"
	}
}
