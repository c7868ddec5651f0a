// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package util

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	yaml "github.com/goccy/go-yaml"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/log"
)

// NewStrictDecoder builds a goccy/go-yaml decoder in strict mode, validated
// against struct tags via go-playground/validator. Each source block of the
// run file is decoded through this so a typo in a YAML key surfaces as a
// decode error instead of being silently dropped.
func NewStrictDecoder(v interface{}) (*yaml.Decoder, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("fail to marshal %q: %w", v, err)
	}

	dec := yaml.NewDecoder(
		bytes.NewReader(b),
		yaml.Strict(),
		yaml.Validator(validator.New()),
	)
	return dec, nil
}

type contextKey string

const loggerKey contextKey = "logger"

// WithLogger adds a logger into the context as a value.
func WithLogger(ctx context.Context, logger log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext retrieves the logger or returns an error.
func LoggerFromContext(ctx context.Context) (log.Logger, error) {
	if logger, ok := ctx.Value(loggerKey).(log.Logger); ok {
		return logger, nil
	}
	return nil, fmt.Errorf("unable to retrieve logger")
}

// TimedCall invokes fn, logging its label and duration at Debug level. This
// mirrors the original validator's util.timed_call; the CLI wraps the whole
// validation run in it, so debug-level runs show the run's elapsed time.
func TimedCall(ctx context.Context, label string, fn func() error) error {
	logger, _ := LoggerFromContext(ctx)
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	if logger != nil {
		logger.Debug(fmt.Sprintf("%s took %s", label, elapsed))
	}
	return err
}
