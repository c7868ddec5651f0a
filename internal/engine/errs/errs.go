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

// Package errs holds the error taxonomy fatal to a Run: ConfigError and
// EngineError. Warnings (RecursionBudgetWarning, NoPrimaryKeyWarning) are not
// modeled as errors — they are logged and the run continues, so they live as
// plain log lines at their call sites rather than as a type here.
package errs

import "fmt"

// ConfigError reports a problem in the validation configuration itself:
// an unknown metric kind, an unresolved calculated-field input, or random-row
// sampling requested without primary keys. ConfigError is always fatal to the
// Run.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s", e.Reason)
}

// NewConfigError builds a ConfigError from a format string, the same way the
// rest of this codebase wraps errors with fmt.Errorf.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// EngineError wraps a failure surfaced from an Engine's Execute call. It is
// always fatal to the Run; the Executor attaches the side (source, target,
// or pushdown) that failed before the caller sees it.
type EngineError struct {
	Side  string
	Cause error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s engine error: %v", e.Side, e.Cause)
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

// NewEngineError wraps cause as a fatal, side-tagged EngineError.
func NewEngineError(side string, cause error) *EngineError {
	return &EngineError{Side: side, Cause: cause}
}
