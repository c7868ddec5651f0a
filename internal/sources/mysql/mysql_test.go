// Copyright 2025 Google LLC
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

package mysql_test

import (
	"context"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	yaml "github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/trace"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/sources"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/sources/mysql"
)

func TestParseFromYaml(t *testing.T) {
	tcs := []struct {
		desc string
		in   string
		want mysql.Config
	}{
		{
			desc: "basic example",
			in: `
kind: mysql
host: 0.0.0.0
port: my-port
database: my_db
user: my_user
password: my_pass
`,
			want: mysql.Config{
				Name:     "my-mysql-instance",
				Kind:     mysql.SourceKind,
				Host:     "0.0.0.0",
				Port:     "my-port",
				Database: "my_db",
				User:     "my_user",
				Password: "my_pass",
			},
		},
		{
			desc: "with query timeout",
			in: `
kind: mysql
host: 0.0.0.0
port: my-port
database: my_db
user: my_user
password: my_pass
queryTimeout: 45s
`,
			want: mysql.Config{
				Name:         "my-mysql-instance",
				Kind:         mysql.SourceKind,
				Host:         "0.0.0.0",
				Port:         "my-port",
				Database:     "my_db",
				User:         "my_user",
				Password:     "my_pass",
				QueryTimeout: "45s",
			},
		},
		{
			desc: "with query params",
			in: `
kind: mysql
host: 0.0.0.0
port: my-port
database: my_db
user: my_user
password: my_pass
queryParams:
  tls: preferred
  charset: utf8mb4
`,
			want: mysql.Config{
				Name:     "my-mysql-instance",
				Kind:     mysql.SourceKind,
				Host:     "0.0.0.0",
				Port:     "my-port",
				Database: "my_db",
				User:     "my_user",
				Password: "my_pass",
				QueryParams: map[string]string{
					"tls":     "preferred",
					"charset": "utf8mb4",
				},
			},
		},
	}
	for _, tc := range tcs {
		t.Run(tc.desc, func(t *testing.T) {
			cfg, err := sources.DecodeConfig(context.Background(), "mysql", "my-mysql-instance",
				yaml.NewDecoder(strings.NewReader(tc.in), yaml.Strict()))
			if err != nil {
				t.Fatalf("DecodeConfig: %v", err)
			}
			if diff := cmp.Diff(sources.SourceConfig(tc.want), cfg); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFailParseFromYaml(t *testing.T) {
	tcs := []struct {
		desc     string
		in       string
		err      string
		contains bool
	}{
		{
			desc: "extra field",
			in: `
kind: mysql
host: 0.0.0.0
port: my-port
database: my_db
user: my_user
password: my_pass
foo: bar
`,
			err:      `unknown field "foo"`,
			contains: true,
		},
		{
			desc: "missing required field",
			in: `
kind: mysql
port: my-port
database: my_db
user: my_user
password: my_pass
`,
			err:      "Field validation for 'Host' failed on the 'required' tag",
			contains: true,
		},
	}
	for _, tc := range tcs {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := sources.DecodeConfig(context.Background(), "mysql", "my-mysql-instance",
				yaml.NewDecoder(strings.NewReader(tc.in), yaml.Strict(), yaml.Validator(validator.New())))
			if err == nil {
				t.Fatalf("expect parsing to fail")
			}
			if !strings.Contains(err.Error(), tc.err) {
				t.Fatalf("unexpected error: got %q, want substring %q", err.Error(), tc.err)
			}
		})
	}
}

// TestInitializeInvalidQueryTimeout verifies that an invalid QueryTimeout
// string is rejected during initialization without attempting a DB connection.
func TestInitializeInvalidQueryTimeout(t *testing.T) {
	t.Parallel()

	cfg := mysql.Config{
		Name:         "instance",
		Kind:         mysql.SourceKind,
		Host:         "localhost",
		Port:         "3306",
		Database:     "db",
		User:         "user",
		Password:     "pass",
		QueryTimeout: "abc", // invalid duration
	}
	_, err := cfg.Initialize(context.Background(), trace.NewNoopTracerProvider().Tracer("test"))
	if err == nil {
		t.Fatalf("expected error for invalid queryTimeout, got nil")
	}
	if !strings.Contains(err.Error(), "invalid queryTimeout") {
		t.Fatalf("unexpected error: %v", err)
	}
}
