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

package clickhouse_test

import (
	"context"
	"strings"
	"testing"

	yaml "github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/sources"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/sources/clickhouse"
)

func TestParseFromYaml(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		expected clickhouse.Config
	}{
		{
			name: "all fields specified",
			yaml: `
kind: clickhouse
host: localhost
port: "8443"
user: default
password: "mypass"
database: mydb
protocol: https
secure: true
`,
			expected: clickhouse.Config{
				Name:     "test-clickhouse",
				Kind:     "clickhouse",
				Host:     "localhost",
				Port:     "8443",
				User:     "default",
				Password: "mypass",
				Database: "mydb",
				Protocol: "https",
				Secure:   true,
			},
		},
		{
			name: "minimal configuration with defaults",
			yaml: `
kind: clickhouse
host: 127.0.0.1
port: "8123"
user: testuser
database: testdb
`,
			expected: clickhouse.Config{
				Name:     "test-clickhouse",
				Kind:     "clickhouse",
				Host:     "127.0.0.1",
				Port:     "8123",
				User:     "testuser",
				Database: "testdb",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := sources.DecodeConfig(context.Background(), "clickhouse", "test-clickhouse",
				yaml.NewDecoder(strings.NewReader(tt.yaml), yaml.Strict()))
			if err != nil {
				t.Fatalf("DecodeConfig: %v", err)
			}
			if diff := cmp.Diff(sources.SourceConfig(tt.expected), cfg); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name        string
		protocol    string
		expectError bool
	}{
		{name: "valid https protocol", protocol: "https"},
		{name: "valid http protocol", protocol: "http"},
		{name: "invalid protocol", protocol: "invalid", expectError: true},
		{name: "native not supported", protocol: "native", expectError: true},
		{name: "empty defaults to https", protocol: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := clickhouse.Config{
				Name: "t", Kind: "clickhouse", Host: "localhost", Port: "8443",
				User: "default", Database: "db", Protocol: tt.protocol,
			}
			_, err := cfg.Initialize(context.Background(), nil)
			// Connecting always fails in this offline test (no real server);
			// what's exercised here is protocol validation happening first.
			if tt.expectError {
				if err == nil || !strings.Contains(err.Error(), "invalid protocol") {
					t.Errorf("expected invalid-protocol error, got: %v", err)
				}
			} else if err != nil && strings.Contains(err.Error(), "invalid protocol") {
				t.Errorf("unexpected protocol validation error: %v", err)
			}
		})
	}
}
