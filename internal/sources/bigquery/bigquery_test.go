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

package bigquery_test

import (
	"context"
	"strings"
	"testing"

	yaml "github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/sources"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/sources/bigquery"
)

func TestParseFromYaml(t *testing.T) {
	in := `
kind: bigquery
project: my-project
location: US
`
	want := bigquery.Config{
		Name:     "my-bq-instance",
		Kind:     bigquery.SourceKind,
		Project:  "my-project",
		Location: "US",
	}

	cfg, err := sources.DecodeConfig(context.Background(), "bigquery", "my-bq-instance",
		yaml.NewDecoder(strings.NewReader(in), yaml.Strict()))
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if diff := cmp.Diff(sources.SourceConfig(want), cfg); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateCredentialsRejectsBoth(t *testing.T) {
	cfg := bigquery.Config{
		Name:            "my-bq-instance",
		Kind:            bigquery.SourceKind,
		Project:         "my-project",
		CredentialsJSON: "{}",
		CredentialsPath: "/tmp/creds.json",
	}
	_, err := cfg.Initialize(context.Background(), nil)
	if err == nil {
		t.Fatalf("expected error when both credential sources are set")
	}
}
