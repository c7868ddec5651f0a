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

package relalg

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// quoteLiteralAnsi renders v as an ANSI-ish SQL literal. All five SQL
// dialects this engine drives agree on this subset (numeric literals bare,
// strings single-quoted with doubled quotes, binary as a hex blob literal),
// so one implementation is shared rather than duplicated per dialect.
func quoteLiteralAnsi(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return "'" + strings.ReplaceAll(t, "'", "''") + "'", nil
	case []byte:
		return "x'" + hex.EncodeToString(t) + "'", nil
	case bool:
		if t {
			return "true", nil
		}
		return "false", nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("relalg: unsupported literal type %T", v)
	}
}

// HexToBinaryLiteral re-wraps a hex string (as produced by casting a binary
// primary key to string for sampling) back into a binary literal for the
// dialect, per §4.C step 5 of the spec.
func HexToBinaryLiteral(hexStr string) ([]byte, error) {
	return hex.DecodeString(hexStr)
}
