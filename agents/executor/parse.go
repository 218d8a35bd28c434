/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package executor

import (
	"encoding/json"
	"strings"
)

// extractJSON returns the body of the first ```json fenced block in text, or
// text with any surrounding fences trimmed.
func extractJSON(text string) string {
	if _, rest, found := strings.Cut(text, "```json\n"); found {
		body, _, _ := strings.Cut(rest, "```")
		return strings.TrimSpace(body)
	}
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// parse decodes the model's final answer into Resp. A string Resp receives the
// raw text.
func parse[Resp any](text string) (Resp, error) {
	var resp Resp
	if s, ok := any(&resp).(*string); ok {
		*s = text
		return resp, nil
	}
	if err := json.Unmarshal([]byte(extractJSON(text)), &resp); err != nil {
		return resp, err
	}
	return resp, nil
}
