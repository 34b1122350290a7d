package ai

import (
	"fmt"
	"strings"
)

// ExtractJSONObject pulls the JSON object out of a model response.
// Models wrap JSON in markdown fences or prose; this strips fences and
// slices from the first '{' to the last '}'.
func ExtractJSONObject(response string) (string, error) {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON object found in response")
	}

	return response[start : end+1], nil
}
