package classify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/floworx/floworx-core/internal/model"
)

// parseClassification decodes the LLM's JSON response into a
// ClassificationResult, tolerating markdown fences around the object.
func parseClassification(content string) (model.ClassificationResult, error) {
	content = stripMarkdownFence(content)

	var result model.ClassificationResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return model.ClassificationResult{}, fmt.Errorf("failed to parse classification JSON: %w", err)
	}
	return result, nil
}

// stripMarkdownFence removes a surrounding ```json ... ``` wrapper, which
// some models add despite instructions not to.
func stripMarkdownFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	if i := strings.LastIndex(content, "```"); i >= 0 {
		content = content[:i]
	}
	return strings.TrimSpace(content)
}
