package validate

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/prasadk/complyscan/internal/model"
)

// verdictSchema is the contract the LLM response must satisfy. Any deviation
// is a MalformedResponseError; fields are never guessed from loose output.
const verdictSchema = `{
  "type": "object",
  "required": ["status", "explanation"],
  "properties": {
    "status": {
      "type": "string",
      "enum": ["compliant", "non_compliant", "not_applicable", "needs_review"]
    },
    "explanation": {"type": "string", "minLength": 1},
    "evidence": {"type": "array", "items": {"type": "string"}},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1}
  }
}`

var compiledVerdictSchema = jsonschema.MustCompileString("verdict.json", verdictSchema)

// verdictPayload is the structured part of an LLM verdict response
type verdictPayload struct {
	Status      model.VerdictStatus `json:"status"`
	Explanation string              `json:"explanation"`
	Evidence    []string            `json:"evidence"`
	Confidence  float64             `json:"confidence"`
}

// ParseVerdict extracts and validates the JSON verdict object from a raw
// LLM response. Models often wrap the object in prose or markdown fences,
// so the outermost {...} span is located first.
func ParseVerdict(raw string) (*verdictPayload, error) {
	jsonText, ok := extractJSONObject(raw)
	if !ok {
		return nil, &MalformedResponseError{Reason: "no JSON object found", Raw: raw}
	}

	var generic any
	if err := json.Unmarshal([]byte(jsonText), &generic); err != nil {
		return nil, &MalformedResponseError{Reason: "invalid JSON: " + err.Error(), Raw: raw}
	}

	if err := compiledVerdictSchema.Validate(generic); err != nil {
		return nil, &MalformedResponseError{Reason: "schema violation: " + err.Error(), Raw: raw}
	}

	var payload verdictPayload
	if err := json.Unmarshal([]byte(jsonText), &payload); err != nil {
		return nil, &MalformedResponseError{Reason: "decode: " + err.Error(), Raw: raw}
	}

	return &payload, nil
}

// extractJSONObject returns the outermost {...} span of the text
func extractJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
