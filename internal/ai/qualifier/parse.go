package qualifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spigell/lead-responder/internal/ai"
)

var (
	qualificationFields = []string{"verdict", "confidence", "reasoning", "factors"}
	outreachFields      = []string{"subject", "body", "variants"}
)

func parseQualification(raw string) (*ai.QualificationResult, error) {
	data, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	if err := requireFields(data, qualificationFields, raw); err != nil {
		return nil, err
	}

	verdict, ok := data["verdict"].(string)
	if !ok || !ai.Verdict(verdict).Valid() {
		return nil, &ai.SchemaError{
			Field:  "verdict",
			Reason: fmt.Sprintf("invalid verdict %v, must be one of qualified, not_qualified, needs_more_info", data["verdict"]),
			Raw:    raw,
		}
	}

	confidence, err := strictPercent(data["confidence"])
	if err != nil {
		return nil, &ai.SchemaError{Field: "confidence", Reason: err.Error(), Raw: raw}
	}

	factors, err := coerceStrings(data["factors"])
	if err != nil {
		return nil, &ai.SchemaError{Field: "factors", Reason: err.Error(), Raw: raw}
	}

	return &ai.QualificationResult{
		Verdict:    ai.Verdict(verdict),
		Confidence: confidence,
		Reasoning:  coerceString(data["reasoning"]),
		Factors:    factors,
		Raw:        raw,
	}, nil
}

func parseOutreach(raw string) (*ai.OutreachResult, error) {
	data, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	if err := requireFields(data, outreachFields, raw); err != nil {
		return nil, err
	}

	return &ai.OutreachResult{
		Subject:  coerceString(data["subject"]),
		Body:     coerceString(data["body"]),
		Variants: coerceVariants(data["variants"]),
		Raw:      raw,
	}, nil
}

func decodeObject(raw string) (map[string]any, error) {
	cleaned := extractJSON(raw)

	decoder := json.NewDecoder(strings.NewReader(cleaned))
	decoder.UseNumber()

	var data map[string]any
	if err := decoder.Decode(&data); err != nil {
		return nil, &ai.SchemaError{Reason: fmt.Sprintf("response is not a JSON object: %v", err), Raw: raw}
	}
	if data == nil {
		return nil, &ai.SchemaError{Reason: "response is not a JSON object", Raw: raw}
	}
	if _, err := decoder.Token(); err != io.EOF {
		return nil, &ai.SchemaError{Reason: "unexpected content after JSON object", Raw: raw}
	}

	return data, nil
}

func requireFields(data map[string]any, required []string, raw string) error {
	var missing []string
	for _, key := range required {
		if _, ok := data[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &ai.SchemaError{
		Field:  missing[0],
		Reason: fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")),
		Raw:    raw,
	}
}

// strictPercent accepts only a JSON integer literal between 0 and 100.
func strictPercent(v any) (int, error) {
	num, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("invalid confidence %v, must be integer between 0-100", v)
	}
	n, err := num.Int64()
	if err != nil || n < 0 || n > 100 {
		return 0, fmt.Errorf("invalid confidence %s, must be integer between 0-100", num)
	}
	return int(n), nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceStrings(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return []string{}, nil
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	case string:
		if s := strings.TrimSpace(val); s != "" {
			return []string{s}, nil
		}
		return []string{}, nil
	default:
		return nil, fmt.Errorf("expected an array of strings, got %T", v)
	}
}

func coerceVariants(v any) []ai.Variant {
	items, ok := v.([]any)
	if !ok {
		return []ai.Variant{}
	}

	out := make([]ai.Variant, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, ai.Variant{
			Subject: coerceString(obj["subject"]),
			Body:    coerceString(obj["body"]),
		})
	}
	return out
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(v); err != nil {
			return fmt.Sprintf("%v", v)
		}
		return strings.TrimSpace(buf.String())
	}
}
