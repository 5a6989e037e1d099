package relay

import (
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/edgard/textrelay/internal/config"
)

func testLabels() Labels {
	return LabelsFromConfig(config.DefaultMessages)
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	labels := testLabels()
	n := NewNormalizer(labels)

	tests := []struct {
		name string
		raw  RawResponse
		want string
	}{
		{name: "absent", raw: RawResponse{}, want: labels.EmptyResponse},
		{name: "plain text", raw: TextResponse("hello"), want: "hello"},
		{name: "blank text", raw: TextResponse("  \n "), want: labels.EmptyResponse},
		{name: "invalid json kept as text", raw: JSONResponse([]byte("not {json")), want: "not {json"},
		{name: "json string", raw: JSONResponse([]byte(`"hello"`)), want: "hello"},
		{name: "json null", raw: JSONResponse([]byte(`null`)), want: labels.EmptyResponse},
		{name: "blank json string", raw: JSONResponse([]byte(`"   "`)), want: labels.EmptyResponse},
		{name: "nested response text", raw: JSONResponse([]byte(`{"response": {"text": "hi"}}`)), want: "hi"},
		{name: "response string", raw: JSONResponse([]byte(`{"response": "direct"}`)), want: "direct"},
		{name: "top-level text", raw: JSONResponse([]byte(`{"text": "flat"}`)), want: "flat"},
		{name: "nested text wins over top-level", raw: JSONResponse([]byte(`{"response": {"text": "inner"}, "text": "outer"}`)), want: "inner"},
		{name: "empty nested text", raw: JSONResponse([]byte(`{"response": {"text": ""}}`)), want: labels.EmptyResponse},
		{name: "empty object", raw: JSONResponse([]byte(`{}`)), want: labels.UnexpectedShape},
		{name: "unknown keys", raw: JSONResponse([]byte(`{"answer": "x"}`)), want: labels.UnexpectedShape},
		{name: "response object without known keys", raw: JSONResponse([]byte(`{"response": {"foo": 1}}`)), want: labels.UnexpectedShape},
		{name: "number", raw: JSONResponse([]byte(`42`)), want: "42"},
		{name: "array", raw: JSONResponse([]byte(`["a","b"]`)), want: `["a","b"]`},
		{name: "review ok", raw: JSONResponse([]byte(`{"response": {"message": "OK", "result": []}}`)), want: labels.Review + " OK"},
		{name: "review cyrillic ok", raw: JSONResponse([]byte(`{"response": {"message": "ОК", "result": ["ignored"]}}`)), want: labels.Review + " ОК"},
		{
			name: "review single variant",
			raw:  JSONResponse([]byte(`{"response": {"result": ["A"], "message": "needs work"}}`)),
			want: labels.Review + " needs work\n\n" + labels.Correction + "\n" + labels.SingleVariant + " A",
		},
		{
			name: "review multiple variants",
			raw:  JSONResponse([]byte(`{"response": {"result": ["A", "B"], "message": "needs work"}}`)),
			want: labels.Review + " needs work\n\n" + labels.Correction + "\n" + labels.MultipleVariants + "\n• A\n• B",
		},
		{
			name: "review with empty result omits correction",
			raw:  JSONResponse([]byte(`{"response": {"result": [], "message": "needs work"}}`)),
			want: labels.Review + " needs work",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := n.Normalize(tt.raw)
			if got != tt.want {
				t.Errorf("Normalize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeReviewContents(t *testing.T) {
	t.Parallel()

	labels := testLabels()
	n := NewNormalizer(labels)

	single := n.Normalize(JSONResponse([]byte(`{"response": {"result": ["A"], "message": "needs work"}}`)))
	for _, want := range []string{"needs work", "A", labels.SingleVariant, labels.Correction} {
		if !strings.Contains(single, want) {
			t.Errorf("single-variant review %q does not contain %q", single, want)
		}
	}
	if strings.Contains(single, labels.MultipleVariants) {
		t.Errorf("single-variant review %q contains the multiple-variants label", single)
	}

	ok := n.Normalize(JSONResponse([]byte(`{"response": {"message": "OK", "result": []}}`)))
	if strings.Contains(ok, labels.Correction) {
		t.Errorf("OK review %q contains a correction section", ok)
	}
}

func TestNormalizeNeverBlank(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(testLabels())
	inputs := []RawResponse{
		{},
		TextResponse(""),
		JSONResponse(nil),
		JSONResponse([]byte(`""`)),
		JSONResponse([]byte(`null`)),
		JSONResponse([]byte(`{"text": null}`)),
		JSONResponse([]byte(`{"response": {"text": "\n"}}`)),
		JSONResponse([]byte(`[]`)),
	}
	for _, raw := range inputs {
		if got := n.Normalize(raw); strings.TrimSpace(got) == "" {
			t.Errorf("Normalize(%q) returned blank text", raw.String())
		}
	}
}

func TestNormalizeExtraRules(t *testing.T) {
	t.Parallel()

	answer := Rule{
		Name: "answer",
		Apply: func(doc gjson.Result, _ Labels) (string, bool) {
			a := doc.Get("answer")
			return a.String(), a.Exists()
		},
	}
	n := NewNormalizer(testLabels(), answer)

	if got := n.Normalize(JSONResponse([]byte(`{"answer": "extended"}`))); got != "extended" {
		t.Errorf("Normalize() = %q, want %q", got, "extended")
	}
	if got := n.Normalize(JSONResponse([]byte(`{"text": "flat", "answer": "extended"}`))); got != "flat" {
		t.Errorf("default rules should take precedence, got %q", got)
	}
}

func TestNormalizeRecoversFromPanickingRule(t *testing.T) {
	t.Parallel()

	boom := Rule{
		Name:  "boom",
		Apply: func(gjson.Result, Labels) (string, bool) { panic("bad shape") },
	}
	n := NewNormalizer(testLabels(), boom)

	body := `{"unknown": 1}`
	if got := n.Normalize(JSONResponse([]byte(body))); got != body {
		t.Errorf("Normalize() = %q, want the raw body %q", got, body)
	}
}
