package relay

import (
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/edgard/textrelay/internal/config"
)

// Labels are the fixed strings the normalizer inserts into display text.
type Labels struct {
	EmptyResponse    string
	UnexpectedShape  string
	Review           string
	Correction       string
	SingleVariant    string
	MultipleVariants string
}

// LabelsFromConfig picks the normalizer labels out of the configured messages.
func LabelsFromConfig(m config.MessagesConfig) Labels {
	return Labels{
		EmptyResponse:    m.EmptyResponse,
		UnexpectedShape:  m.UnexpectedShape,
		Review:           m.ReviewLabel,
		Correction:       m.CorrectionLabel,
		SingleVariant:    m.SingleVariantLabel,
		MultipleVariants: m.MultipleVariantsLabel,
	}
}

// Rule extracts display text from one known response shape.
// Apply returns false when the document does not have that shape.
type Rule struct {
	Name  string
	Apply func(doc gjson.Result, labels Labels) (string, bool)
}

// DefaultRules are the known response envelopes in precedence order.
var DefaultRules = []Rule{
	{Name: "string", Apply: plainString},
	{Name: "response.text", Apply: responseText},
	{Name: "response.review", Apply: responseReview},
	{Name: "response.string", Apply: responseString},
	{Name: "text", Apply: topLevelText},
}

// okVerdicts are review verdicts meaning no corrections; the second is Cyrillic.
var okVerdicts = []string{"OK", "ОК"}

// Normalizer turns a RawResponse into non-blank display text.
type Normalizer struct {
	labels Labels
	rules  []Rule
}

// NewNormalizer returns a normalizer applying DefaultRules followed by extra.
func NewNormalizer(labels Labels, extra ...Rule) *Normalizer {
	rules := make([]Rule, 0, len(DefaultRules)+len(extra))
	rules = append(rules, DefaultRules...)
	rules = append(rules, extra...)
	return &Normalizer{labels: labels, rules: rules}
}

// Normalize returns the display text for raw. The first matching rule wins;
// an object no rule understands yields the unexpected-shape notice and an
// absent, null or blank response yields the empty-response notice.
func (n *Normalizer) Normalize(raw RawResponse) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = n.nonBlank(raw.String())
		}
	}()

	switch raw.kind {
	case kindAbsent:
		return n.labels.EmptyResponse
	case kindText:
		return n.nonBlank(raw.String())
	}

	doc := gjson.ParseBytes(raw.body)
	if doc.Type == gjson.Null {
		return n.labels.EmptyResponse
	}

	for _, rule := range n.rules {
		if s, ok := rule.Apply(doc, n.labels); ok {
			return n.nonBlank(s)
		}
	}

	if doc.IsObject() {
		return n.labels.UnexpectedShape
	}
	return n.nonBlank(doc.String())
}

func (n *Normalizer) nonBlank(s string) string {
	if strings.TrimSpace(s) == "" {
		return n.labels.EmptyResponse
	}
	return s
}

func plainString(doc gjson.Result, _ Labels) (string, bool) {
	if doc.Type != gjson.String {
		return "", false
	}
	return doc.String(), true
}

func responseText(doc gjson.Result, _ Labels) (string, bool) {
	resp := doc.Get("response")
	if !resp.IsObject() {
		return "", false
	}
	text := resp.Get("text")
	if !text.Exists() {
		return "", false
	}
	return text.String(), true
}

func responseReview(doc gjson.Result, labels Labels) (string, bool) {
	resp := doc.Get("response")
	if !resp.IsObject() {
		return "", false
	}
	result, message := resp.Get("result"), resp.Get("message")
	if !result.Exists() || !message.Exists() {
		return "", false
	}

	verdict := message.String()
	var b strings.Builder
	b.WriteString(labels.Review)
	b.WriteString(" ")
	b.WriteString(verdict)

	if lo.Contains(okVerdicts, strings.TrimSpace(verdict)) {
		return b.String(), true
	}

	variants := lo.FilterMap(result.Array(), func(r gjson.Result, _ int) (string, bool) {
		s := r.String()
		return s, strings.TrimSpace(s) != ""
	})
	switch len(variants) {
	case 0:
	case 1:
		b.WriteString("\n\n")
		b.WriteString(labels.Correction)
		b.WriteString("\n")
		b.WriteString(labels.SingleVariant)
		b.WriteString(" ")
		b.WriteString(variants[0])
	default:
		b.WriteString("\n\n")
		b.WriteString(labels.Correction)
		b.WriteString("\n")
		b.WriteString(labels.MultipleVariants)
		b.WriteString("\n")
		b.WriteString(strings.Join(lo.Map(variants, func(v string, _ int) string {
			return "• " + v
		}), "\n"))
	}

	return b.String(), true
}

func responseString(doc gjson.Result, _ Labels) (string, bool) {
	resp := doc.Get("response")
	if resp.Type != gjson.String {
		return "", false
	}
	return resp.String(), true
}

func topLevelText(doc gjson.Result, _ Labels) (string, bool) {
	if !doc.IsObject() {
		return "", false
	}
	text := doc.Get("text")
	if !text.Exists() {
		return "", false
	}
	return text.String(), true
}
