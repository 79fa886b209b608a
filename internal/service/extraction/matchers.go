package extraction

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"github.com/tidwall/gjson"
)

const (
	matchTimeout   = 250 * time.Millisecond
	minResponseLen = 10
	maxProseLen    = 1000
	minQuotedRun   = 20

	proseTerminators = ".!?"
	errorMarker      = "error"
)

var (
	reAgentRunSingle = compile(`AgentRunResult\(data=AgentOutput\(response='([^']*)(?<!\\)', confidence=([0-9.]+), sentiment='([^']*)'\)\)`, regexp2.None)
	reAgentRunDouble = compile(`AgentRunResult\(data=AgentOutput\(response="(.*?)(?<!\\)", confidence=([0-9.]+), sentiment='([^']*)'\)\)`, regexp2.Singleline)

	reResponseField = compile(`response=(?:'|")(.*?)(?:'|")(?=,\s*confidence)`, regexp2.Singleline)
	reConfidenceKV  = compile(`confidence=([0-9.]+)`, regexp2.None)
	reSentimentKV   = compile(`sentiment=(?:'|")(.*?)(?:'|")`, regexp2.None)

	reJSONResponse   = compile(`"response"\s*:\s*"((?:[^"\\]|\\.)*)"`, regexp2.Singleline)
	reJSONConfidence = compile(`"confidence"\s*:\s*([\d.]+)`, regexp2.None)
	reJSONSentiment  = compile(`"sentiment"\s*:\s*"([^"]*)"`, regexp2.None)

	reAgentOutput    = compile(`AgentOutput\((.*?)\)`, regexp2.Singleline)
	reInnerResponse  = compile(`response=['"](.+?)["'](?=\s*,?\s*\w+\s*=|\s*$)`, regexp2.Singleline)
	reInnerSentiment = compile(`sentiment=['"]([^'"]+)['"]`, regexp2.None)

	reJSONObject = compile(`\{.*\}`, regexp2.Singleline)

	reDataOutput     = compile(`data=AgentOutput\((.*?)\)`, regexp2.Singleline)
	reResponsePrefix = compile(`response=(?:"|')`, regexp2.None)
	reConfidenceTail = compile(`(?:"|')\s*,?\s*confidence.*`, regexp2.None)

	reQuotedRun     = compile(fmt.Sprintf(`(?:"|')([^"']{%d,})(?:"|')`, minQuotedRun), regexp2.None)
	reWrapperTokens = compile(`final_result|Raw result string:|AgentRunResult|AgentOutput|\(|\)|data=`, regexp2.None)
)

func compile(pattern string, opts regexp2.RegexOptions) *regexp2.Regexp {
	re := regexp2.MustCompile(pattern, opts)
	re.MatchTimeout = matchTimeout
	return re
}

// find returns the whole match followed by its groups, or nil.
func find(re *regexp2.Regexp, text string) ([]string, error) {
	m, err := re.FindStringMatch(text)
	if err != nil || m == nil {
		return nil, err
	}
	groups := m.Groups()
	out := make([]string, len(groups))
	for i := range groups {
		out[i] = groups[i].String()
	}
	return out, nil
}

// lookupConfidence keeps the default when the field is missing or unparsable.
func lookupConfidence(re *regexp2.Regexp, text string) (float64, error) {
	g, err := find(re, text)
	if err != nil || g == nil {
		return DefaultConfidence, err
	}
	v, perr := strconv.ParseFloat(g[1], 64)
	if perr != nil {
		return DefaultConfidence, nil
	}
	return v, nil
}

func lookupString(re *regexp2.Regexp, text, def string) (string, error) {
	g, err := find(re, text)
	if err != nil || g == nil {
		return def, err
	}
	return g[1], nil
}

func matchAgentRun(re *regexp2.Regexp, text string) (Result, bool, error) {
	g, err := find(re, text)
	if err != nil || g == nil {
		return Result{}, false, err
	}
	conf, err := strconv.ParseFloat(g[2], 64)
	if err != nil {
		return Result{}, false, fmt.Errorf("confidence %q: %w", g[2], err)
	}
	return Result{Response: g[1], Confidence: conf, Sentiment: g[3]}, true, nil
}

// AgentRunResult(data=AgentOutput(response='...', confidence=N, sentiment='...'))
func matchAgentRunSingle(text string) (Result, bool, error) {
	return matchAgentRun(reAgentRunSingle, text)
}

// Same rendering with a double-quoted, possibly multi-line response.
func matchAgentRunDouble(text string) (Result, bool, error) {
	return matchAgentRun(reAgentRunDouble, text)
}

// matchResponseField takes response= up to the confidence field and looks
// the other fields up anywhere in the text.
func matchResponseField(text string) (Result, bool, error) {
	g, err := find(reResponseField, text)
	if err != nil || g == nil {
		return Result{}, false, err
	}

	res := Result{Response: g[1]}
	if res.Confidence, err = lookupConfidence(reConfidenceKV, text); err != nil {
		return Result{}, false, err
	}
	if res.Sentiment, err = lookupString(reSentimentKV, text, DefaultSentiment); err != nil {
		return Result{}, false, err
	}
	return res, true, nil
}

// matchJSONFields reads "response": "..." style keys independently.
func matchJSONFields(text string) (Result, bool, error) {
	g, err := find(reJSONResponse, text)
	if err != nil || g == nil {
		return Result{}, false, err
	}

	res := Result{Response: unescapeJSON(g[1])}
	if res.Confidence, err = lookupConfidence(reJSONConfidence, text); err != nil {
		return Result{}, false, err
	}
	if res.Sentiment, err = lookupString(reJSONSentiment, text, DefaultSentiment); err != nil {
		return Result{}, false, err
	}
	return res, true, nil
}

func unescapeJSON(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	quoted := `"` + s + `"`
	if !gjson.Valid(quoted) {
		return s
	}
	return gjson.Parse(quoted).String()
}

// matchAgentOutput reads fields inside AgentOutput(...) in any order.
func matchAgentOutput(text string) (Result, bool, error) {
	outer, err := find(reAgentOutput, text)
	if err != nil || outer == nil {
		return Result{}, false, err
	}
	inner := outer[1]

	g, err := find(reInnerResponse, inner)
	if err != nil || g == nil {
		return Result{}, false, err
	}

	res := Result{Response: g[1]}
	if res.Confidence, err = lookupConfidence(reConfidenceKV, inner); err != nil {
		return Result{}, false, err
	}
	if res.Sentiment, err = lookupString(reInnerSentiment, inner, DefaultSentiment); err != nil {
		return Result{}, false, err
	}
	return res, true, nil
}

// matchJSONObject parses the widest {...} span as a JSON object.
func matchJSONObject(text string) (Result, bool, error) {
	g, err := find(reJSONObject, text)
	if err != nil || g == nil {
		return Result{}, false, err
	}
	if !gjson.Valid(g[0]) {
		return Result{}, false, nil
	}

	obj := gjson.Parse(g[0])
	if !obj.IsObject() {
		return Result{}, false, nil
	}
	response := obj.Get("response")
	if !response.Exists() {
		return Result{}, false, nil
	}

	res := Result{Response: response.String(), Confidence: DefaultConfidence, Sentiment: DefaultSentiment}
	if c := obj.Get("confidence"); c.Type == gjson.Number {
		res.Confidence = c.Float()
	}
	if s := obj.Get("sentiment"); s.Type == gjson.String {
		res.Sentiment = s.String()
	}
	return res, true, nil
}

// matchDataContent strips the response= prefix and the confidence tail
// from data=AgentOutput(...).
func matchDataContent(text string) (Result, bool, error) {
	g, err := find(reDataOutput, text)
	if err != nil || g == nil {
		return Result{}, false, err
	}

	cleaned, err := reResponsePrefix.Replace(g[1], "", -1, -1)
	if err != nil {
		return Result{}, false, err
	}
	cleaned, err = reConfidenceTail.Replace(cleaned, "", -1, -1)
	if err != nil {
		return Result{}, false, err
	}
	cleaned = strings.TrimSpace(cleaned)

	if utf8.RuneCountInString(cleaned) <= minResponseLen {
		return Result{}, false, nil
	}
	return withDefaults(cleaned), true, nil
}

// matchQuotedRun takes the first quoted run long enough to be an answer.
func matchQuotedRun(text string) (Result, bool, error) {
	g, err := find(reQuotedRun, text)
	if err != nil || g == nil {
		return Result{}, false, err
	}
	return withDefaults(g[1]), true, nil
}

// matchProse accepts text that reads as sentences once wrapper tokens are
// removed. Text mentioning an error is never echoed back, neither is a
// structured answer whose response came out empty.
func matchProse(text string) (Result, bool, error) {
	if utf8.RuneCountInString(text) <= minResponseLen ||
		strings.Contains(strings.ToLower(text), errorMarker) ||
		!strings.ContainsAny(text, proseTerminators) {
		return Result{}, false, nil
	}
	if ok, err := structured(text); ok || err != nil {
		return Result{}, false, err
	}

	cleaned, err := reWrapperTokens.Replace(text, "", -1, -1)
	if err != nil {
		return Result{}, false, err
	}
	cleaned = strings.TrimSpace(cleaned)

	if utf8.RuneCountInString(cleaned) <= minResponseLen {
		return Result{}, false, nil
	}
	if r := []rune(cleaned); len(r) > maxProseLen {
		cleaned = string(r[:maxProseLen])
	}
	return withDefaults(cleaned), true, nil
}

// structured reports JSON documents and text carrying a response field.
func structured(text string) (bool, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if gjson.Valid(trimmed) {
			return true, nil
		}
	}
	for _, re := range []*regexp2.Regexp{reJSONResponse, reResponseField} {
		ok, err := re.MatchString(text)
		if ok || err != nil {
			return ok, err
		}
	}
	return false, nil
}

func withDefaults(response string) Result {
	return Result{Response: response, Confidence: DefaultConfidence, Sentiment: DefaultSentiment}
}
