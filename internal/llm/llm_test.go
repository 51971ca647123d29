package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramshi122/crazy-time-predictor/internal/config"
)

var sampleReq = Request{
	Recent:    "1, 2, 5, 10, Pachinko, 1, 2, 5",
	Frequency: "1:20/60, 2:15/60, 5:10/60, 10:8/60, Pachinko:3/60",
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		in, want string
		err      bool
	}{
		{`{"a":1}`, `{"a":1}`, false},
		{"Here you go:\n```json\n{\"a\":{\"b\":2}}\n```", `{"a":{"b":2}}`, false},
		{"no braces at all", "", true},
		{"} backwards {", "", true},
		{"only {", "", true},
	}
	for _, tc := range cases {
		got, err := ExtractJSON(tc.in)
		if tc.err {
			require.ErrorIs(t, err, ErrNoJSON, tc.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestParsePrediction(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want Prediction
	}{
		{
			"canonical",
			`{"prediction":"Pachinko","confidence":82,"reason":"gap","hot":"1","due":"5","cold":"Crazy Time"}`,
			Prediction{Prediction: "Pachinko", Confidence: 82, Reason: "gap", Hot: "1", Due: "5", Cold: "Crazy Time"},
		},
		{
			"loose types",
			`Answer: {"prediction": 10, "confidence": "77%", "hot": 1}`,
			Prediction{Prediction: "10", Confidence: 77, Hot: "1"},
		},
		{
			"fractional confidence",
			`{"prediction":"2","confidence":0.81}`,
			Prediction{Prediction: "2", Confidence: 81},
		},
		{
			"out of range confidence clamps",
			`{"prediction":"2","confidence":250}`,
			Prediction{Prediction: "2", Confidence: 100},
		},
		{
			"garbage confidence",
			`{"prediction":"5","confidence":"very"}`,
			Prediction{Prediction: "5"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParsePrediction(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, *got)
		})
	}
}

func TestParsePrediction_Errors(t *testing.T) {
	_, err := ParsePrediction("I cannot predict random outcomes.")
	require.ErrorIs(t, err, ErrNoJSON)

	_, err = ParsePrediction(`{"prediction": }`)
	require.Error(t, err)

	_, err = ParsePrediction(`{"confidence": 80}`)
	require.Error(t, err)
}

func TestParseEntry(t *testing.T) {
	assert.Equal(t, Prediction{Confidence: 80}, ParseEntry(`{"confidence": "80%"}`))
	assert.Equal(t, Prediction{Prediction: "5", Hot: "1"}, ParseEntry(`{"prediction": 5, "hot": 1}`))
	assert.Equal(t, Prediction{}, ParseEntry(`"junk"`))
	assert.Equal(t, Prediction{}, ParseEntry(`{"prediction": }`))
}

func providerCfg(endpoint, keyEnv string) config.ProviderConfig {
	return config.ProviderConfig{
		KeyEnv:      keyEnv,
		Endpoint:    endpoint,
		Model:       "test-model",
		MaxTokens:   300,
		Temperature: 0.7,
		Timeout:     2 * time.Second,
	}
}

func TestAnthropic_Predict(t *testing.T) {
	t.Setenv("CTP_TEST_ANTHROPIC", "sk-ant")

	var got anthropicRequest
	var raw map[string]any
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, &got))
		assert.NoError(t, json.Unmarshal(body, &raw))
		_, _ = io.WriteString(w, `{"content":[
			{"type":"text","text":"Sure. {\"prediction\":\"Cash Hunt\","},
			{"type":"tool_use","text":"ignored"},
			{"type":"text","text":"\"confidence\":84,\"reason\":\"due\"}"}
		]}`)
	}))
	defer srv.Close()

	cfg := providerCfg(srv.URL, "CTP_TEST_ANTHROPIC")
	cfg.Temperature = 0
	p := NewAnthropic(cfg)
	require.True(t, p.Configured())
	assert.Equal(t, Claude, p.Name())

	pred, err := p.Predict(context.Background(), sampleReq)
	require.NoError(t, err)
	assert.Equal(t, "Cash Hunt", pred.Prediction)
	assert.Equal(t, 84, pred.Confidence)

	assert.Equal(t, "sk-ant", headers.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", headers.Get("anthropic-version"))
	assert.Equal(t, "application/json", headers.Get("Content-Type"))
	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, 300, got.MaxTokens)
	assert.NotContains(t, raw, "temperature")
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "Markov chain")
	assert.Contains(t, got.Messages[0].Content, sampleReq.Recent)
	assert.Contains(t, got.Messages[0].Content, sampleReq.Frequency)
}

func TestOpenAI_Predict(t *testing.T) {
	t.Setenv("CTP_TEST_OPENAI", "sk-oai")

	var got openAIRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"{\"prediction\":\"5\",\"confidence\":79,\"reason\":\"Overdue\",\"hot\":\"1\",\"due\":\"5\",\"cold\":\"Crazy Time\"}"}}]}`)
	}))
	defer srv.Close()

	p := NewOpenAI(providerCfg(srv.URL, "CTP_TEST_OPENAI"))
	pred, err := p.Predict(context.Background(), sampleReq)
	require.NoError(t, err)
	assert.Equal(t, Prediction{Prediction: "5", Confidence: 79, Reason: "Overdue", Hot: "1", Due: "5", Cold: "Crazy Time"}, *pred)

	assert.Equal(t, "Bearer sk-oai", auth)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, gptSystem, got.Messages[0].Content)
	assert.Contains(t, got.Messages[1].Content, "frequency gap analysis")
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
}

func TestOpenAI_UpstreamErrors(t *testing.T) {
	t.Setenv("CTP_TEST_OPENAI", "sk-oai")

	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":{"message":"bad key"}}`)
		},
		"no choices": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"choices":[]}`)
		},
		"prose reply": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"Outcomes are random."}}]}`)
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			_, err := NewOpenAI(providerCfg(srv.URL, "CTP_TEST_OPENAI")).Predict(context.Background(), sampleReq)
			require.Error(t, err)
			assert.True(t, strings.HasPrefix(err.Error(), "gpt: "), err.Error())
		})
	}
}

func TestGemini_Predict(t *testing.T) {
	t.Setenv("CTP_TEST_GEMINI", "g-key")

	var path, key string
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.Header.Get("x-goog-api-key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"prediction\":\"Coin Flip\",\"confidence\":\"81%\",\"reason\":\"posterior\"}"}]}}]}`)
	}))
	defer srv.Close()

	p := NewGemini(providerCfg(srv.URL+"/", "CTP_TEST_GEMINI"))
	pred, err := p.Predict(context.Background(), sampleReq)
	require.NoError(t, err)
	assert.Equal(t, "Coin Flip", pred.Prediction)
	assert.Equal(t, 81, pred.Confidence)

	assert.True(t, strings.HasSuffix(path, "/models/test-model:generateContent"), path)
	assert.Equal(t, "g-key", key)
	raw, _ := json.Marshal(body)
	assert.Contains(t, string(raw), "Bayesian multi-window")
	assert.Contains(t, string(raw), `"maxOutputTokens":300`)
}

func TestProviders_NotConfigured(t *testing.T) {
	cfg := providerCfg("http://127.0.0.1:1", "CTP_TEST_UNSET_KEY")
	for _, p := range []Provider{NewAnthropic(cfg), NewOpenAI(cfg), NewGemini(cfg)} {
		assert.False(t, p.Configured(), p.Name())
		_, err := p.Predict(context.Background(), sampleReq)
		require.ErrorIs(t, err, ErrNotConfigured, p.Name())
	}
}

// stubProvider is a Provider with a canned answer.
type stubProvider struct {
	name       string
	configured bool
	pred       *Prediction
	err        error
}

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) Configured() bool { return s.configured }
func (s *stubProvider) Predict(context.Context, Request) (*Prediction, error) {
	return s.pred, s.err
}

func TestRegistry(t *testing.T) {
	var mu sync.Mutex
	calls := map[string]error{}
	reg := NewRegistryFrom(func(name string, _ time.Duration, err error) {
		mu.Lock()
		defer mu.Unlock()
		calls[name] = err
	},
		&stubProvider{name: Claude, configured: true, pred: &Prediction{Prediction: "1"}},
		&stubProvider{name: GPT, err: ErrNotConfigured},
		&stubProvider{name: Gemini, configured: true, err: errors.New("boom")},
	)

	assert.Equal(t, map[string]bool{Claude: true, GPT: false, Gemini: true}, reg.Status())
	assert.True(t, reg.AnyConfigured())
	require.Len(t, reg.All(), 3)
	assert.Equal(t, Claude, reg.All()[0].Name())

	_, ok := reg.Get("llama")
	assert.False(t, ok)

	for _, p := range reg.All() {
		_, _ = p.Predict(context.Background(), sampleReq)
	}
	assert.NoError(t, calls[Claude])
	assert.ErrorIs(t, calls[GPT], ErrNotConfigured)
	assert.EqualError(t, calls[Gemini], "boom")
}

func TestNewRegistry_FromConfig(t *testing.T) {
	t.Setenv("CTP_TEST_ONLY_OPENAI", "k")
	cfg := config.Default().Providers
	cfg.Anthropic.KeyEnv = "CTP_TEST_UNSET_A"
	cfg.OpenAI.KeyEnv = "CTP_TEST_ONLY_OPENAI"
	cfg.Google.KeyEnv = "CTP_TEST_UNSET_G"

	reg := NewRegistry(cfg, nil)
	assert.Equal(t, map[string]bool{Claude: false, GPT: true, Gemini: false}, reg.Status())
}
