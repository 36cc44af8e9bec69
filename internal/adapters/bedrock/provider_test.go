package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/mail-threat-analyzer/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuntime struct {
	input *bedrockruntime.InvokeModelInput
	body  string
	err   error
}

func (f *fakeRuntime) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

var testRequest = core.VerdictRequest{SystemInstruction: "sys", Prompt: "analyze this"}

func decodeBody(t *testing.T, input *bedrockruntime.InvokeModelInput) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(input.Body, &body))
	return body
}

func TestAnthropicModel(t *testing.T) {
	rt := &fakeRuntime{body: `{"content":[{"type":"text","text":"{\"riskLevel\":\"LOW\"}"}],"stop_reason":"end_turn"}`}
	p := NewProvider(rt, "anthropic.claude-3-haiku-20240307-v1:0", 500, 0.3, 0.9, nil)

	text, model, err := p.RequestVerdict(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, `{"riskLevel":"LOW"}`, text)
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", model)
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", aws.ToString(rt.input.ModelId))

	body := decodeBody(t, rt.input)
	assert.Equal(t, anthropicVersion, body["anthropic_version"])
	assert.Equal(t, "sys", body["system"])
	assert.EqualValues(t, 500, body["max_tokens"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "analyze this", messages[0].(map[string]any)["content"])
}

func TestCrossRegionAnthropicProfile(t *testing.T) {
	p := NewProvider(&fakeRuntime{}, "us.anthropic.claude-3-5-sonnet-20240620-v1:0", 500, 0, 0, nil)
	assert.True(t, p.isAnthropicModel())
}

func TestTitanModel(t *testing.T) {
	rt := &fakeRuntime{body: `{"results":[{"outputText":"{}"}]}`}
	p := NewProvider(rt, "amazon.titan-text-express-v1", 300, 0.3, 0.9, nil)

	text, _, err := p.RequestVerdict(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, "{}", text)

	body := decodeBody(t, rt.input)
	assert.Equal(t, "sys\n\nanalyze this", body["inputText"])

	rt.body = `{"results":[]}`
	_, _, err = p.RequestVerdict(context.Background(), testRequest)
	assert.Error(t, err)
}

func TestGenericModel(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"generation":"{\"a\":1}"}`, `{"a":1}`},
		{`{"output":"out"}`, "out"},
		{`{"unknown":"shape"}`, `{"unknown":"shape"}`},
	}

	for _, tt := range tests {
		p := NewProvider(&fakeRuntime{body: tt.body}, "meta.llama3-8b-instruct-v1:0", 300, 0.3, 0.9, nil)
		text, _, err := p.RequestVerdict(context.Background(), testRequest)
		require.NoError(t, err)
		assert.Equal(t, tt.want, text)
	}
}

func TestInvokeError(t *testing.T) {
	p := NewProvider(&fakeRuntime{err: errors.New("throttled")}, "anthropic.claude-v2", 300, 0, 0, nil)
	_, _, err := p.RequestVerdict(context.Background(), testRequest)
	assert.ErrorContains(t, err, "throttled")

	p = NewProvider(&fakeRuntime{body: `{"content":[]}`}, "anthropic.claude-v2", 300, 0, 0, nil)
	_, _, err = p.RequestVerdict(context.Background(), testRequest)
	assert.Error(t, err)
}
