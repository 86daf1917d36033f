package provider

import (
	"context"
	"errors"
	"testing"

	"matesl-go/internal/config"
	"matesl-go/internal/model"
	"matesl-go/pkg/huggingface"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	procedures []model.Procedure
	messages   []string
}

func (c *fakeCatalog) RelevantProcedures(ctx context.Context, message string, limit int) []model.Procedure {
	c.messages = append(c.messages, message)
	if len(c.procedures) > limit {
		return c.procedures[:limit]
	}
	return c.procedures
}

func passportProcedure() model.Procedure {
	return model.Procedure{
		ID:    "p-1",
		Title: "Apply for Passport",
		Steps: []model.ProcedureStep{
			{Order: 1, Instruction: "Fill the application form", InstructionSi: "අයදුම්පත පුරවන්න"},
			{Order: 2, Instruction: "Visit the Immigration office"},
			{Order: 3, Instruction: "Provide biometrics"},
			{Order: 4, Instruction: "Collect the passport"},
		},
		Fees: []model.Fee{{Description: "Normal service", Amount: 3500}},
	}
}

func TestCategorize(t *testing.T) {
	cases := map[string]model.Category{
		"How do I get my NIC?":          model.CategoryIdentityDocuments,
		"passport renewal":              model.CategoryPassports,
		"I need a birth certificate":    model.CategoryBirthCertificates,
		"university degree certificate": model.CategoryEducation,
		"register my company":           model.CategoryBusiness,
		"driving permit":                model.CategoryVehicle,
		"land deed transfer":            model.CategoryProperty,
		"hello":                         model.CategoryOther,
	}
	for msg, want := range cases {
		assert.Equal(t, want, categorize(msg), msg)
	}
}

func TestIntentFromLabel(t *testing.T) {
	assert.Equal(t, IntentFeeInquiry, intentFromLabel("fee inquiry"))
	assert.Equal(t, IntentGreeting, intentFromLabel("greeting"))
}

func TestStepsAnswer(t *testing.T) {
	p := passportProcedure()
	got := stepsAnswer(&p, model.LanguageEN)
	assert.Equal(t, "To apply for passport:\n\n1. Fill the application form\n2. Visit the Immigration office\n3. Provide biometrics\n\nFees: LKR 3500", got)

	got = stepsAnswer(&p, model.LanguageSI)
	assert.Contains(t, got, "1. අයදුම්පත පුරවන්න")
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "100", formatAmount(100))
	assert.Equal(t, "2500.5", formatAmount(2500.5))
	assert.Equal(t, "0.75", formatAmount(0.75))
}

func TestTemplateAnswerFallsBack(t *testing.T) {
	p := model.Procedure{Title: "Birth Certificate"}
	assert.Equal(t, "For Birth Certificate, you need to: visit the relevant office", templateAnswer(&p, model.LanguageEN))

	withStep := passportProcedure()
	assert.Equal(t, "For Apply for Passport, you need to: Fill the application form", templateAnswer(&withStep, model.LanguageEN))
}

func TestStatus(t *testing.T) {
	enabled := NewHuggingFace(nil, &fakeCatalog{}, config.HuggingFaceConfig{APIKey: "hf_x"})
	disabled := NewOpenAI(config.OpenAIConfig{Model: "gpt-3.5-turbo"}, &fakeCatalog{})

	s := Status(enabled)
	assert.True(t, s.Enabled)
	assert.Equal(t, model.ModelStatusAvailable, s.Status)
	assert.Equal(t, KindHuggingFace, s.Provider)

	s = Status(disabled)
	assert.False(t, s.Enabled)
	assert.Equal(t, model.ModelStatusDisabled, s.Status)
	assert.Equal(t, "gpt-3.5-turbo", s.Name)
}

var _ huggingface.Client = (*fakeHF)(nil)

type fakeHF struct {
	labels    []huggingface.Label
	labelErr  error
	generated string
	genErr    error
	prompts   []string
	panicOnce bool
}

func (f *fakeHF) ZeroShotClassification(ctx context.Context, text string, candidates []string) ([]huggingface.Label, error) {
	if f.panicOnce {
		f.panicOnce = false
		panic("malformed response")
	}
	return f.labels, f.labelErr
}

func (f *fakeHF) TextGeneration(ctx context.Context, prompt string, params huggingface.GenerationParams) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.generated, f.genErr
}

func hfConfig() config.HuggingFaceConfig {
	return config.HuggingFaceConfig{APIKey: "hf_test", MaxNewTokens: 200, Temperature: 0.7}
}

func TestHuggingFaceGenerate(t *testing.T) {
	client := &fakeHF{
		labels:    []huggingface.Label{{Label: "fee inquiry", Score: 0.8}, {Label: "greeting", Score: 0.1}},
		generated: "You can apply at the Department of Immigration.",
	}
	catalog := &fakeCatalog{procedures: []model.Procedure{passportProcedure()}}
	p := NewHuggingFace(client, catalog, hfConfig())

	res := p.Generate(context.Background(), model.AIRequest{Message: "how much is a passport", Language: model.LanguageEN})
	require.True(t, res.Success)
	assert.Equal(t, HuggingFaceModelName, res.ModelUsed)
	assert.Equal(t, "You can apply at the Department of Immigration.", res.Response.Message)
	assert.Equal(t, IntentFeeInquiry, res.Response.Intent)
	assert.Equal(t, model.CategoryPassports, res.Response.Category)
	assert.Equal(t, "p-1", res.Response.ProcedureID)
	assert.GreaterOrEqual(t, res.Response.Confidence, 0.4)

	require.Len(t, res.Response.SuggestedActions, 2)
	assert.Equal(t, model.ActionProcedure, res.Response.SuggestedActions[0].Type)
	assert.Equal(t, model.ActionSearch, res.Response.SuggestedActions[1].Type)

	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "Procedure: Apply for Passport")
	assert.Contains(t, client.prompts[0], "User question: how much is a passport")
}

func TestHuggingFaceDegradesSubcalls(t *testing.T) {
	client := &fakeHF{labelErr: errors.New("503"), genErr: errors.New("503")}
	catalog := &fakeCatalog{procedures: []model.Procedure{passportProcedure()}}
	p := NewHuggingFace(client, catalog, hfConfig())

	res := p.Generate(context.Background(), model.AIRequest{Message: "passport", Language: model.LanguageEN})
	require.True(t, res.Success)
	assert.Equal(t, IntentGeneralHelp, res.Response.Intent)
	assert.Equal(t, "For Apply for Passport, you need to: Fill the application form", res.Response.Message)
}

func TestHuggingFaceWithoutProcedures(t *testing.T) {
	client := &fakeHF{labels: []huggingface.Label{{Label: "greeting"}}}
	p := NewHuggingFace(client, &fakeCatalog{}, hfConfig())

	res := p.Generate(context.Background(), model.AIRequest{Message: "hello", Language: model.LanguageTA})
	require.True(t, res.Success)
	assert.Equal(t, hfGenericHelp[model.LanguageTA], res.Response.Message)
	assert.Equal(t, 0.3, res.Response.Confidence)
	assert.Empty(t, res.Response.SuggestedActions)
	assert.Empty(t, client.prompts)
}

func TestHuggingFaceFailsOnCancelledContextOrPanic(t *testing.T) {
	p := NewHuggingFace(&fakeHF{panicOnce: true}, &fakeCatalog{}, hfConfig())

	res := p.Generate(context.Background(), model.AIRequest{Message: "hello"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "panicked")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res = p.Generate(ctx, model.AIRequest{Message: "hello"})
	assert.False(t, res.Success)
	assert.Equal(t, HuggingFaceModelName, res.ModelUsed)
}
