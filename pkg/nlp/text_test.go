package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"how", "can", "i", "apply", "for", "a", "new", "nic"},
		Tokenize("How can I apply for a new NIC?"))
	assert.Empty(t, Tokenize("  ?!  "))

	// 僧伽罗文的元音符号不能把词切断
	tokens := Tokenize("නව ජාතික හැඳුනුම්පත")
	assert.Len(t, tokens, 3)
}

func TestStemGroupsInflections(t *testing.T) {
	assert.Equal(t, Stem("certificate"), Stem("certificates"))
	assert.Equal(t, Stem("apply"), Stem("applying"))
	assert.Equal(t, Stem("passport"), Stem("Passports"))
	// 非 ASCII 原样返回
	assert.Equal(t, "හැඳුනුම්පත", Stem("හැඳුනුම්පත"))
}

func TestDetectLanguage(t *testing.T) {
	cases := map[string]string{
		"how can I apply for a new NIC": LangEnglish,
		"නව හැඳුනුම්පතක් ලබා ගන්නේ කෙසේද": LangSinhala,
		"புதிய அடையாள அட்டை":              LangTamil,
		"passport renewal ගමන් බලපත්‍රය":  LangSinhala,
		"தமிழ் and සිංහල mixed":           LangSinhala,
		"": LangEnglish,
	}
	for text, want := range cases {
		assert.Equal(t, want, DetectLanguage(text), text)
	}
}

func TestOverlap(t *testing.T) {
	assert.Equal(t, 0.0, Overlap("", "anything"))
	assert.Equal(t, 1.0, Overlap("new passport", "Apply for new passport"))
	assert.InDelta(t, 0.5, Overlap("passport fees", "passport office"), 1e-9)
}

func TestExtractEntities(t *testing.T) {
	entities := ExtractEntities("Call 0771234567 or mail help@gov.lk, fee is LKR 3,500.00")
	require.Len(t, entities, 3)

	assert.Equal(t, EntityPhone, entities[0].Type)
	assert.Equal(t, "0771234567", entities[0].Value)
	assert.Equal(t, 0.9, entities[0].Confidence)
	assert.Equal(t, 5, entities[0].Position.Start)

	assert.Equal(t, EntityEmail, entities[1].Type)
	assert.Equal(t, "help@gov.lk", entities[1].Value)

	assert.Equal(t, EntityAmount, entities[2].Type)
	assert.Equal(t, "LKR 3,500.00", entities[2].Value)
	assert.Equal(t, 0.85, entities[2].Confidence)

	amounts := ExtractEntities("it costs rs. 100")
	require.Len(t, amounts, 1)
	assert.Equal(t, "rs. 100", amounts[0].Value)

	assert.Empty(t, ExtractEntities("nothing to see"))
}
