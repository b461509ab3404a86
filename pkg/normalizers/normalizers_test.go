package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "already international", input: "+573001234567", expected: "+573001234567"},
		{name: "international with punctuation", input: "+57 (300) 123-4567", expected: "+573001234567"},
		{name: "country code without plus", input: "573001234567", expected: "+573001234567"},
		{name: "domestic mobile", input: "300 123 4567", expected: "+573001234567"},
		{name: "other country passes through", input: "+1 415 555 0100", expected: "+14155550100"},
		{name: "country prefix one digit short", input: "57300123456", expected: "+57300123456"},
		{name: "country prefix one digit long", input: "5730012345678", expected: "+5730012345678"},
		{name: "bare ten digits", input: "6012345678", expected: "+576012345678"},
		{name: "lossy fallback keeps last ten digits", input: "0057-300-123-4567", expected: "+573001234567"},
		{name: "too short", input: "12-34-5", expected: ""},
		{name: "empty", input: "", expected: ""},
		{name: "letters only", input: "no tiene", expected: ""},
		{name: "between seven and ten digits", input: "1234567", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePhone(tt.input))
		})
	}
}

func TestNormalizePhone_Idempotent(t *testing.T) {
	inputs := []string{
		"+573001234567", "573001234567", "3001234567", "+14155550100",
		"57300123456", "5730012345678", "6012345678", "0057-300-123-4567",
		"(+57) 310 555 12 12", "+57 300 123 45 678",
	}

	for _, in := range inputs {
		once := NormalizePhone(in)
		if once == "" {
			continue
		}
		assert.Equal(t, once, NormalizePhone(once), "input %q", in)
	}
}

func TestPhoneRules_WithoutLossyFallback(t *testing.T) {
	rules := DefaultPhoneRules()
	rules.LossyFallback = false

	assert.Equal(t, "", rules.Normalize("0057-300-123-4567"))
	assert.Equal(t, "+573001234567", rules.Normalize("3001234567"))
}

func TestPhoneTail(t *testing.T) {
	assert.Equal(t, "01234567", PhoneTail("+573001234567", 8))
	assert.Equal(t, "", PhoneTail("+57300", 8))
	assert.Equal(t, "", PhoneTail("", 8))
}

func TestExtractSecondaryID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "contacts link", input: "https://chat.example.com/contacts/123456", expected: "123456"},
		{name: "chat link with query", input: "https://app.example.com/chat/987?tab=info", expected: "987"},
		{name: "conversation link", input: "https://inbox.example.com/conversations/42/messages", expected: "42"},
		{name: "no numeric id", input: "https://chat.example.com/contacts/abc", expected: ""},
		{name: "unrelated link", input: "https://example.com/orders/123", expected: ""},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractSecondaryID(tt.input))
		})
	}
}

func TestNewSecondaryIDExtractor(t *testing.T) {
	e, err := NewSecondaryIDExtractor(`/u/(\d+)$`)
	require.NoError(t, err)
	assert.Equal(t, "77", e.Extract("https://wa.example.com/u/77"))
	assert.Equal(t, "", e.Extract("https://wa.example.com/u/77/x"))

	_, err = NewSecondaryIDExtractor(`(`)
	assert.Error(t, err)
}

func TestNormalizeStage(t *testing.T) {
	assert.Equal(t, "Pendiente de Envio", NormalizeStage("Pendiente de Envío"))
	assert.Equal(t, "Pendiente de Envio", NormalizeStage("Pendiente de Envio"))
	assert.Equal(t, "Entregado", NormalizeStage("Entregado"))

	custom := NewStageNormalizer(map[string]string{"Confirmación": "Confirmacion"})
	assert.Equal(t, "Confirmacion", custom.Normalize("Confirmación"))
	assert.Equal(t, "Pendiente de Envío", custom.Normalize("Pendiente de Envío"))
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "maria lopez", NormalizeName("  María   López "))
	assert.Equal(t, "juan perez", NormalizeName("JUAN PÉREZ."))
	assert.Equal(t, "", NormalizeName("  "))
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "cl 10 # 5 20", NormalizeAddress("Calle 10 No. 5-20"))
	assert.Equal(t, "cra 7 # 45 10 apto 301", NormalizeAddress("Carrera 7 #45-10, Apartamento 301"))
	assert.Equal(t, NormalizeAddress("CLL 10 # 5 20"), NormalizeAddress("calle 10 numero 5-20"))
}

func TestApplyChain(t *testing.T) {
	assert.Equal(t, "maria", ApplyChain("  MARÍA ", "trim", "lowercase", "fold_accents"))
	assert.Equal(t, "unchanged", Apply("unchanged", "does_not_exist"))

	fn, ok := Get("nphone")
	require.True(t, ok)
	assert.Equal(t, "+573001234567", fn("3001234567"))
}
