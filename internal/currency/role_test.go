package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wakala/feerecon/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		asset string
		want  domain.AssetRole
	}{
		{"base", "BTC", domain.AssetBase},
		{"quote", "USD", domain.AssetQuote},
		{"aux", "GT", domain.AssetAux},
		{"case sensitive", "btc", domain.AssetAux},
		{"undefined", "", domain.AssetUndefined},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.asset, "BTC", "USD"))
		})
	}
}

func TestClassify_BaseWinsWhenPairIsDegenerate(t *testing.T) {
	assert.Equal(t, domain.AssetBase, Classify("USD", "USD", "USD"))
}

func TestIsAlternateFeeToken(t *testing.T) {
	assert.True(t, IsAlternateFeeToken("GT"))
	assert.True(t, IsAlternateFeeToken("gt"))
	assert.False(t, IsAlternateFeeToken(" Gt "))
	assert.False(t, IsAlternateFeeToken("GT\n"))
	assert.False(t, IsAlternateFeeToken("GTX"))
	assert.False(t, IsAlternateFeeToken(""))
}
