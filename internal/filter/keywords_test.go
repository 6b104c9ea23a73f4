package filter

import "testing"

func TestMatchKeywords(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		keywords []string
		want     bool
	}{
		{
			name:     "case insensitive match",
			text:     "Mega PROMO de teclado mecânico",
			keywords: []string{"promo"},
			want:     true,
		},
		{
			name:     "substring match inside word",
			text:     "Smartphone com 30% OFF hoje",
			keywords: []string{"% off"},
			want:     true,
		},
		{
			name:     "any keyword suffices",
			text:     "cupom de 10 reais",
			keywords: []string{"desconto", "cupom"},
			want:     true,
		},
		{
			name:     "no keyword present",
			text:     "bom dia grupo",
			keywords: []string{"promo", "desconto"},
			want:     false,
		},
		{
			name:     "empty keyword list matches everything",
			text:     "anything at all",
			keywords: nil,
			want:     true,
		},
		{
			name:     "empty text with keywords",
			text:     "",
			keywords: []string{"promo"},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchKeywords(tt.text, tt.keywords); got != tt.want {
				t.Errorf("MatchKeywords(%q, %v) = %v, want %v", tt.text, tt.keywords, got, tt.want)
			}
		})
	}
}
