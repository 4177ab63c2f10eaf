package security

import "testing"

func TestSanitizeText_RemovesMarkup(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"プレーンテキストはそのまま", "100km W of Victoria, BC", "100km W of Victoria, BC"},
		{"scriptタグを除去", `<script>alert(1)</script>Victoria`, "Victoria"},
		{"インラインタグを除去してテキストを残す", "<b>Nanaimo</b>, BC", "Nanaimo, BC"},
		{"エンティティをデコード", "Haida Gwaii &amp; region", "Haida Gwaii & region"},
		{"前後の空白を除去", "  Prince George, BC  ", "Prince George, BC"},
		{"空文字列は空文字列", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.SanitizeText(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeText_Idempotent(t *testing.T) {
	s := NewTextSanitizer()

	input := `<a href="https://example.com">Victoria</a>, BC`
	once := s.SanitizeText(input)
	twice := s.SanitizeText(once)

	if once != twice {
		t.Errorf("冪等性が成り立たない: 1回目 %q, 2回目 %q", once, twice)
	}
}
