package security

import "testing"

// TestSanitize_PlainText はプレーンテキストがそのまま保持されることをテストする。
func TestSanitize_PlainText(t *testing.T) {
	s := NewMessageSanitizer()

	inputs := []string{
		"普通のコメントです",
		"Check out https://example.com/page",
		"buy cheap watches!!!",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			got := s.Sanitize(in)
			if got != in {
				t.Errorf("Sanitize(%q) = %q, プレーンテキストが変化した", in, got)
			}
		})
	}
}

// TestSanitize_StripsTags はHTMLタグが全て除去されることをテストする。
func TestSanitize_StripsTags(t *testing.T) {
	s := NewMessageSanitizer()

	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"scriptタグ", `hello <script>alert("x")</script>world`, "hello world"},
		{"imgタグ", `<img src="https://evil.example/x.png">spam text`, "spam text"},
		{"aタグはテキストのみ残す", `<a href="https://example.com">click here</a>`, "click here"},
		{"ネストしたタグ", `<div><p><strong>buy now</strong></p></div>`, "buy now"},
		{"イベント属性付きタグ", `<b onmouseover="steal()">offer</b>`, "offer"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := s.Sanitize(tc.input)
			if got != tc.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

// TestSanitize_UnescapesEntities はHTMLエンティティがデコードされることをテストする。
// ルール評価はデコード後の文字列に対して行われるため、
// & や < を含むキーワードがマッチできる必要がある。
func TestSanitize_UnescapesEntities(t *testing.T) {
	s := NewMessageSanitizer()

	got := s.Sanitize("Tom &amp; Jerry")
	if got != "Tom & Jerry" {
		t.Errorf("Sanitize(\"Tom &amp; Jerry\") = %q, want \"Tom & Jerry\"", got)
	}
}

// TestSanitize_EmptyString は空文字列の入力に空文字列を返すことをテストする。
func TestSanitize_EmptyString(t *testing.T) {
	s := NewMessageSanitizer()

	if got := s.Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %q, want \"\"", got)
	}
}

// TestSanitize_Idempotent は同一入力に対して冪等であることをテストする。
func TestSanitize_Idempotent(t *testing.T) {
	s := NewMessageSanitizer()

	input := `<p>spam &amp; <script>x</script>eggs</p>`
	once := s.Sanitize(input)
	twice := s.Sanitize(once)
	if once != twice {
		t.Errorf("冪等性が破れている: 1回目 %q, 2回目 %q", once, twice)
	}
}

// TestMessageSanitizerInterface はmessageSanitizerがインターフェースを正しく実装していることをテストする。
func TestMessageSanitizerInterface(t *testing.T) {
	var _ MessageSanitizerService = NewMessageSanitizer()
}
