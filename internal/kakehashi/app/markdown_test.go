package app

import "testing"

func TestMarkdownToHTML(t *testing.T) {
	tests := []struct {
		name string
		md   string
		want string
	}{
		{
			name: "bold",
			md:   "created issue **PROJ-1**",
			want: "created issue <strong>PROJ-1</strong><br/>",
		},
		{
			name: "inline code",
			md:   "run `get-issue PROJ-1`",
			want: "run <code>get-issue PROJ-1</code><br/>",
		},
		{
			name: "unmatched delimiter left alone",
			md:   "a ** b",
			want: "a ** b<br/>",
		},
		{
			name: "code block escapes entities",
			md:   "```\na < b\n```",
			want: "<pre><code>a &lt; b<br/></code></pre>",
		},
		{
			name: "newlines become breaks",
			md:   "line one\nline two",
			want: "line one<br/>line two<br/>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := markdownToHTML(tt.md); got != tt.want {
				t.Errorf("markdownToHTML(%q) = %q, want %q", tt.md, got, tt.want)
			}
		})
	}
}

func TestStripMention(t *testing.T) {
	const userID = "@kakehashi:example.org"

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"full user ID", "@kakehashi:example.org show me PROJ-1", "show me PROJ-1"},
		{"display name with colon", "kakehashi: show me PROJ-1", "show me PROJ-1"},
		{"localpart only", "@kakehashi show me PROJ-1", "show me PROJ-1"},
		{"no mention", "show me PROJ-1", "show me PROJ-1"},
		{"single token", "help", "help"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripMention(tt.in, userID); got != tt.want {
				t.Errorf("stripMention(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
