package htmlutil

import "testing"

func TestSnippet(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		max         int
		want        string
	}{
		{"json untouched", `{"cod":401, "message":"Invalid API key"}`, "application/json", 0, `{"cod":401, "message":"Invalid API key"}`},
		{"html by content type", "<h1>502 Bad Gateway</h1>\n<p>nginx</p>", "text/html; charset=utf-8", 0, "502 Bad Gateway nginx"},
		{"html sniffed", "<html><body>Service &amp; Unavailable</body></html>", "", 0, "Service & Unavailable"},
		{"whitespace collapsed", "too   many\n\nspaces", "text/plain", 0, "too many spaces"},
		{"truncated", "abcdefghij", "text/plain", 4, "abcd..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Snippet(tt.body, tt.contentType, tt.max); got != tt.want {
				t.Errorf("Snippet() = %q, want %q", got, tt.want)
			}
		})
	}
}
