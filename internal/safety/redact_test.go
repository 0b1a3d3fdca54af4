package safety

import (
	"strings"
	"testing"
)

func TestScrub(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "env style assignment",
			in:   `OPENAI_API_KEY=sk-abc123def456 ffmpeg -i in.mp4 out.gif`,
			want: `OPENAI_API_KEY=<redacted> ffmpeg -i in.mp4 out.gif`,
		},
		{
			name: "bearer header",
			in:   `curl -H "Authorization: Bearer sk-abc123def456xyz" https://api.example.com`,
			want: `curl -H "Authorization: Bearer <redacted>" https://api.example.com`,
		},
		{
			name: "bare sk token",
			in:   `request failed for key sk-proj-aaaabbbbcccc`,
			want: `request failed for key <redacted>`,
		},
		{
			name: "long flag",
			in:   `tool --api-key=hunter2hunter2 --input a.mp4`,
			want: `tool --api-key=<redacted> --input a.mp4`,
		},
		{
			name: "plain ffmpeg stderr untouched",
			in:   `Error opening input file missing.mp4: No such file or directory`,
			want: `Error opening input file missing.mp4: No such file or directory`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Scrub(tt.in)
			if got != tt.want {
				t.Fatalf("Scrub(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestScrubNeverLeaksKnownToken(t *testing.T) {
	secret := "sk-verysecrettoken123"
	inputs := []string{
		"api_key=" + secret,
		"Authorization: Bearer " + secret,
		"stray " + secret + " in output",
	}
	for _, in := range inputs {
		if out := Scrub(in); strings.Contains(out, secret) {
			t.Fatalf("Scrub(%q) leaked the token: %q", in, out)
		}
	}
}
