package uri

import (
	"testing"
	"time"
)

func TestPreviewURL(t *testing.T) {
	date := time.Date(2024, time.March, 4, 5, 6, 7, 0, time.UTC)

	tests := []struct {
		name    string
		base    string
		pattern string
		target  Target
		want    string
	}{
		{
			name:    "default permalink",
			base:    "http://localhost:4000",
			pattern: ":year/:month/:day/:title/",
			target:  Target{Slug: "hello-world", Date: date},
			want:    "http://localhost:4000/2024/03/04/hello-world/",
		},
		{
			name:    "trailing slash on base",
			base:    "http://localhost:4000/",
			pattern: ":title.html",
			target:  Target{Slug: "about"},
			want:    "http://localhost:4000/about.html",
		},
		{
			name:    "unpadded and time tokens",
			base:    "http://localhost:4000",
			pattern: ":year/:i_month/:i_day/:hour-:minute-:second/:name",
			target:  Target{Slug: "notes/first", Date: date},
			want:    "http://localhost:4000/2024/3/4/05-06-07/first",
		},
		{
			name:    "category and post title",
			base:    "http://localhost:4000/blog",
			pattern: ":category/:post_title/",
			target:  Target{Title: "Hello World", Categories: []string{"Dev Notes", "Go"}},
			want:    "http://localhost:4000/blog/Dev%20Notes/Hello%20World/",
		},
		{
			name:    "default category",
			base:    "http://localhost:4000",
			pattern: ":category/:title/",
			target:  Target{Slug: "x"},
			want:    "http://localhost:4000/uncategorized/x/",
		},
		{
			name:    "unknown token kept",
			base:    "http://localhost:4000",
			pattern: ":id/:title/",
			target:  Target{Slug: "x"},
			want:    "http://localhost:4000/:id/x/",
		},
		{
			name:    "explicit relative permalink",
			base:    "http://localhost:4000",
			pattern: ":year/:title/",
			target:  Target{Slug: "x", Date: date, Permalink: "/custom/path (copy)/"},
			want:    "http://localhost:4000/custom/path%20%28copy%29/",
		},
		{
			name:    "explicit absolute permalink",
			base:    "http://localhost:4000",
			pattern: ":year/:title/",
			target:  Target{Slug: "x", Permalink: "https://example.com/x/"},
			want:    "https://example.com/x/",
		},
		{
			name:    "unicode slug",
			base:    "http://localhost:4000",
			pattern: ":title/",
			target:  Target{Slug: "привет"},
			want:    "http://localhost:4000/%D0%BF%D1%80%D0%B8%D0%B2%D0%B5%D1%82/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PreviewURL(tt.base, tt.pattern, tt.target)
			if got != tt.want {
				t.Errorf("PreviewURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
