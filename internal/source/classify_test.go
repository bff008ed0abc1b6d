package source

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/justchokingaround/playcore/internal/playerr"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Descriptor
	}{
		{
			name: "youtube watch",
			raw:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s",
			want: Descriptor{Kind: KindEmbed, Platform: PlatformYouTube, Reference: "dQw4w9WgXcQ"},
		},
		{
			name: "youtube short link",
			raw:  "https://youtu.be/dQw4w9WgXcQ?si=abc",
			want: Descriptor{Kind: KindEmbed, Platform: PlatformYouTube, Reference: "dQw4w9WgXcQ"},
		},
		{
			name: "youtube embed nocookie",
			raw:  "https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ",
			want: Descriptor{Kind: KindEmbed, Platform: PlatformYouTube, Reference: "dQw4w9WgXcQ"},
		},
		{
			name: "youtube shorts on mobile host",
			raw:  "https://m.youtube.com/shorts/dQw4w9WgXcQ",
			want: Descriptor{Kind: KindEmbed, Platform: PlatformYouTube, Reference: "dQw4w9WgXcQ"},
		},
		{
			name: "vimeo plain",
			raw:  "https://vimeo.com/76979871",
			want: Descriptor{Kind: KindEmbed, Platform: PlatformVimeo, Reference: "76979871"},
		},
		{
			name: "vimeo channel",
			raw:  "https://vimeo.com/channels/staffpicks/76979871",
			want: Descriptor{Kind: KindEmbed, Platform: PlatformVimeo, Reference: "76979871"},
		},
		{
			name: "vimeo player with private hash",
			raw:  "https://player.vimeo.com/video/76979871?h=8272103f6e",
			want: Descriptor{Kind: KindEmbed, Platform: PlatformVimeo, Reference: "76979871"},
		},
		{
			name: "dailymotion slugged",
			raw:  "https://www.dailymotion.com/video/x8abcd1_some-title",
			want: Descriptor{Kind: KindEmbed, Platform: PlatformDailymotion, Reference: "x8abcd1"},
		},
		{
			name: "dailymotion short",
			raw:  "https://dai.ly/x8abcd1",
			want: Descriptor{Kind: KindEmbed, Platform: PlatformDailymotion, Reference: "x8abcd1"},
		},
		{
			name: "streamable embed",
			raw:  "https://streamable.com/e/moo2",
			want: Descriptor{Kind: KindEmbed, Platform: PlatformStreamable, Reference: "moo2"},
		},
		{
			name: "mp4 extension",
			raw:  "https://cdn.example.com/films/night.MP4?token=x",
			want: Descriptor{Kind: KindDirectMP4, Reference: "https://cdn.example.com/films/night.MP4?token=x"},
		},
		{
			name: "storage host without extension",
			raw:  "https://storage.googleapis.com/bucket/object-123",
			want: Descriptor{Kind: KindDirectMP4, Reference: "https://storage.googleapis.com/bucket/object-123"},
		},
		{
			name: "unknown site passes through",
			raw:  "https://player.example.org/embed/abc",
			want: Descriptor{Kind: KindEmbed, Platform: PlatformGeneric, Reference: "https://player.example.org/embed/abc"},
		},
		{
			name: "youtube channel degrades to iframe",
			raw:  "https://www.youtube.com/channel/UC38IQsAvIsxxjztdMZQtwHA",
			want: Descriptor{Kind: KindEmbed, Platform: PlatformGeneric, Reference: "https://www.youtube.com/channel/UC38IQsAvIsxxjztdMZQtwHA"},
		},
		{
			name: "iframe snippet",
			raw:  `<iframe width="560" src="//www.youtube.com/embed/dQw4w9WgXcQ" allowfullscreen></iframe>`,
			want: Descriptor{Kind: KindEmbed, Platform: PlatformYouTube, Reference: "dQw4w9WgXcQ"},
		},
		{
			name: "not a url",
			raw:  "just some text",
			want: Descriptor{Kind: KindEmbed, Platform: PlatformGeneric, Reference: "just some text"},
		},
		{
			name: "empty",
			raw:  "   ",
			want: Descriptor{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.raw)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Classify(%q) mismatch (-want +got):\n%s", tt.raw, diff)
			}
		})
	}
}

func TestClassifyBlankIsNoSource(t *testing.T) {
	for _, raw := range []string{"", " ", "\t\n"} {
		d, err := NewClassifier().ClassifyDetailed(raw)
		assert.NoError(t, err)
		assert.True(t, d.IsZero(), "%q", raw)
		assert.Equal(t, KindNone, Classify(raw).Kind, "%q", raw)
	}
}

func TestClassifyIsIdempotentOnCanonicalURL(t *testing.T) {
	inputs := []string{
		"https://youtu.be/dQw4w9WgXcQ",
		"https://vimeo.com/channels/staffpicks/76979871",
		"https://www.dailymotion.com/embed/video/x8abcd1",
		"https://streamable.com/e/moo2",
	}
	for _, raw := range inputs {
		first := Classify(raw)
		second := Classify(CanonicalURL(first))
		assert.Equal(t, first, second, raw)

		third := Classify(EmbedURL(first))
		assert.Equal(t, first, third, raw)
	}
}

func TestClassifyDetailedAmbiguous(t *testing.T) {
	c := NewClassifier()
	d, err := c.ClassifyDetailed("https://vimeo.com/channels/staffpicks")
	assert.ErrorIs(t, err, playerr.ErrClassificationAmbiguous)
	assert.Equal(t, PlatformGeneric, d.Platform)

	_, err = c.ClassifyDetailed("https://example.com/watch")
	assert.NoError(t, err)
}

func TestClassifierOptions(t *testing.T) {
	c := NewClassifier(
		WithMediaExtensions([]string{"MP4", ".ts"}),
		WithStorageHosts([]string{"media.internal.example"}),
	)

	assert.True(t, c.LooksLikeDirectMedia("https://x.example/a.ts"))
	assert.False(t, c.LooksLikeDirectMedia("https://x.example/a.webm"))
	assert.True(t, c.LooksLikeDirectMedia("https://media.internal.example/blob/1"))
	assert.False(t, c.LooksLikeDirectMedia("https://storage.googleapis.com/b/o"))
	assert.False(t, c.LooksLikeDirectMedia(""))
}

func TestKindNative(t *testing.T) {
	assert.True(t, KindHostedMP4.Native())
	assert.True(t, KindDirectMP4.Native())
	assert.True(t, KindMobileMP4.Native())
	assert.False(t, KindEmbed.Native())
	assert.True(t, PlatformYouTube.Controllable())
	assert.False(t, PlatformStreamable.Controllable())
}
