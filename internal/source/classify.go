package source

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/justchokingaround/playcore/internal/playerr"
)

var (
	youTubeIDPattern     = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	vimeoIDPattern       = regexp.MustCompile(`^[0-9]+$`)
	dailymotionIDPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	streamableIDPattern  = regexp.MustCompile(`^[A-Za-z0-9]+$`)
)

// DefaultMediaExtensions are the file extensions treated as direct media.
var DefaultMediaExtensions = []string{".mp4", ".m4v", ".webm", ".mov", ".ogv", ".ogg", ".mkv"}

// DefaultStorageHosts are host substrings of object stores that serve raw
// media files without an extension in the path.
var DefaultStorageHosts = []string{
	"storage.googleapis.com",
	"s3.amazonaws.com",
	".r2.cloudflarestorage.com",
	".r2.dev",
	".blob.core.windows.net",
	".supabase.co/storage",
	".b-cdn.net",
}

// Classifier turns raw URLs into Descriptors. The zero value is not usable;
// call NewClassifier.
type Classifier struct {
	extensions   []string
	storageHosts []string
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithMediaExtensions replaces the direct-media extension list.
func WithMediaExtensions(exts []string) ClassifierOption {
	return func(c *Classifier) {
		if len(exts) == 0 {
			return
		}
		normalized := normalizeList(exts)
		for i, ext := range normalized {
			if !strings.HasPrefix(ext, ".") {
				normalized[i] = "." + ext
			}
		}
		c.extensions = normalized
	}
}

// WithStorageHosts replaces the storage host allow-list.
func WithStorageHosts(hosts []string) ClassifierOption {
	return func(c *Classifier) {
		if len(hosts) > 0 {
			c.storageHosts = normalizeList(hosts)
		}
	}
}

// NewClassifier creates a classifier with the default lists.
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		extensions:   DefaultMediaExtensions,
		storageHosts: DefaultStorageHosts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultClassifier = NewClassifier()

// Classify classifies raw with the default lists.
func Classify(raw string) Descriptor {
	return defaultClassifier.Classify(raw)
}

// Classify never fails: anything unrecognised degrades to a generic embed
// carrying the raw input unmodified. Empty or blank input is not a source at
// all and yields the zero Descriptor (KindNone).
func (c *Classifier) Classify(raw string) Descriptor {
	d, _ := c.ClassifyDetailed(raw)
	return d
}

// ClassifyDetailed is Classify plus ErrClassificationAmbiguous when a known
// platform host was matched but no reference could be extracted. Blank input
// returns the zero Descriptor and no error.
func (c *Classifier) ClassifyDetailed(raw string) (Descriptor, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Descriptor{}, nil
	}

	if strings.HasPrefix(trimmed, "<") {
		if src := extractSnippetSource(trimmed); src != "" {
			return c.ClassifyDetailed(src)
		}
		return genericEmbed(raw), nil
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		if c.LooksLikeDirectMedia(trimmed) {
			return Descriptor{Kind: KindDirectMP4, Reference: trimmed}, nil
		}
		return genericEmbed(raw), nil
	}

	host := normalizeHost(u.Hostname())
	if platform, ok := platformForHost(host); ok {
		if ref := extractReference(platform, host, u); ref != "" {
			return Descriptor{Kind: KindEmbed, Platform: platform, Reference: ref}, nil
		}
		if c.LooksLikeDirectMedia(trimmed) {
			return Descriptor{Kind: KindDirectMP4, Reference: trimmed}, nil
		}
		return genericEmbed(raw), fmt.Errorf("%s url %q: %w", platform, trimmed, playerr.ErrClassificationAmbiguous)
	}

	if c.LooksLikeDirectMedia(trimmed) {
		return Descriptor{Kind: KindDirectMP4, Reference: trimmed}, nil
	}
	return genericEmbed(raw), nil
}

// LooksLikeDirectMedia reports whether raw structurally points at a media
// file: a known extension or a storage host.
func LooksLikeDirectMedia(raw string) bool {
	return defaultClassifier.LooksLikeDirectMedia(raw)
}

// LooksLikeDirectMedia is the method form of the package function.
func (c *Classifier) LooksLikeDirectMedia(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return false
	}
	lower := strings.ToLower(trimmed)

	p := lower
	if u, err := url.Parse(lower); err == nil {
		p = u.Path
	}
	ext := path.Ext(p)
	for _, want := range c.extensions {
		if ext == want {
			return true
		}
	}

	for _, host := range c.storageHosts {
		if strings.Contains(lower, host) {
			return true
		}
	}
	return false
}

// CanonicalURL returns the canonical watch URL for a descriptor. Classifying
// it again yields the same descriptor.
func CanonicalURL(d Descriptor) string {
	switch d.Platform {
	case PlatformYouTube:
		return "https://www.youtube.com/watch?v=" + d.Reference
	case PlatformVimeo:
		return "https://vimeo.com/" + d.Reference
	case PlatformDailymotion:
		return "https://www.dailymotion.com/video/" + d.Reference
	case PlatformStreamable:
		return "https://streamable.com/" + d.Reference
	default:
		return d.Reference
	}
}

// EmbedURL returns the iframe URL for a descriptor.
func EmbedURL(d Descriptor) string {
	switch d.Platform {
	case PlatformYouTube:
		return "https://www.youtube.com/embed/" + d.Reference
	case PlatformVimeo:
		return "https://player.vimeo.com/video/" + d.Reference
	case PlatformDailymotion:
		return "https://www.dailymotion.com/embed/video/" + d.Reference
	case PlatformStreamable:
		return "https://streamable.com/e/" + d.Reference
	default:
		return d.Reference
	}
}

func genericEmbed(raw string) Descriptor {
	return Descriptor{Kind: KindEmbed, Platform: PlatformGeneric, Reference: raw}
}

func normalizeHost(host string) string {
	host = strings.ToLower(host)
	for _, prefix := range []string{"www.", "m.", "music."} {
		host = strings.TrimPrefix(host, prefix)
	}
	return host
}

func platformForHost(host string) (Platform, bool) {
	switch host {
	case "youtube.com", "youtu.be", "youtube-nocookie.com":
		return PlatformYouTube, true
	case "vimeo.com", "player.vimeo.com":
		return PlatformVimeo, true
	case "dailymotion.com", "dai.ly", "geo.dailymotion.com":
		return PlatformDailymotion, true
	case "streamable.com":
		return PlatformStreamable, true
	}
	return PlatformNone, false
}

func extractReference(platform Platform, host string, u *url.URL) string {
	segments := pathSegments(u.Path)

	switch platform {
	case PlatformYouTube:
		var id string
		switch {
		case host == "youtu.be" && len(segments) >= 1:
			id = segments[0]
		case len(segments) >= 2 && (segments[0] == "embed" || segments[0] == "shorts" || segments[0] == "live" || segments[0] == "v"):
			id = segments[1]
		case len(segments) >= 1 && segments[0] == "watch":
			id = u.Query().Get("v")
		}
		if youTubeIDPattern.MatchString(id) {
			return id
		}

	case PlatformVimeo:
		// vimeo.com/<id>, vimeo.com/channels/<name>/<id>,
		// vimeo.com/groups/<name>/videos/<id>, player.vimeo.com/video/<id>
		for i := len(segments) - 1; i >= 0; i-- {
			if vimeoIDPattern.MatchString(segments[i]) {
				return segments[i]
			}
		}

	case PlatformDailymotion:
		var id string
		switch {
		case host == "dai.ly" && len(segments) >= 1:
			id = segments[0]
		case len(segments) >= 2 && segments[0] == "video":
			id = segments[1]
		case len(segments) >= 3 && segments[0] == "embed" && segments[1] == "video":
			id = segments[2]
		case host == "geo.dailymotion.com":
			id = u.Query().Get("video")
		}
		// Slugged form: x8abcd_some-title
		if i := strings.Index(id, "_"); i > 0 {
			id = id[:i]
		}
		if dailymotionIDPattern.MatchString(id) {
			return id
		}

	case PlatformStreamable:
		var id string
		switch {
		case len(segments) >= 2 && (segments[0] == "e" || segments[0] == "o"):
			id = segments[1]
		case len(segments) == 1:
			id = segments[0]
		}
		if streamableIDPattern.MatchString(id) {
			return id
		}
	}
	return ""
}

func pathSegments(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// extractSnippetSource pulls the player URL out of a pasted embed snippet.
func extractSnippetSource(snippet string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snippet))
	if err != nil {
		return ""
	}

	for _, sel := range []string{"iframe", "video source", "video", "embed"} {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		for _, attr := range []string{"src", "data-src"} {
			if src, ok := node.Attr(attr); ok && src != "" && src != "about:blank" {
				if strings.HasPrefix(src, "//") {
					src = "https:" + src
				}
				return src
			}
		}
	}
	return ""
}

func normalizeList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
