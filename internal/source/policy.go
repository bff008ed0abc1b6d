package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/justchokingaround/playcore/internal/playerr"
)

// TranscodingCompleted is the only transcoding status that makes a hosted
// asset eligible.
const TranscodingCompleted = "completed"

// AssetResolver turns a movie's hosted asset into a short-lived signed URL.
type AssetResolver interface {
	ResolveHostedURL(ctx context.Context, movieID string) (string, error)
}

// Input carries a movie's raw source fields.
type Input struct {
	MovieID           string
	HostedAssetKey    string
	TranscodingStatus string
	DirectVideoURL    string
	MobileMP4URL      string
	IsMobileDevice    bool
}

// Policy picks the single active source for a movie by strict priority:
// hosted asset, direct media file, mobile mp4, embed.
type Policy struct {
	resolver   AssetResolver
	classifier *Classifier
	logger     *slog.Logger
}

// PolicyOption configures a Policy.
type PolicyOption func(*Policy)

// WithClassifier overrides the default classifier.
func WithClassifier(c *Classifier) PolicyOption {
	return func(p *Policy) { p.classifier = c }
}

// WithLogger sets the policy logger.
func WithLogger(l *slog.Logger) PolicyOption {
	return func(p *Policy) { p.logger = l }
}

// NewPolicy creates a policy. resolver may be nil, in which case hosted
// assets are never selected.
func NewPolicy(resolver AssetResolver, opts ...PolicyOption) *Policy {
	p := &Policy{
		resolver:   resolver,
		classifier: defaultClassifier,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Resolve returns the active descriptor. A rejected hosted asset is logged
// and falls through to the next tier. When no tier applies the error wraps
// ErrAllSourcesExhausted.
func (p *Policy) Resolve(ctx context.Context, in Input) (Descriptor, error) {
	if p.hostedEligible(in) {
		signed, err := p.resolveHosted(ctx, in.MovieID)
		if err == nil {
			return Descriptor{Kind: KindHostedMP4, Reference: signed}, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Descriptor{}, err
		}
		p.logger.Warn("hosted asset rejected, falling through",
			"movie_id", in.MovieID,
			"error", err,
		)
	}

	direct := strings.TrimSpace(in.DirectVideoURL)
	if direct != "" && p.classifier.LooksLikeDirectMedia(direct) {
		return Descriptor{Kind: KindDirectMP4, Reference: direct}, nil
	}

	mobile := strings.TrimSpace(in.MobileMP4URL)
	if in.IsMobileDevice && mobile != "" {
		return Descriptor{Kind: KindMobileMP4, Reference: mobile}, nil
	}

	if d, ok := p.EmbedCandidate(in); ok {
		return d, nil
	}

	return Descriptor{}, fmt.Errorf("movie %s: %w", in.MovieID, playerr.ErrAllSourcesExhausted)
}

// EmbedCandidate is the step-four source: the direct URL classified as an
// embed. It is also the one-time fallback target.
func (p *Policy) EmbedCandidate(in Input) (Descriptor, bool) {
	direct := strings.TrimSpace(in.DirectVideoURL)
	if direct == "" {
		return Descriptor{}, false
	}
	d, err := p.classifier.ClassifyDetailed(direct)
	if err != nil {
		p.logger.Debug("embed classification degraded to iframe", "movie_id", in.MovieID, "error", err)
	}
	if d.Kind != KindEmbed {
		// A direct file URL is still playable inside an iframe.
		d = genericEmbed(direct)
	}
	return d, true
}

func (p *Policy) hostedEligible(in Input) bool {
	return p.resolver != nil &&
		strings.TrimSpace(in.HostedAssetKey) != "" &&
		strings.EqualFold(in.TranscodingStatus, TranscodingCompleted)
}

func (p *Policy) resolveHosted(ctx context.Context, movieID string) (string, error) {
	signed, err := p.resolver.ResolveHostedURL(ctx, movieID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", playerr.ErrSourceResolutionFailed, err)
	}
	if strings.TrimSpace(signed) == "" {
		return "", fmt.Errorf("%w: empty signed url", playerr.ErrSourceResolutionFailed)
	}
	return signed, nil
}
