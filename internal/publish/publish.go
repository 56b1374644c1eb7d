// Package publish is the boundary between computed swap outcomes and the
// outside world: a Renderer turns an outcome into an artifact, a Publisher
// announces it.
package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"garden-volume-watch/internal/domain"
)

// Post is one announcement handed to a Publisher.
type Post struct {
	Message      string
	ArtifactPath string
	Outcome      *domain.NormalizedOutcome
}

// NewPost builds the post for o with the standard alert message.
func NewPost(o *domain.NormalizedOutcome, artifactPath string) Post {
	return Post{
		Message:      FormatMessage(o),
		ArtifactPath: artifactPath,
		Outcome:      o,
	}
}

// Renderer produces a visual artifact for an outcome and returns its path.
type Renderer interface {
	Render(ctx context.Context, o *domain.NormalizedOutcome) (string, error)
}

// Publisher announces a post and returns an id assigned by the destination.
type Publisher interface {
	Publish(ctx context.Context, post Post) (string, error)
}

// LogPublisher writes posts to a logger. It is the default sink when no
// external destination is configured.
type LogPublisher struct {
	log *zap.Logger
}

// NewLogPublisher creates a LogPublisher. A nil logger discards output.
func NewLogPublisher(log *zap.Logger) *LogPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogPublisher{log: log}
}

// Publish logs the post and returns a random id.
func (p *LogPublisher) Publish(_ context.Context, post Post) (string, error) {
	if post.Outcome == nil {
		return "", errors.New("publish: post has no outcome")
	}
	id := uuid.NewString()
	p.log.Info("swap alert",
		zap.String("post_id", id),
		zap.String("order_id", post.Outcome.OrderID),
		zap.Float64("volume_usd", post.Outcome.VolumeUSD),
		zap.Float64("fee_saved_usd", post.Outcome.FeeSavedUSD),
		zap.String("artifact", post.ArtifactPath),
		zap.String("message", post.Message),
	)
	return id, nil
}

// MultiPublisher fans a post out to several publishers in order.
// The first publisher is primary: its id is returned and its failure fails the post.
// Failures of the others are logged only.
type MultiPublisher struct {
	primary   Publisher
	secondary []Publisher
	log       *zap.Logger
}

// NewMultiPublisher creates a MultiPublisher. At least one publisher is required.
func NewMultiPublisher(log *zap.Logger, primary Publisher, secondary ...Publisher) *MultiPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &MultiPublisher{primary: primary, secondary: secondary, log: log}
}

// Publish sends post to the primary publisher, then to every secondary one.
func (m *MultiPublisher) Publish(ctx context.Context, post Post) (string, error) {
	id, err := m.primary.Publish(ctx, post)
	if err != nil {
		return "", fmt.Errorf("primary publisher: %w", err)
	}
	for i, p := range m.secondary {
		if _, err := p.Publish(ctx, post); err != nil {
			m.log.Warn("secondary publisher failed",
				zap.Int("index", i),
				zap.Error(err),
			)
		}
	}
	return id, nil
}

// Verify interface compliance
var (
	_ Publisher = (*LogPublisher)(nil)
	_ Publisher = (*MultiPublisher)(nil)
)
