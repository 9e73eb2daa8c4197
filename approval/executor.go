package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"auto_linkedin_post_publisher/logging"
)

// Publisher performs the irreversible side effect.
type Publisher interface {
	Publish(ctx context.Context, text, image string) (string, error)
}

// PublishFailedError wraps an external publishing failure so it is never
// confused with a trust violation.
type PublishFailedError struct {
	Err error
}

func (e *PublishFailedError) Error() string {
	return fmt.Sprintf("publishing failed: %v", e.Err)
}

func (e *PublishFailedError) Unwrap() error {
	return e.Err
}

// Outcome is the result of an approved publish.
type Outcome struct {
	PostID  string
	Payload Payload
}

// Executor verifies an approval link and publishes its payload.
type Executor struct {
	signer    *Signer
	publisher Publisher
	logger    *slog.Logger
}

func NewExecutor(signer *Signer, publisher Publisher, logger *slog.Logger) (*Executor, error) {
	if signer == nil || publisher == nil {
		return nil, errors.New("executor needs a signer and a publisher")
	}
	return &Executor{signer: signer, publisher: publisher, logger: logging.OrDefault(logger, "approval")}, nil
}

// Execute publishes the payload behind token only if sig verifies. Tokens carry
// no expiry and are not single-use.
func (e *Executor) Execute(ctx context.Context, token, sig string) (Outcome, error) {
	p, err := e.signer.Open(token, sig)
	if err != nil {
		if errors.Is(err, ErrSignatureMismatch) {
			e.logger.Warn("approval rejected: signature mismatch", "token_len", len(token), "sig_len", len(sig))
		} else {
			e.logger.Error("approval rejected: malformed payload", "err", err)
		}
		return Outcome{}, err
	}

	e.logger.Info("approval verified, publishing", "topic", p.Topic, "image", p.Image)
	postID, err := e.publisher.Publish(ctx, p.Text, p.Image)
	if err != nil {
		e.logger.Error("publish failed", "topic", p.Topic, "err", err)
		return Outcome{Payload: p}, &PublishFailedError{Err: err}
	}
	e.logger.Info("published", "topic", p.Topic, "post_id", postID)
	return Outcome{PostID: postID, Payload: p}, nil
}

// Verdict is the human-readable result of an approval attempt.
type Verdict struct {
	Status  int
	Outcome string
	Title   string
	Message string
}

// Describe maps an Execute result to a distinct verdict per failure class.
func Describe(out Outcome, err error) Verdict {
	var malformed *PayloadMalformedError
	var publishErr *PublishFailedError
	switch {
	case err == nil:
		return Verdict{
			Status:  http.StatusOK,
			Outcome: "published",
			Title:   "Post published",
			Message: fmt.Sprintf("The post about %q is live on LinkedIn (id %s).", out.Payload.Topic, out.PostID),
		}
	case errors.Is(err, ErrSignatureMismatch):
		return Verdict{
			Status:  http.StatusForbidden,
			Outcome: "tampered",
			Title:   "Invalid approval link",
			Message: "This link has been tampered with or was not issued by this system. Nothing was published.",
		}
	case errors.As(err, &malformed):
		return Verdict{
			Status:  http.StatusBadRequest,
			Outcome: "malformed",
			Title:   "Unreadable approval link",
			Message: "The link is signed but its content could not be read. Nothing was published.",
		}
	case errors.As(err, &publishErr):
		return Verdict{
			Status:  http.StatusBadGateway,
			Outcome: "publish_failed",
			Title:   "Publishing failed",
			Message: fmt.Sprintf("The link is valid but LinkedIn rejected the post: %v", publishErr.Err),
		}
	default:
		return Verdict{
			Status:  http.StatusInternalServerError,
			Outcome: "error",
			Title:   "Approval failed",
			Message: err.Error(),
		}
	}
}
