package gmail

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/gmailreader/internal/google"
	"github.com/teemow/gmailreader/internal/instrumentation"
	"github.com/teemow/gmailreader/internal/logging"
)

// userID addresses the mailbox of the authenticated user.
const userID = "me"

// DefaultConcurrency bounds the per-message fetches of a listing.
const DefaultConcurrency = 10

// Mailbox reads messages through the Gmail API. It holds no credentials;
// every call is authenticated by the token source passed to it.
type Mailbox struct {
	endpoint    string
	timeout     time.Duration
	concurrency int
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
}

// Option configures a Mailbox.
type Option func(*Mailbox)

// WithEndpoint overrides the Gmail API base URL.
func WithEndpoint(endpoint string) Option {
	return func(m *Mailbox) { m.endpoint = endpoint }
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(m *Mailbox) { m.timeout = d }
}

// WithConcurrency bounds parallel message fetches in a listing.
func WithConcurrency(n int) Option {
	return func(m *Mailbox) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mailbox) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(m *Mailbox) { m.metrics = metrics }
}

// NewMailbox creates a Mailbox.
func NewMailbox(opts ...Option) *Mailbox {
	m := &Mailbox{
		timeout:     30 * time.Second,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.WithService(m.logger, instrumentation.ServiceGmail)
	return m
}

// service builds a Gmail client authenticated by ts.
func (m *Mailbox) service(ctx context.Context, ts oauth2.TokenSource) (*gmail.Service, error) {
	client := &http.Client{
		Timeout: m.timeout,
		Transport: &oauth2.Transport{
			Source: ts,
			Base:   http.DefaultTransport,
		},
	}

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if m.endpoint != "" {
		opts = append(opts, option.WithEndpoint(m.endpoint))
	}

	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return svc, nil
}

// observe classifies the error of one API call as op and records its metrics.
func (m *Mailbox) observe(ctx context.Context, operation, op string, start time.Time, err error) error {
	status := instrumentation.StatusSuccess
	if err != nil {
		err = google.Classify(op, err)
		status = instrumentation.StatusError
	}
	m.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, operation, status,
		google.ErrorKind(err), time.Since(start))
	return err
}

// ListMessages returns summaries of the most recent messages, in the order
// the API listed them.
//
// Each listed message is fetched in full concurrently. The first failed fetch
// fails the whole call and cancels the remaining fetches.
func (m *Mailbox) ListMessages(ctx context.Context, ts oauth2.TokenSource, opts ListOptions) ([]*MessageSummary, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, instrumentation.OperationList)
	var err error
	defer func() { instrumentation.EndSpan(span, err) }()

	svc, err := m.service(ctx, ts)
	if err != nil {
		return nil, err
	}

	refs, err := m.listIDs(ctx, svc, opts)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(instrumentation.MessageCount(len(refs)))

	summaries := make([]*MessageSummary, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)

	for i, ref := range refs {
		g.Go(func() error {
			msg, err := m.fetch(gctx, svc, ref.Id)
			if err != nil {
				return err
			}
			summaries[i] = summaryFromMessage(msg)
			return nil
		})
	}

	if err = g.Wait(); err != nil {
		m.logger.Warn("message listing failed", logging.Operation("list"), logging.Err(err))
		return nil, err
	}

	m.logger.Debug("listed messages", logging.Operation("list"), slog.Int("count", len(summaries)))
	return summaries, nil
}

// ListMessagesPartial is ListMessages without fail-fast: every listed
// message gets a result, successful or not. Only a failure of the listing
// itself is returned as an error.
func (m *Mailbox) ListMessagesPartial(ctx context.Context, ts oauth2.TokenSource, opts ListOptions) ([]MessageResult, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, instrumentation.OperationList,
		instrumentation.Partial(true))
	var err error
	defer func() { instrumentation.EndSpan(span, err) }()

	svc, err := m.service(ctx, ts)
	if err != nil {
		return nil, err
	}

	refs, err := m.listIDs(ctx, svc, opts)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(instrumentation.MessageCount(len(refs)))

	results := make([]MessageResult, len(refs))
	var g errgroup.Group
	g.SetLimit(m.concurrency)

	for i, ref := range refs {
		g.Go(func() error {
			results[i] = MessageResult{ID: ref.Id}
			msg, err := m.fetch(ctx, svc, ref.Id)
			if err != nil {
				results[i].Status = StatusError
				results[i].Error = err.Error()
				results[i].Err = err
				return nil
			}
			results[i].Status = StatusSuccess
			results[i].Message = summaryFromMessage(msg)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Status == StatusError {
			failed++
		}
	}
	span.SetAttributes(instrumentation.FailedCount(failed))
	if failed > 0 {
		m.logger.Warn("partial message listing", logging.Operation("list"),
			slog.Int("count", len(results)), slog.Int("failed", failed))
	}
	return results, nil
}

func (m *Mailbox) listIDs(ctx context.Context, svc *gmail.Service, opts ListOptions) ([]*gmail.Message, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	call := svc.Users.Messages.List(userID).MaxResults(maxResults).Context(ctx)
	if len(opts.LabelIDs) > 0 {
		call = call.LabelIds(opts.LabelIDs...)
	}

	start := time.Now()
	res, err := call.Do()
	if err = m.observe(ctx, instrumentation.OperationList, "list messages", start, err); err != nil {
		return nil, err
	}
	return res.Messages, nil
}

func (m *Mailbox) fetch(ctx context.Context, svc *gmail.Service, id string) (*gmail.Message, error) {
	start := time.Now()
	msg, err := svc.Users.Messages.Get(userID, id).Format("full").Context(ctx).Do()
	if err = m.observe(ctx, instrumentation.OperationGet, "get message "+id, start, err); err != nil {
		return nil, err
	}
	return msg, nil
}

// GetMessage fetches one message with its decoded bodies.
func (m *Mailbox) GetMessage(ctx context.Context, ts oauth2.TokenSource, id string) (*MessageDetail, error) {
	if id == "" {
		return nil, fmt.Errorf("get message: %w: empty message id", google.ErrNotFound)
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, instrumentation.OperationGet,
		instrumentation.MessageID(id))
	var err error
	defer func() { instrumentation.EndSpan(span, err) }()

	svc, err := m.service(ctx, ts)
	if err != nil {
		return nil, err
	}

	msg, err := m.fetch(ctx, svc, id)
	if err != nil {
		m.logger.Debug("message fetch failed", logging.MessageID(id), logging.Err(err))
		return nil, err
	}

	detail, body := detailFromMessage(msg)
	m.metrics.RecordBodyDecode(ctx, instrumentation.DecodeResult(body.HTML != "", body.Text != ""))
	return detail, nil
}

// GetProfile returns the mailbox owner's profile.
func (m *Mailbox) GetProfile(ctx context.Context, ts oauth2.TokenSource) (*Profile, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, instrumentation.OperationProfile)
	var err error
	defer func() { instrumentation.EndSpan(span, err) }()

	svc, err := m.service(ctx, ts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	p, err := svc.Users.GetProfile(userID).Context(ctx).Do()
	if err = m.observe(ctx, instrumentation.OperationProfile, "get profile", start, err); err != nil {
		return nil, err
	}

	return &Profile{
		EmailAddress:  p.EmailAddress,
		MessagesTotal: p.MessagesTotal,
		ThreadsTotal:  p.ThreadsTotal,
	}, nil
}
