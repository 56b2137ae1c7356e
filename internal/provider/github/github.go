// Package github receives github webhook events via HTTP, validates and
// converts them to Events and forwards them to an event channel.
package github

import (
	"encoding/json"
	"net/http"

	"github.com/google/go-github/v59/github"
	"github.com/itchyny/gojq"
	"go.uber.org/zap"

	"github.com/simplesurance/pulljoy/internal/logfields"
)

const loggerName = "github-event-provider"

// Provider listens for github-webhook http-requests at a http-server handler,
// validates and converts the requests to Events and forwards them to an event
// channel.
// Only event types that the workflow engine consumes are forwarded, all
// others are logged and discarded.
type Provider struct {
	logger        *zap.Logger
	webhookSecret []byte
	filterQuery   *gojq.Query
	c             chan<- *Event
}

type Option func(*Provider)

func WithPayloadSecret(secret string) Option {
	return func(p *Provider) {
		p.webhookSecret = []byte(secret)
	}
}

// WithEventFilter sets a jq query that is evaluated against the JSON
// representation of every event.
// Events for which the query does not return a single true value are
// discarded.
func WithEventFilter(query *gojq.Query) Option {
	return func(p *Provider) {
		p.filterQuery = query
	}
}

func New(eventChan chan<- *Event, opts ...Option) *Provider {
	p := Provider{
		c: eventChan,
	}

	for _, o := range opts {
		o(&p)
	}

	if p.logger == nil {
		p.logger = zap.L().Named(loggerName)
	}

	return &p
}

func (p *Provider) HTTPHandler(resp http.ResponseWriter, req *http.Request) {
	deliveryID := github.DeliveryID(req)
	hookType := github.WebHookType(req)

	logFields := []zap.Field{
		logfields.EventProvider("github"),
		zap.String("github.delivery_id", deliveryID),
		zap.String("github.webhook_type", hookType),
	}

	logger := p.logger.With(logFields...)

	payload, err := github.ValidatePayload(req, p.webhookSecret)
	if err != nil {
		logger.Info(
			"received invalid http request, payload validation failed",
			logfields.Event("github_http_request_validation_failed"),
			zap.Error(err),
		)
		http.Error(resp, err.Error(), http.StatusBadRequest)
		return
	}

	event, err := github.ParseWebHook(hookType, payload)
	if err != nil {
		logger.Info(
			"received invalid http request, parsing failed",
			logfields.Event("github_event_parsing_failed"),
			zap.Error(err),
		)
		http.Error(resp, err.Error(), http.StatusBadRequest)
		return
	}

	switch event.(type) {
	case *github.PullRequestEvent, *github.IssueCommentEvent, *github.CheckSuiteEvent:
	default:
		logger.Debug("ignoring event, event type is unsupported",
			logfields.Event("github_unsupported_event_received"),
		)
		return
	}

	if dropped, err := p.filteredOut(payload); err != nil {
		logger.Error(
			"evaluating event filter query failed",
			logfields.Event("github_event_filter_failed"),
			zap.Error(err),
		)
		http.Error(resp, err.Error(), http.StatusInternalServerError)
		return
	} else if dropped {
		logger.Debug(
			"event discarded, filter query did not match",
			logfields.Event("github_event_filtered_out"),
		)
		return
	}

	ev := Event{
		DeliveryID: deliveryID,
		Type:       hookType,
		JSON:       payload,
		Event:      event,
		LogFields:  logFields,
	}

	select {
	case p.c <- &ev:
		logger.Debug("event forwarded to channel",
			logfields.Event("github_event_forwarded"),
		)

	default:
		logger.Warn(
			"event lost, forwarding event to channel failed",
			zap.String("error", "could not forward event to channel, send would have blocked"),
			logfields.Event("github_forwarding_event_failed"),
		)

		http.Error(resp, "queue full", http.StatusServiceUnavailable)
	}
}

// filteredOut evaluates the configured jq filter query on the event payload.
// The event passes when the query yields exactly one result that is true.
func (p *Provider) filteredOut(payload []byte) (bool, error) {
	if p.filterQuery == nil {
		return false, nil
	}

	var evUn any
	if err := json.Unmarshal(payload, &evUn); err != nil {
		return false, err
	}

	iter := p.filterQuery.Run(evUn)

	res, ok := iter.Next()
	if !ok {
		return true, nil
	}

	if err, isErr := res.(error); isErr {
		return false, err
	}

	if _, more := iter.Next(); more {
		return true, nil
	}

	matched, isBool := res.(bool)
	return !(isBool && matched), nil
}
