// Package githubclt provides the github API bridge of pulljoy.
package githubclt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	"github.com/google/go-github/v59/github"
	"github.com/gregjones/httpcache"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/simplesurance/pulljoy/internal/joyerr"
	"github.com/simplesurance/pulljoy/internal/logfields"
)

const DefaultHTTPClientTimeout = time.Minute

const loggerName = "github_client"

// refDoesNotExistMsg is the message substring github returns when a ref that
// is deleted does not exist.
// Github answers with the same status code (422) for multiple distinct ref
// failures, matching the message text is the only way to distinguish them.
const refDoesNotExistMsg = "Reference does not exist"

const listPerPage = 100

// workflowRunStatuses are the run states that are queried when searching for
// an active workflow run, in query order.
var workflowRunStatuses = [...]string{"queued", "in_progress"}

// PullRequestInfo is a read-only projection of a github pull request.
type PullRequestInfo struct {
	Number   int
	HeadSHA  string
	HeadRepo string
	BaseSHA  string
	BaseRepo string
}

// CheckSuite is a read-only projection of a github check-suite.
type CheckSuite struct {
	Status     string
	Conclusion string
}

// Completed returns true when the suite finished running.
func (s *CheckSuite) Completed() bool {
	return s.Status == "completed"
}

// CheckRun is a read-only projection of a github check-run.
type CheckRun struct {
	Conclusion string
	Title      string
	AppName    string
	HTMLURL    string
}

// New returns a new github api client.
// The http transport stack is: httpcache (conditional request caching),
// go-github-ratelimit (sleeps on secondary rate limits), go-github.
func New(oauthAPItoken string, opts ...Option) *Client {
	clt := Client{
		logger: zap.L().Named(loggerName),
	}

	for _, o := range opts {
		o(&clt)
	}

	if clt.retryer == nil {
		clt.retryer = newRetryer(clt.logger, defRetryTimeout)
	}

	clt.restClt = github.NewClient(newHTTPClient(oauthAPItoken))

	return &clt
}

type Option func(*Client)

// WithRetryTimeout overrides the duration for that requests failing with a
// temporary error are retried.
func WithRetryTimeout(timeout time.Duration) Option {
	return func(clt *Client) {
		clt.retryer = newRetryer(zap.L().Named(loggerName), timeout)
	}
}

func newHTTPClient(apiToken string) *http.Client {
	rateLimitClt := github_ratelimit.NewClient(httpcache.NewMemoryCacheTransport())

	if apiToken == "" {
		rateLimitClt.Timeout = DefaultHTTPClientTimeout
		return rateLimitClt
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: apiToken},
	)

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, rateLimitClt)
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = DefaultHTTPClientTimeout

	return tc
}

// Client is a github API client.
// Requests that fail with a temporary error, e.g. when the API ratelimit is
// exceeded or github answered with a 5xx status code, are retried with
// exponential backoff until the retry timeout expires.
type Client struct {
	restClt *github.Client
	logger  *zap.Logger
	retryer *retryer
}

// CreateIssueComment creates a comment in an issue or pull request.
func (clt *Client) CreateIssueComment(ctx context.Context, owner, repo string, issueOrPRNr int, comment string) error {
	return clt.retryer.do(ctx, "create_issue_comment", func(ctx context.Context) error {
		_, _, err := clt.restClt.Issues.CreateComment(ctx, owner, repo, issueOrPRNr, &github.IssueComment{Body: &comment})
		return clt.wrapRetryableErrors(err)
	})
}

// UserPermission returns the permission level of a user on a repository.
// Possible values are: admin, write, read, none.
func (clt *Client) UserPermission(ctx context.Context, owner, repo, user string) (string, error) {
	var level string

	err := clt.retryer.do(ctx, "get_permission_level", func(ctx context.Context) error {
		perm, _, err := clt.restClt.Repositories.GetPermissionLevel(ctx, owner, repo, user)
		if err != nil {
			return clt.wrapRetryableErrors(err)
		}

		level = perm.GetPermission()
		return nil
	})
	if err != nil {
		return "", err
	}

	return level, nil
}

// GetPullRequest returns the head and base refs of a pull request.
func (clt *Client) GetPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequestInfo, error) {
	var result *PullRequestInfo

	err := clt.retryer.do(ctx, "get_pull_request", func(ctx context.Context) error {
		pr, _, err := clt.restClt.PullRequests.Get(ctx, owner, repo, number)
		if err != nil {
			return clt.wrapRetryableErrors(err)
		}

		head := pr.GetHead()
		if head == nil || head.GetSHA() == "" {
			return errors.New("got pull request object with empty head")
		}

		base := pr.GetBase()
		if base == nil || base.GetSHA() == "" {
			return errors.New("got pull request object with empty base")
		}

		result = &PullRequestInfo{
			Number:   pr.GetNumber(),
			HeadSHA:  head.GetSHA(),
			HeadRepo: head.GetRepo().GetFullName(),
			BaseSHA:  base.GetSHA(),
			BaseRepo: base.GetRepo().GetFullName(),
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// FindActiveWorkflowRun returns the ID of the first queued or in-progress
// workflow run whose head commit is headSHA.
// Queued runs are queried before in-progress runs.
// When no run matches, 0 is returned.
func (clt *Client) FindActiveWorkflowRun(ctx context.Context, owner, repo, headSHA string) (int64, error) {
	for _, status := range workflowRunStatuses {
		runID, err := clt.findWorkflowRun(ctx, owner, repo, status, headSHA)
		if err != nil {
			return 0, fmt.Errorf("listing %s workflow runs failed: %w", status, err)
		}

		if runID != 0 {
			return runID, nil
		}
	}

	return 0, nil
}

func (clt *Client) findWorkflowRun(ctx context.Context, owner, repo, status, headSHA string) (int64, error) {
	var runID int64

	err := clt.retryer.do(ctx, "list_workflow_runs", func(ctx context.Context) error {
		opts := github.ListWorkflowRunsOptions{
			Status:      status,
			ListOptions: github.ListOptions{PerPage: listPerPage},
		}

		for {
			runs, resp, err := clt.restClt.Actions.ListRepositoryWorkflowRuns(ctx, owner, repo, &opts)
			if err != nil {
				return clt.wrapRetryableErrors(err)
			}

			for _, run := range runs.WorkflowRuns {
				if run.GetHeadSHA() == headSHA {
					runID = run.GetID()
					return nil
				}
			}

			if resp.NextPage == 0 {
				return nil
			}

			opts.Page = resp.NextPage
		}
	})
	if err != nil {
		return 0, err
	}

	return runID, nil
}

// CancelWorkflowRun cancels a workflow run.
// Github schedules cancellations asynchronously and answers with 202, which
// go-github surfaces as AcceptedError, it is treated as success.
func (clt *Client) CancelWorkflowRun(ctx context.Context, owner, repo string, runID int64) error {
	return clt.retryer.do(ctx, "cancel_workflow_run", func(ctx context.Context) error {
		_, err := clt.restClt.Actions.CancelWorkflowRunByID(ctx, owner, repo, runID)
		if err != nil {
			if _, ok := err.(*github.AcceptedError); ok {
				return nil
			}

			return clt.wrapRetryableErrors(err)
		}

		return nil
	})
}

// ListCheckSuites returns the check-suites for a commit.
func (clt *Client) ListCheckSuites(ctx context.Context, owner, repo, ref string) ([]*CheckSuite, error) {
	var result []*CheckSuite

	err := clt.retryer.do(ctx, "list_check_suites", func(ctx context.Context) error {
		result = result[:0]

		opts := github.ListCheckSuiteOptions{
			ListOptions: github.ListOptions{PerPage: listPerPage},
		}

		for {
			suites, resp, err := clt.restClt.Checks.ListCheckSuitesForRef(ctx, owner, repo, ref, &opts)
			if err != nil {
				return clt.wrapRetryableErrors(err)
			}

			for _, suite := range suites.CheckSuites {
				result = append(result, &CheckSuite{
					Status:     suite.GetStatus(),
					Conclusion: suite.GetConclusion(),
				})
			}

			if resp.NextPage == 0 {
				return nil
			}

			opts.Page = resp.NextPage
		}
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ListCheckRuns returns the check-runs for a commit.
func (clt *Client) ListCheckRuns(ctx context.Context, owner, repo, ref string) ([]*CheckRun, error) {
	var result []*CheckRun

	err := clt.retryer.do(ctx, "list_check_runs", func(ctx context.Context) error {
		result = result[:0]

		opts := github.ListCheckRunsOptions{
			ListOptions: github.ListOptions{PerPage: listPerPage},
		}

		for {
			runs, resp, err := clt.restClt.Checks.ListCheckRunsForRef(ctx, owner, repo, ref, &opts)
			if err != nil {
				return clt.wrapRetryableErrors(err)
			}

			for _, run := range runs.CheckRuns {
				result = append(result, &CheckRun{
					Conclusion: run.GetConclusion(),
					Title:      run.GetName(),
					AppName:    run.GetApp().GetName(),
					HTMLURL:    run.GetHTMLURL(),
				})
			}

			if resp.NextPage == 0 {
				return nil
			}

			opts.Page = resp.NextPage
		}
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// DeleteBranch deletes a branch.
// The operation is idempotent, deleting a branch that does not exist
// succeeds.
func (clt *Client) DeleteBranch(ctx context.Context, owner, repo, branch string) error {
	return clt.retryer.do(ctx, "delete_ref", func(ctx context.Context) error {
		_, err := clt.restClt.Git.DeleteRef(ctx, owner, repo, "heads/"+branch)
		if err != nil {
			var respErr *github.ErrorResponse
			if errors.As(err, &respErr) && strings.Contains(respErr.Message, refDoesNotExistMsg) {
				clt.logger.Debug(
					"deleting ref returned reference-does-not-exist, interpreting it as success",
					logfields.Branch(branch),
					logfields.Repository(owner+"/"+repo),
					logfields.Event("github_delete_ref_already_absent"),
					zap.Error(err),
				)

				return nil
			}

			return clt.wrapRetryableErrors(err)
		}

		return nil
	})
}

func (clt *Client) wrapRetryableErrors(err error) error {
	switch v := err.(type) {
	case *github.RateLimitError:
		clt.logger.Info(
			"rate limit exceeded",
			logfields.Event("github_api_rate_limit_exceeded"),
			zap.Int("github_api_rate_limit", v.Rate.Limit),
			zap.Time("github_api_rate_limit_reset_time", v.Rate.Reset.Time),
		)

		return joyerr.NewRetryableError(err, v.Rate.Reset.Time)

	case *github.ErrorResponse:
		if v.Response.StatusCode >= 500 && v.Response.StatusCode < 600 {
			return joyerr.NewRetryableAnytimeError(err)
		}
	}

	return err
}
