package pulljoy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/go-github/v59/github"
	"go.uber.org/zap"

	"github.com/simplesurance/pulljoy/internal/githubclt"
	"github.com/simplesurance/pulljoy/internal/joyerr"
	"github.com/simplesurance/pulljoy/internal/logfields"
	github_prov "github.com/simplesurance/pulljoy/internal/provider/github"
	"github.com/simplesurance/pulljoy/internal/store"
)

const loggerName = "pulljoy"

const DefEventChannelBufferSize = 1024
const DefCommandPrefix = "@pulljoy"

// MirrorBranchPrefix is the name prefix of bot-owned mirror branches.
const MirrorBranchPrefix = "pulljoy/"

// MirrorBranchName returns the deterministic name of the mirror branch of a
// pull request.
func MirrorBranchName(prNumber int) string {
	return fmt.Sprintf("%s%d", MirrorBranchPrefix, prNumber)
}

//go:generate mockgen -source=engine.go -destination=mocks/mocks.go -package=mocks

// GithubClient is the interface of the CI provider bridge the engine invokes
// side effects on.
type GithubClient interface {
	CreateIssueComment(ctx context.Context, owner, repo string, issueOrPRNr int, comment string) error
	UserPermission(ctx context.Context, owner, repo, user string) (string, error)
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*githubclt.PullRequestInfo, error)
	FindActiveWorkflowRun(ctx context.Context, owner, repo, headSHA string) (int64, error)
	CancelWorkflowRun(ctx context.Context, owner, repo string, runID int64) error
	ListCheckSuites(ctx context.Context, owner, repo, ref string) ([]*githubclt.CheckSuite, error)
	ListCheckRuns(ctx context.Context, owner, repo, ref string) ([]*githubclt.CheckRun, error)
	DeleteBranch(ctx context.Context, owner, repo, branch string) error
}

// Mirrorer creates the bot-owned mirror branch that triggers CI.
type Mirrorer interface {
	Mirror(ctx context.Context, sourceRepo, commitSHA, targetRepo, targetBranch string) error
}

// Engine is the per pull-request workflow state machine.
// It consumes one inbound webhook event at a time, loads the current
// workflow record, decides the side effects and the next state, invokes the
// side effects and writes the new record.
// The record is written only after all side effects succeeded, a failed
// event leaves the old state intact and is safe to redeliver.
type Engine struct {
	ghClient GithubClient
	mirrorer Mirrorer
	states   store.StateStore

	commandPrefix string
	botUser       string
	// repositories is an allowlist of repository full-names, an empty map
	// means all repositories are processed
	repositories map[string]struct{}
	raiseOnBug   bool

	ch             chan *github_prov.Event
	logger         *zap.Logger
	locks          *keyMutex
	routineDeferFn func()
	wg             sync.WaitGroup
}

type Option func(*Engine)

// WithCommandPrefix sets the token that introduces a comment command.
func WithCommandPrefix(prefix string) Option {
	return func(e *Engine) {
		e.commandPrefix = prefix
	}
}

// WithBotUser sets the github login of the bot account.
// Comments authored by this user are ignored.
func WithBotUser(login string) Option {
	return func(e *Engine) {
		e.botUser = login
	}
}

// WithRepositories restricts processing to the given repository full-names.
func WithRepositories(repos []string) Option {
	return func(e *Engine) {
		for _, r := range repos {
			e.repositories[r] = struct{}{}
		}
	}
}

// WithRaiseOnBug controls whether internal consistency errors are returned
// to the event loop after they were reported to the pull request thread.
// Defaults to true.
func WithRaiseOnBug(raise bool) Option {
	return func(e *Engine) {
		e.raiseOnBug = raise
	}
}

// WithRoutineDeferFunc sets a function that is deferred in every go-routine
// the engine starts.
// It can be used to install a panic handler.
func WithRoutineDeferFunc(fn func()) Option {
	return func(e *Engine) {
		e.routineDeferFn = fn
	}
}

func New(ghClient GithubClient, mirrorer Mirrorer, states store.StateStore, opts ...Option) *Engine {
	e := Engine{
		ghClient:      ghClient,
		mirrorer:      mirrorer,
		states:        states,
		commandPrefix: DefCommandPrefix,
		raiseOnBug:    true,
		repositories:  map[string]struct{}{},
		ch:            make(chan *github_prov.Event, DefEventChannelBufferSize),
		locks:         newKeyMutex(),
	}

	for _, opt := range opts {
		opt(&e)
	}

	if e.logger == nil {
		e.logger = zap.L().Named(loggerName)
	}

	return &e
}

// C returns the event channel.
// Events sent to this channel are processed.
// The channel is closed when Stop() is called.
func (e *Engine) C() chan<- *github_prov.Event {
	return e.ch
}

func (e *Engine) Start() {
	e.wg.Add(1)
	go func() {
		if e.routineDeferFn != nil {
			defer e.routineDeferFn()
		}
		defer e.wg.Done()

		e.eventLoop()
	}()
}

// Stop closes the event channel and waits until all in-flight events were
// processed.
func (e *Engine) Stop() {
	e.logger.Debug("engine terminating", logfields.Event("engine_terminating"))
	close(e.ch)
	e.wg.Wait()
	e.logger.Info("engine terminated", logfields.Event("engine_terminated"))
}

// eventLoop processes every received event in its own go-routine.
// Per (repository, pull request) key the transitions are serialized via a
// key mutex, events for distinct keys run in parallel.
func (e *Engine) eventLoop() {
	e.logger.Info("ready to process events", logfields.Event("engine_started"))

	for ev := range e.ch {
		ev := ev

		e.wg.Add(1)
		go func() {
			if e.routineDeferFn != nil {
				defer e.routineDeferFn()
			}
			defer e.wg.Done()

			logger := e.logger.With(ev.LogFields...)

			if err := e.Process(context.Background(), ev); err != nil {
				metrics.FailedEventsInc()
				logger.Error(
					"processing event failed",
					logfields.Event("event_processing_failed"),
					zap.Error(err),
				)

				return
			}

			logger.Debug("event processed", logfields.Event("event_processed"))
		}()
	}
}

// Process applies one inbound event to the workflow of the pull request it
// concerns.
func (e *Engine) Process(ctx context.Context, ev *github_prov.Event) error {
	logger := e.logger.With(ev.LogFields...)

	metrics.ProcessedEventsInc()

	switch event := ev.Event.(type) {
	case *github.PullRequestEvent:
		return e.processPullRequestEvent(ctx, logger, event)

	case *github.IssueCommentEvent:
		return e.processIssueCommentEvent(ctx, logger, event)

	case *github.CheckSuiteEvent:
		return e.processCheckSuiteEvent(ctx, logger, event)

	default:
		return &UnsupportedEventTypeError{EventType: ev.Type}
	}
}

func (e *Engine) isMonitoredRepository(repo string) bool {
	if len(e.repositories) == 0 {
		return true
	}

	_, exist := e.repositories[repo]
	return exist
}

func lockKey(repo string, prNumber int) string {
	return fmt.Sprintf("%s#%d", repo, prNumber)
}

func splitRepository(fullName string) (owner, name string, err error) {
	owner, name, found := strings.Cut(fullName, "/")
	if !found || owner == "" || name == "" {
		return "", "", fmt.Errorf("invalid repository full name: %q", fullName)
	}

	return owner, name, nil
}

var logFieldEventIgnored = logfields.Event("github_event_ignored")

func (e *Engine) processPullRequestEvent(ctx context.Context, logger *zap.Logger, ev *github.PullRequestEvent) error {
	repo := ev.GetRepo().GetFullName()
	prNumber := ev.GetNumber()
	actor := ev.GetSender().GetLogin()
	action := ev.GetAction()

	logger = logger.With(
		logfields.Repository(repo),
		logfields.PullRequest(prNumber),
		logfields.Actor(actor),
		zap.String("github.pull_request_event.action", action),
	)

	if repo == "" || prNumber == 0 {
		return fmt.Errorf("pull request event misses repository or number, repository: %q, number: %d", repo, prNumber)
	}

	if !e.isMonitoredRepository(repo) {
		logger.Debug("event is for repository that is not monitored", logFieldEventIgnored)
		return nil
	}

	unlock := e.locks.Lock(lockKey(repo, prNumber))
	defer unlock()

	switch action {
	case "opened", "reopened":
		return e.requestReview(ctx, logger, repo, prNumber)

	case "synchronize":
		state, err := e.states.Load(ctx, repo, prNumber)
		if err != nil {
			return fmt.Errorf("loading workflow state failed: %w", err)
		}

		if state == nil {
			logger.Debug("no active workflow for pull request", logFieldEventIgnored)
			return nil
		}

		switch state.StateName {
		case store.AwaitingManualReview, store.StandingBy:
			return e.requestReview(ctx, logger, repo, prNumber)

		case store.AwaitingCI:
			if err := e.abortCIRun(ctx, logger, repo, prNumber, state.CommitSHA); err != nil {
				return err
			}

			return e.requestReview(ctx, logger, repo, prNumber)

		default:
			return e.reportBug(ctx, logger, repo, prNumber,
				joyerr.NewBugError("workflow record of %s#%d has unknown state %q", repo, prNumber, state.StateName))
		}

	case "closed":
		state, err := e.states.Load(ctx, repo, prNumber)
		if err != nil {
			return fmt.Errorf("loading workflow state failed: %w", err)
		}

		if state == nil {
			logger.Debug("no active workflow for pull request", logFieldEventIgnored)
			return nil
		}

		if state.StateName == store.AwaitingCI {
			if err := e.abortCIRun(ctx, logger, repo, prNumber, state.CommitSHA); err != nil {
				return err
			}
		}

		if err := e.states.Delete(ctx, repo, prNumber); err != nil {
			return fmt.Errorf("deleting workflow state failed: %w", err)
		}

		metrics.StateTransitionInc("closed")
		logger.Info("workflow ended, pull request was closed", logfields.Event("workflow_ended"))

		return nil

	default:
		logger.Debug("ignoring pull-request event", logFieldEventIgnored)
		return nil
	}
}

// requestReview posts a review-request comment with a fresh review id and
// records the awaiting-manual-review state.
// Review ids are never reused, re-entering the state because of a
// synchronize event always generates a new one.
func (e *Engine) requestReview(ctx context.Context, logger *zap.Logger, repo string, prNumber int) error {
	owner, name, err := splitRepository(repo)
	if err != nil {
		return err
	}

	reviewID := newReviewID()

	comment := fmt.Sprintf(
		"This revision requires a manual review before CI runs.\n"+
			"A maintainer can approve it by commenting:\n"+
			"```\n%s approve %s\n```",
		e.commandPrefix, reviewID,
	)

	if err := e.ghClient.CreateIssueComment(ctx, owner, name, prNumber, comment); err != nil {
		return fmt.Errorf("posting review request comment failed: %w", err)
	}

	state := store.WorkflowState{
		StateName: store.AwaitingManualReview,
		ReviewID:  reviewID,
	}

	if err := e.states.Save(ctx, repo, prNumber, &state); err != nil {
		return fmt.Errorf("saving workflow state failed: %w", err)
	}

	metrics.StateTransitionInc(string(store.AwaitingManualReview))
	logger.Info(
		"review requested",
		logfields.Event("review_requested"),
		logfields.ReviewID(reviewID),
	)

	return nil
}

// abortCIRun cancels the active workflow run for the tracked commit, when
// one exists, and deletes the mirror branch.
// A missing run and an already absent branch are no-ops.
func (e *Engine) abortCIRun(ctx context.Context, logger *zap.Logger, repo string, prNumber int, commitSHA string) error {
	owner, name, err := splitRepository(repo)
	if err != nil {
		return err
	}

	logger = logger.With(logfields.Commit(commitSHA))

	runID, err := e.ghClient.FindActiveWorkflowRun(ctx, owner, name, commitSHA)
	if err != nil {
		return fmt.Errorf("searching active workflow run failed: %w", err)
	}

	if runID == 0 {
		logger.Debug(
			"no active workflow run found, nothing to cancel",
			logfields.Event("ci_run_cancel_skipped"),
		)
	} else {
		if err := e.ghClient.CancelWorkflowRun(ctx, owner, name, runID); err != nil {
			return fmt.Errorf("cancelling workflow run %d failed: %w", runID, err)
		}

		logger.Info(
			"workflow run cancelled",
			logfields.Event("ci_run_cancelled"),
			zap.Int64("github.workflow_run_id", runID),
		)
	}

	if err := e.ghClient.DeleteBranch(ctx, owner, name, MirrorBranchName(prNumber)); err != nil {
		return fmt.Errorf("deleting mirror branch failed: %w", err)
	}

	return nil
}

func (e *Engine) processIssueCommentEvent(ctx context.Context, logger *zap.Logger, ev *github.IssueCommentEvent) error {
	repo := ev.GetRepo().GetFullName()
	prNumber := ev.GetIssue().GetNumber()
	actor := ev.GetComment().GetUser().GetLogin()

	logger = logger.With(
		logfields.Repository(repo),
		logfields.PullRequest(prNumber),
		logfields.Actor(actor),
		zap.Int64("github.comment_id", ev.GetComment().GetID()),
	)

	if ev.GetAction() != "created" {
		logger.Debug("ignoring issue comment event", logFieldEventIgnored)
		return nil
	}

	if !e.isMonitoredRepository(repo) {
		logger.Debug("event is for repository that is not monitored", logFieldEventIgnored)
		return nil
	}

	if e.botUser != "" && actor == e.botUser {
		logger.Debug("ignoring comment from the bot itself", logFieldEventIgnored)
		return nil
	}

	unlock := e.locks.Lock(lockKey(repo, prNumber))
	defer unlock()

	state, err := e.states.Load(ctx, repo, prNumber)
	if err != nil {
		return fmt.Errorf("loading workflow state failed: %w", err)
	}

	if state == nil {
		logger.Debug("no active workflow for pull request", logFieldEventIgnored)
		return nil
	}

	cmd, parseErr := ParseCommand(e.commandPrefix, ev.GetComment().GetBody())
	if cmd == nil && parseErr == nil {
		logger.Debug("comment contains no command", logFieldEventIgnored)
		return nil
	}

	owner, name, err := splitRepository(repo)
	if err != nil {
		return err
	}

	perm, err := e.ghClient.UserPermission(ctx, owner, name, actor)
	if err != nil {
		return fmt.Errorf("reading permission level of %q failed: %w", actor, err)
	}

	if perm != "write" && perm != "admin" {
		// Only commands with a recognized keyword earn an
		// authorization reply, everything else from unauthorized
		// users is dropped silently to not invite probing.
		var unsupportedErr *UnsupportedCommandTypeError
		if cmd == nil && errors.As(parseErr, &unsupportedErr) {
			logger.Debug(
				"ignoring unrecognized command from unauthorized user",
				logFieldEventIgnored,
			)
			return nil
		}

		logger.Info(
			"rejecting command from unauthorized user",
			logfields.Event("command_rejected_unauthorized"),
			zap.String("github.permission_level", perm),
		)

		return e.reply(ctx, owner, name, prNumber, actor, "you are not authorized to issue commands")
	}

	if parseErr != nil {
		logger.Debug(
			"replying command parsing error",
			logfields.Event("command_parsing_failed"),
			zap.Error(parseErr),
		)

		return e.reply(ctx, owner, name, prNumber, actor, parseErr.Error())
	}

	return e.processApproveCommand(ctx, logger, repo, prNumber, actor, state, cmd)
}

func (e *Engine) processApproveCommand(
	ctx context.Context,
	logger *zap.Logger,
	repo string,
	prNumber int,
	actor string,
	state *store.WorkflowState,
	cmd *ApproveCommand,
) error {
	owner, name, err := splitRepository(repo)
	if err != nil {
		return err
	}

	if state.StateName != store.AwaitingManualReview {
		logger.Debug(
			"approve command received but no review request is pending",
			logfields.Event("approve_rejected_no_pending_review"),
			logfields.WorkflowState(string(state.StateName)),
		)

		return e.reply(ctx, owner, name, prNumber, actor, "no review request awaiting approval")
	}

	if state.ReviewID != cmd.ReviewID {
		logger.Info(
			"approve command with mismatching review id received",
			logfields.Event("approve_rejected_wrong_review_id"),
			logfields.ReviewID(cmd.ReviewID),
		)

		return e.reply(ctx, owner, name, prNumber, actor, "wrong review ID")
	}

	pr, err := e.ghClient.GetPullRequest(ctx, owner, name, prNumber)
	if err != nil {
		return fmt.Errorf("fetching pull request failed: %w", err)
	}

	branch := MirrorBranchName(prNumber)

	if err := e.mirrorer.Mirror(ctx, pr.HeadRepo, pr.HeadSHA, repo, branch); err != nil {
		return fmt.Errorf("mirroring commit %s to branch %s failed: %w", pr.HeadSHA, branch, err)
	}

	newState := store.WorkflowState{
		StateName: store.AwaitingCI,
		CommitSHA: pr.HeadSHA,
	}

	if err := e.states.Save(ctx, repo, prNumber, &newState); err != nil {
		return fmt.Errorf("saving workflow state failed: %w", err)
	}

	metrics.StateTransitionInc(string(store.AwaitingCI))
	logger.Info(
		"review approved, ci run triggered",
		logfields.Event("review_approved"),
		logfields.Commit(pr.HeadSHA),
		logfields.Branch(branch),
	)

	return nil
}

func (e *Engine) processCheckSuiteEvent(ctx context.Context, logger *zap.Logger, ev *github.CheckSuiteEvent) error {
	repo := ev.GetRepo().GetFullName()
	suite := ev.GetCheckSuite()
	headSHA := suite.GetHeadSHA()

	logger = logger.With(
		logfields.Repository(repo),
		logfields.Commit(headSHA),
		zap.String("github.check_suite_event.action", ev.GetAction()),
	)

	if ev.GetAction() != "completed" {
		logger.Debug("ignoring check suite event", logFieldEventIgnored)
		return nil
	}

	if !e.isMonitoredRepository(repo) {
		logger.Debug("event is for repository that is not monitored", logFieldEventIgnored)
		return nil
	}

	if len(suite.PullRequests) == 0 {
		logger.Debug("check suite references no pull requests", logFieldEventIgnored)
		return nil
	}

	var errs []error
	for _, pr := range suite.PullRequests {
		err := e.processCheckSuiteCompleted(ctx, logger, repo, pr.GetNumber(), headSHA)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (e *Engine) processCheckSuiteCompleted(ctx context.Context, logger *zap.Logger, repo string, prNumber int, headSHA string) error {
	logger = logger.With(logfields.PullRequest(prNumber))

	unlock := e.locks.Lock(lockKey(repo, prNumber))
	defer unlock()

	state, err := e.states.Load(ctx, repo, prNumber)
	if err != nil {
		return fmt.Errorf("loading workflow state failed: %w", err)
	}

	if state == nil {
		logger.Debug("no active workflow for pull request", logFieldEventIgnored)
		return nil
	}

	if state.StateName != store.AwaitingCI {
		logger.Debug(
			"workflow is not awaiting a ci result",
			logFieldEventIgnored,
			logfields.WorkflowState(string(state.StateName)),
		)
		return nil
	}

	if state.CommitSHA != headSHA {
		logger.Debug(
			"event is for a commit that is not tracked, likely superseded",
			logFieldEventIgnored,
			zap.String("pulljoy.tracked_commit", state.CommitSHA),
		)
		return nil
	}

	owner, name, err := splitRepository(repo)
	if err != nil {
		return err
	}

	suites, err := e.ghClient.ListCheckSuites(ctx, owner, name, headSHA)
	if err != nil {
		return fmt.Errorf("listing check suites failed: %w", err)
	}

	if !allSuitesCompleted(suites) {
		logger.Debug(
			"not all check suites for the commit completed yet",
			logFieldEventIgnored,
		)
		return nil
	}

	runs, err := e.ghClient.ListCheckRuns(ctx, owner, name, headSHA)
	if err != nil {
		return fmt.Errorf("listing check runs failed: %w", err)
	}

	conclusion := aggregateConclusion(suites)

	if err := e.ghClient.DeleteBranch(ctx, owner, name, MirrorBranchName(prNumber)); err != nil {
		return fmt.Errorf("deleting mirror branch failed: %w", err)
	}

	comment := renderCheckReport(headSHA, conclusion, runs)
	if err := e.ghClient.CreateIssueComment(ctx, owner, name, prNumber, comment); err != nil {
		return fmt.Errorf("posting ci result comment failed: %w", err)
	}

	newState := store.WorkflowState{
		StateName: store.StandingBy,
		CommitSHA: headSHA,
	}

	if err := e.states.Save(ctx, repo, prNumber, &newState); err != nil {
		return fmt.Errorf("saving workflow state failed: %w", err)
	}

	metrics.StateTransitionInc(string(store.StandingBy))
	logger.Info(
		"ci run completed, result reported",
		logfields.Event("ci_run_reported"),
		zap.String("pulljoy.conclusion", conclusion),
	)

	return nil
}

func (e *Engine) reply(ctx context.Context, owner, name string, prNumber int, actor, msg string) error {
	comment := fmt.Sprintf("@%s %s", actor, msg)

	if err := e.ghClient.CreateIssueComment(ctx, owner, name, prNumber, comment); err != nil {
		return fmt.Errorf("posting reply comment failed: %w", err)
	}

	return nil
}

// reportBug reports an internal consistency error to the pull request thread
// and to the log.
// When raiseOnBug is set the error is additionally returned so that the
// event loop records the event as failed.
func (e *Engine) reportBug(ctx context.Context, logger *zap.Logger, repo string, prNumber int, bugErr *joyerr.BugError) error {
	logger.Error(
		"internal consistency error detected",
		logfields.Event("bug_detected"),
		zap.Error(bugErr),
	)

	owner, name, err := splitRepository(repo)
	if err == nil {
		comment := fmt.Sprintf(
			"Sorry, I ran into a bug while processing this pull request. "+
				"Please report this to the operators:\n```\n%s\n```",
			bugErr.Error(),
		)

		if postErr := e.ghClient.CreateIssueComment(ctx, owner, name, prNumber, comment); postErr != nil {
			logger.Error(
				"posting bug report comment failed",
				logfields.Event("bug_report_comment_failed"),
				zap.Error(postErr),
			)
		}
	}

	if e.raiseOnBug {
		return bugErr
	}

	return nil
}
