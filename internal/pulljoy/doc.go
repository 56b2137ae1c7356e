// Package pulljoy implements the approve-before-CI workflow for pull
// requests.
//
// For every open pull request one workflow record is kept. A newly opened or
// updated pull request enters the awaiting-manual-review state and a review
// request with a one-time review id is posted. A maintainer authorizes a CI
// run by echoing the id back in an approve command. The approved head commit
// is then mirrored into a bot-owned branch, which triggers CI, and the
// workflow tracks the run until all check-suites for the commit completed.
// The aggregated result is reported as a comment and the workflow stands by
// until the next push or until the pull request is closed.
//
// Events for the same (repository, pull request) pair are processed
// serially, events for distinct pairs are processed in parallel.
package pulljoy
