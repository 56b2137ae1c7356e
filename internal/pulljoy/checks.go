package pulljoy

import (
	"fmt"
	"strings"

	"github.com/simplesurance/pulljoy/internal/githubclt"
)

const (
	ConclusionSuccess = "success"
	ConclusionFailure = "failure"
)

// allSuitesCompleted returns true when every check-suite finished running.
func allSuitesCompleted(suites []*githubclt.CheckSuite) bool {
	for _, suite := range suites {
		if !suite.Completed() {
			return false
		}
	}

	return true
}

// aggregateConclusion reduces the check-suite conclusions of a commit to a
// single result.
// The aggregate is success iff every suite concluded with success, a single
// non-success suite fails the whole batch.
func aggregateConclusion(suites []*githubclt.CheckSuite) string {
	for _, suite := range suites {
		if suite.Conclusion != ConclusionSuccess {
			return ConclusionFailure
		}
	}

	return ConclusionSuccess
}

func conclusionIcon(conclusion string) string {
	switch conclusion {
	case "success":
		return "✅"
	case "failure", "cancelled", "timed_out", "stale":
		return "❌"
	case "action_required":
		return "⚠️"
	default:
		return "❔"
	}
}

// renderCheckReport renders the result comment that is posted when all
// check-suites for a commit completed.
// Each check-run is listed with its conclusion icon, owning app, title and
// link.
func renderCheckReport(commitSHA, conclusion string, runs []*githubclt.CheckRun) string {
	var b strings.Builder

	fmt.Fprintf(&b, "CI run for commit `%s` completed, conclusion: **%s**\n", commitSHA, conclusion)

	for _, run := range runs {
		fmt.Fprintf(
			&b,
			"- %s %s: [%s](%s)\n",
			conclusionIcon(run.Conclusion), run.AppName, run.Title, run.HTMLURL,
		)
	}

	return b.String()
}
