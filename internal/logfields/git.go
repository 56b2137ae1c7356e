package logfields

import "go.uber.org/zap"

func PullRequest(val int) zap.Field {
	return zap.Int("github.pull_request", val)
}

func Repository(val string) zap.Field {
	return zap.String("git.repository", val)
}

func Branch(val string) zap.Field {
	return zap.String("git.branch", val)
}

func Commit(val string) zap.Field {
	return zap.String("git.commit", val)
}

func Actor(val string) zap.Field {
	return zap.String("github.actor", val)
}

func ReviewID(val string) zap.Field {
	return zap.String("pulljoy.review_id", val)
}

func WorkflowState(val string) zap.Field {
	return zap.String("pulljoy.workflow_state", val)
}
