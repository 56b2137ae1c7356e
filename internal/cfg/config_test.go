package cfg

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	config, err := Load(strings.NewReader(""))
	require.NoError(t, err)

	assert.Equal(t, DefGithubWebhookEndpoint, config.HTTPGithubWebhookEndpoint)
	assert.Equal(t, DefMetricsEndpoint, config.MetricsEndpoint)
	assert.Equal(t, DefCommandPrefix, config.CommandPrefix)
	assert.Equal(t, DefLogFormat, config.LogFormat)
	assert.Equal(t, DefLogLevel, config.LogLevel)
	require.NotNil(t, config.RaiseOnBug)
	assert.True(t, *config.RaiseOnBug)

	timeout, err := config.GitTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, DefGitTimeout, timeout)
}

func TestLoad(t *testing.T) {
	const doc = `
http_server_listen_addr = ":8084"
https_server_listen_addr = ":8085"
https_ssl_cert_file = "/etc/pulljoy/cert.pem"
https_ssl_key_file = "/etc/pulljoy/key.pem"
github_webhook_endpoint = "/hooks/github"
github_webhook_secret = "hush"
github_api_token = "token123"
bot_user = "pulljoy-bot"
command_prefix = "@pulljoy-staging"
metrics_endpoint = "/internal/metrics"
state_db_path = "/var/lib/pulljoy/state.db"
git_work_dir = "/var/tmp/pulljoy"
git_timeout = "3m"
event_filter_query = ".repository.private == false"
raise_on_bug = false
repositories = ["testman/repo", "testman/other"]
log_format = "json"
log_level = "debug"
`

	config, err := Load(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, ":8084", config.HTTPListenAddr)
	assert.Equal(t, ":8085", config.HTTPSListenAddr)
	assert.Equal(t, "/etc/pulljoy/cert.pem", config.HTTPSCertFile)
	assert.Equal(t, "/etc/pulljoy/key.pem", config.HTTPSKeyFile)
	assert.Equal(t, "/hooks/github", config.HTTPGithubWebhookEndpoint)
	assert.Equal(t, "hush", config.GithubWebHookSecret)
	assert.Equal(t, "token123", config.GithubAPIToken)
	assert.Equal(t, "pulljoy-bot", config.BotUser)
	assert.Equal(t, "@pulljoy-staging", config.CommandPrefix)
	assert.Equal(t, "/internal/metrics", config.MetricsEndpoint)
	assert.Equal(t, "/var/lib/pulljoy/state.db", config.StateDBPath)
	assert.Equal(t, "/var/tmp/pulljoy", config.GitWorkDir)
	assert.Equal(t, ".repository.private == false", config.EventFilterQuery)
	require.NotNil(t, config.RaiseOnBug)
	assert.False(t, *config.RaiseOnBug)
	assert.Equal(t, []string{"testman/repo", "testman/other"}, config.Repositories)
	assert.Equal(t, "json", config.LogFormat)
	assert.Equal(t, "debug", config.LogLevel)

	timeout, err := config.GitTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Minute, timeout)
}

func TestLoadInvalidTOMLFails(t *testing.T) {
	_, err := Load(strings.NewReader("github_api_token = "))
	require.Error(t, err)
}

func TestGitTimeoutDurationInvalidValueFails(t *testing.T) {
	config, err := Load(strings.NewReader(`git_timeout = "3 bananas"`))
	require.NoError(t, err)

	_, err = config.GitTimeoutDuration()
	require.Error(t, err)
}

func TestMarshalLoadRoundtrip(t *testing.T) {
	config, err := Load(strings.NewReader(`github_api_token = "token123"`))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, config.Marshal(&buf))

	reloaded, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, config, reloaded)
}
