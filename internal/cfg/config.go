package cfg

import (
	"fmt"
	"io"
	"time"

	"github.com/pelletier/go-toml"
)

const (
	DefGithubWebhookEndpoint = "/listener/github"
	DefMetricsEndpoint       = "/metrics"
	DefCommandPrefix         = "@pulljoy"
	DefLogFormat             = "logfmt"
	DefLogLevel              = "info"
	DefGitTimeout            = 10 * time.Minute
)

type Config struct {
	HTTPListenAddr            string   `toml:"http_server_listen_addr"`
	HTTPSListenAddr           string   `toml:"https_server_listen_addr"`
	HTTPSCertFile             string   `toml:"https_ssl_cert_file"`
	HTTPSKeyFile              string   `toml:"https_ssl_key_file"`
	HTTPGithubWebhookEndpoint string   `toml:"github_webhook_endpoint"`
	GithubWebHookSecret       string   `toml:"github_webhook_secret"`
	GithubAPIToken            string   `toml:"github_api_token"`
	BotUser                   string   `toml:"bot_user"`
	CommandPrefix             string   `toml:"command_prefix"`
	MetricsEndpoint           string   `toml:"metrics_endpoint"`
	StateDBPath               string   `toml:"state_db_path"`
	GitWorkDir                string   `toml:"git_work_dir"`
	GitTimeout                string   `toml:"git_timeout"`
	EventFilterQuery          string   `toml:"event_filter_query"`
	RaiseOnBug                *bool    `toml:"raise_on_bug"`
	Repositories              []string `toml:"repositories"`
	LogFormat                 string   `toml:"log_format"`
	LogTimeKey                string   `toml:"log_time_key"`
	LogLevel                  string   `toml:"log_level"`
}

func Load(reader io.Reader) (*Config, error) {
	var result Config

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	result.applyDefaults()

	return &result, nil
}

func (r *Config) applyDefaults() {
	if r.HTTPGithubWebhookEndpoint == "" {
		r.HTTPGithubWebhookEndpoint = DefGithubWebhookEndpoint
	}

	if r.MetricsEndpoint == "" {
		r.MetricsEndpoint = DefMetricsEndpoint
	}

	if r.CommandPrefix == "" {
		r.CommandPrefix = DefCommandPrefix
	}

	if r.LogFormat == "" {
		r.LogFormat = DefLogFormat
	}

	if r.LogLevel == "" {
		r.LogLevel = DefLogLevel
	}

	if r.RaiseOnBug == nil {
		raise := true
		r.RaiseOnBug = &raise
	}
}

// GitTimeoutDuration parses the git_timeout setting.
// An empty value yields the default timeout.
func (r *Config) GitTimeoutDuration() (time.Duration, error) {
	if r.GitTimeout == "" {
		return DefGitTimeout, nil
	}

	d, err := time.ParseDuration(r.GitTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid git_timeout value %q: %w", r.GitTimeout, err)
	}

	return d, nil
}

func (r *Config) Marshal(writer io.Writer) error {
	return toml.NewEncoder(writer).Encode(r)
}
