package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// Supported publisher types.
	TypeDVC    = "dvc"
	TypeGit    = "git"
	TypeHTTP   = "http"
	TypeSQS    = "sqs"
	TypeSNS    = "sns"
	TypePubSub = "pubsub"

	// Pipeline stages a publisher can be bound to.
	StageDataVersion   = "data_version"
	StageSourceControl = "source_control"

	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5

	gitDefaultRemote  = "origin"
	gitDefaultBranch  = "main"
	gitDefaultMessage = "data: refresh extracted articles"
)

// configFile represents the structure of the publishers configuration file.
type configFile struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// PublisherConfig represents a single publisher entry declared in config files.
type PublisherConfig struct {
	ID      string                 `json:"id" yaml:"id"`
	Type    string                 `json:"type" yaml:"type"`
	Stage   string                 `json:"stage" yaml:"stage"`
	Enabled *bool                  `json:"enabled" yaml:"enabled"`
	DVC     *DVCPublisherConfig    `json:"dvc" yaml:"dvc"`
	Git     *GitPublisherConfig    `json:"git" yaml:"git"`
	HTTP    *HTTPPublisherConfig   `json:"http" yaml:"http"`
	SQS     *SQSPublisherConfig    `json:"sqs" yaml:"sqs"`
	SNS     *SNSPublisherConfig    `json:"sns" yaml:"sns"`
	PubSub  *PubSubPublisherConfig `json:"pubsub" yaml:"pubsub"`
}

// DVCPublisherConfig controls `dvc add` / `dvc push`.
type DVCPublisherConfig struct {
	WorkDir string `json:"work_dir" yaml:"work_dir"`
	Remote  string `json:"remote" yaml:"remote"`
}

// GitPublisherConfig controls the pull/add/commit/push sequence.
type GitPublisherConfig struct {
	WorkDir string   `json:"work_dir" yaml:"work_dir"`
	Remote  string   `json:"remote" yaml:"remote"`
	Branch  string   `json:"branch" yaml:"branch"`
	Message string   `json:"message" yaml:"message"`
	Paths   []string `json:"paths" yaml:"paths"`
	Pull    *bool    `json:"pull" yaml:"pull"`
}

// HTTPPublisherConfig holds generic HTTP sink settings.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// AWSCredentials optionally pins static credentials instead of the default chain.
type AWSCredentials struct {
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	SessionToken    string `json:"session_token" yaml:"session_token"`
}

// SQSPublisherConfig holds AWS SQS specific settings.
type SQSPublisherConfig struct {
	QueueURL    string          `json:"uri" yaml:"uri"`
	Region      string          `json:"region" yaml:"region"`
	Credentials *AWSCredentials `json:"credentials" yaml:"credentials"`
}

// SNSPublisherConfig holds AWS SNS specific settings.
type SNSPublisherConfig struct {
	TopicARN    string          `json:"topic_arn" yaml:"topic_arn"`
	Region      string          `json:"region" yaml:"region"`
	Credentials *AWSCredentials `json:"credentials" yaml:"credentials"`
}

// PubSubPublisherConfig holds Google Cloud Pub/Sub settings.
type PubSubPublisherConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// ConfigRegistry holds the sanitized publisher entries in file order. It is
// immutable once built.
type ConfigRegistry struct {
	publishers []PublisherConfig
	idx        map[string]int
}

// LoadRegistry reads publisher entries from a YAML or JSON file.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	var file configFile
	if err := decodeConfig(raw, filepath.Ext(path), &file); err != nil {
		return nil, fmt.Errorf("publishers file %s: %w", path, err)
	}
	if len(file.Publishers) == 0 {
		return nil, fmt.Errorf("publishers file %s declares no publishers", path)
	}
	return NewConfigRegistry(file.Publishers)
}

// decodeConfig picks the decoder from the extension; unknown extensions try
// YAML first, then JSON.
func decodeConfig(raw []byte, ext string, out *configFile) error {
	switch strings.ToLower(ext) {
	case ".json":
		return json.Unmarshal(raw, out)
	case ".yaml", ".yml":
		return yaml.Unmarshal(raw, out)
	}
	if yamlErr := yaml.Unmarshal(raw, out); yamlErr != nil {
		if jsonErr := json.Unmarshal(raw, out); jsonErr != nil {
			return fmt.Errorf("not YAML (%v) or JSON (%v)", yamlErr, jsonErr)
		}
	}
	return nil
}

// NewConfigRegistry applies defaults to every entry, validates it and rejects
// duplicate ids.
func NewConfigRegistry(cfgs []PublisherConfig) (*ConfigRegistry, error) {
	reg := &ConfigRegistry{
		publishers: make([]PublisherConfig, 0, len(cfgs)),
		idx:        make(map[string]int, len(cfgs)),
	}
	for i, raw := range cfgs {
		cfg := raw.withDefaults()
		if err := cfg.validate(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := reg.idx[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		reg.idx[cfg.ID] = len(reg.publishers)
		reg.publishers = append(reg.publishers, cfg)
	}
	return reg, nil
}

// withDefaults returns a trimmed copy of cfg with defaults filled in. Nested
// blocks are copied so the caller's config is never mutated.
func (cfg PublisherConfig) withDefaults() PublisherConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	cfg.Stage = strings.ToLower(strings.TrimSpace(cfg.Stage))
	if cfg.Stage == "" {
		cfg.Stage = defaultStage(cfg.Type)
	}
	if cfg.Enabled == nil {
		cfg.Enabled = boolPtr(true)
	}
	if cfg.Type == TypeGit && cfg.Git == nil {
		cfg.Git = &GitPublisherConfig{}
	}

	if cfg.DVC != nil {
		c := *cfg.DVC
		c.WorkDir = strings.TrimSpace(c.WorkDir)
		c.Remote = strings.TrimSpace(c.Remote)
		cfg.DVC = &c
	}
	if cfg.Git != nil {
		c := *cfg.Git
		c.WorkDir = strings.TrimSpace(c.WorkDir)
		c.Remote = orDefault(c.Remote, gitDefaultRemote)
		c.Branch = orDefault(c.Branch, gitDefaultBranch)
		c.Message = orDefault(c.Message, gitDefaultMessage)
		c.Paths = trimPaths(c.Paths)
		if c.Pull == nil {
			c.Pull = boolPtr(true)
		}
		cfg.Git = &c
	}
	if cfg.HTTP != nil {
		c := *cfg.HTTP
		c.URL = strings.TrimSpace(c.URL)
		c.Method = strings.ToUpper(orDefault(c.Method, httpDefaultMethod))
		c.Headers = sanitizeHeaders(c.Headers)
		if c.TimeoutSeconds <= 0 {
			c.TimeoutSeconds = httpDefaultTimeoutSeconds
		}
		cfg.HTTP = &c
	}
	if cfg.SQS != nil {
		c := *cfg.SQS
		c.QueueURL = strings.TrimSpace(c.QueueURL)
		c.Region = strings.TrimSpace(c.Region)
		cfg.SQS = &c
	}
	if cfg.SNS != nil {
		c := *cfg.SNS
		c.TopicARN = strings.TrimSpace(c.TopicARN)
		c.Region = strings.TrimSpace(c.Region)
		cfg.SNS = &c
	}
	if cfg.PubSub != nil {
		c := *cfg.PubSub
		c.ProjectID = strings.TrimSpace(c.ProjectID)
		c.Topic = strings.TrimSpace(c.Topic)
		c.CredentialsFile = strings.TrimSpace(c.CredentialsFile)
		cfg.PubSub = &c
	}
	return cfg
}

// defaultStage binds dvc to data versioning and everything else to source control.
func defaultStage(typ string) string {
	if typ == TypeDVC {
		return StageDataVersion
	}
	return StageSourceControl
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

func boolPtr(b bool) *bool { return &b }

func trimPaths(paths []string) []string {
	var out []string
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// sanitizeHeaders drops headers with a blank name or value.
func sanitizeHeaders(headers map[string]string) map[string]string {
	var out map[string]string
	for k, v := range headers {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		if out == nil {
			out = make(map[string]string, len(headers))
		}
		out[k] = v
	}
	return out
}

// validate checks the fields each publisher type needs.
func (cfg PublisherConfig) validate() error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	if cfg.Type == "" {
		return fmt.Errorf("publisher %q: type is required", cfg.ID)
	}
	if cfg.Stage != StageDataVersion && cfg.Stage != StageSourceControl {
		return fmt.Errorf("publisher %q: stage %q must be %s or %s", cfg.ID, cfg.Stage, StageDataVersion, StageSourceControl)
	}

	var missing []string
	switch cfg.Type {
	case TypeHTTP:
		if cfg.HTTP == nil || cfg.HTTP.URL == "" {
			missing = append(missing, "http.url")
		}
	case TypeSQS:
		if cfg.SQS == nil {
			cfg.SQS = &SQSPublisherConfig{}
		}
		if cfg.SQS.QueueURL == "" {
			missing = append(missing, "sqs.uri")
		}
		if cfg.SQS.Region == "" {
			missing = append(missing, "sqs.region")
		}
	case TypeSNS:
		if cfg.SNS == nil {
			cfg.SNS = &SNSPublisherConfig{}
		}
		if cfg.SNS.TopicARN == "" {
			missing = append(missing, "sns.topic_arn")
		}
		if cfg.SNS.Region == "" {
			missing = append(missing, "sns.region")
		}
	case TypePubSub:
		if cfg.PubSub == nil {
			cfg.PubSub = &PubSubPublisherConfig{}
		}
		if cfg.PubSub.ProjectID == "" {
			missing = append(missing, "pubsub.project_id")
		}
		if cfg.PubSub.Topic == "" {
			missing = append(missing, "pubsub.topic")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("publisher %q: missing %s", cfg.ID, strings.Join(missing, ", "))
	}
	return nil
}

// ByID returns the publisher config by id.
func (r *ConfigRegistry) ByID(id string) (PublisherConfig, bool) {
	if r == nil {
		return PublisherConfig{}, false
	}
	i, ok := r.idx[strings.TrimSpace(id)]
	if !ok {
		return PublisherConfig{}, false
	}
	return r.publishers[i], true
}

// All returns every configured publisher, enabled or not.
func (r *ConfigRegistry) All() []PublisherConfig {
	if r == nil {
		return nil
	}
	return append([]PublisherConfig(nil), r.publishers...)
}

// Enabled returns the enabled publishers in file order.
func (r *ConfigRegistry) Enabled() []PublisherConfig {
	return r.filter(func(PublisherConfig) bool { return true })
}

// ForStage returns the enabled publishers bound to stage, in file order.
func (r *ConfigRegistry) ForStage(stage string) []PublisherConfig {
	return r.filter(func(cfg PublisherConfig) bool { return cfg.Stage == stage })
}

func (r *ConfigRegistry) filter(keep func(PublisherConfig) bool) []PublisherConfig {
	if r == nil {
		return nil
	}
	var out []PublisherConfig
	for _, cfg := range r.publishers {
		if cfg.EnabledValue() && keep(cfg) {
			out = append(out, cfg)
		}
	}
	return out
}

// EnabledValue reports the enabled flag, defaulting to true.
func (cfg PublisherConfig) EnabledValue() bool {
	return cfg.Enabled == nil || *cfg.Enabled
}
