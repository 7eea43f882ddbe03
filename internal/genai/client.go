package genai

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// Model is the narrow generation contract the client retries over.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config configures the generation client.
type Config struct {
	// BaseURL is the OpenAI-compatible endpoint.
	BaseURL string `koanf:"base_url"`

	// Model is the model identifier to request.
	Model string `koanf:"model"`

	// APIKey authenticates against the endpoint.
	APIKey string `koanf:"api_key"`

	// MaxRetries is the total number of attempts on rate-limit failures.
	MaxRetries int `koanf:"max_retries"`

	// BaseBackoff is the first fallback delay; attempt k waits
	// BaseBackoff * 2^(k-1) when the error carries no retry hint.
	BaseBackoff time.Duration `koanf:"base_backoff"`
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "https://api.openai.com/v1",
		Model:       "gpt-4o-mini",
		MaxRetries:  3,
		BaseBackoff: 5 * time.Second,
	}
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = defaults.BaseURL
	}
	if c.Model == "" {
		c.Model = defaults.Model
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	if c.BaseBackoff == 0 {
		c.BaseBackoff = defaults.BaseBackoff
	}
}

// SleepFunc blocks for the given duration or until ctx is done. Tests
// substitute a recorder.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryHintPattern extracts a provider-suggested delay like "retry in 2.5s"
// from a rate-limit error message.
var retryHintPattern = regexp.MustCompile(`retry in ([\d.]+)s`)

// Client retries Model calls on rate-limit failures.
type Client struct {
	model  Model
	config *Config
	logger *zap.Logger
	sleep  SleepFunc
}

// NewClient creates a retrying client around an existing model. Used by
// tests and by callers that bring their own transport.
func NewClient(model Model, cfg *Config, logger *zap.Logger) (*Client, error) {
	if model == nil {
		return nil, fmt.Errorf("model is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for generation client")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.ApplyDefaults()

	return &Client{
		model:  model,
		config: cfg,
		logger: logger,
		sleep:  defaultSleep,
	}, nil
}

// NewOpenAIClient creates a client backed by an OpenAI-compatible endpoint
// via langchaingo.
func NewOpenAIClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.ApplyDefaults()

	apiKey := cfg.APIKey
	if apiKey == "" {
		// langchaingo requires a token even for keyless local endpoints
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	return NewClient(&langchainModel{llm: llm}, cfg, logger)
}

// langchainModel adapts a langchaingo LLM to the Model interface.
type langchainModel struct {
	llm llms.Model
}

func (m *langchainModel) Generate(ctx context.Context, prompt string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m.llm, prompt)
}

// WithSleep overrides the backoff sleep. Test hook.
func (c *Client) WithSleep(sleep SleepFunc) *Client {
	c.sleep = sleep
	return c
}

// Call invokes the model, retrying rate-limit failures up to MaxRetries
// total attempts. Non-rate-limit failures return immediately. The final
// rate-limited failure returns a *RateLimitError.
func (c *Client) Call(ctx context.Context, prompt string) (string, error) {
	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		generationAttempts.Inc()

		text, err := c.model.Generate(ctx, prompt)
		if err == nil {
			if attempt > 0 {
				c.logger.Info("generation recovered after retries",
					zap.Int("attempts", attempt+1))
			}
			return text, nil
		}

		if !isRateLimitErr(err) {
			generationFailures.Inc()
			c.logger.Error("generation failed", zap.Error(err))
			return "", fmt.Errorf("generation failed: %w", err)
		}

		if attempt == c.config.MaxRetries-1 {
			generationFailures.Inc()
			c.logger.Error("rate limit exceeded, giving up",
				zap.Int("attempts", c.config.MaxRetries),
				zap.Error(err))
			return "", &RateLimitError{
				Attempts: c.config.MaxRetries,
				Message:  "The generation service is rate limited. Please wait a few minutes and try again.",
				Err:      err,
			}
		}

		delay := c.retryDelay(err, attempt)
		rateLimitRetries.Inc()
		c.logger.Warn("rate limit hit, backing off",
			zap.Duration("delay", delay),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", c.config.MaxRetries))

		if err := c.sleep(ctx, delay); err != nil {
			return "", fmt.Errorf("backoff interrupted: %w", err)
		}
	}

	return "", fmt.Errorf("generation failed after %d attempts", c.config.MaxRetries)
}

// retryDelay prefers the provider's embedded retry hint, falling back to
// exponential backoff (base, 2*base, 4*base, ...).
func (c *Client) retryDelay(err error, attempt int) time.Duration {
	if m := retryHintPattern.FindStringSubmatch(err.Error()); m != nil {
		if secs, perr := strconv.ParseFloat(m[1], 64); perr == nil {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return c.config.BaseBackoff * (1 << attempt)
}

// isRateLimitErr reports whether the failure indicates provider rate
// limiting: a 429 status or a quota message.
func isRateLimitErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota exceeded")
}
