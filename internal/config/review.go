package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

const EnvReviewApplicationURL = "COHORT_REVIEW_APPLICATION_URL"

// ReviewConfig holds settings for the review application as seen from
// outside the cluster.
type ReviewConfig struct {
	ApplicationURL string `toml:"application_url"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ReviewConfig) Finalize() error {
	if c.ApplicationURL == "" {
		c.ApplicationURL = "http://localhost:8080"
	}
	if v := os.Getenv(EnvReviewApplicationURL); v != "" {
		c.ApplicationURL = v
	}
	c.ApplicationURL = strings.TrimRight(c.ApplicationURL, "/")

	u, err := url.Parse(c.ApplicationURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid application_url: %q", c.ApplicationURL)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *ReviewConfig) Merge(overlay *ReviewConfig) {
	if overlay.ApplicationURL != "" {
		c.ApplicationURL = overlay.ApplicationURL
	}
}
