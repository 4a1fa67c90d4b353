package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration and the
// project table, including endpoint URLs and file accessibility. It calls
// Validate() first for basic structural validation.
func (c *Config) ValidateDeep(configPath string, projects Projects) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("github.endpoint", c.GitHub.Endpoint, isHTTPURL),
		criterio.Run("bugzilla.endpoint", c.Bugzilla.Endpoint, isHTTPURL),
		criterio.Run("bugzilla.bug_url", c.Bugzilla.BugURL, isHTTPURL),
		criterio.Run("projects_dir", c.ProjectsDir, isDirectoryOrEmpty),
		c.validateUnassigned(),
		validateProjects(projects),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings(projects Projects) []ValidationWarning {
	var warnings []ValidationWarning

	if c.GitHub.Token == "" {
		warnings = append(warnings, ValidationWarning{
			Category: "GitHub",
			Message:  "no token configured; anonymous searches are heavily rate limited",
		})
	}

	for _, key := range projects.Keys() {
		p := projects[key]
		if len(p.Repositories) == 0 && len(p.Products) == 0 {
			warnings = append(warnings, ValidationWarning{
				Category: "Projects",
				Item:     key,
				Message:  "project has neither repositories nor products",
			})
		}
	}

	return warnings
}

func (c *Config) validateUnassigned() error {
	var errs criterio.FieldErrorsBuilder
	for i, entry := range c.Bugzilla.Unassigned {
		if strings.TrimSpace(entry) == "" {
			errs = errs.Append(fmt.Sprintf("bugzilla.unassigned[%d]", i), fmt.Errorf("entry is empty"))
			continue
		}
		if !doublestar.ValidatePattern(entry) {
			errs = errs.Append(fmt.Sprintf("bugzilla.unassigned[%d]", i), fmt.Errorf("invalid pattern %q", entry))
		}
	}
	return errs.ToError()
}

func validateProjects(projects Projects) error {
	var errs criterio.FieldErrorsBuilder
	for _, key := range projects.Keys() {
		p := projects[key]
		for i, repo := range p.Repositories {
			field := fmt.Sprintf("projects[%q].repositories[%d]", key, i)
			owner, name, ok := strings.Cut(repo.Name, "/")
			if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
				errs = errs.Append(field, fmt.Errorf("repository %q must be owner/name", repo.Name))
			}
			if len(repo.Tags) == 0 {
				errs = errs.Append(field, fmt.Errorf("repository %q has no label", repo.Name))
			}
		}
		for i, prod := range p.Products {
			if strings.TrimSpace(prod.Name) == "" {
				errs = errs.Append(fmt.Sprintf("projects[%q].products[%d]", key, i), fmt.Errorf("product name is empty"))
			}
		}
	}
	return errs.ToError()
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

func isHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}

func isDirectoryOrEmpty(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}
