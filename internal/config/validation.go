package config

import (
	"fmt"
	"strings"
)

// Progress bounds for configured extra steps: after the checkout (60) and
// before finalizing (80).
const (
	MinExtraStepProgress = 60
	MaxExtraStepProgress = 80
)

// ValidateConfig checks required keys and value ranges.
func ValidateConfig(cfg *Config) error {
	v := &configurationValidator{config: cfg}
	return v.validate()
}

type configurationValidator struct {
	config *Config
}

func (cv *configurationValidator) validate() error {
	if err := cv.validateRequired(); err != nil {
		return err
	}
	if err := cv.validateRepo(); err != nil {
		return err
	}
	if err := cv.validatePorts(); err != nil {
		return err
	}
	if n := cv.config.ReleaseRetryCount(); n < 0 {
		return fmt.Errorf("RELEASE_RETRIES cannot be negative, got %d", n)
	}
	return cv.validateExtraSteps()
}

func (cv *configurationValidator) validateRequired() error {
	var missing []string
	for _, f := range []struct {
		key, value string
	}{
		{"REPO", cv.config.Repo},
		{"SERVICE_NAME", cv.config.ServiceName},
		{"TARGET_DIR", cv.config.TargetDir},
		{"STATE_FILE", cv.config.StateFile},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required keys: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (cv *configurationValidator) validateRepo() error {
	owner, name, ok := strings.Cut(cv.config.Repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("REPO must be in owner/name form, got %q", cv.config.Repo)
	}
	return nil
}

func (cv *configurationValidator) validatePorts() error {
	if !cv.config.MaintenancePort.valid() {
		return fmt.Errorf("MAINTENANCE_PORT out of range: %d", cv.config.MaintenancePort)
	}
	if cv.config.AdminPort < 0 || cv.config.AdminPort > 65535 {
		return fmt.Errorf("ADMIN_PORT out of range: %d", cv.config.AdminPort)
	}
	if cv.config.AdminPort != 0 && cv.config.AdminPort == cv.config.MaintenancePort {
		return fmt.Errorf("ADMIN_PORT must differ from MAINTENANCE_PORT (%d)", cv.config.AdminPort)
	}
	return nil
}

func (cv *configurationValidator) validateExtraSteps() error {
	last := MinExtraStepProgress
	for i, s := range cv.config.ExtraSteps {
		if strings.TrimSpace(s.Command) == "" {
			return fmt.Errorf("EXTRA_STEPS[%d]: COMMAND is required", i)
		}
		if strings.TrimSpace(s.Message) == "" {
			return fmt.Errorf("EXTRA_STEPS[%d]: MESSAGE is required", i)
		}
		if s.Progress < MinExtraStepProgress || s.Progress > MaxExtraStepProgress {
			return fmt.Errorf("EXTRA_STEPS[%d]: PROGRESS %d outside %d-%d", i, s.Progress, MinExtraStepProgress, MaxExtraStepProgress)
		}
		if s.Progress < last {
			return fmt.Errorf("EXTRA_STEPS[%d]: PROGRESS %d decreases (previous %d)", i, s.Progress, last)
		}
		last = s.Progress
	}
	return nil
}
