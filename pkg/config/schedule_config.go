// Package config provides configuration loading for the workflow scheduler.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pressline/pressline/pkg/models"
	"github.com/pressline/pressline/pkg/scheduler"
)

// ScheduleCalendarFile is the structure of the schedules.yaml file.
type ScheduleCalendarFile struct {
	Schedules []ScheduleEntryFile `yaml:"schedules"`
}

// ScheduleEntryFile is one recurring workflow definition in the YAML file.
type ScheduleEntryFile struct {
	Name    string            `yaml:"name"`
	Cron    string            `yaml:"cron"`
	Enabled *bool             `yaml:"enabled"`
	Params  ParamsFile        `yaml:"params"`
	Targets []TargetEntryFile `yaml:"targets"`
}

// ParamsFile mirrors the content generation parameters in YAML form.
type ParamsFile struct {
	Topic          string   `yaml:"topic"`
	Language       string   `yaml:"language"`
	TargetLength   int      `yaml:"target_length"`
	Tone           string   `yaml:"tone"`
	SEOLevel       string   `yaml:"seo_level"`
	TargetKeywords []string `yaml:"target_keywords"`
	IncludeImage   bool     `yaml:"include_image"`
	IncludeFAQ     bool     `yaml:"include_faq"`
	TargetAudience string   `yaml:"target_audience"`
}

// TargetEntryFile is one publish target in YAML form.
type TargetEntryFile struct {
	Platform string         `yaml:"platform"`
	Config   map[string]any `yaml:"config"`
}

// LoadScheduleCalendar loads recurring workflow definitions from a YAML file.
// Entries default to enabled unless the file says otherwise.
func LoadScheduleCalendar(filepath string) ([]scheduler.Entry, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filepath, err)
	}

	var calendar ScheduleCalendarFile
	if err := yaml.Unmarshal(data, &calendar); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	entries := make([]scheduler.Entry, 0, len(calendar.Schedules))

	for _, schedule := range calendar.Schedules {
		enabled := true
		if schedule.Enabled != nil {
			enabled = *schedule.Enabled
		}

		targets := make([]*models.PublishTarget, 0, len(schedule.Targets))
		for _, target := range schedule.Targets {
			targets = append(targets, &models.PublishTarget{
				Platform: target.Platform,
				Config:   target.Config,
			})
		}

		entries = append(entries, scheduler.Entry{
			Name:     schedule.Name,
			CronExpr: schedule.Cron,
			Enabled:  enabled,
			Params: models.ContentParams{
				Topic:          schedule.Params.Topic,
				Language:       schedule.Params.Language,
				TargetLength:   schedule.Params.TargetLength,
				Tone:           schedule.Params.Tone,
				SEOLevel:       schedule.Params.SEOLevel,
				TargetKeywords: schedule.Params.TargetKeywords,
				IncludeImage:   schedule.Params.IncludeImage,
				IncludeFAQ:     schedule.Params.IncludeFAQ,
				TargetAudience: schedule.Params.TargetAudience,
			},
			Targets: targets,
		})
	}

	return entries, nil
}
