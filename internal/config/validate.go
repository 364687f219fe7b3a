package config

import (
	"errors"
	"fmt"
)

// Validate checks the structural validity of a Config. All problems are
// collected and returned as one joined error.
func (c *Config) Validate() error {
	var errs []error

	if c.Limits.MaxMemoryEntries < 0 {
		errs = append(errs, fmt.Errorf("config: limits.max_memory_entries must be non-negative, got %d", c.Limits.MaxMemoryEntries))
	}
	if c.Limits.MaxHistoryEntries < 0 {
		errs = append(errs, fmt.Errorf("config: limits.max_history_entries must be non-negative, got %d", c.Limits.MaxHistoryEntries))
	}
	if c.Search.CacheTTLSeconds < 0 {
		errs = append(errs, fmt.Errorf("config: search.cache_ttl_seconds must be non-negative, got %d", c.Search.CacheTTLSeconds))
	}
	if c.Search.DefaultLimit <= 0 {
		errs = append(errs, fmt.Errorf("config: search.default_limit must be positive, got %d", c.Search.DefaultLimit))
	}
	if c.Patterns.Window <= 0 {
		errs = append(errs, fmt.Errorf("config: patterns.window must be positive, got %d", c.Patterns.Window))
	}
	if c.Patterns.RetentionDays <= 0 {
		errs = append(errs, fmt.Errorf("config: patterns.retention_days must be positive, got %d", c.Patterns.RetentionDays))
	}
	if c.Retention.ActionDays <= 0 {
		errs = append(errs, fmt.Errorf("config: retention.action_days must be positive, got %d", c.Retention.ActionDays))
	}
	if c.Organize.MaxArchivesPerRun < 0 {
		errs = append(errs, fmt.Errorf("config: organize.max_archives_per_run must be non-negative, got %d", c.Organize.MaxArchivesPerRun))
	}
	if c.Organize.MaxClusterMembers <= 0 {
		errs = append(errs, fmt.Errorf("config: organize.max_cluster_members must be positive, got %d", c.Organize.MaxClusterMembers))
	}
	if c.Organize.ArchiveAfterDays <= 0 {
		errs = append(errs, fmt.Errorf("config: organize.archive_after_days must be positive, got %d", c.Organize.ArchiveAfterDays))
	}

	thresholds := map[string]float64{
		"organize.duplicate_threshold":   c.Organize.DuplicateThreshold,
		"organize.keep_both_threshold":   c.Organize.KeepBothThreshold,
		"organize.merge_threshold":       c.Organize.MergeThreshold,
		"organize.near_identical":        c.Organize.NearIdentical,
		"organize.relatedness_threshold": c.Organize.RelatednessThreshold,
		"organize.cluster_confidence":    c.Organize.ClusterConfidence,
	}
	for name, v := range thresholds {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("config: %s must be within [0,1], got %v", name, v))
		}
	}

	if c.Jobs.Cleanup == "" {
		errs = append(errs, errors.New("config: jobs.cleanup schedule is required"))
	}
	if c.Jobs.Organize == "" {
		errs = append(errs, errors.New("config: jobs.organize schedule is required"))
	}
	if c.Jobs.Suggestions == "" {
		errs = append(errs, errors.New("config: jobs.suggestions schedule is required"))
	}

	return errors.Join(errs...)
}
