// Package main is the entry point for the mnemo CLI.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/flemzord/mnemo/internal/config"
	"github.com/flemzord/mnemo/internal/engine"
	"github.com/flemzord/mnemo/internal/index"
	"github.com/flemzord/mnemo/internal/kv"
	"github.com/flemzord/mnemo/internal/kv/sqlite"
	"github.com/flemzord/mnemo/internal/mcptool"
	"github.com/flemzord/mnemo/internal/record"
	"github.com/flemzord/mnemo/internal/suggest"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mnemo",
		Short:         "A personal memory index and organization engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	root.AddCommand(
		versionCmd(), serveCmd(), rememberCmd(), searchCmd(), recordCmd(),
		suggestCmd(), organizeCmd(), statsCmd(), tagsCmd(), patternsCmd(),
		exportCmd(), importCmd(), configCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("mnemo %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the memory engine over MCP on stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, logger, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.Start(); err != nil {
				return err
			}
			return mcptool.NewServer(eng, logger, version).Serve()
		},
	}
}

func rememberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remember <content>",
		Short: "Store a new memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer eng.Close()

			title, _ := cmd.Flags().GetString("title")
			typeStr, _ := cmd.Flags().GetString("type")
			tags, _ := cmd.Flags().GetStringSlice("tags")
			relevance, _ := cmd.Flags().GetFloat64("relevance")

			mt := record.MemoryType(typeStr)
			if typeStr != "" && !record.ValidMemoryType(mt) {
				return fmt.Errorf("invalid type %q", typeStr)
			}

			id := eng.SaveMemory(record.Memory{
				Type:           mt,
				Title:          title,
				Content:        args[0],
				Tags:           tags,
				RelevanceScore: relevance,
			})
			if id == "" {
				return fmt.Errorf("memory rejected: title and content are both empty")
			}
			fmt.Println(id)
			return nil
		},
	}
	cmd.Flags().String("title", "", "Memory title")
	cmd.Flags().String("type", "", "Memory type (note, project, preference, pattern, knowledge)")
	cmd.Flags().StringSlice("tags", nil, "Tags to attach")
	cmd.Flags().Float64("relevance", 0, "Initial relevance score in [0,1]")
	return cmd
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search stored memories",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer eng.Close()

			var text string
			if len(args) > 0 {
				text = args[0]
			}
			limit, _ := cmd.Flags().GetInt("limit")
			typeStr, _ := cmd.Flags().GetString("type")
			tags, _ := cmd.Flags().GetStringSlice("tags")
			sortBy, _ := cmd.Flags().GetString("sort")
			semantic, _ := cmd.Flags().GetBool("semantic")

			q := index.Query{
				Text:     text,
				Limit:    limit,
				SortBy:   index.Sort(sortBy),
				Semantic: semantic,
			}
			q.Filters.Type = record.MemoryType(typeStr)
			q.Filters.Tags = tags

			results := eng.SearchMemories(q)
			if len(results) == 0 {
				fmt.Println("No matching memories.")
				return nil
			}
			for _, m := range results {
				created := time.UnixMilli(m.CreatedAt).UTC().Format("2006-01-02 15:04")
				fmt.Printf("[%s] %s (id: %s, created: %s)\n", m.Type, m.Title, m.ID, created)
				if m.Content != "" {
					fmt.Printf("  %s\n", m.Content)
				}
				if len(m.Tags) > 0 {
					fmt.Printf("  tags: %s\n", strings.Join(m.Tags, ", "))
				}
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 0, "Maximum results")
	cmd.Flags().String("type", "", "Filter by memory type")
	cmd.Flags().StringSlice("tags", nil, "Filter by tags (any match)")
	cmd.Flags().String("sort", "", "Sort order: relevance (default), date, access")
	cmd.Flags().Bool("semantic", false, "Use TF-IDF scoring instead of lexical")
	return cmd
}

func recordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record <type>",
		Short: "Record a user action for pattern detection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at := record.ActionType(args[0])
			if !record.ValidActionType(at) {
				return fmt.Errorf("invalid action type %q", args[0])
			}

			eng, _, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer eng.Close()

			app, _ := cmd.Flags().GetString("app")
			window, _ := cmd.Flags().GetString("window")
			context, _ := cmd.Flags().GetString("context")
			eng.RecordAction(record.ActionEntry{
				Type:            at,
				ApplicationName: app,
				WindowTitle:     window,
				Context:         context,
			})
			return nil
		},
	}
	cmd.Flags().String("app", "", "Application in focus")
	cmd.Flags().String("window", "", "Window title")
	cmd.Flags().String("context", "", "Free-form context")
	return cmd
}

func suggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Generate ranked proactive suggestions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, _, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer eng.Close()

			app, _ := cmd.Flags().GetString("app")
			state, _ := cmd.Flags().GetString("state")
			workload, _ := cmd.Flags().GetString("workload")
			limit, _ := cmd.Flags().GetInt("limit")

			now := time.Now()
			suggestions := eng.GetSuggestions(suggest.Environment{
				Hour:           now.Hour(),
				Weekday:        now.Weekday(),
				CurrentApp:     app,
				CognitiveState: suggest.CognitiveState(state),
				Workload:       suggest.Workload(workload),
			}, limit)
			if len(suggestions) == 0 {
				fmt.Println("No suggestions right now.")
				return nil
			}
			for _, sg := range suggestions {
				fmt.Printf("[%s/%s] %s\n  %s\n", sg.Priority, sg.Type, sg.Title, sg.Description)
				for _, item := range sg.ActionItems {
					fmt.Printf("  - %s\n", item)
				}
			}
			return nil
		},
	}
	cmd.Flags().String("app", "", "Application currently in focus")
	cmd.Flags().String("state", "", "Cognitive state (focused, distracted, creative, analytical, tired)")
	cmd.Flags().String("workload", "", "Workload (light, medium, heavy)")
	cmd.Flags().Int("limit", 5, "Maximum suggestions")
	return cmd
}

func organizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "organize",
		Short: "Run one bounded auto-organization pass",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, _, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer eng.Close()

			dryRun, _ := cmd.Flags().GetBool("dry-run")
			if dryRun {
				ins := eng.GetOrganizationInsights()
				fmt.Printf("Duplicate pairs:    %d\n", len(ins.Duplicates))
				fmt.Printf("Clusters:           %d\n", len(ins.Clusters))
				fmt.Printf("Archive candidates: %d\n", len(ins.ArchiveCandidates))
				fmt.Printf("Orphans:            %d\n", len(ins.Orphans))
				fmt.Printf("Quality score:      %.2f\n", ins.QualityScore)
				return nil
			}

			report := eng.OrganizeMemories()
			fmt.Printf("Merged %d, archived %d, clustered %d.\n",
				report.Merged, report.Archived, report.Clustered)
			return nil
		},
	}
	cmd.Flags().Bool("dry-run", false, "Report what would change without changing it")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the memory store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, _, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer eng.Close()

			stats := eng.GetMemoryStats()
			fmt.Printf("Memories: %d (%d archived)\n", stats.TotalMemories, stats.ArchivedMemories)
			fmt.Printf("Actions:  %d\n", stats.TotalActions)
			fmt.Printf("Patterns: %d\n", stats.TotalPatterns)
			fmt.Printf("Index:    %d words, %d tags\n", stats.IndexedWords, stats.IndexedTags)
			fmt.Printf("Quality:  %.2f\n", stats.QualityScore)
			for _, tc := range stats.TopTags {
				fmt.Printf("  #%s (%d)\n", tc.Tag, tc.Count)
			}
			return nil
		},
	}
}

func tagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Tag management",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, _, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer eng.Close()

			for _, tc := range eng.GetAllTags() {
				fmt.Printf("%-24s %d\n", tc.Tag, tc.Count)
			}
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "merge <old> <new>",
		Short: "Rename a tag across all memories",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer eng.Close()

			n := eng.MergeTags(args[0], args[1])
			fmt.Printf("Updated %d memories.\n", n)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <tag>",
		Short: "Strip a tag from all memories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer eng.Close()

			n := eng.RemoveTag(args[0])
			fmt.Printf("Updated %d memories.\n", n)
			return nil
		},
	})
	return cmd
}

func patternsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "List detected behavior patterns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, _, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer eng.Close()

			patterns := eng.Patterns()
			if len(patterns) == 0 {
				fmt.Println("No behavior patterns detected yet.")
				return nil
			}
			for _, p := range patterns {
				fmt.Printf("%-40s confidence %.2f, seen %dx\n", p.Pattern, p.Confidence, p.Frequency)
			}
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Export all data as JSON (stdout if no file given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer eng.Close()

			data, err := json.MarshalIndent(eng.ExportData(), "", "  ")
			if err != nil {
				return err
			}
			if len(args) == 0 {
				fmt.Println(string(data))
				return nil
			}
			return os.WriteFile(args[0], data, 0o600)
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all data from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var snap engine.Snapshot
			if err := json.Unmarshal(data, &snap); err != nil {
				return fmt.Errorf("parse export: %w", err)
			}

			eng, _, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer eng.Close()

			eng.ImportData(snap)
			fmt.Printf("Imported %d memories.\n", len(snap.Memories))
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if _, err := config.Load(args[0]); err != nil {
				return err
			}
			fmt.Println("Configuration OK")
			return nil
		},
	})
	return cmd
}

// openEngine loads configuration, opens the backing store, and builds the
// engine. A missing config file is not an error; defaults apply.
func openEngine(cmd *cobra.Command) (*engine.Engine, *slog.Logger, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath == "" {
		cfgPath = resolveConfigPath()
	}

	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}
	if cfg.DataPath == "" {
		cfg.DataPath = filepath.Join(defaultDataDir(), "mnemo.db")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	var store kv.Store
	docs, err := sqlite.Open(cfg.DataPath)
	if err != nil {
		return nil, nil, err
	}
	store = docs

	eng, err := engine.New(engine.Options{
		Config: cfg,
		Store:  store,
		Logger: logger,
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return eng, logger, nil
}

// resolveConfigPath searches standard locations and returns "" when no
// configuration file exists.
// Search order: $XDG_CONFIG_HOME/mnemo/mnemo.yaml → ./mnemo.yaml
func resolveConfigPath() string {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "mnemo", "mnemo.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "mnemo", "mnemo.yaml"))
	}

	candidates = append(candidates, "mnemo.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func defaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok {
		return filepath.Join(dir, "mnemo")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "mnemo", "data")
}
