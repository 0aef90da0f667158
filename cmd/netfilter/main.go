package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bnema/ublock-network-filters/internal/compiler"
	"github.com/bnema/ublock-network-filters/internal/fetcher"
	"github.com/bnema/ublock-network-filters/internal/logging"
	"github.com/bnema/ublock-network-filters/internal/matcher"
	"github.com/bnema/ublock-network-filters/internal/models"
	"github.com/bnema/ublock-network-filters/internal/parser"
	"github.com/bnema/ublock-network-filters/internal/request"
	"github.com/bnema/ublock-network-filters/internal/store"
	"github.com/bnema/ublock-network-filters/internal/tokenizer"
)

var (
	cfgFile string
	cfg     models.Config
	logger  = logging.Nop()
	appFs   = afero.NewOsFs()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "netfilter",
	Short: "Parse and match uBlock Origin network filters",
	Long: `A tool that parses uBlock Origin / Adblock Plus network filter lists,
matches requests against them and compiles them to a compact binary form.`,
	SilenceUsage: true,
}

var parseCmd = &cobra.Command{
	Use:   "parse LINE...",
	Short: "Show how filter lines are parsed",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runParse,
}

var tokensCmd = &cobra.Command{
	Use:   "tokens LINE...",
	Short: "Show the index tokens of filter lines",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTokens,
}

var matchCmd = &cobra.Command{
	Use:   "match [LINE...]",
	Short: "Match a request against filter lines or the configured lists",
	RunE:  runMatch,
}

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Parse the configured lists and write compiled filter files",
	RunE:  runCompile,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured filter lists",
	RunE:  runList,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	RunE:  runInit,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./configs/netfilter.toml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	parseCmd.Flags().StringP("format", "f", "text", "output format: text, json or yaml")
	parseCmd.Flags().Bool("hosts", false, "treat arguments as hosts file entries")

	matchCmd.Flags().StringP("url", "u", "", "request url")
	matchCmd.Flags().StringP("source", "s", "", "url of the page issuing the request")
	matchCmd.Flags().StringP("type", "t", "other", "request type (script, image, xhr, document...)")
	matchCmd.Flags().String("compiled", "", "match against compiled files in this directory instead of the lists")
	_ = matchCmd.MarkFlagRequired("url")

	compileCmd.Flags().StringP("output", "o", "", "output directory (default from config)")
	compileCmd.Flags().Bool("dry-run", false, "parse and compile without writing files")
	compileCmd.Flags().Bool("verbose", false, "verbose output")

	rootCmd.AddCommand(parseCmd, tokensCmd, matchCmd, compileCmd, listCmd, initCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("netfilter")
		viper.SetConfigType("toml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
	}

	// Set defaults
	viper.SetDefault("parse.debug", false)
	viper.SetDefault("parse.workers", 8)
	viper.SetDefault("regex.backtracking", false)
	viper.SetDefault("regex.match_timeout", "100ms")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("output.dir", "./output")
	viper.SetDefault("output.max_filters_per_file", store.MaxFiltersPerFile)

	viper.SetEnvPrefix("NETFILTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing config: %v\n", err)
	}

	logger = logging.New(cfg.Log.Level, os.Stderr)
	slog.SetDefault(logger)
}

func regexOptions() compiler.Options {
	return compiler.Options{
		Backtracking: cfg.Regex.Backtracking,
		MatchTimeout: cfg.Regex.MatchTimeout,
	}
}

func runParse(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	hosts, _ := cmd.Flags().GetBool("hosts")

	manager := compiler.NewRegexManager(regexOptions(), logger)
	breakdowns := make([]Breakdown, 0, len(args))

	for _, line := range args {
		var (
			f   *models.NetworkFilter
			err error
		)
		if hosts {
			f, err = parser.ParseHostsStyle(line, true)
		} else {
			f, err = parser.Parse(line, true, models.ParseOptions{})
		}
		if err != nil {
			breakdowns = append(breakdowns, Breakdown{Line: line, Error: err.Error()})
			continue
		}
		breakdowns = append(breakdowns, NewBreakdown(f, manager))
	}

	return writeBreakdowns(os.Stdout, format, breakdowns)
}

func runTokens(cmd *cobra.Command, args []string) error {
	for _, line := range args {
		f, err := parser.Parse(line, false, models.ParseOptions{})
		if err != nil {
			fmt.Printf("%s\n  ERROR: %v\n", line, err)
			continue
		}
		fmt.Println(line)
		for i, set := range tokenizer.FilterTokens(f) {
			fmt.Printf("  set %d: %s\n", i+1, formatHashes(set))
		}
	}
	return nil
}

func runMatch(cmd *cobra.Command, args []string) error {
	rawURL, _ := cmd.Flags().GetString("url")
	source, _ := cmd.Flags().GetString("source")
	typ, _ := cmd.Flags().GetString("type")
	compiledDir, _ := cmd.Flags().GetString("compiled")

	req, err := request.New(rawURL, source, typ)
	if err != nil {
		return err
	}

	var filters []*models.NetworkFilter
	switch {
	case len(args) > 0:
		for _, line := range args {
			f, err := parser.Parse(line, true, models.ParseOptions{})
			if err != nil {
				fmt.Printf("  skipping %q: %v\n", line, err)
				continue
			}
			filters = append(filters, f)
		}
	case compiledDir != "":
		paths, err := store.ShardPaths(appFs, compiledDir, combinedName)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no compiled filters found in %s", compiledDir)
		}
		filters, err = store.Load(appFs, paths...)
		if err != nil {
			return err
		}
	default:
		filters, _, _, err = parseConfiguredLists(cmd.Context(), false)
		if err != nil {
			return err
		}
		filters = parser.Deduplicate(filters)
	}

	logger.Debug("matching", "url", req.URL, "type", req.Type, "third_party", req.IsThirdParty, "filters", len(filters))

	manager := compiler.NewRegexManager(regexOptions(), logger)
	decision := matcher.Decide(filters, req, manager)

	fmt.Printf("Request: %s (%s", req.URL, req.Type)
	if req.IsThirdParty {
		fmt.Print(", third-party")
	}
	fmt.Println(")")

	if len(decision.Matched) > 0 {
		fmt.Println("Matched filters:")
		for _, f := range decision.Matched {
			fmt.Printf("  %s\n", f)
		}
	}

	fmt.Printf("Decision: %s\n", decision.Verdict)
	if decision.Filter != nil {
		fmt.Printf("  by %s\n", decision.Filter)
	}
	if decision.Redirect != "" {
		fmt.Printf("  redirect to %s\n", decision.Redirect)
	}
	return nil
}

// parseConfiguredLists reads and parses every enabled list, printing per-list
// results. It returns the filters in list order, per-list results and the
// aggregated skip reasons.
func parseConfiguredLists(ctx context.Context, verbose bool) ([]*models.NetworkFilter, map[string]ListResult, map[string]int, error) {
	enabledLists := cfg.EnabledLists()
	if len(enabledLists) == 0 {
		return nil, nil, nil, fmt.Errorf("no enabled filter lists found in config")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	fetched, err := fetcher.New(appFs, logger).FetchAll(ctx, enabledLists)
	if err != nil {
		return nil, nil, nil, err
	}

	var all []*models.NetworkFilter
	results := make(map[string]ListResult)
	totalSkips := make(map[string]int)

	for _, res := range fetched {
		list := res.List
		fmt.Printf("\n  Processing %s...\n", list.Name)
		if res.Err != nil {
			fmt.Printf("    ERROR: %v\n", res.Err)
			continue
		}
		fmt.Printf("    Read: %d bytes\n", len(res.Data))

		// Fresh parser per list for accurate stats
		p := parser.New(
			parser.WithFormat(list.Format),
			parser.WithDebug(cfg.Parse.Debug),
			parser.WithWorkers(cfg.Parse.Workers),
			parser.WithLogger(logger.With("list", list.Name)),
		)
		filters, err := p.Parse(bytes.NewReader(res.Data))
		if err != nil {
			fmt.Printf("    ERROR parsing: %v\n", err)
			continue
		}
		stats := p.Stats()

		fmt.Printf("    Parsed: %d filters (skipped: %d)\n", len(filters), stats.Unsupported)
		if verbose {
			fmt.Printf("    Lines: %d total, %d network, %d exceptions, %d badfilter, %d cosmetic, %d comments\n",
				stats.Total, stats.Network, stats.Exception, stats.BadFilter, stats.Cosmetic, stats.Comments)
			if len(stats.SkipReasons) > 0 {
				fmt.Printf("    Parse skips:\n")
				for _, reason := range sortedKeys(stats.SkipReasons) {
					fmt.Printf("      - %s: %d\n", reason, stats.SkipReasons[reason])
				}
			}
		}
		for reason, count := range stats.SkipReasons {
			totalSkips[reason] += count
		}

		results[list.Name] = ListResult{
			Name:         list.Name,
			Path:         list.Path,
			Format:       string(list.Format),
			FilterCount:  len(filters),
			SkippedCount: stats.Unsupported,
		}
		all = append(all, filters...)
	}

	return all, results, totalSkips, nil
}

const combinedName = "combined"

func runCompile(cmd *cobra.Command, args []string) error {
	outputDir, _ := cmd.Flags().GetString("output")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if outputDir == "" {
		outputDir = cfg.Output.Dir
	}

	fmt.Printf("Compiling %d filter lists...\n", len(cfg.EnabledLists()))
	if dryRun {
		fmt.Println("[DRY RUN] No files will be written")
	}

	allFilters, results, totalSkips, err := parseConfiguredLists(cmd.Context(), verbose)
	if err != nil {
		return err
	}

	if len(totalSkips) > 0 {
		fmt.Printf("\nSkipped filters summary:\n")
		for _, reason := range sortedKeys(totalSkips) {
			fmt.Printf("  %s: %d\n", reason, totalSkips[reason])
		}
	}

	if len(allFilters) == 0 {
		fmt.Println("\nNothing to compile")
		return nil
	}

	fmt.Printf("\nGenerating combined output...\n")
	allFilters = parser.Deduplicate(allFilters)
	fmt.Printf("  Total filters: %d (after deduplication and badfilter)\n", len(allFilters))

	manager := compiler.NewRegexManager(regexOptions(), logger)
	pre := compiler.NewPrecompiler(manager)
	pre.Precompile(allFilters)
	cStats := pre.Stats()
	fmt.Printf("  Regexes: %d compiled, %d match-all, %d backtracking, %d failed\n",
		cStats.Compiled, cStats.MatchAll, cStats.Backtracked, cStats.Errors)
	if verbose {
		for _, reason := range sortedKeys(cStats.SkipReasons) {
			fmt.Printf("    - %s: %d\n", reason, cStats.SkipReasons[reason])
		}
	}

	if dryRun {
		fmt.Println("\nDone!")
		return nil
	}

	paths, err := store.Save(appFs, outputDir, combinedName, allFilters, cfg.Output.MaxFiltersPerFile)
	if err != nil {
		return err
	}

	files := make([]string, 0, len(paths))
	for _, p := range paths {
		files = append(files, filepath.Base(p))
	}

	manifest := Manifest{
		Version:     time.Now().Format("2006.01.02"),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Lists:       results,
		Combined: CombinedInfo{
			TotalFilters: len(allFilters),
			Files:        files,
		},
	}
	if err := writeJSON(appFs, outputDir, "manifest.json", manifest); err != nil {
		fmt.Printf("  ERROR writing manifest: %v\n", err)
	}

	fmt.Println("\nDone!")
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	fmt.Print("Configured filter lists:\n\n")
	for _, list := range cfg.Lists {
		status := "enabled"
		if !list.Enabled {
			status = "disabled"
		}
		format := list.Format
		if format == "" {
			format = models.FormatStandard
		}
		fmt.Printf("  [%s] %s (%s)\n", status, list.Name, format)
		fmt.Printf("         %s\n\n", list.Path)
	}
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := "./configs/netfilter.toml"
	if cfgFile != "" {
		configPath = cfgFile
	}

	if exists, _ := afero.Exists(appFs, configPath); exists {
		return fmt.Errorf("config file already exists: %s", configPath)
	}

	body, err := toml.Marshal(models.DefaultConfig())
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString("# uBlock network filter tool configuration\n")
	buf.WriteString("# Lists are read from local paths; format is \"standard\" or \"hosts\".\n\n")
	buf.Write(body)

	if err := appFs.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}
	if err := afero.WriteFile(appFs, configPath, buf.Bytes(), 0644); err != nil {
		return err
	}

	fmt.Printf("Created config file: %s\n", configPath)
	return nil
}
