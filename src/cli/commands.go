package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"graph-context/src/config"
	"graph-context/src/internal/common"
	"graph-context/src/internal/project"
	"graph-context/src/internal/registry"
	"graph-context/src/internal/types"
	"graph-context/src/internal/version"
	"graph-context/src/server/graph"
	"graph-context/src/utils"
)

// CLI constants
const (
	CmdRetrieve  = "retrieve"
	CmdWarm      = "warm"
	CmdStatus    = "status"
	CmdConfig    = "config"
	CmdConfigGen = "gen"
	CmdVersion   = "version"
	FlagConfig   = "config"
	FlagLine     = "line"
	FlagChar     = "char"
	FlagMaxChars = "max-chars"
	FlagMaxMs    = "max-ms"
	FlagJSON     = "json"
	FlagOut      = "out"
)

// CLI variables
var (
	configPath string
	cursorLine int
	cursorChar int
	maxChars   int
	maxMs      int
	formatJSON bool
	outPath    string
)

var rootCmd = &cobra.Command{
	Use:   "graph-context",
	Short: "Graph Context - definition-graph context retrieval for code completion",
	Long: `Graph Context extracts the identifiers near a cursor position, resolves them
to their definitions through a language server, and recursively expands the
definition graph into a compact set of context snippets.

QUICK START:
  graph-context retrieve main.go --line 42 --char 10   # Snippets for a cursor position
  graph-context warm ./src                             # Pre-populate the caches
  graph-context config gen                             # Write the default configuration

SUPPORTED LANGUAGES:
  - Go (gopls)
  - Python (pylsp)
  - TypeScript/JavaScript (typescript-language-server)
  - Java (jdtls)

Use 'graph-context <command> --help' for detailed command information.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	retrieveCmd = &cobra.Command{
		Use:   CmdRetrieve + " <file>",
		Short: "Retrieve context snippets for a cursor position",
		Long: `Retrieve resolves the identifiers in the window above the cursor to their
definitions and prints the resulting context snippets, most relevant first.

The file's language server is started on demand and shut down afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: runRetrieveCmd,
	}

	warmCmd = &cobra.Command{
		Use:   CmdWarm + " <file>...",
		Short: "Warm the retrieval caches for the given files",
		Long: `Warm runs a retrieval with no character budget against the end of each file,
populating the location and definition caches. Unsupported files are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runWarmCmd,
	}

	statusCmd = &cobra.Command{
		Use:   CmdStatus,
		Short: "Show configuration and workspace status",
		RunE:  runStatusCmd,
	}

	configCmd = &cobra.Command{
		Use:   CmdConfig,
		Short: "Manage configuration",
	}

	configGenCmd = &cobra.Command{
		Use:   CmdConfigGen,
		Short: "Write the default configuration file",
		RunE:  runConfigGenCmd,
	}

	versionCmd = &cobra.Command{
		Use:   CmdVersion,
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.GetFullVersionInfo())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, FlagConfig, "", "config file path")

	retrieveCmd.Flags().IntVar(&cursorLine, FlagLine, 0, "cursor line (zero-based)")
	retrieveCmd.Flags().IntVar(&cursorChar, FlagChar, 0, "cursor character (zero-based)")
	retrieveCmd.Flags().IntVar(&maxChars, FlagMaxChars, 4096, "character budget for the result")
	retrieveCmd.Flags().IntVar(&maxMs, FlagMaxMs, 0, "overall time budget in milliseconds")
	retrieveCmd.Flags().BoolVar(&formatJSON, FlagJSON, false, "print snippets as JSON")

	configGenCmd.Flags().StringVar(&outPath, FlagOut, "", "output path (default: "+DefaultConfigPath()+")")

	configCmd.AddCommand(configGenCmd)
	rootCmd.AddCommand(retrieveCmd, warmCmd, statusCmd, configCmd, versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func runRetrieveCmd(cmd *cobra.Command, args []string) error {
	filePath, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	docURI := utils.FilePathToURI(filePath)
	languageID := registry.DetectLanguage(docURI)
	if languageID == "" {
		return fmt.Errorf("unsupported file type: %s", filePath)
	}

	cfg := LoadConfigWithFallback(configPath)
	ctx := context.Background()

	session, err := OpenSession(ctx, cfg, project.FindRoot(filepath.Dir(filePath)), languageID)
	if err != nil {
		return err
	}
	defer session.Close()

	pos := types.Position{Line: int32(cursorLine), Character: int32(cursorChar)}
	snippets, err := session.Retrieve(ctx, filePath, pos, graph.Hints{MaxChars: maxChars, MaxMs: maxMs})
	if err != nil {
		return err
	}

	if formatJSON {
		data, err := json.MarshalIndent(snippets, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(snippets) == 0 {
		common.CLILogger.Info("no context found")
		return nil
	}
	for _, s := range snippets {
		common.CLILogger.Info("%s", strings.Repeat("-", 50))
		common.CLILogger.Info("%s %s:%d-%d", s.Symbol, utils.URIToFilePath(s.URI), s.StartLine, s.EndLine)
		fmt.Println(s.Content)
	}
	return nil
}

func runWarmCmd(cmd *cobra.Command, args []string) error {
	files, err := expandFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no supported files found")
	}

	cfg := LoadConfigWithFallback(configPath)
	ctx := context.Background()

	// One session per language, shared across that language's files.
	sessions := make(map[string]*Session)
	defer func() {
		for _, s := range sessions {
			s.Close()
		}
	}()

	warmed := warmFiles(ctx, files, func(languageID, dir string) (warmSession, error) {
		if s, ok := sessions[languageID]; ok {
			return s, nil
		}
		s, err := OpenSession(ctx, cfg, project.FindRoot(dir), languageID)
		if err != nil {
			return nil, err
		}
		sessions[languageID] = s
		return s, nil
	})

	common.CLILogger.Info("warmed caches from %d files", warmed)
	for lang, s := range sessions {
		stats, err := json.Marshal(s.Caches())
		if err == nil {
			common.CLILogger.Info("%s: %s", lang, string(stats))
		}
	}
	return nil
}

func runStatusCmd(cmd *cobra.Command, args []string) error {
	cfg := LoadConfigWithFallback(configPath)

	common.CLILogger.Info("graph-context %s", version.GetVersion())
	common.CLILogger.Info("config: %s", configPathInUse())
	common.CLILogger.Info("cache: %d documents x %d entries", cfg.Cache.MaxDocuments, cfg.Cache.MaxEntriesPerDoc)
	common.CLILogger.Info("limiter: %d concurrent calls, %s timeout", cfg.Limiter.Concurrency, cfg.Limiter.CallTimeout)
	common.CLILogger.Info("retriever: depth %d, window %d lines, %d candidates",
		cfg.Retriever.RecursionDepth, cfg.Retriever.WindowLines, cfg.Retriever.MaxSymbolRequests)

	langs := make([]string, 0, len(cfg.Servers))
	for lang := range cfg.Servers {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		srv := cfg.Servers[lang]
		marker := " "
		if _, err := exec.LookPath(srv.Command); err == nil {
			marker = "*"
		}
		common.CLILogger.Info("  %s %-12s %s %s", marker, lang, srv.Command, strings.Join(srv.Args, " "))
	}
	common.CLILogger.Info("(* = server binary found in PATH)")
	return nil
}

func runConfigGenCmd(cmd *cobra.Command, args []string) error {
	path := outPath
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := config.SaveConfig(config.GetDefaultConfig(), path); err != nil {
		return err
	}
	common.CLILogger.Info("wrote %s", path)
	return nil
}

func configPathInUse() string {
	if configPath != "" {
		return configPath
	}
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err != nil {
		return path + " (not present, using defaults)"
	}
	return path
}

// warmSession is the slice of Session the warm loop needs.
type warmSession interface {
	Retrieve(ctx context.Context, filePath string, pos types.Position, hints graph.Hints) ([]types.ContextSnippet, error)
}

// warmFiles runs a warming retrieval per file and returns how many
// succeeded. A language whose session cannot be opened is skipped for the
// rest of the run; per-file failures are logged and not counted.
func warmFiles(ctx context.Context, files []string, sessionFor func(languageID, dir string) (warmSession, error)) int {
	warmed := 0
	failed := make(map[string]bool)
	for _, filePath := range files {
		languageID := registry.DetectLanguage(utils.FilePathToURI(filePath))
		if failed[languageID] {
			continue
		}
		session, err := sessionFor(languageID, filepath.Dir(filePath))
		if err != nil {
			common.CLILogger.Warn("skipping %s files: %v", languageID, err)
			failed[languageID] = true
			continue
		}

		pos, err := endOfFile(filePath)
		if err != nil {
			common.CLILogger.Warn("cannot read %s: %v", filePath, err)
			continue
		}
		if _, err := session.Retrieve(ctx, filePath, pos, graph.Hints{}); err != nil {
			common.CLILogger.Warn("warming %s failed: %v", filePath, err)
			continue
		}
		warmed++
	}
	return warmed
}

// expandFiles resolves the warm command's arguments to supported files,
// walking directories recursively.
func expandFiles(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if registry.IsSupportedFile(utils.FilePathToURI(abs)) {
				out = append(out, abs)
			}
			continue
		}
		err = filepath.WalkDir(abs, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				name := d.Name()
				if path != abs && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor") {
					return filepath.SkipDir
				}
				return nil
			}
			if registry.IsSupportedFile(utils.FilePathToURI(path)) {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// endOfFile returns the position of the file's last line, which makes the
// warming window cover the whole tail of the file.
func endOfFile(filePath string) (types.Position, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return types.Position{}, err
	}
	lines := int32(strings.Count(string(data), "\n"))
	return types.Position{Line: lines, Character: 0}, nil
}
