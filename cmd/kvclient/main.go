package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"kvclient/internal/adapters/downloader"
	"kvclient/internal/adapters/kvweb"
	"kvclient/internal/adapters/localstorage"
	"kvclient/internal/config"
	"kvclient/internal/core/domain"
	"kvclient/internal/log"
	"kvclient/internal/service"
)

var (
	cfg config.Config

	flagConfigFilePath string
	flagVerbose        bool

	flagProteins []string
	flagLigand   string
	flagVariant  string
	flagOutDir   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFilePath, "config", "", "YAML config file (KVFINDER_* environment variables take precedence)")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")

	// never print messages
	rootCmd.SilenceErrors = true
	rootCmd.PersistentPreRunE = initClient
	// version needs neither config nor environment
	versionCmd.PersistentPreRunE = func(*cobra.Command, []string) error { return nil }

	for _, cmd := range []*cobra.Command{runCmd, submitCmd} {
		cmd.Flags().StringVar(&flagLigand, "ligand", "", "ligand structure file or URL")
		cmd.Flags().StringVar(&flagVariant, "variant", "", "default settings variant: toml or text")
	}
	runCmd.Flags().StringSliceVar(&flagProteins, "protein", nil, "protein structure file or URL, may be repeated")
	runCmd.Flags().StringVar(&flagOutDir, "out", "", "base directory for job artifacts")
	_ = runCmd.MarkFlagRequired("protein")
	submitCmd.Flags().StringSliceVar(&flagProteins, "protein", nil, "protein structure file")
	_ = submitCmd.MarkFlagRequired("protein")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("kvclient failed", "err", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "kvclient",
	Short:        "Client of the KVFinder web service for cavity detection",
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "submit structures, wait for the cavities and save the results",
	Example: `  kvclient run --protein examples/1FMO.pdb
  kvclient run --protein https://files.rcsb.org/download/1FMO.pdb --out ./data`,
	Args: cobra.NoArgs,
	RunE: doRun,
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "submit a structure and print the job id",
	Args:  cobra.NoArgs,
	RunE:  doSubmit,
}

var statusCmd = &cobra.Command{
	Use:   "status ID",
	Short: "print the job resource as returned by the service",
	Args:  cobra.ExactArgs(1),
	RunE:  doStatus,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provide version of kvclient",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Println("kvclient: version info not available")
			return
		}
		fmt.Printf("kvclient: %s\n", info.Main.Version)
		fmt.Printf("go:       %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Printf("commit:   %s\n", s.Value)
			case "vcs.time":
				fmt.Printf("date:     %s\n", s.Value)
			}
		}
	},
}

func initClient(cmd *cobra.Command, _ []string) error {
	// a missing .env is fine, the environment may be set already
	_ = godotenv.Load()

	var err error
	cfg, err = config.LoadFile(flagConfigFilePath)
	if err != nil {
		return err
	}
	if flagVariant != "" {
		cfg.Variant = domain.Variant(flagVariant)
	}
	if flagOutDir != "" {
		cfg.OutputDir = flagOutDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// --verbose has a precedence over config file
	slog.SetDefault(log.New(flagVerbose || cfg.Verbose))
	slog.Debug("kvclient", "configPath", flagConfigFilePath, "server", cfg.Server.URL)
	return nil
}

func newClient() (*kvweb.Client, error) {
	return kvweb.NewClient(cfg.Server.URL, cfg.ClientOptions()...)
}

func doRun(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.ContextAttrs(ctx, slog.Group("kvclient",
		slog.String("cmd", "run"),
		slog.Int("pid", os.Getpid()),
	))

	client, err := newClient()
	if err != nil {
		return err
	}
	storage := localstorage.NewLocalStorage(cfg.OutputDir)
	orchestrator := service.NewOrchestrator(client, downloader.NewHTTPDownloader(), storage, nil)

	reqs := make([]service.JobRequest, 0, len(flagProteins))
	for _, p := range flagProteins {
		reqs = append(reqs, service.JobRequest{Protein: p, Ligand: flagLigand, Variant: cfg.Variant})
	}

	results, err := orchestrator.RunJobs(ctx, reqs, cfg.Concurrency)
	for _, result := range results {
		printSummary(result)
	}
	return err
}

func printSummary(result *domain.JobResult) {
	fmt.Println("\n=== Job Summary ===")
	fmt.Printf("Run ID:       %s\n", result.RunID)
	if result.Job != nil && result.Job.ID != "" {
		fmt.Printf("Job ID:       %s\n", result.Job.ID)
	}
	fmt.Printf("Success:      %t\n", result.Success)
	if !result.Success {
		fmt.Printf("Error:        %s\n", result.ErrorMessage)
		return
	}
	fmt.Printf("Cavity:       %s\n", result.CavityPath)
	fmt.Printf("Report:       %s\n", result.ReportPath)
	fmt.Printf("Log:          %s\n", result.LogPath)
	fmt.Printf("Completed At: %s\n", result.CompletedAt.Format(time.RFC3339))
}

func doSubmit(cmd *cobra.Command, _ []string) error {
	if len(flagProteins) != 1 {
		return errors.New("submit takes exactly one --protein")
	}
	opts := []domain.JobOption{domain.WithVariant(cfg.Variant)}
	if flagLigand != "" {
		opts = append(opts, domain.WithLigand(flagLigand))
	}
	job, err := domain.NewJob(flagProteins[0], opts...)
	if err != nil {
		return err
	}
	job.EnableLigandMode()
	if err := job.Input.Validate(); err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	if err := client.Submit(cmd.Context(), job); err != nil {
		return err
	}
	fmt.Println(job.ID)
	return nil
}

func doStatus(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	result, err := client.Status(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(json.RawMessage(result.Raw))
}
