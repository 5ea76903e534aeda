package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/opportunity-scout/internal/logger"
	"github.com/spigell/opportunity-scout/internal/opportunity"
)

const (
	PromptImport               = "Import"
	PromptReportByOrganization = "Report by organization"
	PromptDumpToFile           = "Dump opportunities to file"
	PromptAppendToExcludeFile  = "Append all opportunities to exclude file"
	PromptExit                 = "Exit"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Proceed?",
	Items: []string{PromptImport, PromptReportByOrganization, PromptDumpToFile, PromptAppendToExcludeFile, PromptExit},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search all configured sources once",
	PreRun: func(cmd *cobra.Command, _ []string) {
		bindExcludeFile(cmd)
	},
	Run: func(cmd *cobra.Command, _ []string) {
		search(cmd)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().BoolP("yes", "y", false, "do not show the action menu after the search")
	searchCmd.Flags().Bool("dump", false, "dump found opportunities to a temporary file")
	searchCmd.Flags().Bool("import", false, "import found opportunities without asking")
	searchCmd.Flags().StringP("exclude-file", "e", "", "special file with opportunities to exclude. Default is unset.")
	searchCmd.Flags().IntP("limit", "l", 0, "maximum number of opportunities per source and in total")

	viper.BindPFlag("limit", searchCmd.Flags().Lookup("limit"))
}

func search(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, config := setup()

	p, err := newPipeline(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the search", zap.Error(err))
	}
	defer p.Close()

	opportunities, err := p.run(ctx)
	if err != nil {
		logger.Fatal("searching opportunities", zap.Error(err))
	}

	if opportunities.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no opportunities left after filters"))
		return
	}

	logger.Info("current list of opportunities", zap.Int("count", opportunities.Len()))

	var actions []string
	if flagIsSet(cmd, "dump") {
		actions = append(actions, PromptDumpToFile)
	}
	if flagIsSet(cmd, "import") {
		actions = append(actions, PromptImport)
	}
	for _, action := range actions {
		if err := handleAction(ctx, action, p, logger, opportunities); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}

	if flagIsSet(cmd, "yes") {
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(ctx, action, p, logger, opportunities); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

// setup builds the logger and reads the config shared by search and watch.
func setup() (*zap.Logger, *Config) {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		l.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		l.Fatal("config is required")
	}

	l.Info("starting the opportunity-scout", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	l.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return l, config
}

func handleAction(ctx context.Context, action string, p *pipeline, logger *zap.Logger, opportunities *opportunity.Opportunities) error {
	switch action {
	case PromptImport:
		if err := p.importResults(ctx, opportunities); err != nil {
			return err
		}
		return errExit
	case PromptReportByOrganization:
		pretty, _ := json.MarshalIndent(opportunities.ReportByOrganization(), "", "  ")
		logger.Info(string(pretty), zap.Int("opportunities count", opportunities.Len()))
		return nil
	case PromptDumpToFile:
		filename, err := opportunities.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptAppendToExcludeFile:
		excludeFile := p.config.ExcludeFile
		if excludeFile == "" {
			logger.Warn("exclude file is not configured", zap.String("hint", "set exclude-file or pass --exclude-file"))
			return nil
		}
		if err := appendToExcludeFile(excludeFile, opportunities); err != nil {
			return err
		}
		logger.Info("appended to exclude file", zap.String("filename", excludeFile))
		return errExit
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// bindExcludeFile binds the flag of the command being run, since search and
// watch both define it.
func bindExcludeFile(cmd *cobra.Command) {
	viper.BindPFlag("exclude-file", cmd.Flags().Lookup("exclude-file"))
}

func flagIsSet(cmd *cobra.Command, name string) bool {
	flag := cmd.Flag(name)
	return flag != nil && flag.Value.String() == "true"
}

// redacted returns a copy of the config without inline secrets, for logging.
func redacted(config *Config) *Config {
	c := *config
	if c.Automation != nil {
		automation := *c.Automation
		if automation.APIKey != "" {
			automation.APIKey = "<redacted>"
		}
		c.Automation = &automation
	}
	if c.AI != nil && c.AI.Gemini != nil {
		aiConfig := *c.AI
		gemini := *c.AI.Gemini
		if gemini.APIKey != "" {
			gemini.APIKey = "<redacted>"
		}
		aiConfig.Gemini = &gemini
		c.AI = &aiConfig
	}
	if c.Store != nil {
		storeConfig := *c.Store
		if storeConfig.DatabaseURL != "" {
			storeConfig.DatabaseURL = "<redacted>"
		}
		if storeConfig.RedisURL != "" {
			storeConfig.RedisURL = "<redacted>"
		}
		c.Store = &storeConfig
	}
	return &c
}
