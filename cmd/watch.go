package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/opportunity-scout/internal/scheduler"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Search on a schedule and import new opportunities",
	PreRun: func(cmd *cobra.Command, _ []string) {
		bindExcludeFile(cmd)
	},
	Run: func(_ *cobra.Command, _ []string) {
		watch()
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringP("schedule", "s", "", "cron spec or @every descriptor (default is "+scheduler.DefaultSpec+")")
	watchCmd.Flags().StringP("exclude-file", "e", "", "special file with opportunities to exclude. Default is unset.")

	viper.BindPFlag("watch.schedule", watchCmd.Flags().Lookup("schedule"))
}

func watch() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, config := setup()

	p, err := newPipeline(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the watch", zap.Error(err))
	}
	defer p.Close()

	spec := scheduler.DefaultSpec
	if config.Watch != nil && config.Watch.Schedule != "" {
		spec = config.Watch.Schedule
	}

	s, err := scheduler.New(spec, p.tick, logger.Named("watch"))
	if err != nil {
		logger.Fatal("creating the scheduler", zap.Error(err))
	}

	if err := s.Start(ctx); err != nil {
		logger.Fatal("starting the scheduler", zap.Error(err))
	}

	<-ctx.Done()
	logger.Info("shutting down", zap.String("reason", "received a signal"))

	<-s.Stop().Done()
}

// tick is one scheduled search. Everything found is imported without prompting.
func (p *pipeline) tick(ctx context.Context) error {
	opportunities, err := p.run(ctx)
	if err != nil {
		return err
	}

	p.logger.Info("current list of opportunities", zap.Int("count", opportunities.Len()))

	return p.importResults(ctx, opportunities)
}
